package alert

import (
	"bytes"
	"encoding/base64"
	"testing"
)

const sampleNotice = `{
  "alert_type": "PRELIMINARY",
  "time_created": "2023-05-18T12:59:08Z",
  "superevent_id": "S230518h",
  "urls": {"gracedb": "https://gracedb.ligo.org/superevents/S230518h/view/"},
  "event": {
    "significant": true,
    "time": "2023-05-18T12:59:08.167Z",
    "far": 1.189e-10,
    "instruments": ["H1", "L1"],
    "group": "CBC",
    "pipeline": "gstlal",
    "search": "AllSky",
    "properties": {"HasNS": 0.96, "HasRemnant": 0.85, "HasMassGap": 0.01},
    "classification": {"BNS": 0.02, "NSBH": 0.96, "BBH": 0.01, "Terrestrial": 0.01},
    "skymap": "SKYMAP_B64"
  },
  "external_coinc": null
}`

const retractionNotice = `{
  "alert_type": "RETRACTION",
  "time_created": "2023-05-18T14:00:00Z",
  "superevent_id": "S230518h",
  "urls": {"gracedb": "https://gracedb.ligo.org/superevents/S230518h/view/"},
  "event": null
}`

func sample(t *testing.T, payload []byte) []byte {
	t.Helper()
	b64 := base64.StdEncoding.EncodeToString(payload)
	return bytes.Replace([]byte(sampleNotice), []byte("SKYMAP_B64"), []byte(b64), 1)
}

func TestDecode(t *testing.T) {
	payload := []byte("SIMPLE = T fake fits payload")
	n, err := Decode(sample(t, payload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if n.SupereventID != "S230518h" {
		t.Errorf("superevent = %q", n.SupereventID)
	}
	if n.AlertType != TypePreliminary {
		t.Errorf("alert type = %q", n.AlertType)
	}
	if n.Event == nil {
		t.Fatal("event block missing")
	}
	if !n.Event.Significant {
		t.Error("significant flag lost")
	}
	if n.Event.FAR != 1.189e-10 {
		t.Errorf("far = %g", n.Event.FAR)
	}
	if n.Event.Classification == nil || n.Event.Classification.NSBH != 0.96 {
		t.Error("classification not decoded")
	}
	if n.Label() != "S230518h_PRELIMINARY" {
		t.Errorf("label = %q", n.Label())
	}
	if n.IsRetraction() || n.IsMockEvent() {
		t.Error("real preliminary notice misclassified")
	}

	got, err := n.SkymapBytes()
	if err != nil {
		t.Fatalf("SkymapBytes: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("skymap payload did not round-trip")
	}
}

func TestDecodeToleratesLeadingGarbage(t *testing.T) {
	raw := append([]byte("\ufeff \n"), []byte(retractionNotice)...)
	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode with BOM: %v", err)
	}
	if n.SupereventID != "S230518h" {
		t.Errorf("superevent = %q", n.SupereventID)
	}
}

func TestDecodeRetraction(t *testing.T) {
	n, err := Decode([]byte(retractionNotice))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !n.IsRetraction() {
		t.Error("retraction not detected")
	}
	if _, err := n.SkymapBytes(); err == nil {
		t.Error("expected error extracting skymap from retraction")
	}
}

func TestDecodeRejectsIncompleteNotices(t *testing.T) {
	cases := map[string]string{
		"not json":         "hello",
		"no superevent":    `{"alert_type": "INITIAL"}`,
		"no alert type":    `{"superevent_id": "S230518h"}`,
	}
	for name, raw := range cases {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}
}

func TestIsMockEvent(t *testing.T) {
	mock := `{"superevent_id": "MS230518a", "alert_type": "PRELIMINARY"}`
	n, err := Decode([]byte(mock))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !n.IsMockEvent() {
		t.Error("MS superevent not treated as mock")
	}
}

func TestSkymapBytesBadBase64(t *testing.T) {
	raw := `{"superevent_id": "S1", "alert_type": "INITIAL", "event": {"skymap": "%%%not-base64%%%"}}`
	n, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, err := n.SkymapBytes(); err == nil {
		t.Error("expected base64 error")
	}
}
