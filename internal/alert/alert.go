package alert

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Alert types carried by LVK notices.
const (
	TypeEarlyWarning = "EARLYWARNING"
	TypePreliminary  = "PRELIMINARY"
	TypeInitial      = "INITIAL"
	TypeUpdate       = "UPDATE"
	TypeRetraction   = "RETRACTION"
)

// Notice is an LVK gravitational-wave alert as published on the GCN Kafka
// stream. Retractions carry no Event block.
type Notice struct {
	SupereventID string `json:"superevent_id"`
	AlertType    string `json:"alert_type"`
	TimeCreated  string `json:"time_created"`
	URLs         struct {
		GraceDB string `json:"gracedb"`
	} `json:"urls"`
	Event         *Event         `json:"event"`
	ExternalCoinc *ExternalCoinc `json:"external_coinc,omitempty"`
}

// Event is the candidate block of a non-retraction notice.
type Event struct {
	Significant    bool            `json:"significant"`
	Time           string          `json:"time"`
	FAR            float64         `json:"far"` // false alarm rate, Hz
	Instruments    []string        `json:"instruments"`
	Group          string          `json:"group"`
	Pipeline       string          `json:"pipeline"`
	Search         string          `json:"search"`
	Properties     Properties      `json:"properties"`
	Classification *Classification `json:"classification,omitempty"`
	// Skymap is the base64-encoded multi-order FITS payload.
	Skymap string `json:"skymap"`
}

// Properties are source-property probabilities.
type Properties struct {
	HasNS      float64 `json:"HasNS"`
	HasRemnant float64 `json:"HasRemnant"`
	HasMassGap float64 `json:"HasMassGap"`
}

// Classification is the source-class probability breakdown.
type Classification struct {
	BNS         float64 `json:"BNS"`
	NSBH        float64 `json:"NSBH"`
	BBH         float64 `json:"BBH"`
	Terrestrial float64 `json:"Terrestrial"`
}

// ExternalCoinc describes a coincident trigger from another observatory.
type ExternalCoinc struct {
	Observatory      string  `json:"observatory"`
	Search           string  `json:"search"`
	TimeCoincFAR     float64 `json:"time_coincidence_far"`
	TimeSkyCoincFAR  float64 `json:"time_sky_position_coincidence_far"`
	GCNNoticeID      int64   `json:"gcn_notice_id"`
	IVORN            string  `json:"ivorn"`
}

// Decode parses a notice from raw message bytes. Leading whitespace, BOMs
// and stray non-breaking spaces ahead of the JSON are tolerated.
func Decode(data []byte) (*Notice, error) {
	s := strings.TrimLeftFunc(string(data), func(r rune) bool {
		return unicode.IsSpace(r) || r == '\ufeff' || r == '\u00a0'
	})

	var n Notice
	if err := json.Unmarshal([]byte(s), &n); err != nil {
		return nil, fmt.Errorf("alert: decode notice: %w", err)
	}
	if n.SupereventID == "" {
		return nil, errors.New("alert: notice has no superevent_id")
	}
	if n.AlertType == "" {
		return nil, errors.New("alert: notice has no alert_type")
	}
	return &n, nil
}

// IsRetraction reports whether this notice withdraws a previous candidate.
func (n *Notice) IsRetraction() bool {
	return n.AlertType == TypeRetraction
}

// IsMockEvent reports whether this is a test superevent. Mock superevent
// ids start with 'M' (MS/MDC streams); real candidates start with 'S'.
func (n *Notice) IsMockEvent() bool {
	return strings.HasPrefix(n.SupereventID, "M")
}

// Label is the unique tag used for output filenames,
// e.g. "S231113a_PRELIMINARY".
func (n *Notice) Label() string {
	return n.SupereventID + "_" + n.AlertType
}

// SkymapBytes decodes the embedded skymap payload.
func (n *Notice) SkymapBytes() ([]byte, error) {
	if n.Event == nil {
		return nil, errors.New("alert: notice has no event block")
	}
	if n.Event.Skymap == "" {
		return nil, errors.New("alert: notice has no skymap")
	}
	b, err := base64.StdEncoding.DecodeString(n.Event.Skymap)
	if err != nil {
		return nil, fmt.Errorf("alert: decode skymap payload: %w", err)
	}
	return b, nil
}
