package skymap

import (
	"math"
	"path/filepath"
	"testing"
)

func TestOrder(t *testing.T) {
	cases := []struct {
		uniq int64
		want int
	}{
		{4, 0},   // first order-0 pixel
		{15, 0},  // last order-0 pixel
		{16, 1},  // first order-1 pixel
		{63, 1},  // last order-1 pixel
		{64, 2},  // first order-2 pixel
		{1024, 4},
	}
	for _, c := range cases {
		got, err := Order(c.uniq)
		if err != nil {
			t.Fatalf("Order(%d): %v", c.uniq, err)
		}
		if got != c.want {
			t.Errorf("Order(%d) = %d, want %d", c.uniq, got, c.want)
		}
	}

	if _, err := Order(3); err == nil {
		t.Error("expected error for uniq < 4")
	}
}

func TestPixArea(t *testing.T) {
	// Order 0: 12 pixels covering the full sphere.
	a, err := PixArea(4)
	if err != nil {
		t.Fatalf("PixArea: %v", err)
	}
	if want := 4 * math.Pi / 12; math.Abs(a-want) > 1e-12 {
		t.Errorf("order-0 pixel area = %g, want %g", a, want)
	}

	// Each order quarters the pixel area.
	a1, _ := PixArea(16)
	if math.Abs(a1-a/4) > 1e-12 {
		t.Errorf("order-1 pixel area = %g, want %g", a1, a/4)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := &Map{
		Object:   "S230518h",
		DistMean: 276.3,
		DistStd:  79.2,
		Pixels: []Pixel{
			{Uniq: 64, ProbDensity: 3.5},
			{Uniq: 65, ProbDensity: 1.25},
			{Uniq: 270, ProbDensity: 0.5},
		},
	}

	path := filepath.Join(t.TempDir(), "skymap.multiorder.fits")
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got.Pixels) != len(m.Pixels) {
		t.Fatalf("got %d pixels, want %d", len(got.Pixels), len(m.Pixels))
	}
	for i := range m.Pixels {
		if got.Pixels[i].Uniq != m.Pixels[i].Uniq {
			t.Errorf("pixel %d uniq = %d, want %d", i, got.Pixels[i].Uniq, m.Pixels[i].Uniq)
		}
		if math.Abs(got.Pixels[i].ProbDensity-m.Pixels[i].ProbDensity) > 1e-12 {
			t.Errorf("pixel %d density = %g, want %g", i, got.Pixels[i].ProbDensity, m.Pixels[i].ProbDensity)
		}
	}
	if got.Object != m.Object {
		t.Errorf("object = %q, want %q", got.Object, m.Object)
	}
	if math.Abs(got.DistMean-m.DistMean) > 1e-9 {
		t.Errorf("distmean = %g, want %g", got.DistMean, m.DistMean)
	}
}

func TestWriteEmptyMapFails(t *testing.T) {
	m := &Map{}
	if err := m.WriteFile(filepath.Join(t.TempDir(), "empty.fits")); err == nil {
		t.Fatal("expected error writing empty map")
	}
}
