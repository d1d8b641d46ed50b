package moc

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/astrogo/fitsio"

	"gwalerts/internal/skymap"
)

// MOC is a Multi-Order Coverage map: the set of NUNIQ pixels whose cumulative
// probability reaches a contour level, sorted by ascending index.
type MOC struct {
	Uniq     []int64
	MaxOrder int

	// AreaSqDeg is the sky area enclosed by the contour, in square degrees.
	AreaSqDeg float64
	// SumProb is the total probability of the input map. Should be 1.0,
	// but need not be.
	SumProb float64
}

const sqDegPerSr = (180 / math.Pi) * (180 / math.Pi)

// Contour cuts the map at the given probability level (0 < level <= 1).
//
// Pixels are ranked by probability density; the cut keeps the most probable
// pixels whose cumulative probability stays below level*sum, matching the
// LIGO multi-order skymap credible-region recipe.
func Contour(m *skymap.Map, level float64) (*MOC, error) {
	if m == nil || len(m.Pixels) == 0 {
		return nil, errors.New("moc: empty skymap")
	}
	if level <= 0 || level > 1 {
		return nil, fmt.Errorf("moc: contour level %g outside (0,1]", level)
	}

	pixels := make([]skymap.Pixel, len(m.Pixels))
	copy(pixels, m.Pixels)
	sort.Slice(pixels, func(i, j int) bool {
		return pixels[i].ProbDensity > pixels[j].ProbDensity
	})

	areas := make([]float64, len(pixels))
	cumprob := make([]float64, len(pixels))
	sum := 0.0
	for i, p := range pixels {
		a, err := skymap.PixArea(p.Uniq)
		if err != nil {
			return nil, err
		}
		areas[i] = a
		sum += a * p.ProbDensity
		cumprob[i] = sum
	}

	target := level * sum
	cut := sort.Search(len(cumprob), func(i int) bool {
		return cumprob[i] >= target
	})

	out := &MOC{SumProb: sum, Uniq: make([]int64, cut)}
	for i := 0; i < cut; i++ {
		out.Uniq[i] = pixels[i].Uniq
		out.AreaSqDeg += areas[i] * sqDegPerSr
		order, _ := skymap.Order(pixels[i].Uniq)
		if order > out.MaxOrder {
			out.MaxOrder = order
		}
	}
	sort.Slice(out.Uniq, func(i, j int) bool { return out.Uniq[i] < out.Uniq[j] })
	return out, nil
}

// ContourArea returns the sky area of the given contour level in square
// degrees without building the pixel list.
func ContourArea(m *skymap.Map, level float64) (float64, error) {
	c, err := Contour(m, level)
	if err != nil {
		return 0, err
	}
	return c.AreaSqDeg, nil
}

type mocRow struct {
	Uniq int64 `fits:"UNIQ"`
}

// Write encodes the MOC as a FITS binary table with a single UNIQ column.
// TFORM is pinned to '1K' rather than the equivalent 'K': some MOC readers
// reject the short form.
func (c *MOC) Write(w io.Writer) error {
	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("moc: create fits: %w", err)
	}
	defer f.Close()

	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return err
	}
	if err := f.Write(phdu); err != nil {
		return err
	}

	tbl, err := fitsio.NewTable("MOC", []fitsio.Column{
		{Name: "UNIQ", Format: "1K"},
	}, fitsio.BINARY_TBL)
	if err != nil {
		return fmt.Errorf("moc: new table: %w", err)
	}
	defer tbl.Close()

	err = tbl.Header().Append(
		fitsio.Card{Name: "PIXTYPE", Value: "HEALPIX"},
		fitsio.Card{Name: "ORDERING", Value: "NUNIQ", Comment: "NUNIQ pixel ordering"},
		fitsio.Card{Name: "COORDSYS", Value: "C", Comment: "Celestial (equatorial) coordinates"},
		fitsio.Card{Name: "MOCORDER", Value: c.MaxOrder, Comment: "Maximum HEALPix order"},
		fitsio.Card{Name: "MOCTOOL", Value: "gwalerts"},
	)
	if err != nil {
		return err
	}

	for _, u := range c.Uniq {
		row := mocRow{Uniq: u}
		if err := tbl.Write(&row); err != nil {
			return fmt.Errorf("moc: write row: %w", err)
		}
	}
	return f.Write(tbl)
}

// WriteFile encodes the MOC to a FITS file on disk, overwriting any
// existing file.
func (c *MOC) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
