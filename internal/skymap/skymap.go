package skymap

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"os"

	"github.com/astrogo/fitsio"
)

// Pixel is one cell of a multi-order HEALPix skymap. ProbDensity is the
// probability density over the pixel in sr^-1.
type Pixel struct {
	Uniq        int64   `fits:"UNIQ"`
	ProbDensity float64 `fits:"PROBDENSITY"`
}

// Map is a multi-order skymap: localisation probability density over
// NUNIQ-indexed pixels, plus the header metadata we care about.
type Map struct {
	Pixels []Pixel

	Object   string
	DistMean float64 // posterior mean distance, Mpc (0 if absent)
	DistStd  float64 // posterior distance std dev, Mpc (0 if absent)
}

// Order returns the HEALPix order encoded in a NUNIQ index.
// uniq = 4*nside^2 + ipix with nside = 2^order, so uniq >= 4.
func Order(uniq int64) (int, error) {
	if uniq < 4 {
		return 0, fmt.Errorf("skymap: invalid NUNIQ index %d", uniq)
	}
	return (bits.Len64(uint64(uniq)) - 3) / 2, nil
}

// PixArea returns the area of the pixel with the given NUNIQ index, in
// steradians. At order k there are 12*4^k pixels covering 4pi sr, so each
// covers pi/(3*nside^2).
func PixArea(uniq int64) (float64, error) {
	order, err := Order(uniq)
	if err != nil {
		return 0, err
	}
	nside := float64(int64(1) << uint(order))
	return math.Pi / (3 * nside * nside), nil
}

// Read decodes a multi-order skymap from FITS. The skymap is the first
// extension HDU, a binary table with at least UNIQ and PROBDENSITY columns.
func Read(r io.Reader) (*Map, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("skymap: open fits: %w", err)
	}
	defer f.Close()

	if len(f.HDUs()) < 2 {
		return nil, errors.New("skymap: fits file has no table extension")
	}
	tbl, ok := f.HDU(1).(*fitsio.Table)
	if !ok {
		return nil, errors.New("skymap: first extension is not a table")
	}

	m := &Map{}
	hdr := tbl.Header()
	if c := hdr.Get("OBJECT"); c != nil {
		if v, ok := c.Value.(string); ok {
			m.Object = v
		}
	}
	if c := hdr.Get("DISTMEAN"); c != nil {
		if v, ok := c.Value.(float64); ok {
			m.DistMean = v
		}
	}
	if c := hdr.Get("DISTSTD"); c != nil {
		if v, ok := c.Value.(float64); ok {
			m.DistStd = v
		}
	}

	nrows := tbl.NumRows()
	rows, err := tbl.Read(0, nrows)
	if err != nil {
		return nil, fmt.Errorf("skymap: read table: %w", err)
	}
	defer rows.Close()

	m.Pixels = make([]Pixel, 0, nrows)
	for rows.Next() {
		var p Pixel
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("skymap: scan row: %w", err)
		}
		m.Pixels = append(m.Pixels, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("skymap: iterate rows: %w", err)
	}
	if len(m.Pixels) == 0 {
		return nil, errors.New("skymap: table has no pixels")
	}
	return m, nil
}

// ReadFile decodes a multi-order skymap from a FITS file on disk.
func ReadFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Write encodes the map as a FITS file with a single binary-table extension
// holding UNIQ and PROBDENSITY columns.
func (m *Map) Write(w io.Writer) error {
	if len(m.Pixels) == 0 {
		return errors.New("skymap: refusing to write empty map")
	}

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("skymap: create fits: %w", err)
	}
	defer f.Close()

	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return err
	}
	if err := f.Write(phdu); err != nil {
		return err
	}

	tbl, err := fitsio.NewTable("GW_SKYMAP", []fitsio.Column{
		{Name: "UNIQ", Format: "1K"},
		{Name: "PROBDENSITY", Format: "1D", Unit: "sr-1"},
	}, fitsio.BINARY_TBL)
	if err != nil {
		return fmt.Errorf("skymap: new table: %w", err)
	}
	defer tbl.Close()

	cards := []fitsio.Card{
		{Name: "PIXTYPE", Value: "HEALPIX"},
		{Name: "ORDERING", Value: "NUNIQ", Comment: "Pixel ordering scheme"},
		{Name: "COORDSYS", Value: "C", Comment: "Celestial (equatorial) coordinates"},
	}
	if m.Object != "" {
		cards = append(cards, fitsio.Card{Name: "OBJECT", Value: m.Object})
	}
	if m.DistMean != 0 {
		cards = append(cards, fitsio.Card{Name: "DISTMEAN", Value: m.DistMean, Comment: "Posterior mean distance (Mpc)"})
	}
	if m.DistStd != 0 {
		cards = append(cards, fitsio.Card{Name: "DISTSTD", Value: m.DistStd, Comment: "Posterior std distance (Mpc)"})
	}
	if err := tbl.Header().Append(cards...); err != nil {
		return err
	}

	for i := range m.Pixels {
		if err := tbl.Write(&m.Pixels[i]); err != nil {
			return fmt.Errorf("skymap: write row: %w", err)
		}
	}
	return f.Write(tbl)
}

// WriteFile encodes the map to a FITS file on disk.
func (m *Map) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
