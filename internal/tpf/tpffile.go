package tpf

import (
	"fmt"
	"math"
	"os"

	"github.com/astrogo/fitsio"

	"tasoctpf/internal/wcs"
)

// Cadence is one row of the per-cadence pixel table.
type Cadence struct {
	Time      float64   `fits:"TIME"`
	CadenceNo int32     `fits:"CADENCENO"`
	Flux      []float32 `fits:"FLUX"`
	FluxErr   []float32 `fits:"FLUX_ERR"`
	Quality   int32     `fits:"QUALITY"`
}

// TargetPixelFile is a sequence of per-cadence pixel stamps plus an
// aperture mask. TESSCut cutouts and reconstructed files both parse
// into this shape; cutouts simply arrive with an empty pipeline mask.
type TargetPixelFile struct {
	Path   string
	TIC    int64
	Sector int
	Height int
	Width  int

	Cadences []Cadence

	// Aperture is the raw aperture bitmask image; PipelineMask is its
	// bit-2 view.
	Aperture     []int32
	PipelineMask Mask

	WCS *wcs.TAN
}

// Shape returns (height, width) of the stamp.
func (t *TargetPixelFile) Shape() (int, int) {
	return t.Height, t.Width
}

// FluxAt returns cadence k's stamp as float64s, NaN preserved.
func (t *TargetPixelFile) FluxAt(k int) Stamp {
	s := Stamp{Data: make([]float64, t.Height*t.Width), Height: t.Height, Width: t.Width}
	for i, v := range t.Cadences[k].Flux {
		s.Data[i] = float64(v)
	}
	return s
}

// MedianStamp returns the per-pixel median over all cadences, ignoring
// NaN gaps. Used as the display image when no single cadence is chosen.
func (t *TargetPixelFile) MedianStamp() Stamp {
	n := t.Height * t.Width
	out := Stamp{Data: make([]float64, n), Height: t.Height, Width: t.Width}
	buf := make([]float64, 0, len(t.Cadences))
	for i := 0; i < n; i++ {
		buf = buf[:0]
		for _, c := range t.Cadences {
			v := float64(c.Flux[i])
			if !math.IsNaN(v) {
				buf = append(buf, v)
			}
		}
		out.Data[i] = median(buf)
	}
	return out
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	// insertion sort; stamps are small
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j] < v[j-1]; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
	m := len(v) / 2
	if len(v)%2 == 1 {
		return v[m]
	}
	return (v[m-1] + v[m]) / 2
}

// OpenTPF reads a target pixel file: either a TESSCut cutout or a file
// written by WriteFITS. The PIXELS (or TESSCut's PIXELS-compatible)
// table supplies the cadences, the APERTURE image the mask and shape.
func OpenTPF(path string) (*TargetPixelFile, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tpf: open: %w", err)
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("tpf: read FITS %s: %w", path, err)
	}
	defer f.Close()

	out := &TargetPixelFile{Path: path}
	if prim := f.HDU(0); prim != nil {
		out.TIC, _ = cardInt(prim.Header(), "TICID")
		sector, _ := cardInt(prim.Header(), "SECTOR")
		out.Sector = int(sector)
	}

	apHDU, err := imageHDU(f, "APERTURE", 2)
	if err != nil {
		return nil, fmt.Errorf("tpf: %s: %w", path, err)
	}
	out.Aperture, out.Height, out.Width, err = readIntImage(apHDU)
	if err != nil {
		return nil, fmt.Errorf("tpf: %s APERTURE: %w", path, err)
	}
	out.PipelineMask = NewMask(out.Height, out.Width)
	for i, v := range out.Aperture {
		out.PipelineMask.Bits[i] = v&aperturePipeline != 0
	}

	// TESSCut leaves its WCS on the aperture HDU as well as the table.
	if w, err := wcs.FromHeader(apHDU.Header()); err == nil {
		out.WCS = w
	}

	tbl, err := pixelTable(f)
	if err != nil {
		return nil, fmt.Errorf("tpf: %s: %w", path, err)
	}
	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, fmt.Errorf("tpf: %s: read pixel table: %w", path, err)
	}
	defer rows.Close()

	npix := out.Height * out.Width
	for rows.Next() {
		var c Cadence
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("tpf: %s: scan cadence: %w", path, err)
		}
		if len(c.Flux) != npix {
			return nil, fmt.Errorf("tpf: %s: cadence %d has %d pixels, aperture says %d",
				path, c.CadenceNo, len(c.Flux), npix)
		}
		out.Cadences = append(out.Cadences, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tpf: %s: pixel table: %w", path, err)
	}
	if len(out.Cadences) == 0 {
		return nil, fmt.Errorf("tpf: %s: pixel table is empty", path)
	}
	return out, nil
}

func pixelTable(f *fitsio.File) (*fitsio.Table, error) {
	for _, hdu := range f.HDUs() {
		tbl, ok := hdu.(*fitsio.Table)
		if !ok {
			continue
		}
		if tbl.Name() == "PIXELS" || hasColumn(tbl, "FLUX") {
			return tbl, nil
		}
	}
	return nil, fmt.Errorf("no pixel table HDU")
}

func hasColumn(tbl *fitsio.Table, name string) bool {
	for i := 0; i < len(tbl.Cols()); i++ {
		if tbl.Col(i).Name == name {
			return true
		}
	}
	return false
}

// WriteFITS writes the reconstructed TPF: a minimal primary header with
// provenance keywords, the PIXELS cadence table, and the APERTURE image
// carrying the stamp WCS.
func (t *TargetPixelFile) WriteFITS(path string) (err error) {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tpf: create %s: %w", path, err)
	}
	defer w.Close()

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("tpf: create FITS: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("tpf: close FITS: %w", cerr)
		}
	}()

	prim := fitsio.NewImage(8, []int{})
	defer prim.Close()
	cards := []fitsio.Card{
		{Name: "TELESCOP", Value: "TESS", Comment: "telescope"},
		{Name: "ORIGIN", Value: "tasoctpf", Comment: "reconstructed from TASOC pixel data"},
		{Name: "TICID", Value: int(t.TIC), Comment: "TESS Input Catalog ID"},
		{Name: "SECTOR", Value: t.Sector, Comment: "observing sector"},
	}
	if err := prim.Header().Append(cards...); err != nil {
		return fmt.Errorf("tpf: primary header: %w", err)
	}
	if err := f.Write(prim); err != nil {
		return fmt.Errorf("tpf: write primary HDU: %w", err)
	}

	npix := t.Height * t.Width
	cols := []fitsio.Column{
		{Name: "TIME", Format: "D", Unit: "BJD - 2457000, days"},
		{Name: "CADENCENO", Format: "J"},
		{Name: "FLUX", Format: fmt.Sprintf("%dE", npix), Unit: "e-/s"},
		{Name: "FLUX_ERR", Format: fmt.Sprintf("%dE", npix), Unit: "e-/s"},
		{Name: "QUALITY", Format: "J"},
	}
	tbl, err := fitsio.NewTable("PIXELS", cols, fitsio.BINARY_TBL)
	if err != nil {
		return fmt.Errorf("tpf: create PIXELS table: %w", err)
	}
	defer tbl.Close()
	dim := fmt.Sprintf("(%d,%d)", t.Width, t.Height)
	if err := tbl.Header().Append(
		fitsio.Card{Name: "TDIM3", Value: dim, Comment: "FLUX stamp shape"},
		fitsio.Card{Name: "TDIM4", Value: dim, Comment: "FLUX_ERR stamp shape"},
	); err != nil {
		return fmt.Errorf("tpf: PIXELS header: %w", err)
	}
	for i := range t.Cadences {
		if err := tbl.Write(&t.Cadences[i]); err != nil {
			return fmt.Errorf("tpf: write cadence %d: %w", t.Cadences[i].CadenceNo, err)
		}
	}
	if err := f.Write(tbl); err != nil {
		return fmt.Errorf("tpf: write PIXELS HDU: %w", err)
	}

	ap := fitsio.NewImage(32, []int{t.Width, t.Height})
	defer ap.Close()
	apCards := []fitsio.Card{
		{Name: "EXTNAME", Value: "APERTURE", Comment: "aperture mask"},
	}
	if t.WCS != nil {
		apCards = append(apCards,
			fitsio.Card{Name: "CTYPE1", Value: "RA---TAN"},
			fitsio.Card{Name: "CTYPE2", Value: "DEC--TAN"},
			fitsio.Card{Name: "CRPIX1", Value: t.WCS.CRPix1},
			fitsio.Card{Name: "CRPIX2", Value: t.WCS.CRPix2},
			fitsio.Card{Name: "CRVAL1", Value: t.WCS.CRVal1},
			fitsio.Card{Name: "CRVAL2", Value: t.WCS.CRVal2},
			fitsio.Card{Name: "CD1_1", Value: t.WCS.CD[0][0]},
			fitsio.Card{Name: "CD1_2", Value: t.WCS.CD[0][1]},
			fitsio.Card{Name: "CD2_1", Value: t.WCS.CD[1][0]},
			fitsio.Card{Name: "CD2_2", Value: t.WCS.CD[1][1]},
		)
	}
	if err := ap.Header().Append(apCards...); err != nil {
		return fmt.Errorf("tpf: APERTURE header: %w", err)
	}
	if err := ap.Write(&t.Aperture); err != nil {
		return fmt.Errorf("tpf: write APERTURE data: %w", err)
	}
	if err := f.Write(ap); err != nil {
		return fmt.Errorf("tpf: write APERTURE HDU: %w", err)
	}
	return nil
}
