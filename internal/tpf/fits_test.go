package tpf

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
)

var testWCSCards = []fitsio.Card{
	{Name: "CTYPE1", Value: "RA---TAN"},
	{Name: "CTYPE2", Value: "DEC--TAN"},
	{Name: "CRPIX1", Value: 3.0},
	{Name: "CRPIX2", Value: 3.0},
	{Name: "CRVAL1", Value: 84.2911},
	{Name: "CRVAL2", Value: -80.4692},
	{Name: "CD1_1", Value: -0.005213},
	{Name: "CD1_2", Value: 0.001426},
	{Name: "CD2_1", Value: 0.001402},
	{Name: "CD2_2", Value: 0.005311},
}

// writeTestLightCurve writes a minimal TASOC-shaped light-curve file:
// primary header with TICID/SECTOR, SUMIMAGE float image with a TAN
// WCS, and an APERTURE bitmask with bit 2 set on a plus-shaped mask.
func writeTestLightCurve(t *testing.T, path string, h, w int) {
	t.Helper()

	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	f, err := fitsio.Create(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	prim := fitsio.NewImage(8, []int{})
	defer prim.Close()
	if err := prim.Header().Append(
		fitsio.Card{Name: "TICID", Value: 142086812},
		fitsio.Card{Name: "SECTOR", Value: 6},
	); err != nil {
		t.Fatal(err)
	}
	if err := f.Write(prim); err != nil {
		t.Fatal(err)
	}

	sum := fitsio.NewImage(-64, []int{w, h})
	defer sum.Close()
	if err := sum.Header().Append(fitsio.Card{Name: "EXTNAME", Value: "SUMIMAGE"}); err != nil {
		t.Fatal(err)
	}
	if err := sum.Header().Append(testWCSCards...); err != nil {
		t.Fatal(err)
	}
	img := make([]float64, h*w)
	for i := range img {
		img[i] = float64(100 + i)
	}
	if err := sum.Write(&img); err != nil {
		t.Fatal(err)
	}
	if err := f.Write(sum); err != nil {
		t.Fatal(err)
	}

	ap := fitsio.NewImage(32, []int{w, h})
	defer ap.Close()
	if err := ap.Header().Append(fitsio.Card{Name: "EXTNAME", Value: "APERTURE"}); err != nil {
		t.Fatal(err)
	}
	bits := make([]int32, h*w)
	cy, cx := h/2, w/2
	for i := range bits {
		bits[i] = apertureCollected
		y, x := i/w, i%w
		if (y == cy && abs(x-cx) <= 1) || (x == cx && abs(y-cy) <= 1) {
			bits[i] |= aperturePipeline
		}
	}
	if err := ap.Write(&bits); err != nil {
		t.Fatal(err)
	}
	if err := f.Write(ap); err != nil {
		t.Fatal(err)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// testCutout builds an in-memory cutout with a recognizable flux ramp.
func testCutout(h, w, ncad int) *TargetPixelFile {
	cut := &TargetPixelFile{Sector: 6, Height: h, Width: w}
	for k := 0; k < ncad; k++ {
		flux := make([]float32, h*w)
		ferr := make([]float32, h*w)
		for i := range flux {
			flux[i] = float32(k*1000 + i)
			ferr[i] = 1.5
		}
		cut.Cadences = append(cut.Cadences, Cadence{
			Time:      1500.0 + float64(k)*2.0/1440,
			CadenceNo: int32(265000 + k),
			Flux:      flux,
			FluxErr:   ferr,
		})
	}
	return cut
}

func TestOpenLightCurve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasoc_lc.fits")
	writeTestLightCurve(t, path, 5, 5)

	lc, err := OpenLightCurve(path)
	if err != nil {
		t.Fatalf("OpenLightCurve: %v", err)
	}
	assert.Equal(t, int64(142086812), lc.TIC)
	assert.Equal(t, 6, lc.Sector)

	h, w := lc.Shape()
	assert.Equal(t, 5, h)
	assert.Equal(t, 5, w)
	assert.Equal(t, 100.0, lc.SumImage.At(0, 0))
	assert.Equal(t, 5, lc.PipelineMask.Count(), "plus-shaped mask")
	assert.True(t, lc.PipelineMask.At(2, 2))
	assert.False(t, lc.PipelineMask.At(0, 0))
}

func TestLightCurveCenterCoord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasoc_lc.fits")
	writeTestLightCurve(t, path, 5, 5)

	lc, err := OpenLightCurve(path)
	if err != nil {
		t.Fatalf("OpenLightCurve: %v", err)
	}
	// Central pixel (2, 2) sits at CRPIX (3, 3) 1-based, so the center
	// coordinate is CRVAL.
	ra, dec := lc.CenterCoord()
	assert.InDelta(t, 84.2911, ra, 1e-9)
	assert.InDelta(t, -80.4692, dec, 1e-9)
}

func TestAssembleAndRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lcPath := filepath.Join(dir, "tasoc_lc.fits")
	writeTestLightCurve(t, lcPath, 5, 5)
	lc, err := OpenLightCurve(lcPath)
	if err != nil {
		t.Fatalf("OpenLightCurve: %v", err)
	}

	cut := testCutout(5, 5, 3)
	cut.WCS = lc.WCS

	rec, err := Assemble(cut, lc, AssembleOptions{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	assert.Equal(t, int64(142086812), rec.TIC)
	assert.Equal(t, 6, rec.Sector)
	assert.Equal(t, lc.PipelineMask.Bits, rec.PipelineMask.Bits)

	outPath := filepath.Join(dir, "reconstructed.fits")
	if err := rec.WriteFITS(outPath); err != nil {
		t.Fatalf("WriteFITS: %v", err)
	}

	got, err := OpenTPF(outPath)
	if err != nil {
		t.Fatalf("OpenTPF: %v", err)
	}
	assert.Equal(t, int64(142086812), got.TIC)
	assert.Equal(t, 6, got.Sector)
	assert.Equal(t, 3, len(got.Cadences))
	assert.Equal(t, int32(265001), got.Cadences[1].CadenceNo)
	assert.InDelta(t, float64(1000+7), float64(got.Cadences[1].Flux[7]), 1e-6)
	assert.Equal(t, rec.PipelineMask.Bits, got.PipelineMask.Bits)
	if assert.NotNil(t, got.WCS) {
		assert.InDelta(t, 84.2911, got.WCS.CRVal1, 1e-9)
	}
}

func TestAssemble_RollShiftsMask(t *testing.T) {
	dir := t.TempDir()
	lcPath := filepath.Join(dir, "tasoc_lc.fits")
	writeTestLightCurve(t, lcPath, 5, 5)
	lc, err := OpenLightCurve(lcPath)
	if err != nil {
		t.Fatalf("OpenLightCurve: %v", err)
	}

	rec, err := Assemble(testCutout(5, 5, 1), lc, AssembleOptions{RollY: 1, RollX: -1})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	assert.Equal(t, lc.PipelineMask.Count(), rec.PipelineMask.Count())
	// Mask center moved from (2,2) to (3,1).
	assert.True(t, rec.PipelineMask.At(3, 1))
	assert.False(t, rec.PipelineMask.At(2, 2) && rec.PipelineMask.At(1, 2) && rec.PipelineMask.At(2, 3))
}

func TestAssemble_ShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	lcPath := filepath.Join(dir, "tasoc_lc.fits")
	writeTestLightCurve(t, lcPath, 5, 5)
	lc, err := OpenLightCurve(lcPath)
	if err != nil {
		t.Fatalf("OpenLightCurve: %v", err)
	}

	_, err = Assemble(testCutout(7, 7, 1), lc, AssembleOptions{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "5x5")
}

func TestMedianStamp_IgnoresNaN(t *testing.T) {
	cut := testCutout(2, 2, 3)
	cut.Cadences[0].Flux[0] = float32(math.NaN())
	m := cut.MedianStamp()
	// Pixel 0 sees {NaN, 1000, 2000} -> 1500.
	assert.InDelta(t, 1500, m.Data[0], 1e-6)
	// Pixel 1 sees {1, 1001, 2001} -> 1001.
	assert.InDelta(t, 1001, m.Data[1], 1e-6)
}

func TestOpenTPF_MissingFile(t *testing.T) {
	_, err := OpenTPF(filepath.Join(t.TempDir(), "nope.fits"))
	assert.Error(t, err)
}

func TestOpenLightCurve_ApertureShapeMismatch(t *testing.T) {
	// Hand-built file with mismatched aperture dimensions.
	path := filepath.Join(t.TempDir(), "bad.fits")
	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	f, err := fitsio.Create(out)
	if err != nil {
		t.Fatal(err)
	}

	prim := fitsio.NewImage(8, []int{})
	if err := f.Write(prim); err != nil {
		t.Fatal(err)
	}
	prim.Close()

	sum := fitsio.NewImage(-64, []int{5, 5})
	if err := sum.Header().Append(fitsio.Card{Name: "EXTNAME", Value: "SUMIMAGE"}); err != nil {
		t.Fatal(err)
	}
	if err := sum.Header().Append(testWCSCards...); err != nil {
		t.Fatal(err)
	}
	img := make([]float64, 25)
	if err := sum.Write(&img); err != nil {
		t.Fatal(err)
	}
	if err := f.Write(sum); err != nil {
		t.Fatal(err)
	}
	sum.Close()

	ap := fitsio.NewImage(32, []int{4, 4})
	if err := ap.Header().Append(fitsio.Card{Name: "EXTNAME", Value: "APERTURE"}); err != nil {
		t.Fatal(err)
	}
	bits := make([]int32, 16)
	if err := ap.Write(&bits); err != nil {
		t.Fatal(err)
	}
	if err := f.Write(ap); err != nil {
		t.Fatal(err)
	}
	ap.Close()

	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	out.Close()

	_, err = OpenLightCurve(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("%dx%d", 4, 4))
}
