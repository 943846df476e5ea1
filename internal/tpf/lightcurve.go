package tpf

import (
	"fmt"
	"os"

	"github.com/astrogo/fitsio"

	"tasoctpf/internal/wcs"
)

// TASOC aperture image bit flags. Bit 2 marks pixels the photometry
// pipeline actually summed; bit 1 only marks collected pixels.
const (
	apertureCollected = 1
	aperturePipeline  = 2
)

// LightCurve is the pixel-level slice of a TASOC light-curve file: the
// summed-flux image, the aperture bitmask, and the stamp WCS. The flux
// time series itself is not needed for TPF reconstruction.
type LightCurve struct {
	Path         string
	TIC          int64
	Sector       int
	SumImage     Stamp
	PipelineMask Mask
	WCS          *wcs.TAN
}

// OpenLightCurve reads the summed image (SUMIMAGE), aperture bitmask
// (APERTURE) and WCS from a TASOC light-curve FITS file.
func OpenLightCurve(path string) (*LightCurve, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tpf: open light curve: %w", err)
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("tpf: read FITS %s: %w", path, err)
	}
	defer f.Close()

	lc := &LightCurve{Path: path}
	if prim := f.HDU(0); prim != nil {
		lc.TIC, _ = cardInt(prim.Header(), "TICID")
		sector, _ := cardInt(prim.Header(), "SECTOR")
		lc.Sector = int(sector)
	}

	sumHDU, err := imageHDU(f, "SUMIMAGE", 2)
	if err != nil {
		return nil, err
	}
	lc.SumImage, err = readFloatImage(sumHDU)
	if err != nil {
		return nil, fmt.Errorf("tpf: %s SUMIMAGE: %w", path, err)
	}

	apHDU, err := imageHDU(f, "APERTURE", 3)
	if err != nil {
		return nil, err
	}
	bits, h, w, err := readIntImage(apHDU)
	if err != nil {
		return nil, fmt.Errorf("tpf: %s APERTURE: %w", path, err)
	}
	if h != lc.SumImage.Height || w != lc.SumImage.Width {
		return nil, shapeErr("APERTURE", h, w, lc.SumImage.Height, lc.SumImage.Width)
	}
	lc.PipelineMask = NewMask(h, w)
	for i, v := range bits {
		lc.PipelineMask.Bits[i] = v&aperturePipeline != 0
	}

	lc.WCS, err = wcs.FromHeader(sumHDU.Header())
	if err != nil {
		return nil, fmt.Errorf("tpf: %s: %w", path, err)
	}
	return lc, nil
}

// Shape returns (height, width) of the stamp.
func (lc *LightCurve) Shape() (int, int) {
	return lc.SumImage.Height, lc.SumImage.Width
}

// CenterCoord returns the sky coordinate of the central stamp pixel
// (w/2, h/2 in 0-based pixels), the anchor point for the cutout request.
func (lc *LightCurve) CenterCoord() (ra, dec float64) {
	h, w := lc.Shape()
	return lc.WCS.PixelToWorld(float64(w/2), float64(h/2))
}

// imageHDU finds an image HDU by EXTNAME, falling back to a fixed index
// for files written before the extensions were named.
func imageHDU(f *fitsio.File, name string, fallback int) (fitsio.Image, error) {
	for _, hdu := range f.HDUs() {
		if hdu.Name() != name {
			continue
		}
		img, ok := hdu.(fitsio.Image)
		if !ok {
			return nil, fmt.Errorf("tpf: HDU %s is not an image", name)
		}
		return img, nil
	}
	if fallback >= 0 && fallback < len(f.HDUs()) {
		if img, ok := f.HDU(fallback).(fitsio.Image); ok {
			return img, nil
		}
	}
	return nil, fmt.Errorf("tpf: no %s image HDU", name)
}

// readFloatImage reads a 2D image HDU into a Stamp regardless of the
// on-disk BITPIX.
func readFloatImage(img fitsio.Image) (Stamp, error) {
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) != 2 {
		return Stamp{}, fmt.Errorf("expected 2D image, got %d axes", len(axes))
	}
	w, h := axes[0], axes[1]

	out := Stamp{Data: make([]float64, h*w), Height: h, Width: w}
	switch hdr.Bitpix() {
	case -64:
		var data []float64
		if err := img.Read(&data); err != nil {
			return Stamp{}, err
		}
		copy(out.Data, data)
	case -32:
		var data []float32
		if err := img.Read(&data); err != nil {
			return Stamp{}, err
		}
		for i, v := range data {
			out.Data[i] = float64(v)
		}
	default:
		return Stamp{}, fmt.Errorf("unsupported BITPIX %d for float image", hdr.Bitpix())
	}
	return out, nil
}

// readIntImage reads a 2D integer image HDU, returning the raw values
// and shape.
func readIntImage(img fitsio.Image) (vals []int32, h, w int, err error) {
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) != 2 {
		return nil, 0, 0, fmt.Errorf("expected 2D image, got %d axes", len(axes))
	}
	w, h = axes[0], axes[1]

	switch hdr.Bitpix() {
	case 8:
		var data []int8
		if err := img.Read(&data); err != nil {
			return nil, 0, 0, err
		}
		vals = make([]int32, len(data))
		for i, v := range data {
			vals[i] = int32(v)
		}
	case 16:
		var data []int16
		if err := img.Read(&data); err != nil {
			return nil, 0, 0, err
		}
		vals = make([]int32, len(data))
		for i, v := range data {
			vals[i] = int32(v)
		}
	case 32:
		if err := img.Read(&vals); err != nil {
			return nil, 0, 0, err
		}
	default:
		return nil, 0, 0, fmt.Errorf("unsupported BITPIX %d for mask image", hdr.Bitpix())
	}
	return vals, h, w, nil
}

func cardInt(hdr *fitsio.Header, name string) (int64, error) {
	card := hdr.Get(name)
	if card == nil {
		return 0, fmt.Errorf("tpf: header card %s missing", name)
	}
	switch v := card.Value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("tpf: header card %s has non-integer value %v (%T)", name, card.Value, card.Value)
	}
}
