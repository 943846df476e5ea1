// Package wcs implements the gnomonic (TAN) world coordinate system used
// by TESS pixel stamps. It covers only what the reconstruction pipeline
// needs: mapping stamp pixel coordinates to sky coordinates and back.
package wcs

import (
	"fmt"
	"math"

	"github.com/astrogo/fitsio"
)

// TAN is a gnomonic projection parsed from a FITS image header.
// Pixel coordinates on the public API are 0-based (the convention of the
// upstream tooling this replaces); CRPIX stays 1-based as stored.
type TAN struct {
	CRPix1, CRPix2 float64
	CRVal1, CRVal2 float64 // deg
	CD             [2][2]float64
}

// FromHeader parses a TAN WCS from a FITS image header.
// The linear transform is taken from the CD matrix when present, then
// from PC*CDELT, then from a bare CDELT diagonal.
func FromHeader(hdr *fitsio.Header) (*TAN, error) {
	ctype1, _ := cardString(hdr, "CTYPE1")
	ctype2, _ := cardString(hdr, "CTYPE2")
	if ctype1 != "RA---TAN" || ctype2 != "DEC--TAN" {
		return nil, fmt.Errorf("wcs: unsupported projection CTYPE1=%q CTYPE2=%q (want TAN)", ctype1, ctype2)
	}

	w := &TAN{}
	var err error
	if w.CRPix1, err = cardFloat(hdr, "CRPIX1"); err != nil {
		return nil, err
	}
	if w.CRPix2, err = cardFloat(hdr, "CRPIX2"); err != nil {
		return nil, err
	}
	if w.CRVal1, err = cardFloat(hdr, "CRVAL1"); err != nil {
		return nil, err
	}
	if w.CRVal2, err = cardFloat(hdr, "CRVAL2"); err != nil {
		return nil, err
	}

	if cd11, err := cardFloat(hdr, "CD1_1"); err == nil {
		w.CD[0][0] = cd11
		w.CD[0][1], _ = cardFloat(hdr, "CD1_2")
		w.CD[1][0], _ = cardFloat(hdr, "CD2_1")
		if w.CD[1][1], err = cardFloat(hdr, "CD2_2"); err != nil {
			return nil, fmt.Errorf("wcs: CD1_1 present but CD2_2 missing")
		}
		return w, nil
	}

	cdelt1, err1 := cardFloat(hdr, "CDELT1")
	cdelt2, err2 := cardFloat(hdr, "CDELT2")
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("wcs: header has neither CD matrix nor CDELT scales")
	}
	if pc11, err := cardFloat(hdr, "PC1_1"); err == nil {
		pc12, _ := cardFloat(hdr, "PC1_2")
		pc21, _ := cardFloat(hdr, "PC2_1")
		pc22, err := cardFloat(hdr, "PC2_2")
		if err != nil {
			return nil, fmt.Errorf("wcs: PC1_1 present but PC2_2 missing")
		}
		w.CD[0][0] = pc11 * cdelt1
		w.CD[0][1] = pc12 * cdelt1
		w.CD[1][0] = pc21 * cdelt2
		w.CD[1][1] = pc22 * cdelt2
		return w, nil
	}
	w.CD[0][0] = cdelt1
	w.CD[1][1] = cdelt2
	return w, nil
}

// PixelToWorld converts 0-based pixel coordinates to (ra, dec) in degrees.
// RA is wrapped to [0, 360).
func (w *TAN) PixelToWorld(x, y float64) (ra, dec float64) {
	dx := x - (w.CRPix1 - 1)
	dy := y - (w.CRPix2 - 1)

	// standard coordinates, radians
	xi := (w.CD[0][0]*dx + w.CD[0][1]*dy) * math.Pi / 180
	eta := (w.CD[1][0]*dx + w.CD[1][1]*dy) * math.Pi / 180

	ra0 := w.CRVal1 * math.Pi / 180
	dec0 := w.CRVal2 * math.Pi / 180

	den := math.Cos(dec0) - eta*math.Sin(dec0)
	gamma := math.Atan2(xi, den)
	ra = ra0 + gamma
	dec = math.Atan2((math.Sin(dec0)+eta*math.Cos(dec0))*math.Cos(gamma), den)

	ra = math.Mod(ra*180/math.Pi+360, 360)
	dec = dec * 180 / math.Pi
	return ra, dec
}

// WorldToPixel converts (ra, dec) in degrees to 0-based pixel coordinates.
func (w *TAN) WorldToPixel(ra, dec float64) (x, y float64, err error) {
	raR := ra * math.Pi / 180
	decR := dec * math.Pi / 180
	ra0 := w.CRVal1 * math.Pi / 180
	dec0 := w.CRVal2 * math.Pi / 180

	dra := raR - ra0
	den := math.Sin(decR)*math.Sin(dec0) + math.Cos(decR)*math.Cos(dec0)*math.Cos(dra)
	if den <= 0 {
		return 0, 0, fmt.Errorf("wcs: (%.4f, %.4f) is on the far hemisphere of the projection", ra, dec)
	}
	xi := math.Cos(decR) * math.Sin(dra) / den * 180 / math.Pi
	eta := (math.Sin(decR)*math.Cos(dec0) - math.Cos(decR)*math.Sin(dec0)*math.Cos(dra)) / den * 180 / math.Pi

	det := w.CD[0][0]*w.CD[1][1] - w.CD[0][1]*w.CD[1][0]
	if det == 0 {
		return 0, 0, fmt.Errorf("wcs: singular CD matrix")
	}
	dx := (w.CD[1][1]*xi - w.CD[0][1]*eta) / det
	dy := (-w.CD[1][0]*xi + w.CD[0][0]*eta) / det
	return dx + w.CRPix1 - 1, dy + w.CRPix2 - 1, nil
}

func cardString(hdr *fitsio.Header, name string) (string, error) {
	card := hdr.Get(name)
	if card == nil {
		return "", fmt.Errorf("wcs: header card %s missing", name)
	}
	s, ok := card.Value.(string)
	if !ok {
		return "", fmt.Errorf("wcs: header card %s is not a string (%T)", name, card.Value)
	}
	return s, nil
}

func cardFloat(hdr *fitsio.Header, name string) (float64, error) {
	card := hdr.Get(name)
	if card == nil {
		return 0, fmt.Errorf("wcs: header card %s missing", name)
	}
	switch v := card.Value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("wcs: header card %s has non-numeric value %v (%T)", name, card.Value, card.Value)
	}
}
