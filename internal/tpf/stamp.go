// Package tpf holds the pixel-stamp domain model: reading TASOC light
// curves, reading TESSCut cutouts, and assembling reconstructed target
// pixel files from the two.
package tpf

import "fmt"

// Stamp is a single h x w pixel image stored row-major (y outer).
type Stamp struct {
	Data   []float64
	Height int
	Width  int
}

// At returns the pixel value at 0-based (y, x).
func (s Stamp) At(y, x int) float64 {
	return s.Data[y*s.Width+x]
}

// Mask is a boolean pixel mask with the same layout as Stamp.
type Mask struct {
	Bits   []bool
	Height int
	Width  int
}

// NewMask returns an all-false mask of the given shape.
func NewMask(height, width int) Mask {
	return Mask{Bits: make([]bool, height*width), Height: height, Width: width}
}

// At returns the mask value at 0-based (y, x).
func (m Mask) At(y, x int) bool {
	return m.Bits[y*m.Width+x]
}

// Set sets the mask value at 0-based (y, x).
func (m Mask) Set(y, x int, v bool) {
	m.Bits[y*m.Width+x] = v
}

// Count returns the number of selected pixels.
func (m Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Roll returns a copy of the mask shifted by (dy, dx) with wrap-around.
// A pixel at (y, x) moves to ((y+dy) mod h, (x+dx) mod w), matching the
// array-roll operation users apply to nudge a misaligned aperture onto
// the cutout stamp.
func (m Mask) Roll(dy, dx int) Mask {
	out := NewMask(m.Height, m.Width)
	for y := 0; y < m.Height; y++ {
		ny := mod(y+dy, m.Height)
		for x := 0; x < m.Width; x++ {
			nx := mod(x+dx, m.Width)
			out.Bits[ny*m.Width+nx] = m.Bits[y*m.Width+x]
		}
	}
	return out
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

// SameShape reports whether the mask and the given dimensions agree.
func (m Mask) SameShape(height, width int) bool {
	return m.Height == height && m.Width == width
}

func shapeErr(what string, h, w, wantH, wantW int) error {
	return fmt.Errorf("tpf: %s is %dx%d, want %dx%d", what, h, w, wantH, wantW)
}
