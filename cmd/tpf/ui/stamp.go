package ui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/stat"

	"tasoctpf/internal/tpf"
)

// RenderOptions controls stamp rendering.
type RenderOptions struct {
	// ShowAperture hatches aperture pixels over the flux image.
	ShowAperture bool
	// LogScale applies a log stretch, the usual choice for stamps with
	// a bright star over faint background.
	LogScale bool
}

const (
	grayBase  = 232 // ANSI 256 grayscale ramp start
	graySteps = 24
)

// RenderStamp draws a pixel stamp as two-character terminal cells with
// a percentile stretch. Aperture pixels are hatched, echoing the
// overlay style users know from the usual stamp plots. Rows are drawn
// bottom-up so the image matches plots with origin at the lower left.
func RenderStamp(s tpf.Stamp, mask tpf.Mask, opts RenderOptions) string {
	lo, hi := stretchLimits(s.Data)
	styles := DefaultStyles()

	var sb strings.Builder
	for y := s.Height - 1; y >= 0; y-- {
		for x := 0; x < s.Width; x++ {
			v := s.At(y, x)
			inAperture := opts.ShowAperture && mask.Bits != nil && mask.SameShape(s.Height, s.Width) && mask.At(y, x)
			sb.WriteString(renderCell(v, lo, hi, opts.LogScale, inAperture, styles))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderCell(v, lo, hi float64, logScale, inAperture bool, styles Styles) string {
	if math.IsNaN(v) {
		if inAperture {
			return styles.Aperture.Render("//")
		}
		return styles.Muted.Render("··")
	}

	bg := lipgloss.Color(fmt.Sprintf("%d", grayBase+grayLevel(v, lo, hi, logScale)))
	if inAperture {
		return styles.Aperture.Background(bg).Render("//")
	}
	return lipgloss.NewStyle().Background(bg).Render("  ")
}

// grayLevel maps a flux value onto the 24-step ANSI grayscale ramp.
func grayLevel(v, lo, hi float64, logScale bool) int {
	if hi <= lo {
		return graySteps / 2
	}
	var frac float64
	if logScale {
		// shift so the lower limit maps to 1 before taking the log
		frac = math.Log10(math.Max(v-lo, 0)+1) / math.Log10(hi-lo+1)
	} else {
		frac = (v - lo) / (hi - lo)
	}
	level := int(frac * float64(graySteps-1))
	if level < 0 {
		level = 0
	}
	if level > graySteps-1 {
		level = graySteps - 1
	}
	return level
}

// stretchLimits picks display limits at the 2nd and 98th percentiles of
// the finite pixels, so a single hot pixel cannot wash out the stamp.
func stretchLimits(data []float64) (lo, hi float64) {
	finite := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0, 0
	}
	sort.Float64s(finite)
	lo = stat.Quantile(0.02, stat.Empirical, finite, nil)
	hi = stat.Quantile(0.98, stat.Empirical, finite, nil)
	return lo, hi
}
