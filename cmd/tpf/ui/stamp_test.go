package ui

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"tasoctpf/internal/tpf"
)

func testStamp() tpf.Stamp {
	return tpf.Stamp{
		Data: []float64{
			10, 20, 30,
			40, 500, 60,
			70, 80, 90,
		},
		Height: 3,
		Width:  3,
	}
}

func TestRenderStampShape(t *testing.T) {
	mask := tpf.NewMask(3, 3)
	out := RenderStamp(testStamp(), mask, RenderOptions{})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 3, "one terminal line per stamp row")
}

func TestRenderStampApertureHatch(t *testing.T) {
	mask := tpf.NewMask(3, 3)
	mask.Set(1, 1, true)

	out := RenderStamp(testStamp(), mask, RenderOptions{ShowAperture: true})
	assert.Contains(t, out, "//", "aperture pixels are hatched")

	off := RenderStamp(testStamp(), mask, RenderOptions{ShowAperture: false})
	assert.NotContains(t, off, "//")
}

func TestRenderStampNaN(t *testing.T) {
	s := testStamp()
	s.Data[4] = math.NaN()

	out := RenderStamp(s, tpf.NewMask(3, 3), RenderOptions{})
	assert.Contains(t, out, "··", "NaN pixels render as placeholders")
}

func TestRenderStampMismatchedMask(t *testing.T) {
	// a mask with the wrong shape must not panic; the overlay is
	// silently skipped
	mask := tpf.NewMask(2, 2)
	out := RenderStamp(testStamp(), mask, RenderOptions{ShowAperture: true})
	assert.NotContains(t, out, "//")
}

func TestGrayLevel(t *testing.T) {
	assert.Equal(t, 0, grayLevel(0, 0, 100, false))
	assert.Equal(t, graySteps-1, grayLevel(100, 0, 100, false))
	assert.Equal(t, graySteps/2, grayLevel(5, 10, 10, false), "degenerate limits pick mid gray")

	// values beyond the stretch limits clamp instead of wrapping
	assert.Equal(t, 0, grayLevel(-50, 0, 100, false))
	assert.Equal(t, graySteps-1, grayLevel(1e6, 0, 100, true))
}

func TestGrayLevelLogBrightensFaint(t *testing.T) {
	lin := grayLevel(10, 0, 1000, false)
	log := grayLevel(10, 0, 1000, true)
	assert.Greater(t, log, lin, "log stretch lifts faint pixels")
}

func TestStretchLimits(t *testing.T) {
	data := make([]float64, 100)
	for i := range data {
		data[i] = float64(i)
	}
	lo, hi := stretchLimits(data)
	assert.InDelta(t, 2.0, lo, 1.0)
	assert.InDelta(t, 97.0, hi, 1.0)
}

func TestStretchLimitsIgnoresNonFinite(t *testing.T) {
	data := []float64{math.NaN(), 1, 2, 3, math.Inf(1)}
	lo, hi := stretchLimits(data)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 3.0, hi)

	lo, hi = stretchLimits([]float64{math.NaN()})
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 0.0, hi)
}

func TestSimpleTableView(t *testing.T) {
	table := NewSimpleTable("Sectors", []string{"Sector", "ObsID"})
	table.AddRow("6", "17000001234")
	table.AddRow("33", "17000005678")

	out := table.View(DefaultStyles())
	assert.Contains(t, out, "Sectors")
	assert.Contains(t, out, "Sector")
	assert.Contains(t, out, "17000005678")
}

func TestSimpleTableEmpty(t *testing.T) {
	table := NewSimpleTable("Nothing", []string{"A"})
	assert.Equal(t, "", table.View(DefaultStyles()))
}
