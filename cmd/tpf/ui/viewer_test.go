package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"tasoctpf/internal/tpf"
)

func testTPF(cadences int) *tpf.TargetPixelFile {
	t := &tpf.TargetPixelFile{
		TIC:          142086812,
		Sector:       6,
		Height:       2,
		Width:        2,
		PipelineMask: tpf.NewMask(2, 2),
	}
	t.PipelineMask.Set(0, 0, true)
	for i := 0; i < cadences; i++ {
		t.Cadences = append(t.Cadences, tpf.Cadence{
			Time:      1468.0 + float64(i)/48,
			CadenceNo: int32(265000 + i),
			Flux:      []float32{1, 2, 3, 4},
			FluxErr:   []float32{0.1, 0.1, 0.1, 0.1},
		})
	}
	return t
}

func key(s string) tea.KeyMsg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	}
	panic("unknown key " + s)
}

func step(t *testing.T, m ViewerModel, msg tea.Msg) ViewerModel {
	t.Helper()
	next, _ := m.Update(msg)
	vm, ok := next.(ViewerModel)
	assert.True(t, ok)
	return vm
}

func TestViewerCadenceStepping(t *testing.T) {
	m := NewViewerModel("t.fits", testTPF(5), nil)
	assert.Equal(t, 0, m.cadence)

	m = step(t, m, key("right"))
	m = step(t, m, key("right"))
	assert.Equal(t, 2, m.cadence)

	m = step(t, m, key("left"))
	assert.Equal(t, 1, m.cadence)

	m = step(t, m, key("end"))
	assert.Equal(t, 4, m.cadence)
	m = step(t, m, key("right"))
	assert.Equal(t, 4, m.cadence, "stepping past the last cadence clamps")

	m = step(t, m, key("home"))
	assert.Equal(t, 0, m.cadence)
	m = step(t, m, key("left"))
	assert.Equal(t, 0, m.cadence)
}

func TestViewerToggles(t *testing.T) {
	m := NewViewerModel("t.fits", testTPF(1), nil)
	assert.True(t, m.showAperture)
	assert.True(t, m.logScale)

	m = step(t, m, key("a"))
	assert.False(t, m.showAperture)
	m = step(t, m, key("a"))
	assert.True(t, m.showAperture)

	m = step(t, m, key("g"))
	assert.False(t, m.logScale)
}

func TestViewerQuit(t *testing.T) {
	m := NewViewerModel("t.fits", testTPF(1), nil)
	_, cmd := m.Update(key("q"))
	assert.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestViewerReloadClampsCadence(t *testing.T) {
	m := NewViewerModel("t.fits", testTPF(10), nil)
	m = m.WithCadence(9)

	m = step(t, m, reloadedMsg{tpf: testTPF(3)})
	assert.Equal(t, 2, m.cadence, "cadence clamps when the file shrinks")
	assert.NoError(t, m.err)
	assert.Len(t, m.tpf.Cadences, 3)
}

func TestViewerReloadErrorKeepsData(t *testing.T) {
	orig := testTPF(4)
	m := NewViewerModel("t.fits", orig, nil)
	m = m.WithCadence(2)

	m = step(t, m, reloadedMsg{err: assert.AnError})
	assert.Equal(t, orig, m.tpf, "a failed reload keeps the last good data")
	assert.Equal(t, 2, m.cadence)
	assert.Error(t, m.err)
}

func TestViewerView(t *testing.T) {
	m := NewViewerModel("t.fits", testTPF(3), nil)
	out := m.View()
	assert.Contains(t, out, "TIC 142086812")
	assert.Contains(t, out, "cadence 1/3")
	assert.Contains(t, out, "//", "aperture overlay on by default")
}

func TestViewerInitWithoutFollow(t *testing.T) {
	m := NewViewerModel("t.fits", testTPF(1), nil)
	assert.Nil(t, m.Init())
}
