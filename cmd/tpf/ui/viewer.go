package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasoctpf/internal/logging"
	"tasoctpf/internal/tpf"
)

// fileChangedMsg signals that the file on disk was rewritten.
type fileChangedMsg struct{}

// reloadedMsg carries the outcome of re-reading the file.
type reloadedMsg struct {
	tpf *tpf.TargetPixelFile
	err error
}

// ViewerModel is the interactive TPF viewer: step through cadences,
// toggle the aperture overlay, and watch the alignment while re-fetches
// rewrite the file.
type ViewerModel struct {
	path string
	tpf  *tpf.TargetPixelFile

	cadence      int
	showAperture bool
	logScale     bool

	// changes delivers debounced file-change notifications when the
	// viewer follows the file; nil otherwise.
	changes <-chan struct{}

	progress progress.Model
	styles   Styles
	err      error
	width    int
}

// NewViewerModel builds a viewer for an already-opened TPF. A non-nil
// changes channel enables follow mode.
func NewViewerModel(path string, t *tpf.TargetPixelFile, changes <-chan struct{}) ViewerModel {
	p := progress.New(progress.WithDefaultGradient())
	p.ShowPercentage = false
	return ViewerModel{
		path:         path,
		tpf:          t,
		showAperture: true,
		logScale:     true,
		changes:      changes,
		progress:     p,
		styles:       DefaultStyles(),
		width:        80,
	}
}

// WithCadence returns a copy of the model positioned at cadence i.
// The caller is responsible for range checking.
func (m ViewerModel) WithCadence(i int) ViewerModel {
	m.cadence = i
	return m
}

// Init starts the follow subscription when enabled.
func (m ViewerModel) Init() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	return waitForChange(m.changes)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return fileChangedMsg{}
	}
}

func reload(path string) tea.Cmd {
	return func() tea.Msg {
		t, err := tpf.OpenTPF(path)
		return reloadedMsg{tpf: t, err: err}
	}
}

// Update handles viewer messages.
func (m ViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(msg.Width-4, 40)
		return m, nil

	case fileChangedMsg:
		logging.Get(logging.CategoryUI).Info("reloading %s", m.path)
		return m, tea.Batch(reload(m.path), waitForChange(m.changes))

	case reloadedMsg:
		if msg.err != nil {
			// keep showing the last good data; a half-written FITS file
			// during a re-fetch is expected in follow mode
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.tpf = msg.tpf
		if m.cadence >= len(m.tpf.Cadences) {
			m.cadence = len(m.tpf.Cadences) - 1
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			if m.cadence > 0 {
				m.cadence--
			}
		case "right", "l":
			if m.cadence < len(m.tpf.Cadences)-1 {
				m.cadence++
			}
		case "pgup":
			m.cadence = max(0, m.cadence-50)
		case "pgdown":
			m.cadence = min(len(m.tpf.Cadences)-1, m.cadence+50)
		case "home":
			m.cadence = 0
		case "end":
			m.cadence = len(m.tpf.Cadences) - 1
		case "a":
			m.showAperture = !m.showAperture
		case "g":
			m.logScale = !m.logScale
		}
	}
	return m, nil
}

// View renders the current cadence.
func (m ViewerModel) View() string {
	c := m.tpf.Cadences[m.cadence]

	title := fmt.Sprintf("%s — cadence %d/%d", m.path, m.cadence+1, len(m.tpf.Cadences))
	if m.tpf.TIC != 0 {
		title = fmt.Sprintf("TIC %d s%d — cadence %d/%d", m.tpf.TIC, m.tpf.Sector, m.cadence+1, len(m.tpf.Cadences))
	}

	stamp := RenderStamp(m.tpf.FluxAt(m.cadence), m.tpf.PipelineMask, RenderOptions{
		ShowAperture: m.showAperture,
		LogScale:     m.logScale,
	})

	status := fmt.Sprintf("t=%.4f  cadence#%d  quality=%d  aperture=%dpx",
		c.Time, c.CadenceNo, c.Quality, m.tpf.PipelineMask.Count())
	if m.err != nil {
		status = m.styles.Status.Foreground(ColorWarning).Render(fmt.Sprintf("reload failed: %v", m.err))
	} else {
		status = m.styles.Status.Render(status)
	}

	var pos float64
	if n := len(m.tpf.Cadences); n > 1 {
		pos = float64(m.cadence) / float64(n-1)
	}

	help := m.styles.Help.Render("←/→ cadence · pgup/pgdn ±50 · a aperture · g log scale · q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render(title),
		"",
		stamp,
		m.progress.ViewAs(pos),
		status,
		help,
	)
}
