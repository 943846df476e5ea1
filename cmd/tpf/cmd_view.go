package main

import (
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"tasoctpf/cmd/tpf/ui"
	"tasoctpf/internal/logging"
	"tasoctpf/internal/tpf"
)

var (
	viewCadence int
	viewFollow  bool
)

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "Interactively view a target pixel file",
	Long: `View steps through the cadences of a reconstructed target pixel
file in the terminal, with the pipeline aperture overlaid on the stamp.

With --follow the viewer reloads the file whenever it changes on disk,
which is handy while experimenting with different --roll offsets:

  tpf fetch --tic 142086812 --sector 6 --roll 1,0 -o t.fits && tpf view --follow t.fits`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	viewCmd.Flags().IntVar(&viewCadence, "cadence", 0, "cadence index to start at")
	viewCmd.Flags().BoolVar(&viewFollow, "follow", false, "reload when the file changes on disk")
}

func runView(cmd *cobra.Command, args []string) error {
	path := args[0]

	t, err := tpf.OpenTPF(path)
	if err != nil {
		return err
	}

	var changes chan struct{}
	if viewFollow {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("starting file watcher: %w", err)
		}
		defer watcher.Close()
		// watch the directory: editors and our own WriteFITS replace the
		// file via rename, which drops a watch on the file itself
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
		}
		changes = make(chan struct{}, 1)
		go forwardChanges(watcher, filepath.Base(path), changes, 200*time.Millisecond)
	}

	model := ui.NewViewerModel(path, t, changes)
	if viewCadence > 0 {
		if viewCadence >= len(t.Cadences) {
			return fmt.Errorf("cadence %d out of range (file has %d)", viewCadence, len(t.Cadences))
		}
		model = model.WithCadence(viewCadence)
	}

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// forwardChanges debounces watcher events for name into out. Writers
// produce bursts of Create/Write events per save; the viewer only needs
// one reload per burst. Only this goroutine sends on out, so closing
// the watcher never races a send against close(out).
func forwardChanges(w *fsnotify.Watcher, name string, out chan<- struct{}, debounce time.Duration) {
	defer close(out)
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case out <- struct{}{}:
			default:
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryUI).Warn("watcher error: %v", err)
		}
	}
}
