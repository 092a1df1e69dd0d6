package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-stages a directory into a controller whenever its contents
// change, debouncing bursts of filesystem events.
type Watcher struct {
	dir        string
	controller *Controller
	debounce   time.Duration
	onRestage  func(int)
	verbose    bool
}

// NewWatcher builds a watcher for dir feeding ctrl. onRestage, when non-nil,
// receives the staged file count after each successful re-stage.
func NewWatcher(dir string, ctrl *Controller, onRestage func(int)) *Watcher {
	return &Watcher{
		dir:        dir,
		controller: ctrl,
		debounce:   500 * time.Millisecond,
		onRestage:  onRestage,
	}
}

// SetVerbose enables event logging.
func (w *Watcher) SetVerbose(v bool) { w.verbose = v }

// Run watches until ctx is cancelled. Filesystem errors on individual
// events are logged and skipped; only watcher setup errors are returned.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logf("fs event: %s", event)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			w.restage()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logf("watch error: %v", err)
		}
	}
}

func (w *Watcher) restage() {
	files, err := LoadFiles([]string{w.dir})
	if err != nil {
		w.logf("re-stage failed: %v", err)
		return
	}
	status := w.controller.Stage(files)
	if !status.OK() {
		w.logf("re-stage rejected: %s", status.Message)
		return
	}
	if w.onRestage != nil {
		w.onRestage(len(files))
	}
}

func (w *Watcher) logf(format string, args ...interface{}) {
	if w.verbose {
		log.Printf("[watch] "+format, args...)
	}
}
