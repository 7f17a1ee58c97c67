// Package watch implements the exporter's config hot-reload (C6):
// a debounced watch of the directory containing the config file, so
// editors that save via rename-replace are still observed.
package watch

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jwalton/oguz-cgroups-exporter/internal/logging"
)

const debounceWindow = 2 * time.Second

// relevantOps is fsnotify's analogue of the spec's Create/Modify/Remove
// event set; fsnotify has no distinct "Modify" op, Write serves that
// role.
const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove

// ReloadFunc is invoked once per debounced burst of relevant events on
// the configured path. Implementations are responsible for reading,
// parsing, recompiling, and swapping the config cell; a returned error
// is logged as a warning by Watcher, which otherwise keeps running.
type ReloadFunc func() error

// Watcher watches the directory containing configPath and calls reload
// whenever the file itself changes, 2s after the last relevant event in
// a burst.
type Watcher struct {
	configPath string
	reload     ReloadFunc
	log        *logging.Logger

	fsw *fsnotify.Watcher
}

// New creates a Watcher for configPath. Call Run to start watching.
func New(configPath string, reload ReloadFunc, log *logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		abs = configPath
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{configPath: abs, reload: reload, log: log, fsw: fsw}, nil
}

// Run processes events until done is closed or the watcher's error
// channel closes. It blocks; call it from its own goroutine.
func (w *Watcher) Run(done <-chan struct{}) {
	defer w.fsw.Close()

	var pending *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&relevantOps == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.configPath {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounceWindow, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if err := w.reload(); err != nil {
				w.log.Warn("msg", "config reload failed, keeping previous config", "path", w.configPath, "err", err)
			} else {
				w.log.Info("msg", "config reloaded", "path", w.configPath)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("msg", "file watcher error", "err", err)

		case <-done:
			if pending != nil {
				pending.Stop()
			}
			return
		}
	}
}
