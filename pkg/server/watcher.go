package server

import (
	"context"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/chatooli/chatooli/pkg/engine"
	"github.com/chatooli/chatooli/pkg/logger"
	"github.com/chatooli/chatooli/pkg/workspace"
)

// Watcher follows workspace file changes and fans them out to SSE
// subscribers so the preview pane reloads as the agent writes files.
type Watcher struct {
	state   *workspace.State
	watcher *fsnotify.Watcher

	mu          sync.Mutex
	subscribers map[chan engine.Event]struct{}
	closed      bool
}

// NewWatcher starts watching the workspace root and every directory
// under it. Directories created later are added as they appear.
func NewWatcher(ctx context.Context, state *workspace.State) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}

	w := &Watcher{
		state:       state,
		watcher:     fsw,
		subscribers: make(map[chan engine.Event]struct{}),
	}

	err = filepath.WalkDir(state.Root(), func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		return fsw.Add(path)
	})
	if err != nil {
		fsw.Close()
		return nil, errors.Wrap(err, "watching workspace")
	}

	go w.run(ctx)
	return w, nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				// New directories need their own watch.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.watcher.Add(event.Name)
				}
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
				w.broadcast(engine.Event{
					Type:  engine.EventFilesChanged,
					Files: []string{w.state.Rel(event.Name)},
				})
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.G(ctx).WithError(err).Warn("file watcher error")
		}
	}
}

func (w *Watcher) broadcast(e engine.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for ch := range w.subscribers {
		select {
		case ch <- e:
		default: // drop rather than stall the watch loop
		}
	}
}

// Subscribe registers an event channel; the returned func removes it.
func (w *Watcher) Subscribe() (<-chan engine.Event, func()) {
	ch := make(chan engine.Event, 16)

	w.mu.Lock()
	w.subscribers[ch] = struct{}{}
	w.mu.Unlock()

	return ch, func() {
		w.mu.Lock()
		delete(w.subscribers, ch)
		w.mu.Unlock()
	}
}

func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	w.watcher.Close()
}

// handleEvents streams workspace change notifications over SSE with a
// periodic heartbeat so proxies keep the connection open.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if s.watcher == nil {
		sse.send(engine.EventError, map[string]string{"error": "file watching unavailable"})
		return
	}

	events, cancel := s.watcher.Subscribe()
	defer cancel()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			sse.send(e.Type, e)
		case <-heartbeat.C:
			sse.send("heartbeat", map[string]string{"status": "alive"})
		}
	}
}
