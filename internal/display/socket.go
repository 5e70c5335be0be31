package display

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	. "github.com/roelfdiedericks/xvfbwatch/internal/logging"
)

const readyPoll = 100 * time.Millisecond

// SocketWatcher signals when an X display's unix socket disappears,
// which usually means the display server just died.
type SocketWatcher struct {
	watcher *fsnotify.Watcher
	socket  string
	removed chan struct{}
	done    chan struct{}
}

// WatchSocket starts watching the directory that holds socket.
// Fails if the directory does not exist yet.
func WatchSocket(socket string) (*SocketWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	dir := filepath.Dir(socket)
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	s := &SocketWatcher{
		watcher: fsWatcher,
		socket:  socket,
		removed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Removed fires (coalesced) each time the socket is removed or renamed away.
func (s *SocketWatcher) Removed() <-chan struct{} {
	return s.removed
}

// Close stops the watcher and waits for its goroutine.
func (s *SocketWatcher) Close() error {
	err := s.watcher.Close()
	<-s.done
	return err
}

func (s *SocketWatcher) run() {
	defer close(s.done)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.socket {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				L_debug("display: socket removed", "socket", s.socket)
				select {
				case s.removed <- struct{}{}:
				default:
				}
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			L_debug("display: socket watcher error", "error", err)
		}
	}
}

// WaitReady blocks until socket exists, ctx ends, or timeout passes.
// Directory events wake it early; a short poll covers the case where the
// directory itself does not exist yet.
func WaitReady(ctx context.Context, socket string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w, err := fsnotify.NewWatcher(); err == nil {
		defer w.Close()
		if err := w.Add(filepath.Dir(socket)); err == nil {
			events = w.Events
			errs = w.Errors
		}
	}

	poll := time.NewTicker(readyPoll)
	defer poll.Stop()

	for {
		if _, err := os.Stat(socket); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("display socket %s not ready: %w", socket, ctx.Err())
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
			} else {
				L_debug("display: socket wait watcher error", "error", err)
			}
		case <-poll.C:
		}
	}
}
