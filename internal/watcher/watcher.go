// Package watcher implements watch mode: it observes the export root for
// new or changed sidecar files and triggers a reconciliation pass once the
// filesystem settles.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Service watches a validated export root, including subdirectories added
// while watching, and invokes runFn after a quiet period. When fsnotify
// cannot run on the host it falls back to polling the sidecar set.
type Service struct {
	runFn        func(ctx context.Context) error
	logger       *slog.Logger
	suffix       string
	debounce     time.Duration
	pollInterval time.Duration

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watching map[string]bool

	// Poll fallback state: last seen sidecar paths with their mtimes.
	pollSnapshot map[string]time.Time
}

// NewService creates a watch-mode service. runFn is invoked after each
// debounced burst of filesystem activity.
func NewService(runFn func(ctx context.Context) error, logger *slog.Logger, suffix string, debounce, pollInterval time.Duration) *Service {
	return &Service{
		runFn:        runFn,
		logger:       logger.With("component", "watcher"),
		suffix:       suffix,
		debounce:     debounce,
		pollInterval: pollInterval,
		watching:     make(map[string]bool),
	}
}

// Start blocks until ctx is canceled, triggering runFn whenever sidecar
// files appear or change under root and the debounce interval elapses.
func (s *Service) Start(ctx context.Context, root string) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, running poll-only", "error", err)
	} else {
		defer w.Close() //nolint:errcheck
		s.mu.Lock()
		s.watcher = w
		s.mu.Unlock()
		s.watchTree(root)
	}

	s.pollSnapshot = s.sidecarSnapshot(root)
	s.logger.Info("watch mode starting", "root", root,
		"debounce", s.debounce, "poll_interval", s.pollInterval)

	pollTicker := time.NewTicker(s.pollInterval)
	defer pollTicker.Stop()

	// Debounce timer coalesces event bursts into one run. Starts stopped.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	runPending := false

	// Nil channels never receive, covering the poll-only case.
	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	if w != nil {
		eventCh = w.Events
		errCh = w.Errors
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("watch mode stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if s.handleFSEvent(ev) {
				resetTimer(debounceTimer, s.debounce)
				runPending = true
			}

		case err, ok := <-errCh:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-debounceTimer.C:
			if runPending {
				runPending = false
				s.logger.Info("filesystem settled, starting reconciliation")
				if err := s.runFn(ctx); err != nil {
					s.logger.Error("watch-triggered run failed", "error", err)
				}
				// Runs change media mtimes; refresh the poll baseline so the
				// next tick does not re-trigger on our own writes.
				s.pollSnapshot = s.sidecarSnapshot(root)
			}

		case <-pollTicker.C:
			if s.pollChanged(root) && !runPending {
				resetTimer(debounceTimer, s.debounce)
				runPending = true
			}
		}
	}
}

// handleFSEvent reports whether the event warrants a reconciliation run.
// New directories are added to the watch set so sidecars created inside
// them are seen.
func (s *Service) handleFSEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			s.watchTree(ev.Name)
			// A new directory may arrive with sidecars already inside.
			return true
		}
	}

	if strings.HasSuffix(ev.Name, s.suffix) {
		s.logger.Debug("sidecar activity", "path", ev.Name, "op", ev.Op.String())
		return true
	}
	return false
}

// watchTree adds path and every subdirectory beneath it to the watch set.
// Unreadable subtrees are logged and skipped, matching scan behavior.
func (s *Service) watchTree(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return
	}

	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("cannot watch subtree", "path", p, "error", err)
			return filepath.SkipDir
		}
		if !d.IsDir() || s.watching[p] {
			return nil
		}
		if err := s.watcher.Add(p); err != nil {
			s.logger.Warn("failed to watch directory", "path", p, "error", err)
			return nil
		}
		s.watching[p] = true
		return nil
	})
	if err != nil {
		s.logger.Warn("watch tree walk failed", "path", path, "error", err)
	}
}

// pollChanged compares the current sidecar set against the last snapshot.
func (s *Service) pollChanged(root string) bool {
	current := s.sidecarSnapshot(root)

	changed := len(current) != len(s.pollSnapshot)
	if !changed {
		for path, mtime := range current {
			if prev, ok := s.pollSnapshot[path]; !ok || !prev.Equal(mtime) {
				changed = true
				break
			}
		}
	}

	s.pollSnapshot = current
	if changed {
		s.logger.Info("poll detected sidecar changes", "root", root, "sidecars", len(current))
	}
	return changed
}

// sidecarSnapshot walks root collecting sidecar paths and mtimes. Errors
// leave entries out; the next successful poll picks them up.
func (s *Service) sidecarSnapshot(root string) map[string]time.Time {
	snap := make(map[string]time.Time)
	_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), s.suffix) {
			return nil
		}
		if info, err := d.Info(); err == nil {
			snap[p] = info.ModTime()
		}
		return nil
	})
	return snap
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
