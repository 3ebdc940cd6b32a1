// Package scanner walks an export tree once and classifies every file as a
// sidecar metadata file or a candidate media file.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sydlexius/phototime/internal/event"
)

// Service walks directory trees and classifies their files.
type Service struct {
	logger         *slog.Logger
	suffix         string
	exclusions     map[string]bool
	followSymlinks bool
	eventBus       *event.Bus
}

// NewService creates a scanner service. suffix is the literal, case-sensitive
// sidecar name suffix; exclusions are directory names to skip entirely.
func NewService(logger *slog.Logger, suffix string, exclusions []string, followSymlinks bool) *Service {
	excMap := make(map[string]bool, len(exclusions))
	for _, e := range exclusions {
		excMap[strings.ToLower(e)] = true
	}
	return &Service{
		logger:         logger.With("component", "scanner"),
		suffix:         suffix,
		exclusions:     excMap,
		followSymlinks: followSymlinks,
	}
}

// SetEventBus sets the event bus for publishing scan events.
func (s *Service) SetEventBus(bus *event.Bus) {
	s.eventBus = bus
}

// Scan enumerates every file under root to unbounded depth. Traversal is
// lexicographic per directory, so repeated runs over an unchanged tree
// produce identical orderings. Unreadable subdirectories are skipped with a
// warning; only an unreadable root or a canceled context aborts the scan.
func (s *Service) Scan(ctx context.Context, root string) (*Result, error) {
	s.logger.Info("starting directory scan", "root", root)

	result := &Result{}
	visited := make(map[string]bool)

	if err := s.walkDir(ctx, root, true, visited, result); err != nil {
		return nil, err
	}

	s.logger.Info("directory scan completed",
		slog.Int("metadata_files", len(result.MetadataFiles)),
		slog.Int("media_files", len(result.AllFiles)),
		slog.Int("skipped_dirs", result.SkippedDirs),
	)

	if s.eventBus != nil {
		s.eventBus.Publish(event.Event{
			Type: event.ScanCompleted,
			Data: map[string]any{
				"root":           root,
				"metadata_files": len(result.MetadataFiles),
				"media_files":    len(result.AllFiles),
				"skipped_dirs":   result.SkippedDirs,
			},
		})
	}

	return result, nil
}

func (s *Service) walkDir(ctx context.Context, dir string, isRoot bool, visited map[string]bool, result *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Guard against symlink cycles: track directories by canonical path.
	canon := dir
	if c, err := filepath.EvalSymlinks(dir); err == nil {
		canon = c
	}
	if visited[canon] {
		s.logger.Warn("directory already visited, skipping cycle", "path", dir)
		return nil
	}
	visited[canon] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		if isRoot {
			return fmt.Errorf("reading root directory: %w", err)
		}
		result.SkippedDirs++
		s.logger.Warn("skipping unreadable directory", "path", dir, "error", err)
		if s.eventBus != nil {
			s.eventBus.Publish(event.Event{
				Type: event.DirSkipped,
				Data: map[string]any{"path": dir, "error": err.Error()},
			})
		}
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if s.exclusions[strings.ToLower(entry.Name())] {
				s.logger.Debug("skipping excluded directory", "path", path)
				continue
			}
			if err := s.walkDir(ctx, path, false, visited, result); err != nil {
				return err
			}
			continue
		}

		if entry.Type()&fs.ModeSymlink != 0 && s.followSymlinks {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				if err := s.walkDir(ctx, path, false, visited, result); err != nil {
					return err
				}
				continue
			}
		}

		if strings.HasSuffix(entry.Name(), s.suffix) {
			result.MetadataFiles = append(result.MetadataFiles, path)
			s.logger.Debug("found metadata file", "path", path)
		} else {
			result.AllFiles = append(result.AllFiles, path)
			s.logger.Debug("found media file", "path", path)
		}
	}

	return nil
}
