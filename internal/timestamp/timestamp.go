// Package timestamp applies taken-time values to media files.
//
// Both the access and modification times are set. Linux does not expose a
// settable creation (birth) time, so the modification time is authoritative
// on this platform; this is a documented limitation, not a silent omission.
package timestamp

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"
)

// Application failures, classified for per-file outcome accounting.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("media file not found")
)

// Applier sets file timestamps. In dry-run mode it verifies the target and
// logs the would-be change without touching the filesystem.
type Applier struct {
	logger *slog.Logger
	dryRun bool
}

// NewApplier creates an applier.
func NewApplier(logger *slog.Logger, dryRun bool) *Applier {
	return &Applier{
		logger: logger.With("component", "applier"),
		dryRun: dryRun,
	}
}

// Apply sets path's access and modification times to taken. Applying the
// same time twice is a no-op at the filesystem level, so Apply is idempotent.
func (a *Applier) Apply(path string, taken time.Time) error {
	if a.dryRun {
		if _, err := os.Stat(path); err != nil {
			return classify(path, err)
		}
		a.logger.Info("dry-run: would update timestamps", "path", path, "taken", taken)
		return nil
	}

	if err := os.Chtimes(path, taken, taken); err != nil {
		return classify(path, err)
	}

	a.logger.Debug("timestamps updated", "path", path, "taken", taken)
	return nil
}

// classify maps filesystem errors onto the applier's error taxonomy.
func classify(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	default:
		return fmt.Errorf("updating timestamps for %s: %w", path, err)
	}
}
