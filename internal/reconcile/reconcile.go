// Package reconcile drives the reconciliation pass: scan the tree, pair
// each sidecar with its media file, apply the taken time, and account for
// every file that could not be paired or updated.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sydlexius/phototime/internal/event"
	"github.com/sydlexius/phototime/internal/logging"
	"github.com/sydlexius/phototime/internal/metadata"
	"github.com/sydlexius/phototime/internal/rootcheck"
	"github.com/sydlexius/phototime/internal/scanner"
	"github.com/sydlexius/phototime/internal/timestamp"
)

// Service orchestrates one reconciliation pass at a time.
type Service struct {
	scanner  *scanner.Service
	resolver *metadata.Resolver
	applier  *timestamp.Applier
	logger   *slog.Logger
	suffix   string
	eventBus *event.Bus
}

// NewService creates the orchestrator. suffix must match the scanner's
// sidecar suffix; it is used to pair media files back to sidecars during
// orphan detection.
func NewService(scan *scanner.Service, resolver *metadata.Resolver, applier *timestamp.Applier, logger *slog.Logger, suffix string) *Service {
	return &Service{
		scanner:  scan,
		resolver: resolver,
		applier:  applier,
		logger:   logger.With("component", "reconcile"),
		suffix:   suffix,
	}
}

// SetEventBus sets the event bus for publishing run events.
func (s *Service) SetEventBus(bus *event.Bus) {
	s.eventBus = bus
}

// Run executes one full pass over the validated root. Per-file failures are
// recorded and processing continues; only a failed scan returns an error.
// A canceled context stops the pass between files, marks the summary
// interrupted, and leaves already-updated files in place.
func (s *Service) Run(ctx context.Context, root *rootcheck.Root) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.New().String(),
		Root:      root.Path,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Info("reconciliation run starting", "run_id", summary.RunID, "root", root.Path)
	s.publish(event.RunStarted, map[string]any{"run_id": summary.RunID, "root": root.Path})

	scanRes, err := s.scanner.Scan(ctx, root.Path)
	if err != nil {
		return nil, err
	}

	summary.MetadataFiles = len(scanRes.MetadataFiles)
	summary.SkippedDirs = scanRes.SkippedDirs

	if summary.MetadataFiles == 0 {
		s.logger.Warn("no metadata files found; is this a photo export folder?", "root", root.Path)
	}

	total := len(scanRes.MetadataFiles)
	for i, metaPath := range scanRes.MetadataFiles {
		if ctx.Err() != nil {
			summary.Interrupted = true
			s.logger.Warn("run interrupted; stopping between files",
				"processed", i, "total", total)
			break
		}

		outcome, procErr := s.processOne(metaPath)
		summary.record(outcome)

		data := map[string]any{
			"path":    metaPath,
			"outcome": string(outcome),
			"index":   i + 1,
			"total":   total,
		}
		if outcome == OutcomeUpdated {
			s.publish(event.FileUpdated, data)
		} else {
			if procErr != nil {
				data["error"] = procErr.Error()
			}
			s.publish(event.FileFailed, data)
		}
	}

	if !summary.Interrupted {
		s.reportOrphans(scanRes, summary)
	}

	summary.CompletedAt = time.Now().UTC()

	s.publish(event.RunCompleted, map[string]any{
		"run_id":            summary.RunID,
		"metadata_files":    summary.MetadataFiles,
		"updated":           summary.Updated,
		"parse_failed":      summary.ParseFailed,
		"timestamp_missing": summary.TimestampMissing,
		"media_missing":     summary.MediaMissing,
		"permission_denied": summary.PermissionDenied,
		"not_found":         summary.NotFound,
		"orphaned_media":    summary.OrphanedMedia,
		"skipped_dirs":      summary.SkippedDirs,
		"interrupted":       summary.Interrupted,
	})

	return summary, nil
}

// processOne runs one metadata file through resolve, media lookup, and
// apply. No retries: the first failure is the file's outcome.
func (s *Service) processOne(metaPath string) (Outcome, error) {
	rec, err := s.resolver.Resolve(metaPath)
	if err != nil {
		switch {
		case errors.Is(err, metadata.ErrTimestampMissing):
			s.logger.Error("taken-time missing", "path", metaPath, "error", err)
			return OutcomeTimestampMissing, err
		default:
			s.logger.Error("sidecar unparsable", "path", metaPath, "error", err)
			return OutcomeParseFailed, err
		}
	}

	mediaPath := rec.MediaPath()
	info, err := os.Stat(mediaPath)
	if err != nil || info.IsDir() {
		s.logger.Warn("media file missing for sidecar", "sidecar", metaPath, "media", mediaPath)
		return OutcomeMediaMissing, err
	}

	if err := s.applier.Apply(mediaPath, rec.TakenTime); err != nil {
		switch {
		case errors.Is(err, timestamp.ErrNotFound):
			// Target disappeared between lookup and apply. Report, no retry.
			s.logger.Error("media file vanished before update", "media", mediaPath, "error", err)
			return OutcomeNotFound, err
		case errors.Is(err, timestamp.ErrPermissionDenied):
			s.logger.Error("timestamp update rejected", "media", mediaPath, "error", err)
			return OutcomePermissionDenied, err
		default:
			// Any other filesystem rejection counts with the denied bucket.
			s.logger.Error("timestamp update failed", "media", mediaPath, "error", err)
			return OutcomePermissionDenied, err
		}
	}

	logging.Success(s.logger, "timestamps updated",
		"media", mediaPath, "taken", rec.TakenTime.Format(time.RFC3339))
	return OutcomeUpdated, nil
}

// reportOrphans flags every media file whose path plus the sidecar suffix
// does not appear among the scanned metadata files. Informational: orphans
// are data about the export, not failures of this run.
func (s *Service) reportOrphans(scanRes *scanner.Result, summary *Summary) {
	metaSet := make(map[string]bool, len(scanRes.MetadataFiles))
	for _, m := range scanRes.MetadataFiles {
		metaSet[m] = true
	}

	for _, mediaPath := range scanRes.AllFiles {
		if metaSet[mediaPath+s.suffix] {
			continue
		}
		summary.OrphanedMedia++
		s.logger.Info("media file has no sidecar", "path", mediaPath)
		s.publish(event.MediaOrphaned, map[string]any{"path": mediaPath})
	}
}

func (s *Service) publish(t event.Type, data map[string]any) {
	if s.eventBus != nil {
		s.eventBus.Publish(event.Event{Type: t, Data: data})
	}
}
