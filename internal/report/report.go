// Package report turns run events into operator-facing output: per-event
// log lines, a console progress bar, the final summary block, and a
// machine-readable summary artifact.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/sydlexius/phototime/internal/event"
	"github.com/sydlexius/phototime/internal/filesystem"
	"github.com/sydlexius/phototime/internal/reconcile"
)

// Reporter subscribes to run events and renders progress and summaries.
type Reporter struct {
	logger       *slog.Logger
	out          io.Writer
	barWriter    io.Writer
	showProgress bool
	limiter      *rate.Limiter

	bar *progressbar.ProgressBar
}

// New creates a reporter writing its summary block to out. The progress bar
// is only drawn when enabled and stderr is a terminal; log output stays
// clean when piped.
func New(logger *slog.Logger, out io.Writer, enableProgress bool) *Reporter {
	return &Reporter{
		logger:       logger.With("component", "reporter"),
		out:          out,
		barWriter:    os.Stderr,
		showProgress: enableProgress && term.IsTerminal(int(os.Stderr.Fd())),
		// Periodic progress log lines, at most one every two seconds.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// Attach subscribes the reporter to every stage's events.
func (r *Reporter) Attach(bus *event.Bus) {
	bus.Subscribe(event.ScanCompleted, r.onScanCompleted)
	bus.Subscribe(event.FileUpdated, r.onFileEvent)
	bus.Subscribe(event.FileFailed, r.onFileEvent)
	bus.Subscribe(event.RunCompleted, r.onRunCompleted)
}

func (r *Reporter) onScanCompleted(e event.Event) {
	total := asInt(e.Data["metadata_files"])
	if r.showProgress && total > 0 {
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(r.barWriter),
			progressbar.OptionSetDescription("reconciling"),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
}

func (r *Reporter) onFileEvent(e event.Event) {
	if r.bar != nil {
		_ = r.bar.Add(1)
	}

	index := asInt(e.Data["index"])
	total := asInt(e.Data["total"])
	if r.limiter.Allow() || index == total {
		r.logger.Info("progress", "processed", index, "total", total)
	}
}

func (r *Reporter) onRunCompleted(event.Event) {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}

// PrintSummary writes the final console block: counters, success rate, and
// where the full log lives.
func (r *Reporter) PrintSummary(s *reconcile.Summary, logPath string) {
	line := func(format string, args ...any) {
		fmt.Fprintf(r.out, format+"\n", args...)
	}

	line("")
	line("============================================================")
	if s.Interrupted {
		line("RECONCILIATION INTERRUPTED")
	} else {
		line("RECONCILIATION COMPLETE")
	}
	line("============================================================")
	line("Metadata files processed: %d", s.MetadataFiles)
	line("Timestamps updated:       %d", s.Updated)
	line("Failed:                   %d", s.Failed())
	if s.Failed() > 0 {
		line("  parse failures:         %d", s.ParseFailed)
		line("  taken-time missing:     %d", s.TimestampMissing)
		line("  media missing:          %d", s.MediaMissing)
		line("  permission denied:      %d", s.PermissionDenied)
		line("  vanished before update: %d", s.NotFound)
	}
	line("Media without metadata:   %d", s.OrphanedMedia)
	if s.SkippedDirs > 0 {
		line("Unreadable directories:   %d", s.SkippedDirs)
	}
	if s.MetadataFiles > 0 {
		line("Success rate:             %.1f%%", s.SuccessRate())
	}
	line("")
	line("Detailed log: %s", logPath)
	line("============================================================")
}

// WriteSummaryFile persists the run summary as JSON next to the log,
// written atomically so a crash never leaves a truncated artifact.
func (r *Reporter) WriteSummaryFile(s *reconcile.Summary, path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := filesystem.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing summary file: %w", err)
	}
	r.logger.Info("run summary written", "path", path)
	return nil
}

// SummaryPath returns the deterministic summary artifact name for a run
// started at the given time.
func SummaryPath(dir string, start time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("phototime_%s_summary.json", start.Format("20060102_150405")))
}

// asInt tolerates both int and float64 values in event data.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
