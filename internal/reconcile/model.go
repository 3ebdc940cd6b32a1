package reconcile

import "time"

// Outcome is the terminal state of one metadata file. Every metadata file
// processed gets exactly one.
type Outcome string

// Per-file outcomes.
const (
	OutcomeUpdated          Outcome = "updated"
	OutcomeParseFailed      Outcome = "parse_failed"
	OutcomeTimestampMissing Outcome = "timestamp_missing"
	OutcomeMediaMissing     Outcome = "media_missing"
	OutcomePermissionDenied Outcome = "permission_denied"
	OutcomeNotFound         Outcome = "not_found"
)

// Summary accumulates counters over one reconciliation run. It is owned
// exclusively by the orchestrator and mutated once per file event.
type Summary struct {
	RunID       string    `json:"run_id"`
	Root        string    `json:"root"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	MetadataFiles    int `json:"metadata_files"`
	Updated          int `json:"updated"`
	ParseFailed      int `json:"parse_failed"`
	TimestampMissing int `json:"timestamp_missing"`
	MediaMissing     int `json:"media_missing"`
	PermissionDenied int `json:"permission_denied"`
	NotFound         int `json:"not_found"`
	OrphanedMedia    int `json:"orphaned_media"`
	SkippedDirs      int `json:"skipped_dirs"`

	// Interrupted is set when the run stopped early on a canceled context.
	// Files updated before the interrupt stay updated.
	Interrupted bool `json:"interrupted,omitempty"`
}

func (s *Summary) record(o Outcome) {
	switch o {
	case OutcomeUpdated:
		s.Updated++
	case OutcomeParseFailed:
		s.ParseFailed++
	case OutcomeTimestampMissing:
		s.TimestampMissing++
	case OutcomeMediaMissing:
		s.MediaMissing++
	case OutcomePermissionDenied:
		s.PermissionDenied++
	case OutcomeNotFound:
		s.NotFound++
	}
}

// Failed returns the total count across all failure categories.
func (s *Summary) Failed() int {
	return s.ParseFailed + s.TimestampMissing + s.MediaMissing + s.PermissionDenied + s.NotFound
}

// SuccessRate returns the updated fraction as a percentage, or 0 when no
// metadata files were seen.
func (s *Summary) SuccessRate() float64 {
	if s.MetadataFiles == 0 {
		return 0
	}
	return float64(s.Updated) / float64(s.MetadataFiles) * 100
}
