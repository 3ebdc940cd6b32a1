// Package metadata parses the sidecar JSON files written by the photo
// export and resolves them to their paired media files. The sidecar schema
// belongs to the export producer; only the taken-time field is read, at a
// key path supplied by configuration.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Resolution failures, classified for per-file outcome accounting.
var (
	ErrParseFailed      = errors.New("metadata parse failed")
	ErrTimestampMissing = errors.New("taken-time missing or invalid")
)

// minTakenTime is 1990-01-01T00:00:00Z. Sidecars predating consumer digital
// photography are treated as corrupt rather than applied.
const minTakenTime = 631152000

// maxFutureSkew tolerates producer clock skew up to a year ahead.
const maxFutureSkew = 365 * 24 * time.Hour

// Record is one parsed sidecar file.
type Record struct {
	SourcePath string
	MediaName  string
	TakenTime  time.Time
}

// MediaPath returns the expected media file path: the derived name in the
// same directory as the sidecar. Exact name match only; no extension
// inference is attempted.
func (r *Record) MediaPath() string {
	return filepath.Join(filepath.Dir(r.SourcePath), r.MediaName)
}

// Resolver parses sidecar files for a configured suffix and key path.
type Resolver struct {
	logger  *slog.Logger
	suffix  string
	keyPath []string
	now     func() time.Time
}

// NewResolver creates a resolver. takenTimePath is a dotted key path into
// the sidecar JSON, e.g. "photoTakenTime.timestamp".
func NewResolver(logger *slog.Logger, suffix, takenTimePath string) *Resolver {
	return &Resolver{
		logger:  logger.With("component", "resolver"),
		suffix:  suffix,
		keyPath: strings.Split(takenTimePath, "."),
		now:     time.Now,
	}
}

// Resolve reads and parses one sidecar file. The returned Record carries the
// derived media name and the taken time; whether the media file exists is
// the caller's concern.
func (r *Resolver) Resolve(path string) (*Record, error) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, r.suffix) {
		return nil, fmt.Errorf("%w: %q does not end with %q", ErrParseFailed, name, r.suffix)
	}
	mediaName := strings.TrimSuffix(name, r.suffix)
	if mediaName == "" {
		return nil, fmt.Errorf("%w: %q has no media name before the suffix", ErrParseFailed, name)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the scanned tree
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrParseFailed, path, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParseFailed, path, err)
	}

	raw, err := lookup(doc, r.keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTimestampMissing, path, err)
	}

	str, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s: field is %T, want string", ErrTimestampMissing, path, raw)
	}

	epoch, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %q is not an integer", ErrTimestampMissing, path, str)
	}
	if err := r.checkBounds(epoch); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTimestampMissing, path, err)
	}

	taken := time.Unix(epoch, 0).UTC()
	r.logger.Debug("resolved sidecar", "path", path, "media", mediaName, "taken", taken)

	return &Record{
		SourcePath: path,
		MediaName:  mediaName,
		TakenTime:  taken,
	}, nil
}

// checkBounds rejects non-positive and implausible epochs.
func (r *Resolver) checkBounds(epoch int64) error {
	if epoch <= 0 {
		return fmt.Errorf("epoch %d is not positive", epoch)
	}
	if epoch < minTakenTime {
		return fmt.Errorf("epoch %d predates 1990", epoch)
	}
	if max := r.now().Add(maxFutureSkew).Unix(); epoch > max {
		return fmt.Errorf("epoch %d is more than a year in the future", epoch)
	}
	return nil
}

// lookup walks a dotted key path through nested JSON objects.
func lookup(doc map[string]any, keyPath []string) (any, error) {
	var cur any = doc
	for _, key := range keyPath {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("key %q: parent is not an object", key)
		}
		cur, ok = obj[key]
		if !ok {
			return nil, fmt.Errorf("key %q not present", key)
		}
	}
	return cur, nil
}
