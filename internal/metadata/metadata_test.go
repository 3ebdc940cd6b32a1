package metadata

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSuffix = ".supplemental-metadata.json"

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	r := NewResolver(logger, testSuffix, "photoTakenTime.timestamp")
	// Pin "now" so the future-skew bound is stable.
	r.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return r
}

func writeSidecar(t *testing.T, dir, mediaName, content string) string {
	t.Helper()
	path := filepath.Join(dir, mediaName+testSuffix)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing sidecar: %v", err)
	}
	return path
}

func TestResolve_OK(t *testing.T) {
	dir := t.TempDir()
	path := writeSidecar(t, dir, "a.jpg", `{"title":"a.jpg","photoTakenTime":{"timestamp":"1600000000","formatted":"Sep 13, 2020"}}`)

	rec, err := testResolver(t).Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.MediaName != "a.jpg" {
		t.Errorf("MediaName = %q, want a.jpg", rec.MediaName)
	}
	if got := rec.TakenTime.Unix(); got != 1600000000 {
		t.Errorf("TakenTime = %d, want 1600000000", got)
	}
	if want := filepath.Join(dir, "a.jpg"); rec.MediaPath() != want {
		t.Errorf("MediaPath() = %q, want %q", rec.MediaPath(), want)
	}
}

func TestResolve_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeSidecar(t, dir, "b.mp4", `not valid json`)

	_, err := testResolver(t).Resolve(path)
	if !errors.Is(err, ErrParseFailed) {
		t.Errorf("expected ErrParseFailed, got %v", err)
	}
}

func TestResolve_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.jpg"+testSuffix)

	_, err := testResolver(t).Resolve(path)
	if !errors.Is(err, ErrParseFailed) {
		t.Errorf("expected ErrParseFailed for unreadable sidecar, got %v", err)
	}
}

func TestResolve_TimestampProblems(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"field absent", `{"title":"x"}`},
		{"nested field absent", `{"photoTakenTime":{"formatted":"then"}}`},
		{"parent not object", `{"photoTakenTime":"1600000000"}`},
		{"not a string", `{"photoTakenTime":{"timestamp":1600000000}}`},
		{"not numeric", `{"photoTakenTime":{"timestamp":"soon"}}`},
		{"zero", `{"photoTakenTime":{"timestamp":"0"}}`},
		{"negative", `{"photoTakenTime":{"timestamp":"-5"}}`},
		{"before 1990", `{"photoTakenTime":{"timestamp":"1000"}}`},
		{"far future", `{"photoTakenTime":{"timestamp":"4102444800"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeSidecar(t, dir, "c.png", tt.content)

			_, err := testResolver(t).Resolve(path)
			if !errors.Is(err, ErrTimestampMissing) {
				t.Errorf("expected ErrTimestampMissing, got %v", err)
			}
		})
	}
}

func TestResolve_NonSidecarPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	_, err := testResolver(t).Resolve(path)
	if !errors.Is(err, ErrParseFailed) {
		t.Errorf("expected ErrParseFailed, got %v", err)
	}
}

func TestResolve_CustomKeyPath(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	r := NewResolver(logger, testSuffix, "capture.when.epoch")
	r.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	path := writeSidecar(t, dir, "d.gif", `{"capture":{"when":{"epoch":"1500000000"}}}`)
	rec, err := r.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.TakenTime.Unix() != 1500000000 {
		t.Errorf("TakenTime = %d, want 1500000000", rec.TakenTime.Unix())
	}
}
