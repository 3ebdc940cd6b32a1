package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewManager_CreatesRunLogFile(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	mgr, logger := NewManager(Config{Level: "info", Format: "text", Dir: dir}, start)
	logger.Info("hello from test")

	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	want := filepath.Join(dir, "phototime_20240301_103000.log")
	if mgr.Path() != want {
		t.Errorf("Path() = %q, want %q", mgr.Path(), want)
	}

	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing message, got: %s", data)
	}
}

func TestNewManager_LevelFiltering(t *testing.T) {
	dir := t.TempDir()
	mgr, logger := NewManager(Config{Level: "warn", Format: "text", Dir: dir}, time.Now())
	defer mgr.Close() //nolint:errcheck

	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be disabled at warn level")
	}
	if !logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("expected warn to be enabled")
	}
}

func TestSuccess_RendersSuccessLevel(t *testing.T) {
	dir := t.TempDir()
	start := time.Now()
	mgr, logger := NewManager(Config{Level: "info", Format: "text", Dir: dir}, start)

	Success(logger, "updated timestamps", "path", "/photos/a.jpg")

	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	data, err := os.ReadFile(mgr.Path())
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "level=SUCCESS") {
		t.Errorf("expected SUCCESS level in output, got: %s", out)
	}
	if strings.Contains(out, "INFO+2") {
		t.Errorf("raw level name leaked into output: %s", out)
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	mgr, _ := NewManager(Config{Level: "info", Format: "text", Dir: t.TempDir()}, time.Now())
	if err := mgr.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestRunLogPath_Deterministic(t *testing.T) {
	start := time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)
	a := RunLogPath("/data", start)
	b := RunLogPath("/data", start)
	if a != b {
		t.Errorf("expected identical paths, got %q and %q", a, b)
	}
	if a != "/data/phototime_20231231_235959.log" {
		t.Errorf("unexpected path: %s", a)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in  string
		out slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.out {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.out)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, l := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(l) {
			t.Errorf("expected %q to be valid", l)
		}
	}
	for _, l := range []string{"", "trace", "fatal", "DEBUG"} {
		if ValidLevel(l) {
			t.Errorf("expected %q to be invalid", l)
		}
	}
}

func TestValidFormat(t *testing.T) {
	if !ValidFormat("text") || !ValidFormat("json") {
		t.Error("text and json should be valid")
	}
	if ValidFormat("xml") || ValidFormat("") {
		t.Error("xml and empty should be invalid")
	}
}
