package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelSuccess sits between Info and Warn and marks a completed per-file
// update. It renders as SUCCESS in log output.
const LevelSuccess = slog.Level(2)

// Config describes the desired logging configuration.
type Config struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Dir    string `json:"dir"`
}

// Manager owns the logger lifecycle for a single run: it creates the
// per-run log file, tees output to the console, and flushes on Close.
type Manager struct {
	config Config
	path   string

	mu     sync.Mutex
	closer io.Closer // lumberjack writer
}

// NewManager creates a Manager writing to stdout and a timestamped log file
// under cfg.Dir, and returns it along with a ready-to-use logger. The file
// writer is unbuffered per record, so an interrupted run keeps every line
// written so far.
func NewManager(cfg Config, start time.Time) (*Manager, *slog.Logger) {
	lvl := parseLevel(cfg.Level)
	path := RunLogPath(cfg.Dir, start)

	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // MB
		MaxBackups: 3,
	}

	handler := buildHandler(io.MultiWriter(os.Stdout, lj), lvl, cfg.Format)

	m := &Manager{
		config: cfg,
		path:   path,
		closer: lj,
	}

	return m, slog.New(handler)
}

// Path returns the log file path for this run.
func (m *Manager) Path() string {
	return m.path
}

// Config returns the configuration snapshot.
func (m *Manager) Config() Config {
	return m.config
}

// Close releases the log file writer. Safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closer != nil {
		err := m.closer.Close()
		m.closer = nil
		return err
	}
	return nil
}

// RunLogPath returns the deterministic log file name for a run started at
// the given time.
func RunLogPath(dir string, start time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("phototime_%s.log", start.Format("20060102_150405")))
}

// Success logs msg at the SUCCESS level.
func Success(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelSuccess, msg, args...)
}

// parseLevel converts a string to slog.Level, defaulting to Info.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildHandler creates a slog.Handler with the given writer, level, and format.
func buildHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelName,
	}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// replaceLevelName renders LevelSuccess as SUCCESS instead of slog's
// default INFO+2.
func replaceLevelName(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelSuccess {
			a.Value = slog.StringValue("SUCCESS")
		}
	}
	return a
}

// ValidLevel returns true if s is a recognized log level.
func ValidLevel(s string) bool {
	switch s {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// ValidFormat returns true if s is a recognized log format.
func ValidFormat(s string) bool {
	switch s {
	case "text", "json":
		return true
	}
	return false
}
