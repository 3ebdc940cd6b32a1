// Package rootcheck validates that a directory is usable as the root of a
// reconciliation run: it must exist, be a directory, and be both readable
// and writable.
package rootcheck

import (
	"fmt"
	"os"
	"path/filepath"
)

// Reason classifies why a root path was rejected.
type Reason string

// Rejection reasons.
const (
	ReasonNotFound     Reason = "not found"
	ReasonNotDirectory Reason = "not a directory"
	ReasonUnreadable   Reason = "unreadable"
	ReasonUnwritable   Reason = "unwritable"
)

// InvalidRootError reports a root path that failed validation.
type InvalidRootError struct {
	Path   string
	Reason Reason
	Err    error
}

func (e *InvalidRootError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid root %q: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid root %q: %s", e.Path, e.Reason)
}

func (e *InvalidRootError) Unwrap() error {
	return e.Err
}

// Root is a validated root directory.
type Root struct {
	Path string
}

// Validate checks that path exists, is a directory, can be listed, and can
// be written to. The write probe creates a temp file in the root and removes
// it again on every exit path; success leaves no trace behind.
func Validate(path string) (*Root, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &InvalidRootError{Path: path, Reason: ReasonNotFound, Err: err}
		}
		return nil, &InvalidRootError{Path: path, Reason: ReasonUnreadable, Err: err}
	}
	if !info.IsDir() {
		return nil, &InvalidRootError{Path: path, Reason: ReasonNotDirectory}
	}

	if _, err := os.ReadDir(path); err != nil {
		return nil, &InvalidRootError{Path: path, Reason: ReasonUnreadable, Err: err}
	}

	if err := probeWrite(path); err != nil {
		return nil, &InvalidRootError{Path: path, Reason: ReasonUnwritable, Err: err}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &InvalidRootError{Path: path, Reason: ReasonUnreadable, Err: err}
	}

	return &Root{Path: abs}, nil
}

// probeWrite creates and removes a temp file in dir to confirm writability.
func probeWrite(dir string) error {
	f, err := os.CreateTemp(dir, ".phototime-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	defer os.Remove(name) //nolint:errcheck

	if err := f.Close(); err != nil {
		return err
	}
	return nil
}
