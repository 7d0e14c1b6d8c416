package statereader

import (
	"errors"
	"fmt"
)

// ErrStateFileNotFound is returned when none of the candidate directories
// holds the requested state file.
var ErrStateFileNotFound = errors.New("state file not found")

// ReadError reports a state file that could not be read or decoded after
// every retry. Such failures are usually torn writes by the game client.
type ReadError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s failed after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ShapeError reports a field path the extractor expected but did not find.
type ShapeError struct {
	Path string
}

func (e *ShapeError) Error() string {
	return "missing field path " + e.Path
}

// ShapeErrors converts a list of missing paths into a joined error, or nil.
func ShapeErrors(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	errs := make([]error, len(paths))
	for i, p := range paths {
		errs[i] = &ShapeError{Path: p}
	}
	return errors.Join(errs...)
}
