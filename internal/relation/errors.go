package relation

import (
	"errors"
	"fmt"
)

// MalformedRecordError reports a fact line that does not match its schema.
// It aborts the load of the whole store: a partially loaded fact set would
// produce unsound region computations.
type MalformedRecordError struct {
	Path string
	Line int
	Want int
	Got  int
	Err  error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s:%d: malformed record: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: malformed record: want %d columns, got %d", e.Path, e.Line, e.Want, e.Got)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// MissingFileError reports an absent fact file. Absence means "no facts of
// this kind"; the caller decides whether that is fatal.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("fact file not found: %s", e.Path)
}

// IsMissing reports whether err is (or wraps) a MissingFileError.
func IsMissing(err error) bool {
	var missing *MissingFileError
	return errors.As(err, &missing)
}
