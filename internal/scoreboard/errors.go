package scoreboard

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by store operations.
var (
	// ErrNotOpen is returned when an operation needs an open store.
	ErrNotOpen = errors.New("scoreboard not open")

	// ErrBadMagic is returned when a file does not carry the scoreboard magic.
	ErrBadMagic = errors.New("scoreboard has bad magic")

	// ErrTooOld is returned for files written by an older format version.
	ErrTooOld = errors.New("scoreboard version too old")

	// ErrTooNew is returned for files written by a newer format version.
	ErrTooNew = errors.New("scoreboard version too new")

	// ErrPermissionDenied is returned for symlinked files, world-writable
	// parent directories and updates to a slot owned by another pid.
	ErrPermissionDenied = errors.New("scoreboard permission denied")

	// ErrNotADirectory is returned when the parent of a scoreboard path is not a directory.
	ErrNotADirectory = errors.New("scoreboard parent is not a directory")

	ErrInvalidArgument = errors.New("scoreboard invalid argument")
	ErrInvalidState    = errors.New("scoreboard invalid state")

	// ErrEndOfData ends a scan. A fresh Rewind restarts it.
	ErrEndOfData = errors.New("scoreboard end of data")

	// ErrIO matches every *IOError through errors.Is.
	ErrIO = errors.New("scoreboard i/o error")
)

// IOError records a failed read, write, seek or lock on the scoreboard file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("scoreboard %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }
