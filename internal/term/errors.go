package term

import (
	"errors"
	"fmt"
)

// ErrNotStarted is returned by operations that require a live child process.
// The caller can recover by calling Start first.
var ErrNotStarted = errors.New("term: session not started")

// SpawnError reports that PTY allocation or process creation failed.
// The session ends up Closed; no fds are left open.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("term: failed to spawn %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// IOError reports a read, write or resize failure on a live fd.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("term: %s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
