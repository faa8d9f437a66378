// Package digest runs one end-to-end digest: resolve each channel's latest
// long-form upload, fetch transcripts, generate articles, assemble the e-book
// and mail it. Per-item failures in the first three stages drop the item and
// the run continues; assembly and delivery failures end the run.
package digest

import (
	"errors"
	"fmt"
)

// errNoLongForm marks a channel whose upload window held only shorts.
// It is recorded as a drop but is not a failure.
var errNoLongForm = errors.New("no long-form upload in window")

// StageError is returned when a stage ends the run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
