// Package resolve implements the channel handle to latest long-form video lookup.
// It walks a channel's newest uploads in order and returns the first one that is
// not a short-form clip.
package resolve

import (
	"errors"
	"fmt"
)

// Sentinel errors for resolve use case operations.
var (
	// ErrEmptyHandle indicates the configured handle is blank after normalization.
	ErrEmptyHandle = errors.New("empty channel handle")

	// ErrInvalidProbePolicy indicates an unknown probe failure policy name.
	ErrInvalidProbePolicy = errors.New("invalid shorts probe failure policy")
)

// ResolveError carries the handle a resolution failed for.
type ResolveError struct {
	Handle string
	Err    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Handle, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
