package at

import (
	"errors"
	"fmt"
)

// ErrClosed is returned for transactions on a closed engine
var ErrClosed = errors.New("engine closed")

// TransportError wraps an I/O failure of the underlying transport.
// These are never retried by the engine.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	_, ok := target.(*TransportError)
	return ok
}
