package connstate

import (
	"context"
	"errors"
	"fmt"
)

// ErrCancelled is the outcome of a connection attempt that was torn down on purpose.
var ErrCancelled = errors.New("cancelled")

// AlreadyActiveError is returned when connecting a side that is not Idle.
type AlreadyActiveError struct {
	Side  Side
	State State
}

func (e *AlreadyActiveError) Error() string {
	return fmt.Sprintf("%s side already %s", e.Side, e.State)
}

// TransportError wraps an I/O or handshake failure that ended a connection attempt.
type TransportError struct {
	Side Side
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Side, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err is a deliberate cancellation rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// Outcome classifies a task error observed while ctx may have been cancelled:
// once ctx is done, any I/O error is a consequence of the cancellation.
func Outcome(ctx context.Context, side Side, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || IsCancelled(err) {
		return ErrCancelled
	}
	return &TransportError{Side: side, Op: op, Err: err}
}
