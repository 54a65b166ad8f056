package connstate

import (
	"cc-bridge/applog"
	"context"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"sync"
	"time"
)

// DefaultUnwindTimeout bounds how long Disconnect waits for an attempt's tasks to stop.
const DefaultUnwindTimeout = 5 * time.Second

// Attempt is one connection attempt. Its context is cancelled exactly when the
// attempt ends, whichever path (disconnect, reader, writer) gets there first.
type Attempt struct {
	Id     string
	Side   Side
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func (a *Attempt) Context() context.Context {
	return a.ctx
}

// Done is closed once the attempt has been fully cleaned up.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Task is one long-running half of a connection, usually its reader or its writer.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type Tracker struct {
	side          Side
	observer      Observer
	unwindTimeout time.Duration

	mu      sync.Mutex
	state   State
	current *Attempt
}

// NewTracker returns an Idle tracker. observer may be nil.
func NewTracker(side Side, observer Observer) *Tracker {
	return &Tracker{
		side:          side,
		observer:      observer,
		unwindTimeout: DefaultUnwindTimeout,
		state:         StateIdle,
	}
}

func (t *Tracker) Side() Side {
	return t.side
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Begin moves the tracker from Idle to Connecting and installs a fresh attempt.
// It fails with *AlreadyActiveError if the side is Connecting or Connected.
func (t *Tracker) Begin(parent context.Context) (*Attempt, error) {
	t.mu.Lock()
	if t.state != StateIdle {
		state := t.state
		t.mu.Unlock()
		return nil, &AlreadyActiveError{Side: t.side, State: state}
	}

	id := uuid.NewString()
	ctx := applog.AddContextFields(parent,
		zap.Stringer("side", t.side),
		zap.String("attemptId", id),
	)
	ctx, cancel := context.WithCancel(ctx)

	a := &Attempt{
		Id:     id,
		Side:   t.side,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	t.current = a
	t.state = StateConnecting
	t.mu.Unlock()

	applog.FromContext(ctx).Info("Connection attempt started")
	t.notify(StateConnecting)
	return a, nil
}

// MarkConnected moves a Connecting attempt to Connected.
// It returns ErrCancelled if the attempt was cancelled or replaced in the meantime,
// in which case the side never reports Connected.
func (t *Tracker) MarkConnected(a *Attempt) error {
	t.mu.Lock()
	if t.current != a || t.state != StateConnecting || a.ctx.Err() != nil {
		t.mu.Unlock()
		return ErrCancelled
	}
	t.state = StateConnected
	t.mu.Unlock()

	applog.FromContext(a.ctx).Info("Connected")
	t.notify(StateConnected)
	return nil
}

// Release ends the attempt: its context is cancelled and, if it is still the
// current attempt, the tracker returns to Idle. It reports whether this call
// performed the transition. Releasing twice is harmless.
func (t *Tracker) Release(a *Attempt) bool {
	a.cancel()

	t.mu.Lock()
	if t.current != a {
		t.mu.Unlock()
		return false
	}
	t.current = nil
	t.state = StateIdle
	t.mu.Unlock()

	t.notify(StateIdle)
	return true
}

// Finish is the final cleanup of an attempt, run by the connect call on every exit path.
func (t *Tracker) Finish(a *Attempt) {
	if t.Release(a) {
		applog.FromContext(a.ctx).Debug("Connection attempt cleaned up by final cleanup")
	}
	close(a.done)
}

// Disconnect cancels the current attempt, if any, and returns the side to Idle.
// It then waits, bounded by the unwind timeout, for the attempt's tasks to stop.
// Disconnecting an Idle side is a no-op.
func (t *Tracker) Disconnect() error {
	t.mu.Lock()
	a := t.current
	t.mu.Unlock()

	if a == nil {
		return nil
	}

	applog.FromContext(a.ctx).Info("Disconnect requested")
	t.Release(a)

	select {
	case <-a.done:
	case <-time.After(t.unwindTimeout):
		applog.FromContext(a.ctx).Warn("Connection tasks did not stop in time",
			zap.Duration("timeout", t.unwindTimeout))
	}
	return nil
}

// Serve runs tasks concurrently with the attempt's context and returns when all of them stopped.
// The first task to stop ends the attempt, which cancels the others.
// Cancellations are folded into ErrCancelled; failures are combined and reported together.
func (t *Tracker) Serve(a *Attempt, tasks ...Task) error {
	errs := make([]error, len(tasks))

	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for i, task := range tasks {
		go func(i int, task Task) {
			defer wg.Done()

			err := task.Run(a.ctx)
			errs[i] = err

			logger := applog.FromContext(a.ctx).With(zap.String("task", task.Name))
			switch {
			case err == nil:
				logger.Info("Connection task finished")
			case IsCancelled(err):
				logger.Debug("Connection task cancelled")
			default:
				logger.Error("Connection task failed", zap.Error(err))
			}

			t.Release(a)
		}(i, task)
	}
	wg.Wait()

	return combineOutcomes(errs)
}

func (t *Tracker) notify(state State) {
	if t.observer != nil {
		t.observer.ConnectionStateChanged(t.side, state)
	}
}

func combineOutcomes(errs []error) error {
	var failures error
	cancelled := false
	for _, err := range errs {
		switch {
		case err == nil:
		case IsCancelled(err):
			cancelled = true
		default:
			failures = multierr.Append(failures, err)
		}
	}

	if failures != nil {
		return failures
	}
	if cancelled {
		return ErrCancelled
	}
	return nil
}
