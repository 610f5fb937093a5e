package txscope

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"reqtx/internal/bootstrap/logging"
	"reqtx/internal/errs"
)

// Slot holds at most one transaction for one request.
//
// The mutex only guards state; Begin, Commit and Rollback run with it
// released. A begin in flight is published through beginning so racing
// extractors wait for it, and done is closed once finalization recorded
// its outcome.
type Slot[T any] struct {
	beginner Beginner[T]
	opts     options

	mu        sync.Mutex
	state     State
	tx        T
	beginning chan struct{}
	done      chan struct{}
	err       error
}

func NewSlot[T any](beginner Beginner[T], opts ...Option) *Slot[T] {
	return newSlot(beginner, newOptions(opts))
}

func newSlot[T any](beginner Beginner[T], opts options) *Slot[T] {
	return &Slot[T]{beginner: beginner, opts: opts}
}

func (s *Slot[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the recorded finalization error, if any.
func (s *Slot[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Extract returns the request transaction, beginning it on first use.
func (s *Slot[T]) Extract(ctx context.Context) (T, error) {
	var zero T
	if ctx == nil {
		return zero, errors.New("context is required")
	}

	s.mu.Lock()
	for {
		if s.done != nil {
			s.mu.Unlock()
			return zero, ErrSlotFinalized
		}
		if s.state == StateActive {
			tx := s.tx
			s.mu.Unlock()
			return tx, nil
		}
		if s.beginning == nil {
			break
		}

		wait := s.beginning
		s.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return zero, errs.Wrap(ctx.Err(), "wait for transaction begin")
		}
		s.mu.Lock()
	}
	began := make(chan struct{})
	s.beginning = began
	s.mu.Unlock()

	returned := false
	defer func() {
		// A panicking Begin must still release waiters, or Finalize and
		// Close block forever on beginning.
		if !returned {
			s.mu.Lock()
			s.beginning = nil
			close(began)
			s.mu.Unlock()
		}
	}()

	// The slot owns the transaction boundary, so request cancellation must
	// not let the driver end the transaction on its own.
	tx, err := s.beginner.Begin(context.WithoutCancel(ctx))
	returned = true
	s.opts.recorder.RecordBegin(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginning = nil
	close(began)
	if err != nil {
		return zero, &BeginError{Err: err}
	}
	s.state = StateActive
	s.tx = tx
	return tx, nil
}

// Finalize commits or rolls back the transaction exactly once. Later and
// concurrent calls wait for the first one and return its outcome. With no
// transaction begun it is a no-op, and the slot refuses further extraction.
func (s *Slot[T]) Finalize(ctx context.Context, decision Decision) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.done != nil {
		done := s.done
		s.mu.Unlock()
		<-done
		return s.Err()
	}
	done := make(chan struct{})
	s.done = done
	for s.beginning != nil {
		wait := s.beginning
		s.mu.Unlock()
		<-wait
		s.mu.Lock()
	}
	state, tx := s.state, s.tx
	var zero T
	s.tx = zero
	s.mu.Unlock()

	var err error
	if state == StateActive {
		started := time.Now()
		state, err = s.resolve(ctx, decision, tx)
		s.opts.recorder.RecordFinalize(decision, state, time.Since(started))
	}

	s.mu.Lock()
	s.state = state
	s.err = err
	close(done)
	s.mu.Unlock()
	return err
}

func (s *Slot[T]) resolve(ctx context.Context, decision Decision, tx T) (State, error) {
	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()

	if decision == DecisionCommit {
		commitErr := s.beginner.Commit(dbCtx, tx)
		if commitErr == nil {
			return StateCommitted, nil
		}
		ferr := &FinalizeError{Decision: decision, Commit: &CommitError{Err: commitErr}}
		if rollbackErr := s.beginner.Rollback(dbCtx, tx); rollbackErr != nil {
			ferr.Rollback = &RollbackError{Err: rollbackErr}
			return StateFailed, ferr
		}
		return StateRolledBack, ferr
	}

	if rollbackErr := s.beginner.Rollback(dbCtx, tx); rollbackErr != nil {
		return StateFailed, &FinalizeError{Decision: decision, Rollback: &RollbackError{Err: rollbackErr}}
	}
	return StateRolledBack, nil
}

func (s *Slot[T]) dbContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if s.opts.finalizeTimeout <= 0 {
		return base, func() {}
	}
	return context.WithTimeout(base, s.opts.finalizeTimeout)
}

// Close rolls back a transaction that was never finalized. It is safe to
// call after Finalize, in which case it does nothing. A failed defensive
// rollback is logged and returned, never panicked.
func (s *Slot[T]) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	pending := s.done == nil && (s.state == StateActive || s.beginning != nil)
	s.mu.Unlock()

	err := s.Finalize(ctx, DecisionRollback)
	if !pending {
		return nil
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "txscope.slot"))
	if err != nil {
		logging.Error(logCtx, "defensive rollback failed", slog.Any("err", errs.Loggable(err)))
		return err
	}
	logging.Warn(logCtx, "request transaction abandoned, rolled back")
	return nil
}
