package txscope

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSlot means no Layer (or unit of work) was installed upstream.
	ErrMissingSlot = errors.New("txscope: no transaction slot in context; is the txscope Layer middleware installed?")
	// ErrSlotFinalized means the request transaction was already committed or rolled back.
	ErrSlotFinalized = errors.New("txscope: request transaction already finalized")
	// ErrStreamAbandoned is reported to finalization when a streamed body is closed before EOF.
	ErrStreamAbandoned = errors.New("txscope: response stream closed before completion")
)

type BeginError struct{ Err error }

func (e *BeginError) Error() string { return fmt.Sprintf("txscope: begin transaction: %v", e.Err) }
func (e *BeginError) Unwrap() error { return e.Err }

type CommitError struct{ Err error }

func (e *CommitError) Error() string { return fmt.Sprintf("txscope: commit transaction: %v", e.Err) }
func (e *CommitError) Unwrap() error { return e.Err }

type RollbackError struct{ Err error }

func (e *RollbackError) Error() string {
	return fmt.Sprintf("txscope: rollback transaction: %v", e.Err)
}
func (e *RollbackError) Unwrap() error { return e.Err }

// FinalizeError reports a failed finalization. Commit is set when a commit
// was attempted and failed; Rollback is set when the rollback (requested or
// issued as recovery after a failed commit) failed.
type FinalizeError struct {
	Decision Decision
	Commit   *CommitError
	Rollback *RollbackError
}

func (e *FinalizeError) Error() string {
	switch {
	case e.Commit != nil && e.Rollback != nil:
		return fmt.Sprintf("txscope: finalize (%s): %v; recovery %v", e.Decision, e.Commit, e.Rollback)
	case e.Commit != nil:
		return fmt.Sprintf("txscope: finalize (%s): %v; rolled back", e.Decision, e.Commit)
	case e.Rollback != nil:
		return fmt.Sprintf("txscope: finalize (%s): %v", e.Decision, e.Rollback)
	default:
		return fmt.Sprintf("txscope: finalize (%s) failed", e.Decision)
	}
}

func (e *FinalizeError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Commit != nil {
		out = append(out, e.Commit)
	}
	if e.Rollback != nil {
		out = append(out, e.Rollback)
	}
	return out
}
