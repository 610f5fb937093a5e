package txscope

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Beginner is the database side of a request transaction. T is the opaque
// transaction handle handed to application code.
type Beginner[T any] interface {
	Begin(ctx context.Context) (T, error)
	Commit(ctx context.Context, tx T) error
	Rollback(ctx context.Context, tx T) error
}

// Recorder observes transaction boundaries. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordBegin(err error)
	RecordFinalize(decision Decision, state State, elapsed time.Duration)
}

// ErrorHandler renders a finalization failure when the response has not been
// sent yet.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// StreamErrorMode selects how a finalization failure is surfaced once a
// streamed response has already started.
type StreamErrorMode int

const (
	// StreamErrorLog logs the failure and lets the response end normally.
	StreamErrorLog StreamErrorMode = iota
	// StreamErrorAbort logs the failure and aborts the connection.
	StreamErrorAbort
)

func (m StreamErrorMode) String() string {
	if m == StreamErrorAbort {
		return "abort"
	}
	return "log"
}

func ParseStreamErrorMode(raw string) (StreamErrorMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "log":
		return StreamErrorLog, nil
	case "abort":
		return StreamErrorAbort, nil
	default:
		return StreamErrorLog, fmt.Errorf("txscope: unknown stream error mode %q", raw)
	}
}

const (
	defaultMaxBuffer       = 1 << 20
	defaultFinalizeTimeout = 30 * time.Second
)

type options struct {
	policy          Policy
	errorHandler    ErrorHandler
	maxBuffer       int
	finalizeTimeout time.Duration
	streamErrorMode StreamErrorMode
	recorder        Recorder
}

func newOptions(opts []Option) options {
	o := options{
		policy:          DefaultPolicy,
		errorHandler:    defaultErrorHandler,
		maxBuffer:       defaultMaxBuffer,
		finalizeTimeout: defaultFinalizeTimeout,
		recorder:        nopRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

type Option func(*options)

func WithPolicy(p Policy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		if h != nil {
			o.errorHandler = h
		}
	}
}

// WithMaxBuffer caps how many body bytes are held back before the response
// switches to streaming. Zero or less disables the cap.
func WithMaxBuffer(n int) Option {
	return func(o *options) { o.maxBuffer = n }
}

// WithFinalizeTimeout bounds commit and rollback calls. Zero disables the bound.
func WithFinalizeTimeout(d time.Duration) Option {
	return func(o *options) { o.finalizeTimeout = d }
}

func WithStreamErrorMode(m StreamErrorMode) Option {
	return func(o *options) { o.streamErrorMode = m }
}

func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

type nopRecorder struct{}

func (nopRecorder) RecordBegin(error)                             {}
func (nopRecorder) RecordFinalize(Decision, State, time.Duration) {}
