package txscope

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"reqtx/internal/bootstrap/logging"
	"reqtx/internal/errs"
)

// Layer creates a Slot per request and finalizes it from the response.
type Layer[T any] struct {
	beginner Beginner[T]
	opts     options
}

func NewLayer[T any](beginner Beginner[T], opts ...Option) *Layer[T] {
	return &Layer[T]{beginner: beginner, opts: newOptions(opts)}
}

// NewSlot returns a detached slot sharing the layer's options.
func (l *Layer[T]) NewSlot() *Slot[T] {
	return newSlot(l.beginner, l.opts)
}

// Middleware is a func(http.Handler) http.Handler suitable for chi's Use.
func (l *Layer[T]) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slot := l.NewSlot()
		ctx := WithSlot(r.Context(), slot)
		rw := newResponseObserver(w, l.opts.maxBuffer)

		finished := false
		defer func() {
			// Panics and runtime.Goexit skip the normal path below.
			// Close logs its own failure.
			if !finished {
				_ = slot.Close(ctx)
			}
		}()

		next.ServeHTTP(rw, r.WithContext(ctx))
		finished = true

		if rw.Streaming() {
			l.finishStream(ctx, rw, slot)
			return
		}
		l.finishBuffered(ctx, w, r, rw, slot)
	})
}

func (l *Layer[T]) finishBuffered(ctx context.Context, w http.ResponseWriter, r *http.Request, rw *responseObserver, slot *Slot[T]) {
	decision := l.opts.policy(rw.Status())
	if ctx.Err() != nil {
		decision = DecisionRollback
	}
	if err := slot.Finalize(ctx, decision); err != nil {
		logging.Error(
			logging.WithAttrs(ctx, slog.String("component", "txscope.layer")),
			"finalize request transaction failed",
			slog.Int("status", rw.Status()),
			slog.Any("err", errs.Loggable(err)),
		)
		rw.discard()
		l.opts.errorHandler(w, r, err)
		return
	}
	_ = rw.flushBuffered()
}

func (l *Layer[T]) finishStream(ctx context.Context, rw *responseObserver, slot *Slot[T]) {
	decision := l.opts.policy(rw.Status())
	streamErr := rw.StreamErr()
	if streamErr == nil {
		streamErr = ctx.Err()
	}
	if streamErr != nil {
		decision = DecisionRollback
	}

	err := slot.Finalize(ctx, decision)
	if err == nil {
		return
	}
	logging.Error(
		logging.WithAttrs(ctx, slog.String("component", "txscope.layer")),
		"finalize streamed request transaction failed",
		slog.Int("status", rw.Status()),
		slog.String("stream_error_mode", l.opts.streamErrorMode.String()),
		slog.Any("err", errs.Loggable(err)),
	)
	if l.opts.streamErrorMode == StreamErrorAbort {
		panic(http.ErrAbortHandler)
	}
}

// Response is a host-pipeline response value for Run.
type Response struct {
	Status int
	Header http.Header
	// Body is a fully materialized body. Ignored when Stream is set.
	Body []byte
	// Stream is a lazily produced body.
	Stream io.ReadCloser
}

// Run drives one request through next for pipelines that produce a
// response value rather than writing to an http.ResponseWriter. A returned
// error counts as a failed response. Streamed bodies are finalized when the
// caller drains or closes resp.Stream.
func (l *Layer[T]) Run(ctx context.Context, next func(ctx context.Context) (*Response, error)) (*Response, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	slot := l.NewSlot()
	ctx = WithSlot(ctx, slot)

	finished := false
	defer func() {
		// Close logs its own failure.
		if !finished {
			_ = slot.Close(ctx)
		}
	}()

	resp, err := next(ctx)
	finished = true
	if err == nil && resp == nil {
		err = errors.New("txscope: pipeline returned no response")
	}
	if err != nil {
		if ferr := slot.Finalize(ctx, DecisionRollback); ferr != nil {
			return nil, errors.Join(err, ferr)
		}
		return nil, err
	}

	decision := l.opts.policy(resp.Status)
	if resp.Stream == nil {
		if ferr := slot.Finalize(ctx, decision); ferr != nil {
			return nil, ferr
		}
		return resp, nil
	}

	resp.Stream = ObserveBody(resp.Stream, func(streamErr error) error {
		streamDecision := decision
		if streamErr != nil {
			streamDecision = DecisionRollback
		}
		ferr := slot.Finalize(ctx, streamDecision)
		if ferr != nil {
			logging.Error(
				logging.WithAttrs(ctx, slog.String("component", "txscope.layer")),
				"finalize streamed pipeline transaction failed",
				slog.Int("status", resp.Status),
				slog.Any("stream_err", errs.Loggable(streamErr)),
				slog.Any("err", errs.Loggable(ferr)),
			)
		}
		return ferr
	})
	return resp, nil
}
