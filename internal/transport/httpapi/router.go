// Package httpapi exposes the numbers service over HTTP with every
// transactional route running inside a request transaction.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"reqtx/internal/bootstrap/logging"
	"reqtx/internal/infrastructure/metrics"
	"reqtx/internal/usecase/numbers"
)

const headerRequestID = "X-Request-Id"

type Options struct {
	Numbers *numbers.Service
	// Middleware wraps the /numbers routes in a request transaction.
	// Without it, service calls open their own unit of work and explicit
	// commits fail with ErrMissingSlot.
	Middleware func(http.Handler) http.Handler
	// Registry is served on /metrics when set.
	Registry *prometheus.Registry
}

func NewRouter(opts Options) http.Handler {
	h := &handler{numbers: opts.Numbers}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Registry))
	}

	r.Route("/numbers", func(api chi.Router) {
		if opts.Middleware != nil {
			api.Use(opts.Middleware)
		}
		api.Post("/", h.generate)
		api.Post("/commit-early", h.generateCommitted)
		api.Get("/", h.list)
		api.Get("/count", h.count)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)

		ctx := logging.WithRequest(r.Context(), requestID, r.Method, r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logging.Info(
			logging.WithAttrs(ctx, slog.String("component", "transport.httpapi")),
			"http request completed",
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}
