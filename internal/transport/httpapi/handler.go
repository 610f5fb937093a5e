package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"reqtx/internal/bootstrap/logging"
	"reqtx/internal/errs"
	"reqtx/internal/ports"
	"reqtx/internal/usecase/numbers"
)

type handler struct {
	numbers *numbers.Service
}

type numberResponse struct {
	ID        uint64    `json:"id"`
	Value     int64     `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

type errorResponse struct {
	Error  string          `json:"error"`
	Number *numberResponse `json:"number,omitempty"`
}

func toResponse(n ports.Number) numberResponse {
	return numberResponse{ID: n.ID, Value: n.Value, CreatedAt: n.CreatedAt}
}

// generate answers 201 for a positive number and 418 otherwise. The 418
// makes the request transaction roll the insert back.
func (h *handler) generate(w http.ResponseWriter, r *http.Request) {
	in, err := parseGenerateInput(r, false)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	n, err := h.numbers.Generate(r.Context(), in)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, toResponse(n))
	case errors.Is(err, numbers.ErrNotPositive):
		body := toResponse(n)
		writeJSON(w, http.StatusTeapot, errorResponse{Error: err.Error(), Number: &body})
	default:
		writeServiceError(w, r, err)
	}
}

// generateCommitted commits the insert and then fails the request, so the
// row survives a rollback-worthy status.
func (h *handler) generateCommitted(w http.ResponseWriter, r *http.Request) {
	in, err := parseGenerateInput(r, true)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	n, err := h.numbers.GenerateCommitted(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	body := toResponse(n)
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request rejected after commit", Number: &body})
}

// list streams numbers as NDJSON, flushing after every row.
func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithAttrs(r.Context(), slog.String("component", "transport.httpapi"))
	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)

	started := false
	err := h.numbers.Each(r.Context(), func(n ports.Number) error {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(toResponse(n)); err != nil {
			return errs.Wrap(err, "encode number")
		}
		return rc.Flush()
	})
	if err == nil {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
		}
		return
	}
	if !started {
		writeServiceError(w, r, err)
		return
	}
	// The 200 is already on the wire, so the status cannot carry the failure.
	logging.Error(ctx, "stream numbers failed", slog.Any("err", errs.Loggable(err)))
	if rerr := h.numbers.Abort(r.Context()); rerr != nil {
		logging.Error(ctx, "rollback after stream failure failed", slog.Any("err", errs.Loggable(rerr)))
	}
}

func (h *handler) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.numbers.Count(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func parseGenerateInput(r *http.Request, required bool) (numbers.GenerateInput, error) {
	raw := r.URL.Query().Get("value")
	if raw == "" {
		if required {
			return numbers.GenerateInput{}, errors.New("query parameter value is required")
		}
		return numbers.GenerateInput{}, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return numbers.GenerateInput{}, errs.Wrapf(err, "parse value %q", raw)
	}
	return numbers.GenerateInput{Value: &v}, nil
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, numbers.ErrOutOfRange) {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	logging.Error(
		logging.WithAttrs(r.Context(), slog.String("component", "transport.httpapi")),
		"request failed",
		slog.Any("err", errs.Loggable(err)),
	)
	writeError(w, r, http.StatusInternalServerError, errors.New(http.StatusText(http.StatusInternalServerError)))
}

func writeError(w http.ResponseWriter, _ *http.Request, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
