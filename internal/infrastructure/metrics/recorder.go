// Package metrics exports request transaction outcomes to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reqtx/internal/errs"
	"reqtx/internal/txscope"
)

// Recorder implements txscope.Recorder.
type Recorder struct {
	begins    *prometheus.CounterVec
	finalized *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

var _ txscope.Recorder = (*Recorder)(nil)

func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		begins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqtx",
			Name:      "tx_begins_total",
			Help:      "Request transactions begun, by outcome.",
		}, []string{"outcome"}),
		finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqtx",
			Name:      "tx_finalized_total",
			Help:      "Request transactions finalized, by decision and resulting state.",
		}, []string{"decision", "state"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reqtx",
			Name:      "tx_finalize_seconds",
			Help:      "Time spent in commit or rollback.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"decision"}),
	}

	for _, c := range []prometheus.Collector{r.begins, r.finalized, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, errs.Wrap(err, "register transaction metrics")
		}
	}
	return r, nil
}

func (r *Recorder) RecordBegin(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.begins.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordFinalize(decision txscope.Decision, state txscope.State, elapsed time.Duration) {
	r.finalized.WithLabelValues(decision.String(), state.String()).Inc()
	r.duration.WithLabelValues(decision.String()).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
