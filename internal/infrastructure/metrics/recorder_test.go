package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"reqtx/internal/txscope"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	rec.RecordBegin(nil)
	rec.RecordBegin(errors.New("pool closed"))
	rec.RecordFinalize(txscope.DecisionCommit, txscope.StateCommitted, 3*time.Millisecond)
	rec.RecordFinalize(txscope.DecisionCommit, txscope.StateRolledBack, time.Millisecond)

	if got := testutil.ToFloat64(rec.begins.WithLabelValues("ok")); got != 1 {
		t.Fatalf("begins{ok} = %v", got)
	}
	if got := testutil.ToFloat64(rec.begins.WithLabelValues("error")); got != 1 {
		t.Fatalf("begins{error} = %v", got)
	}
	if got := testutil.ToFloat64(rec.finalized.WithLabelValues("commit", "rolled_back")); got != 1 {
		t.Fatalf("finalized{commit,rolled_back} = %v", got)
	}
}

func TestRecorderRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewRecorder(reg); err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	if _, err := NewRecorder(reg); err == nil {
		t.Fatalf("NewRecorder() expected duplicate registration error")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	rec.RecordFinalize(txscope.DecisionRollback, txscope.StateRolledBack, time.Millisecond)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `reqtx_tx_finalized_total{decision="rollback",state="rolled_back"} 1`) {
		t.Fatalf("metrics output missing finalize counter:\n%s", w.Body.String())
	}
}
