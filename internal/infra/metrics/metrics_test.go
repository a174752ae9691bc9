package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/fanout/internal/domain"
)

func TestRecordTransfer(t *testing.T) {
	m := New("test")

	m.RecordTransfer(domain.OutcomeOK, 100, time.Millisecond)
	m.RecordTransfer(domain.OutcomeOK, 50, time.Millisecond)
	m.RecordTransfer(domain.OutcomeSkipped, 0, 0)
	m.RecordTransfer(domain.OutcomeFailed, 10, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transfersTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transfersTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transfersTotal.WithLabelValues("failed")))
	assert.Equal(t, 160.0, testutil.ToFloat64(m.bytesTotal))
}

func TestWorkerGauge(t *testing.T) {
	m := New("test")

	m.WorkerStarted()
	m.WorkerStarted()
	m.WorkerDone()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.workersActive))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordTransfer(domain.OutcomeOK, 1, time.Second)
		m.WorkerStarted()
		m.WorkerDone()
	})
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New("fanout")
	m.RecordTransfer(domain.OutcomeOK, 1, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fanout_transfers_total{outcome="ok"} 1`)
}
