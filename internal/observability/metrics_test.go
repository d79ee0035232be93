package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/study-share/internal/config"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/admin/reports", "GET", 200, 5*time.Millisecond)
	m.RecordError("/admin/reports", "GET", "FORBIDDEN")
	m.RecordGuardDecision(true)
	m.RecordGuardDecision(false)
	m.RecordGuardDecision(false)
	m.RecordDispatch("failed", "timeout")
	m.RecordModeration("report_filed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCount.WithLabelValues("/admin/reports", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCount.WithLabelValues("/admin/reports", "GET", "FORBIDDEN")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.guardDecisions.WithLabelValues("deny")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchResults.WithLabelValues("failed", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.moderation.WithLabelValues("report_filed")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordGuardDecision(true)
	m.RecordDispatch("sent", "")
	m.RecordModeration("x")
	assert.NotNil(t, m.Registry())
}

func TestCaptureErrorWithoutInit(t *testing.T) {
	ok, err := InitSentry(config.SentryConfig{}, config.AppConfig{Name: "study-share"})
	assert.NoError(t, err)
	assert.False(t, ok)
	CaptureError(assert.AnError, map[string]string{"component": "test"})
	CaptureError(nil, nil)
}
