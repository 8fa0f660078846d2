package metrics

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure the registry implements prometheus.Gatherer interface
var _ prometheus.Gatherer = (*Registry)(nil)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NotNil(t, reg)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	// Should have go runtime metrics at minimum
	assert.NotEmpty(t, mfs)
}

func TestRegistry_RecordRequest_StatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{202, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			reg := NewRegistry()
			reg.RecordRequest("GET", "/api/v1/backtests", tt.status, 0.01)

			got := testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("GET", "/api/v1/backtests", tt.expected))
			assert.Equal(t, 1.0, got, "status %d", tt.status)
		})
	}
}

func TestRegistry_InFlight(t *testing.T) {
	reg := NewRegistry()

	reg.InFlightInc()
	reg.InFlightInc()
	reg.InFlightDec()

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.httpRequestsInFlight))
}

func TestRegistry_RecordBacktest(t *testing.T) {
	reg := NewRegistry()

	reg.RecordBacktest("success", 0.2)
	reg.RecordBacktest("success", 0.3)
	reg.RecordBacktest("failed", 0.1)

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.backtestsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.backtestsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(reg.backtestDuration))
}

func TestRegistry_RecordBacktestStats(t *testing.T) {
	reg := NewRegistry()

	reg.RecordBacktestStats("SPY", 0.81, 0.53)
	assert.InDelta(t, 0.81, testutil.ToFloat64(reg.lastSharpe.WithLabelValues("SPY")), 1e-12)
	assert.InDelta(t, 0.53, testutil.ToFloat64(reg.lastWinRate.WithLabelValues("SPY")), 1e-12)

	// Undefined statistics leave the previous reading in place
	reg.RecordBacktestStats("SPY", math.NaN(), math.NaN())
	assert.InDelta(t, 0.81, testutil.ToFloat64(reg.lastSharpe.WithLabelValues("SPY")), 1e-12)
	assert.InDelta(t, 0.53, testutil.ToFloat64(reg.lastWinRate.WithLabelValues("SPY")), 1e-12)
}

func TestRegistry_LoaderCounters(t *testing.T) {
	reg := NewRegistry()

	reg.RecordBarsLoaded("yahoo", 2264)
	reg.RecordBarsLoaded("yahoo", 10)
	reg.RecordCacheRequest("hit")
	reg.RecordCacheRequest("miss")
	reg.RecordCacheRequest("miss")
	reg.SetJobsActive("backtest", 3)

	assert.Equal(t, 2274.0, testutil.ToFloat64(reg.barsLoaded.WithLabelValues("yahoo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.cacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.cacheRequests.WithLabelValues("miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(reg.jobsActive.WithLabelValues("backtest")))
}

func TestRegistry_DurationHistogram(t *testing.T) {
	reg := NewRegistry()

	reg.RecordRequest("POST", "/api/v1/backtests", 202, 0.123)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "http_request_duration_seconds" {
			found = true
			for _, m := range mf.GetMetric() {
				hist := m.GetHistogram()
				assert.Equal(t, uint64(1), hist.GetSampleCount())
				assert.InDelta(t, 0.123, hist.GetSampleSum(), 1e-9)
			}
		}
	}
	assert.True(t, found, "expected http_request_duration_seconds metric")
}
