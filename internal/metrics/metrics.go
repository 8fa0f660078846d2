package metrics

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	barsLoaded       *prometheus.CounterVec
	lastSharpe       *prometheus.GaugeVec
	lastWinRate      *prometheus.GaugeVec
	jobsActive       *prometheus.GaugeVec
	cacheRequests    *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macross_backtests_total",
			Help: "Total number of backtests",
		},
		[]string{"status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "macross_backtest_duration_seconds",
			Help:    "Backtest duration in seconds, including data loading",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)
	r.barsLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macross_bars_loaded_total",
			Help: "Total number of daily bars loaded",
		},
		[]string{"source"},
	)
	r.lastSharpe = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "macross_last_sharpe_ratio",
			Help: "Annualised Sharpe ratio of the most recent backtest per symbol",
		},
		[]string{"symbol"},
	)
	r.lastWinRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "macross_last_win_rate",
			Help: "Win rate of the most recent backtest per symbol",
		},
		[]string{"symbol"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "macross_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)
	r.cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macross_cache_requests_total",
			Help: "Raw price cache lookups by result",
		},
		[]string{"result"},
	)

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.barsLoaded)
	reg.MustRegister(r.lastSharpe)
	reg.MustRegister(r.lastWinRate)
	reg.MustRegister(r.jobsActive)
	reg.MustRegister(r.cacheRequests)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordBacktestStats stores the headline statistics of a finished run.
// Undefined values are skipped so the gauge keeps its last real reading.
func (r *Registry) RecordBacktestStats(symbol string, sharpe, winRate float64) {
	if !math.IsNaN(sharpe) && !math.IsInf(sharpe, 0) {
		r.lastSharpe.WithLabelValues(symbol).Set(sharpe)
	}
	if !math.IsNaN(winRate) {
		r.lastWinRate.WithLabelValues(symbol).Set(winRate)
	}
}

// RecordBarsLoaded counts bars returned by a collector.
func (r *Registry) RecordBarsLoaded(source string, n int) {
	r.barsLoaded.WithLabelValues(source).Add(float64(n))
}

// RecordCacheRequest counts a cache lookup; result is "hit", "miss" or "error".
func (r *Registry) RecordCacheRequest(result string) {
	r.cacheRequests.WithLabelValues(result).Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
