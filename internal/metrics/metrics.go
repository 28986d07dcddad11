package metrics

import (
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
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	rowsClassified *prometheus.CounterVec
	tradesTotal    *prometheus.CounterVec
	alertsTotal    *prometheus.CounterVec
	walletBalance  *prometheus.GaugeVec
	reportsStored  prometheus.Gauge
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
	r.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbot_runs_total",
			Help: "Total number of analysis runs",
		},
		[]string{"status"},
	)
	r.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signalbot_run_duration_seconds",
			Help:    "Analysis run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)
	r.rowsClassified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbot_rows_classified_total",
			Help: "Total number of indicator rows classified",
		},
		[]string{"action"},
	)
	r.tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbot_trades_total",
			Help: "Total number of simulated trade events",
		},
		[]string{"side"},
	)
	r.alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbot_alerts_total",
			Help: "Total number of alerts sent to notifiers",
		},
		[]string{"notifier", "status"},
	)
	r.walletBalance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "signalbot_wallet_balance",
			Help: "Simulated wallet balance after the latest run",
		},
		[]string{"symbol"},
	)
	r.reportsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalbot_reports_stored",
			Help: "Number of reports held in the report store",
		},
	)

	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.runDuration)
	reg.MustRegister(r.rowsClassified)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.alertsTotal)
	reg.MustRegister(r.walletBalance)
	reg.MustRegister(r.reportsStored)

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

// RecordRun records a finished run.
func (r *Registry) RecordRun(status string, duration float64) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(duration)
}

// RecordRows adds classified rows for an action.
func (r *Registry) RecordRows(action string, count int) {
	r.rowsClassified.WithLabelValues(action).Add(float64(count))
}

// RecordTrade records a simulated buy or sell.
func (r *Registry) RecordTrade(side string) {
	r.tradesTotal.WithLabelValues(side).Inc()
}

// RecordAlert records an alert delivery attempt.
func (r *Registry) RecordAlert(notifier, status string) {
	r.alertsTotal.WithLabelValues(notifier, status).Inc()
}

// SetWalletBalance sets the final wallet balance for a symbol.
func (r *Registry) SetWalletBalance(symbol string, balance float64) {
	r.walletBalance.WithLabelValues(symbol).Set(balance)
}

// SetReportsStored sets the report store size.
func (r *Registry) SetReportsStored(count int) {
	r.reportsStored.Set(float64(count))
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
