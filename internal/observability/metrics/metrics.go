// Package metrics provides Prometheus instrumentation for zktrails.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled     bool
	serviceName string
	register    sync.Once

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Verification metrics
	verificationTotal *prometheus.CounterVec

	// Settlement and ledger call metrics
	settlementTotal *prometheus.CounterVec
	gameHubTotal    *prometheus.CounterVec
	explorerCache   *prometheus.CounterVec

	// Session metrics
	sessionsActive  prometheus.Gauge
	sessionsExpired prometheus.Counter

	// Proof metrics
	proofTotal    *prometheus.CounterVec
	proofDuration prometheus.Histogram
)

// Init initializes the metrics system. Collectors are registered with the
// default registry once per process.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}

	register.Do(registerCollectors)
}

func registerCollectors() {
	// HTTP request counter
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration histogram
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	verificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zktrails_verification_total",
			Help: "Total number of mission verifications by method and result",
		},
		[]string{"method", "result"},
	)

	settlementTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zktrails_settlement_total",
			Help: "Total number of settlements by whether they reached the ledger",
		},
		[]string{"on_chain"},
	)

	gameHubTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zktrails_gamehub_calls_total",
			Help: "Total number of game hub contract calls by outcome",
		},
		[]string{"call", "outcome"},
	)

	explorerCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zktrails_explorer_cache_total",
			Help: "Ledger explorer cache lookups",
		},
		[]string{"result"},
	)

	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zktrails_sessions_active",
			Help: "Number of sessions in the STARTED state",
		},
	)

	sessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zktrails_sessions_expired_total",
			Help: "Total number of sessions abandoned by the sweeper",
		},
	)

	proofTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zktrails_proof_generation_total",
			Help: "Total number of location proof generations by status",
		},
		[]string{"status"},
	)

	proofDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zktrails_proof_generation_seconds",
			Help:    "Location proof generation latency in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 240},
		},
	)

	// Go runtime metrics are collected by the default registry.
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name for metric labels.
func ServiceName() string {
	return serviceName
}
