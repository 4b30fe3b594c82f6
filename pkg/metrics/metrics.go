package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	RecordOperationsTotal *prometheus.CounterVec
	VerifyResultsTotal    *prometheus.CounterVec
	StrandedSagasGauge    prometheus.Gauge

	LedgerCallDuration *prometheus.HistogramVec
	LedgerCallFailures *prometheus.CounterVec

	DBQueryDuration *prometheus.HistogramVec
	DBConnections   prometheus.Gauge

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		RecordOperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "records",
			Name:      "operations_total",
			Help:      "Record operations by type and outcome.",
		}, []string{"operation", "outcome"}),

		VerifyResultsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "records",
			Name:      "verify_results_total",
			Help:      "Consistency check results by classification.",
		}, []string{"result"}),

		StrandedSagasGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "records",
			Name:      "stranded_sagas",
			Help:      "Operations whose compensation failed and await reconciliation. Alert if non-zero.",
		}),

		LedgerCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "ledger",
			Name:      "call_duration_seconds",
			Help:      "Ledger gateway call latency distribution.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method"}),

		LedgerCallFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "ledger",
			Name:      "call_failures_total",
			Help:      "Failed ledger gateway calls by method.",
		}, []string{"method"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency distribution.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"operation", "table"}),

		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "open_connections",
			Help:      "Current number of open database connections.",
		}),

		AuditEntriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

// RecordOperation satisfies the record service metrics hook.
func (c *Collector) RecordOperation(operation, outcome string) {
	c.RecordOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// VerifyOutcome satisfies the record service metrics hook.
func (c *Collector) VerifyOutcome(result string) {
	c.VerifyResultsTotal.WithLabelValues(result).Inc()
}

// ObserveLedgerCall satisfies the ledger client observer hook.
func (c *Collector) ObserveLedgerCall(method string, d time.Duration, err error) {
	c.LedgerCallDuration.WithLabelValues(method).Observe(d.Seconds())
	if err != nil {
		c.LedgerCallFailures.WithLabelValues(method).Inc()
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
