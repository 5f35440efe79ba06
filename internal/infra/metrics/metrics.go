package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stashledger"

// Collector holds the reconciliation metrics.
type Collector struct {
	results  *prometheus.CounterVec
	alerts   *prometheus.CounterVec
	storage  *prometheus.GaugeVec
	duration *prometheus.HistogramVec
	gatherer prometheus.Gatherer
}

// New registers the collector's metrics with reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg *prometheus.Registry) *Collector {
	c := &Collector{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Reported reconciliation results by source, status and reason.",
		}, []string{"source", "status", "reason"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts attached to accepted transactions.",
		}, []string{"reason"}),
		storage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_quantity",
			Help:      "Current storage quantity per category.",
		}, []string{"category"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "Time from receipt to report.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"source"}),
		gatherer: reg,
	}

	reg.MustRegister(c.results, c.alerts, c.storage, c.duration)

	return c
}

func (c *Collector) ObserveResult(source, status, reason string, took time.Duration) {
	c.results.WithLabelValues(source, status, reason).Inc()
	c.duration.WithLabelValues(source).Observe(took.Seconds())
}

func (c *Collector) ObserveAlert(reason string) {
	c.alerts.WithLabelValues(reason).Inc()
}

func (c *Collector) SetStorage(category string, quantity uint64) {
	c.storage.WithLabelValues(category).Set(float64(quantity))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
