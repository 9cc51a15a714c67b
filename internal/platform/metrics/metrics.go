package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors on a private registry.
// All methods are safe on a nil *Metrics so callers can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	queueOutcomes    *prometheus.CounterVec
	packagesIngested prometheus.Counter
	packagesShipped  prometheus.Counter
	packagesOrphaned prometheus.Counter

	optimizeDuration prometheus.Histogram
	optimizeNodes    prometheus.Histogram

	queueLength   prometheus.Gauge
	backlogLength prometheus.Gauge
	manifestSize  prometheus.Gauge
	manifestUsed  prometheus.Gauge
	freeBins      prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		queueOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_outcomes_total",
			Help:      "Arrival queue processing steps by outcome.",
		}, []string{"outcome"}),
		packagesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_ingested_total",
			Help:      "Packages placed on the conveyor.",
		}),
		packagesShipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_shipped_total",
			Help:      "Packages removed from the system by unload or dispatch.",
		}),
		packagesOrphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_orphaned_total",
			Help:      "Displaced packages that found no bin during a rollback.",
		}),
		optimizeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimize_duration_seconds",
			Help:      "Wall time of the truck load search.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		optimizeNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimize_nodes_visited",
			Help:      "Search nodes visited per truck load optimization.",
			Buckets:   prometheus.ExponentialBuckets(1, 8, 10),
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Packages waiting on the conveyor.",
		}),
		backlogLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backlog_length",
			Help:      "Packages that could not be placed.",
		}),
		manifestSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "manifest_size",
			Help:      "Packages loaded on the truck.",
		}),
		manifestUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "manifest_used_capacity",
			Help:      "Volume loaded on the truck.",
		}),
		freeBins: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "free_bins",
			Help:      "Storage bins without an occupant.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		m.queueOutcomes, m.packagesIngested, m.packagesShipped, m.packagesOrphaned,
		m.optimizeDuration, m.optimizeNodes,
		m.queueLength, m.backlogLength, m.manifestSize, m.manifestUsed, m.freeBins,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) QueueOutcome(outcome string) {
	if m == nil {
		return
	}
	m.queueOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Ingested() {
	if m == nil {
		return
	}
	m.packagesIngested.Inc()
}

func (m *Metrics) Shipped(n int) {
	if m == nil {
		return
	}
	m.packagesShipped.Add(float64(n))
}

func (m *Metrics) Orphaned(n int) {
	if m == nil {
		return
	}
	m.packagesOrphaned.Add(float64(n))
}

func (m *Metrics) Optimized(d time.Duration, nodes int) {
	if m == nil {
		return
	}
	m.optimizeDuration.Observe(d.Seconds())
	m.optimizeNodes.Observe(float64(nodes))
}

// Levels publishes the current sizes of the engine structures.
func (m *Metrics) Levels(queue, backlog, manifest, manifestUsed, freeBins int) {
	if m == nil {
		return
	}
	m.queueLength.Set(float64(queue))
	m.backlogLength.Set(float64(backlog))
	m.manifestSize.Set(float64(manifest))
	m.manifestUsed.Set(float64(manifestUsed))
	m.freeBins.Set(float64(freeBins))
}

func (m *Metrics) HTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
