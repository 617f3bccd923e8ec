package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coursehub"

// Collector owns the Prometheus series for the API. Each Collector has a
// private registry.
type Collector struct {
	registry *prometheus.Registry

	enrollments   *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	lockWait      *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,

		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollment_outcomes_total",
			Help:      "Enrollment decisions by outcome (accepted, rejected, conflict).",
		}, []string{"outcome"}),

		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollment_rejections_total",
			Help:      "Per-course enrollment rejections by reason.",
		}, []string{"reason"}),

		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrollment_lock_wait_seconds",
			Help:      "Time spent waiting for an enrollment lock.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"scope"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),

		httpDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		c.enrollments, c.rejections, c.lockWait, c.httpRequests, c.httpDurations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Accepted(n int) {
	c.enrollments.WithLabelValues("accepted").Add(float64(n))
}

func (c *Collector) Rejected(reason string) {
	c.enrollments.WithLabelValues("rejected").Inc()
	c.rejections.WithLabelValues(reason).Inc()
}

func (c *Collector) Conflict() {
	c.enrollments.WithLabelValues("conflict").Inc()
}

// LockWaited records how long acquiring a lock of the given scope took,
// whether or not it succeeded.
func (c *Collector) LockWaited(scope string, d time.Duration) {
	c.lockWait.WithLabelValues(scope).Observe(d.Seconds())
}

// ObserveHTTP records one finished request. route should be the matched
// pattern, not the raw path, to keep cardinality bounded.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDurations.WithLabelValues(method, route).Observe(d.Seconds())
}
