package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawl.
type Metrics struct {
	Registry             *prometheus.Registry
	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	ProductsParsedTotal  prometheus.Counter
	ProductsValidTotal   prometheus.Counter
	ValidationFailsTotal prometheus.Counter
	RetriesTotal         prometheus.Counter
	ErrorsTotal          *prometheus.CounterVec
	Authenticated        prometheus.Gauge
	QueueDepth           prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total page navigations issued by the crawler.",
		},
		[]string{"kind", "outcome"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "Page navigation latency by page kind.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	parsed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_products_parsed_total",
			Help: "Detail pages that produced a product record.",
		},
	)
	valid := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_products_valid_total",
			Help: "Product records that passed schema validation.",
		},
	)
	validationFails := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_validation_failures_total",
			Help: "Product records rejected by schema validation.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of crawl errors by type.",
		},
		[]string{"error_type"},
	)
	authenticated := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_authenticated",
			Help: "1 when the session logged in successfully.",
		},
	)
	queueDepth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_queue_depth",
			Help: "Requests waiting in the frontier.",
		},
	)

	registry.MustRegister(requests, requestDuration, parsed, valid, validationFails,
		retries, errorsTotal, authenticated, queueDepth)

	return &Metrics{
		Registry:             registry,
		RequestsTotal:        requests,
		RequestDuration:      requestDuration,
		ProductsParsedTotal:  parsed,
		ProductsValidTotal:   valid,
		ValidationFailsTotal: validationFails,
		RetriesTotal:         retries,
		ErrorsTotal:          errorsTotal,
		Authenticated:        authenticated,
		QueueDepth:           queueDepth,
	}
}

// IncRequest counts a navigation by page kind and outcome.
func (m *Metrics) IncRequest(kind, outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveDuration records a navigation duration.
func (m *Metrics) ObserveDuration(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) IncParsed() {
	if m == nil {
		return
	}
	m.ProductsParsedTotal.Inc()
}

func (m *Metrics) IncValid() {
	if m == nil {
		return
	}
	m.ProductsValidTotal.Inc()
}

func (m *Metrics) IncValidationFailure() {
	if m == nil {
		return
	}
	m.ValidationFailsTotal.Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

func (m *Metrics) SetAuthenticated(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.Authenticated.Set(1)
		return
	}
	m.Authenticated.Set(0)
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
