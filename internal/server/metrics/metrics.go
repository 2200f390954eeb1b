// Package metrics holds the Prometheus instruments of the development backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the registration backend.
// Each instance owns its registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	RegistrationsCreated prometheus.Counter
	DuplicateRejections  prometheus.Counter
	RateLimited          prometheus.Counter
	CountriesReloads     *prometheus.CounterVec
	CountriesCacheHits   prometheus.Counter
	CountriesCacheMisses prometheus.Counter
}

// New creates a Metrics instance with every instrument registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regform_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "regform_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route", "method"}),
		RegistrationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "regform_registrations_created_total",
			Help: "Total number of registrations stored",
		}),
		DuplicateRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "regform_registrations_duplicate_total",
			Help: "Total number of registrations rejected because the username exists",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "regform_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
		CountriesReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regform_countries_reloads_total",
			Help: "Country seed file reloads by result",
		}, []string{"result"}),
		CountriesCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "regform_countries_cache_hits_total",
			Help: "Country list requests served from cache",
		}),
		CountriesCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "regform_countries_cache_misses_total",
			Help: "Country list requests that hit the database",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished request.
// Call with time.Now() taken at the start of the request.
func (m *Metrics) ObserveRequest(route, method string, status int, start time.Time) {
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
}

// IncrementRegistrationsCreated records a stored registration.
func (m *Metrics) IncrementRegistrationsCreated() {
	m.RegistrationsCreated.Inc()
}

// IncrementDuplicateRejections records a 409.
func (m *Metrics) IncrementDuplicateRejections() {
	m.DuplicateRejections.Inc()
}

// IncrementRateLimited records a 429.
func (m *Metrics) IncrementRateLimited() {
	m.RateLimited.Inc()
}

// ObserveCountriesReload records a seed file reload; ok=false on failure.
func (m *Metrics) ObserveCountriesReload(ok bool) {
	result := "success"
	if !ok {
		result = "error"
	}
	m.CountriesReloads.WithLabelValues(result).Inc()
}
