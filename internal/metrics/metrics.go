// Package metrics defines the Prometheus collectors shared by the registry,
// the live-feed client and the HTTP layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pathfinder"

// Metrics holds every collector, registered on one Prometheus registry.
type Metrics struct {
	Registry *prometheus.Registry

	RegistryLoadDuration prometheus.Histogram
	RegistryEntities     *prometheus.GaugeVec

	FeedFetches       *prometheus.CounterVec
	FeedFetchDuration *prometheus.HistogramVec
	FeedTrips         *prometheus.GaugeVec

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry. Process and Go runtime
// collectors are included when withRuntime is set.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		RegistryLoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "load_duration_seconds",
			Help:      "Time spent bulk loading identifier maps from the store.",
			Buckets:   prometheus.DefBuckets,
		}),
		RegistryEntities: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "entities",
			Help:      "Identifiers held by the registry, by entity kind.",
		}, []string{"kind"}),

		FeedFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "fetches_total",
			Help:      "Live feed fetches by route marker and outcome.",
		}, []string{"marker", "outcome"}),
		FeedFetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "fetch_duration_seconds",
			Help:      "Live feed fetch latency including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"marker"}),
		FeedTrips: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "trips",
			Help:      "Trips returned by the latest successful fetch per route marker.",
		}, []string{"marker"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
