package service

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegistryMetrics exposes the subscriber's view as Prometheus gauges.
type RegistryMetrics struct {
	registry     *prometheus.Registry
	instances    *prometheus.GaugeVec
	applications prometheus.Gauge
	rebuilds     prometheus.Counter

	mu    sync.Mutex
	known map[string]struct{}
}

// NewRegistryMetrics registers the gauges on a dedicated registry.
func NewRegistryMetrics() *RegistryMetrics {
	m := &RegistryMetrics{
		registry: prometheus.NewRegistry(),
		instances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "myregistry",
			Name:      "instances",
			Help:      "Registered instances per application.",
		}, []string{"app"}),
		applications: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "myregistry",
			Name:      "applications",
			Help:      "Applications with at least one registered instance.",
		}),
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "myregistry",
			Name:      "cache_rebuilds_total",
			Help:      "Full rebuilds of the registry cache.",
		}),
		known: map[string]struct{}{},
	}
	m.registry.MustRegister(m.instances, m.applications, m.rebuilds)
	return m
}

// ObserveCounts sets one gauge per application and removes series of applications that vanished.
// Matches the RegistryCache.OnChange signature.
func (m *RegistryMetrics) ObserveCounts(counts map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name := range m.known {
		if _, ok := counts[name]; !ok {
			m.instances.DeleteLabelValues(name)
			delete(m.known, name)
		}
	}
	for name, n := range counts {
		m.instances.WithLabelValues(name).Set(float64(n))
		m.known[name] = struct{}{}
	}
	m.applications.Set(float64(len(counts)))
}

// IncRebuilds counts one full cache rebuild.
func (m *RegistryMetrics) IncRebuilds() {
	m.rebuilds.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *RegistryMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (m *RegistryMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
