// Package metrics exposes Prometheus counters for the workspace core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// A nil *Collector is valid and records nothing, so packages can take one optionally.
type Collector struct {
	registry *prometheus.Registry

	StoreOperations *prometheus.CounterVec
	BusPublishes    *prometheus.CounterVec
	Migrations      *prometheus.CounterVec
	Conflicts       *prometheus.CounterVec
	UpstreamCalls   *prometheus.CounterVec
}

// NewCollector creates a collector registered on its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Key-value store operations by operation and result",
		}, []string{"op", "result"}),
		BusPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_publishes_total",
			Help:      "Events published on the change notification bus by topic",
		}, []string{"topic"}),
		Migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_migrations_total",
			Help:      "Stored collections migrated or reset by family and outcome",
		}, []string{"family", "outcome"}),
		Conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_revision_conflicts_total",
			Help:      "Revision conflicts observed while mutating collections",
		}, []string{"family"}),
		UpstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Calls to external collaborators by endpoint and result",
		}, []string{"endpoint", "result"}),
	}

	registry.MustRegister(
		c.StoreOperations,
		c.BusPublishes,
		c.Migrations,
		c.Conflicts,
		c.UpstreamCalls,
		prometheus.NewGoCollector(),
	)

	return c
}

// Handler returns the HTTP handler serving this collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) StoreOp(op string, err error) {
	if c == nil {
		return
	}
	c.StoreOperations.WithLabelValues(op, result(err)).Inc()
}

func (c *Collector) Published(topic string) {
	if c == nil {
		return
	}
	c.BusPublishes.WithLabelValues(topic).Inc()
}

func (c *Collector) Migrated(family, outcome string) {
	if c == nil {
		return
	}
	c.Migrations.WithLabelValues(family, outcome).Inc()
}

func (c *Collector) Conflict(family string) {
	if c == nil {
		return
	}
	c.Conflicts.WithLabelValues(family).Inc()
}

func (c *Collector) Upstream(endpoint string, err error) {
	if c == nil {
		return
	}
	c.UpstreamCalls.WithLabelValues(endpoint, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
