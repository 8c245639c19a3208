package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "replayscraper"

// Metrics holds the harvester's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	// Discovered counts references pushed to the queue, by source
	Discovered *prometheus.CounterVec
	// FetchFailures counts failed fetches, by component and error type
	FetchFailures *prometheus.CounterVec
	// Stored counts replays inserted into the store
	Stored prometheus.Counter
	// Duplicates counts references skipped because the replay was stored
	Duplicates prometheus.Counter
	// Dispatches counts scheduler dispatches, by job
	Dispatches *prometheus.CounterVec

	QueueDepth prometheus.Gauge
	InFlight   *prometheus.GaugeVec
	StoreSize  prometheus.Gauge
}

// New creates and registers every collector
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Discovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "references_discovered_total",
			Help:      "References pushed to the work queue by discovery sources.",
		}, []string{"source"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed fetches against the replay and ladder servers.",
		}, []string{"component", "type"}),
		Stored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replays_stored_total",
			Help:      "Replays inserted into the store.",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replays_duplicate_total",
			Help:      "References skipped because the replay was already stored.",
		}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_dispatches_total",
			Help:      "Units of work started by the scheduler.",
		}, []string{"job"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "References waiting to be resolved.",
		}),
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_in_flight",
			Help:      "Units of work currently running, by job.",
		}, []string{"job"}),
		StoreSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_size_bytes",
			Help:      "Size of the database file at the last size check.",
		}),
	}

	m.registry.MustRegister(
		m.Discovered,
		m.FetchFailures,
		m.Stored,
		m.Duplicates,
		m.Dispatches,
		m.QueueDepth,
		m.InFlight,
		m.StoreSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
