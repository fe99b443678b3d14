package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a dedicated registry so that
// several services (and tests) never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	gamesCreated  *prometheus.CounterVec
	joins         *prometheus.CounterVec
	moves         *prometheus.CounterVec
	gamesFinished prometheus.Counter
	createLatency prometheus.Histogram
}

// NewMetrics creates and registers the service collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gamesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chopsticks_games_created_total",
				Help: "Games creation attempts by result",
			},
			[]string{"result"},
		),
		joins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chopsticks_joins_total",
				Help: "Join requests by result",
			},
			[]string{"result"},
		),
		moves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chopsticks_moves_total",
				Help: "Moves by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		gamesFinished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chopsticks_games_finished_total",
				Help: "Games that reached a winner",
			},
		),
		createLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chopsticks_create_duration_seconds",
				Help:    "Duration of game creation including session id issuance",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	m.registry.MustRegister(
		m.gamesCreated,
		m.joins,
		m.moves,
		m.gamesFinished,
		m.createLatency,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
