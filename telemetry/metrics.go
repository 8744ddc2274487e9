package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports controller counters to Prometheus.
// Labels are bounded (strategy, ability and tag names), never agent ids.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	tickDuration prometheus.Histogram
	ticks        prometheus.Counter
	agents       prometheus.Gauge
	activeZones  prometheus.Gauge
	heatCells    prometheus.Gauge
	sprays       prometheus.Counter
	transitions  *prometheus.CounterVec
	abilities    *prometheus.CounterVec
	intents      *prometheus.CounterVec
	swept        prometheus.Counter
}

// NewMetrics creates a metric set on its own registry so independent
// controllers never collide on registration.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "swarmmind_tick_duration_seconds",
			Help:    "Time spent in one controller tick",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "swarmmind_ticks_total",
			Help: "Controller ticks processed",
		}),
		agents: factory.NewGauge(prometheus.GaugeOpts{
			Name: "swarmmind_agents",
			Help: "Live agents processed in the last tick",
		}),
		activeZones: factory.NewGauge(prometheus.GaugeOpts{
			Name: "swarmmind_heat_active_zones",
			Help: "Heat zones that have not expired",
		}),
		heatCells: factory.NewGauge(prometheus.GaugeOpts{
			Name: "swarmmind_heat_cells",
			Help: "Heat cells stored, including expired cells awaiting compaction",
		}),
		sprays: factory.NewCounter(prometheus.CounterOpts{
			Name: "swarmmind_sprays_total",
			Help: "Player spray events folded into the heatmap",
		}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "swarmmind_strategy_transitions_total",
			Help: "Strategy transitions by target strategy",
		}, []string{"strategy"}),
		abilities: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "swarmmind_ability_intents_total",
			Help: "Ability intents emitted by kind",
		}, []string{"ability"}),
		intents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "swarmmind_intents_total",
			Help: "Movement intents emitted by blender tag",
		}, []string{"tag"}),
		swept: factory.NewCounter(prometheus.CounterOpts{
			Name: "swarmmind_agents_swept_total",
			Help: "Agents whose strategy state was released",
		}),
	}
}

// Observe counts a single controller event.
func (m *Metrics) Observe(e Event) {
	if m == nil {
		return
	}
	switch e.Type {
	case EventSpray:
		m.sprays.Inc()
	case EventTransition:
		m.transitions.WithLabelValues(e.To).Inc()
	case EventAbility:
		m.abilities.WithLabelValues(e.Ability).Inc()
	case EventIntent:
		m.intents.WithLabelValues(e.Tag).Inc()
	case EventSweep:
		m.swept.Inc()
	}
}

// ObserveTick records tick duration and end-of-tick gauges.
func (m *Metrics) ObserveTick(d time.Duration, agents, activeZones, heatCells int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	m.agents.Set(float64(agents))
	m.activeZones.Set(float64(activeZones))
	m.heatCells.Set(float64(heatCells))
}

// Registry returns the underlying registry, or nil.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metric set in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
