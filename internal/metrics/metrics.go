// Package metrics exposes Prometheus counters for conversation turns,
// recipe generation, persistence, and timers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	turns               *prometheus.CounterVec
	turnDuration        *prometheus.HistogramVec
	persistenceFailures *prometheus.CounterVec
	generationFallbacks *prometheus.CounterVec
	timersScheduled     prometheus.Counter
	timersFired         prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "virtualchef_turns_total",
				Help: "Conversation turns by capability and routing rule",
			},
			[]string{"capability", "rule"},
		),
		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "virtualchef_turn_duration_seconds",
				Help:    "Turn handling duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"capability"},
		),
		persistenceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "virtualchef_persistence_failures_total",
				Help: "Best-effort store writes that failed and were swallowed",
			},
			[]string{"op"},
		),
		generationFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "virtualchef_generation_fallbacks_total",
				Help: "Recipe generations replaced by the fallback recipe",
			},
			[]string{"reason"},
		),
		timersScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "virtualchef_timers_scheduled_total",
			Help: "Step timers scheduled",
		}),
		timersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "virtualchef_timers_fired_total",
			Help: "Step timers delivered by the poller",
		}),
	}
	reg.MustRegister(
		m.turns,
		m.turnDuration,
		m.persistenceFailures,
		m.generationFallbacks,
		m.timersScheduled,
		m.timersFired,
	)
	return m
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordTurn counts a handled turn.
func (m *Metrics) RecordTurn(capability, rule string, d time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(capability, rule).Inc()
	m.turnDuration.WithLabelValues(capability).Observe(d.Seconds())
}

// RecordPersistenceFailure counts a swallowed store error.
func (m *Metrics) RecordPersistenceFailure(op string) {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(op).Inc()
}

// RecordFallback counts a fallback recipe served instead of a generated one.
func (m *Metrics) RecordFallback(reason string) {
	if m == nil {
		return
	}
	m.generationFallbacks.WithLabelValues(reason).Inc()
}

// RecordTimersScheduled adds n scheduled timers.
func (m *Metrics) RecordTimersScheduled(n int) {
	if m == nil {
		return
	}
	m.timersScheduled.Add(float64(n))
}

// RecordTimersFired adds n delivered timers.
func (m *Metrics) RecordTimersFired(n int) {
	if m == nil {
		return
	}
	m.timersFired.Add(float64(n))
}
