package timeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/tgsync/internal/synch"
)

// Metrics exports playback timing to Prometheus.
//
// Lateness of Time-domain events is the primary quality metric of the
// software generator: a listener or scheduler delay shows up here rather
// than as an error.
type Metrics struct {
	lateness *prometheus.HistogramVec
	events   *prometheus.CounterVec
	runs     *prometheus.CounterVec
}

// NewMetrics creates the playback metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lateness: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tgsync_event_lateness_seconds",
			Help:    "Delay between a Time-domain event's deadline and its notification",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		}, []string{"generator", "type"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tgsync_events_fired_total",
			Help: "Events fired by software generators by type and domain",
		}, []string{"generator", "type", "domain"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tgsync_playback_runs_total",
			Help: "Playback runs by outcome (completed|stopped|cancelled)",
		}, []string{"generator", "outcome"}),
	}
	reg.MustRegister(m.lateness, m.events, m.runs)
	return m
}

func (m *Metrics) observeEvent(generator string, ev Event) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(generator, ev.Type.String(), ev.Coordinate.Domain().String()).Inc()
	if ev.Coordinate.Domain() == synch.DomainTime {
		m.lateness.WithLabelValues(generator, ev.Type.String()).Observe(ev.Lateness.Seconds())
	}
}

func (m *Metrics) observeRun(generator, outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(generator, outcome).Inc()
}

// Stats summarizes the lateness of the last (or current) playback.
type Stats struct {
	// Fired counts every event notified.
	Fired int

	// Timed counts events whose deadline came from the Time domain.
	Timed int

	MeanLateness time.Duration
	MaxLateness  time.Duration

	sum time.Duration
}

func (s *Stats) observe(ev Event) {
	s.Fired++
	if ev.Coordinate.Domain() != synch.DomainTime {
		return
	}
	s.Timed++
	s.sum += ev.Lateness
	s.MeanLateness = s.sum / time.Duration(s.Timed)
	if ev.Lateness > s.MaxLateness {
		s.MaxLateness = ev.Lateness
	}
}
