// Package events turns domain events into Prometheus metrics.
package events

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/quotedesk/internal/domain"
	"github.com/jsamuelsen/quotedesk/internal/ports"
)

const namespace = "quotedesk"

// Gauges are sampled at scrape time. Nil functions are not registered.
type Gauges struct {
	Visitors func() int
	LoggedIn func() int
}

// Metrics is a ports.EventPublisher that counts domain events.
type Metrics struct {
	quotesPicked *prometheus.CounterVec
	transitions  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer, gauges Gauges) (*Metrics, error) {
	m := &Metrics{
		quotesPicked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_picked_total",
			Help:      "Random quotes served, by catalog index.",
		}, []string{"index"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session toggle transition events, by event and direction.",
		}, []string{"event", "direction"}),
	}

	collectors := []prometheus.Collector{m.quotesPicked, m.transitions}
	collectors = appendGauge(collectors, "visitors", "Visitors currently held in memory.", gauges.Visitors)
	collectors = appendGauge(collectors, "sessions_logged_in", "Visitors currently logged in.", gauges.LoggedIn)

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering event metrics: %w", err)
		}
	}

	return m, nil
}

func appendGauge(collectors []prometheus.Collector, name, help string, fn func() int) []prometheus.Collector {
	if fn == nil {
		return collectors
	}

	return append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(fn()) }))
}

// Publish implements ports.EventPublisher. Unknown events are ignored.
func (m *Metrics) Publish(_ context.Context, event ports.Event) error {
	switch e := event.Payload().(type) {
	case domain.QuotePicked:
		m.quotesPicked.WithLabelValues(strconv.Itoa(e.Index)).Inc()

	case domain.SessionTransition:
		direction := string(e.Direction)
		if direction == "" {
			direction = "invalid"
		}

		m.transitions.WithLabelValues(e.Type, direction).Inc()
	}

	return nil
}
