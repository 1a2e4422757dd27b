package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for ActionsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ActionMetrics records the store actions run by the application.
type ActionMetrics struct {
	total    CounterVec
	inFlight GaugeVec
}

// NewActionMetrics registers the action metrics with the given registry.
func NewActionMetrics(reg Registry) (*ActionMetrics, error) {
	total, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "reactivities_actions_total",
		Help: "Store actions completed, by outcome",
	}, []string{"store", "action", "outcome"})
	if err != nil {
		return nil, fmt.Errorf("creating actions counter: %w", err)
	}

	inFlight, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reactivities_actions_in_flight",
		Help: "Store actions currently waiting on the API",
	}, []string{"store", "action"})
	if err != nil {
		return nil, fmt.Errorf("creating in-flight gauge: %w", err)
	}

	return &ActionMetrics{total: total, inFlight: inFlight}, nil
}

// NopActionMetrics returns ActionMetrics backed by a NopRegistry.
func NopActionMetrics() *ActionMetrics {
	m, _ := NewActionMetrics(NopRegistry{})
	return m
}

// Started marks an action as in flight and returns a function that records its
// outcome. The returned function must be called exactly once.
func (m *ActionMetrics) Started(store, action string) func(err error) {
	labels := prometheus.Labels{"store": store, "action": action}
	m.inFlight.With(labels).Add(1)

	return func(err error) {
		m.inFlight.With(labels).Add(-1)
		outcome := OutcomeSuccess
		if err != nil {
			outcome = OutcomeFailure
		}
		m.total.With(prometheus.Labels{"store": store, "action": action, "outcome": outcome}).Inc()
	}
}
