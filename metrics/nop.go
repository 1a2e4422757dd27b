package metrics

import "github.com/prometheus/client_golang/prometheus"

// NopRegistry discards every metric. It is used when no monitoring is configured.
type NopRegistry struct{}

// NewGaugeVec returns a GaugeVec that ignores all writes.
func (NopRegistry) NewGaugeVec(prometheus.GaugeOpts, []string) (GaugeVec, error) {
	return nopVec{}, nil
}

// NewCounterVec returns a CounterVec that ignores all writes.
func (NopRegistry) NewCounterVec(prometheus.CounterOpts, []string) (CounterVec, error) {
	return nopCounterVec{}, nil
}

type nopVec struct{}

func (nopVec) With(prometheus.Labels) Gauge { return nopMetric{} }

type nopCounterVec struct{}

func (nopCounterVec) With(prometheus.Labels) Counter { return nopMetric{} }

type nopMetric struct{}

func (nopMetric) Set(float64) {}
func (nopMetric) Add(float64) {}
func (nopMetric) Inc()        {}
