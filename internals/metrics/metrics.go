// Package metrics holds the prometheus collectors of the roster engine.
package metrics

import (
	"strings"
	"time"

	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/prometheus/client_golang/prometheus"
)

type Registry struct {
	Operations     *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	WaiversCleared prometheus.Counter
	CapDrift       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_operations_total",
				Help: "Roster engine operations by outcome",
			},
			[]string{"op", "result"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "roster_operation_duration_seconds",
				Help:    "Time spent in a roster engine unit of work",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"op"},
		),
		WaiversCleared: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "roster_waivers_cleared_total",
				Help: "Waivers cleared by the sweep",
			},
		),
		CapDrift: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roster_cap_drift_corrections_total",
				Help: "Cached available cap values rewritten by reconciliation",
			},
			[]string{"team"},
		),
	}
	reg.MustRegister(r.Operations, r.Duration, r.WaiversCleared, r.CapDrift)
	return r
}

// Result turns an operation error into the result label.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := errs.KindOf(err); kind != "" {
		return strings.ToLower(string(kind))
	}
	return "error"
}

// Observe records one finished operation. A nil registry records nothing.
func (r *Registry) Observe(op string, start time.Time, err error) {
	if r == nil {
		return
	}
	r.Operations.WithLabelValues(op, Result(err)).Inc()
	r.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (r *Registry) Cleared(n int) {
	if r == nil || n == 0 {
		return
	}
	r.WaiversCleared.Add(float64(n))
}

func (r *Registry) Drift(teamID string) {
	if r == nil {
		return
	}
	r.CapDrift.WithLabelValues(teamID).Inc()
}
