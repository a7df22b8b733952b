package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"demandlab/pkg/pipeline"
)

// Metrics exports backtest progress to Prometheus. It implements
// pipeline.Observer.
type Metrics struct {
	pairs        *prometheus.CounterVec
	pairDuration *prometheus.HistogramVec
	degeneracies *prometheus.CounterVec
	runDuration  prometheus.Gauge
	undecided    prometheus.Gauge
	wins         *prometheus.GaugeVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "demandlab",
			Name:      "pairs_total",
			Help:      "Evaluated (block, model) pairs by outcome.",
		}, []string{"model", "outcome"}),
		pairDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "demandlab",
			Name:      "pair_duration_seconds",
			Help:      "Fit, predict and score time of one (block, model) pair.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"model"}),
		degeneracies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "demandlab",
			Name:      "degeneracies_total",
			Help:      "Numeric degeneracy flags raised on pairs.",
		}, []string{"model", "kind"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "demandlab",
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last backtest run.",
		}),
		undecided: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "demandlab",
			Name:      "undecided_blocks",
			Help:      "Blocks of the last run where no model had a defined R².",
		}),
		wins: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "demandlab",
			Name:      "block_wins",
			Help:      "Blocks won per model in the last run.",
		}, []string{"model"}),
	}
	reg.MustRegister(m.pairs, m.pairDuration, m.degeneracies, m.runDuration, m.undecided, m.wins)
	return m
}

func (m *Metrics) ObservePair(r *pipeline.BlockResult, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case r.Err != nil:
		outcome = "error"
	case !r.Metrics.Defined():
		outcome = "undefined"
	}
	m.pairs.WithLabelValues(r.Model, outcome).Inc()
	m.pairDuration.WithLabelValues(r.Model).Observe(elapsed.Seconds())
	for _, f := range r.Flags {
		m.degeneracies.WithLabelValues(r.Model, string(f.Kind)).Inc()
	}
}

// ObserveRun records the totals of a finished run.
func (m *Metrics) ObserveRun(res *pipeline.Result, elapsed time.Duration) {
	m.runDuration.Set(elapsed.Seconds())
	wins := make(map[string]int, len(res.Models))
	undecided := 0
	for i := range res.Blocks {
		if res.Blocks[i].Undecided() {
			undecided++
			continue
		}
		wins[res.Blocks[i].Winner]++
	}
	for _, name := range res.Models {
		m.wins.WithLabelValues(name).Set(float64(wins[name]))
	}
	m.undecided.Set(float64(undecided))
}
