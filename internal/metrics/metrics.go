// Package metrics holds the prometheus collectors for query execution.
//
// Collectors live on a private registry so that embedding the engine never
// pollutes the host's default registry. Hosts that want to expose them can
// register Registry with their own handler.
package metrics

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the registry every collector below is registered with.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// CollectTotal counts plan executions by outcome (ok, error)
	CollectTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "colframe",
			Name:      "collect_total",
			Help:      "Number of lazy plan executions",
		},
		[]string{"outcome"},
	)

	// CollectDuration observes the wall time of plan executions in seconds
	CollectDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "colframe",
			Name:      "collect_duration_seconds",
			Help:      "Duration of lazy plan executions",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	// OptimizerRewrites counts plan rewrites by rule
	OptimizerRewrites = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "colframe",
			Name:      "optimizer_rewrites_total",
			Help:      "Number of plan rewrites applied by the optimizer",
		},
		[]string{"rule"},
	)

	// CacheLookups counts cache node lookups by result (hit, miss)
	CacheLookups = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "colframe",
			Name:      "cache_lookups_total",
			Help:      "Number of cache node lookups",
		},
		[]string{"result"},
	)

	// RowsRead counts rows decoded by codec format
	RowsRead = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "colframe",
			Name:      "rows_read_total",
			Help:      "Number of rows decoded by readers",
		},
		[]string{"format"},
	)

	// RowsWritten counts rows encoded by codec format
	RowsWritten = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "colframe",
			Name:      "rows_written_total",
			Help:      "Number of rows encoded by writers",
		},
		[]string{"format"},
	)
)

// ObserveCollect records one plan execution
func ObserveCollect(start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CollectTotal.WithLabelValues(outcome).Inc()
	CollectDuration.Observe(time.Since(start).Seconds())
}

// Sample is one gathered counter or histogram value
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Snapshot gathers every collector into a flat, name-sorted list. Histograms
// report their sample count.
func Snapshot() ([]Sample, error) {
	families, err := Registry.Gather()
	if err != nil {
		return nil, err
	}
	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			s := Sample{Name: mf.GetName(), Labels: map[string]string{}}
			for _, lp := range m.GetLabel() {
				s.Labels[lp.GetName()] = lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				s.Value = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				s.Value = float64(m.GetHistogram().GetSampleCount())
			case m.GetGauge() != nil:
				s.Value = m.GetGauge().GetValue()
			}
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
