// Package metrics exposes Prometheus instruments for harvest and export runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the harvester instruments. All series are labeled by source.
type Metrics struct {
	Registry *prometheus.Registry

	Decisions       *prometheus.CounterVec
	UnitFailures    *prometheus.CounterVec
	Runs            *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	ExportedRecords prometheus.Gauge
	ExportRejected  prometheus.Counter
}

// New registers every instrument on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_decisions_total",
			Help: "Reconciliation decisions by source and action",
		}, []string{"source", "action"}),
		UnitFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_unit_failures_total",
			Help: "Records that failed to materialize, by source and error kind",
		}, []string{"source", "kind"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_runs_total",
			Help: "Harvest runs by source and outcome",
		}, []string{"source", "outcome"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvester_run_duration_seconds",
			Help:    "Duration of harvest runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 1800},
		}, []string{"source"}),
		ExportedRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "harvester_exported_records",
			Help: "Records in the last exported catalog",
		}),
		ExportRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "harvester_export_rejected_total",
			Help: "Records dropped from an export because they failed validation",
		}),
	}
}

// ObserveDecision counts one reconciliation decision.
func (m *Metrics) ObserveDecision(source, action string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(source, action).Inc()
}

// ObserveFailure counts one failed unit.
func (m *Metrics) ObserveFailure(source, kind string) {
	if m == nil {
		return
	}
	m.UnitFailures.WithLabelValues(source, kind).Inc()
}

// ObserveRun records the outcome and duration of a run.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObserveRun(source, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(source, outcome).Inc()
	m.RunDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

// ObserveExport records the size of an exported catalog and its rejects.
func (m *Metrics) ObserveExport(exported, rejected int) {
	if m == nil {
		return
	}
	m.ExportedRecords.Set(float64(exported))
	m.ExportRejected.Add(float64(rejected))
}
