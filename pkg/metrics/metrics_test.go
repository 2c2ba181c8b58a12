package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/harvester/pkg/metrics"
)

func TestObserve(t *testing.T) {
	m := metrics.New(nil)

	m.ObserveDecision("agency", "create")
	m.ObserveDecision("agency", "create")
	m.ObserveDecision("agency", "skip")
	m.ObserveFailure("agency", "schema")
	m.ObserveRun("agency", "success", time.Now())
	m.ObserveExport(10, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("agency", "create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("agency", "skip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UnitFailures.WithLabelValues("agency", "schema")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("agency", "success")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.ExportedRecords))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExportRejected))

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveDecision("a", "create")
		m.ObserveFailure("a", "x")
		m.ObserveRun("a", "success", time.Now())
		m.ObserveExport(1, 0)
	})
}
