package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newRecordingMetrics wires ReviewMetrics to an in-memory reader so tests
// can assert on the exported data points.
func newRecordingMetrics(t *testing.T) (*sdkmetric.ManualReader, *ReviewMetrics) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewReviewMetrics(provider.Meter("review-test"))
	require.NoError(t, err)
	return reader, m
}

func exportedMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findExported(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestNewReviewMetricsNilMeter(t *testing.T) {
	m, err := NewReviewMetrics(nil)
	require.Error(t, err)
	assert.Nil(t, m)
}

func TestRecordRunExportsCountersAndRatio(t *testing.T) {
	reader, m := newRecordingMetrics(t)

	m.RecordRun(context.Background(), TriggerHTTP, 25*time.Millisecond, []RuleOutcome{
		{RuleID: "BS-PETTY-CASH-MATCH", Status: "PASS"},
		{RuleID: "BS-UNDEPOSITED-FUNDS-ZERO", Status: "FAIL"},
		{RuleID: "BS-LOAN-BALANCE-MATCH", Status: "NOT_APPLICABLE"},
	})

	rm := exportedMetrics(t, reader)

	runs, ok := findExported(rm, "review_runs_total")
	require.True(t, ok)
	runSum, ok := runs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, runSum.DataPoints, 1)
	assert.Equal(t, int64(1), runSum.DataPoints[0].Value)
	trigger, found := runSum.DataPoints[0].Attributes.Value(attribute.Key("run.trigger"))
	require.True(t, found)
	assert.Equal(t, "http", trigger.AsString())

	results, ok := findExported(rm, "review_rule_results_total")
	require.True(t, ok)
	resultSum, ok := results.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, resultSum.DataPoints, 3, "one series per rule and status")

	duration, ok := findExported(rm, "review_run_duration_seconds")
	require.True(t, ok)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.025, hist.DataPoints[0].Sum, 1e-9)

	// One of two applicable rules passed; the NOT_APPLICABLE result must
	// not dilute the ratio.
	ratio, ok := findExported(rm, "review_run_pass_ratio")
	require.True(t, ok)
	gauge, ok := ratio.Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 0.5, gauge.DataPoints[0].Value, 1e-9)
}

func TestRecordRunAllNotApplicableSkipsRatio(t *testing.T) {
	reader, m := newRecordingMetrics(t)

	m.RecordRun(context.Background(), TriggerCLI, time.Millisecond, []RuleOutcome{
		{RuleID: "BS-PETTY-CASH-MATCH", Status: "NOT_APPLICABLE"},
	})

	rm := exportedMetrics(t, reader)

	_, ok := findExported(rm, "review_run_pass_ratio")
	assert.False(t, ok, "ratio has no defined value without applicable rules")

	runs, ok := findExported(rm, "review_runs_total")
	require.True(t, ok)
	runSum := runs.Data.(metricdata.Sum[int64])
	require.Len(t, runSum.DataPoints, 1)
	trigger, _ := runSum.DataPoints[0].Attributes.Value(attribute.Key("run.trigger"))
	assert.Equal(t, "cli", trigger.AsString())
}

func TestRecordRulesRegistered(t *testing.T) {
	reader, m := newRecordingMetrics(t)

	m.RecordRulesRegistered(context.Background(), 21)

	rm := exportedMetrics(t, reader)
	registered, ok := findExported(rm, "review_rules_registered")
	require.True(t, ok)
	gauge, ok := registered.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(21), gauge.DataPoints[0].Value)
}

func TestReviewMetricsNilReceiver(t *testing.T) {
	var m *ReviewMetrics

	// Nil is the disabled-metrics representation; recording must be a
	// no-op rather than a panic.
	m.RecordRun(context.Background(), TriggerHTTP, time.Millisecond, []RuleOutcome{
		{RuleID: "BS-PETTY-CASH-MATCH", Status: "PASS"},
	})
	m.RecordRulesRegistered(context.Background(), 21)
}
