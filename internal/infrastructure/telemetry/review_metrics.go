package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Run triggers, recorded as the run.trigger attribute on run-level metrics.
const (
	TriggerHTTP = "http"
	TriggerCLI  = "cli"
)

// RuleOutcome is one rule's contribution to a finished run, reduced to the
// fields the metrics layer needs. A local type keeps this package from
// depending on the review domain.
type RuleOutcome struct {
	RuleID string
	Status string
}

// Status labels mirrored from the review domain for the pass ratio.
const (
	statusPass          = "PASS"
	statusNotApplicable = "NOT_APPLICABLE"
)

// reviewDurationBuckets covers everything from a warm in-memory run to a
// multi-second evaluation over large snapshots.
var reviewDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10}

// ReviewMetrics records review engine activity. A nil *ReviewMetrics is
// valid and records nothing, so call sites need no guard when metrics are
// switched off.
type ReviewMetrics struct {
	runs       metric.Int64Counter
	results    metric.Int64Counter
	duration   metric.Float64Histogram
	registered metric.Int64Gauge
	passRatio  metric.Float64Gauge
}

// NewReviewMetrics registers the review run instruments on meter.
func NewReviewMetrics(meter metric.Meter) (*ReviewMetrics, error) {
	if meter == nil {
		return nil, errors.New("telemetry: nil meter")
	}

	m := &ReviewMetrics{}
	var err error

	if m.runs, err = meter.Int64Counter("review_runs_total",
		metric.WithDescription("Completed review runs"),
	); err != nil {
		return nil, fmt.Errorf("create review_runs_total: %w", err)
	}
	if m.results, err = meter.Int64Counter("review_rule_results_total",
		metric.WithDescription("Rule results by rule id and status"),
	); err != nil {
		return nil, fmt.Errorf("create review_rule_results_total: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("review_run_duration_seconds",
		metric.WithDescription("Wall-clock duration of a full review run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(reviewDurationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("create review_run_duration_seconds: %w", err)
	}
	if m.registered, err = meter.Int64Gauge("review_rules_registered",
		metric.WithDescription("Rules in the active registry"),
	); err != nil {
		return nil, fmt.Errorf("create review_rules_registered: %w", err)
	}
	if m.passRatio, err = meter.Float64Gauge("review_run_pass_ratio",
		metric.WithDescription("Share of applicable rules that passed in the most recent run"),
	); err != nil {
		return nil, fmt.Errorf("create review_run_pass_ratio: %w", err)
	}

	return m, nil
}

// RecordRun records one finished run: the run counter and duration tagged
// with the trigger, one result count per rule, and the pass ratio over the
// applicable results. NOT_APPLICABLE rules stay out of the ratio so a
// mostly-disabled client does not read as mostly passing.
func (m *ReviewMetrics) RecordRun(ctx context.Context, trigger string, elapsed time.Duration, outcomes []RuleOutcome) {
	if m == nil {
		return
	}

	trig := metric.WithAttributes(attribute.String("run.trigger", trigger))
	m.runs.Add(ctx, 1, trig)
	m.duration.Record(ctx, elapsed.Seconds(), trig)

	applicable, passed := 0, 0
	for _, out := range outcomes {
		m.results.Add(ctx, 1, metric.WithAttributes(
			attribute.String("rule.id", out.RuleID),
			attribute.String("rule.status", out.Status),
		))
		if out.Status == statusNotApplicable {
			continue
		}
		applicable++
		if out.Status == statusPass {
			passed++
		}
	}
	if applicable > 0 {
		m.passRatio.Record(ctx, float64(passed)/float64(applicable), trig)
	}
}

// RecordRulesRegistered records the current registry size. Safe on a nil
// receiver, like RecordRun.
func (m *ReviewMetrics) RecordRulesRegistered(ctx context.Context, count int) {
	if m == nil {
		return
	}
	m.registered.Record(ctx, int64(count))
}
