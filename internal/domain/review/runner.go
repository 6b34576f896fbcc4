package review

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/closebooks/backend/internal/domain/shared"
)

const tracerName = "github.com/closebooks/backend/internal/domain/review"

// Runner executes registered rules against a context and assembles the run
// report. Rules share no mutable state, so evaluation may be parallelized;
// results always land in registration order.
type Runner struct {
	registry    *Registry
	logger      *zap.Logger
	tracer      trace.Tracer
	parallelism int
}

// RunnerOption customizes a Runner
type RunnerOption func(*Runner)

// WithLogger attaches a logger (zap.NewNop is used otherwise)
func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithParallelism caps concurrent rule evaluations. Values below 2 keep the
// run sequential.
func WithParallelism(n int) RunnerOption {
	return func(r *Runner) {
		r.parallelism = n
	}
}

// NewRunner creates a runner over the given registry
func NewRunner(registry *Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry:    registry,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer(tracerName),
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates every registered rule against rc, in registration order
func (r *Runner) Run(ctx context.Context, rc RuleContext) RunReport {
	return r.run(ctx, rc, r.registry.Rules())
}

// RunSubset evaluates only the named rules (still in registration order).
// An unknown rule id is rejected before anything runs.
func (r *Runner) RunSubset(ctx context.Context, rc RuleContext, ids []string) (RunReport, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.registry.Get(id); !ok {
			return RunReport{}, fmt.Errorf("%w: rule '%s' not found", shared.ErrNotFound, id)
		}
		want[id] = true
	}
	var rules []Rule
	for _, rule := range r.registry.Rules() {
		if want[rule.ID()] {
			rules = append(rules, rule)
		}
	}
	return r.run(ctx, rc, rules), nil
}

func (r *Runner) run(ctx context.Context, rc RuleContext, rules []Rule) RunReport {
	runCtx, span := r.tracer.Start(ctx, "review.run", trace.WithAttributes(
		attribute.String("review.period_end", rc.PeriodEnd.String()),
		attribute.Int("review.rule_count", len(rules)),
	))
	defer span.End()

	results := make([]RuleResult, len(rules))
	if r.parallelism > 1 {
		g := new(errgroup.Group)
		g.SetLimit(r.parallelism)
		for i, rule := range rules {
			g.Go(func() error {
				results[i] = r.evaluate(runCtx, rule, rc)
				return nil
			})
		}
		// evaluate never returns an error; panics become results
		_ = g.Wait()
	} else {
		for i, rule := range rules {
			results[i] = r.evaluate(runCtx, rule, rc)
		}
	}

	report := NewRunReport(rc.PeriodEnd, results)
	r.logger.Info("review run completed",
		zap.String("run_id", report.RunID),
		zap.String("period_end", rc.PeriodEnd.String()),
		zap.Int("rules", len(results)),
		zap.Int("failed", report.Totals[StatusFail]),
		zap.Int("needs_review", report.Totals[StatusNeedsReview]),
	)
	return report
}

// evaluate runs one rule inside a recover guard: a panicking rule yields a
// NEEDS_REVIEW result and never aborts the run.
func (r *Runner) evaluate(ctx context.Context, rule Rule, rc RuleContext) (res RuleResult) {
	_, span := r.tracer.Start(ctx, "review.rule", trace.WithAttributes(
		attribute.String("rule.id", rule.ID()),
	))
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("rule panicked",
				zap.String("rule_id", rule.ID()),
				zap.Any("panic", rec),
			)
			res = internalErrorResult(rule, rec)
		}
		span.SetAttributes(attribute.String("rule.status", res.Status.String()))
		span.End()
		r.logger.Debug("rule evaluated",
			zap.String("rule_id", rule.ID()),
			zap.String("status", res.Status.String()),
			zap.Duration("duration", time.Since(start)),
		)
	}()
	return rule.Evaluate(rc)
}

func internalErrorResult(rule Rule, cause any) RuleResult {
	return RuleResult{
		RuleID:                 rule.ID(),
		RuleTitle:              rule.Title(),
		BestPracticesReference: rule.BestPracticesReference(),
		Sources:                rule.Sources(),
		Status:                 StatusNeedsReview,
		Severity:               SeverityForStatus(StatusNeedsReview),
		Summary:                fmt.Sprintf("Internal error while evaluating rule: %v.", cause),
		HumanAction:            "Escalate to engineering; the rule implementation failed on this input.",
	}
}
