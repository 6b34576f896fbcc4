package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/closebooks/backend/internal/domain/review"
	"github.com/closebooks/backend/internal/infrastructure/logger"
	"github.com/closebooks/backend/internal/infrastructure/manifest"
	"github.com/closebooks/backend/internal/infrastructure/telemetry"
	"github.com/closebooks/backend/internal/interfaces/http/dto"
	"github.com/closebooks/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReviewHandler handles month-end review API endpoints
type ReviewHandler struct {
	BaseHandler
	registry *review.Registry
	runner   *review.Runner
	metrics  *telemetry.ReviewMetrics
}

// NewReviewHandler creates a new ReviewHandler. metrics may be nil when
// telemetry is disabled.
func NewReviewHandler(registry *review.Registry, runner *review.Runner, metrics *telemetry.ReviewMetrics) *ReviewHandler {
	return &ReviewHandler{
		registry: registry,
		runner:   runner,
		metrics:  metrics,
	}
}

// Run evaluates the balance-sheet review rules against the inputs posted in
// the request body (a canonical run document) and returns the run report.
// An optional rules query parameter restricts the run to a comma-separated
// subset of rule ids.
func (h *ReviewHandler) Run(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.BadRequest(c, "Unable to read request body")
		return
	}
	if len(body) == 0 {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Request body is empty")
		return
	}

	inputs, err := manifest.DecodeRunInputs(body)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	ruleCtx := inputs.RuleContext()
	start := time.Now()

	var report review.RunReport
	if raw := c.Query("rules"); raw != "" {
		report, err = h.runner.RunSubset(c.Request.Context(), ruleCtx, splitRuleIDs(raw))
		if err != nil {
			h.HandleError(c, err)
			return
		}
	} else {
		report = h.runner.Run(c.Request.Context(), ruleCtx)
	}

	h.metrics.RecordRun(c.Request.Context(), telemetry.TriggerHTTP, time.Since(start), runOutcomes(report))

	logger.FromGin(c).Info("Review run complete",
		zap.String("run_id", report.RunID),
		zap.String("period_end", report.PeriodEnd.String()),
		zap.Int("rules", len(report.Results)),
	)

	h.Success(c, report)
}

// CatalogQuery holds query parameters for the catalog endpoint
type CatalogQuery struct {
	Format string `form:"format" binding:"omitempty,oneof=json yaml"`
}

// Catalog returns the rule catalog: id, title, reference, sources, and the
// JSON schema of each rule's configuration payload.
func (h *ReviewHandler) Catalog(c *gin.Context) {
	var q CatalogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	entries, err := review.BuildCatalog(h.registry)
	if err != nil {
		h.InternalError(c, "Unable to build rule catalog")
		return
	}

	if q.Format == "yaml" {
		out, err := review.EncodeCatalogYAML(entries)
		if err != nil {
			h.InternalError(c, "Unable to encode rule catalog")
			return
		}
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", out)
		return
	}

	h.Success(c, entries)
}

// splitRuleIDs parses a comma-separated rule id list, dropping empty parts
func splitRuleIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// runOutcomes converts a run report into per-rule telemetry outcomes
func runOutcomes(report review.RunReport) []telemetry.RuleOutcome {
	outcomes := make([]telemetry.RuleOutcome, 0, len(report.Results))
	for _, r := range report.Results {
		outcomes = append(outcomes, telemetry.RuleOutcome{
			RuleID: r.RuleID,
			Status: string(r.Status),
		})
	}
	return outcomes
}
