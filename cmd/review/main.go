package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/closebooks/backend/internal/domain/review"
	"github.com/closebooks/backend/internal/domain/review/rules"
	"github.com/closebooks/backend/internal/infrastructure/config"
	"github.com/closebooks/backend/internal/infrastructure/logger"
	"github.com/closebooks/backend/internal/infrastructure/manifest"
	"github.com/closebooks/backend/internal/infrastructure/telemetry"
)

func main() {
	// Parse flags
	var (
		balanceSheetPath string
		priorPath        string
		pnlPath          string
		evidencePath     string
		reconciliations  string
		clientConfigPath string
		format           string
		parallel         int
		ruleIDs          string
		showCatalog      bool
		logLevel         string
	)

	flag.StringVar(&balanceSheetPath, "balance-sheet", "", "Path to the balance sheet snapshot (required unless configured)")
	flag.StringVar(&priorPath, "prior-balance-sheet", "", "Path to the prior month balance sheet snapshot")
	flag.StringVar(&pnlPath, "profit-and-loss", "", "Path to the profit and loss snapshot")
	flag.StringVar(&evidencePath, "evidence", "", "Path to the evidence manifest")
	flag.StringVar(&reconciliations, "reconciliations", "", "Comma-separated paths to reconciliation reports")
	flag.StringVar(&clientConfigPath, "client-config", "", "Path to the client rules config")
	flag.StringVar(&format, "format", "", "Report format: json, yaml, markdown (default from config)")
	flag.IntVar(&parallel, "parallel", 0, "Concurrent rule evaluations (default from config)")
	flag.StringVar(&ruleIDs, "rules", "", "Comma-separated rule IDs to run (default: all)")
	flag.BoolVar(&showCatalog, "catalog", false, "Print the rule catalog instead of running a review")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	// Initialize logger. Logs go to stderr so the report on stdout stays
	// machine-readable.
	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Flags override config; config fills in anything left unset
	if balanceSheetPath == "" {
		balanceSheetPath = cfg.Review.BalanceSheetPath
	}
	if priorPath == "" {
		priorPath = cfg.Review.PriorBalanceSheetPath
	}
	if pnlPath == "" {
		pnlPath = cfg.Review.ProfitAndLossPath
	}
	if evidencePath == "" {
		evidencePath = cfg.Review.EvidencePath
	}
	if clientConfigPath == "" {
		clientConfigPath = cfg.Review.ClientConfigPath
	}
	reconciliationPaths := splitList(reconciliations)
	if len(reconciliationPaths) == 0 {
		reconciliationPaths = cfg.Review.ReconciliationPaths
	}
	if format == "" {
		format = cfg.Review.Format
	}
	if format == "" {
		format = "json"
	}
	if parallel <= 0 {
		parallel = cfg.Review.Parallelism
	}

	switch format {
	case "json", "yaml", "markdown":
	default:
		log.Fatal("Unsupported report format", zap.String("format", format))
	}

	registry := rules.NewBuiltinRegistry()

	if showCatalog {
		if err := printCatalog(os.Stdout, registry, format); err != nil {
			log.Fatal("Failed to print catalog", zap.Error(err))
		}
		return
	}

	if balanceSheetPath == "" {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	// Metrics degrade to a Warn rather than blocking the run: a report on
	// stdout is the contract, telemetry is not.
	var reviewMetrics *telemetry.ReviewMetrics
	tel, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.CollectorEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		MetricInterval: cfg.Telemetry.MetricInterval,
	}, telemetry.MetricsOnly(), log)
	if err != nil {
		log.Warn("Metrics disabled for this run", zap.Error(err))
	} else {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := tel.Shutdown(sctx); err != nil {
				log.Error("Telemetry shutdown incomplete", zap.Error(err))
			}
		}()
		if tel.MetricsEnabled() {
			reviewMetrics, err = telemetry.NewReviewMetrics(tel.Meter("review"))
			if err != nil {
				log.Warn("Metrics disabled for this run", zap.Error(err))
			}
		}
	}

	inputs, err := manifest.LoadRunInputs(manifest.Sources{
		BalanceSheetPath:      balanceSheetPath,
		PriorBalanceSheetPath: priorPath,
		ProfitAndLossPath:     pnlPath,
		EvidencePath:          evidencePath,
		ReconciliationPaths:   reconciliationPaths,
		ClientConfigPath:      clientConfigPath,
	})
	if err != nil {
		log.Fatal("Failed to load run inputs", zap.Error(err))
	}

	log.Info("Review inputs loaded",
		zap.String("period_end", inputs.PeriodEnd.String()),
		zap.Bool("prior_balance_sheet", inputs.PriorBalanceSheet != nil),
		zap.Bool("profit_and_loss", inputs.ProfitAndLoss != nil),
		zap.Int("evidence_items", len(inputs.Evidence.Items)),
		zap.Int("reconciliations", len(inputs.Reconciliations)),
	)

	runner := review.NewRunner(registry,
		review.WithLogger(log),
		review.WithParallelism(parallel),
	)

	start := time.Now()
	var report review.RunReport
	if ids := splitList(ruleIDs); len(ids) > 0 {
		report, err = runner.RunSubset(ctx, inputs.RuleContext(), ids)
		if err != nil {
			log.Fatal("Failed to run rule subset", zap.Error(err))
		}
	} else {
		report = runner.Run(ctx, inputs.RuleContext())
	}

	reviewMetrics.RecordRun(ctx, telemetry.TriggerCLI, time.Since(start), reportOutcomes(report))

	if err := writeReport(os.Stdout, report, format); err != nil {
		log.Fatal("Failed to write report", zap.Error(err))
	}
}

// writeReport renders the report to w in the requested format
func writeReport(w io.Writer, report review.RunReport, format string) error {
	switch format {
	case "json":
		data, err := report.EncodeJSON()
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case "yaml":
		data, err := report.EncodeYAML()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "markdown":
		return report.WriteMarkdown(w)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// printCatalog renders the registered rule catalog to w. The catalog is
// structured data, so only json and yaml are supported.
func printCatalog(w io.Writer, registry *review.Registry, format string) error {
	entries, err := review.BuildCatalog(registry)
	if err != nil {
		return err
	}
	var data []byte
	switch format {
	case "json":
		data, err = review.EncodeCatalogJSON(entries)
		data = append(data, '\n')
	case "yaml":
		data, err = review.EncodeCatalogYAML(entries)
	default:
		return fmt.Errorf("catalog format must be json or yaml, got %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// reportOutcomes converts a run report into per-rule telemetry outcomes
func reportOutcomes(report review.RunReport) []telemetry.RuleOutcome {
	outcomes := make([]telemetry.RuleOutcome, 0, len(report.Results))
	for _, res := range report.Results {
		outcomes = append(outcomes, telemetry.RuleOutcome{RuleID: res.RuleID, Status: string(res.Status)})
	}
	return outcomes
}

// splitList splits a comma-separated flag value, dropping empty entries
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func printUsage() {
	fmt.Println(`Closebooks Balance Review Tool

Evaluates every registered balance sheet control against the supplied
snapshots and writes the report to stdout. Logs go to stderr.

Usage:
  review [flags]

Flags:
  -balance-sheet string        Path to the balance sheet snapshot (required unless configured)
  -prior-balance-sheet string  Path to the prior month balance sheet snapshot
  -profit-and-loss string      Path to the profit and loss snapshot
  -evidence string             Path to the evidence manifest
  -reconciliations string      Comma-separated paths to reconciliation reports
  -client-config string        Path to the client rules config
  -format string               Report format: json, yaml, markdown (default from config)
  -parallel int                Concurrent rule evaluations (default from config)
  -rules string                Comma-separated rule IDs to run (default: all)
  -catalog                     Print the rule catalog instead of running a review
  -log-level string            Log level: debug, info, warn, error (default: info)

Environment Variables:
  REVIEW_REVIEW_BALANCE_SHEET_PATH, REVIEW_REVIEW_FORMAT, REVIEW_LOG_LEVEL

Examples:
  # Run the full review and print JSON
  review -balance-sheet bs.json -prior-balance-sheet prior.json

  # Run two rules and render markdown
  review -balance-sheet bs.json -rules BS-PETTY-CASH-MATCH,BS-UNDEPOSITED-FUNDS-ZERO -format markdown

  # Print the rule catalog
  review -catalog -format yaml`)
}
