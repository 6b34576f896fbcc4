// Command server runs the month-end review HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/closebooks/backend/internal/domain/review"
	"github.com/closebooks/backend/internal/domain/review/rules"
	"github.com/closebooks/backend/internal/infrastructure/config"
	"github.com/closebooks/backend/internal/infrastructure/logger"
	"github.com/closebooks/backend/internal/infrastructure/telemetry"
	"github.com/closebooks/backend/internal/interfaces/http/handler"
	"github.com/closebooks/backend/internal/interfaces/http/middleware"
	"github.com/closebooks/backend/internal/interfaces/http/router"
)

const shutdownGrace = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load configuration:", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "build logger:", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting Closebooks Review",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
	)

	tel, err := telemetry.Setup(ctx, collectorConfig(cfg), telemetry.AllSignals(), log)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			log.Warn("Telemetry shutdown incomplete", zap.Error(err))
		}
	}()

	if tel.LogsEnabled() {
		// Load already validated the level string.
		level, _ := zapcore.ParseLevel(cfg.Log.Level)
		log = tel.BridgeLogger(log, level)
		log.Info("OTEL log bridge enabled",
			zap.String("endpoint", cfg.Telemetry.CollectorEndpoint),
		)
	}

	registry := rules.NewBuiltinRegistry()
	runner := review.NewRunner(registry,
		review.WithLogger(log),
		review.WithParallelism(cfg.Review.Parallelism),
	)

	var reviewMetrics *telemetry.ReviewMetrics
	if tel.MetricsEnabled() {
		reviewMetrics, err = telemetry.NewReviewMetrics(tel.Meter("review"))
		if err != nil {
			return fmt.Errorf("build review metrics: %w", err)
		}
		reviewMetrics.RecordRulesRegistered(ctx, registry.Count())
	}

	engine := buildEngine(cfg, log, tel)
	engine.GET("/health", health(registry.Count()))

	reviews := handler.ReviewRoutes(handler.NewReviewHandler(registry, runner, reviewMetrics))
	system := handler.SystemRoutes(handler.NewSystemHandler(registry.Count()))

	api := router.NewRouter(engine, router.WithAPIVersion("v1"))
	api.Register(reviews, system)
	api.Setup()

	log.Info("Routes mounted",
		zap.Strings("groups", []string{reviews.Name(), system.Name()}),
		zap.Int("rules", registry.Count()),
	)

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.App.Port),
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	// Restore default signal handling so a second signal kills immediately.
	stop()
	log.Info("Shutdown signal received, draining connections")

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("drain server: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// buildEngine assembles the middleware chain. Order matters: the request id
// must exist before the tracing and logging layers read it, the request
// logger wraps recovery so panics still produce a completion line, and the
// guard middlewares run just before the handlers they protect.
func buildEngine(cfg *config.Config, log *zap.Logger, tel *telemetry.Provider) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Trusted proxy configuration rejected", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	if tel.TracesEnabled() {
		engine.Use(
			middleware.Tracing(cfg.Telemetry.ServiceName),
			middleware.SpanEnricher(),
		)
	}
	engine.Use(
		logger.RequestLogger(log),
		logger.Recovery(log),
	)
	if tel.MetricsEnabled() {
		engine.Use(middleware.HTTPMetrics(tel.Meter("http_server")))
	}
	engine.Use(
		middleware.Secure(),
		middleware.CORSWithConfig(corsFromConfig(cfg)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	return engine
}

// corsFromConfig overlays the deployment's origin whitelist on the default
// policy. Empty method or header lists keep the defaults, so a config file
// that only names origins gets a working policy.
func corsFromConfig(cfg *config.Config) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	return cors
}

func collectorConfig(cfg *config.Config) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.CollectorEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		SamplingRatio:  cfg.Telemetry.SamplingRatio,
		MetricInterval: cfg.Telemetry.MetricInterval,
	}
}

// health answers liveness probes outside the versioned API.
func health(ruleCount int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
			"rules":  ruleCount,
		})
	}
}
