// Package config loads the shared application configuration for the cmd
// binaries. The engine core never reads configuration itself; it is handed
// fully resolved values.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/closebooks/backend/internal/domain/shared"
)

// Config is the root of the application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Review    ReviewConfig    `mapstructure:"review"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig identifies the deployment.
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

// LogConfig controls the zap logger construction.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	Output string `mapstructure:"output"`
}

// HTTPConfig holds the server and CORS settings.
type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes" validate:"min=1"`
	MaxBodySize      int64         `mapstructure:"max_body_size" validate:"min=1"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
}

// ReviewConfig holds run defaults shared by the binaries. The input paths
// are CLI defaults; command-line flags override them.
type ReviewConfig struct {
	Parallelism           int      `mapstructure:"parallelism" validate:"min=1"`
	Format                string   `mapstructure:"format" validate:"oneof=json yaml markdown"`
	BalanceSheetPath      string   `mapstructure:"balance_sheet_path"`
	PriorBalanceSheetPath string   `mapstructure:"prior_balance_sheet_path"`
	ProfitAndLossPath     string   `mapstructure:"profit_and_loss_path"`
	EvidencePath          string   `mapstructure:"evidence_path"`
	ReconciliationPaths   []string `mapstructure:"reconciliation_paths"`
	ClientConfigPath      string   `mapstructure:"client_config_path"`
}

// TelemetryConfig holds the OTLP collector settings.
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio" validate:"gte=0,lte=1"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricInterval    time.Duration `mapstructure:"metric_interval"`
}

// Load resolves the configuration in priority order: REVIEW_-prefixed
// environment variables (REVIEW_HTTP_READ_TIMEOUT), then config.toml from
// the working directory or /app, then the built-in defaults. A missing
// config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	v.SetEnvPrefix("REVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key gets a default so AutomaticEnv can see it during Unmarshal.
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config file: %v", shared.ErrConfiguration, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", shared.ErrConfiguration, err)
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "closebooks-review")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.max_header_bytes", 1<<20)
	v.SetDefault("http.max_body_size", 10<<20)
	// No origin default: cross-origin requests stay rejected until the
	// deployment names its frontends.
	v.SetDefault("http.cors_allow_origins", []string{})
	v.SetDefault("http.cors_allow_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("http.cors_allow_headers", []string{"Content-Type", "X-Request-ID"})
	v.SetDefault("http.trusted_proxies", []string{})

	v.SetDefault("review.parallelism", 4)
	v.SetDefault("review.format", "json")
	v.SetDefault("review.balance_sheet_path", "")
	v.SetDefault("review.prior_balance_sheet_path", "")
	v.SetDefault("review.profit_and_loss_path", "")
	v.SetDefault("review.evidence_path", "")
	v.SetDefault("review.reconciliation_paths", []string{})
	v.SetDefault("review.client_config_path", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.collector_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.service_name", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.metric_interval", "30s")
}

// validate reports violations under the mapstructure key names, so an
// error names the config key the operator has to fix, not the Go field.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the resolved configuration. Violations of the struct
// tags come back as a ConfigurationError naming each offending key.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %s", shared.ErrConfiguration, describeFieldErrors(fieldErrs))
		}
		return fmt.Errorf("%w: validate config: %v", shared.ErrInternal, err)
	}

	// validator tags cannot express this cross-field rule: a wildcard
	// origin is acceptable on a developer laptop, never in production.
	if c.App.Env == "production" {
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("%w: http.cors_allow_origins must list explicit origins in production", shared.ErrConfiguration)
			}
		}
	}
	return nil
}

func describeFieldErrors(fieldErrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s fails %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s fails %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
