package telemetry

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logScopeName identifies the bridge as the instrumentation scope on
// forwarded log records.
const logScopeName = "github.com/closebooks/backend/internal/infrastructure/telemetry"

// BridgeLogger tees the logger's output into the OTLP log pipeline.
// Entries below min are not forwarded, which keeps debug noise out of the
// collector while the console or file output stays at its configured
// level. When the log pipeline is not running the logger is returned
// unchanged.
func (p *Provider) BridgeLogger(log *zap.Logger, min zapcore.Level) *zap.Logger {
	if p == nil || p.logs == nil {
		return log
	}

	bridge := otelzap.NewCore(logScopeName, otelzap.WithLoggerProvider(p.logs))
	return log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, &thresholdCore{Core: bridge, min: min})
	}))
}

// thresholdCore drops entries below min before they reach the wrapped
// core. The otelzap core itself accepts every level, so the filtering has
// to happen in front of it.
type thresholdCore struct {
	zapcore.Core
	min zapcore.Level
}

func (c *thresholdCore) Enabled(level zapcore.Level) bool {
	return level >= c.min && c.Core.Enabled(level)
}

func (c *thresholdCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return checked
	}
	return checked.AddCore(entry, c)
}

func (c *thresholdCore) With(fields []zapcore.Field) zapcore.Core {
	return &thresholdCore{Core: c.Core.With(fields), min: c.min}
}
