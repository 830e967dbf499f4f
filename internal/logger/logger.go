package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nexusplanner/nexusrag/internal/version"
)

// jsonEnvs log machine-readable JSON; every other known env logs colored console lines.
var jsonEnvs = map[string]bool{"prod": true, "staging": true}

var consoleEnvs = map[string]bool{"local": true, "dev": true, "docker": true}

// NewLogger builds the service logger for env. A non-empty level (debug, info,
// warn, error) replaces the environment default.
func NewLogger(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch {
	case jsonEnvs[env]:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case consoleEnvs[env]:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l.With(
		zap.String("service", "nexusrag"),
		zap.String("version", version.Version),
		zap.String("env", env),
	), nil
}
