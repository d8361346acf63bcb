// =============================================================================
// SEPA Credit Transfer - Logging
// =============================================================================
//
// Builds the zap logger shared by the CLI and the conversion pipeline.
// Packages take the small Logger interface below, which *zap.SugaredLogger
// satisfies, so tests can pass a no-op or an observed logger.
//
// =============================================================================

package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled printf-style logger used across the application.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

var _ Logger = (*zap.SugaredLogger)(nil)

// New creates a console logger at the given level.
// Valid levels: "debug", "info", "warn", "error". Empty means "info".
func New(level string) (*zap.SugaredLogger, error) {
	atomicLevel, err := resolveLevel(level)
	if err != nil {
		return nil, err
	}

	config := zap.NewDevelopmentConfig()
	config.Level = atomicLevel
	config.DisableStacktrace = true
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return built.Sugar(), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func resolveLevel(level string) (zap.AtomicLevel, error) {
	if strings.TrimSpace(level) == "" {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}

	var parsed zapcore.Level
	if err := parsed.Set(strings.ToLower(strings.TrimSpace(level))); err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return zap.NewAtomicLevelAt(parsed), nil
}
