// =============================================================================
// BR Code Generator - Logging
// =============================================================================
//
// Structured logging for the CLI and the batch pipeline. The payload package
// itself never logs; the converter and the commands receive a *zap.Logger.
//
// =============================================================================

package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production logger at the given level ("debug", "info",
// "warn", "error"). When logFile is not empty the log is written there as
// well as to stderr.
func New(level, logFile string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level.SetLevel(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if logFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}

	lg, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return lg, nil
}

// Must is like New but panics on error.
func Must(level, logFile string) *zap.Logger {
	lg, err := New(level, logFile)
	if err != nil {
		panic(err)
	}
	return lg
}
