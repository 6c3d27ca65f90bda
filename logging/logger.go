// Package logging builds the zap loggers used by the command line.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a logger writing to stderr with the given level and
// format ("json" or "console").
func NewLogger(level, format string) (*zap.Logger, error) {
	cfg, err := buildConfig(level, format)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// New creates a logger writing to w.
func New(w io.Writer, level, format string) (*zap.Logger, error) {
	cfg, err := buildConfig(level, format)
	if err != nil {
		return nil, err
	}

	var enc zapcore.Encoder
	if cfg.Encoding == "json" {
		enc = zapcore.NewJSONEncoder(cfg.EncoderConfig)
	} else {
		enc = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), cfg.Level)
	return zap.New(core), nil
}

func buildConfig(level, format string) (zap.Config, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return zap.Config{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return zap.Config{}, fmt.Errorf("invalid log format %q, must be 'json' or 'console'", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	return cfg, nil
}
