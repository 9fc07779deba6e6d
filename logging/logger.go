// Package logging builds the zap loggers used across v2p.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger that writes to stderr, keeping stdout free for
// reports. Development loggers use the console encoding and print stack
// traces on warnings; others emit JSON.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	encoding := "json"
	if development {
		encoding = "console"
	}

	config := zap.Config{
		Level:             zap.NewAtomicLevelAt(lvl),
		Development:       development,
		DisableStacktrace: !development,
		Encoding:          encoding,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			MessageKey:     "message",
			LevelKey:       "level",
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			NameKey:        "logger",
			StacktraceKey:  "stacktrace",
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		OutputPaths: []string{
			"stderr",
		},
		ErrorOutputPaths: []string{
			"stderr",
		},
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("error building logger: %w", err)
	}

	return logger.Named("v2p"), nil
}
