package tlog

import (
	"fmt"
	"testing"

	"github.com/ridge/must/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// New creates a top-level logger writing to stderr
func New(config Config) *zap.Logger {
	var encoding string
	var encoderConfig zapcore.EncoderConfig
	development := true
	switch config.Format {
	case FormatJSON:
		encoding = "json"
		encoderConfig = DefaultEncoderConfig
		development = false
	case FormatText:
		var color bool
		switch config.Color {
		case ColorYes:
			color = true
		case ColorNo:
			color = false
		case ColorAuto:
			color = term.IsTerminal(unix.Stderr)
		default:
			panic(fmt.Errorf("unexpected --log-color value: %s", config.Color))
		}
		encoding = "console"
		encoderConfig = consoleEncoderConfig(color)
	default:
		panic(fmt.Errorf("unexpected --log-format value: %s", config.Format))
	}

	level := zapcore.InfoLevel
	if config.Verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger := must.OK1(cfg.Build())

	if config.Name != "" {
		logger = logger.Named(config.Name)
	}

	return logger
}

// NewForTesting creates a debug-level logger that writes through t.Log, so
// the output is shown only for failing tests
func NewForTesting(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t,
		zaptest.Level(zapcore.DebugLevel),
		zaptest.WrapOptions(zap.AddCaller()),
	).Named(t.Name())
}
