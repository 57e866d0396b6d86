// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Cikle/Alpatrader/internal/models"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "alpatrader", "logs", "alpatrader.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		writers = append(writers, consoleWriter)
	}

	if cfg.File {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	var writer io.Writer
	if len(writers) == 0 {
		writer = os.Stdout
	} else if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// ContextKey is the type for context keys.
type ContextKey string

// LoggerKey is the context key for the logger.
const LoggerKey ContextKey = "logger"

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithTicker adds a ticker symbol to the logger context.
func WithTicker(logger zerolog.Logger, ticker string) zerolog.Logger {
	return logger.With().Str("ticker", ticker).Logger()
}

// WithCycle adds a cycle identifier to the logger context.
func WithCycle(logger zerolog.Logger, cycleID string) zerolog.Logger {
	return logger.With().Str("cycle", cycleID).Logger()
}

// LogSignal logs an ingested signal.
func LogSignal(logger zerolog.Logger, sig models.Signal) {
	logger.Debug().
		Str("event", "signal").
		Str("ticker", sig.Ticker).
		Str("source", string(sig.Source)).
		Str("direction", string(sig.Direction)).
		Float64("magnitude", sig.Magnitude).
		Float64("confidence", sig.Confidence).
		Msg("Signal ingested")
}

// LogDecision logs an aggregated decision.
func LogDecision(logger zerolog.Logger, d models.Decision) {
	logger.Info().
		Str("event", "decision").
		Str("ticker", d.Ticker).
		Str("tier", string(d.Tier)).
		Str("direction", string(d.Direction)).
		Float64("confidence", d.Confidence).
		Float64("multiplier", d.SizeMultiplier).
		Msg("Decision generated")
}

// LogOrder logs an order submission result.
func LogOrder(logger zerolog.Logger, order models.Order, result models.OrderResult) {
	event := logger.Info()
	if !result.Accepted {
		event = logger.Error()
	}
	event.
		Str("event", "order").
		Str("ticker", order.Ticker).
		Str("side", string(order.Side)).
		Str("class", string(order.Class)).
		Int("quantity", order.Quantity).
		Str("order_id", result.OrderID).
		Str("status", result.Status).
		Msg("Order submitted")
}

// LogExit logs an exit trigger.
func LogExit(logger zerolog.Logger, trigger models.ExitTrigger) {
	logger.Info().
		Str("event", "exit").
		Str("ticker", trigger.Ticker).
		Str("reason", string(trigger.Reason)).
		Str("detail", trigger.Detail).
		Msg("Exit triggered")
}
