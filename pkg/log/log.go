package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration. NodeID is the Raft node ID (or
// empty for a single-process deployment with no replicated state); when
// set, every line the global Logger emits carries it, since a raft-backed
// deployment runs the same binary on several hosts and log aggregation
// needs a way to tell them apart without every call site adding the field
// itself.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
	NodeID     string
}

// Init initializes the global logger
func Init(cfg Config) {
	// Set log level
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Use JSON or console output
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}

	if cfg.NodeID != "" {
		Logger = Logger.With().Str("node_id", cfg.NodeID).Logger()
	}
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithExecutorID creates a child logger with executor_id field
func WithExecutorID(executorID string) zerolog.Logger {
	return Logger.With().Str("executor_id", executorID).Logger()
}

// WithJobID creates a child logger with job_id field
func WithJobID(jobID string) zerolog.Logger {
	return Logger.With().Str("job_id", jobID).Logger()
}

// WithStageID creates a child logger with job_id and stage_id fields
func WithStageID(jobID string, stageID int) zerolog.Logger {
	return Logger.With().Str("job_id", jobID).Int("stage_id", stageID).Logger()
}

// WithRound creates a child logger scoped to one binding round, carrying
// the round_id and the distribution policy that ran it. A binding round
// spans a whole snapshot-decide-commit call, not a single task, so every
// line it logs needs both fields to be correlated back to one call.
func WithRound(roundID, policy string) zerolog.Logger {
	return Logger.With().Str("round_id", roundID).Str("policy", policy).Logger()
}

// Helper functions for common logging patterns
func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Error(msg string) {
	Logger.Error().Msg(msg)
}

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}
