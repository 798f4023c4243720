/*
Package log provides structured logging for the scheduler using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level for production debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("binding")                 │          │
	│  │  - WithExecutorID("exec-abc123")            │          │
	│  │  - WithJobID("job-xyz")                     │          │
	│  │  - WithStageID("job-xyz", 2)                │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "binding",                  │          │
	│  │    "time": "2026-07-31T10:30:00Z",          │          │
	│  │    "message": "task bound"                  │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  10:30AM INF task bound component=binding   │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all scheduler packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithExecutorID: Add executor ID context
  - WithJobID: Add job ID context
  - WithStageID: Add job ID and stage ID context

# Log Levels

Debug Level:
  - Purpose: Detailed debugging information
  - Usage: Development and troubleshooting
  - Performance: Verbose, may impact production
  - Example: "Evaluating ring placement for s3://bucket/part-0001.parquet"

Info Level:
  - Purpose: General informational messages
  - Usage: Default production level
  - Performance: Moderate volume
  - Example: "Bound 9 tasks (policy=round_robin, round=412)"

Warn Level:
  - Purpose: Potential issues or unexpected conditions
  - Usage: Situations that may require attention
  - Performance: Low volume
  - Example: "Executor heartbeat missed (1 occurrence)"

Error Level:
  - Purpose: Operation failures that need investigation
  - Usage: Failed operations, exceptions
  - Performance: Low volume
  - Example: "Failed to apply slot delta: insufficient slots"

Fatal Level:
  - Purpose: Critical errors causing process termination
  - Usage: Unrecoverable errors only
  - Behavior: Logs message and exits process (os.Exit(1))
  - Example: "Failed to initialize Raft: %v"

# Usage

Initializing the Logger:

	import "github.com/cuemby/distsched/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

Simple Logging:

	log.Info("scheduler started")
	log.Debug("refreshing executor inventory")
	log.Warn("executor heartbeat stale")
	log.Error("binding round failed")
	log.Fatal("cannot start without cluster state backend") // Exits process

Structured Logging:

	log.Logger.Info().
		Str("job_id", "job-123").
		Int("bound", 9).
		Msg("binding round completed")

	log.Logger.Error().
		Err(err).
		Str("executor_id", "exec-abc").
		Msg("heartbeat save failed")

Component Loggers:

	bindingLog := log.WithComponent("binding")
	bindingLog.Info().Msg("starting round")
	bindingLog.Debug().Str("policy", "consistent_hash").Msg("evaluating partitions")

Context Logger Helpers:

	// Executor-specific logs
	execLog := log.WithExecutorID("exec-abc123")
	execLog.Info().Msg("executor registered")

	// Job-specific logs
	jobLog := log.WithJobID("job-xyz789")
	jobLog.Info().Msg("job accepted")

	// Stage-specific logs
	stageLog := log.WithStageID("job-xyz789", 2)
	stageLog.Info().Msg("stage fully bound")

# Integration Points

This package integrates with:

  - pkg/cluster: logs ClusterState operations and Raft events
  - pkg/binding: logs binding decisions and policy outcomes
  - pkg/inventory: logs executor registration and heartbeat activity
  - pkg/events: logs JobStateEvent delivery
  - cmd/schedulerd: logs CLI command execution

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing
  - Simplifies logging in deeply nested calls

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to functions
  - Automatically includes context in all logs

Structured Logging Pattern:
  - Use typed fields (.Str, .Int, .Err)
  - Enables log aggregation and querying
  - Parseable by log analysis tools

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers
  - Log errors with .Err() for stack traces
  - Include context (executor ID, job ID, stage ID)

Don't:
  - Log sensitive data (raft join tokens, session config secrets)
  - Use Debug level in production
  - Log in tight loops (use sampling)
  - Concatenate strings (use .Str, .Int)
*/
package log
