package main

import (
	"fmt"

	"github.com/cuemby/distsched/pkg/config"
	"github.com/cuemby/distsched/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "schedulerd",
	Short: "distsched - task-binding core for a distributed query scheduler",
	Long: `schedulerd hosts the consistent-hash ring, executor inventory, and
binding policies (bias, round-robin, consistent-hash-with-tolerance) that
place query-execution tasks onto executors, backed by a pluggable
ClusterState: in-memory, Raft-replicated, or embedded bbolt.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"schedulerd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (defaults in-memory, bias policy)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(bindCmd)
	rootCmd.AddCommand(executorsCmd)
}

// initLogging wires the global logger from whichever of two sources a
// field was set in: an explicit --log-level/--log-json flag always wins,
// otherwise the loaded config file's log_level/log_json apply, so running
// with just --config behaves the same as passing its values as flags.
func initLogging() {
	flags := rootCmd.PersistentFlags()
	configPath, _ := flags.GetString("config")
	cfg, err := loadConfigFlag(configPath)
	if err != nil {
		// Config is re-loaded (and its errors surfaced properly) inside
		// each subcommand's RunE; here we only need its logging fields,
		// so fall back to defaults and let RunE report the real error.
		cfg = config.Default()
	}

	level := log.Level(cfg.LogLevel)
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		level = log.Level(v)
	}
	jsonOutput := cfg.LogJSON
	if flags.Changed("log-json") {
		jsonOutput, _ = flags.GetBool("log-json")
	}

	nodeID := ""
	if cfg.Storage == config.StorageRaft {
		nodeID = cfg.Raft.NodeID
	}

	log.Init(log.Config{
		Level:      level,
		JSONOutput: jsonOutput,
		NodeID:     nodeID,
	})
}
