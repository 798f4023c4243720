package main

import (
	"context"
	"fmt"

	"github.com/cuemby/distsched/pkg/types"
	"github.com/spf13/cobra"
)

var executorsCmd = &cobra.Command{
	Use:   "executors",
	Short: "Manage executor inventory against the configured cluster state",
}

var executorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List executors that have reported a heartbeat, with its time (free slots are not shown)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfigFlag(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		state, err := openState(cfg)
		if err != nil {
			return fmt.Errorf("open cluster state: %w", err)
		}
		defer state.Close()

		heartbeats := state.ExecutorHeartbeats(context.Background())
		if len(heartbeats) == 0 {
			fmt.Println("no executors have reported a heartbeat")
			return nil
		}
		fmt.Printf("%-20s %s\n", "EXECUTOR", "LAST HEARTBEAT")
		for id, hb := range heartbeats {
			fmt.Printf("%-20s %s\n", id, hb.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
		}
		return nil
	},
}

var executorsRegisterCmd = &cobra.Command{
	Use:   "register EXECUTOR_ID",
	Short: "Register a new executor with a fixed task-slot capacity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		executorID := args[0]
		slots, _ := cmd.Flags().GetUint32("slots")
		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")

		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfigFlag(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		state, err := openState(cfg)
		if err != nil {
			return fmt.Errorf("open cluster state: %w", err)
		}
		defer state.Close()

		meta := types.ExecutorMetadata{ID: executorID, Host: host, Port: port}
		spec := types.ExecutorSpecification{TaskSlots: slots}
		if err := state.RegisterExecutor(context.Background(), meta, spec); err != nil {
			return fmt.Errorf("register executor: %w", err)
		}

		fmt.Printf("registered executor %s with %d task slots\n", executorID, slots)
		return nil
	},
}

func init() {
	executorsCmd.AddCommand(executorsListCmd)
	executorsCmd.AddCommand(executorsRegisterCmd)

	executorsRegisterCmd.Flags().Uint32("slots", 4, "Number of task slots this executor offers")
	executorsRegisterCmd.Flags().String("host", "127.0.0.1", "Executor host")
	executorsRegisterCmd.Flags().Int("port", 50051, "Executor port")
}
