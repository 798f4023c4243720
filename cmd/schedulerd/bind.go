package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cuemby/distsched/pkg/binding"
	"github.com/cuemby/distsched/pkg/graph"
	"github.com/cuemby/distsched/pkg/types"
	"github.com/spf13/cobra"
)

// jobSpec is the on-disk shape bind --jobs reads: a minimal description
// of running jobs and their stages, enough to drive one binding round
// without a full job-state store.
type jobSpec struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"session_id"`
	Stages    []struct {
		ID         int `json:"id"`
		Partitions int `json:"partitions"`
	} `json:"stages"`
}

func loadJobs(path string) (binding.Jobs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jobs file: %w", err)
	}
	var specs []jobSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse jobs file: %w", err)
	}

	jobs := make(binding.Jobs, len(specs))
	for _, spec := range specs {
		job := graph.NewJob(spec.JobID, spec.SessionID)
		job.Status = types.JobStatusRunning
		for _, s := range spec.Stages {
			job.AddStage(graph.NewStage(s.ID, 0, s.Partitions))
		}
		jobs[spec.JobID] = job
	}
	return jobs, nil
}

var bindCmd = &cobra.Command{
	Use:   "bind",
	Short: "Run a single manual binding round against a config file and job description",
	Long: `bind loads the ClusterState backend named by --config, reads the
running jobs described by --jobs (a JSON array of {job_id, session_id,
stages: [{id, partitions}]}), runs one binding round under the
configured distribution policy, and prints every bound task.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		jobsPath, _ := cmd.Flags().GetString("jobs")
		if jobsPath == "" {
			return fmt.Errorf("--jobs is required")
		}

		cfg, err := loadConfigFlag(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		state, err := openState(cfg)
		if err != nil {
			return fmt.Errorf("open cluster state: %w", err)
		}
		defer state.Close()

		jobs, err := loadJobs(jobsPath)
		if err != nil {
			return err
		}

		result, err := state.BindSchedulableTasks(context.Background(), cfg.Policy.ToPolicy(), jobs, nil)
		if err != nil {
			return fmt.Errorf("bind schedulable tasks: %w", err)
		}

		fmt.Printf("bound %d task(s)\n", len(result.Bound))
		for _, b := range result.Bound {
			fmt.Printf("  executor=%s job=%s stage=%d partition=%d task_id=%d data_cache=%t\n",
				b.ExecutorID, b.Task.Partition.JobID, b.Task.Partition.StageID,
				b.Task.Partition.PartitionID, b.Task.TaskID, b.Task.DataCache)
		}
		if len(result.Blacklist) > 0 {
			fmt.Printf("blacklisted %d stage(s)\n", len(result.Blacklist))
			for _, ref := range result.Blacklist {
				fmt.Printf("  job=%s stage=%d\n", ref.JobID, ref.StageID)
			}
		}
		return nil
	},
}

func init() {
	bindCmd.Flags().String("jobs", "", "Path to a JSON job description file (required)")
}
