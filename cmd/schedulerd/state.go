package main

import (
	"fmt"

	"github.com/cuemby/distsched/pkg/cluster"
	"github.com/cuemby/distsched/pkg/config"
)

// openState builds the ClusterState backend a config document selects,
// the same role manager.NewManager plays for the teacher's cluster
// commands.
func openState(cfg config.Config) (cluster.State, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return cluster.NewMemoryState(), nil

	case config.StorageEmbedded:
		return cluster.NewBboltState(cfg.DataDir)

	case config.StorageRaft:
		return cluster.NewRaftState(cluster.RaftConfig{
			NodeID:    cfg.Raft.NodeID,
			BindAddr:  cfg.Raft.BindAddr,
			DataDir:   cfg.DataDir,
			Bootstrap: cfg.Raft.Bootstrap,
		})

	default:
		return nil, fmt.Errorf("unknown cluster_storage %q", cfg.Storage)
	}
}

// loadConfigFlag reads the --config flag, if set, falling back to
// config.Default() so subcommands work against an in-memory, bias-policy
// scheduler with no config file at all.
func loadConfigFlag(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
