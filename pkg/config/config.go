// Package config loads the scheduler's YAML configuration: which
// ClusterState backend to run against and which task-distribution
// policy to bind with, mirroring the flat Config structs the teacher's
// manager and worker commands load (manager.Config, worker.Config).
package config

import (
	"fmt"
	"os"

	"github.com/cuemby/distsched/pkg/types"
	"gopkg.in/yaml.v3"
)

// StorageKind selects the ClusterState backend (spec's {memory, kv-A, kv-B}).
type StorageKind string

const (
	StorageMemory   StorageKind = "memory"
	StorageRaft     StorageKind = "raft"     // kv-A: replicated consensus store
	StorageEmbedded StorageKind = "embedded" // kv-B: embedded persistent store
)

// RaftConfig is only read when Storage == StorageRaft.
type RaftConfig struct {
	NodeID    string `yaml:"node_id"`
	BindAddr  string `yaml:"bind_addr"`
	Bootstrap bool   `yaml:"bootstrap"`
}

// PolicyConfig selects the task-distribution policy and its parameters,
// defaulting num_replicas/tolerance the way spec §6 specifies (31/0).
type PolicyConfig struct {
	Kind        types.TaskDistributionKind `yaml:"kind"`
	NumReplicas int                        `yaml:"num_replicas"`
	Tolerance   int                        `yaml:"tolerance"`
}

// ToPolicy returns the types.TaskDistributionPolicy this configuration
// describes, filling in the documented defaults when Kind selects
// consistent-hash but leaves NumReplicas/Tolerance unset.
func (p PolicyConfig) ToPolicy() types.TaskDistributionPolicy {
	if p.Kind == "" {
		return types.TaskDistributionPolicy{Kind: types.DistributionBias}
	}
	policy := types.TaskDistributionPolicy{Kind: p.Kind, NumReplicas: p.NumReplicas, Tolerance: p.Tolerance}
	if policy.Kind == types.DistributionConsistentHash && policy.NumReplicas == 0 {
		policy.NumReplicas = types.DefaultConsistentHashPolicy().NumReplicas
	}
	return policy
}

// Config is the top-level scheduler configuration document.
type Config struct {
	Storage     StorageKind  `yaml:"cluster_storage"`
	DataDir     string       `yaml:"data_dir"`
	Raft        RaftConfig   `yaml:"raft"`
	Policy      PolicyConfig `yaml:"distribution_policy"`
	LogLevel    string       `yaml:"log_level"`
	LogJSON     bool         `yaml:"log_json"`
	MetricsAddr string       `yaml:"metrics_addr"`
}

// Default returns the configuration schedulerd falls back to when no
// config file is given: an in-memory backend, bias distribution.
func Default() Config {
	return Config{
		Storage:     StorageMemory,
		DataDir:     "./distsched-data",
		Policy:      PolicyConfig{Kind: types.DistributionBias},
		LogLevel:    "info",
		MetricsAddr: "127.0.0.1:9090",
	}
}

// Load reads and parses a YAML config file, starting from Default() so
// unset fields keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that name an unknown storage or
// distribution policy kind rather than letting them surface confusingly
// later as a cluster.State construction failure.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StorageRaft, StorageEmbedded:
	default:
		return fmt.Errorf("config: unknown cluster_storage %q", c.Storage)
	}
	switch c.Policy.Kind {
	case types.DistributionBias, types.DistributionRoundRobin, types.DistributionConsistentHash:
	default:
		return fmt.Errorf("config: unknown distribution_policy %q", c.Policy.Kind)
	}
	if c.Storage == StorageRaft && c.Raft.NodeID == "" {
		return fmt.Errorf("config: raft.node_id is required when cluster_storage is raft")
	}
	return nil
}
