/*
Package metrics exposes the scheduler's Prometheus metrics and a small
Timer helper for recording operation latency.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│              prometheus.MustRegister (package init)            │
	└───────────────────────────┬───────────────────────────────────┘
	                            ▼
	┌─────────────────────────────────────────────────────────────┐
	│                  metrics.Handler() → /metrics                 │
	└─────────────────────────────────────────────────────────────┘

# Metric families

The families below are declared and registered here; no other package in
this module records observations into them, so they change only when a
caller does so itself, as in the Usage example.

Inventory:
  - distsched_executors_total{state}
  - distsched_available_slots{executor_id}

Binding:
  - distsched_binding_latency_seconds{policy}
  - distsched_tasks_bound_total{policy}
  - distsched_tasks_data_cache_total
  - distsched_stage_blacklist_total
  - distsched_unbind_duration_seconds

Raft-backed cluster state:
  - distsched_raft_is_leader
  - distsched_raft_peers_total
  - distsched_raft_log_index
  - distsched_raft_applied_index
  - distsched_raft_apply_duration_seconds

ClusterState call surface:
  - distsched_cluster_requests_total{method,status}
  - distsched_cluster_request_duration_seconds{method}

# Usage

	timer := metrics.NewTimer()
	result := binding.Bias(slots, jobs, blacklist)
	timer.ObserveDurationVec(metrics.BindingLatency, "bias")
	metrics.TasksBoundTotal.WithLabelValues("bias").Add(float64(len(result.Bound)))

Health and readiness probes (pkg/metrics/health.go) are a separate,
JSON-over-HTTP surface from the Prometheus registry above; they report
component-level status for "raft", "cluster_state", and "api" rather than
numeric series.
*/
package metrics
