package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Executor inventory metrics
	ExecutorsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "distsched_executors_total",
			Help: "Total number of registered executors by liveness state",
		},
		[]string{"state"},
	)

	AvailableSlots = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "distsched_available_slots",
			Help: "Free task slots per executor",
		},
		[]string{"executor_id"},
	)

	// Raft metrics, carried over from the replicated-KV backend
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "distsched_raft_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "distsched_raft_peers_total",
			Help: "Total number of Raft peers in the cluster",
		},
	)

	RaftLogIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "distsched_raft_log_index",
			Help: "Current Raft log index",
		},
	)

	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "distsched_raft_applied_index",
			Help: "Last applied Raft log index",
		},
	)

	RaftApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "distsched_raft_apply_duration_seconds",
			Help:    "Time taken to apply a Raft log entry in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Binding round metrics
	BindingLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "distsched_binding_latency_seconds",
			Help:    "Time taken for one binding round in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"policy"},
	)

	TasksBoundTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distsched_tasks_bound_total",
			Help: "Total number of tasks bound to an executor by policy",
		},
		[]string{"policy"},
	)

	TasksDataCacheTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "distsched_tasks_data_cache_total",
			Help: "Total number of tasks bound with DataCache set (tolerance-0 consistent hash hit)",
		},
	)

	StageBlacklistTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "distsched_stage_blacklist_total",
			Help: "Total number of stages blacklisted for binding within a round",
		},
	)

	UnbindDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "distsched_unbind_duration_seconds",
			Help:    "Time taken to release bound slots back to the inventory",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Cluster-state request metrics
	ClusterRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distsched_cluster_requests_total",
			Help: "Total number of ClusterState operations by method and status",
		},
		[]string{"method", "status"},
	)

	ClusterRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "distsched_cluster_request_duration_seconds",
			Help:    "ClusterState operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(ExecutorsTotal)
	prometheus.MustRegister(AvailableSlots)
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftPeers)
	prometheus.MustRegister(RaftLogIndex)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(RaftApplyDuration)
	prometheus.MustRegister(BindingLatency)
	prometheus.MustRegister(TasksBoundTotal)
	prometheus.MustRegister(TasksDataCacheTotal)
	prometheus.MustRegister(StageBlacklistTotal)
	prometheus.MustRegister(UnbindDuration)
	prometheus.MustRegister(ClusterRequestsTotal)
	prometheus.MustRegister(ClusterRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
