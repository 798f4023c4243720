package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/distsched/pkg/log"
	"github.com/cuemby/distsched/pkg/metrics"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler's cluster-state server and metrics endpoint",
	Long: `Starts the configured ClusterState backend (in-memory, Raft, or
embedded bbolt) and serves /metrics, /health, /ready, and /live until
interrupted. Binding rounds are driven by callers through the cluster.State
interface embedded by an external scheduler process; run is the
long-lived host for that state, not a query-execution engine.`,
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

		log.Logger.Info().
			Str("cluster_storage", string(cfg.Storage)).
			Str("distribution_policy", string(cfg.Policy.Kind)).
			Msg("cluster state ready")

		metrics.SetVersion(Version)
		metrics.RegisterComponent("cluster_state", true, "ready")

		metricsAddr := cfg.MetricsAddr
		if metricsAddr == "" {
			metricsAddr = "127.0.0.1:9090"
		}

		errCh := make(chan error, 1)
		go func() {
			http.Handle("/metrics", metrics.Handler())
			http.Handle("/health", metrics.HealthHandler())
			http.Handle("/ready", metrics.ReadyHandler())
			http.Handle("/live", metrics.LivenessHandler())
			if err := http.ListenAndServe(metricsAddr, nil); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
		fmt.Printf("metrics endpoint: http://%s/metrics\n", metricsAddr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("shutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		return nil
	},
}
