// Package metrics exposes Prometheus instrumentation for the server,
// grounded on ws/internal/single/monitoring/metrics.go's global
// collector + init()-registration pattern, served over a small admin HTTP
// listener via promhttp.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redikv_connections_total",
		Help: "Total number of client connections accepted.",
	})
	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "redikv_connections_active",
		Help: "Current number of open client connections.",
	})
	ConnectionsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redikv_connections_rejected_total",
		Help: "Connections rejected by the accept-rate limiter or the connection cap.",
	})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redikv_commands_total",
		Help: "Commands processed, labeled by verb.",
	}, []string{"verb"})

	CommandErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redikv_command_errors_total",
		Help: "Commands that produced a -ERR reply, labeled by verb.",
	}, []string{"verb"})

	ReplicasConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "redikv_replicas_connected",
		Help: "Number of replicas currently attached to this primary.",
	})

	WaitLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "redikv_wait_latency_seconds",
		Help:    "Time spent inside WAIT before returning.",
		Buckets: prometheus.DefBuckets,
	})

	BlockedClients = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "redikv_blocked_clients",
		Help: "Connections currently blocked on BLPOP or XREAD BLOCK, by kind.",
	}, []string{"kind"})

	SnapshotOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redikv_snapshot_op_duration_seconds",
		Help:    "Duration of snapshot load/save operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		ConnectionsActive,
		ConnectionsRejected,
		CommandsTotal,
		CommandErrorsTotal,
		ReplicasConnected,
		WaitLatencySeconds,
		BlockedClients,
		SnapshotOpDuration,
	)
}

// Serve starts the admin HTTP listener exposing /metrics. An empty addr
// disables it entirely (KV_METRICS_ADDR=""). Runs until ctx is canceled.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
