// Command redikv is the single-binary CLI entry point: it wires
// configuration, logging, metrics, and the listening socket to the
// core server.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	"github.com/haldenlabs/redikv/internal/config"
	"github.com/haldenlabs/redikv/internal/executor"
	"github.com/haldenlabs/redikv/internal/limits"
	"github.com/haldenlabs/redikv/internal/logging"
	"github.com/haldenlabs/redikv/internal/metrics"
	"github.com/haldenlabs/redikv/internal/replication"
	"github.com/haldenlabs/redikv/internal/server"
	"github.com/haldenlabs/redikv/internal/snapshot"
	"github.com/haldenlabs/redikv/internal/store"
)

func main() {
	var (
		dir        = flag.String("dir", "", "directory holding the snapshot file")
		dbfilename = flag.String("dbfilename", "", "snapshot file name")
		port       = flag.Int("port", 0, "listening port (overrides KV_PORT)")
		replicaof  = flag.String("replicaof", "", "\"<host> <port>\" of a primary to replicate from")
	)
	flag.Parse()

	bootLogger := logging.New("info", "json")

	maxProcs := runtime.GOMAXPROCS(0)
	bootLogger.Info().Int("gomaxprocs", maxProcs).Msg("runtime CPU quota resolved")

	cfg, err := config.Load(&bootLogger)
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *dir != "" {
		cfg.Dir = *dir
	}
	if *dbfilename != "" {
		cfg.DBFilename = *dbfilename
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *replicaof != "" {
		cfg.ReplicaOf = *replicaof
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().Str("config", cfg.Print()).Msg("starting redikv")

	st := store.New()
	_, _, isReplica := cfg.ReplicaOfHostPort()
	repl := replication.NewManager(logger, cfg.WaitPollInterval)
	exec := executor.New(st, repl, cfg, logger, isReplica)

	if !isReplica {
		loadStartupSnapshot(exec, cfg.SnapshotPath(), logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
			logger.Error().Err(err).Msg("metrics server exited")
		}
	}()

	limiter := limits.NewAcceptLimiter(cfg.ConnRatePerSec, cfg.ConnBurst, cfg.MaxConnections)
	srv := server.New(exec, limiter, logger)

	addr := net.JoinHostPort(cfg.BindAddr, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("failed to bind listener")
	}
	logger.Info().Str("addr", addr).Msg("listening")

	if host, replPort, ok := cfg.ReplicaOfHostPort(); ok {
		go startReplication(exec, host, replPort, cfg.Port, logger)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx, ln) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Info().Msg("shutdown signal received")
		cancel()
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("accept loop exited")
		}
	}
}

func loadStartupSnapshot(exec *executor.Executor, path string, logger zerolog.Logger) {
	if _, err := os.Stat(path); err != nil {
		logger.Info().Str("path", path).Msg("no snapshot file at startup, starting empty")
		return
	}
	start := time.Now()
	entries, err := snapshot.Read(path)
	metrics.SnapshotOpDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to load startup snapshot")
		return
	}
	exec.Store.Strings.Load(executor.StringEntriesFrom(entries))
	logger.Info().Int("keys", len(entries)).Str("path", path).Msg("loaded startup snapshot")
}

func startReplication(exec *executor.Executor, host, port string, listeningPort int, logger zerolog.Logger) {
	addr := net.JoinHostPort(host, port)
	logger.Info().Str("primary", addr).Msg("starting replica handshake")
	hs, err := replication.DialAndHandshake(addr, listeningPort, logger)
	if err != nil {
		logger.Error().Err(err).Str("primary", addr).Msg("replica handshake failed")
		return
	}
	if err := server.RunReplicaApplyLoop(exec, hs, logger); err != nil {
		logger.Error().Err(err).Msg("replica apply loop ended")
	}
}
