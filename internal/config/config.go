// Package config loads server configuration the way the teacher's
// ws/config.go does: an optional .env file via godotenv, then typed env
// vars via caarlos0/env, with CLI flags (parsed by the cmd/redikv entry
// point) overriding the env-derived defaults: --dir, --dbfilename,
// --port, --replicaof.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every knob the server reads at startup.
type Config struct {
	Dir        string `env:"KV_DIR" envDefault:""`
	DBFilename string `env:"KV_DBFILENAME" envDefault:""`
	Port       int    `env:"KV_PORT" envDefault:"6379"`
	BindAddr   string `env:"KV_BIND_ADDR" envDefault:"127.0.0.1"`
	ReplicaOf  string `env:"KV_REPLICAOF" envDefault:""`

	MaxConnections  int     `env:"KV_MAX_CONNECTIONS" envDefault:"10000"`
	ConnRatePerSec  float64 `env:"KV_CONN_RATE_PER_SEC" envDefault:"500"`
	ConnBurst       int     `env:"KV_CONN_BURST" envDefault:"200"`
	MetricsAddr     string  `env:"KV_METRICS_ADDR" envDefault:":9121"`
	LogLevel        string  `env:"KV_LOG_LEVEL" envDefault:"info"`
	LogFormat       string  `env:"KV_LOG_FORMAT" envDefault:"json"`
	WaitPollInterval time.Duration `env:"KV_WAIT_POLL_INTERVAL" envDefault:"10ms"`
}

// ReplicaOfHostPort splits the "host port" form of --replicaof and
// reports whether this instance should start as a replica at all.
func (c Config) ReplicaOfHostPort() (host string, port string, isReplica bool) {
	fields := strings.Fields(c.ReplicaOf)
	if len(fields) != 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

// SnapshotPath resolves the configured snapshot file location:
// <dir>/<dbfilename> when both are set, else ./dump.rdb.
func (c Config) SnapshotPath() string {
	if c.Dir != "" && c.DBFilename != "" {
		return strings.TrimSuffix(c.Dir, "/") + "/" + c.DBFilename
	}
	return "dump.rdb"
}

// Load reads .env (if present) then environment variables into a Config.
// Absence of a .env file is logged, not fatal, mirroring ws/config.go's
// LoadConfig.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found, using environment variables only")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Print renders a human-readable startup summary, mirroring ws/config.go's
// Config.Print used for the human-facing startup log line.
func (c Config) Print() string {
	return "dir=" + c.Dir +
		" dbfilename=" + c.DBFilename +
		" port=" + strconv.Itoa(c.Port) +
		" replicaof=" + c.ReplicaOf +
		" maxConnections=" + strconv.Itoa(c.MaxConnections)
}
