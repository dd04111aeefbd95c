package config

import (
	"time"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	redisclient "github.com/vietddude/gravity-indexer/internal/infra/redis"
	"github.com/vietddude/gravity-indexer/internal/infra/storage/postgres"
)

// Chain reader types.
const (
	ReaderGRPC  = "grpc"
	ReaderComet = "comet"
)

// Storage backends.
const (
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  ServerConfig       `yaml:"server"`
	Logging LoggingConfig      `yaml:"logging"`
	Chain   ChainConfig        `yaml:"chain"`
	Indexer IndexerConfig      `yaml:"indexer"`
	Storage StorageConfig      `yaml:"storage"`
	Redis   redisclient.Config `yaml:"redis"`
	Health  HealthConfig       `yaml:"health"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ChainConfig holds settings for the indexed node.
type ChainConfig struct {
	ChainID        domain.ChainID `yaml:"id"`
	Type           string         `yaml:"type"` // grpc, comet
	URL            string         `yaml:"url"`
	Prefix         string         `yaml:"prefix"`
	RequestTimeout time.Duration  `yaml:"request_timeout"`
	Parallelism    int            `yaml:"parallelism"` // concurrent block fetches per range
}

// IndexerConfig holds run and window settings.
type IndexerConfig struct {
	WindowSize         uint64        `yaml:"window_size"`
	Workers            int           `yaml:"workers"`
	MaxRetries         uint64        `yaml:"max_retries"`
	RetryDelay         time.Duration `yaml:"retry_delay"`
	StatusPollInterval time.Duration `yaml:"status_poll_interval"`
	RunInterval        time.Duration `yaml:"run_interval"`
	ValidateAddresses  bool          `yaml:"validate_addresses"`
	RescanGaps         bool          `yaml:"rescan_gaps"`
}

// StorageConfig selects and configures the KV backend.
type StorageConfig struct {
	Backend  string          `yaml:"backend"` // badger, postgres, memory
	Path     string          `yaml:"path"`
	Postgres postgres.Config `yaml:"postgres"`
}

// HealthConfig holds the health thresholds.
type HealthConfig struct {
	DegradedLag  uint64 `yaml:"degraded_lag"`
	CriticalLag  uint64 `yaml:"critical_lag"`
	CriticalGaps int    `yaml:"critical_gaps"`
}
