package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/indexing/health"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables and applying
// defaults.
func Parse(data []byte) (*AppConfig, error) {
	cfg := AppConfig{
		Indexer: IndexerConfig{ValidateAddresses: true, RescanGaps: true},
	}
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Chain.ChainID == "" {
		c.Chain.ChainID = domain.ChainIDGravity
	}
	if c.Chain.Type == "" {
		c.Chain.Type = ReaderGRPC
	}
	if c.Chain.URL == "" {
		c.Chain.URL = "http://gravitychain.io:9090"
	}
	if c.Chain.Prefix == "" {
		c.Chain.Prefix = domain.DefaultPrefix
	}
	if c.Chain.RequestTimeout == 0 {
		c.Chain.RequestTimeout = 10 * time.Second
	}
	if c.Chain.Parallelism == 0 {
		c.Chain.Parallelism = 8
	}

	if c.Indexer.WindowSize == 0 {
		c.Indexer.WindowSize = 500
	}
	if c.Indexer.Workers == 0 {
		c.Indexer.Workers = 10
	}
	if c.Indexer.MaxRetries == 0 {
		c.Indexer.MaxRetries = 5
	}
	if c.Indexer.RetryDelay == 0 {
		c.Indexer.RetryDelay = time.Second
	}
	if c.Indexer.StatusPollInterval == 0 {
		c.Indexer.StatusPollInterval = 5 * time.Second
	}
	if c.Indexer.RunInterval == 0 {
		c.Indexer.RunInterval = 24 * time.Hour
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendBadger
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "transactions"
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = 10
	}
	if c.Storage.Postgres.MinConns == 0 {
		c.Storage.Postgres.MinConns = 2
	}

	def := health.DefaultThresholds()
	if c.Health.DegradedLag == 0 {
		c.Health.DegradedLag = def.DegradedLag
	}
	if c.Health.CriticalLag == 0 {
		c.Health.CriticalLag = def.CriticalLag
	}
	if c.Health.CriticalGaps == 0 {
		c.Health.CriticalGaps = def.CriticalGaps
	}
}

// Validate checks settings that have no usable default.
func (c *AppConfig) Validate() error {
	switch c.Chain.Type {
	case ReaderGRPC, ReaderComet:
	default:
		return fmt.Errorf("unknown chain type %q", c.Chain.Type)
	}
	switch c.Storage.Backend {
	case BackendBadger, BackendMemory:
	case BackendPostgres:
		if c.Storage.Postgres.URL == "" {
			return fmt.Errorf("storage.postgres.url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Indexer.Workers < 0 {
		return fmt.Errorf("indexer.workers must be positive")
	}
	return nil
}

// Thresholds returns the health thresholds.
func (c HealthConfig) Thresholds() health.Thresholds {
	return health.Thresholds{
		DegradedLag:  c.DegradedLag,
		CriticalLag:  c.CriticalLag,
		CriticalGaps: c.CriticalGaps,
	}
}
