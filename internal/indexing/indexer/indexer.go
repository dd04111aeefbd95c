package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/gravity-indexer/internal/core/checkpoint"
	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/indexing/decoder"
	"github.com/vietddude/gravity-indexer/internal/indexing/rescan"
	"github.com/vietddude/gravity-indexer/internal/infra/chain"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("indexing run already in progress")

// Indexer drives periodic indexing runs.
type Indexer interface {
	// Start runs immediately and then on every interval until ctx is done.
	Start(ctx context.Context) error

	// Stop ends the Start loop.
	Stop() error

	// RunOnce performs a single run.
	RunOnce(ctx context.Context) (RunReport, error)

	// GetStatus returns current indexing status.
	GetStatus() Status
}

// Status is a snapshot of the indexer.
type Status struct {
	ChainID     string     `json:"chain_id"`
	Running     bool       `json:"running"`
	Checkpoint  uint64     `json:"checkpoint"`
	LatestBlock uint64     `json:"latest_block"`
	Lag         int64      `json:"lag"`
	LastRun     *RunReport `json:"last_run,omitempty"`
	Counters    Counters   `json:"counters"`

	Throughput checkpoint.Metrics `json:"throughput"`
}

// RunReport describes one finished run.
type RunReport struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	From       uint64        `json:"from"`
	Latest     uint64        `json:"latest"`
	Windows    int           `json:"windows"`
	NoOp       bool          `json:"no_op"`
	Counters   Counters      `json:"counters"`
	GapsQueued int           `json:"gaps_queued"`
	Error      string        `json:"error,omitempty"`
}

// MessageWriter persists decoded messages.
type MessageWriter interface {
	Write(ctx context.Context, m domain.IndexedMessage) error
}

// Locator finds the first block to index on a fresh store.
type Locator interface {
	Earliest(ctx context.Context, latest uint64) (uint64, error)
}

// Config holds indexer configuration
type Config struct {
	ChainID    string
	Reader     chain.Reader
	Decoder    *decoder.Decoder
	Writer     MessageWriter
	Checkpoint checkpoint.Manager
	Locator    Locator
	// Drainer records and replays abandoned windows. Optional.
	Drainer *rescan.Drainer
	// Locker keeps runs of several processes from overlapping. Optional.
	Locker rescan.Locker

	WindowSize         uint64
	Workers            int
	MaxRetries         uint64
	RetryDelay         time.Duration
	StatusPollInterval time.Duration
	RunInterval        time.Duration
	RunLockTTL         time.Duration
}

func (c *Config) applyDefaults() {
	if c.WindowSize == 0 {
		c.WindowSize = 500
	}
	if c.Workers <= 0 {
		c.Workers = 10
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.StatusPollInterval <= 0 {
		c.StatusPollInterval = 5 * time.Second
	}
	if c.RunInterval <= 0 {
		c.RunInterval = 24 * time.Hour
	}
	if c.RunLockTTL <= 0 {
		c.RunLockTTL = 6 * time.Hour
	}
}
