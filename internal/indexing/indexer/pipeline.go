package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/indexing/metrics"
	"github.com/vietddude/gravity-indexer/internal/indexing/rescan"
	"github.com/vietddude/gravity-indexer/internal/infra/chain"
	"github.com/vietddude/gravity-indexer/internal/infra/retry"
)

// Pipeline implements the Indexer interface
type Pipeline struct {
	cfg      Config
	counters RunCounters
	running  atomic.Bool
	looping  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	log      *slog.Logger

	mu      sync.RWMutex
	latest  uint64
	lastRun *RunReport
}

// Ensure Pipeline implements Indexer
var _ Indexer = (*Pipeline)(nil)

// NewPipeline creates a new indexing pipeline
func NewPipeline(cfg Config) *Pipeline {
	cfg.applyDefaults()
	return &Pipeline{
		cfg:  cfg,
		stop: make(chan struct{}),
		log:  slog.Default().With("component", "indexer", "chain", cfg.ChainID),
	}
}

// GetStatus returns the current status
func (p *Pipeline) GetStatus() Status {
	p.mu.RLock()
	latest := p.latest
	var last *RunReport
	if p.lastRun != nil {
		r := *p.lastRun
		last = &r
	}
	p.mu.RUnlock()

	st := Status{
		ChainID:     p.cfg.ChainID,
		Running:     p.running.Load(),
		LatestBlock: latest,
		LastRun:     last,
		Counters:    p.counters.Snapshot(),
		Throughput:  p.cfg.Checkpoint.GetMetrics(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if cp, ok, err := p.cfg.Checkpoint.Get(ctx); err == nil && ok {
		st.Checkpoint = cp
		if latest > 0 {
			st.Lag = int64(latest) - int64(cp)
		}
	}
	return st
}

// RunOnce performs one bootstrap/resume, crawl, checkpoint cycle.
func (p *Pipeline) RunOnce(ctx context.Context) (RunReport, error) {
	if !p.running.CompareAndSwap(false, true) {
		return RunReport{}, ErrRunInProgress
	}
	defer p.running.Store(false)

	report := RunReport{RunID: uuid.NewString(), StartedAt: time.Now()}
	log := p.log.With("run_id", report.RunID)

	if p.cfg.Locker != nil {
		name := "run:" + p.cfg.ChainID
		locked, err := p.cfg.Locker.TryLock(ctx, name, p.cfg.RunLockTTL)
		if err != nil {
			return report, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		if !locked {
			return report, ErrRunInProgress
		}
		defer func() {
			if err := p.cfg.Locker.Unlock(context.WithoutCancel(ctx), name); err != nil {
				log.Warn("Failed to release run lock", "error", err)
			}
		}()
	}

	p.counters.Reset()
	err := p.run(ctx, log, &report)

	report.Duration = time.Since(report.StartedAt)
	report.Counters = p.counters.Snapshot()
	result := "success"
	if err != nil {
		report.Error = err.Error()
		result = "error"
	}
	metrics.RunsTotal.WithLabelValues(p.cfg.ChainID, result).Inc()
	metrics.RunDuration.WithLabelValues(p.cfg.ChainID).Observe(report.Duration.Seconds())

	p.mu.Lock()
	r := report
	p.lastRun = &r
	p.mu.Unlock()

	return report, err
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, report *RunReport) error {
	log.Info("Started downloading & parsing transactions")

	latest, err := p.waitForHead(ctx, log)
	if err != nil {
		return err
	}
	report.Latest = latest
	p.mu.Lock()
	p.latest = latest
	p.mu.Unlock()

	if p.cfg.Drainer != nil {
		stats, err := p.cfg.Drainer.Drain(ctx, p.processWindow)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("Failed to drain gaps", "error", err)
		}
		p.counters.gapsRecovered.Add(uint64(stats.Recovered))
	}

	from, err := p.resumeHeight(ctx, latest)
	if err != nil {
		return err
	}
	report.From = from

	if from > latest {
		report.NoOp = true
		log.Info("Already up to date", "checkpoint", from-1, "latest", latest)
		return nil
	}

	windows := rescan.Partition(domain.Window{Start: from, End: latest + 1}, p.cfg.WindowSize)
	report.Windows = len(windows)
	log.Info("This node has blocks to download, downloading to database",
		"from", from, "latest", latest, "blocks", latest-from+1, "windows", len(windows))

	queued := p.runWindows(ctx, log, windows)
	report.GapsQueued = queued
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.cfg.Checkpoint.Advance(ctx, latest); err != nil {
		return fmt.Errorf("failed to advance checkpoint: %w", err)
	}
	metrics.IndexerLatestBlock.WithLabelValues(p.cfg.ChainID).Set(float64(latest))

	c := p.counters.Snapshot()
	log.Info("Successfully downloaded blocks",
		"blocks", c.Blocks,
		"transactions", c.RelevantTxs,
		"send_to_eth", c.SendToEth,
		"ibc_transfer", c.IBCTransfers+c.IBCRecv,
		"abandoned_windows", c.WindowsAbandoned,
		"seconds", int(time.Since(report.StartedAt).Seconds()),
	)
	return nil
}

// runWindows processes windows on a bounded pool and returns how many were
// queued as gaps.
func (p *Pipeline) runWindows(ctx context.Context, log *slog.Logger, windows []domain.Window) int {
	var queued atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Workers)
	for _, w := range windows {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			log.Debug("Searching block range", "start", w.Start, "end", w.End)
			remaining, err := p.processWindow(ctx, w)
			if remaining.Empty() || ctx.Err() != nil {
				return nil
			}

			p.counters.windowsAbandoned.Add(1)
			metrics.WindowsAbandoned.WithLabelValues(p.cfg.ChainID).Inc()
			log.Error("Error getting block range, exceeded max retries",
				"window", w.String(), "remaining", remaining.String(), "error", err)

			if p.cfg.Drainer != nil {
				if rerr := p.cfg.Drainer.Record(ctx, remaining, err, int(p.cfg.MaxRetries)+1); rerr != nil {
					log.Error("Failed to record gap", "window", remaining.String(), "error", rerr)
					return nil
				}
				queued.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(queued.Load())
}

// resumeHeight returns checkpoint+1, or the earliest servable block on a
// fresh store.
func (p *Pipeline) resumeHeight(ctx context.Context, latest uint64) (uint64, error) {
	cp, ok, err := p.cfg.Checkpoint.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if ok {
		return cp + 1, nil
	}

	if p.cfg.Locator == nil {
		return 0, nil
	}
	earliest, err := p.cfg.Locator.Earliest(ctx, latest)
	if err != nil {
		return 0, fmt.Errorf("failed to locate earliest block: %w", err)
	}
	return earliest, nil
}

// waitForHead returns the node's latest height. Transient errors go through
// the retry policy; a node reporting StateNotStarted is polled without limit
// and each poll starts with a fresh retry budget.
func (p *Pipeline) waitForHead(ctx context.Context, log *slog.Logger) (uint64, error) {
	policy := retry.Constant(p.cfg.MaxRetries, p.cfg.RetryDelay)
	policy.OnRetry = func(attempt int, err error) {
		log.Warn("Failed to get latest block, retrying", "attempt", attempt, "error", err)
	}

	for {
		var st chain.Status
		err := retry.Do(ctx, policy, func(ctx context.Context) error {
			var err error
			st, err = p.cfg.Reader.Status(ctx)
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("failed to get chain status: %w", err)
		}

		if st.State != chain.StateNotStarted {
			if st.State == chain.StateSyncing {
				log.Warn("Node is still syncing, indexing up to its current height", "height", st.Height)
			}
			return st.Height, nil
		}

		log.Error("Node is waiting to start after an upgrade, can not get latest block")
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(p.cfg.StatusPollInterval):
		}
	}
}
