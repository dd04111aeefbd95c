package rescan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/indexing/metrics"
)

// WindowFunc indexes a window and returns the part left unfinished, which is
// empty on full success.
type WindowFunc func(ctx context.Context, w domain.Window) (domain.Window, error)

// Locker takes short-lived named locks shared between indexer processes.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, name string) error
}

// DrainConfig holds configuration for draining gaps.
type DrainConfig struct {
	ChunkSize uint64        // Max heights per rescanned window
	LockTTL   time.Duration // Per-window lock TTL when a Locker is set
}

// DefaultDrainConfig returns default drain configuration.
func DefaultDrainConfig() DrainConfig {
	return DrainConfig{
		ChunkSize: 500,
		LockTTL:   10 * time.Minute,
	}
}

// DrainStats summarises one drain pass.
type DrainStats struct {
	Gaps      int
	Recovered int
	Remaining int
}

// Drainer re-runs abandoned windows.
type Drainer struct {
	cfg     DrainConfig
	chainID string
	queue   Queue
	locker  Locker
	log     *slog.Logger
}

// NewDrainer creates a drainer. locker may be nil.
func NewDrainer(cfg DrainConfig, chainID string, queue Queue, locker Locker) *Drainer {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultDrainConfig().ChunkSize
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = DefaultDrainConfig().LockTTL
	}
	return &Drainer{
		cfg:     cfg,
		chainID: chainID,
		queue:   queue,
		locker:  locker,
		log:     slog.Default().With("component", "rescan", "chain", chainID),
	}
}

// Record stores an abandoned window.
func (d *Drainer) Record(ctx context.Context, w domain.Window, reason error, attempts int) error {
	gap := domain.Gap{
		Window:    w,
		Attempts:  attempts,
		CreatedAt: time.Now().Unix(),
	}
	if reason != nil {
		gap.Reason = reason.Error()
	}
	if err := d.queue.Push(ctx, gap); err != nil {
		return err
	}
	d.log.Warn("Recorded gap", "window", w.String(), "attempts", attempts, "reason", gap.Reason)
	return nil
}

// Pending returns the current number of gaps.
func (d *Drainer) Pending(ctx context.Context) (int, error) {
	gaps, err := d.queue.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(gaps), nil
}

// Drain merges queued gaps and re-runs each through run. A gap is removed
// only after its window fully succeeds; otherwise its remainder is queued
// again with the attempt count bumped.
func (d *Drainer) Drain(ctx context.Context, run WindowFunc) (DrainStats, error) {
	var stats DrainStats

	gaps, err := d.compact(ctx)
	if err != nil {
		return stats, err
	}
	stats.Gaps = len(gaps)
	if len(gaps) == 0 {
		metrics.GapsPending.WithLabelValues(d.chainID).Set(0)
		return stats, nil
	}
	d.log.Info("Draining gaps", "count", len(gaps))

	for _, gap := range gaps {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		ok, err := d.drainOne(ctx, gap, run)
		if err != nil {
			return stats, err
		}
		if ok {
			stats.Recovered++
		} else {
			stats.Remaining++
		}
	}

	metrics.GapsPending.WithLabelValues(d.chainID).Set(float64(stats.Remaining))
	d.log.Info("Gap drain finished", "recovered", stats.Recovered, "remaining", stats.Remaining)
	return stats, nil
}

// compact merges overlapping gaps in the queue and returns the merged list.
func (d *Drainer) compact(ctx context.Context) ([]domain.Gap, error) {
	gaps, err := d.queue.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list gaps: %w", err)
	}
	if len(gaps) <= 1 {
		return gaps, nil
	}

	windows := make([]domain.Window, len(gaps))
	for i, g := range gaps {
		windows[i] = g.Window
	}
	merged := Merge(windows)
	if len(merged) == len(gaps) {
		return gaps, nil
	}

	out := make([]domain.Gap, 0, len(merged))
	for _, w := range merged {
		g := domain.Gap{Window: w, CreatedAt: time.Now().Unix()}
		for _, old := range gaps {
			if Touches(w, old.Window) {
				g.Attempts = max(g.Attempts, old.Attempts)
				if g.Reason == "" {
					g.Reason = old.Reason
				}
			}
		}
		out = append(out, g)
	}

	// Push merged before removing originals so a crash leaves a superset.
	for _, g := range out {
		if err := d.queue.Push(ctx, g); err != nil {
			return nil, err
		}
	}
	for _, old := range gaps {
		if isIn(old.Window, out) {
			continue
		}
		if err := d.queue.Remove(ctx, old.Window); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func isIn(w domain.Window, gaps []domain.Gap) bool {
	for _, g := range gaps {
		if g.Window == w {
			return true
		}
	}
	return false
}

func (d *Drainer) drainOne(ctx context.Context, gap domain.Gap, run WindowFunc) (bool, error) {
	if d.locker != nil {
		name := fmt.Sprintf("rescan:%s:%s", d.chainID, gap.Window)
		locked, err := d.locker.TryLock(ctx, name, d.cfg.LockTTL)
		if err != nil {
			return false, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if !locked {
			d.log.Debug("Gap already locked by another worker", "window", gap.Window.String())
			return false, nil
		}
		defer func() {
			if err := d.locker.Unlock(ctx, name); err != nil {
				d.log.Warn("Failed to release lock", "error", err)
			}
		}()
	}

	for _, chunk := range Partition(gap.Window, d.cfg.ChunkSize) {
		remaining, err := run(ctx, chunk)
		if remaining.Empty() {
			continue
		}

		// Re-queue what is left of this gap
		left := domain.Window{Start: remaining.Start, End: gap.Window.End}
		next := domain.Gap{
			Window:    left,
			Attempts:  gap.Attempts + 1,
			CreatedAt: gap.CreatedAt,
		}
		if err != nil {
			next.Reason = err.Error()
		}
		if pushErr := d.queue.Push(ctx, next); pushErr != nil {
			return false, pushErr
		}
		if left != gap.Window {
			if rmErr := d.queue.Remove(ctx, gap.Window); rmErr != nil {
				return false, rmErr
			}
		}
		d.log.Warn("Gap still incomplete", "window", left.String(), "attempts", next.Attempts, "error", err)
		return false, nil
	}

	if err := d.queue.Remove(ctx, gap.Window); err != nil {
		return false, err
	}
	d.log.Info("Gap recovered", "window", gap.Window.String())
	return true, nil
}
