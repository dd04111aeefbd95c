// Package checkpoint persists the highest fully indexed block height.
//
// # Purpose
//
// The checkpoint is the indexer's bookmark. A run resumes at checkpoint+1 and,
// once its windows are done, records the latest height it observed at start.
//
// # Storage
//
// The value lives under the reserved key "last_download_block" as a decimal
// string, next to the message records in the same KV store.
//
// # Monotonicity
//
// Advance never lowers the stored height. Only Reset, used by the operator
// command, may move it backwards.
//
//	m := checkpoint.NewManager(store)
//	h, ok, _ := m.Get(ctx)     // 0, false on a fresh store
//	_ = m.Advance(ctx, 12000)  // stored
//	_ = m.Advance(ctx, 11000)  // ErrRegression
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/vietddude/gravity-indexer/internal/infra/storage"
)

// Key is the reserved store key holding the checkpoint.
const Key = "last_download_block"

// ErrRegression is returned when Advance would lower the checkpoint.
var ErrRegression = errors.New("checkpoint regression")

// Manager reads and writes the checkpoint.
type Manager interface {
	// Get returns the stored height and whether one exists.
	Get(ctx context.Context) (uint64, bool, error)

	// Advance stores height if it is not below the current value.
	Advance(ctx context.Context, height uint64) error

	// Reset overwrites the checkpoint unconditionally.
	Reset(ctx context.Context, height uint64) error

	// Clear removes the checkpoint so the next run bootstraps.
	Clear(ctx context.Context) error

	// GetLag returns how many blocks the checkpoint trails latest.
	GetLag(ctx context.Context, latest uint64) (int64, error)

	// GetMetrics returns throughput across recent advances.
	GetMetrics() Metrics
}

// DefaultManager implements Manager on a storage.Store.
type DefaultManager struct {
	store     storage.Store
	mu        sync.Mutex
	collector *MetricsCollector
}

// NewManager creates a checkpoint manager.
func NewManager(store storage.Store) *DefaultManager {
	return &DefaultManager{
		store:     store,
		collector: NewMetricsCollector(100),
	}
}

// Get retrieves the checkpoint.
func (m *DefaultManager) Get(ctx context.Context) (uint64, bool, error) {
	raw, err := m.store.Get(ctx, []byte(Key))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	height, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse checkpoint %q: %w", raw, err)
	}
	return height, true, nil
}

// Advance moves the checkpoint forward.
func (m *DefaultManager) Advance(ctx context.Context, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok, err := m.Get(ctx)
	if err != nil {
		return err
	}
	if ok && height < current {
		return fmt.Errorf("%w: at %d, got %d", ErrRegression, current, height)
	}
	if ok && height == current {
		return nil
	}

	if err := m.put(ctx, height); err != nil {
		return err
	}

	m.collector.RecordAdvance(height, time.Now())
	return nil
}

// Reset overwrites the checkpoint.
func (m *DefaultManager) Reset(ctx context.Context, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.put(ctx, height); err != nil {
		return err
	}
	m.collector.Reset()
	return nil
}

// Clear deletes the checkpoint.
func (m *DefaultManager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx, []byte(Key)); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	m.collector.Reset()
	return nil
}

// GetLag returns how many blocks behind the chain tip.
func (m *DefaultManager) GetLag(ctx context.Context, latest uint64) (int64, error) {
	current, ok, err := m.Get(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return int64(latest), nil
	}
	return int64(latest) - int64(current), nil
}

// GetMetrics returns performance metrics.
func (m *DefaultManager) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collector.GetMetrics()
}

func (m *DefaultManager) put(ctx context.Context, height uint64) error {
	value := strconv.FormatUint(height, 10)
	if err := m.store.Put(ctx, []byte(Key), []byte(value)); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}
