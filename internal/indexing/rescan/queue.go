package rescan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/infra/storage"
)

// GapPrefix prefixes gap records in the KV store.
const GapPrefix = "gap:"

// Queue holds abandoned windows until they are re-indexed.
type Queue interface {
	// Push records or replaces the gap for gap.Window.
	Push(ctx context.Context, gap domain.Gap) error

	// List returns all gaps ordered by start height.
	List(ctx context.Context) ([]domain.Gap, error)

	// Remove deletes the gap for w.
	Remove(ctx context.Context, w domain.Window) error
}

// KVQueue stores gaps in the message store under "gap:{start:012d}-{end:012d}".
// The keys have two segments, so message scans skip them.
type KVQueue struct {
	store storage.Store
}

// NewKVQueue creates a store-backed gap queue.
func NewKVQueue(store storage.Store) *KVQueue {
	return &KVQueue{store: store}
}

func gapKey(w domain.Window) []byte {
	return []byte(fmt.Sprintf("%s%012d-%012d", GapPrefix, w.Start, w.End))
}

func (q *KVQueue) Push(ctx context.Context, gap domain.Gap) error {
	data, err := json.Marshal(gap)
	if err != nil {
		return fmt.Errorf("failed to marshal gap: %w", err)
	}
	if err := q.store.Put(ctx, gapKey(gap.Window), data); err != nil {
		return fmt.Errorf("failed to push gap %s: %w", gap.Window, err)
	}
	return nil
}

func (q *KVQueue) List(ctx context.Context) ([]domain.Gap, error) {
	var gaps []domain.Gap
	err := q.store.Iterate(ctx, []byte(GapPrefix), func(key, value []byte) error {
		w, err := domain.ParseWindow(strings.TrimPrefix(string(key), GapPrefix))
		if err != nil {
			slog.Warn("Skipping malformed gap key", "key", string(key), "error", err)
			return nil
		}
		gap := domain.Gap{Window: w}
		if err := json.Unmarshal(value, &gap); err != nil {
			slog.Warn("Gap metadata unreadable", "key", string(key), "error", err)
		}
		gap.Window = w
		gaps = append(gaps, gap)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list gaps: %w", err)
	}
	return gaps, nil
}

func (q *KVQueue) Remove(ctx context.Context, w domain.Window) error {
	if err := q.store.Delete(ctx, gapKey(w)); err != nil {
		return fmt.Errorf("failed to remove gap %s: %w", w, err)
	}
	return nil
}
