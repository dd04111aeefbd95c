package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
)

// GapQueue stores abandoned windows in a sorted set scored by start height.
// Gap metadata lives in a companion hash keyed by the same member.
type GapQueue struct {
	rdb     *redis.Client
	chainID string
}

// NewGapQueue creates a Redis-backed gap queue for one chain.
func NewGapQueue(client *Client, chainID string) *GapQueue {
	return &GapQueue{
		rdb:     client.rdb,
		chainID: chainID,
	}
}

// Push records or replaces a gap.
func (q *GapQueue) Push(ctx context.Context, gap domain.Gap) error {
	member := gap.Window.String()
	data, err := json.Marshal(gap)
	if err != nil {
		return fmt.Errorf("failed to marshal gap: %w", err)
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, gapQueueKey(q.chainID), redis.Z{Score: float64(gap.Window.Start), Member: member})
		pipe.HSet(ctx, gapMetaKey(q.chainID), member, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push gap %s: %w", member, err)
	}
	return nil
}

// List returns all gaps ordered by start height.
func (q *GapQueue) List(ctx context.Context) ([]domain.Gap, error) {
	members, err := q.rdb.ZRange(ctx, gapQueueKey(q.chainID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	meta, err := q.rdb.HMGet(ctx, gapMetaKey(q.chainID), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("hmget failed: %w", err)
	}

	gaps := make([]domain.Gap, 0, len(members))
	for i, member := range members {
		w, err := domain.ParseWindow(member)
		if err != nil {
			slog.Warn("Skipping malformed gap member", "member", member, "error", err)
			continue
		}
		gap := domain.Gap{Window: w}
		if raw, ok := meta[i].(string); ok {
			if err := json.Unmarshal([]byte(raw), &gap); err != nil {
				slog.Warn("Gap metadata unreadable", "member", member, "error", err)
			}
			gap.Window = w
		}
		gaps = append(gaps, gap)
	}
	return gaps, nil
}

// Remove deletes a gap once its window has been indexed.
func (q *GapQueue) Remove(ctx context.Context, w domain.Window) error {
	member := w.String()
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, gapQueueKey(q.chainID), member)
		pipe.HDel(ctx, gapMetaKey(q.chainID), member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove gap %s: %w", member, err)
	}
	return nil
}
