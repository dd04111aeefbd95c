// Package bootstrap finds the earliest block a node can still serve.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/infra/chain"
	"github.com/vietddude/gravity-indexer/internal/infra/retry"
)

// ErrNoBlocks is returned when no height in [0, latest] can be fetched.
var ErrNoBlocks = errors.New("no servable blocks")

// BlockFetcher is the part of chain.Reader the locator needs.
type BlockFetcher interface {
	GetBlock(ctx context.Context, height uint64) (*domain.Block, error)
}

// Locator binary-searches for the lowest available height.
type Locator struct {
	fetcher BlockFetcher
	policy  retry.Policy
	log     *slog.Logger
}

// NewLocator creates a locator. Transient probe errors are retried with policy;
// chain.ErrBlockNotFound counts as "not available".
func NewLocator(fetcher BlockFetcher, policy retry.Policy) *Locator {
	return &Locator{
		fetcher: fetcher,
		policy:  policy,
		log:     slog.Default().With("component", "bootstrap"),
	}
}

// Earliest returns the smallest H in [0, latest] whose block can be fetched,
// assuming availability is monotone in height.
//
// The search keeps lo <= hi with every h < lo unavailable and every h >= hi
// available (hi = latest+1 is vacuously so). Each probe at mid in [lo, hi)
// moves one bound while keeping that true, and the bracket shrinks until
// lo == hi, which is then the boundary. lo == latest+1 means nothing is
// available.
func (l *Locator) Earliest(ctx context.Context, latest uint64) (uint64, error) {
	lo, hi := uint64(0), latest+1
	probes := 0

	for lo < hi {
		mid := lo + (hi-lo)/2
		ok, err := l.available(ctx, mid)
		if err != nil {
			return 0, fmt.Errorf("failed to probe height %d: %w", mid, err)
		}
		probes++
		if ok {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	if lo > latest {
		return 0, fmt.Errorf("%w in [0, %d]", ErrNoBlocks, latest)
	}

	l.log.Info("Located earliest block", "height", lo, "latest", latest, "probes", probes)
	return lo, nil
}

func (l *Locator) available(ctx context.Context, height uint64) (bool, error) {
	err := retry.Do(ctx, l.policy, func(ctx context.Context) error {
		_, err := l.fetcher.GetBlock(ctx, height)
		if errors.Is(err, chain.ErrBlockNotFound) {
			return retry.Permanent(err)
		}
		return err
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, chain.ErrBlockNotFound) {
		return false, nil
	}
	return false, err
}
