package chain

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
)

// BlockGetter fetches one block by height.
type BlockGetter func(ctx context.Context, height uint64) (*domain.Block, error)

// FetchRange fetches [start, end) with at most parallelism requests in flight.
// When some heights fail it returns the contiguous prefix that succeeded, or
// the first error when that prefix is empty.
func FetchRange(
	ctx context.Context,
	get BlockGetter,
	start, end uint64,
	parallelism int,
) ([]*domain.Block, error) {
	if end <= start {
		return nil, nil
	}
	if parallelism <= 0 {
		parallelism = 1
	}

	n := end - start
	blocks := make([]*domain.Block, n)
	errs := make([]error, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := uint64(0); i < n; i++ {
		g.Go(func() error {
			b, err := get(gctx, start+i)
			if err == nil && b == nil {
				err = ErrBlockNotFound
			}
			if err != nil {
				errs[i] = err
				// Cancel the rest; nothing past the first failure is returned.
				return err
			}
			blocks[i] = b
			return nil
		})
	}
	_ = g.Wait()

	for i := range blocks {
		if errs[i] != nil {
			if i == 0 {
				return nil, errs[i]
			}
			return blocks[:i], nil
		}
	}
	return blocks, nil
}
