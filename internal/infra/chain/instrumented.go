package chain

import (
	"context"
	"time"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/indexing/metrics"
)

// Instrumented records call counts, errors and latency for a Reader.
type Instrumented struct {
	Reader
	chainID string
}

// NewInstrumented wraps r with Prometheus metrics labelled by chainID.
func NewInstrumented(r Reader, chainID string) *Instrumented {
	return &Instrumented{Reader: r, chainID: chainID}
}

func (i *Instrumented) observe(method string, start time.Time, err error) {
	metrics.RPCCallsTotal.WithLabelValues(i.chainID, method).Inc()
	metrics.RPCLatency.WithLabelValues(i.chainID, method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(i.chainID, method).Inc()
	}
}

func (i *Instrumented) Status(ctx context.Context) (Status, error) {
	start := time.Now()
	st, err := i.Reader.Status(ctx)
	i.observe("status", start, err)
	if err == nil && st.State != StateNotStarted {
		metrics.ChainLatestBlock.WithLabelValues(i.chainID).Set(float64(st.Height))
	}
	return st, err
}

func (i *Instrumented) GetBlock(ctx context.Context, height uint64) (*domain.Block, error) {
	start := time.Now()
	b, err := i.Reader.GetBlock(ctx, height)
	i.observe("get_block", start, err)
	return b, err
}

func (i *Instrumented) GetBlockRange(ctx context.Context, start, end uint64) ([]*domain.Block, error) {
	began := time.Now()
	blocks, err := i.Reader.GetBlockRange(ctx, start, end)
	i.observe("get_block_range", began, err)
	return blocks, err
}
