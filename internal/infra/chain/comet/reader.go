package comet

import (
	"context"
	"fmt"
	"strings"
	"time"

	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/infra/chain"
)

// rpcClient is the subset of the CometBFT RPC client the reader needs.
type rpcClient interface {
	Status(ctx context.Context) (*coretypes.ResultStatus, error)
	Block(ctx context.Context, height *int64) (*coretypes.ResultBlock, error)
}

// Reader implements chain.Reader over the CometBFT HTTP JSON-RPC API.
type Reader struct {
	client      rpcClient
	timeout     time.Duration
	parallelism int
}

// Ensure Reader implements chain.Reader
var _ chain.Reader = (*Reader)(nil)

// Dial creates a reader for a node's RPC endpoint (e.g. http://node:26657).
func Dial(endpoint string, timeout time.Duration, parallelism int) (*Reader, error) {
	secs := uint(timeout / time.Second)
	if secs == 0 {
		secs = 10
	}
	client, err := rpchttp.NewWithTimeout(endpoint, "/websocket", secs)
	if err != nil {
		return nil, fmt.Errorf("failed to create comet client for %s: %w", endpoint, err)
	}
	return NewReader(client, timeout, parallelism), nil
}

// NewReader wraps an RPC client.
func NewReader(client rpcClient, timeout time.Duration, parallelism int) *Reader {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Reader{client: client, timeout: timeout, parallelism: parallelism}
}

func (r *Reader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

// Status maps the node's sync info onto chain.Status.
func (r *Reader) Status(ctx context.Context) (chain.Status, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.client.Status(ctx)
	if err != nil {
		return chain.Status{}, fmt.Errorf("failed to get status: %w", err)
	}

	info := res.SyncInfo
	if info.LatestBlockHeight <= 0 {
		return chain.Status{State: chain.StateNotStarted}, nil
	}
	state := chain.StateMoving
	if info.CatchingUp {
		state = chain.StateSyncing
	}
	return chain.Status{State: state, Height: uint64(info.LatestBlockHeight)}, nil
}

// GetBlock fetches a block by height.
func (r *Reader) GetBlock(ctx context.Context, height uint64) (*domain.Block, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	h := int64(height)
	res, err := r.client.Block(ctx, &h)
	if err != nil {
		if isNotAvailable(err) {
			return nil, fmt.Errorf("height %d: %w", height, chain.ErrBlockNotFound)
		}
		return nil, fmt.Errorf("failed to get block %d: %w", height, err)
	}
	if res == nil || res.Block == nil {
		return nil, fmt.Errorf("height %d: %w", height, chain.ErrBlockNotFound)
	}

	block := &domain.Block{
		Height:    uint64(res.Block.Height),
		Timestamp: res.Block.Time.Unix(),
		Txs:       make([][]byte, 0, len(res.Block.Data.Txs)),
	}
	for _, tx := range res.Block.Data.Txs {
		block.Txs = append(block.Txs, []byte(tx))
	}
	return block, nil
}

// GetBlockRange fetches [start, end) with bounded parallel GetBlock calls.
func (r *Reader) GetBlockRange(ctx context.Context, start, end uint64) ([]*domain.Block, error) {
	return chain.FetchRange(ctx, r.GetBlock, start, end, r.parallelism)
}

// Close is a no-op; the HTTP client holds no long-lived connection.
func (r *Reader) Close() error {
	return nil
}

func isNotAvailable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "is not available") ||
		strings.Contains(msg, "lowest height") ||
		strings.Contains(msg, "must be less than or equal to the current blockchain height")
}
