package cosmos

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/infra/chain"
	"github.com/vietddude/gravity-indexer/internal/infra/chain/wire"
)

const (
	methodGetLatestBlock   = "/cosmos.base.tendermint.v1beta1.Service/GetLatestBlock"
	methodGetBlockByHeight = "/cosmos.base.tendermint.v1beta1.Service/GetBlockByHeight"
	methodGetSyncing       = "/cosmos.base.tendermint.v1beta1.Service/GetSyncing"
)

// Reader implements chain.Reader against the Cosmos SDK tendermint gRPC service.
type Reader struct {
	conn        grpc.ClientConnInterface
	closer      func() error
	timeout     time.Duration
	parallelism int
}

// Ensure Reader implements chain.Reader
var _ chain.Reader = (*Reader)(nil)

// Dial connects to a node's gRPC endpoint. The connection is established lazily.
func Dial(endpoint string, timeout time.Duration, parallelism int) (*Reader, error) {
	target := endpoint
	var opts []grpc.DialOption

	// Check scheme
	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(64<<20)))

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}

	r := NewReader(conn, timeout, parallelism)
	r.closer = conn.Close
	return r, nil
}

// NewReader wraps an existing connection.
func NewReader(conn grpc.ClientConnInterface, timeout time.Duration, parallelism int) *Reader {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Reader{
		conn:        conn,
		timeout:     timeout,
		parallelism: parallelism,
	}
}

func (r *Reader) invoke(ctx context.Context, method string, req []byte) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	out := &rawMessage{}
	if err := r.conn.Invoke(ctx, method, &rawMessage{b: req}, out, grpc.ForceCodec(rawCodec{})); err != nil {
		return nil, err
	}
	return out.b, nil
}

// Status reports the node head. A response without a block header means the
// node is waiting to start.
func (r *Reader) Status(ctx context.Context) (chain.Status, error) {
	resp, err := r.invoke(ctx, methodGetLatestBlock, nil)
	if err != nil {
		return chain.Status{}, fmt.Errorf("failed to get latest block: %w", err)
	}

	block, err := parseBlockResponse(resp)
	if err != nil {
		return chain.Status{}, fmt.Errorf("failed to parse latest block: %w", err)
	}
	if block == nil || block.Height == 0 {
		return chain.Status{State: chain.StateNotStarted}, nil
	}

	state := chain.StateMoving
	syncing, err := r.syncing(ctx)
	if err == nil && syncing {
		state = chain.StateSyncing
	}
	return chain.Status{State: state, Height: block.Height}, nil
}

func (r *Reader) syncing(ctx context.Context) (bool, error) {
	resp, err := r.invoke(ctx, methodGetSyncing, nil)
	if err != nil {
		return false, err
	}
	var syncing bool
	err = wire.Walk(resp, func(f wire.Field) error {
		if f.Num == 1 && f.Type == protowire.VarintType {
			syncing = protowire.DecodeBool(f.Varint)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return syncing, nil
}

// GetBlock fetches a block by height.
func (r *Reader) GetBlock(ctx context.Context, height uint64) (*domain.Block, error) {
	var req []byte
	req = protowire.AppendTag(req, 1, protowire.VarintType)
	req = protowire.AppendVarint(req, height)

	resp, err := r.invoke(ctx, methodGetBlockByHeight, req)
	if err != nil {
		if isNotAvailable(err) {
			return nil, fmt.Errorf("height %d: %w", height, chain.ErrBlockNotFound)
		}
		return nil, fmt.Errorf("failed to get block %d: %w", height, err)
	}

	block, err := parseBlockResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse block %d: %w", height, err)
	}
	if block == nil {
		return nil, fmt.Errorf("height %d: %w", height, chain.ErrBlockNotFound)
	}
	return block, nil
}

// GetBlockRange fetches [start, end) with bounded parallel GetBlock calls.
func (r *Reader) GetBlockRange(ctx context.Context, start, end uint64) ([]*domain.Block, error) {
	return chain.FetchRange(ctx, r.GetBlock, start, end, r.parallelism)
}

// Close releases the connection.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer()
	}
	return nil
}

// isNotAvailable matches the SDK's errors for pruned or future heights.
func isNotAvailable(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(st.Message())
	switch st.Code() {
	case codes.NotFound:
		return true
	case codes.InvalidArgument, codes.Unknown:
		return strings.Contains(msg, "not available") ||
			strings.Contains(msg, "lowest height") ||
			strings.Contains(msg, "greater than the current height") ||
			strings.Contains(msg, "must be less than or equal")
	}
	return false
}
