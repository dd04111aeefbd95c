package comet

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"

	"github.com/vietddude/gravity-indexer/internal/infra/chain"
)

type mockClient struct {
	earliest   int64
	latest     int64
	catchingUp bool
}

func (m *mockClient) Status(ctx context.Context) (*coretypes.ResultStatus, error) {
	return &coretypes.ResultStatus{
		SyncInfo: coretypes.SyncInfo{
			LatestBlockHeight:   m.latest,
			EarliestBlockHeight: m.earliest,
			CatchingUp:          m.catchingUp,
		},
	}, nil
}

func (m *mockClient) Block(ctx context.Context, height *int64) (*coretypes.ResultBlock, error) {
	h := *height
	if h < m.earliest {
		return nil, fmt.Errorf("height %d is not available, lowest height is %d", h, m.earliest)
	}
	if h > m.latest {
		return nil, fmt.Errorf("height %d must be less than or equal to the current blockchain height %d", h, m.latest)
	}
	block := &cmttypes.Block{}
	block.Height = h
	block.Time = time.Unix(1700000000+h, 0).UTC()
	block.Data.Txs = cmttypes.Txs{cmttypes.Tx(fmt.Sprintf("tx-%d", h))}
	return &coretypes.ResultBlock{Block: block}, nil
}

func TestReader_Status(t *testing.T) {
	tests := []struct {
		name   string
		client *mockClient
		want   chain.Status
	}{
		{"moving", &mockClient{latest: 500}, chain.Status{State: chain.StateMoving, Height: 500}},
		{"syncing", &mockClient{latest: 500, catchingUp: true}, chain.Status{State: chain.StateSyncing, Height: 500}},
		{"not started", &mockClient{}, chain.Status{State: chain.StateNotStarted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.client, time.Second, 2)
			got, err := r.Status(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Status() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReader_GetBlock(t *testing.T) {
	r := NewReader(&mockClient{earliest: 10, latest: 100}, time.Second, 2)

	b, err := r.GetBlock(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Height != 42 || b.Timestamp != 1700000042 || len(b.Txs) != 1 {
		t.Errorf("block = %+v", b)
	}

	if _, err := r.GetBlock(context.Background(), 5); !errors.Is(err, chain.ErrBlockNotFound) {
		t.Errorf("expected ErrBlockNotFound below earliest, got %v", err)
	}
	if _, err := r.GetBlock(context.Background(), 101); !errors.Is(err, chain.ErrBlockNotFound) {
		t.Errorf("expected ErrBlockNotFound above latest, got %v", err)
	}
}

func TestReader_GetBlockRange(t *testing.T) {
	r := NewReader(&mockClient{earliest: 0, latest: 100}, time.Second, 3)

	blocks, err := r.GetBlockRange(context.Background(), 90, 95)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(blocks))
	}
	for i, b := range blocks {
		if b.Height != uint64(90+i) {
			t.Errorf("blocks[%d].Height = %d", i, b.Height)
		}
	}
}
