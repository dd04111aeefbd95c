package chain

import (
	"context"
	"errors"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
)

// ErrBlockNotFound is returned for heights the node cannot serve (pruned or in the future).
var ErrBlockNotFound = errors.New("block not found")

// SyncState is the node's reported progress.
type SyncState int

const (
	StateNotStarted SyncState = iota
	StateSyncing
	StateMoving
)

func (s SyncState) String() string {
	switch s {
	case StateSyncing:
		return "syncing"
	case StateMoving:
		return "moving"
	default:
		return "not_started"
	}
}

// Status is a snapshot of the node's head. Height is valid unless State is
// StateNotStarted, which readers report for a node waiting to start after an
// upgrade.
type Status struct {
	State  SyncState
	Height uint64
}

// Reader is the boundary between the indexer and the ledger node.
type Reader interface {
	// Status returns the node's sync state and latest height.
	Status(ctx context.Context) (Status, error)

	// GetBlock fetches a single block. Returns ErrBlockNotFound when the node
	// does not hold it.
	GetBlock(ctx context.Context, height uint64) (*domain.Block, error)

	// GetBlockRange fetches blocks in [start, end) in ascending order. The
	// result may be a non-empty prefix of the range.
	GetBlockRange(ctx context.Context, start, end uint64) ([]*domain.Block, error)

	Close() error
}
