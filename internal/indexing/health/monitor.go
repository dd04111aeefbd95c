package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/gravity-indexer/internal/infra/chain"
)

// HeadSource reports the node's sync state.
type HeadSource interface {
	Status(ctx context.Context) (chain.Status, error)
}

// LagSource computes how far the checkpoint trails a height.
type LagSource interface {
	GetLag(ctx context.Context, latest uint64) (int64, error)
}

// GapCounter counts windows waiting for rescan.
type GapCounter interface {
	Pending(ctx context.Context) (int, error)
}

// Monitor aggregates health status from the node, checkpoint and gap queue.
type Monitor struct {
	chainID    string
	head       HeadSource
	lag        LagSource
	gaps       GapCounter
	thresholds Thresholds
	cacheFor   time.Duration

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport *ChainHealth
}

// NewMonitor creates a new health monitor. gaps may be nil.
func NewMonitor(chainID string, head HeadSource, lag LagSource, gaps GapCounter, thresholds Thresholds) *Monitor {
	return &Monitor{
		chainID:    chainID,
		head:       head,
		lag:        lag,
		gaps:       gaps,
		thresholds: thresholds,
		cacheFor:   10 * time.Second,
	}
}

// CheckHealth returns the current health. Results are cached briefly to
// avoid hitting the node on every probe.
func (m *Monitor) CheckHealth(ctx context.Context) ChainHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < m.cacheFor {
		return *m.lastReport
	}

	h := ChainHealth{ChainID: m.chainID, Status: StatusHealthy}

	st, err := m.head.Status(ctx)
	if err != nil {
		h.Status = StatusDegraded
		h.Error = err.Error()
	} else {
		h.NodeState = st.State.String()
		h.LatestBlock = st.Height
		if st.State == chain.StateNotStarted {
			h.Status = StatusDegraded
		} else if lag, err := m.lag.GetLag(ctx, st.Height); err == nil && lag > 0 {
			h.BlockLag = uint64(lag)
		}
	}

	if m.gaps != nil {
		if n, err := m.gaps.Pending(ctx); err == nil {
			h.PendingGaps = n
		}
	}

	t := m.thresholds
	switch {
	case h.BlockLag > t.CriticalLag || h.PendingGaps > t.CriticalGaps:
		h.Status = StatusCritical
	case h.BlockLag > t.DegradedLag || h.PendingGaps > 0:
		h.Status = StatusDegraded
	}

	m.lastCheck = time.Now()
	m.lastReport = &h
	return h
}
