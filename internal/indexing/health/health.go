// Package health provides indexer health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the indexer.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ChainHealth contains health metrics for the indexed chain.
type ChainHealth struct {
	ChainID     string       `json:"chain_id"`
	Status      SystemStatus `json:"status"`
	NodeState   string       `json:"node_state"`
	LatestBlock uint64       `json:"latest_block"`
	BlockLag    uint64       `json:"block_lag"`
	PendingGaps int          `json:"pending_gaps"`
	Error       string       `json:"error,omitempty"`
}

// Thresholds decide when lag and gaps degrade the status. Runs are periodic,
// so a lag of one run interval is normal.
type Thresholds struct {
	DegradedLag  uint64
	CriticalLag  uint64
	CriticalGaps int
}

// DefaultThresholds suits a daily run on a ~6s block chain.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DegradedLag:  30_000,
		CriticalLag:  150_000,
		CriticalGaps: 50,
	}
}
