package indexer

import (
	"sync/atomic"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
)

// RunCounters holds per-run tallies shared by all window workers.
// It is reset at the start of every run.
type RunCounters struct {
	blocks           atomic.Uint64
	transactions     atomic.Uint64
	relevantTxs      atomic.Uint64
	messages         atomic.Uint64
	sendToEth        atomic.Uint64
	ibcTransfers     atomic.Uint64
	ibcRecv          atomic.Uint64
	decodeErrors     atomic.Uint64
	windowsDone      atomic.Uint64
	windowsAbandoned atomic.Uint64
	gapsRecovered    atomic.Uint64
}

// Counters is a point-in-time copy of RunCounters.
type Counters struct {
	Blocks           uint64 `json:"blocks"`
	Transactions     uint64 `json:"transactions"`
	RelevantTxs      uint64 `json:"relevant_transactions"`
	Messages         uint64 `json:"messages"`
	SendToEth        uint64 `json:"send_to_eth"`
	IBCTransfers     uint64 `json:"ibc_transfers"`
	IBCRecv          uint64 `json:"ibc_recv"`
	DecodeErrors     uint64 `json:"decode_errors"`
	WindowsDone      uint64 `json:"windows_done"`
	WindowsAbandoned uint64 `json:"windows_abandoned"`
	GapsRecovered    uint64 `json:"gaps_recovered"`
}

// Reset zeroes all counters.
func (c *RunCounters) Reset() {
	c.blocks.Store(0)
	c.transactions.Store(0)
	c.relevantTxs.Store(0)
	c.messages.Store(0)
	c.sendToEth.Store(0)
	c.ibcTransfers.Store(0)
	c.ibcRecv.Store(0)
	c.decodeErrors.Store(0)
	c.windowsDone.Store(0)
	c.windowsAbandoned.Store(0)
	c.gapsRecovered.Store(0)
}

// Snapshot returns the current values.
func (c *RunCounters) Snapshot() Counters {
	return Counters{
		Blocks:           c.blocks.Load(),
		Transactions:     c.transactions.Load(),
		RelevantTxs:      c.relevantTxs.Load(),
		Messages:         c.messages.Load(),
		SendToEth:        c.sendToEth.Load(),
		IBCTransfers:     c.ibcTransfers.Load(),
		IBCRecv:          c.ibcRecv.Load(),
		DecodeErrors:     c.decodeErrors.Load(),
		WindowsDone:      c.windowsDone.Load(),
		WindowsAbandoned: c.windowsAbandoned.Load(),
		GapsRecovered:    c.gapsRecovered.Load(),
	}
}

// blockTally accumulates one block before it is added to RunCounters.
type blockTally struct {
	transactions uint64
	relevantTxs  uint64
	decodeErrors uint64
	byType       map[domain.MessageType]uint64
}

func newBlockTally() *blockTally {
	return &blockTally{byType: make(map[domain.MessageType]uint64, 3)}
}

func (c *RunCounters) addBlock(t *blockTally) {
	c.blocks.Add(1)
	c.transactions.Add(t.transactions)
	c.relevantTxs.Add(t.relevantTxs)
	c.decodeErrors.Add(t.decodeErrors)

	var total uint64
	for typ, n := range t.byType {
		total += n
		switch typ {
		case domain.MessageTypeSendToEth:
			c.sendToEth.Add(n)
		case domain.MessageTypeIBCTransfer:
			c.ibcTransfers.Add(n)
		case domain.MessageTypeIBCRecv:
			c.ibcRecv.Add(n)
		}
	}
	c.messages.Add(total)
}
