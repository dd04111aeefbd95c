package query

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/indexing/metrics"
)

// Period is a named look-back window. A zero Span means all time.
type Period struct {
	Name string
	Span time.Duration
}

const day = 24 * time.Hour

// Periods are reported in this order.
var Periods = []Period{
	{Name: "1 day", Span: day},
	{Name: "7 days", Span: 7 * day},
	{Name: "30 days", Span: 30 * day},
	{Name: "1 year", Span: 365 * day},
	{Name: "All time"},
}

// Amount is a 256-bit token amount encoded as a bare JSON number.
type Amount struct {
	uint256.Int
}

// MarshalJSON implements json.Marshaler.
func (a *Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Dec()), nil
}

// String returns the decimal form.
func (a *Amount) String() string {
	return a.Dec()
}

// Totals maps denom to summed amount.
type Totals map[string]*Amount

// add sums coins into t. A coin with an unreadable or overflowing amount
// is reported and left out.
func (t Totals) add(coins []domain.Coin) error {
	var firstErr error
	for _, c := range coins {
		v, err := uint256.FromDecimal(c.Amount)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("bad amount %q for %s: %w", c.Amount, c.Denom, err)
			}
			continue
		}
		cur, ok := t[c.Denom]
		if !ok {
			cur = &Amount{}
			t[c.Denom] = cur
		}
		var sum uint256.Int
		if _, overflow := sum.AddOverflow(&cur.Int, v); overflow {
			if firstErr == nil {
				firstErr = fmt.Errorf("total overflow for %s", c.Denom)
			}
			continue
		}
		cur.Set(&sum)
	}
	return firstErr
}

// TimeFrame holds the fee totals of one period.
type TimeFrame struct {
	Period          string `json:"period"`
	BridgeFeeTotals Totals `json:"bridge_fee_totals"`
	ChainFeeTotals  Totals `json:"chain_fee_totals"`
}

// TimeFrameData is the fee totals response.
type TimeFrameData struct {
	TimeFrames []TimeFrame `json:"time_frames"`
}

// FeeTotals sums send-to-eth bridge and chain fees per denom over each
// period, counting a message when its block time is within the period.
func (s *Service) FeeTotals(ctx context.Context) (TimeFrameData, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("fee_totals").Observe(time.Since(start).Seconds())
	}()

	now := s.now()
	frames := make([]TimeFrame, len(Periods))
	cutoffs := make([]int64, len(Periods))
	for i, p := range Periods {
		frames[i] = TimeFrame{Period: p.Name, BridgeFeeTotals: Totals{}, ChainFeeTotals: Totals{}}
		if p.Span > 0 {
			cutoffs[i] = now.Add(-p.Span).Unix()
		}
	}

	err := s.scan(ctx, domain.MessageTypeSendToEth, func(r record) error {
		var msg domain.SendToEth
		if err := json.Unmarshal(r.value, &msg); err != nil {
			s.log.Error("Skipping unreadable record", "key", r.key.String(), "error", err)
			return nil
		}
		for i, p := range Periods {
			if p.Span > 0 && r.key.BlockTimestamp < cutoffs[i] {
				continue
			}
			if err := frames[i].BridgeFeeTotals.add(msg.BridgeFee); err != nil {
				s.log.Warn("Skipping bridge fee", "key", r.key.String(), "error", err)
			}
			if err := frames[i].ChainFeeTotals.add(msg.ChainFee); err != nil {
				s.log.Warn("Skipping chain fee", "key", r.key.String(), "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return TimeFrameData{}, fmt.Errorf("failed to scan fee records: %w", err)
	}
	return TimeFrameData{TimeFrames: frames}, nil
}
