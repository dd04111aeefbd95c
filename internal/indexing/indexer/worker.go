package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/indexing/metrics"
	"github.com/vietddude/gravity-indexer/internal/indexing/writer"
	"github.com/vietddude/gravity-indexer/internal/infra/retry"
)

// errEmptyBatch is returned when the node answers a range with no blocks.
var errEmptyBatch = errors.New("empty block range")

// processWindow indexes w and returns the part left unfinished, which is
// empty on success. Each batch gets a fresh retry budget; the cursor advances
// past the last block returned so short batches do not restart the window.
func (p *Pipeline) processWindow(ctx context.Context, w domain.Window) (domain.Window, error) {
	log := p.log.With("window", w.String())
	cursor := w.Start

	policy := retry.Constant(p.cfg.MaxRetries, p.cfg.RetryDelay)
	policy.OnRetry = func(attempt int, err error) {
		metrics.WindowRetries.WithLabelValues(p.cfg.ChainID).Inc()
		log.Warn("Error getting block range, retrying", "cursor", cursor, "attempt", attempt, "error", err)
	}

	for cursor < w.End {
		var blocks []*domain.Block
		err := retry.Do(ctx, policy, func(ctx context.Context) error {
			var err error
			blocks, err = p.cfg.Reader.GetBlockRange(ctx, cursor, w.End)
			if err != nil {
				return err
			}
			if len(blocks) == 0 {
				return errEmptyBatch
			}
			return nil
		})
		if err != nil {
			return domain.Window{Start: cursor, End: w.End}, err
		}

		next := cursor
		for _, block := range blocks {
			if block == nil || block.Height < cursor || block.Height >= w.End {
				continue
			}
			if err := p.processBlock(ctx, block); err != nil {
				return domain.Window{Start: block.Height, End: w.End}, err
			}
			next = block.Height + 1
		}
		if next == cursor {
			return domain.Window{Start: cursor, End: w.End},
				fmt.Errorf("batch at %d returned no blocks inside the window", cursor)
		}
		cursor = next
	}

	p.counters.windowsDone.Add(1)
	return domain.Window{}, nil
}

// processBlock decodes and stores every message of block in tx order.
// Only store failures are returned; decode problems are counted and skipped.
// Messages of one kind in one tx share a key, so the last one is kept and
// counted once.
func (p *Pipeline) processBlock(ctx context.Context, block *domain.Block) error {
	tally := newBlockTally()
	stored := make(map[writer.Key]struct{})

	for _, res := range p.cfg.Decoder.DecodeBlock(block) {
		tally.transactions++
		if res.Relevant {
			tally.relevantTxs++
		}
		tally.decodeErrors += uint64(len(res.Errors))

		for _, msg := range res.Messages {
			if err := p.cfg.Writer.Write(ctx, msg); err != nil {
				return fmt.Errorf("failed to store message at height %d: %w", block.Height, err)
			}
			key := writer.KeyOf(msg)
			if _, dup := stored[key]; dup {
				continue
			}
			stored[key] = struct{}{}
			tally.byType[msg.Type]++
		}
	}

	p.counters.addBlock(tally)

	chainID := p.cfg.ChainID
	metrics.BlocksProcessed.WithLabelValues(chainID).Inc()
	metrics.TransactionsProcessed.WithLabelValues(chainID).Add(float64(tally.transactions))
	if tally.decodeErrors > 0 {
		metrics.DecodeErrors.WithLabelValues(chainID).Add(float64(tally.decodeErrors))
	}
	for typ, n := range tally.byType {
		metrics.MessagesIndexed.WithLabelValues(chainID, string(typ)).Add(float64(n))
	}

	if len(tally.byType) > 0 {
		slog.Debug("Indexed block", "height", block.Height, "txs", block.TxCount(), "messages", tally.byType)
	}
	return nil
}
