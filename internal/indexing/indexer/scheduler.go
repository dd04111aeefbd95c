package indexer

import (
	"context"
	"fmt"
	"time"
)

// Start runs immediately, then once per RunInterval. A failed run is logged
// and retried on the next tick.
func (p *Pipeline) Start(ctx context.Context) error {
	if !p.looping.CompareAndSwap(false, true) {
		return fmt.Errorf("pipeline already started")
	}
	defer p.looping.Store(false)

	ticker := time.NewTicker(p.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.log.Error("Indexing run failed, retrying on next tick", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-p.stop:
			return nil
		case <-ticker.C:
		}
	}
}

// Stop stops the pipeline
func (p *Pipeline) Stop() error {
	p.stopOnce.Do(func() { close(p.stop) })
	return nil
}
