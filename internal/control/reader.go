package control

import (
	"fmt"

	"github.com/vietddude/gravity-indexer/internal/core/config"
	"github.com/vietddude/gravity-indexer/internal/infra/chain"
	"github.com/vietddude/gravity-indexer/internal/infra/chain/comet"
	"github.com/vietddude/gravity-indexer/internal/infra/chain/cosmos"
)

// NewReader builds the configured chain reader wrapped with RPC metrics.
func NewReader(cfg config.ChainConfig) (chain.Reader, error) {
	var (
		r   chain.Reader
		err error
	)
	switch cfg.Type {
	case config.ReaderGRPC:
		r, err = cosmos.Dial(cfg.URL, cfg.RequestTimeout, cfg.Parallelism)
	case config.ReaderComet:
		r, err = comet.Dial(cfg.URL, cfg.RequestTimeout, cfg.Parallelism)
	default:
		return nil, fmt.Errorf("unknown chain type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s node at %s: %w", cfg.Type, cfg.URL, err)
	}
	return chain.NewInstrumented(r, string(cfg.ChainID)), nil
}
