package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/gravity-indexer/internal/core/config"
	"github.com/vietddude/gravity-indexer/internal/infra/storage"
	"github.com/vietddude/gravity-indexer/internal/infra/storage/badger"
	"github.com/vietddude/gravity-indexer/internal/infra/storage/memory"
	"github.com/vietddude/gravity-indexer/internal/infra/storage/postgres"
)

// OpenStore opens the configured KV backend. The returned DB is non-nil only
// for the postgres backend.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, *postgres.DB, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		slog.Info("Using memory storage")
		return memory.NewMemoryStorage(), nil, nil

	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		slog.Info("Using PostgreSQL storage")
		return postgres.NewKVRepo(db), db, nil

	case config.BackendBadger:
		db, err := badger.Open(badger.Config{Path: cfg.Path})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open store at %s: %w", cfg.Path, err)
		}
		slog.Info("Using Badger storage", "path", cfg.Path)
		return db, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
