package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/gravity-indexer/internal/api"
	"github.com/vietddude/gravity-indexer/internal/core/checkpoint"
	"github.com/vietddude/gravity-indexer/internal/core/config"
	"github.com/vietddude/gravity-indexer/internal/indexing/bootstrap"
	"github.com/vietddude/gravity-indexer/internal/indexing/decoder"
	"github.com/vietddude/gravity-indexer/internal/indexing/health"
	"github.com/vietddude/gravity-indexer/internal/indexing/indexer"
	"github.com/vietddude/gravity-indexer/internal/indexing/rescan"
	"github.com/vietddude/gravity-indexer/internal/indexing/writer"
	"github.com/vietddude/gravity-indexer/internal/infra/chain"
	redisclient "github.com/vietddude/gravity-indexer/internal/infra/redis"
	"github.com/vietddude/gravity-indexer/internal/infra/retry"
	"github.com/vietddude/gravity-indexer/internal/infra/storage"
	"github.com/vietddude/gravity-indexer/internal/query"
)

// App owns every long-lived component of the indexer process.
type App struct {
	cfg        *config.AppConfig
	store      *lazyStore
	redis      *redisclient.Client
	reader     *lazyReader
	checkpoint *checkpoint.DefaultManager
	drainer    *rescan.Drainer
	indexer    *indexer.Pipeline
	queries    *query.Service
	monitor    *health.Monitor
	server     *api.Server
	wg         sync.WaitGroup
	log        *slog.Logger

	// bg bounds background work started when a store opens.
	bg     context.Context
	stopBG context.CancelFunc

	openStore  StoreOpener
	openReader ReaderOpener
}

// Option customizes an App.
type Option func(*App)

// WithStoreOpener replaces the config-driven store opener.
func WithStoreOpener(open StoreOpener) Option {
	return func(a *App) { a.openStore = open }
}

// WithReaderOpener replaces the config-driven chain reader.
func WithReaderOpener(open ReaderOpener) Option {
	return func(a *App) { a.openReader = open }
}

// NewApp creates the application with all dependencies initialized.
// The store and the chain reader open on first use: when either is
// unavailable the current run fails and the next scheduled run retries.
func NewApp(ctx context.Context, cfg *config.AppConfig, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{cfg: cfg, log: slog.Default().With("component", "app")}
	a.bg, a.stopBG = context.WithCancel(context.Background())
	a.openStore = a.storeFromConfig
	a.openReader = func() (chain.Reader, error) { return NewReader(cfg.Chain) }
	for _, opt := range opts {
		opt(a)
	}

	// 1. Storage and chain reader
	a.store = newLazyStore(a.openStore)
	a.reader = newLazyReader(a.openReader)
	if _, err := a.store.get(ctx); err != nil {
		a.log.Warn("Store not available yet, retrying on next run", "error", err)
	}
	if _, err := a.reader.get(); err != nil {
		a.log.Warn("Chain reader not available yet, retrying on next run", "error", err)
	}
	store, reader := storage.Store(a.store), chain.Reader(a.reader)

	// 2. Redis for gaps and locks, optional
	var locker rescan.Locker
	var queue rescan.Queue = rescan.NewKVQueue(store)
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.log.Warn("Failed to connect to Redis, keeping gaps in the store", "error", err)
		} else {
			a.redis = client
			locker = client
			queue = redisclient.NewGapQueue(client, string(cfg.Chain.ChainID))
			a.log.Info("Using Redis for gap queue and run locks")
		}
	}

	// 3. Indexing components
	chainID := string(cfg.Chain.ChainID)
	a.checkpoint = checkpoint.NewManager(store)
	if cfg.Indexer.RescanGaps {
		a.drainer = rescan.NewDrainer(rescan.DrainConfig{ChunkSize: cfg.Indexer.WindowSize}, chainID, queue, locker)
	}

	var validator *decoder.AddressValidator
	if cfg.Indexer.ValidateAddresses {
		validator = decoder.NewAddressValidator(cfg.Chain.Prefix)
	}

	a.indexer = indexer.NewPipeline(indexer.Config{
		ChainID:            chainID,
		Reader:             reader,
		Decoder:            decoder.New(validator),
		Writer:             writer.New(store),
		Checkpoint:         a.checkpoint,
		Locator:            bootstrap.NewLocator(reader, retry.Constant(cfg.Indexer.MaxRetries, cfg.Indexer.RetryDelay)),
		Drainer:            a.drainer,
		Locker:             locker,
		WindowSize:         cfg.Indexer.WindowSize,
		Workers:            cfg.Indexer.Workers,
		MaxRetries:         cfg.Indexer.MaxRetries,
		RetryDelay:         cfg.Indexer.RetryDelay,
		StatusPollInterval: cfg.Indexer.StatusPollInterval,
		RunInterval:        cfg.Indexer.RunInterval,
	})

	// 4. Read side
	a.queries = query.NewService(store)
	var gaps health.GapCounter
	if a.drainer != nil {
		gaps = a.drainer
	}
	a.monitor = health.NewMonitor(chainID, reader, a.checkpoint, gaps, cfg.Health.Thresholds())
	a.server = api.NewServer(cfg.Server.Port, a.queries, a.monitor, a.indexer)

	return a, nil
}

// Start starts the API server and the periodic indexer. It does not block.
func (a *App) Start(ctx context.Context) error {
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("API server failed", "error", err)
		}
	}()
	go func() {
		defer a.wg.Done()
		if err := a.indexer.Start(ctx); err != nil {
			a.log.Error("Indexer failed", "error", err)
		}
	}()
	return nil
}

// Stop stops the indexer loop and the API server and waits for both.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping indexer...")

	_ = a.indexer.Stop()
	err := a.server.Stop(ctx)
	a.wg.Wait()
	return err
}

// RunOnce performs a single indexing run.
func (a *App) RunOnce(ctx context.Context) (indexer.RunReport, error) {
	return a.indexer.RunOnce(ctx)
}

// Indexer returns the pipeline.
func (a *App) Indexer() *indexer.Pipeline { return a.indexer }

// Queries returns the read service.
func (a *App) Queries() *query.Service { return a.queries }

// Checkpoint returns the checkpoint manager.
func (a *App) Checkpoint() checkpoint.Manager { return a.checkpoint }

// Health returns the current health report.
func (a *App) Health(ctx context.Context) health.ChainHealth {
	return a.monitor.CheckHealth(ctx)
}

// PendingGaps returns the number of queued gaps, zero when rescan is off.
func (a *App) PendingGaps(ctx context.Context) (int, error) {
	if a.drainer == nil {
		return 0, nil
	}
	return a.drainer.Pending(ctx)
}

// storeFromConfig opens the configured backend and, for postgres, starts
// publishing pool usage.
func (a *App) storeFromConfig(ctx context.Context) (storage.Store, error) {
	store, db, err := OpenStore(ctx, a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	if db != nil {
		db.WatchPool(a.bg, 15*time.Second)
	}
	return store, nil
}

// Close releases the reader, Redis and the store.
func (a *App) Close() error {
	a.stopBG()
	var errs []error
	errs = append(errs, a.reader.Close())
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.store.Close())
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close app: %w", err)
	}
	return nil
}
