package control

import (
	"context"
	"fmt"
	"sync"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/infra/chain"
	"github.com/vietddude/gravity-indexer/internal/infra/retry"
	"github.com/vietddude/gravity-indexer/internal/infra/storage"
)

// StoreOpener opens the KV store.
type StoreOpener func(ctx context.Context) (storage.Store, error)

// ReaderOpener builds the chain reader.
type ReaderOpener func() (chain.Reader, error)

// lazyStore opens the store on first use. A failed open is returned to the
// caller and attempted again on the next call, so a run that cannot reach
// the store aborts and the next scheduled run retries.
type lazyStore struct {
	open StoreOpener

	mu    sync.Mutex
	store storage.Store
}

var _ storage.Store = (*lazyStore)(nil)

func newLazyStore(open StoreOpener) *lazyStore {
	return &lazyStore{open: open}
}

func (s *lazyStore) get(ctx context.Context) (storage.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		return s.store, nil
	}
	store, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("store unavailable: %w", err)
	}
	s.store = store
	return store, nil
}

func (s *lazyStore) Put(ctx context.Context, key, value []byte) error {
	store, err := s.get(ctx)
	if err != nil {
		return err
	}
	return store.Put(ctx, key, value)
}

func (s *lazyStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	store, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, key)
}

func (s *lazyStore) Delete(ctx context.Context, key []byte) error {
	store, err := s.get(ctx)
	if err != nil {
		return err
	}
	return store.Delete(ctx, key)
}

func (s *lazyStore) Iterate(ctx context.Context, prefix []byte, fn storage.IterateFunc) error {
	store, err := s.get(ctx)
	if err != nil {
		return err
	}
	return store.Iterate(ctx, prefix, fn)
}

func (s *lazyStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// lazyReader builds the chain reader on first use. A reader that cannot be
// built fails the call without retries; the next run tries again.
type lazyReader struct {
	open ReaderOpener

	mu     sync.Mutex
	reader chain.Reader
}

var _ chain.Reader = (*lazyReader)(nil)

func newLazyReader(open ReaderOpener) *lazyReader {
	return &lazyReader{open: open}
}

func (r *lazyReader) get() (chain.Reader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reader != nil {
		return r.reader, nil
	}
	reader, err := r.open()
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("chain reader unavailable: %w", err))
	}
	r.reader = reader
	return reader, nil
}

func (r *lazyReader) Status(ctx context.Context) (chain.Status, error) {
	reader, err := r.get()
	if err != nil {
		return chain.Status{}, err
	}
	return reader.Status(ctx)
}

func (r *lazyReader) GetBlock(ctx context.Context, height uint64) (*domain.Block, error) {
	reader, err := r.get()
	if err != nil {
		return nil, err
	}
	return reader.GetBlock(ctx, height)
}

func (r *lazyReader) GetBlockRange(ctx context.Context, start, end uint64) ([]*domain.Block, error) {
	reader, err := r.get()
	if err != nil {
		return nil, err
	}
	return reader.GetBlockRange(ctx, start, end)
}

func (r *lazyReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reader == nil {
		return nil
	}
	err := r.reader.Close()
	r.reader = nil
	return err
}
