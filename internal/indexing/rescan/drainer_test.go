package rescan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/infra/storage/memory"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	taken int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return false, nil
	}
	l.held[name] = true
	l.taken++
	return true, nil
}

func (l *fakeLocker) Unlock(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}

// ============================================================================
// KVQueue
// ============================================================================

func TestKVQueue_PushListRemove(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	q := NewKVQueue(store)

	_ = q.Push(ctx, domain.Gap{Window: w(1000, 1500), Reason: "boom", Attempts: 6})
	_ = q.Push(ctx, domain.Gap{Window: w(0, 500), Attempts: 6})
	// Message keys must not be listed
	_ = store.Put(ctx, []byte("000000000001:msgSendToEth:1:AB"), []byte("{}"))

	gaps, err := q.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %d", len(gaps))
	}
	if gaps[0].Window != w(0, 500) || gaps[1].Window != w(1000, 1500) {
		t.Errorf("gaps not ordered by start: %v", gaps)
	}
	if gaps[1].Reason != "boom" || gaps[1].Attempts != 6 {
		t.Errorf("metadata lost: %+v", gaps[1])
	}

	if err := q.Remove(ctx, w(0, 500)); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	gaps, _ = q.List(ctx)
	if len(gaps) != 1 {
		t.Errorf("expected 1 gap after Remove, got %d", len(gaps))
	}
}

// ============================================================================
// Drainer
// ============================================================================

func TestDrainer_RecoversGaps(t *testing.T) {
	ctx := context.Background()
	q := NewKVQueue(memory.NewMemoryStorage())
	d := NewDrainer(DrainConfig{ChunkSize: 100}, "test", q, nil)

	_ = d.Record(ctx, w(0, 250), errors.New("timeout"), 6)

	var seen []domain.Window
	stats, err := d.Drain(ctx, func(ctx context.Context, win domain.Window) (domain.Window, error) {
		seen = append(seen, win)
		return domain.Window{}, nil
	})
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if stats.Recovered != 1 || stats.Remaining != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(seen) != 3 {
		t.Errorf("expected gap split into 3 chunks, got %v", seen)
	}
	if n, _ := d.Pending(ctx); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}
}

func TestDrainer_RequeuesRemainder(t *testing.T) {
	ctx := context.Background()
	q := NewKVQueue(memory.NewMemoryStorage())
	d := NewDrainer(DrainConfig{ChunkSize: 100}, "test", q, nil)

	_ = d.Record(ctx, w(0, 300), errors.New("timeout"), 6)

	stats, err := d.Drain(ctx, func(ctx context.Context, win domain.Window) (domain.Window, error) {
		if win.Start >= 100 {
			return domain.Window{Start: 150, End: win.End}, errors.New("still down")
		}
		return domain.Window{}, nil
	})
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if stats.Remaining != 1 {
		t.Errorf("stats = %+v", stats)
	}

	gaps, _ := q.List(ctx)
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %v", gaps)
	}
	if gaps[0].Window != w(150, 300) {
		t.Errorf("remaining gap = %s, want 150-300", gaps[0].Window)
	}
	if gaps[0].Attempts != 7 || gaps[0].Reason != "still down" {
		t.Errorf("gap metadata = %+v", gaps[0])
	}
}

func TestDrainer_MergesOverlappingGaps(t *testing.T) {
	ctx := context.Background()
	q := NewKVQueue(memory.NewMemoryStorage())
	d := NewDrainer(DrainConfig{ChunkSize: 1000}, "test", q, nil)

	_ = d.Record(ctx, w(0, 500), nil, 1)
	_ = d.Record(ctx, w(500, 1000), nil, 3)
	_ = d.Record(ctx, w(2000, 2500), nil, 1)

	var seen []domain.Window
	stats, err := d.Drain(ctx, func(ctx context.Context, win domain.Window) (domain.Window, error) {
		seen = append(seen, win)
		return domain.Window{}, nil
	})
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if stats.Gaps != 2 {
		t.Errorf("expected 2 merged gaps, got %d", stats.Gaps)
	}
	if len(seen) != 2 || seen[0] != w(0, 1000) || seen[1] != w(2000, 2500) {
		t.Errorf("windows run = %v", seen)
	}
}

func TestDrainer_SkipsLockedGaps(t *testing.T) {
	ctx := context.Background()
	q := NewKVQueue(memory.NewMemoryStorage())
	locker := newFakeLocker()
	d := NewDrainer(DrainConfig{ChunkSize: 1000}, "test", q, locker)

	_ = d.Record(ctx, w(0, 100), nil, 1)
	locker.held["rescan:test:0-100"] = true

	calls := 0
	stats, err := d.Drain(ctx, func(ctx context.Context, win domain.Window) (domain.Window, error) {
		calls++
		return domain.Window{}, nil
	})
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if calls != 0 || stats.Remaining != 1 {
		t.Errorf("locked gap must be skipped: calls=%d stats=%+v", calls, stats)
	}
	if n, _ := d.Pending(ctx); n != 1 {
		t.Errorf("locked gap must stay queued, got %d", n)
	}
}
