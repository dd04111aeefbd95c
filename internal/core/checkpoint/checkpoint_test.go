package checkpoint

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/gravity-indexer/internal/infra/storage/memory"
)

func TestManager_GetMissing(t *testing.T) {
	m := NewManager(memory.NewMemoryStorage())

	h, ok, err := m.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || h != 0 {
		t.Errorf("expected no checkpoint, got %d, %v", h, ok)
	}
}

func TestManager_AdvanceStoresDecimal(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	m := NewManager(store)

	if err := m.Advance(ctx, 12345); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	raw, err := store.Get(ctx, []byte(Key))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(raw) != "12345" {
		t.Errorf("stored value = %q, want \"12345\"", raw)
	}

	h, ok, _ := m.Get(ctx)
	if !ok || h != 12345 {
		t.Errorf("Get = %d, %v", h, ok)
	}
}

func TestManager_Monotonic(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.NewMemoryStorage())

	tests := []struct {
		height  uint64
		wantErr error
		want    uint64
	}{
		{100, nil, 100},
		{200, nil, 200},
		{200, nil, 200},
		{150, ErrRegression, 200},
		{300, nil, 300},
	}

	for _, tt := range tests {
		err := m.Advance(ctx, tt.height)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Advance(%d) error = %v, want %v", tt.height, err, tt.wantErr)
		}
		got, _, _ := m.Get(ctx)
		if got != tt.want {
			t.Errorf("after Advance(%d) checkpoint = %d, want %d", tt.height, got, tt.want)
		}
	}
}

func TestManager_ResetAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.NewMemoryStorage())

	_ = m.Advance(ctx, 500)
	if err := m.Reset(ctx, 100); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if h, _, _ := m.Get(ctx); h != 100 {
		t.Errorf("after Reset checkpoint = %d, want 100", h)
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok, _ := m.Get(ctx); ok {
		t.Error("expected no checkpoint after Clear")
	}
}

func TestManager_GetLag(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.NewMemoryStorage())

	lag, _ := m.GetLag(ctx, 1000)
	if lag != 1000 {
		t.Errorf("lag without checkpoint = %d, want 1000", lag)
	}

	_ = m.Advance(ctx, 900)
	lag, _ = m.GetLag(ctx, 1000)
	if lag != 100 {
		t.Errorf("lag = %d, want 100", lag)
	}
}

func TestManager_CorruptValue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	_ = store.Put(ctx, []byte(Key), []byte("not-a-number"))

	if _, _, err := NewManager(store).Get(ctx); err == nil {
		t.Error("expected parse error")
	}
}

func TestMetricsCollector(t *testing.T) {
	mc := NewMetricsCollector(3)
	base := time.Unix(1700000000, 0)

	mc.RecordAdvance(100, base)
	mc.RecordAdvance(200, base.Add(10*time.Second))
	mc.RecordAdvance(300, base.Add(20*time.Second))
	mc.RecordAdvance(400, base.Add(30*time.Second))

	got := mc.GetMetrics()
	if got.LastHeight != 400 {
		t.Errorf("LastHeight = %d", got.LastHeight)
	}
	// window holds 200..400 over 20s
	if got.BlocksPerSecond != 10 {
		t.Errorf("BlocksPerSecond = %f, want 10", got.BlocksPerSecond)
	}

	mc.Reset()
	if got := mc.GetMetrics(); got.LastAdvanceAt != nil {
		t.Error("expected empty metrics after Reset")
	}
}
