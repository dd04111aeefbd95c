// Package storagetest checks storage.Store implementations against the
// shared contract.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/vietddude/gravity-indexer/internal/infra/storage"
)

// Run exercises newStore against the Store contract. newStore must return an
// empty store; the suite closes it.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"PutGet", testPutGet},
		{"Overwrite", testOverwrite},
		{"GetMissing", testGetMissing},
		{"Delete", testDelete},
		{"IterateOrder", testIterateOrder},
		{"IteratePrefix", testIteratePrefix},
		{"IterateStop", testIterateStop},
		{"IterateError", testIterateError},
		{"ConcurrentWrites", testConcurrentWrites},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

func mustPut(t *testing.T, s storage.Store, key, value string) {
	t.Helper()
	if err := s.Put(context.Background(), []byte(key), []byte(value)); err != nil {
		t.Fatalf("Put(%s) failed: %v", key, err)
	}
}

func keys(t *testing.T, s storage.Store, prefix string) []string {
	t.Helper()
	var out []string
	err := s.Iterate(context.Background(), []byte(prefix), func(k, v []byte) error {
		out = append(out, string(k))
		return nil
	})
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	return out
}

func testPutGet(t *testing.T, s storage.Store) {
	mustPut(t, s, "a", "1")
	got, err := s.Get(context.Background(), []byte("a"))
	if err != nil || string(got) != "1" {
		t.Errorf("Get = %q, %v", got, err)
	}
}

func testOverwrite(t *testing.T, s storage.Store) {
	mustPut(t, s, "a", "1")
	mustPut(t, s, "a", "2")
	got, _ := s.Get(context.Background(), []byte("a"))
	if string(got) != "2" {
		t.Errorf("Get = %q, want 2", got)
	}
	if n := len(keys(t, s, "")); n != 1 {
		t.Errorf("expected 1 key, got %d", n)
	}
}

func testGetMissing(t *testing.T, s storage.Store) {
	if _, err := s.Get(context.Background(), []byte("missing")); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testDelete(t *testing.T, s storage.Store) {
	mustPut(t, s, "a", "1")
	if err := s.Delete(context.Background(), []byte("a")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(context.Background(), []byte("a")); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(context.Background(), []byte("never")); err != nil {
		t.Errorf("deleting a missing key: %v", err)
	}
}

func testIterateOrder(t *testing.T, s storage.Store) {
	for _, k := range []string{
		"000000000010:msgSendToEth:5:B",
		"000000000002:msgIbcTransfer:1:A",
		"000000000010:msgIbcRecv:5:C",
		"last_download_block",
		"000000000100:msgSendToEth:9:D",
	} {
		mustPut(t, s, k, "v")
	}

	want := []string{
		"000000000002:msgIbcTransfer:1:A",
		"000000000010:msgIbcRecv:5:C",
		"000000000010:msgSendToEth:5:B",
		"000000000100:msgSendToEth:9:D",
		"last_download_block",
	}
	got := keys(t, s, "")
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v\nwant    %v", got, want)
	}
}

func testIteratePrefix(t *testing.T, s storage.Store) {
	mustPut(t, s, "gap:1", "a")
	mustPut(t, s, "gap:2", "b")
	mustPut(t, s, "gaq", "c")
	mustPut(t, s, "ga", "d")

	got := keys(t, s, "gap:")
	if fmt.Sprint(got) != "[gap:1 gap:2]" {
		t.Errorf("prefix scan = %v", got)
	}
}

func testIterateStop(t *testing.T, s storage.Store) {
	for i := 0; i < 5; i++ {
		mustPut(t, s, fmt.Sprintf("k%d", i), "v")
	}
	var seen int
	err := s.Iterate(context.Background(), nil, func(k, v []byte) error {
		seen++
		if seen == 2 {
			return storage.ErrStopIteration
		}
		return nil
	})
	if err != nil {
		t.Errorf("ErrStopIteration must not surface: %v", err)
	}
	if seen != 2 {
		t.Errorf("expected 2 visits, got %d", seen)
	}
}

func testIterateError(t *testing.T, s storage.Store) {
	mustPut(t, s, "k", "v")
	boom := errors.New("boom")
	err := s.Iterate(context.Background(), nil, func(k, v []byte) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func testConcurrentWrites(t *testing.T, s storage.Store) {
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = s.Put(context.Background(), []byte(fmt.Sprintf("w%d-%02d", w, i)), []byte("v"))
			}
		}(w)
	}
	wg.Wait()

	if n := len(keys(t, s, "w")); n != 200 {
		t.Errorf("expected 200 keys, got %d", n)
	}
}
