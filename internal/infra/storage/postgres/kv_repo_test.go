package postgres

import (
	"bytes"
	"testing"
)

func TestPrefixEnd(t *testing.T) {
	tests := []struct {
		prefix []byte
		want   []byte
	}{
		{[]byte("gap:"), []byte("gap;")},
		{[]byte{0x01, 0xff}, []byte{0x02}},
		{[]byte{0xff, 0xff}, nil},
	}

	for _, tt := range tests {
		if got := prefixEnd(tt.prefix); !bytes.Equal(got, tt.want) {
			t.Errorf("prefixEnd(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestRangeQuery(t *testing.T) {
	q, args := rangeQuery(nil)
	if len(args) != 0 {
		t.Errorf("expected no args for full scan, got %d", len(args))
	}
	if !bytes.Contains([]byte(q), []byte("ORDER BY key")) {
		t.Errorf("full scan must be ordered: %s", q)
	}

	_, args = rangeQuery([]byte("gap:"))
	if len(args) != 2 {
		t.Fatalf("expected bounded range, got %d args", len(args))
	}
}

func TestConfigDefaults(t *testing.T) {
	tests := []struct {
		in       Config
		max, min int
	}{
		{Config{}, 10, 2},
		{Config{MaxConns: 4, MinConns: 1}, 4, 1},
		{Config{MaxConns: 3, MinConns: 8}, 3, 3},
	}

	for _, tt := range tests {
		got := tt.in.withDefaults()
		if got.MaxConns != tt.max || got.MinConns != tt.min {
			t.Errorf("withDefaults(%+v) = %d/%d, want %d/%d", tt.in, got.MaxConns, got.MinConns, tt.max, tt.min)
		}
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no migrations embedded")
	}
}
