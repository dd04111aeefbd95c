package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/gravity-indexer/internal/infra/storage"
)

// KVRepo implements storage.Store on the kv_entries table.
// Keys are BYTEA so ORDER BY key is plain byte order.
type KVRepo struct {
	db *DB
}

var _ storage.Store = (*KVRepo)(nil)

// NewKVRepo creates a new PostgreSQL key-value repository.
func NewKVRepo(db *DB) *KVRepo {
	return &KVRepo{db: db}
}

func (r *KVRepo) Put(ctx context.Context, key, value []byte) error {
	query := `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, extract(epoch from now())::bigint)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to put key: %w", err)
	}
	return nil
}

func (r *KVRepo) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := r.db.GetContext(ctx, &value, `SELECT value FROM kv_entries WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}

func (r *KVRepo) Delete(ctx context.Context, key []byte) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

type kvRow struct {
	Key   []byte `db:"key"`
	Value []byte `db:"value"`
}

func (r *KVRepo) Iterate(ctx context.Context, prefix []byte, fn storage.IterateFunc) error {
	query, args := rangeQuery(prefix)
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to scan kv entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var row kvRow
		if err := rows.StructScan(&row); err != nil {
			return fmt.Errorf("failed to read kv entry: %w", err)
		}
		if err := fn(row.Key, row.Value); err != nil {
			if errors.Is(err, storage.ErrStopIteration) {
				return nil
			}
			return err
		}
	}
	return rows.Err()
}

func (r *KVRepo) Close() error {
	return r.db.Close()
}

// rangeQuery turns a key prefix into a half-open key range [prefix, prefixEnd).
func rangeQuery(prefix []byte) (string, []any) {
	const base = `SELECT key, value FROM kv_entries`
	if len(prefix) == 0 {
		return base + ` ORDER BY key`, nil
	}
	end := prefixEnd(prefix)
	if end == nil {
		return base + ` WHERE key >= $1 ORDER BY key`, []any{prefix}
	}
	return base + ` WHERE key >= $1 AND key < $2 ORDER BY key`, []any{prefix, end}
}

// prefixEnd returns the smallest key greater than every key with the prefix,
// or nil when the prefix is all 0xff bytes.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
