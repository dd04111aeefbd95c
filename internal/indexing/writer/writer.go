// Package writer persists indexed messages under their composite keys.
package writer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/infra/storage"
)

// Writer stores messages. Each write is an independent overwrite by key.
type Writer struct {
	store storage.Store
}

// New creates a writer over store.
func New(store storage.Store) *Writer {
	return &Writer{store: store}
}

// Encode returns the key and canonical payload bytes of a message.
func Encode(m domain.IndexedMessage) ([]byte, []byte, error) {
	if !m.Type.Valid() {
		return nil, nil, fmt.Errorf("unknown message type %q", m.Type)
	}
	if m.Payload == nil {
		return nil, nil, fmt.Errorf("message %s has no payload", m.TxHash)
	}
	value, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return KeyOf(m).Bytes(), value, nil
}

// Write persists one message.
func (w *Writer) Write(ctx context.Context, m domain.IndexedMessage) error {
	key, value, err := Encode(m)
	if err != nil {
		return err
	}
	if err := w.store.Put(ctx, key, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
