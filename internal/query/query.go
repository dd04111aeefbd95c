// Package query serves read-side views over the message store.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/indexing/metrics"
	"github.com/vietddude/gravity-indexer/internal/indexing/writer"
	"github.com/vietddude/gravity-indexer/internal/infra/storage"
)

// DateLayout is the MM-DD-YYYY form used for formatted_date.
const DateLayout = "01-02-2006"

// Transaction is one stored message.
type Transaction struct {
	TxHash string          `json:"tx_hash"`
	Data   json.RawMessage `json:"data"`
}

// BlockTransactions groups the messages of one height.
type BlockTransactions struct {
	BlockNumber   uint64        `json:"block_number"`
	FormattedDate string        `json:"formatted_date"`
	Transactions  []Transaction `json:"transactions"`
}

// Service answers queries against a store.
type Service struct {
	store storage.Store
	now   func() time.Time
	log   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for fee windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a query service.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		log:   slog.Default().With("component", "query"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// record is a parsed message key with its raw value.
type record struct {
	key   writer.Key
	value []byte
}

// scan visits every message record of typ. Keys that do not parse as message
// keys (checkpoint, gaps, damaged entries) are skipped.
func (s *Service) scan(ctx context.Context, typ domain.MessageType, fn func(record) error) error {
	return s.store.Iterate(ctx, nil, func(k, v []byte) error {
		key, err := writer.ParseKey(k)
		if err != nil {
			return nil
		}
		if key.Type != typ {
			return nil
		}
		return fn(record{key: key, value: v})
	})
}

// ListByType returns all messages of typ grouped by height, ascending.
func (s *Service) ListByType(ctx context.Context, typ domain.MessageType) ([]BlockTransactions, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown message type %q", typ)
	}
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues(string(typ)).Observe(time.Since(start).Seconds())
	}()

	byHeight := make(map[uint64]*BlockTransactions)
	err := s.scan(ctx, typ, func(r record) error {
		if err := validPayload(typ, r.value); err != nil {
			s.log.Error("Skipping unreadable record", "key", r.key.String(), "error", err)
			return nil
		}

		group, ok := byHeight[r.key.Height]
		if !ok {
			group = &BlockTransactions{
				BlockNumber:   r.key.Height,
				FormattedDate: FormatDate(r.key.BlockTimestamp),
			}
			byHeight[r.key.Height] = group
		}
		group.Transactions = append(group.Transactions, Transaction{
			TxHash: r.key.TxHash,
			Data:   append(json.RawMessage(nil), r.value...),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s records: %w", typ, err)
	}

	out := make([]BlockTransactions, 0, len(byHeight))
	for _, group := range byHeight {
		out = append(out, *group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlockNumber < out[j].BlockNumber })
	return out, nil
}

// FormatDate renders a unix timestamp as MM-DD-YYYY in UTC.
func FormatDate(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(DateLayout)
}

func validPayload(typ domain.MessageType, value []byte) error {
	var p domain.Payload
	switch typ {
	case domain.MessageTypeSendToEth:
		p = &domain.SendToEth{}
	default:
		p = &domain.IBCTransfer{}
	}
	return json.Unmarshal(value, p)
}
