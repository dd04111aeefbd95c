package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/indexing/health"
	"github.com/vietddude/gravity-indexer/internal/indexing/indexer"
	"github.com/vietddude/gravity-indexer/internal/indexing/writer"
	"github.com/vietddude/gravity-indexer/internal/infra/storage/memory"
	"github.com/vietddude/gravity-indexer/internal/query"
)

// =============================================================================
// Stubs
// =============================================================================

type stubHealth struct {
	status health.SystemStatus
}

func (s stubHealth) CheckHealth(ctx context.Context) health.ChainHealth {
	return health.ChainHealth{ChainID: "gravity", Status: s.status, BlockLag: 12}
}

type stubStatus struct{}

func (stubStatus) GetStatus() indexer.Status {
	return indexer.Status{ChainID: "gravity", Checkpoint: 99}
}

type failingQueries struct{}

func (failingQueries) ListByType(ctx context.Context, typ domain.MessageType) ([]query.BlockTransactions, error) {
	return nil, errors.New("store closed")
}

func (failingQueries) FeeTotals(ctx context.Context) (query.TimeFrameData, error) {
	return query.TimeFrameData{}, errors.New("store closed")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.NewMemoryStorage()
	w := writer.New(store)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Unix()

	msgs := []domain.IndexedMessage{
		{Height: 10, Type: domain.MessageTypeSendToEth, BlockTimestamp: ts, TxHash: "AA", Payload: &domain.SendToEth{
			Sender: "gravity1x", EthDest: "0x1",
			Amount:    []domain.Coin{{Denom: "ugraviton", Amount: "100"}},
			BridgeFee: []domain.Coin{{Denom: "ugraviton", Amount: "4"}},
			ChainFee:  []domain.Coin{{Denom: "ugraviton", Amount: "2"}},
		}},
		{Height: 11, Type: domain.MessageTypeIBCTransfer, BlockTimestamp: ts, TxHash: "BB", Payload: &domain.IBCTransfer{
			SourcePort: "transfer", SourceChannel: "channel-0", Sender: "gravity1x", Receiver: "osmo1y",
		}},
		{Height: 12, Type: domain.MessageTypeIBCRecv, BlockTimestamp: ts, TxHash: "CC", Payload: &domain.IBCTransfer{
			SourcePort: "transfer", SourceChannel: "channel-1", Sender: "osmo1y", Receiver: "gravity1x",
		}},
	}
	for _, m := range msgs {
		if err := w.Write(context.Background(), m); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	svc := query.NewService(store, query.WithClock(func() time.Time { return time.Unix(ts, 0) }))
	return NewServer(0, svc, stubHealth{status: health.StatusHealthy}, stubStatus{})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// =============================================================================
// Tests
// =============================================================================

func TestListEndpoints(t *testing.T) {
	h := newTestServer(t).Handler()

	tests := []struct {
		path   string
		height uint64
		hash   string
	}{
		{"/transactions/send_to_eth", 10, "AA"},
		{"/transactions/ibc_transfer", 11, "BB"},
		{"/transactions/ibc_recv", 12, "CC"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %s", ct)
			}

			var body []query.BlockTransactions
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("bad json: %v", err)
			}
			if len(body) != 1 || body[0].BlockNumber != tt.height || body[0].Transactions[0].TxHash != tt.hash {
				t.Errorf("unexpected body: %s", rec.Body.String())
			}
			if body[0].FormattedDate != "01-02-2024" {
				t.Errorf("formatted_date = %s", body[0].FormattedDate)
			}
		})
	}
}

func TestFeeTotalsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t).Handler(), "/transactions/send_to_eth/time")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		TimeFrames []struct {
			Period          string            `json:"period"`
			BridgeFeeTotals map[string]uint64 `json:"bridge_fee_totals"`
			ChainFeeTotals  map[string]uint64 `json:"chain_fee_totals"`
		} `json:"time_frames"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(body.TimeFrames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(body.TimeFrames))
	}
	for _, f := range body.TimeFrames {
		if f.BridgeFeeTotals["ugraviton"] != 4 || f.ChainFeeTotals["ugraviton"] != 2 {
			t.Errorf("%s: unexpected totals %+v", f.Period, f)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		status health.SystemStatus
		code   int
	}{
		{health.StatusHealthy, http.StatusOK},
		{health.StatusDegraded, http.StatusOK},
		{health.StatusCritical, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		s := NewServer(0, failingQueries{}, stubHealth{status: tt.status}, nil)
		rec := get(t, s.Handler(), "/health")
		if rec.Code != tt.code {
			t.Errorf("%s: status = %d, want %d", tt.status, rec.Code, tt.code)
		}
		if !strings.Contains(rec.Body.String(), string(tt.status)) {
			t.Errorf("%s: body = %s", tt.status, rec.Body.String())
		}
	}
}

func TestDetailedHealthAndStatus(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := get(t, h, "/health/detailed")
	var report health.ChainHealth
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil || report.BlockLag != 12 {
		t.Errorf("unexpected detailed health: %s", rec.Body.String())
	}

	rec = get(t, h, "/status")
	var status indexer.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil || status.Checkpoint != 99 {
		t.Errorf("unexpected status: %s", rec.Body.String())
	}
}

func TestStatusWithoutSource(t *testing.T) {
	s := NewServer(0, failingQueries{}, stubHealth{status: health.StatusHealthy}, nil)
	if rec := get(t, s.Handler(), "/status"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestQueryFailure(t *testing.T) {
	s := NewServer(0, failingQueries{}, stubHealth{status: health.StatusHealthy}, nil)

	for _, path := range []string{"/transactions/send_to_eth", "/transactions/send_to_eth/time"} {
		rec := get(t, s.Handler(), path)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/transactions/send_to_eth", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(t).Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
