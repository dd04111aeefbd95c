package query

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/indexing/writer"
	"github.com/vietddude/gravity-indexer/internal/infra/storage/memory"
)

// ============================================================================
// Helpers
// ============================================================================

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func coins(denom, amount string) []domain.Coin {
	return []domain.Coin{{Denom: denom, Amount: amount}}
}

func put(t *testing.T, store *memory.MemoryStorage, m domain.IndexedMessage) {
	t.Helper()
	if err := writer.New(store).Write(context.Background(), m); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func sendToEth(height uint64, ts int64, hash string, bridgeFee, chainFee []domain.Coin) domain.IndexedMessage {
	return domain.IndexedMessage{
		Height:         height,
		Type:           domain.MessageTypeSendToEth,
		BlockTimestamp: ts,
		TxHash:         hash,
		Payload: &domain.SendToEth{
			Sender:    "gravity1sender",
			EthDest:   "0xdest",
			Amount:    coins("ugraviton", "1000"),
			BridgeFee: bridgeFee,
			ChainFee:  chainFee,
		},
	}
}

func ibcTransfer(height uint64, ts int64, hash string, typ domain.MessageType) domain.IndexedMessage {
	return domain.IndexedMessage{
		Height:         height,
		Type:           typ,
		BlockTimestamp: ts,
		TxHash:         hash,
		Payload: &domain.IBCTransfer{
			SourcePort:    "transfer",
			SourceChannel: "channel-1",
			Token:         coins("ugraviton", "5"),
			Sender:        "gravity1sender",
			Receiver:      "cosmos1receiver",
		},
	}
}

func newService(store *memory.MemoryStorage) *Service {
	return NewService(store, WithClock(func() time.Time { return testNow }))
}

// ============================================================================
// ListByType
// ============================================================================

func TestListByType_GroupsByHeight(t *testing.T) {
	store := memory.NewMemoryStorage()
	ts := time.Date(2023, 7, 4, 23, 30, 0, 0, time.UTC).Unix()

	put(t, store, sendToEth(200, ts+100, "BBBB", nil, nil))
	put(t, store, sendToEth(100, ts, "AAAA", nil, nil))
	put(t, store, sendToEth(100, ts, "CCCC", nil, nil))
	put(t, store, ibcTransfer(150, ts, "DDDD", domain.MessageTypeIBCTransfer))
	_ = store.Put(context.Background(), []byte("last_download_block"), []byte("200"))

	got, err := newService(store).ListByType(context.Background(), domain.MessageTypeSendToEth)
	if err != nil {
		t.Fatalf("ListByType failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 heights, got %d", len(got))
	}
	if got[0].BlockNumber != 100 || got[1].BlockNumber != 200 {
		t.Errorf("heights not ascending: %d, %d", got[0].BlockNumber, got[1].BlockNumber)
	}
	if got[0].FormattedDate != "07-04-2023" {
		t.Errorf("formatted_date = %s", got[0].FormattedDate)
	}
	if len(got[0].Transactions) != 2 || got[0].Transactions[0].TxHash != "AAAA" {
		t.Errorf("unexpected transactions: %+v", got[0].Transactions)
	}

	var payload domain.SendToEth
	if err := json.Unmarshal(got[1].Transactions[0].Data, &payload); err != nil {
		t.Fatalf("data is not a payload: %v", err)
	}
	if payload.EthDest != "0xdest" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestListByType_SeparatesTypes(t *testing.T) {
	store := memory.NewMemoryStorage()
	put(t, store, ibcTransfer(10, 1, "AAAA", domain.MessageTypeIBCTransfer))
	put(t, store, ibcTransfer(11, 1, "BBBB", domain.MessageTypeIBCRecv))

	svc := newService(store)
	for _, typ := range []domain.MessageType{domain.MessageTypeIBCTransfer, domain.MessageTypeIBCRecv} {
		got, err := svc.ListByType(context.Background(), typ)
		if err != nil {
			t.Fatalf("ListByType(%s) failed: %v", typ, err)
		}
		if len(got) != 1 {
			t.Errorf("%s: expected 1 height, got %d", typ, len(got))
		}
	}

	got, _ := svc.ListByType(context.Background(), domain.MessageTypeSendToEth)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", got)
	}
}

func TestListByType_SkipsDamagedRecords(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	put(t, store, sendToEth(5, 1, "GOOD", nil, nil))
	_ = store.Put(ctx, []byte("000000000006:msgSendToEth:1:BAD"), []byte("{not json"))
	_ = store.Put(ctx, []byte("000000000007:msgSendToEth:notatime:HASH"), []byte("{}"))
	_ = store.Put(ctx, []byte("7:msgSendToEth:1:SHORT"), []byte("{}"))

	got, err := newService(store).ListByType(ctx, domain.MessageTypeSendToEth)
	if err != nil {
		t.Fatalf("ListByType failed: %v", err)
	}
	if len(got) != 1 || got[0].BlockNumber != 5 {
		t.Errorf("expected only the good record, got %+v", got)
	}
}

func TestListByType_RejectsUnknownType(t *testing.T) {
	if _, err := newService(memory.NewMemoryStorage()).ListByType(context.Background(), "msgBogus"); err == nil {
		t.Error("expected error")
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		unix int64
		want string
	}{
		{0, "01-01-1970"},
		{time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC).Unix(), "02-29-2024"},
		{time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC).Unix(), "12-01-2021"},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.unix); got != tt.want {
			t.Errorf("FormatDate(%d) = %s, want %s", tt.unix, got, tt.want)
		}
	}
}

// ============================================================================
// FeeTotals
// ============================================================================

func frame(t *testing.T, data TimeFrameData, period string) TimeFrame {
	t.Helper()
	for _, f := range data.TimeFrames {
		if f.Period == period {
			return f
		}
	}
	t.Fatalf("period %q missing", period)
	return TimeFrame{}
}

func total(tot Totals, denom string) string {
	if a, ok := tot[denom]; ok {
		return a.String()
	}
	return "0"
}

func TestFeeTotals_SumsRecentBlocks(t *testing.T) {
	store := memory.NewMemoryStorage()
	recent := testNow.Add(-time.Hour).Unix()
	for i, h := range []uint64{100, 101, 102} {
		put(t, store, sendToEth(h, recent, string(rune('A'+i))+"HASH", coins("denomA", "10"), coins("denomB", "1")))
	}

	data, err := newService(store).FeeTotals(context.Background())
	if err != nil {
		t.Fatalf("FeeTotals failed: %v", err)
	}

	want := []string{"1 day", "7 days", "30 days", "1 year", "All time"}
	if len(data.TimeFrames) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(data.TimeFrames))
	}
	for i, name := range want {
		f := data.TimeFrames[i]
		if f.Period != name {
			t.Errorf("frame %d = %s, want %s", i, f.Period, name)
		}
		if got := total(f.BridgeFeeTotals, "denomA"); got != "30" {
			t.Errorf("%s bridge denomA = %s, want 30", name, got)
		}
		if got := total(f.ChainFeeTotals, "denomB"); got != "3" {
			t.Errorf("%s chain denomB = %s, want 3", name, got)
		}
	}
}

func TestFeeTotals_BucketsByAge(t *testing.T) {
	store := memory.NewMemoryStorage()
	ages := []time.Duration{
		2 * time.Hour,
		3 * day,
		20 * day,
		200 * day,
		800 * day,
	}
	for i, age := range ages {
		put(t, store, sendToEth(uint64(i+1), testNow.Add(-age).Unix(), string(rune('A'+i)), coins("u", "1"), nil))
	}

	data, err := newService(store).FeeTotals(context.Background())
	if err != nil {
		t.Fatalf("FeeTotals failed: %v", err)
	}

	want := map[string]string{"1 day": "1", "7 days": "2", "30 days": "3", "1 year": "4", "All time": "5"}
	for period, n := range want {
		if got := total(frame(t, data, period).BridgeFeeTotals, "u"); got != n {
			t.Errorf("%s = %s, want %s", period, got, n)
		}
	}
}

func TestFeeTotals_LargeAmountsAndJSON(t *testing.T) {
	store := memory.NewMemoryStorage()
	big := "340282366920938463463374607431768211455" // 2^128-1
	put(t, store, sendToEth(1, testNow.Unix(), "A", coins("wei", big), nil))
	put(t, store, sendToEth(2, testNow.Unix(), "B", coins("wei", "1"), nil))

	data, err := newService(store).FeeTotals(context.Background())
	if err != nil {
		t.Fatalf("FeeTotals failed: %v", err)
	}
	f := frame(t, data, "All time")
	if got := total(f.BridgeFeeTotals, "wei"); got != "340282366920938463463374607431768211456" {
		t.Errorf("sum = %s", got)
	}

	raw, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"period":"All time","bridge_fee_totals":{"wei":340282366920938463463374607431768211456},"chain_fee_totals":{}}`
	if string(raw) != want {
		t.Errorf("json = %s\nwant   %s", raw, want)
	}
}

func TestFeeTotals_SkipsBadAmounts(t *testing.T) {
	store := memory.NewMemoryStorage()
	put(t, store, sendToEth(1, testNow.Unix(), "A", []domain.Coin{
		{Denom: "u", Amount: "abc"},
		{Denom: "u", Amount: "7"},
	}, nil))
	_ = store.Put(context.Background(), []byte("000000000002:msgSendToEth:1:BAD"), []byte("nope"))

	data, err := newService(store).FeeTotals(context.Background())
	if err != nil {
		t.Fatalf("FeeTotals failed: %v", err)
	}
	if got := total(frame(t, data, "All time").BridgeFeeTotals, "u"); got != "7" {
		t.Errorf("sum = %s, want 7", got)
	}
}

func TestFeeTotals_EmptyStore(t *testing.T) {
	data, err := newService(memory.NewMemoryStorage()).FeeTotals(context.Background())
	if err != nil {
		t.Fatalf("FeeTotals failed: %v", err)
	}
	for _, f := range data.TimeFrames {
		if len(f.BridgeFeeTotals) != 0 || len(f.ChainFeeTotals) != 0 {
			t.Errorf("%s: expected empty totals", f.Period)
		}
	}
}

func TestTotals_OverflowKeepsRunningSum(t *testing.T) {
	const maxUint256 = "115792089237316195423570985008687907853269984665640564039457584007913129639935"

	totals := Totals{}
	err := totals.add([]domain.Coin{
		{Denom: "u", Amount: "5"},
		{Denom: "u", Amount: maxUint256},
		{Denom: "u", Amount: "3"},
	})
	if err == nil {
		t.Fatal("expected overflow error")
	}
	if got := total(totals, "u"); got != "8" {
		t.Errorf("sum = %s, want 8", got)
	}

	totals = Totals{}
	if err := totals.add([]domain.Coin{{Denom: "u", Amount: maxUint256}}); err != nil {
		t.Fatalf("single max amount must fit: %v", err)
	}
	if got := total(totals, "u"); got != maxUint256 {
		t.Errorf("sum = %s, want max", got)
	}
}
