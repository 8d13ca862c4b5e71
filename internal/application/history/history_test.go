package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

// --- fakes ---

type memStore struct {
	files   map[string][]byte
	saveErr error
	saves   int
}

func newMemStore() *memStore                         { return &memStore{files: map[string][]byte{}} }
func (m *memStore) Load(name string) ([]byte, error) { return m.files[name], nil }
func (m *memStore) Save(name string, data []byte) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.files[name] = data
	return nil
}

type fakeExec struct {
	states map[string]domain.OrderState
}

func (f *fakeExec) CreateOrder(context.Context, domain.OrderRequest) (domain.PlacedOrder, error) {
	return domain.PlacedOrder{}, errors.New("not used")
}
func (f *fakeExec) CreateMarketOrder(context.Context, domain.MarketOrderRequest) (domain.PlacedOrder, error) {
	return domain.PlacedOrder{}, errors.New("not used")
}
func (f *fakeExec) CancelOrder(context.Context, string) error { return nil }
func (f *fakeExec) GetOrder(_ context.Context, orderID string) (domain.OrderState, error) {
	st, ok := f.states[orderID]
	if !ok {
		return domain.OrderState{}, errors.New("order not found")
	}
	return st, nil
}
func (f *fakeExec) GetOpenOrders(context.Context, string) ([]domain.OrderState, error) {
	return nil, nil
}
func (f *fakeExec) GetTrades(context.Context, string) ([]domain.TradeFill, error) { return nil, nil }
func (f *fakeExec) GetBalance(context.Context) (float64, error)                   { return 0, nil }

// --- tests ---

func TestLedger_AppendAssignsDefaults(t *testing.T) {
	l, err := NewLedger(newMemStore())
	require.NoError(t, err)

	entry := l.Append(domain.HistoryEntry{Action: "place_pair", ConditionID: "0xcond"})

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())

	got := l.List(0)
	require.Len(t, got, 1)
	assert.Equal(t, entry.ID, got[0].ID)
}

func TestLedger_NewestFirstAndLimit(t *testing.T) {
	l, err := NewLedger(newMemStore())
	require.NoError(t, err)

	l.Append(domain.HistoryEntry{ID: "first", Action: "place_pair"})
	l.Append(domain.HistoryEntry{ID: "second", Action: "exit"})
	l.Append(domain.HistoryEntry{ID: "third", Action: "redeem"})

	got := l.List(2)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
}

func TestLedger_CapEvictsOldest(t *testing.T) {
	l, err := NewLedger(newMemStore())
	require.NoError(t, err)

	for i := 0; i < domain.HistoryCap+10; i++ {
		l.Append(domain.HistoryEntry{ID: fmt.Sprintf("e%d", i), Action: "exit"})
	}

	got := l.List(0)
	require.Len(t, got, domain.HistoryCap)
	assert.Equal(t, fmt.Sprintf("e%d", domain.HistoryCap+9), got[0].ID)
	// the ten oldest fell off the tail
	assert.Equal(t, "e10", got[len(got)-1].ID)
}

func TestLedger_RoundTripPersistence(t *testing.T) {
	store := newMemStore()

	l, err := NewLedger(store)
	require.NoError(t, err)
	l.Append(domain.HistoryEntry{
		ID:          "e1",
		Timestamp:   time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Action:      "place_pair",
		ConditionID: "0xcond",
		Params:      map[string]any{"size": 100.0},
		Legs: []domain.LegResult{
			{Side: domain.SideA, TokenID: "tok-yes", OrderID: "ord-a", Price: 0.4775, Size: 100, Success: true},
			{Side: domain.SideB, TokenID: "tok-no", Price: 0.4224, Size: 100, Error: "rejected"},
		},
		CashDelta: -89.99,
	})

	reloaded, err := NewLedger(store)
	require.NoError(t, err)
	assert.Equal(t, l.List(0), reloaded.List(0))
}

func TestLedger_ListCopiesAreDetached(t *testing.T) {
	l, err := NewLedger(newMemStore())
	require.NoError(t, err)
	l.Append(domain.HistoryEntry{
		ID:     "e1",
		Action: "place_pair",
		Legs: []domain.LegResult{
			{Side: domain.SideA, OrderID: "ord-a", FilledSize: 10},
		},
	})

	// mutating a listed copy must not reach the stored entry
	got := l.List(0)
	got[0].Legs[0].FilledSize = 999
	got[0].Legs[0].Status = "bogus"

	fresh := l.List(0)
	assert.Equal(t, 10.0, fresh[0].Legs[0].FilledSize)
	assert.Empty(t, fresh[0].Legs[0].Status)
}

func TestLedger_CorruptSnapshotStartsEmpty(t *testing.T) {
	store := newMemStore()
	store.files["history.json"] = []byte("{not json")

	l, err := NewLedger(store)
	require.NoError(t, err)
	assert.Empty(t, l.List(0))
}

func TestLedger_AppendSurvivesPersistFailure(t *testing.T) {
	store := newMemStore()
	store.saveErr = errors.New("disk full")

	l, err := NewLedger(store)
	require.NoError(t, err)
	l.Append(domain.HistoryEntry{ID: "e1", Action: "exit"})

	// persistence failed but the in-memory entry survives
	assert.Positive(t, store.saves)
	require.Len(t, l.List(0), 1)
}

func TestLedger_UpdateRedeem(t *testing.T) {
	l, err := NewLedger(newMemStore())
	require.NoError(t, err)

	l.Append(domain.HistoryEntry{
		ID:          "e1",
		Action:      "redeem",
		ConditionID: "0xcond",
		Redeem:      &domain.RedeemRecord{ConditionID: "0xcond", Status: domain.RedeemSubmitted, TxHash: "0xtx"},
	})

	l.UpdateRedeem("0xcond", domain.RedeemRecord{
		ConditionID: "0xcond",
		Status:      domain.RedeemConfirmed,
		TxHash:      "0xtx",
		NetPayout:   99.98,
	})

	got := l.List(1)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Redeem)
	assert.Equal(t, domain.RedeemConfirmed, got[0].Redeem.Status)
	assert.Equal(t, 99.98, got[0].Redeem.NetPayout)
}

func TestLedger_RefreshEnrichesLiveLegs(t *testing.T) {
	exec := &fakeExec{states: map[string]domain.OrderState{
		"ord-a": {OrderID: "ord-a", OriginalSize: 100, SizeMatched: 100, Status: "MATCHED"},
		"ord-b": {OrderID: "ord-b", OriginalSize: 100, SizeMatched: 40, Status: "LIVE"},
	}}

	l, err := NewLedger(newMemStore())
	require.NoError(t, err)
	l.Append(domain.HistoryEntry{
		ID:     "e1",
		Action: "place_pair",
		Legs: []domain.LegResult{
			{Side: domain.SideA, OrderID: "ord-a", Success: true},
			{Side: domain.SideB, OrderID: "ord-b", Success: true},
			{Side: domain.SideB, Error: "rejected"}, // no order id, skipped
		},
	})

	l.Refresh(context.Background(), exec)

	got := l.List(1)
	require.Len(t, got, 1)
	legs := got[0].Legs
	assert.Equal(t, string(domain.LegFilled), legs[0].Status)
	assert.Equal(t, 100.0, legs[0].FilledSize)
	assert.Empty(t, legs[1].Status, "partially filled live order keeps no terminal status")
	assert.Equal(t, 40.0, legs[1].FilledSize)
	assert.Empty(t, legs[2].Status)
}

func TestLedger_RefreshSkipsTerminalLegs(t *testing.T) {
	exec := &fakeExec{states: map[string]domain.OrderState{}}

	l, err := NewLedger(newMemStore())
	require.NoError(t, err)
	l.Append(domain.HistoryEntry{
		ID:     "e1",
		Action: "place_pair",
		Legs: []domain.LegResult{
			{Side: domain.SideA, OrderID: "ord-a", Status: string(domain.LegFilled), FilledSize: 100},
		},
	})

	// no venue lookup happens for a filled leg, so the empty fake never errors
	l.Refresh(context.Background(), exec)

	got := l.List(1)
	assert.Equal(t, 100.0, got[0].Legs[0].FilledSize)
}
