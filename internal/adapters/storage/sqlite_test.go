package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/adapters/storage"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

func makeSnapshot(at time.Time, cash float64) domain.EquitySnapshot {
	return domain.EquitySnapshot{
		Timestamp:     at,
		CashUSDC:      cash,
		OpenPositions: 2,
		ExposureUSDC:  180.5,
		RealizedPnL:   12.25,
	}
}

func TestSQLiteStorage_SaveAndGetSnapshots(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.SaveEquitySnapshot(ctx, makeSnapshot(base.Add(-2*time.Minute), 900)))
	require.NoError(t, db.SaveEquitySnapshot(ctx, makeSnapshot(base.Add(-time.Minute), 950)))
	require.NoError(t, db.SaveEquitySnapshot(ctx, makeSnapshot(base, 1000)))

	got, err := db.GetEquitySnapshots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Más recientes primero
	assert.InDelta(t, 1000, got[0].CashUSDC, 0.001)
	assert.InDelta(t, 900, got[2].CashUSDC, 0.001)
	assert.Equal(t, 2, got[0].OpenPositions)
	assert.InDelta(t, 180.5, got[0].ExposureUSDC, 0.001)
}

func TestSQLiteStorage_LimitApplies(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, db.SaveEquitySnapshot(ctx, makeSnapshot(base.Add(time.Duration(i)*time.Minute), float64(i))))
	}

	got, err := db.GetEquitySnapshots(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLiteStorage_EmptyDatabase(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	got, err := db.GetEquitySnapshots(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStorage_ZeroTimestampStillPersists(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveEquitySnapshot(ctx, makeSnapshot(time.Time{}, 500)))

	got, err := db.GetEquitySnapshots(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 500, got[0].CashUSDC, 0.001)
}
