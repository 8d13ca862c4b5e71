package ports

import (
	"context"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
)

// SnapshotStore is the small persistence port used by components that
// mirror state to disk. Implementations must write atomically
// (temp file + rename) and keep a backup of the previous version.
type SnapshotStore interface {
	// Load reads the named snapshot. A missing file returns (nil, nil).
	Load(name string) ([]byte, error)

	// Save atomically replaces the named snapshot.
	Save(name string, data []byte) error
}

// EquityStore persists periodic equity/PnL snapshots.
type EquityStore interface {
	SaveEquitySnapshot(ctx context.Context, s domain.EquitySnapshot) error
	GetEquitySnapshots(ctx context.Context, limit int) ([]domain.EquitySnapshot, error)
}

// Notifier presents ranked opportunities to the operator.
type Notifier interface {
	Notify(ctx context.Context, opportunities []domain.Opportunity) error
}
