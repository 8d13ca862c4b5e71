package storage

// sqlite.go — histórico de equity en SQLite (pure Go, sin CGo).
//
// Una fila por snapshot periódico: cash, exposición abierta y PnL
// realizado. Prune automático al arrancar para mantener la DB ligera.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS equity_snapshots (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    taken_at       DATETIME NOT NULL,
    cash_usdc      REAL     NOT NULL DEFAULT 0,
    open_positions INTEGER  NOT NULL DEFAULT 0,
    exposure_usdc  REAL     NOT NULL DEFAULT 0,
    realized_pnl   REAL     NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_equity_at ON equity_snapshots(taken_at DESC);
`

// snapshots: 90 días de retención
const retentionEquity = 90 * 24 * time.Hour

// SQLiteStorage implementa ports.EquityStore usando SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveEquitySnapshot persiste una observación de equity.
func (s *SQLiteStorage) SaveEquitySnapshot(ctx context.Context, snap domain.EquitySnapshot) error {
	ts := snap.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO equity_snapshots (taken_at, cash_usdc, open_positions, exposure_usdc, realized_pnl)
		 VALUES (?, ?, ?, ?, ?)`,
		ts.UTC(), snap.CashUSDC, snap.OpenPositions, snap.ExposureUSDC, snap.RealizedPnL,
	); err != nil {
		return fmt.Errorf("storage.SaveEquitySnapshot: insert: %w", err)
	}
	return nil
}

// GetEquitySnapshots devuelve los últimos `limit` snapshots, más recientes primero.
func (s *SQLiteStorage) GetEquitySnapshots(ctx context.Context, limit int) ([]domain.EquitySnapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT taken_at, cash_usdc, open_positions, exposure_usdc, realized_pnl
		FROM equity_snapshots
		ORDER BY taken_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetEquitySnapshots: query: %w", err)
	}
	defer rows.Close()

	var out []domain.EquitySnapshot
	for rows.Next() {
		var snap domain.EquitySnapshot
		var takenAt string
		if err := rows.Scan(&takenAt, &snap.CashUSDC, &snap.OpenPositions, &snap.ExposureUSDC, &snap.RealizedPnL); err != nil {
			return nil, fmt.Errorf("storage.GetEquitySnapshots: scan row: %w", err)
		}
		snap.Timestamp, _ = time.Parse(time.RFC3339, takenAt)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina snapshots antiguos.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionEquity)
	s.db.ExecContext(ctx, `DELETE FROM equity_snapshots WHERE taken_at < ?`, cutoff)
}
