package history

// history.go — trade action ledger.
//
// A bounded ring of the most recent actions (placements, exits,
// redemptions), newest first, mirrored to disk through the snapshot
// store. Appends never fail the money path: a persistence error is
// logged and the in-memory entry kept.

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/ports"
)

const snapshotName = "history.json"

// Ledger keeps the bounded action history and mirrors it to disk.
type Ledger struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry // newest first
	store   ports.SnapshotStore
}

// NewLedger loads any persisted history from the store.
func NewLedger(store ports.SnapshotStore) (*Ledger, error) {
	l := &Ledger{store: store}

	data, err := store.Load(snapshotName)
	if err != nil {
		return nil, fmt.Errorf("history.NewLedger: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &l.entries); err != nil {
			// Corrupt history is not worth dying for: start fresh,
			// the .bak still holds the previous version.
			slog.Warn("history: corrupt snapshot, starting empty", "err", err)
			l.entries = nil
		}
	}
	if len(l.entries) > domain.HistoryCap {
		l.entries = l.entries[:domain.HistoryCap]
	}
	return l, nil
}

// Append records an action at the head of the ring, evicting the oldest
// entry past capacity, and mirrors the ledger to disk best-effort.
func (l *Ledger) Append(entry domain.HistoryEntry) domain.HistoryEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.mu.Lock()
	l.entries = append([]domain.HistoryEntry{entry}, l.entries...)
	if len(l.entries) > domain.HistoryCap {
		l.entries = l.entries[:domain.HistoryCap]
	}
	l.persistLocked()
	l.mu.Unlock()

	return entry
}

// List returns detached copies of the entries newest first, up to limit
// (0 = all). Leg slices are copied too: callers may mutate them without
// racing the ledger's own persistence.
func (l *Ledger) List(limit int) []domain.HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.HistoryEntry, n)
	copy(out, l.entries[:n])
	for i := range out {
		if len(out[i].Legs) > 0 {
			legs := make([]domain.LegResult, len(out[i].Legs))
			copy(legs, out[i].Legs)
			out[i].Legs = legs
		}
	}
	return out
}

// UpdateRedeem replaces the redeem record of the most recent entry for
// the condition, so confirmation watchers can settle the ledger later.
func (l *Ledger) UpdateRedeem(conditionID string, rec domain.RedeemRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ConditionID == conditionID && l.entries[i].Redeem != nil {
			r := rec
			l.entries[i].Redeem = &r
			l.persistLocked()
			return
		}
	}
}

// Refresh enriches live order legs in recent entries with their current
// venue status. Best-effort: individual lookup failures are skipped.
func (l *Ledger) Refresh(ctx context.Context, exec ports.OrderExecutor) {
	for _, entry := range l.List(10) {
		changed := false
		for i, leg := range entry.Legs {
			if leg.OrderID == "" || leg.Status == string(domain.LegFilled) || leg.Status == string(domain.LegClosed) {
				continue
			}
			state, err := exec.GetOrder(ctx, leg.OrderID)
			if err != nil {
				continue
			}
			entry.Legs[i].FilledSize = state.SizeMatched
			if state.FullyMatched() {
				entry.Legs[i].Status = string(domain.LegFilled)
			} else if !state.Live() {
				entry.Legs[i].Status = string(domain.LegClosed)
			}
			changed = true
		}
		if changed {
			l.replace(entry)
		}
	}
}

// replace swaps an updated entry back into the ring by id.
func (l *Ledger) replace(entry domain.HistoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ID == entry.ID {
			l.entries[i] = entry
			l.persistLocked()
			return
		}
	}
}

// persistLocked mirrors the ring to disk. Caller holds l.mu.
func (l *Ledger) persistLocked() {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		slog.Warn("history: marshal failed", "err", err)
		return
	}
	if err := l.store.Save(snapshotName, data); err != nil {
		slog.Warn("history: persist failed", "err", err)
	}
}
