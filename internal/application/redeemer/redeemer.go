package redeemer

// redeemer.go — redemption drain loop.
//
// Pulls redeemable conditions not already in flight, submits up to the
// batch size per tick and stops early after three consecutive submission
// errors. The in-flight record is inserted synchronously with the
// submission so a concurrent tick can never double-submit a condition.
// Confirmation is watched by a detached goroutine per submission.

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/application/history"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/ports"
)

const (
	maxConsecutiveErrors = 3
	settleTimeout        = 2 * time.Minute
)

// Source supplies the conditions worth redeeming and retires them once
// their payout lands, so a confirmed condition is never offered again.
type Source interface {
	Redeemable() []domain.RedeemCandidate
	MarkRedeemed(conditionID string, payout float64)
}

// ResolutionChecker confirms a condition has resolved before spending
// relayer quota on it.
type ResolutionChecker interface {
	IsRedeemable(ctx context.Context, conditionID string) (bool, error)
}

// Config tunes the drain loop.
type Config struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
}

// Redeemer owns the in-flight map and the drain loop.
type Redeemer struct {
	cfg        Config
	exec       ports.RedeemExecutor
	resolution ResolutionChecker
	source     Source
	ledger     *history.Ledger

	mu       sync.Mutex
	inflight map[string]*domain.RedeemRecord
	paused   bool
	pauseMsg string
}

// New wires a redeemer.
func New(cfg Config, exec ports.RedeemExecutor, resolution ResolutionChecker, source Source, ledger *history.Ledger) *Redeemer {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	return &Redeemer{
		cfg:        cfg,
		exec:       exec,
		resolution: resolution,
		source:     source,
		ledger:     ledger,
		inflight:   make(map[string]*domain.RedeemRecord),
	}
}

// Run drives the drain loop until the context is cancelled.
func (r *Redeemer) Run(ctx context.Context) error {
	if !r.cfg.Enabled {
		slog.Info("redeem: auto-drain disabled")
		return nil
	}
	slog.Info("redeem: drain loop starting",
		"interval", r.cfg.Interval,
		"batch", r.cfg.BatchSize,
	)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("redeem: drain loop stopped")
			return nil
		case <-ticker.C:
			r.Drain(ctx)
		}
	}
}

// Drain runs one drain pass. A drainer paused on credential exhaustion
// resumes on its own once a relayer credential is usable again.
func (r *Redeemer) Drain(ctx context.Context) {
	r.evict()

	if r.isPaused() {
		if !r.exec.RelayerUsable() {
			return
		}
		slog.Info("redeem: relayer credentials usable again, resuming auto-drain")
		r.Resume()
	}

	submitted, consecutiveErrors := 0, 0
	for _, cand := range r.source.Redeemable() {
		if submitted >= r.cfg.BatchSize {
			break
		}
		if consecutiveErrors >= maxConsecutiveErrors {
			slog.Warn("redeem: stopping drain pass after consecutive errors",
				"errors", consecutiveErrors,
			)
			break
		}
		if r.blocked(cand.ConditionID) {
			continue
		}

		resolved, err := r.resolution.IsRedeemable(ctx, cand.ConditionID)
		if err != nil {
			slog.Warn("redeem: resolution check failed", "condition", cand.ConditionID, "err", err)
			continue
		}
		if !resolved {
			continue
		}

		if err := r.Submit(ctx, cand); err != nil {
			consecutiveErrors++
			continue
		}
		consecutiveErrors = 0
		submitted++
	}
}

// Submit redeems one condition: reserves the in-flight slot, submits via
// the executor and hands the tx to a detached confirmation watcher.
// Safe to call concurrently with the drain loop.
func (r *Redeemer) Submit(ctx context.Context, cand domain.RedeemCandidate) error {
	if _, ok := r.reserve(cand.ConditionID); !ok {
		return nil // already in flight: idempotent no-op
	}

	sub, err := r.exec.Submit(ctx, cand.ConditionID, cand.NegRisk)
	if err != nil {
		r.update(cand.ConditionID, func(rec *domain.RedeemRecord) {
			rec.Status = domain.RedeemFailed
			rec.Error = err.Error()
		})
		if errors.Is(err, domain.ErrRelayerExhausted) {
			r.pause(err.Error())
		}
		slog.Error("redeem: submission failed", "condition", cand.ConditionID, "err", err)
		return err
	}

	var snapshot domain.RedeemRecord
	r.update(cand.ConditionID, func(rec *domain.RedeemRecord) {
		rec.TxHash = sub.TxHash
		rec.Method = sub.Method
		snapshot = *rec
	})

	r.ledger.Append(domain.HistoryEntry{
		Mode:        domain.ModeAuto,
		Action:      "redeem",
		ConditionID: cand.ConditionID,
		Redeem:      &snapshot,
		Params:      map[string]any{"method": string(sub.Method)},
	})

	slog.Info("redeem: submitted",
		"condition", cand.ConditionID,
		"method", sub.Method,
		"tx", sub.TxHash,
	)

	go r.watchConfirmation(cand.ConditionID, sub.TxHash)
	return nil
}

// watchConfirmation settles the tx in the background and writes the
// outcome into the in-flight record. Detached from the caller's context:
// a mined transaction is tracked to completion regardless.
func (r *Redeemer) watchConfirmation(conditionID, txHash string) {
	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()

	payout, err := r.exec.Settle(ctx, txHash)

	var snapshot domain.RedeemRecord
	if err != nil {
		r.update(conditionID, func(rec *domain.RedeemRecord) {
			rec.Status = domain.RedeemFailed
			rec.Error = err.Error()
			snapshot = *rec
		})
		slog.Warn("redeem: settlement failed", "condition", conditionID, "tx", txHash, "err", err)
	} else {
		r.update(conditionID, func(rec *domain.RedeemRecord) {
			rec.Status = domain.RedeemConfirmed
			rec.NetPayout = payout
			snapshot = *rec
		})
		slog.Info("redeem: confirmed", "condition", conditionID, "tx", txHash, "payout", payout)
		r.source.MarkRedeemed(conditionID, payout)
	}
	r.ledger.UpdateRedeem(conditionID, snapshot)
}

// Record returns the in-flight record for a condition, if any.
// Callers that need settlement certainty poll this.
func (r *Redeemer) Record(conditionID string) (domain.RedeemRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.inflight[conditionID]
	if !ok {
		return domain.RedeemRecord{}, false
	}
	return *rec, true
}

// Status reports whether the drainer is paused and why.
func (r *Redeemer) Status() (paused bool, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused, r.pauseMsg
}

// Resume re-enables a paused drainer (e.g. after fresh credentials).
func (r *Redeemer) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused, r.pauseMsg = false, ""
}

// reserve inserts a submitted record unless one already blocks.
func (r *Redeemer) reserve(conditionID string) (*domain.RedeemRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.inflight[conditionID]; ok && existing.Blocks() {
		return nil, false
	}
	now := time.Now()
	rec := &domain.RedeemRecord{
		ConditionID: conditionID,
		Status:      domain.RedeemSubmitted,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	r.inflight[conditionID] = rec
	return rec, true
}

// update mutates the record under the lock.
func (r *Redeemer) update(conditionID string, fn func(*domain.RedeemRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.inflight[conditionID]; ok {
		fn(rec)
		rec.UpdatedAt = time.Now()
	}
}

// blocked reports whether an in-flight record prevents resubmission.
func (r *Redeemer) blocked(conditionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.inflight[conditionID]
	return ok && rec.Blocks()
}

// evict drops records whose retention window has elapsed.
func (r *Redeemer) evict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for cid, rec := range r.inflight {
		if rec.Evictable(now) {
			delete(r.inflight, cid)
		}
	}
}

func (r *Redeemer) isPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

func (r *Redeemer) pause(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
	r.pauseMsg = reason
	slog.Error("redeem: auto-drain paused", "reason", reason)
}
