package redeemer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/application/history"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/domain"
	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/ports"
)

// --- fakes ---

type memStore struct{ files map[string][]byte }

func newMemStore() *memStore                         { return &memStore{files: map[string][]byte{}} }
func (m *memStore) Load(name string) ([]byte, error) { return m.files[name], nil }
func (m *memStore) Save(name string, data []byte) error {
	m.files[name] = data
	return nil
}

type fakeRedeemExec struct {
	mu            sync.Mutex
	submits       []string
	submitErr     error
	relayerUsable bool

	settlePayout float64
	settleErr    error
}

func newFakeRedeemExec() *fakeRedeemExec {
	return &fakeRedeemExec{relayerUsable: true, settlePayout: 100}
}

func (f *fakeRedeemExec) Submit(_ context.Context, conditionID string, _ bool) (ports.RedeemSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return ports.RedeemSubmission{}, f.submitErr
	}
	f.submits = append(f.submits, conditionID)
	return ports.RedeemSubmission{TxHash: "0xtx-" + conditionID, Method: domain.RedeemViaRelayerProxy}, nil
}

func (f *fakeRedeemExec) Settle(_ context.Context, _ string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settleErr != nil {
		return 0, f.settleErr
	}
	return f.settlePayout, nil
}

func (f *fakeRedeemExec) RelayerUsable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.relayerUsable
}

func (f *fakeRedeemExec) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

type fakeSource struct {
	mu         sync.Mutex
	candidates []domain.RedeemCandidate
	redeemed   map[string]float64
}

func (f *fakeSource) Redeemable() []domain.RedeemCandidate { return f.candidates }

func (f *fakeSource) MarkRedeemed(conditionID string, payout float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.redeemed == nil {
		f.redeemed = map[string]float64{}
	}
	f.redeemed[conditionID] = payout
}

func (f *fakeSource) redeemedPayout(conditionID string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payout, ok := f.redeemed[conditionID]
	return payout, ok
}

type fakeResolution struct {
	resolved map[string]bool
	err      error
}

func (f *fakeResolution) IsRedeemable(_ context.Context, conditionID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.resolved[conditionID], nil
}

// --- helpers ---

func allResolved(ids ...string) *fakeResolution {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return &fakeResolution{resolved: m}
}

func candidates(ids ...string) []domain.RedeemCandidate {
	out := make([]domain.RedeemCandidate, len(ids))
	for i, id := range ids {
		out[i] = domain.RedeemCandidate{ConditionID: id}
	}
	return out
}

func newTestRedeemer(t *testing.T, exec *fakeRedeemExec, res ResolutionChecker, src Source) *Redeemer {
	t.Helper()
	ledger, err := history.NewLedger(newMemStore())
	require.NoError(t, err)
	return New(Config{Enabled: true, BatchSize: 5}, exec, res, src, ledger)
}

// waitSettled blocks until the confirmation watcher has written a
// terminal status for the condition.
func waitSettled(t *testing.T, r *Redeemer, conditionID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec, ok := r.Record(conditionID); ok && rec.Status != domain.RedeemSubmitted {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("confirmation watcher never settled")
}

// --- tests ---

func TestRedeemer_SubmitIsIdempotent(t *testing.T) {
	exec := newFakeRedeemExec()
	r := newTestRedeemer(t, exec, allResolved("c1"), &fakeSource{})

	cand := domain.RedeemCandidate{ConditionID: "c1"}
	require.NoError(t, r.Submit(context.Background(), cand))
	require.NoError(t, r.Submit(context.Background(), cand), "second submit is a no-op")

	assert.Equal(t, 1, exec.submitCount())

	rec, ok := r.Record("c1")
	require.True(t, ok)
	assert.Equal(t, "0xtx-c1", rec.TxHash)
	assert.Equal(t, domain.RedeemViaRelayerProxy, rec.Method)
}

func TestRedeemer_ConfirmationWatcherRecordsPayout(t *testing.T) {
	exec := newFakeRedeemExec()
	exec.settlePayout = 199.96
	r := newTestRedeemer(t, exec, allResolved("c1"), &fakeSource{})

	require.NoError(t, r.Submit(context.Background(), domain.RedeemCandidate{ConditionID: "c1"}))
	waitSettled(t, r, "c1")

	rec, ok := r.Record("c1")
	require.True(t, ok)
	assert.Equal(t, domain.RedeemConfirmed, rec.Status)
	assert.Equal(t, 199.96, rec.NetPayout)
}

func TestRedeemer_SettlementFailureMarksFailed(t *testing.T) {
	exec := newFakeRedeemExec()
	exec.settleErr = errors.New("transaction reverted")
	r := newTestRedeemer(t, exec, allResolved("c1"), &fakeSource{})

	require.NoError(t, r.Submit(context.Background(), domain.RedeemCandidate{ConditionID: "c1"}))
	waitSettled(t, r, "c1")

	rec, ok := r.Record("c1")
	require.True(t, ok)
	assert.Equal(t, domain.RedeemFailed, rec.Status)
	assert.Contains(t, rec.Error, "reverted")
}

func TestRedeemer_FailedRecordAllowsResubmission(t *testing.T) {
	exec := newFakeRedeemExec()
	exec.submitErr = errors.New("relayer 500")
	r := newTestRedeemer(t, exec, allResolved("c1"), &fakeSource{})

	cand := domain.RedeemCandidate{ConditionID: "c1"}
	require.Error(t, r.Submit(context.Background(), cand))

	rec, ok := r.Record("c1")
	require.True(t, ok)
	assert.Equal(t, domain.RedeemFailed, rec.Status)
	assert.False(t, rec.Blocks())

	// failure cleared: the next submit goes through
	exec.mu.Lock()
	exec.submitErr = nil
	exec.mu.Unlock()
	require.NoError(t, r.Submit(context.Background(), cand))
	assert.Equal(t, 1, exec.submitCount())
}

func TestRedeemer_DrainStopsAfterConsecutiveErrors(t *testing.T) {
	exec := newFakeRedeemExec()
	exec.submitErr = errors.New("relayer down")
	src := &fakeSource{candidates: candidates("c1", "c2", "c3", "c4", "c5")}
	r := newTestRedeemer(t, exec, allResolved("c1", "c2", "c3", "c4", "c5"), src)

	r.Drain(context.Background())

	// three failed submissions, then the pass stops: c4/c5 never reserved
	_, ok := r.Record("c4")
	assert.False(t, ok)
	_, ok = r.Record("c5")
	assert.False(t, ok)
	for _, cid := range []string{"c1", "c2", "c3"} {
		rec, ok := r.Record(cid)
		require.True(t, ok, cid)
		assert.Equal(t, domain.RedeemFailed, rec.Status, cid)
	}
}

func TestRedeemer_DrainRespectsBatchSize(t *testing.T) {
	exec := newFakeRedeemExec()
	src := &fakeSource{candidates: candidates("c1", "c2", "c3")}
	r := newTestRedeemer(t, exec, allResolved("c1", "c2", "c3"), src)
	r.cfg.BatchSize = 2

	r.Drain(context.Background())

	assert.Equal(t, 2, exec.submitCount())
}

func TestRedeemer_DrainSkipsUnresolved(t *testing.T) {
	exec := newFakeRedeemExec()
	src := &fakeSource{candidates: candidates("c1", "c2")}
	r := newTestRedeemer(t, exec, allResolved("c2"), src)

	r.Drain(context.Background())

	assert.Equal(t, []string{"c2"}, exec.submits)
	_, ok := r.Record("c1")
	assert.False(t, ok, "unresolved condition never reserved")
}

func TestRedeemer_PausesWhenRelayerExhausted(t *testing.T) {
	exec := newFakeRedeemExec()
	exec.submitErr = fmt.Errorf("redeem: quota exceeded: %w", domain.ErrRelayerExhausted)
	exec.relayerUsable = false
	src := &fakeSource{candidates: candidates("c1", "c2")}
	r := newTestRedeemer(t, exec, allResolved("c1", "c2"), src)

	r.Drain(context.Background())

	paused, reason := r.Status()
	assert.True(t, paused)
	assert.Contains(t, reason, "quota exceeded")

	// paused drainer submits nothing while credentials stay exhausted
	r.Drain(context.Background())
	assert.Zero(t, exec.submitCount())

	// cooldown elapsed: a credential is usable again and the next
	// drain pass resumes on its own
	exec.mu.Lock()
	exec.submitErr = nil
	exec.relayerUsable = true
	exec.mu.Unlock()
	r.Drain(context.Background())

	paused, _ = r.Status()
	assert.False(t, paused)
	assert.Equal(t, 2, exec.submitCount())
}

func TestRedeemer_TransientErrorDoesNotPause(t *testing.T) {
	// direct-wallet mode: no relayer configured, RelayerUsable is false
	// for the whole run. A transient RPC error must not stop the drain.
	exec := newFakeRedeemExec()
	exec.relayerUsable = false
	exec.submitErr = errors.New("rpcpool: retry on https://polygon-rpc.com: i/o timeout")
	src := &fakeSource{candidates: candidates("c1")}
	r := newTestRedeemer(t, exec, allResolved("c1"), src)

	r.Drain(context.Background())

	paused, _ := r.Status()
	assert.False(t, paused)

	// error cleared: the very next pass submits
	exec.mu.Lock()
	exec.submitErr = nil
	exec.mu.Unlock()
	r.Drain(context.Background())
	assert.Equal(t, 1, exec.submitCount())
}

func TestRedeemer_ConfirmationRetiresPosition(t *testing.T) {
	exec := newFakeRedeemExec()
	exec.settlePayout = 199.96
	src := &fakeSource{}
	r := newTestRedeemer(t, exec, allResolved("c1"), src)

	require.NoError(t, r.Submit(context.Background(), domain.RedeemCandidate{ConditionID: "c1"}))
	waitSettled(t, r, "c1")

	require.Eventually(t, func() bool {
		_, ok := src.redeemedPayout("c1")
		return ok
	}, 2*time.Second, 5*time.Millisecond, "confirmed condition never retired at the source")

	payout, _ := src.redeemedPayout("c1")
	assert.Equal(t, 199.96, payout)
}

func TestRedeemer_EvictsExpiredRecords(t *testing.T) {
	exec := newFakeRedeemExec()
	r := newTestRedeemer(t, exec, allResolved("c1"), &fakeSource{})

	require.NoError(t, r.Submit(context.Background(), domain.RedeemCandidate{ConditionID: "c1"}))
	waitSettled(t, r, "c1")

	// age the confirmed record past its retention window
	r.mu.Lock()
	r.inflight["c1"].UpdatedAt = time.Now().Add(-11 * time.Minute)
	r.mu.Unlock()

	r.evict()
	_, ok := r.Record("c1")
	assert.False(t, ok)
}

func TestRedeemer_RunDisabledReturnsImmediately(t *testing.T) {
	exec := newFakeRedeemExec()
	ledger, err := history.NewLedger(newMemStore())
	require.NoError(t, err)
	r := New(Config{Enabled: false}, exec, allResolved(), &fakeSource{}, ledger)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("disabled run loop did not return")
	}
}
