package domain

import (
	"sync"
	"time"
)

// DefaultExhaustCooldown is applied when a quota error carries no parseable
// reset time.
const DefaultExhaustCooldown = 24 * time.Hour

// CredentialPool is the rotating pool of relayer credentials. Exactly one
// credential is active at a time; exhausted credentials are skipped until
// their cooldown elapses. Safe for concurrent use.
type CredentialPool struct {
	mu       sync.Mutex
	creds    []RelayerCredential
	active   int
	disabled string // non-empty = relayer submission disabled, with reason
}

// NewCredentialPool creates a pool over the given credentials.
func NewCredentialPool(creds []RelayerCredential) *CredentialPool {
	return &CredentialPool{creds: creds}
}

// Active returns the currently selected usable credential. When the active
// slot is exhausted it rotates forward to the next usable one. Returns
// false when the pool is empty, disabled, or fully exhausted.
func (p *CredentialPool) Active(now time.Time) (RelayerCredential, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disabled != "" || len(p.creds) == 0 {
		return RelayerCredential{}, false
	}

	for i := 0; i < len(p.creds); i++ {
		idx := (p.active + i) % len(p.creds)
		if p.creds[idx].Usable(now) {
			p.active = idx
			p.creds[idx].LastUsedAt = now
			return p.creds[idx], true
		}
	}
	return RelayerCredential{}, false
}

// MarkExhausted records a quota error against the credential with the given
// key and rotates the active slot to the next usable credential. Returns
// false when no usable credential remains after the rotation.
func (p *CredentialPool) MarkExhausted(key string, until time.Time, errMsg string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.creds {
		if p.creds[i].Key == key {
			p.creds[i].ExhaustedUntil = until
			p.creds[i].LastError = errMsg
			break
		}
	}

	for i := 1; i <= len(p.creds); i++ {
		idx := (p.active + i) % len(p.creds)
		if p.creds[idx].Usable(now) {
			p.active = idx
			return true
		}
	}
	return false
}

// Disable turns off relayer submission with a human-readable reason.
func (p *CredentialPool) Disable(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disabled = reason
}

// Enable re-enables the pool (e.g. after new credentials are loaded).
func (p *CredentialPool) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disabled = ""
}

// Usable reports whether at least one credential could be selected now.
// Read-only: unlike Active it neither rotates the pool nor stamps usage.
func (p *CredentialPool) Usable(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disabled != "" {
		return false
	}
	for _, c := range p.creds {
		if c.Usable(now) {
			return true
		}
	}
	return false
}

// Status returns the disable reason ("" = enabled) and the credential count.
func (p *CredentialPool) Status() (string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disabled, len(p.creds)
}

// Snapshot returns a copy of the credentials for persistence.
func (p *CredentialPool) Snapshot() []RelayerCredential {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RelayerCredential, len(p.creds))
	copy(out, p.creds)
	return out
}

// Replace swaps the pool contents, clearing any disabled state.
func (p *CredentialPool) Replace(creds []RelayerCredential) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creds = make([]RelayerCredential, len(creds))
	copy(p.creds, creds)
	p.active = 0
	p.disabled = ""
}
