package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrRelayerExhausted marks submission failures caused by the relayer
// credential pool being fully quota-blocked. The drain loop pauses on
// this error and on nothing else.
var ErrRelayerExhausted = errors.New("relayer credentials exhausted")

// RedeemMethod selects how a redemption transaction reaches the chain.
type RedeemMethod string

const (
	RedeemViaRelayerProxy RedeemMethod = "relayer-proxy"
	RedeemViaRelayerSafe  RedeemMethod = "relayer-safe"
	RedeemViaDirectWallet RedeemMethod = "direct-wallet"
)

// RedeemStatus is the lifecycle of an in-flight redemption.
type RedeemStatus string

const (
	RedeemSubmitted RedeemStatus = "submitted"
	RedeemConfirmed RedeemStatus = "confirmed"
	RedeemFailed    RedeemStatus = "failed"
)

// In-flight record retention after a terminal status is reached.
const (
	RedeemRetentionConfirmed = 10 * time.Minute
	RedeemRetentionFailed    = 30 * time.Minute
)

// RedeemRecord tracks a single redemption submission per condition id.
// At most one submitted/confirmed record may exist per condition at a time.
type RedeemRecord struct {
	ConditionID string       `json:"conditionId"`
	Method      RedeemMethod `json:"method"`
	Status      RedeemStatus `json:"status"`
	TxHash      string       `json:"txHash"`
	NetPayout   float64      `json:"netPayout"` // USDC to the recipient set
	Error       string       `json:"error,omitempty"`
	SubmittedAt time.Time    `json:"submittedAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Evictable reports whether the record's retention window has elapsed.
// A record still "submitted" past the failed-retention window counts as stuck.
func (r RedeemRecord) Evictable(now time.Time) bool {
	switch r.Status {
	case RedeemConfirmed:
		return now.Sub(r.UpdatedAt) > RedeemRetentionConfirmed
	case RedeemFailed:
		return now.Sub(r.UpdatedAt) > RedeemRetentionFailed
	default:
		return now.Sub(r.SubmittedAt) > RedeemRetentionFailed
	}
}

// Blocks reports whether this record must prevent a new submission
// for the same condition id.
func (r RedeemRecord) Blocks() bool {
	return r.Status == RedeemSubmitted || r.Status == RedeemConfirmed
}

// RedeemCandidate is a position eligible for redemption once resolved.
type RedeemCandidate struct {
	ConditionID string
	NegRisk     bool
}

// RelayerCredential is one entry of the rotating relayer key pool.
type RelayerCredential struct {
	Key            string    `json:"key"`
	Secret         string    `json:"secret"`
	Passphrase     string    `json:"passphrase"`
	Label          string    `json:"label,omitempty"`
	ExhaustedUntil time.Time `json:"exhaustedUntil,omitzero"`
	LastError      string    `json:"lastError,omitempty"`
	LastUsedAt     time.Time `json:"lastUsedAt,omitzero"`
}

// Usable reports whether the credential may be selected now.
func (c RelayerCredential) Usable(now time.Time) bool {
	if c.Key == "" {
		return false
	}
	return c.ExhaustedUntil.IsZero() || !now.Before(c.ExhaustedUntil)
}

// DisplayLabel returns the label, or a masked key when no label is set.
func (c RelayerCredential) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	if len(c.Key) > 8 {
		return c.Key[:4] + "..." + c.Key[len(c.Key)-4:]
	}
	return c.Key
}

// IsQuotaError reports whether a relayer error message indicates quota
// exhaustion rather than a transient failure.
func IsQuotaError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "quota") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "limit exceeded")
}
