package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeCreds() []RelayerCredential {
	return []RelayerCredential{
		{Key: "key-1", Secret: "s1", Passphrase: "p1", Label: "primary"},
		{Key: "key-2", Secret: "s2", Passphrase: "p2"},
		{Key: "key-3", Secret: "s3", Passphrase: "p3"},
	}
}

func TestCredentialPool_ActiveRotatesPastExhausted(t *testing.T) {
	now := time.Now()
	pool := NewCredentialPool(threeCreds())

	cred, ok := pool.Active(now)
	require.True(t, ok)
	assert.Equal(t, "key-1", cred.Key)

	// quota error citing "resets in 120 seconds"
	ok = pool.MarkExhausted("key-1", now.Add(120*time.Second), "quota exceeded, resets in 120 seconds", now)
	require.True(t, ok, "another credential remains usable")

	cred, ok = pool.Active(now)
	require.True(t, ok)
	assert.Equal(t, "key-2", cred.Key)

	// key-1 becomes usable again after the cooldown
	cred, ok = pool.Active(now.Add(121 * time.Second))
	require.True(t, ok)
	assert.Contains(t, []string{"key-1", "key-2"}, cred.Key)
}

func TestCredentialPool_AllExhausted(t *testing.T) {
	now := time.Now()
	pool := NewCredentialPool(threeCreds())

	until := now.Add(DefaultExhaustCooldown)
	assert.True(t, pool.MarkExhausted("key-1", until, "quota", now))
	assert.True(t, pool.MarkExhausted("key-2", until, "quota", now))
	assert.False(t, pool.MarkExhausted("key-3", until, "quota", now), "last usable credential gone")

	_, ok := pool.Active(now)
	assert.False(t, ok)
	assert.False(t, pool.Usable(now))
}

func TestCredentialPool_DisableEnable(t *testing.T) {
	now := time.Now()
	pool := NewCredentialPool(threeCreds())

	pool.Disable("all relayer credentials exhausted")
	_, ok := pool.Active(now)
	assert.False(t, ok)

	reason, n := pool.Status()
	assert.Equal(t, "all relayer credentials exhausted", reason)
	assert.Equal(t, 3, n)

	pool.Enable()
	_, ok = pool.Active(now)
	assert.True(t, ok)
}

func TestCredentialPool_EmptyPool(t *testing.T) {
	pool := NewCredentialPool(nil)
	_, ok := pool.Active(time.Now())
	assert.False(t, ok)
	assert.False(t, pool.Usable(time.Now()))
}

func TestCredentialPool_ActiveStampsLastUsed(t *testing.T) {
	now := time.Now()
	pool := NewCredentialPool(threeCreds())

	_, ok := pool.Active(now)
	require.True(t, ok)

	snap := pool.Snapshot()
	assert.Equal(t, now, snap[0].LastUsedAt)
}

func TestCredentialPool_UsableIsReadOnly(t *testing.T) {
	now := time.Now()
	pool := NewCredentialPool(threeCreds())

	assert.True(t, pool.Usable(now))

	// la consulta no rota el pool ni marca uso
	for _, c := range pool.Snapshot() {
		assert.True(t, c.LastUsedAt.IsZero())
	}
	cred, ok := pool.Active(now)
	require.True(t, ok)
	assert.Equal(t, "key-1", cred.Key)
}

func TestRelayerCredential_Usable(t *testing.T) {
	now := time.Now()

	assert.False(t, RelayerCredential{}.Usable(now), "empty key never usable")
	assert.True(t, RelayerCredential{Key: "k"}.Usable(now))
	assert.False(t, RelayerCredential{Key: "k", ExhaustedUntil: now.Add(time.Hour)}.Usable(now))
	assert.True(t, RelayerCredential{Key: "k", ExhaustedUntil: now.Add(-time.Second)}.Usable(now))
}

func TestIsQuotaError(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"Quota exceeded, resets in 120 seconds", true},
		{"rate limit reached", true},
		{"Too Many Requests", true},
		{"monthly limit exceeded", true},
		{"invalid signature", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsQuotaError(tc.msg), tc.msg)
	}
}
