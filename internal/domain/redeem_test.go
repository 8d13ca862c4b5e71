package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedeemRecord_Evictable(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name string
		rec  RedeemRecord
		want bool
	}{
		{
			name: "confirmed within retention",
			rec:  RedeemRecord{Status: RedeemConfirmed, UpdatedAt: now.Add(-5 * time.Minute)},
			want: false,
		},
		{
			name: "confirmed past retention",
			rec:  RedeemRecord{Status: RedeemConfirmed, UpdatedAt: now.Add(-11 * time.Minute)},
			want: true,
		},
		{
			name: "failed within retention",
			rec:  RedeemRecord{Status: RedeemFailed, UpdatedAt: now.Add(-29 * time.Minute)},
			want: false,
		},
		{
			name: "failed past retention",
			rec:  RedeemRecord{Status: RedeemFailed, UpdatedAt: now.Add(-31 * time.Minute)},
			want: true,
		},
		{
			name: "stuck submitted uses the failed window",
			rec:  RedeemRecord{Status: RedeemSubmitted, SubmittedAt: now.Add(-31 * time.Minute)},
			want: true,
		},
		{
			name: "fresh submitted stays",
			rec:  RedeemRecord{Status: RedeemSubmitted, SubmittedAt: now.Add(-1 * time.Minute)},
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rec.Evictable(now))
		})
	}
}

func TestRedeemRecord_Blocks(t *testing.T) {
	assert.True(t, RedeemRecord{Status: RedeemSubmitted}.Blocks())
	assert.True(t, RedeemRecord{Status: RedeemConfirmed}.Blocks())
	assert.False(t, RedeemRecord{Status: RedeemFailed}.Blocks())
}

func TestRelayerCredential_DisplayLabel(t *testing.T) {
	assert.Equal(t, "prod", RelayerCredential{Key: "abcdefghij", Label: "prod"}.DisplayLabel())
	assert.Equal(t, "abcd...ghij", RelayerCredential{Key: "abcdefghij"}.DisplayLabel())
	assert.Equal(t, "short", RelayerCredential{Key: "short"}.DisplayLabel())
}
