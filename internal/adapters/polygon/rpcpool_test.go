package polygon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRPCPool_RequiresEndpoints(t *testing.T) {
	_, err := NewRPCPool(nil)
	assert.ErrorContains(t, err, "no endpoints")

	pool, err := NewRPCPool([]string{"https://polygon-rpc.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Endpoints())
}

func TestRetryableRPCError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"http 429", errors.New("429 Too Many Requests: rate limited"), true},
		{"rate limit text", errors.New("request failed: rate limit exceeded"), true},
		{"connection refused", errors.New("dial tcp 1.2.3.4:443: connection refused"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"dns failure", errors.New("lookup rpc.example.org: no such host"), true},
		{"io timeout", errors.New("read tcp 1.2.3.4:443: i/o timeout"), true},
		{"unexpected eof", errors.New("unexpected EOF"), true},
		{"bad gateway", errors.New("502 Bad Gateway"), true},
		{"service unavailable", errors.New("503 Service Unavailable"), true},
		{"execution reverted", errors.New("execution reverted: payout already claimed"), false},
		{"nonce too low", errors.New("nonce too low"), false},
		{"insufficient funds", errors.New("insufficient funds for gas * price + value"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.retryable, retryableRPCError(tc.err))
		})
	}
}
