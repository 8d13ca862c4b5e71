package polygon

// rpcpool.go — rotating pool of Polygon RPC endpoints.
//
// Public RPC endpoints rate-limit aggressively and drop out without notice.
// Every call goes against the current endpoint; an error matching a
// rate-limit/unavailable signature advances the pool and re-issues the
// call once against the next endpoint. Anything else surfaces unchanged.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
)

// RPCPool rotates across a fixed list of endpoint URLs.
type RPCPool struct {
	urls []string

	mu      sync.Mutex
	idx     int
	clients map[string]*ethclient.Client // dialed lazily, keyed by URL
}

// NewRPCPool creates a pool over the given endpoint URLs.
func NewRPCPool(urls []string) (*RPCPool, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("rpcpool: no endpoints configured")
	}
	return &RPCPool{
		urls:    urls,
		clients: make(map[string]*ethclient.Client, len(urls)),
	}, nil
}

// Do runs fn against the current endpoint, rotating and retrying once on a
// retryable infrastructure error.
func (p *RPCPool) Do(ctx context.Context, fn func(*ethclient.Client) error) error {
	client, url, err := p.current(ctx)
	if err != nil {
		return err
	}

	err = fn(client)
	if err == nil || !retryableRPCError(err) {
		return err
	}

	slog.Warn("rpc: endpoint failed, rotating", "endpoint", url, "err", err)
	client, url, rotateErr := p.advance(ctx)
	if rotateErr != nil {
		return fmt.Errorf("rpcpool: rotate after %v: %w", err, rotateErr)
	}

	if err := fn(client); err != nil {
		return fmt.Errorf("rpcpool: retry on %s: %w", url, err)
	}
	return nil
}

// Endpoints returns the configured endpoint count.
func (p *RPCPool) Endpoints() int {
	return len(p.urls)
}

// current returns the active endpoint's client, dialing it if needed.
func (p *RPCPool) current(ctx context.Context) (*ethclient.Client, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientLocked(ctx, p.urls[p.idx])
}

// advance moves to the next endpoint and returns its client.
func (p *RPCPool) advance(ctx context.Context) (*ethclient.Client, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idx = (p.idx + 1) % len(p.urls)
	return p.clientLocked(ctx, p.urls[p.idx])
}

func (p *RPCPool) clientLocked(ctx context.Context, url string) (*ethclient.Client, string, error) {
	if c, ok := p.clients[url]; ok {
		return c, url, nil
	}
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, url, fmt.Errorf("rpcpool: dial %s: %w", url, err)
	}
	p.clients[url] = c
	return c, url, nil
}

// retryableRPCError reports whether the error looks like a rate-limit or
// endpoint-availability problem rather than a real call failure.
func retryableRPCError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range []string{
		"429",
		"too many requests",
		"rate limit",
		"rate-limit",
		"connection refused",
		"connection reset",
		"no such host",
		"i/o timeout",
		"timeout awaiting",
		"eof",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
	} {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
