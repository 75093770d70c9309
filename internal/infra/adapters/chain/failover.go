package chain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"social-boost-platform/internal/domain"
	"social-boost-platform/internal/infra/metrics"
)

type dialFunc func(ctx context.Context, rawurl string) (*ethclient.Client, error)

// rpcPool is an ordered list of RPC endpoints with rotate-on-failure. A call
// runs against the current endpoint; timeouts, rate limits and 5xx responses
// rotate to the next endpoint and retry with linear backoff (rate limits skip
// the backoff). Safe for concurrent use.
type rpcPool struct {
	endpoints   []string
	maxAttempts int
	backoff     time.Duration
	dial        dialFunc

	mu      sync.Mutex
	cur     int
	clients map[int]*ethclient.Client
}

func newRPCPool(endpoints []string, maxRetries int, backoff time.Duration) *rpcPool {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &rpcPool{
		endpoints:   endpoints,
		maxAttempts: maxRetries * len(endpoints),
		backoff:     backoff,
		dial:        ethclient.DialContext,
		clients:     make(map[int]*ethclient.Client),
	}
}

// current returns the live client for the current endpoint, dialing lazily.
func (p *rpcPool) current(ctx context.Context) (*ethclient.Client, int, error) {
	p.mu.Lock()
	idx := p.cur
	if c, ok := p.clients[idx]; ok {
		p.mu.Unlock()
		return c, idx, nil
	}
	url := p.endpoints[idx]
	p.mu.Unlock()

	c, err := p.dial(ctx, url)
	if err != nil {
		return nil, idx, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.clients[idx]; ok {
		c.Close()
		return existing, idx, nil
	}
	p.clients[idx] = c
	return c, idx, nil
}

// rotate advances past the endpoint that failed. A concurrent caller may have
// rotated already; only move when we are still pointed at the failed one.
func (p *rpcPool) rotate(from int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur != from {
		return
	}
	if c, ok := p.clients[from]; ok {
		c.Close()
		delete(p.clients, from)
	}
	p.cur = (from + 1) % len(p.endpoints)
	metrics.RPCRotation()
}

// do runs fn with failover. Non-retryable errors (reverts, bad arguments)
// return immediately; retryable ones rotate until the attempt budget is
// spent, then surface ErrChainUnavailable.
func (p *rpcPool) do(ctx context.Context, fn func(ctx context.Context, ec *ethclient.Client) error) error {
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		ec, idx, err := p.current(ctx)
		if err == nil {
			err = fn(ctx, ec)
			if err == nil {
				return nil
			}
			if !retryable(err) {
				return err
			}
		}
		lastErr = err
		p.rotate(idx)
		if rateLimited(err) {
			continue // rotate without backoff
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * p.backoff):
		}
	}
	metrics.RPCExhausted()
	return fmt.Errorf("%w: %d attempts, last: %v", domain.ErrChainUnavailable, p.maxAttempts, lastErr)
}

func rateLimited(err error) bool {
	if err == nil {
		return false
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if rateLimited(err) {
		return true
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "eof")
}
