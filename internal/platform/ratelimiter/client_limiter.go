// Package ratelimiter throttles RPC callers with one token bucket per
// client. Clients are keyed by the credential they present, falling back to
// their remote host, so unauthenticated bursts cannot drain an
// authenticated caller's bucket.
package ratelimiter

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"prism/go-router/internal/platform/metrics"
)

// Client identifies one rate-limited caller.
type Client struct {
	class string
	value string
}

// TokenClient keys the bucket by the RPC token the caller presented.
func TokenClient(token string) Client {
	return Client{class: "token", value: strings.TrimSpace(token)}
}

// AddrClient keys the bucket by the caller's remote host.
func AddrClient(host string) Client {
	return Client{class: "addr", value: strings.TrimSpace(host)}
}

func (c Client) key() string { return c.class + ":" + c.value }

// Idle buckets are swept on every sweepInterval-th Allow call.
const sweepInterval = 512

// ClientLimiter applies a token bucket per client and evicts buckets that
// have been idle longer than idleTTL.
type ClientLimiter struct {
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	mu       sync.Mutex
	byClient map[string]*bucket
	hits     uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a per-client limiter; returns nil if args are invalid.
func New(rps float64, burst int, idleTTL time.Duration) *ClientLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &ClientLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  idleTTL,
		byClient: make(map[string]*bucket),
	}
}

// Allow reports whether one token can be consumed for the client at now,
// and records the decision under the client's class.
func (l *ClientLimiter) Allow(c Client, now time.Time) bool {
	if l == nil || c.value == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := c.key()
	b, ok := l.byClient[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byClient[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%sweepInterval == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byClient {
			if v.lastSeen.Before(cutoff) {
				delete(l.byClient, k)
			}
		}
	}

	metrics.RecordRateLimit(c.class, allowed)
	return allowed
}
