package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	clientIdleTTL = 10 * time.Minute
	maxClients    = 10000
)

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client address. Buckets idle
// for longer than idleTTL are swept, and the table never holds more than
// maxClients entries.
type clientLimiter struct {
	limit      rate.Limit
	burst      int
	idleTTL    time.Duration
	maxClients int
	now        func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientEntry
	lastSweep time.Time
}

// newClientLimiter returns a limiter allowing perSecond requests with the
// given burst per client. A non-positive rate disables limiting.
func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		limit:      rate.Limit(perSecond),
		burst:      burst,
		idleTTL:    clientIdleTTL,
		maxClients: maxClients,
		now:        time.Now,
		clients:    make(map[string]*clientEntry),
	}
}

func (c *clientLimiter) get(client string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= c.idleTTL {
		c.sweep(now)
	}

	e, ok := c.clients[client]
	if !ok {
		if len(c.clients) >= c.maxClients {
			c.sweep(now)
			if len(c.clients) >= c.maxClients {
				c.evictOldest()
			}
		}
		e = &clientEntry{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[client] = e
	}
	e.lastSeen = now
	return e.limiter
}

// sweep drops buckets not seen within idleTTL. Caller holds mu.
func (c *clientLimiter) sweep(now time.Time) {
	for k, e := range c.clients {
		if now.Sub(e.lastSeen) >= c.idleTTL {
			delete(c.clients, k)
		}
	}
	c.lastSweep = now
}

// evictOldest drops the least recently seen bucket. Caller holds mu.
func (c *clientLimiter) evictOldest() {
	var oldest string
	var oldestSeen time.Time
	for k, e := range c.clients {
		if oldest == "" || e.lastSeen.Before(oldestSeen) {
			oldest, oldestSeen = k, e.lastSeen
		}
	}
	delete(c.clients, oldest)
}

func (c *clientLimiter) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

func (c *clientLimiter) allow(client string) bool {
	if c.limit <= 0 {
		return true
	}
	return c.get(client).Allow()
}

func (c *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the host part of RemoteAddr. Forwarded headers only reach it
// when the server is configured to trust a proxy.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
