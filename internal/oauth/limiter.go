// ABOUTME: Per-address limiter for failed consent passwords
// ABOUTME: Built on golang.org/x/time/rate token buckets keyed by remote host

package oauth

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedAddrs bounds the limiter table. Past it, addresses whose bucket
// has refilled are dropped.
const maxTrackedAddrs = 1024

type failureLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func newFailureLimiter(interval time.Duration, burst int) *failureLimiter {
	return &failureLimiter{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(interval),
		burst:    burst,
	}
}

// blocked reports whether addr has used up its failed attempts.
func (f *failureLimiter) blocked(addr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[addr]
	return ok && l.Tokens() < 1
}

// record spends one attempt for addr.
func (f *failureLimiter) record(addr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[addr]
	if !ok {
		if len(f.limiters) >= maxTrackedAddrs {
			f.prune()
		}
		l = rate.NewLimiter(f.every, f.burst)
		f.limiters[addr] = l
	}
	l.Allow()
}

func (f *failureLimiter) prune() {
	for addr, l := range f.limiters {
		if l.Tokens() >= float64(f.burst) {
			delete(f.limiters, addr)
		}
	}
}

// remoteHost is the request's remote address without the port.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
