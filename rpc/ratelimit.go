package rpc

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const visitorTTL = 5 * time.Minute

// RateLimit bounds JSON-RPC calls per client address. A zero
// RequestsPerMinute disables limiting. Clients are keyed by the connection's
// remote address; TrustProxyHeaders keys them by X-Real-IP or
// X-Forwarded-For instead and must only be set behind a proxy that
// overwrites those headers.
type RateLimit struct {
	RequestsPerMinute float64
	Burst             int
	TrustProxyHeaders bool
}

type rateLimiter struct {
	limit        rate.Limit
	burst        int
	trustHeaders bool
	mu           sync.Mutex
	visitors map[string]*rate.Limiter
}

func newRateLimiter(cfg RateLimit) *rateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		limit:        rate.Limit(cfg.RequestsPerMinute / 60.0),
		burst:        burst,
		trustHeaders: cfg.TrustProxyHeaders,
		visitors:     make(map[string]*rate.Limiter),
	}
}

func (l *rateLimiter) obtain(id string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.visitors[id]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	l.visitors[id] = limiter
	time.AfterFunc(visitorTTL, func() {
		l.mu.Lock()
		delete(l.visitors, id)
		l.mu.Unlock()
	})
	return limiter
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.obtain(clientID(r, l.trustHeaders)).Allow() {
			writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientID(r *http.Request, trustHeaders bool) string {
	if trustHeaders {
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first := strings.TrimSpace(strings.Split(fwd, ",")[0])
			if ip := net.ParseIP(first); ip != nil {
				return ip.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
