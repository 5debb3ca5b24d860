package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the per-client limiter table
const maxTrackedClients = 65536

// RateLimiter is a token bucket per client address. Each client may spend
// limit requests at once; the bucket refills over window.
type RateLimiter struct {
	mu      sync.Mutex
	clients *expirable.LRU[string, *rate.Limiter]
	every   rate.Limit
	burst   int
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &RateLimiter{
		// a bucket left alone for a full window is full again, so it can go
		clients: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, window),
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
	}
}

// Allow spends one token from ip's bucket.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	limiter, ok := rl.clients.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(rl.every, rl.burst)
		rl.clients.Add(ip, limiter)
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

// RateLimitAuth limits credential endpoints per client. Forwarded headers
// are only honoured when trustProxy is set.
func RateLimitAuth(limit int, window time.Duration, trustProxy bool) func(http.HandlerFunc) http.HandlerFunc {
	limiter := NewRateLimiter(limit, window)

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)

			if !limiter.Allow(ip) {
				slog.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
				)
				writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next(w, r)
		}
	}
}

// clientIP returns the peer address. Behind a trusted proxy it prefers
// X-Real-IP, then the last X-Forwarded-For hop (the one the proxy added).
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			if hop := strings.TrimSpace(hops[len(hops)-1]); hop != "" {
				return hop
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
