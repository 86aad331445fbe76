package web

import (
	"net"
	"net/http"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/cardfile/cardfile/internal/config"
)

// rateLimiter enforces a per-client token bucket. Limiters live in a
// TTL cache so idle clients age out instead of growing the map
// forever; the TTL resets on every request a client makes.
type rateLimiter struct {
	clients *gocache.Cache
	rps     rate.Limit
	burst   int
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	return &rateLimiter{
		clients: gocache.New(cfg.ClientTTL, 2*cfg.ClientTTL),
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
	}
}

// limiterFor returns the client's limiter, creating one on first
// sight. Two requests racing on a new client may both build a
// limiter; Add makes one of them win and both use the winner.
func (rl *rateLimiter) limiterFor(key string) *rate.Limiter {
	if v, ok := rl.clients.Get(key); ok {
		limiter := v.(*rate.Limiter)
		rl.clients.SetDefault(key, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(rl.rps, rl.burst)
	if err := rl.clients.Add(key, limiter, gocache.DefaultExpiration); err != nil {
		if v, ok := rl.clients.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// middleware rejects requests over the per-client budget with 429.
// The client key is the IP left in RemoteAddr by TrustedRealIP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r.RemoteAddr)

		if !rl.limiterFor(key).Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey strips the port so one client is not many buckets.
func clientKey(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
