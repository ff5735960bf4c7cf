package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/sufal6785/agentbox/internal/metrics"
)

// RateLimiter applies a token-bucket limit per client IP. Container
// executions are expensive, so the execute endpoint gets this in front of
// the slot gate: the limiter sheds abusive clients cheaply, the gate bounds
// the honest remainder.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	perIP   rate.Limit
	burst   int
}

// NewRateLimiter allows rps requests per second with the given burst for
// each client IP.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*rate.Limiter),
		perIP:   rate.Limit(rps),
		burst:   burst,
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.clients[ip]
	if !ok {
		l = rate.NewLimiter(rl.perIP, rl.burst)
		rl.clients[ip] = l
	}
	return l
}

// Handler wraps next with the rate limit. Rejections are 429 with the
// standard error body shape. RemoteAddr is the client key — chi's RealIP
// middleware runs earlier and rewrites it from proxy headers.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiterFor(r.RemoteAddr).Allow() {
			metrics.RateLimitRejections.Inc()
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"rate_limited","message":"too many requests"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
