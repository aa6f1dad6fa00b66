package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	reqPerMin int
	burst     int
	ttl       time.Duration
	every     time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewIPRateLimiter allows reqPerMin requests per minute per IP with the given
// burst. Idle IPs are forgotten after ten minutes, checked once a minute.
func NewIPRateLimiter(reqPerMin, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors:  make(map[string]*visitor),
		reqPerMin: reqPerMin,
		burst:     burst,
		ttl:       10 * time.Minute,
		every:     time.Minute,
		now:       time.Now,
	}
}

// Allow reports whether ip may make another request now
func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.every {
		rl.sweep(now)
		rl.lastSweep = now
	}

	v, ok := rl.visitors[ip]
	if !ok {
		rps := float64(rl.reqPerMin) / 60.0
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rps), rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops idle visitors; callers hold mu
func (rl *IPRateLimiter) sweep(now time.Time) {
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.ttl {
			delete(rl.visitors, ip)
		}
	}
}

// Middleware rejects requests over the limit with 429
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			http.Error(w, "Too many attempts, please try again in a few minutes.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
