package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/courserate-sg/server/internal/api/problem"
	"github.com/courserate-sg/server/internal/config"
	"golang.org/x/time/rate"
)

type RateLimitTier string

const (
	TierPublic        RateLimitTier = "public"
	TierAuthenticated RateLimitTier = "authenticated"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTTL         = 15 * time.Minute
)

type rateLimitKey string

const rateLimitTierKey rateLimitKey = "rateLimitTier"

func WithRateLimitTier(ctx context.Context, tier RateLimitTier) context.Context {
	return context.WithValue(ctx, rateLimitTierKey, tier)
}

// UserRateLimitTier moves requests that carry an authenticated user onto TierAuthenticated.
// It runs after OptionalUser on public routes.
func UserRateLimitTier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); ok {
			r = r.WithContext(WithRateLimitTier(r.Context(), TierAuthenticated))
		}
		next.ServeHTTP(w, r)
	})
}

// WithRateLimitTierHandler marks every request through next with tier. Authenticated
// write routes use TierAuthenticated; everything else defaults to TierPublic.
func WithRateLimitTierHandler(tier RateLimitTier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithRateLimitTier(r.Context(), tier)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimiter keeps one token bucket per (tier, client IP) and evicts idle buckets in the
// background until Stop is called.
type RateLimiter struct {
	trustedProxies []*net.IPNet
	perMinute      map[RateLimitTier]int
	burst          int
	now            func() time.Time

	mu       sync.Mutex
	limiters map[string]*limiterEntry

	stopOnce    sync.Once
	stopCleanup chan struct{}
	done        chan struct{}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		trustedProxies: parseCIDRs(cfg.TrustedProxyCIDRs),
		perMinute: map[RateLimitTier]int{
			TierPublic:        cfg.PublicPerMinute,
			TierAuthenticated: cfg.AuthenticatedPerMinute,
		},
		burst:       cfg.Burst,
		now:         time.Now,
		limiters:    make(map[string]*limiterEntry),
		stopCleanup: make(chan struct{}),
		done:        make(chan struct{}),
	}

	go rl.cleanupLoop(limiterCleanupInterval)

	return rl
}

// Middleware rejects requests over their tier's budget with 429 and a Retry-After header.
// Health checks and the metrics endpoint are never limited.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isExemptPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		tier := TierPublic
		if value, ok := r.Context().Value(rateLimitTierKey).(RateLimitTier); ok {
			tier = value
		}

		limiter := rl.limiter(tier, rl.clientKey(r))
		if limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		if !limiter.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds(tier)))
			problem.Status(w, r, http.StatusTooManyRequests, "Rate limit exceeded, try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Stop shuts down the cleanup goroutine and waits for it to exit.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
	<-rl.done
}

func (rl *RateLimiter) limiter(tier RateLimitTier, key string) *rate.Limiter {
	limit := rl.perMinute[tier]
	if limit <= 0 {
		return nil
	}

	lookup := string(tier) + ":" + key

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if entry, ok := rl.limiters[lookup]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	burst := rl.burst
	if burst <= 0 {
		burst = limit
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(limit)), burst)
	rl.limiters[lookup] = &limiterEntry{limiter: limiter, lastSeen: now}
	return limiter
}

func (rl *RateLimiter) retryAfterSeconds(tier RateLimitTier) int {
	limit := rl.perMinute[tier]
	if limit <= 0 {
		return 60
	}
	seconds := 60 / limit
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer close(rl.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup removes limiter entries that haven't been used within limiterIdleTTL.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// clientKey returns the client IP. X-Forwarded-For and X-Real-IP are only honoured when the
// connection comes from a trusted proxy. X-Forwarded-For is read right to left and the first
// hop outside the trusted ranges wins; entries left of it are client-controlled.
func (rl *RateLimiter) clientKey(r *http.Request) string {
	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	if rl.isTrustedProxy(remoteIP) {
		if ip := rl.forwardedClient(r.Header.Values("X-Forwarded-For")); ip != "" {
			return ip
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	return remoteIP
}

func (rl *RateLimiter) forwardedClient(headers []string) string {
	var hops []string
	for _, header := range headers {
		for _, hop := range strings.Split(header, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !rl.isTrustedProxy(hops[i]) {
			return hops[i]
		}
	}
	// Every hop is a trusted proxy; the leftmost is the closest to the client.
	if len(hops) > 0 {
		return hops[0]
	}
	return ""
}

func (rl *RateLimiter) isTrustedProxy(ip string) bool {
	if len(rl.trustedProxies) == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, cidr := range rl.trustedProxies {
		if cidr.Contains(parsed) {
			return true
		}
	}
	return false
}

func parseCIDRs(values []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(values))
	for _, value := range values {
		_, cidr, err := net.ParseCIDR(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		nets = append(nets, cidr)
	}
	return nets
}

func isExemptPath(path string) bool {
	switch path {
	case "/health", "/health/detailed", "/metrics", "/version":
		return true
	}
	return false
}
