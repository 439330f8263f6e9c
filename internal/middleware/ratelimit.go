package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tenant-auth-core/internal/metrics"
)

const (
	defaultGeneralRPM = 100
	defaultAuthRPM    = 10

	// limiterIdleTTL is how long an address's limiters survive without traffic
	// once the table holds more than limiterSweepSize entries.
	limiterIdleTTL   = 10 * time.Minute
	limiterSweepSize = 1000
)

type budget struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a per-address token bucket. Credential and
// action token endpoints draw from a separate, smaller bucket so password
// guessing and token enumeration are throttled independently of normal use.
type RateLimitMiddleware struct {
	generalRPM int
	authRPM    int

	mu      sync.Mutex
	budgets map[string]*budget
	now     func() time.Time
}

func NewRateLimitMiddleware(generalRPM int, authRPM int) *RateLimitMiddleware {
	if generalRPM <= 0 {
		generalRPM = defaultGeneralRPM
	}
	if authRPM <= 0 {
		authRPM = defaultAuthRPM
	}

	return &RateLimitMiddleware{
		generalRPM: generalRPM,
		authRPM:    authRPM,
		budgets:    map[string]*budget{},
		now:        time.Now,
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := m.budgetFor(extractClientIP(r))

		limiter, limitType := b.general, "general"
		if isCredentialPath(r.URL.Path) {
			limiter, limitType = b.auth, "auth"
		}

		if wait, ok := reserve(limiter, m.now()); !ok {
			metrics.RateLimited.WithLabelValues(limitType).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// reserve takes a token when one is available now. Otherwise it reports how
// long the caller would have to wait, without consuming anything.
func reserve(limiter *rate.Limiter, now time.Time) (time.Duration, bool) {
	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return time.Minute, false
	}
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return delay, false
	}
	return 0, true
}

// isCredentialPath reports whether path accepts credentials or action
// tokens, which get the stricter per-address budget.
func isCredentialPath(path string) bool {
	path = strings.ToLower(path)
	return strings.HasPrefix(path, "/api/v1/auth") || strings.HasPrefix(path, "/api/v1/ratings")
}

func (m *RateLimitMiddleware) budgetFor(addr string) *budget {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.budgets[addr]
	if !ok {
		b = &budget{
			general: rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.generalRPM)), m.generalRPM),
			auth:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.authRPM)), m.authRPM),
		}
		m.budgets[addr] = b
	}
	b.lastSeen = now

	if len(m.budgets) > limiterSweepSize {
		cutoff := now.Add(-limiterIdleTTL)
		for key, candidate := range m.budgets {
			if candidate.lastSeen.Before(cutoff) {
				delete(m.budgets, key)
			}
		}
	}

	return b
}

// extractClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the socket address. The service is expected to run behind a proxy that
// overwrites these headers.
func extractClientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	if remote == "" {
		return "unknown"
	}
	return remote
}
