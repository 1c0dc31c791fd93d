package ratelimit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/helsa/authfront/internal/log"
)

// Window is the fixed counting window.
const Window = time.Minute

// Store counts requests per key. Increment must be atomic across concurrent
// callers sharing a key; the backing store provides that guarantee.
type Store interface {
	// Incr bumps the counter for key, starting a new window with the given
	// TTL when the key is fresh. It returns the count after the increment
	// and the time the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, reset time.Time, err error)
}

// Result reports a single rate-limit decision. Limit and Remaining are -1
// when the limiter is not enforcing, so callers can tell "not enforced"
// from "enforced and under limit".
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Enforced reports whether the decision came from a live counter store.
func (r Result) Enforced() bool {
	return r.Limit >= 0
}

// Limiter is a fixed-window request throttle keyed by identifier and
// endpoint name. A nil store makes it inert: every request is allowed.
// Failing open when the counter store is down is deliberate; login
// availability wins over strict throttling.
type Limiter struct {
	store Store
}

// New creates a limiter over the given store. store may be nil.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

var notEnforced = Result{Allowed: true, Limit: -1, Remaining: -1}

// Check counts this request against the `{endpoint}:{identifier}` key and
// reports whether it stays within limit. Store errors are logged and
// converted to an allow, never surfaced to the caller.
func (l *Limiter) Check(ctx context.Context, identifier, endpoint string, limit int) Result {
	if l == nil || l.store == nil {
		return notEnforced
	}

	key := endpoint + ":" + identifier
	count, reset, err := l.store.Incr(ctx, key, Window)
	if err != nil {
		log.LogWarnWithFields("ratelimit", "Counter store unavailable, failing open", map[string]any{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		return notEnforced
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		Reset:     reset,
	}
}

// ClientIP extracts the best-effort client IP: first hop of X-Forwarded-For,
// then X-Real-IP, else "unknown". Trusting these headers assumes a reverse
// proxy that overwrites them; that is a deployment precondition, not
// something re-derived here.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return "unknown"
}
