// Package ratelimit implements a fixed-window limiter whose counters live in
// shared storage, so every instance of the service enforces the same budget.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tendant/simple-admission/internal/logging"
)

// Store holds per-key counters. Hit must count one request atomically and
// return the post-increment count and the end of the current window.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Policy is a named request budget per window.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Default policies.
var (
	DefaultLoginPolicy   = Policy{Name: "login", Limit: 5, Window: 15 * time.Minute}
	DefaultRefreshPolicy = Policy{Name: "refresh", Limit: 10, Window: time.Hour}
)

// Decision is the outcome of one check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// Degraded is set when the store could not be consulted and the request
	// was let through unevaluated.
	Degraded bool
}

// Limiter enforces one policy.
type Limiter struct {
	store  Store
	policy Policy
	clock  clockwork.Clock
	logger *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the clock used for window arithmetic.
func WithClock(c clockwork.Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithLogger sets the logger used for store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a limiter for policy backed by store.
func New(store Store, policy Policy, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		policy: policy,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the limiter's policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Check counts one request for key and reports whether it fits the budget.
// Store failures never reject: the request is allowed and the decision is
// marked Degraded.
func (l *Limiter) Check(ctx context.Context, key string) Decision {
	now := l.clock.Now()
	storeKey := l.policy.Name + ":" + key

	if _, err := l.store.DeleteExpired(ctx, now); err != nil {
		l.logger.Warn("rate limit purge failed", "policy", l.policy.Name, logging.Err(err))
	}

	count, resetAt, err := l.store.Hit(ctx, storeKey, now, l.policy.Window)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, allowing request",
			"policy", l.policy.Name,
			"key", key,
			logging.Err(err),
		)
		return Decision{
			Allowed:   true,
			Limit:     l.policy.Limit,
			Remaining: l.policy.Limit,
			ResetAt:   now.Add(l.policy.Window),
			Degraded:  true,
		}
	}

	remaining := l.policy.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= l.policy.Limit,
		Limit:     l.policy.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// KeyFunc extracts the caller identity from a request.
type KeyFunc func(r *http.Request) (string, error)

// Rejection describes a request that exceeded its budget.
type Rejection struct {
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, with a minimum of 1.
func (r *Rejection) RetryAfterSeconds() int {
	secs := int((r.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Evaluate checks r under the limiter and returns the decision, plus a
// Rejection when the request must not proceed. A key that cannot be
// extracted lets the request through unevaluated.
func (l *Limiter) Evaluate(r *http.Request, keyFunc KeyFunc) (Decision, *Rejection) {
	key, err := keyFunc(r)
	if err != nil || key == "" {
		l.logger.Warn("rate limit key unavailable, allowing request",
			"policy", l.policy.Name,
			"path", r.URL.Path,
			logging.Err(err),
		)
		return Decision{
			Allowed:   true,
			Limit:     l.policy.Limit,
			Remaining: l.policy.Limit,
			Degraded:  true,
		}, nil
	}

	d := l.Check(r.Context(), key)
	if d.Allowed {
		return d, nil
	}
	return d, &Rejection{
		Limit:      d.Limit,
		Remaining:  0,
		ResetAt:    d.ResetAt,
		RetryAfter: d.ResetAt.Sub(l.clock.Now()),
	}
}
