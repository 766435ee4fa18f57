package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/jonboulle/clockwork"
	"github.com/tendant/simple-admission/internal/config"
	"github.com/tendant/simple-admission/internal/httputil"
	"github.com/tendant/simple-admission/pkg/ratelimit"
)

// RateLimitResponse is the body of a 429 reply.
type RateLimitResponse struct {
	Error      string `json:"error"`
	Limit      int    `json:"limit"`
	Remaining  int    `json:"remaining"`
	RetryAfter int    `json:"retry_after"`
}

// ClientKey returns the function that identifies a caller for rate limiting.
// By default it is the connection address; forwarded headers are only
// honoured when trustProxyHeaders is set.
func ClientKey(trustProxyHeaders bool) ratelimit.KeyFunc {
	if trustProxyHeaders {
		return httprate.KeyByRealIP
	}
	return httprate.KeyByIP
}

// RateLimit enforces limiter per client IP. The counters live in the shared
// store, so the limit holds across instances. A nil keyFunc keys on the
// connection address.
func RateLimit(limiter *ratelimit.Limiter, keyFunc ratelimit.KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = ClientKey(false)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, rejection := limiter.Evaluate(r, keyFunc)
			setRateLimitHeaders(w, decision)

			if rejection != nil {
				retryAfter := rejection.RetryAfterSeconds()
				if logger != nil {
					logger.Warn("rate limit exceeded",
						"policy", limiter.Policy().Name,
						"ip", r.RemoteAddr,
						"path", r.URL.Path,
						"method", r.Method,
						"retry_after", retryAfter,
					)
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httputil.JSON(w, http.StatusTooManyRequests, RateLimitResponse{
					Error:      "rate limit exceeded. please try again later",
					Limit:      rejection.Limit,
					Remaining:  rejection.Remaining,
					RetryAfter: retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
}

// BurstGuard is an in-memory, per-instance IP limiter for unauthenticated
// write endpoints. A nil keyFunc keys on the connection address.
func BurstGuard(requests int, window time.Duration, keyFunc ratelimit.KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = ClientKey(false)
	}
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyFunc(keyFunc)),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if logger != nil {
				logger.Warn("burst limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
					"user_agent", r.UserAgent(),
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// RateLimiters groups the limiter middleware mounted by the router.
type RateLimiters struct {
	Login   func(http.Handler) http.Handler
	Refresh func(http.Handler) http.Handler
	Public  func(http.Handler) http.Handler
}

// CreateRateLimiters creates rate limiting middleware based on configuration.
// clock may be nil.
func CreateRateLimiters(cfg config.RateLimitConfig, store ratelimit.Store, clock clockwork.Clock, logger *slog.Logger) RateLimiters {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return RateLimiters{Login: noOp, Refresh: noOp, Public: noOp}
	}

	opts := []ratelimit.Option{ratelimit.WithLogger(logger)}
	if clock != nil {
		opts = append(opts, ratelimit.WithClock(clock))
	}

	login := ratelimit.New(store, ratelimit.Policy{
		Name:   "login",
		Limit:  cfg.LoginRequests,
		Window: cfg.LoginWindow,
	}, opts...)
	refresh := ratelimit.New(store, ratelimit.Policy{
		Name:   "refresh",
		Limit:  cfg.RefreshRequests,
		Window: cfg.RefreshWindow,
	}, opts...)

	key := ClientKey(cfg.TrustProxyHeaders)
	public := NoRateLimit()
	if cfg.PublicRequestsPerMinute > 0 {
		public = BurstGuard(cfg.PublicRequestsPerMinute, time.Minute, key, logger)
	}

	return RateLimiters{
		Login:   RateLimit(login, key, logger),
		Refresh: RateLimit(refresh, key, logger),
		Public:  public,
	}
}
