package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/permission"
)

// retryAfterSeconds is the fixed Retry-After sent with every 429.
const retryAfterSeconds = "3600"

// DefaultAuthPaths are the endpoints charged against the auth budget.
var DefaultAuthPaths = []string{"/api/v1/auth/login", "/api/v1/auth/refresh"}

// DefaultPublicPrefix marks guest traffic regardless of credentials.
const DefaultPublicPrefix = "/public/"

// Gate is the front middleware: it resolves the caller, charges the request
// to the matching rate budget and stores the principal in the request
// context for the Require* guards.
type Gate struct {
	Engine *adminauth.Engine
	// AuthPaths are path prefixes charged to the auth budget. Nil selects
	// DefaultAuthPaths.
	AuthPaths []string
	// PublicPrefix selects the guest budget. Empty selects DefaultPublicPrefix.
	PublicPrefix string
	Logger       *slog.Logger
}

// NewGate returns a Gate with the default path rules.
func NewGate(engine *adminauth.Engine) *Gate {
	return &Gate{Engine: engine}
}

func (g *Gate) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// Handler wraps next with caller resolution and rate limiting. A missing or
// invalid bearer token is not rejected here; the request continues as a
// guest and RequireAuth decides.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Engine == nil {
			WriteError(w, http.StatusServiceUnavailable, "Service unavailable")
			return
		}

		ip := ClientIP(r)
		ctx := adminauth.WithClientIP(r.Context(), ip)
		ctx = adminauth.WithUserAgent(ctx, r.UserAgent())

		key := "ip:" + ip
		p, ok := g.authenticate(ctx, r)
		if ok {
			key = "user:" + p.ID
			ctx = adminauth.WithPrincipal(ctx, p)
		}

		class := g.classify(r.URL.Path, ok)
		d, err := g.Engine.AllowRequest(ctx, key, class)
		if err != nil {
			var rl *adminauth.RateLimitError
			if errors.As(err, &rl) {
				g.logger().Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("class", class.String()),
					slog.Int("limit", rl.Limit),
				)
				writeRateLimited(w, rl)
				return
			}
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gate) authenticate(ctx context.Context, r *http.Request) (permission.Principal, bool) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return permission.Principal{}, false
	}
	p, err := g.Engine.Authenticate(ctx, token)
	if err != nil {
		return permission.Principal{}, false
	}
	return p, true
}

func (g *Gate) classify(path string, authenticated bool) adminauth.TrafficClass {
	authPaths := g.AuthPaths
	if authPaths == nil {
		authPaths = DefaultAuthPaths
	}
	for _, prefix := range authPaths {
		if strings.HasPrefix(path, prefix) {
			return adminauth.TrafficAuthEndpoint
		}
	}
	public := g.PublicPrefix
	if public == "" {
		public = DefaultPublicPrefix
	}
	if strings.HasPrefix(path, public) {
		return adminauth.TrafficGuest
	}
	if authenticated {
		return adminauth.TrafficAuthenticated
	}
	return adminauth.TrafficGuest
}

func writeRateLimited(w http.ResponseWriter, rl *adminauth.RateLimitError) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("Retry-After", retryAfterSeconds)
	WriteError(w, http.StatusTooManyRequests, rl.Error())
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
