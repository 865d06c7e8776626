package adminauth

import (
	"context"
	"time"

	"github.com/MrEthical07/adminauth/internal/rate"
)

// TrafficClass selects which request budget applies.
type TrafficClass int

const (
	TrafficGuest TrafficClass = iota
	TrafficAuthenticated
	TrafficAuthEndpoint
)

func (c TrafficClass) String() string {
	switch c {
	case TrafficGuest:
		return "guest"
	case TrafficAuthenticated:
		return "authenticated"
	case TrafficAuthEndpoint:
		return "auth"
	default:
		return "unknown"
	}
}

// RateDecision is the outcome of one AllowRequest call.
type RateDecision = rate.Decision

// RateLimitEnabled reports whether AllowRequest enforces anything.
func (e *Engine) RateLimitEnabled() bool {
	return e != nil && e.limiter != nil && e.config.RateLimit.Enabled
}

// LimitFor returns the configured budget per window for class.
func (e *Engine) LimitFor(class TrafficClass) int {
	if e == nil {
		return 0
	}
	switch class {
	case TrafficAuthenticated:
		return e.config.RateLimit.Authenticated
	case TrafficAuthEndpoint:
		return e.config.RateLimit.AuthEndpoints
	default:
		return e.config.RateLimit.Guest
	}
}

// AllowRequest charges one request to key under class. A rejection returns
// a *RateLimitError and is audited. When the limiter backend fails the
// request is let through and the failure is logged.
func (e *Engine) AllowRequest(ctx context.Context, key string, class TrafficClass) (RateDecision, error) {
	limit := e.LimitFor(class)
	if !e.RateLimitEnabled() {
		return RateDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	d, err := e.limiter.Allow(ctx, key, limit)
	if err != nil {
		e.logger.Warn("adminauth: rate limiter unavailable, allowing request", "key", key, "error", err)
		return RateDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if d.Allowed {
		return d, nil
	}

	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, AuditRateLimited, "", "", false, "Rate limit exceeded for "+key+" ("+class.String()+")")
	retry := d.RetryAfter
	if retry <= 0 {
		retry = time.Hour
	}
	return d, &RateLimitError{Limit: d.Limit, RetryAfter: retry}
}
