package adminauth

import (
	"context"

	"github.com/MrEthical07/adminauth/internal/flows"
	"github.com/MrEthical07/adminauth/permission"
)

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type principalContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. Audit events raised
// under ctx carry it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithPrincipal stores the authenticated principal in ctx. Administrative
// operations read it to decide who the actor is.
func WithPrincipal(ctx context.Context, p permission.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (permission.Principal, bool) {
	if ctx == nil {
		return permission.Principal{}, false
	}
	p, ok := ctx.Value(principalContextKey{}).(permission.Principal)
	return p, ok && p.Authenticated()
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func clientFromContext(ctx context.Context) flows.Client {
	return flows.Client{
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
	}
}

func actorFromContext(ctx context.Context) flows.Actor {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return flows.Actor{}
	}
	return flows.Actor{ID: p.ID, Email: p.Email}
}
