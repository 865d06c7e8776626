package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/password"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login   LoginDeps
	Refresh RefreshDeps
	Logout  LogoutDeps
	Account AccountDeps
}

// Client identifies the caller's network origin for audit records.
type Client struct {
	IP        string
	UserAgent string
}

// Hooks are the side channels every flow reports through. Nil fields are
// replaced with no-ops.
type Hooks struct {
	Now       func() time.Time
	EmitAudit func(context.Context, audit.Event)
	MetricInc func(int)
	Warn      func(string, ...any)
}

func (h Hooks) withDefaults() Hooks {
	if h.Now == nil {
		h.Now = time.Now
	}
	if h.EmitAudit == nil {
		h.EmitAudit = func(context.Context, audit.Event) {}
	}
	if h.MetricInc == nil {
		h.MetricInc = func(int) {}
	}
	if h.Warn == nil {
		h.Warn = func(string, ...any) {}
	}
	return h
}

func (h Hooks) audit(ctx context.Context, kind audit.Kind, accountID, email string, c Client, success bool, detail string) {
	h.EmitAudit(ctx, audit.Event{
		Kind:      kind,
		AccountID: accountID,
		Email:     email,
		IP:        c.IP,
		UserAgent: c.UserAgent,
		Success:   success,
		Detail:    detail,
		Timestamp: h.Now(),
	})
}

// Metrics carries the metric IDs flows increment.
type Metrics struct {
	LoginSuccess          int
	LoginFailure          int
	AccountLocked         int
	RefreshSuccess        int
	RefreshFailure        int
	SessionCreated        int
	SessionInvalidated    int
	Logout                int
	LogoutAll             int
	AccountCreated        int
	AccountDuplicate      int
	PasswordChangeSuccess int
	PasswordChangeInvalid int
	PasswordReuseRejected int
	AccountDisabled       int
	AccountUnlocked       int
	HashUpgraded          int
}

// Errors carries host-level sentinel errors so flows never import the root
// package.
type Errors struct {
	InvalidCredentials error
	AccountDisabled    error
	AccountLocked      error
	PasswordExpired    error
	InvalidToken       error
	SessionRevoked     error
	StoreConflict      error
	AccountExists      error
	AccountNotFound    error
	RoleNotFound       error
	PasswordReuse      error
	// PasswordPolicy builds the typed error for a rejected password.
	PasswordPolicy func(password.Result) error
}
