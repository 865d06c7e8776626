package adminauth

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/adminauth/internal/audit"
)

// AuditEvent is one security-relevant outcome.
type AuditEvent = audit.Event

// AuditKind classifies an AuditEvent.
type AuditKind = audit.Kind

// AuditSink persists audit events. Append errors are logged by the engine
// and never returned to callers.
type AuditSink = audit.Sink

const (
	AuditLoginSuccess     = audit.LoginSuccess
	AuditLoginFailure     = audit.LoginFailure
	AuditLogout           = audit.Logout
	AuditPasswordChange   = audit.PasswordChange
	AuditAccountLocked    = audit.AccountLocked
	AuditAccountUnlocked  = audit.AccountUnlocked
	AuditAccountDisabled  = audit.AccountDisabled
	AuditAccountEnabled   = audit.AccountEnabled
	AuditRoleAssigned     = audit.RoleAssigned
	AuditRoleRemoved      = audit.RoleRemoved
	AuditUserCreated      = audit.UserCreated
	AuditPermissionDenied = audit.PermissionDenied
	AuditTokenRefresh     = audit.TokenRefresh
	AuditSessionExpired   = audit.SessionExpired
	AuditRateLimited      = audit.RateLimited
)

type NoOpSink = audit.NoOpSink

type ChannelSink = audit.ChannelSink

type JSONWriterSink = audit.JSONWriterSink

type SlogSink = audit.SlogSink

type MultiSink = audit.MultiSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return audit.NewSlogSink(logger)
}
