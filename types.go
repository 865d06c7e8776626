package adminauth

import (
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/session"
)

// TokenTypeBearer is the token_type reported alongside issued tokens.
const TokenTypeBearer = "Bearer"

// AccountInfo is the read-only view of an account returned by the engine.
// It never carries the password hash.
type AccountInfo struct {
	ID                string
	Email             string
	FirstName         string
	LastName          string
	FullName          string
	Enabled           bool
	Locked            bool
	LockedUntil       *time.Time
	FailedAttempts    int
	LastLoginAt       *time.Time
	PasswordExpiresAt *time.Time
	Roles             []string
	Permissions       []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func newAccountInfo(a account.Account) AccountInfo {
	return AccountInfo{
		ID:                a.ID,
		Email:             a.Email,
		FirstName:         a.FirstName,
		LastName:          a.LastName,
		FullName:          a.FullName(),
		Enabled:           a.Enabled,
		Locked:            a.Locked,
		LockedUntil:       a.LockedUntil,
		FailedAttempts:    a.FailedAttempts,
		LastLoginAt:       a.LastLoginAt,
		PasswordExpiresAt: a.PasswordExpiresAt,
		Roles:             a.RoleNames(),
		Permissions:       a.PermissionNames(),
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// LoginResult is returned by Engine.Login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
	Session      session.Session
	Account      AccountInfo
}

// RefreshResult is returned by Engine.Refresh. RefreshToken is the token
// that was presented; sessions are not rotated.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
}

// CreateAccountRequest is the input of Engine.CreateAccount. With no Roles
// the configured default role is assigned.
type CreateAccountRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Roles     []string
}

// SeedConfig controls Engine.Seed.
type SeedConfig struct {
	AdminEmail     string
	AdminPassword  string
	AdminFirstName string
	AdminLastName  string
}

// SeedResult reports what Seed installed. GeneratedPassword is set only when
// the admin account was created with a generated password.
type SeedResult struct {
	Roles             int
	AdminCreated      bool
	AdminID           string
	GeneratedPassword string
}

// HealthStatus is returned by Engine.Health.
type HealthStatus struct {
	SessionStoreOK bool
	RedisLatency   time.Duration
	AuditDropped   uint64
	AuditFailed    uint64
}
