package adminauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/adminauth/password"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned for accounts an administrator disabled.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountLocked is returned while a failed-login lock is in force.
	ErrAccountLocked = errors.New("account locked")
	// ErrPasswordExpired is returned by Login and Authenticate once the password
	// expiry has passed.
	ErrPasswordExpired = errors.New("password expired")
	// ErrInvalidToken covers bad signatures, wrong token types and expiry.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrSessionRevoked is returned when the refresh token's session is gone,
	// inactive or expired.
	ErrSessionRevoked = errors.New("session revoked or expired")
	// ErrPermissionDenied is returned by Authorize.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrPasswordPolicy is matched by every *PolicyError.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse rejects a new password equal to the current one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrStoreConflict is returned when optimistic retries are exhausted.
	ErrStoreConflict = errors.New("concurrent account update")
	// ErrAccountExists is returned by CreateAccount for a taken email.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound is returned by administrative operations.
	ErrAccountNotFound = errors.New("account not found")
	// ErrRoleNotFound is returned when a role is unknown or inactive.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRateLimited is matched by every *RateLimitError.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrEngineNotReady is returned by methods on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitError reports a rejected request and when to retry.
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. Maximum %d requests per hour allowed.", e.Limit)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// PolicyError carries the policy evaluation of a rejected password.
type PolicyError struct {
	Result password.Result
}

func (e *PolicyError) Error() string {
	if e.Result.Reason == "" {
		return ErrPasswordPolicy.Error()
	}
	return ErrPasswordPolicy.Error() + ": " + e.Result.Reason
}

func (e *PolicyError) Is(target error) bool {
	return target == ErrPasswordPolicy
}

func policyError(r password.Result) error {
	return &PolicyError{Result: r}
}
