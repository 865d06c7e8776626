package account

import "time"

// State is the lifecycle state of an account at a given instant.
type State int

const (
	// StateActive accepts logins.
	StateActive State = iota
	// StateLocked rejects logins until the lock expires or an admin unlocks it.
	StateLocked
	// StateDisabled rejects logins regardless of lock state.
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateLocked:
		return "locked"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// LockoutPolicy controls the failed-attempt transition.
type LockoutPolicy struct {
	MaxFailedAttempts int
	Duration          time.Duration
}

// DefaultLockoutPolicy locks for 30 minutes after 5 failures.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxFailedAttempts: 5,
		Duration:          30 * time.Minute,
	}
}

// StateOf reports the effective state without mutating the account. A lock
// whose expiry has passed reports StateActive; CheckUnlock applies the
// corresponding transition.
func StateOf(a Account, now time.Time) State {
	if !a.Enabled {
		return StateDisabled
	}
	if a.Locked {
		if a.LockedUntil == nil || now.Before(*a.LockedUntil) {
			return StateLocked
		}
	}
	return StateActive
}

// CheckUnlock clears an elapsed lock. unlocked is true only when the
// transition was applied.
func CheckUnlock(a Account, now time.Time) (Account, bool) {
	if !a.Locked || a.LockedUntil == nil || now.Before(*a.LockedUntil) {
		return a, false
	}
	next := a.Clone()
	next.Locked = false
	next.LockedUntil = nil
	next.FailedAttempts = 0
	next.UpdatedAt = now
	return next, true
}

// RecordFailure advances the failed-attempt counter and locks the account
// when the threshold is reached. locked is true only for the attempt that
// caused the lock.
func RecordFailure(a Account, now time.Time, policy LockoutPolicy) (Account, bool) {
	if policy.MaxFailedAttempts <= 0 {
		policy = DefaultLockoutPolicy()
	}
	next := a.Clone()
	next.FailedAttempts++
	next.UpdatedAt = now
	if next.FailedAttempts >= policy.MaxFailedAttempts && !a.Locked {
		until := now.Add(policy.Duration)
		next.Locked = true
		next.LockedUntil = &until
		return next, true
	}
	return next, false
}

// RecordSuccess resets the failure counter, clears any lock and stamps the
// last login.
func RecordSuccess(a Account, now time.Time) Account {
	next := a.Clone()
	next.FailedAttempts = 0
	next.Locked = false
	next.LockedUntil = nil
	last := now
	next.LastLoginAt = &last
	next.UpdatedAt = now
	return next
}

// Disable moves the account to StateDisabled.
func Disable(a Account, now time.Time, by string) Account {
	next := a.Clone()
	next.Enabled = false
	next.UpdatedBy = by
	next.UpdatedAt = now
	return next
}

// Enable re-admits a disabled account. Lock state is left untouched.
func Enable(a Account, now time.Time, by string) Account {
	next := a.Clone()
	next.Enabled = true
	next.UpdatedBy = by
	next.UpdatedAt = now
	return next
}

// Unlock is the administrative unlock. wasLocked reports whether a lock was cleared.
func Unlock(a Account, now time.Time, by string) (Account, bool) {
	next := a.Clone()
	wasLocked := next.Locked
	next.Locked = false
	next.LockedUntil = nil
	next.FailedAttempts = 0
	next.UpdatedBy = by
	next.UpdatedAt = now
	return next, wasLocked
}

// PasswordChanged installs a new hash and expiry, clearing any lock.
func PasswordChanged(a Account, hash string, expiresAt time.Time, now time.Time, by string) Account {
	next := a.Clone()
	next.PasswordHash = hash
	exp := expiresAt
	next.PasswordExpiresAt = &exp
	next.Locked = false
	next.LockedUntil = nil
	next.FailedAttempts = 0
	next.UpdatedBy = by
	next.UpdatedAt = now
	return next
}

// PasswordExpired reports whether the password expiry has passed.
func PasswordExpired(a Account, now time.Time) bool {
	return a.PasswordExpiresAt != nil && now.After(*a.PasswordExpiresAt)
}
