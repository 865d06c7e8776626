package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/session"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Account      account.Account
	Session      session.Session
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Accounts    account.Store
	Sessions    session.Store
	Lockout     account.LockoutPolicy
	SaveRetries int
	RefreshTTL  time.Duration

	PasswordUpgradeOnLogin bool
	VerifyPassword         func(plain, hash string) (bool, error)
	PasswordNeedsUpgrade   func(hash string) (bool, error)
	HashPassword           func(string) (string, error)
	IssueTokens            func(account.Account) (access, refresh string, err error)

	Hooks   Hooks
	Metrics Metrics
	Errors  Errors
}

// RunLogin authenticates email/password. Unknown email and wrong password
// both surface as Errors.InvalidCredentials; disabled, locked and expired
// accounts get their own errors.
func RunLogin(ctx context.Context, email, plain string, client Client, deps LoginDeps) (*LoginResult, error) {
	h := deps.Hooks.withDefaults()
	email = account.NormalizeEmail(email)

	acc, err := deps.Accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			h.MetricInc(deps.Metrics.LoginFailure)
			h.audit(ctx, audit.LoginFailure, "", email, client, false, "User not found: "+email)
			return nil, deps.Errors.InvalidCredentials
		}
		return nil, err
	}

	if !acc.Enabled {
		h.MetricInc(deps.Metrics.LoginFailure)
		h.audit(ctx, audit.LoginFailure, acc.ID, acc.Email, client, false, "Account disabled")
		return nil, deps.Errors.AccountDisabled
	}

	if _, unlocked := account.CheckUnlock(acc, h.Now()); unlocked {
		acc, err = account.Mutate(ctx, deps.Accounts, acc.ID, deps.SaveRetries, func(a account.Account) (account.Account, error) {
			next, _ := account.CheckUnlock(a, h.Now())
			return next, nil
		})
		if err != nil {
			return nil, storeError(err, deps.Errors)
		}
		h.MetricInc(deps.Metrics.AccountUnlocked)
		h.audit(ctx, audit.AccountUnlocked, acc.ID, acc.Email, client, true, "Lock expired")
	}

	if account.StateOf(acc, h.Now()) == account.StateLocked {
		h.MetricInc(deps.Metrics.LoginFailure)
		h.audit(ctx, audit.LoginFailure, acc.ID, acc.Email, client, false, "Account locked")
		return nil, deps.Errors.AccountLocked
	}

	if account.PasswordExpired(acc, h.Now()) {
		h.MetricInc(deps.Metrics.LoginFailure)
		h.audit(ctx, audit.LoginFailure, acc.ID, acc.Email, client, false, "Password expired")
		return nil, deps.Errors.PasswordExpired
	}

	ok, err := deps.VerifyPassword(plain, acc.PasswordHash)
	if err != nil {
		h.Warn("adminauth: stored password hash unusable", "account_id", acc.ID, "error", err)
		ok = false
	}
	if !ok {
		return nil, recordFailedLogin(ctx, acc, client, deps, h)
	}

	access, refresh, err := deps.IssueTokens(acc)
	if err != nil {
		return nil, err
	}

	now := h.Now()
	upgraded := ""
	if deps.PasswordUpgradeOnLogin && deps.PasswordNeedsUpgrade != nil {
		if need, err := deps.PasswordNeedsUpgrade(acc.PasswordHash); err == nil && need {
			if upgraded, err = deps.HashPassword(plain); err != nil {
				h.Warn("adminauth: password rehash failed", "account_id", acc.ID, "error", err)
				upgraded = ""
			}
		}
	}

	acc, err = account.Mutate(ctx, deps.Accounts, acc.ID, deps.SaveRetries, func(a account.Account) (account.Account, error) {
		next := account.RecordSuccess(a, now)
		if upgraded != "" {
			next.PasswordHash = upgraded
		}
		return next, nil
	})
	if err != nil {
		return nil, storeError(err, deps.Errors)
	}
	if upgraded != "" {
		h.MetricInc(deps.Metrics.HashUpgraded)
	}

	// Stored after the success transition: any error above leaves no session.
	sess := session.Session{
		ID:        uuid.NewString(),
		AccountID: acc.ID,
		TokenHash: session.HashToken(refresh),
		IP:        client.IP,
		UserAgent: client.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(deps.RefreshTTL),
		Active:    true,
	}
	if err := deps.Sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	h.MetricInc(deps.Metrics.SessionCreated)

	h.MetricInc(deps.Metrics.LoginSuccess)
	h.audit(ctx, audit.LoginSuccess, acc.ID, acc.Email, client, true, "Successful login")

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Account:      acc,
		Session:      sess,
	}, nil
}

// recordFailedLogin applies the failure transition under optimistic retry so
// concurrent wrong-password attempts are all counted.
func recordFailedLogin(ctx context.Context, acc account.Account, client Client, deps LoginDeps, h Hooks) error {
	var lockedNow bool
	updated, err := account.Mutate(ctx, deps.Accounts, acc.ID, deps.SaveRetries, func(a account.Account) (account.Account, error) {
		next, locked := account.RecordFailure(a, h.Now(), deps.Lockout)
		lockedNow = locked
		return next, nil
	})
	if err != nil {
		return storeError(err, deps.Errors)
	}

	h.MetricInc(deps.Metrics.LoginFailure)
	h.audit(ctx, audit.LoginFailure, updated.ID, updated.Email, client, false,
		fmt.Sprintf("Invalid password. Attempts: %d", updated.FailedAttempts))

	if lockedNow {
		h.MetricInc(deps.Metrics.AccountLocked)
		h.audit(ctx, audit.AccountLocked, updated.ID, updated.Email, client, true,
			fmt.Sprintf("Account locked after %d failed attempts", updated.FailedAttempts))
		return deps.Errors.AccountLocked
	}
	return deps.Errors.InvalidCredentials
}

func storeError(err error, errs Errors) error {
	switch {
	case errors.Is(err, account.ErrVersionConflict):
		return fmt.Errorf("%w: %v", errs.StoreConflict, err)
	case errors.Is(err, account.ErrNotFound):
		return errs.AccountNotFound
	default:
		return err
	}
}
