package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureAccount
	RefreshFailureAccountStatus
	RefreshFailureSessionNotFound
	RefreshFailureSessionExpired
	RefreshFailureIssueAccess
	RefreshFailureStore
)

// RefreshResult carries either the new access token or failure metadata.
// The refresh token is returned unchanged; sessions are not rotated.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	AccountID    string
	Account      account.Account
	Session      session.Session
	AccessToken  string
	RefreshToken string
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Accounts account.Store
	Sessions session.Store

	// VerifyRefresh checks signature, expiry and type=refresh and returns the
	// subject.
	VerifyRefresh func(string) (string, error)
	IssueAccess   func(account.Account) (string, error)

	Hooks   Hooks
	Metrics Metrics
	Errors  Errors
}

// RunRefresh exchanges a refresh token for a new access token. The token's
// session must still be active and unexpired, and its account enabled.
// Every token failure reports InvalidToken or SessionRevoked; the account
// state only reaches the audit detail.
func RunRefresh(ctx context.Context, refreshToken string, client Client, deps RefreshDeps) RefreshResult {
	h := deps.Hooks.withDefaults()

	fail := func(kind RefreshFailureKind, err error, acc account.Account, detail string) RefreshResult {
		h.MetricInc(deps.Metrics.RefreshFailure)
		if detail != "" {
			h.audit(ctx, audit.TokenRefresh, acc.ID, acc.Email, client, false, detail)
		}
		return RefreshResult{Failure: kind, Err: err, AccountID: acc.ID, Account: acc}
	}

	accountID, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		return fail(RefreshFailureDecode, deps.Errors.InvalidToken, account.Account{}, "Invalid refresh token")
	}

	acc, err := deps.Accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fail(RefreshFailureAccount, deps.Errors.InvalidToken, account.Account{ID: accountID}, "User not found")
		}
		return fail(RefreshFailureStore, err, account.Account{ID: accountID}, "")
	}
	if !acc.Enabled {
		return fail(RefreshFailureAccountStatus, deps.Errors.InvalidToken, acc, "Account disabled")
	}

	sess, err := deps.Sessions.FindActiveByTokenHash(ctx, session.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return fail(RefreshFailureSessionNotFound, deps.Errors.SessionRevoked, acc, "Invalid refresh token session")
		}
		return fail(RefreshFailureStore, err, acc, "")
	}
	if sess.AccountID != acc.ID {
		return fail(RefreshFailureSessionNotFound, deps.Errors.SessionRevoked, acc, "Invalid refresh token session")
	}
	if !sess.Valid(h.Now()) {
		if err := deps.Sessions.Deactivate(ctx, sess.ID); err != nil {
			h.Warn("adminauth: expired session deactivation failed", "session_id", sess.ID, "error", err)
		}
		h.audit(ctx, audit.SessionExpired, acc.ID, acc.Email, client, false, "Session expired at "+sess.ExpiresAt.Format(time.RFC3339))
		res := fail(RefreshFailureSessionExpired, deps.Errors.SessionRevoked, acc, "Expired refresh token session")
		res.Session = sess
		return res
	}

	access, err := deps.IssueAccess(acc)
	if err != nil {
		res := fail(RefreshFailureIssueAccess, err, acc, "")
		res.Session = sess
		return res
	}

	h.MetricInc(deps.Metrics.RefreshSuccess)
	h.audit(ctx, audit.TokenRefresh, acc.ID, acc.Email, client, true, "Token refreshed successfully")

	return RefreshResult{
		Failure:      RefreshFailureNone,
		AccountID:    acc.ID,
		Account:      acc,
		Session:      sess,
		AccessToken:  access,
		RefreshToken: refreshToken,
	}
}
