package adminauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/internal/flows"
	"github.com/MrEthical07/adminauth/jwt"
	"github.com/MrEthical07/adminauth/password"
)

func (e *Engine) buildFlowService() flows.Service {
	hooks := flows.Hooks{
		Now: e.now,
		EmitAudit: func(ctx context.Context, event audit.Event) {
			e.audit.Emit(ctx, event)
		},
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		Warn: func(msg string, args ...any) {
			e.logger.Warn(msg, args...)
		},
	}
	metrics := flows.Metrics{
		LoginSuccess:          int(MetricLoginSuccess),
		LoginFailure:          int(MetricLoginFailure),
		AccountLocked:         int(MetricAccountLocked),
		RefreshSuccess:        int(MetricRefreshSuccess),
		RefreshFailure:        int(MetricRefreshFailure),
		SessionCreated:        int(MetricSessionCreated),
		SessionInvalidated:    int(MetricSessionInvalidated),
		Logout:                int(MetricLogout),
		LogoutAll:             int(MetricLogoutAll),
		AccountCreated:        int(MetricAccountCreated),
		AccountDuplicate:      int(MetricAccountDuplicate),
		PasswordChangeSuccess: int(MetricPasswordChangeSuccess),
		PasswordChangeInvalid: int(MetricPasswordChangeInvalidOld),
		PasswordReuseRejected: int(MetricPasswordChangeReuseRejected),
		AccountDisabled:       int(MetricAccountDisabled),
		AccountUnlocked:       int(MetricAccountUnlocked),
		HashUpgraded:          int(MetricPasswordHashUpgraded),
	}
	errs := flows.Errors{
		InvalidCredentials: ErrInvalidCredentials,
		AccountDisabled:    ErrAccountDisabled,
		AccountLocked:      ErrAccountLocked,
		PasswordExpired:    ErrPasswordExpired,
		InvalidToken:       ErrInvalidToken,
		SessionRevoked:     ErrSessionRevoked,
		StoreConflict:      ErrStoreConflict,
		AccountExists:      ErrAccountExists,
		AccountNotFound:    ErrAccountNotFound,
		RoleNotFound:       ErrRoleNotFound,
		PasswordReuse:      ErrPasswordReuse,
		PasswordPolicy:     policyError,
	}

	return flows.New(flows.Deps{
		Login: flows.LoginDeps{
			Accounts: e.accounts,
			Sessions: e.sessions,
			Lockout: account.LockoutPolicy{
				MaxFailedAttempts: e.config.Lockout.MaxFailedAttempts,
				Duration:          e.config.Lockout.Duration,
			},
			SaveRetries:            e.config.Lockout.SaveRetries,
			RefreshTTL:             e.jwtManager.RefreshTTL(),
			PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
			VerifyPassword:         e.hasher.Verify,
			PasswordNeedsUpgrade:   e.hasher.NeedsUpgrade,
			HashPassword:           e.hasher.Hash,
			IssueTokens:            e.issueTokens,
			Hooks:                  hooks,
			Metrics:                metrics,
			Errors:                 errs,
		},
		Refresh: flows.RefreshDeps{
			Accounts:      e.accounts,
			Sessions:      e.sessions,
			VerifyRefresh: e.verifyRefresh,
			IssueAccess:   e.issueAccess,
			Hooks:         hooks,
			Metrics:       metrics,
			Errors:        errs,
		},
		Logout: flows.LogoutDeps{
			Accounts:      e.accounts,
			Sessions:      e.sessions,
			VerifyRefresh: e.verifyRefresh,
			Hooks:         hooks,
			Metrics:       metrics,
		},
		Account: flows.AccountDeps{
			Accounts:    e.accounts,
			Roles:       e.roles,
			Sessions:    e.sessions,
			SaveRetries: e.config.Lockout.SaveRetries,
			DefaultRole: e.config.Account.DefaultRole,
			ValidatePassword: func(plain string) password.Result {
				return e.policy.Validate(plain)
			},
			HashPassword:   e.hasher.Hash,
			VerifyPassword: e.hasher.Verify,
			PasswordExpiry: e.policy.ExpiryFor,
			Hooks:          hooks,
			Metrics:        metrics,
			Errors:         errs,
		},
	})
}

func subjectOf(a account.Account) jwt.Subject {
	return jwt.Subject{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.FullName(),
		Roles:       a.RoleNames(),
		Permissions: a.PermissionNames(),
	}
}

func (e *Engine) issueTokens(a account.Account) (string, string, error) {
	sub := subjectOf(a)
	access, err := e.jwtManager.IssueAccess(sub)
	if err != nil {
		return "", "", err
	}
	refresh, err := e.jwtManager.IssueRefresh(sub)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (e *Engine) issueAccess(a account.Account) (string, error) {
	return e.jwtManager.IssueAccess(subjectOf(a))
}

func (e *Engine) verifyRefresh(token string) (string, error) {
	claims, err := e.jwtManager.VerifyKind(token, jwt.KindRefresh)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("refresh token without subject")
	}
	return claims.Subject, nil
}

// emitAudit raises an event outside the flows, tagging it with the client
// carried by ctx.
func (e *Engine) emitAudit(ctx context.Context, kind audit.Kind, accountID, email string, success bool, detail string) {
	c := clientFromContext(ctx)
	e.audit.Emit(ctx, audit.Event{
		Kind:      kind,
		AccountID: accountID,
		Email:     email,
		IP:        c.IP,
		UserAgent: c.UserAgent,
		Success:   success,
		Detail:    detail,
		Timestamp: e.now(),
	})
}
