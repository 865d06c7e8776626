package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/session"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Accounts      account.Store
	Sessions      session.Store
	VerifyRefresh func(string) (string, error)

	Hooks   Hooks
	Metrics Metrics
}

// RunLogout deactivates the session behind refreshToken. An invalid token or
// a session that is already gone is not an error.
func RunLogout(ctx context.Context, refreshToken string, client Client, deps LogoutDeps) error {
	h := deps.Hooks.withDefaults()

	accountID, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}

	sess, err := deps.Sessions.FindActiveByTokenHash(ctx, session.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := deps.Sessions.Deactivate(ctx, sess.ID); err != nil {
		return err
	}

	h.MetricInc(deps.Metrics.Logout)
	h.MetricInc(deps.Metrics.SessionInvalidated)
	h.audit(ctx, audit.Logout, accountID, emailOf(ctx, deps.Accounts, accountID), client, true, "User logged out")
	return nil
}

// RunLogoutAll deactivates every session of accountID and returns how many
// were active.
func RunLogoutAll(ctx context.Context, accountID string, client Client, deps LogoutDeps) (int, error) {
	h := deps.Hooks.withDefaults()

	n, err := deps.Sessions.DeactivateAllForAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}

	h.MetricInc(deps.Metrics.LogoutAll)
	for i := 0; i < n; i++ {
		h.MetricInc(deps.Metrics.SessionInvalidated)
	}
	h.audit(ctx, audit.Logout, accountID, emailOf(ctx, deps.Accounts, accountID), client, true,
		fmt.Sprintf("User logged out from all devices (%d sessions)", n))
	return n, nil
}

func emailOf(ctx context.Context, store account.Store, id string) string {
	if store == nil || id == "" {
		return ""
	}
	acc, err := store.FindByID(ctx, id)
	if err != nil {
		return ""
	}
	return acc.Email
}
