package adminauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/internal/flows"
)

// CreateAccount creates an enabled account. The actor is the principal in
// ctx, or the system when none is present.
func (e *Engine) CreateAccount(ctx context.Context, req CreateAccountRequest) (AccountInfo, error) {
	if !e.ready() {
		return AccountInfo{}, ErrEngineNotReady
	}
	acc, err := e.flow.CreateAccount(ctx, flows.CreateAccountRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Roles:     req.Roles,
	}, actorFromContext(ctx), clientFromContext(ctx))
	if err != nil {
		return AccountInfo{}, err
	}
	return newAccountInfo(acc), nil
}

// ChangePassword replaces the password of accountID. When the principal in
// ctx is the account holder, currentPassword must match and every session of
// the account is revoked. Administrators changing another account's
// password skip the current-password check.
func (e *Engine) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flow.ChangePassword(ctx, flows.ChangePasswordRequest{
		AccountID:       accountID,
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	}, actorFromContext(ctx), clientFromContext(ctx))
}

func (e *Engine) DisableAccount(ctx context.Context, accountID string) (AccountInfo, error) {
	return e.setEnabled(ctx, accountID, false)
}

func (e *Engine) EnableAccount(ctx context.Context, accountID string) (AccountInfo, error) {
	return e.setEnabled(ctx, accountID, true)
}

func (e *Engine) setEnabled(ctx context.Context, accountID string, enabled bool) (AccountInfo, error) {
	if !e.ready() {
		return AccountInfo{}, ErrEngineNotReady
	}
	acc, err := e.flow.SetEnabled(ctx, accountID, enabled, actorFromContext(ctx), clientFromContext(ctx))
	if err != nil {
		return AccountInfo{}, err
	}
	return newAccountInfo(acc), nil
}

// UnlockAccount clears a failed-login lock and the failure counter.
func (e *Engine) UnlockAccount(ctx context.Context, accountID string) (AccountInfo, error) {
	if !e.ready() {
		return AccountInfo{}, ErrEngineNotReady
	}
	acc, err := e.flow.Unlock(ctx, accountID, actorFromContext(ctx), clientFromContext(ctx))
	if err != nil {
		return AccountInfo{}, err
	}
	return newAccountInfo(acc), nil
}

// AssignRole grants an active role. Granting a role the account already
// holds succeeds without an audit event.
func (e *Engine) AssignRole(ctx context.Context, accountID, role string) (AccountInfo, error) {
	if !e.ready() {
		return AccountInfo{}, ErrEngineNotReady
	}
	acc, err := e.flow.AssignRole(ctx, accountID, role, actorFromContext(ctx), clientFromContext(ctx))
	if err != nil {
		return AccountInfo{}, err
	}
	return newAccountInfo(acc), nil
}

func (e *Engine) RemoveRole(ctx context.Context, accountID, role string) (AccountInfo, error) {
	if !e.ready() {
		return AccountInfo{}, ErrEngineNotReady
	}
	acc, err := e.flow.RemoveRole(ctx, accountID, role, actorFromContext(ctx), clientFromContext(ctx))
	if err != nil {
		return AccountInfo{}, err
	}
	return newAccountInfo(acc), nil
}

// GetAccount returns the account by id.
func (e *Engine) GetAccount(ctx context.Context, accountID string) (AccountInfo, error) {
	if !e.ready() {
		return AccountInfo{}, ErrEngineNotReady
	}
	acc, err := e.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return AccountInfo{}, ErrAccountNotFound
		}
		return AccountInfo{}, err
	}
	return newAccountInfo(acc), nil
}

// GetAccountByEmail looks an account up by its normalized email.
func (e *Engine) GetAccountByEmail(ctx context.Context, email string) (AccountInfo, error) {
	if !e.ready() {
		return AccountInfo{}, ErrEngineNotReady
	}
	acc, err := e.accounts.FindByEmail(ctx, account.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return AccountInfo{}, ErrAccountNotFound
		}
		return AccountInfo{}, err
	}
	return newAccountInfo(acc), nil
}
