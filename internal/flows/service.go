package flows

import (
	"context"

	"github.com/MrEthical07/adminauth/account"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.Accounts != nil && s.deps.Login.IssueTokens != nil
}

func (s Service) Login(ctx context.Context, email, plain string, client Client) (*LoginResult, error) {
	return RunLogin(ctx, email, plain, client, s.deps.Login)
}

func (s Service) Refresh(ctx context.Context, refreshToken string, client Client) RefreshResult {
	return RunRefresh(ctx, refreshToken, client, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, refreshToken string, client Client) error {
	return RunLogout(ctx, refreshToken, client, s.deps.Logout)
}

func (s Service) LogoutAll(ctx context.Context, accountID string, client Client) (int, error) {
	return RunLogoutAll(ctx, accountID, client, s.deps.Logout)
}

func (s Service) CreateAccount(ctx context.Context, req CreateAccountRequest, actor Actor, client Client) (account.Account, error) {
	return RunCreateAccount(ctx, req, actor, client, s.deps.Account)
}

func (s Service) ChangePassword(ctx context.Context, req ChangePasswordRequest, actor Actor, client Client) error {
	return RunChangePassword(ctx, req, actor, client, s.deps.Account)
}

func (s Service) SetEnabled(ctx context.Context, accountID string, enabled bool, actor Actor, client Client) (account.Account, error) {
	return RunSetEnabled(ctx, accountID, enabled, actor, client, s.deps.Account)
}

func (s Service) Unlock(ctx context.Context, accountID string, actor Actor, client Client) (account.Account, error) {
	return RunUnlock(ctx, accountID, actor, client, s.deps.Account)
}

func (s Service) AssignRole(ctx context.Context, accountID, role string, actor Actor, client Client) (account.Account, error) {
	return RunAssignRole(ctx, accountID, role, actor, client, s.deps.Account)
}

func (s Service) RemoveRole(ctx context.Context, accountID, role string, actor Actor, client Client) (account.Account, error) {
	return RunRemoveRole(ctx, accountID, role, actor, client, s.deps.Account)
}
