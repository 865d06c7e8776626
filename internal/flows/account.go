package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/password"
	"github.com/MrEthical07/adminauth/session"
)

const systemActor = "system"

// Actor is the operator performing an administrative action. The zero
// value is the system itself.
type Actor struct {
	ID    string
	Email string
}

func (a Actor) name() string {
	if a.ID == "" {
		return systemActor
	}
	return a.ID
}

type CreateAccountRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Roles     []string
}

type ChangePasswordRequest struct {
	AccountID       string
	CurrentPassword string
	NewPassword     string
}

// AccountDeps captures account administration dependencies.
type AccountDeps struct {
	Accounts    account.Store
	Roles       account.RoleStore
	Sessions    session.Store
	SaveRetries int
	DefaultRole string

	ValidatePassword func(string) password.Result
	HashPassword     func(string) (string, error)
	VerifyPassword   func(plain, hash string) (bool, error)
	PasswordExpiry   func(time.Time) time.Time

	Hooks   Hooks
	Metrics Metrics
	Errors  Errors
}

// RunCreateAccount creates an enabled account. Requested roles must all
// exist and be active; with none requested the default role is assigned
// when it exists.
func RunCreateAccount(ctx context.Context, req CreateAccountRequest, actor Actor, client Client, deps AccountDeps) (account.Account, error) {
	h := deps.Hooks.withDefaults()

	if res := deps.ValidatePassword(req.Password); !res.Valid {
		return account.Account{}, deps.Errors.PasswordPolicy(res)
	}

	email := account.NormalizeEmail(req.Email)
	exists, err := deps.Accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return account.Account{}, err
	}
	if exists {
		h.MetricInc(deps.Metrics.AccountDuplicate)
		return account.Account{}, deps.Errors.AccountExists
	}

	roles, err := resolveRoles(ctx, req.Roles, deps)
	if err != nil {
		return account.Account{}, err
	}

	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		return account.Account{}, err
	}
	now := h.Now()
	expiry := deps.PasswordExpiry(now)

	created, err := deps.Accounts.Create(ctx, account.Account{
		Email:             email,
		PasswordHash:      hash,
		FirstName:         strings.TrimSpace(req.FirstName),
		LastName:          strings.TrimSpace(req.LastName),
		Enabled:           true,
		PasswordExpiresAt: &expiry,
		Roles:             roles,
		CreatedBy:         actor.name(),
		UpdatedBy:         actor.name(),
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			h.MetricInc(deps.Metrics.AccountDuplicate)
			return account.Account{}, deps.Errors.AccountExists
		}
		return account.Account{}, err
	}

	h.MetricInc(deps.Metrics.AccountCreated)
	h.audit(ctx, audit.UserCreated, actor.ID, actor.Email, client, true,
		fmt.Sprintf("Created user: %s with roles: %v", created.Email, created.RoleNames()))
	return created, nil
}

func resolveRoles(ctx context.Context, names []string, deps AccountDeps) ([]account.Role, error) {
	if len(names) == 0 {
		if deps.DefaultRole == "" {
			return nil, nil
		}
		return deps.Roles.ActiveRoles(ctx, []string{deps.DefaultRole})
	}

	unique := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if _, dup := seen[n]; dup || n == "" {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}

	roles, err := deps.Roles.ActiveRoles(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(roles) != len(unique) {
		return nil, fmt.Errorf("%w: one or more roles not found or inactive", deps.Errors.RoleNotFound)
	}
	return roles, nil
}

// RunChangePassword replaces an account's password. When the actor changes
// their own password the current one is checked and every session of the
// account is deactivated; an administrator changing someone else's password
// leaves their sessions alone.
func RunChangePassword(ctx context.Context, req ChangePasswordRequest, actor Actor, client Client, deps AccountDeps) error {
	h := deps.Hooks.withDefaults()
	self := actor.ID != "" && actor.ID == req.AccountID

	acc, err := deps.Accounts.FindByID(ctx, req.AccountID)
	if err != nil {
		return storeError(err, deps.Errors)
	}

	if self {
		ok, err := deps.VerifyPassword(req.CurrentPassword, acc.PasswordHash)
		if err != nil || !ok {
			h.MetricInc(deps.Metrics.PasswordChangeInvalid)
			h.audit(ctx, audit.PasswordChange, acc.ID, acc.Email, client, false, "Invalid current password provided")
			return deps.Errors.InvalidCredentials
		}
	}

	if res := deps.ValidatePassword(req.NewPassword); !res.Valid {
		return deps.Errors.PasswordPolicy(res)
	}
	if same, _ := deps.VerifyPassword(req.NewPassword, acc.PasswordHash); same {
		h.MetricInc(deps.Metrics.PasswordReuseRejected)
		return deps.Errors.PasswordReuse
	}

	hash, err := deps.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	now := h.Now()
	expiry := deps.PasswordExpiry(now)

	acc, err = account.Mutate(ctx, deps.Accounts, acc.ID, deps.SaveRetries, func(a account.Account) (account.Account, error) {
		return account.PasswordChanged(a, hash, expiry, now, actor.name()), nil
	})
	if err != nil {
		return storeError(err, deps.Errors)
	}

	detail := "Password changed by admin: " + actor.name()
	if self {
		n, err := deps.Sessions.DeactivateAllForAccount(ctx, acc.ID)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			h.MetricInc(deps.Metrics.SessionInvalidated)
		}
		detail = "User changed own password"
	}

	h.MetricInc(deps.Metrics.PasswordChangeSuccess)
	h.audit(ctx, audit.PasswordChange, acc.ID, acc.Email, client, true, detail)
	return nil
}

// RunSetEnabled disables or enables an account.
func RunSetEnabled(ctx context.Context, accountID string, enabled bool, actor Actor, client Client, deps AccountDeps) (account.Account, error) {
	h := deps.Hooks.withDefaults()

	var changed bool
	acc, err := account.Mutate(ctx, deps.Accounts, accountID, deps.SaveRetries, func(a account.Account) (account.Account, error) {
		changed = a.Enabled != enabled
		if !changed {
			return a, errUnchanged
		}
		if enabled {
			return account.Enable(a, h.Now(), actor.name()), nil
		}
		return account.Disable(a, h.Now(), actor.name()), nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return account.Account{}, storeError(err, deps.Errors)
	}
	if !changed {
		return deps.Accounts.FindByID(ctx, accountID)
	}

	kind, verb := audit.AccountEnabled, "enabled"
	if !enabled {
		kind, verb = audit.AccountDisabled, "disabled"
		h.MetricInc(deps.Metrics.AccountDisabled)
	}
	h.audit(ctx, kind, actor.ID, actor.Email, client, true, "Account "+verb+" for user: "+acc.Email)
	return acc, nil
}

// RunUnlock clears a lock manually. Unlocking an account that is not
// locked is a no-op and is not audited.
func RunUnlock(ctx context.Context, accountID string, actor Actor, client Client, deps AccountDeps) (account.Account, error) {
	h := deps.Hooks.withDefaults()

	var wasLocked bool
	acc, err := account.Mutate(ctx, deps.Accounts, accountID, deps.SaveRetries, func(a account.Account) (account.Account, error) {
		next, locked := account.Unlock(a, h.Now(), actor.name())
		wasLocked = locked
		if !locked {
			return a, errUnchanged
		}
		return next, nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return account.Account{}, storeError(err, deps.Errors)
	}
	if !wasLocked {
		return deps.Accounts.FindByID(ctx, accountID)
	}

	h.MetricInc(deps.Metrics.AccountUnlocked)
	h.audit(ctx, audit.AccountUnlocked, actor.ID, actor.Email, client, true, "Account unlocked for user: "+acc.Email)
	return acc, nil
}

// RunAssignRole grants an active role. Assigning a role the account already
// holds is a no-op.
func RunAssignRole(ctx context.Context, accountID, roleName string, actor Actor, client Client, deps AccountDeps) (account.Account, error) {
	h := deps.Hooks.withDefaults()

	roles, err := deps.Roles.ActiveRoles(ctx, []string{roleName})
	if err != nil {
		return account.Account{}, err
	}
	if len(roles) == 0 {
		return account.Account{}, fmt.Errorf("%w: %s", deps.Errors.RoleNotFound, roleName)
	}
	role := roles[0]

	acc, err := account.Mutate(ctx, deps.Accounts, accountID, deps.SaveRetries, func(a account.Account) (account.Account, error) {
		if a.HasRole(role.Name) {
			return a, errUnchanged
		}
		a.Roles = append(a.Roles, role)
		a.UpdatedBy = actor.name()
		a.UpdatedAt = h.Now()
		return a, nil
	})
	if errors.Is(err, errUnchanged) {
		return deps.Accounts.FindByID(ctx, accountID)
	}
	if err != nil {
		return account.Account{}, storeError(err, deps.Errors)
	}

	h.audit(ctx, audit.RoleAssigned, actor.ID, actor.Email, client, true,
		"Assigned role: "+role.Name+" to user: "+acc.Email)
	return acc, nil
}

// RunRemoveRole revokes a role. The role must exist but may be inactive.
func RunRemoveRole(ctx context.Context, accountID, roleName string, actor Actor, client Client, deps AccountDeps) (account.Account, error) {
	h := deps.Hooks.withDefaults()

	if _, err := deps.Roles.FindRole(ctx, roleName); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Account{}, fmt.Errorf("%w: %s", deps.Errors.RoleNotFound, roleName)
		}
		return account.Account{}, err
	}

	acc, err := account.Mutate(ctx, deps.Accounts, accountID, deps.SaveRetries, func(a account.Account) (account.Account, error) {
		if !a.HasRole(roleName) {
			return a, errUnchanged
		}
		kept := make([]account.Role, 0, len(a.Roles))
		for _, r := range a.Roles {
			if r.Name != roleName {
				kept = append(kept, r)
			}
		}
		a.Roles = kept
		a.UpdatedBy = actor.name()
		a.UpdatedAt = h.Now()
		return a, nil
	})
	if errors.Is(err, errUnchanged) {
		return deps.Accounts.FindByID(ctx, accountID)
	}
	if err != nil {
		return account.Account{}, storeError(err, deps.Errors)
	}

	h.audit(ctx, audit.RoleRemoved, actor.ID, actor.Email, client, true,
		"Removed role: "+roleName+" from user: "+acc.Email)
	return acc, nil
}

var errUnchanged = errors.New("unchanged")
