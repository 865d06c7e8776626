package adminauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/internal/flows"
	"github.com/MrEthical07/adminauth/permission"
)

const (
	defaultSeedEmail     = "admin@tcmapp.com"
	defaultSeedFirstName = "System"
	defaultSeedLastName  = "Administrator"
	seedPasswordLength   = 16
)

// Seed installs the role catalogue into the role store and creates the
// initial ROLE_SUPER_ADMIN account when no account holds the admin email.
// Seed is safe to run on every start: roles are upserted and an existing
// admin is left alone.
//
// A blank AdminPassword is replaced with a generated one, which is logged
// once and returned in SeedResult.
func (e *Engine) Seed(ctx context.Context, cfg SeedConfig) (SeedResult, error) {
	if !e.ready() {
		return SeedResult{}, ErrEngineNotReady
	}

	var res SeedResult
	for _, role := range e.roleManager.Roles() {
		if err := e.roles.SaveRole(ctx, role); err != nil {
			return res, fmt.Errorf("seed role %s: %w", role.Name, err)
		}
		res.Roles++
	}
	e.logger.Info("adminauth: roles seeded", "count", res.Roles)

	email := account.NormalizeEmail(cfg.AdminEmail)
	if email == "" {
		email = defaultSeedEmail
	}
	existing, err := e.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		e.logger.Info("adminauth: admin account already exists", "email", email)
		res.AdminID = existing.ID
		return res, nil
	case !errors.Is(err, account.ErrNotFound):
		return res, err
	}

	plain := cfg.AdminPassword
	if strings.TrimSpace(plain) == "" {
		plain, err = e.policy.Generate(seedPasswordLength)
		if err != nil {
			return res, err
		}
		res.GeneratedPassword = plain
		e.logger.Warn("adminauth: no admin password configured, generated one; change it after first login",
			"email", email, "password", plain)
	}

	first, last := cfg.AdminFirstName, cfg.AdminLastName
	if first == "" {
		first = defaultSeedFirstName
	}
	if last == "" {
		last = defaultSeedLastName
	}

	acc, err := e.flow.CreateAccount(ctx, flows.CreateAccountRequest{
		Email:     email,
		Password:  plain,
		FirstName: first,
		LastName:  last,
		Roles:     []string{permission.RoleSuperAdmin},
	}, flows.Actor{}, clientFromContext(ctx))
	if err != nil {
		return res, fmt.Errorf("seed admin: %w", err)
	}
	res.AdminCreated = true
	res.AdminID = acc.ID
	e.logger.Info("adminauth: admin account created", "email", email, "role", permission.RoleSuperAdmin)
	return res, nil
}
