package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/adminauth/account"
)

// AccountStore persists accounts and the role catalogue. Save enforces
// the version column as a compare-and-swap guard.
type AccountStore struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ account.Store     = (*AccountStore)(nil)
	_ account.RoleStore = (*AccountStore)(nil)
)

// NewAccountStore wraps db. now defaults to time.Now.
func NewAccountStore(db *sql.DB, now func() time.Time) *AccountStore {
	if now == nil {
		now = time.Now
	}
	return &AccountStore{db: db, now: now}
}

const accountColumns = `id, email, password_hash, first_name, last_name, enabled, locked,
		failed_attempts, locked_until, password_expires_at, last_login_at,
		created_by, updated_by, created_at, updated_at, version`

func scanAccount(row interface{ Scan(...any) error }) (account.Account, error) {
	var (
		a                                 account.Account
		lockedUntil, expiresAt, lastLogin sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Enabled, &a.Locked,
		&a.FailedAttempts, &lockedUntil, &expiresAt, &lastLogin,
		&a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt, &a.Version)
	if err != nil {
		return account.Account{}, err
	}
	a.LockedUntil = timePtr(lockedUntil)
	a.PasswordExpiresAt = timePtr(expiresAt)
	a.LastLoginAt = timePtr(lastLogin)
	return a, nil
}

func (s *AccountStore) findOne(ctx context.Context, where string, arg any) (account.Account, error) {
	if s.db == nil {
		return account.Account{}, errNoDB
	}
	a, err := scanAccount(s.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return account.Account{}, account.ErrNotFound
	}
	if err != nil {
		return account.Account{}, err
	}
	roles, err := loadRoles(ctx, s.db, `join account_roles ar on ar.role_name = r.name`, `ar.account_id = $1`, a.ID)
	if err != nil {
		return account.Account{}, fmt.Errorf("load roles: %w", err)
	}
	a.Roles = roles
	return a, nil
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (account.Account, error) {
	return s.findOne(ctx, `email = $1`, account.NormalizeEmail(email))
}

func (s *AccountStore) FindByID(ctx context.Context, id string) (account.Account, error) {
	return s.findOne(ctx, `id = $1`, id)
}

func (s *AccountStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if s.db == nil {
		return false, errNoDB
	}
	var exists bool
	err := s.db.QueryRowContext(ctx, `select exists(select 1 from accounts where email = $1)`,
		account.NormalizeEmail(email)).Scan(&exists)
	return exists, err
}

func (s *AccountStore) Create(ctx context.Context, a account.Account) (account.Account, error) {
	if s.db == nil {
		return account.Account{}, errNoDB
	}
	a.Email = account.NormalizeEmail(a.Email)
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	a.Version = 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return account.Account{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		insert into accounts (`+accountColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, a.ID, a.Email, a.PasswordHash, a.FirstName, a.LastName, a.Enabled, a.Locked,
		a.FailedAttempts, nullTime(a.LockedUntil), nullTime(a.PasswordExpiresAt), nullTime(a.LastLoginAt),
		a.CreatedBy, a.UpdatedBy, a.CreatedAt, a.UpdatedAt, a.Version)
	if err != nil {
		if isPgCode(err, pgErrUniqueViolation) {
			return account.Account{}, account.ErrEmailTaken
		}
		return account.Account{}, err
	}
	if err := writeAccountRoles(ctx, tx, a); err != nil {
		return account.Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return account.Account{}, err
	}
	return a, nil
}

func (s *AccountStore) Save(ctx context.Context, a account.Account) (account.Account, error) {
	if s.db == nil {
		return account.Account{}, errNoDB
	}
	a.Email = account.NormalizeEmail(a.Email)
	a.UpdatedAt = s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return account.Account{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		update accounts set
			email = $3, password_hash = $4, first_name = $5, last_name = $6,
			enabled = $7, locked = $8, failed_attempts = $9, locked_until = $10,
			password_expires_at = $11, last_login_at = $12, updated_by = $13,
			updated_at = $14, version = version + 1
		where id = $1 and version = $2
	`, a.ID, a.Version, a.Email, a.PasswordHash, a.FirstName, a.LastName,
		a.Enabled, a.Locked, a.FailedAttempts, nullTime(a.LockedUntil),
		nullTime(a.PasswordExpiresAt), nullTime(a.LastLoginAt), a.UpdatedBy, a.UpdatedAt)
	if err != nil {
		if isPgCode(err, pgErrUniqueViolation) {
			return account.Account{}, account.ErrEmailTaken
		}
		return account.Account{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return account.Account{}, err
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `select exists(select 1 from accounts where id = $1)`, a.ID).Scan(&exists); err != nil {
			return account.Account{}, err
		}
		if !exists {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, account.ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx, `delete from account_roles where account_id = $1`, a.ID); err != nil {
		return account.Account{}, err
	}
	if err := writeAccountRoles(ctx, tx, a); err != nil {
		return account.Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return account.Account{}, err
	}
	a.Version++
	return a, nil
}

func writeAccountRoles(ctx context.Context, tx *sql.Tx, a account.Account) error {
	for _, r := range a.Roles {
		_, err := tx.ExecContext(ctx, `insert into account_roles (account_id, role_name) values ($1, $2)`, a.ID, r.Name)
		if err != nil {
			if isPgCode(err, pgErrForeignKeyViolation) {
				return fmt.Errorf("%w: role %s", account.ErrNotFound, r.Name)
			}
			return err
		}
	}
	return nil
}

func (s *AccountStore) FindRole(ctx context.Context, name string) (account.Role, error) {
	if s.db == nil {
		return account.Role{}, errNoDB
	}
	roles, err := loadRoles(ctx, s.db, "", `r.name = $1`, name)
	if err != nil {
		return account.Role{}, err
	}
	if len(roles) == 0 {
		return account.Role{}, account.ErrNotFound
	}
	return roles[0], nil
}

func (s *AccountStore) ActiveRoles(ctx context.Context, names []string) ([]account.Role, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	if len(names) == 0 {
		return []account.Role{}, nil
	}
	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = name
	}
	return loadRoles(ctx, s.db, "", `r.active and r.name in (`+strings.Join(placeholders, ", ")+`)`, args...)
}

func (s *AccountStore) SaveRole(ctx context.Context, r account.Role) error {
	if s.db == nil {
		return errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into roles (name, description, active) values ($1, $2, $3)
		on conflict (name) do update set description = excluded.description, active = excluded.active
	`, r.Name, r.Description, r.Active); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_name = $1`, r.Name); err != nil {
		return err
	}
	for _, p := range r.Permissions {
		if _, err := tx.ExecContext(ctx, `
			insert into permissions (name, resource, action, description) values ($1, $2, $3, $4)
			on conflict (name) do update set description = excluded.description
		`, p.Name, p.Resource, p.Action, p.Description); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			insert into role_permissions (role_name, permission_name) values ($1, $2)
		`, r.Name, p.Name); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// loadRoles reads roles with their permissions. join is an optional extra
// join against roles r; where filters the result.
func loadRoles(ctx context.Context, q querier, join, where string, args ...any) ([]account.Role, error) {
	rows, err := q.QueryContext(ctx, `
		select r.name, r.description, r.active, p.name, p.resource, p.action, p.description
		from roles r
		`+join+`
		left join role_permissions rp on rp.role_name = r.name
		left join permissions p on p.name = rp.permission_name
		where `+where+`
		order by r.name, p.name
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]account.Role, 0)
	for rows.Next() {
		var (
			r                        account.Role
			pName, pRes, pAct, pDesc sql.NullString
		)
		if err := rows.Scan(&r.Name, &r.Description, &r.Active, &pName, &pRes, &pAct, &pDesc); err != nil {
			return nil, err
		}
		if n := len(roles); n == 0 || roles[n-1].Name != r.Name {
			roles = append(roles, r)
		}
		if pName.Valid {
			last := &roles[len(roles)-1]
			last.Permissions = append(last.Permissions, account.Permission{
				Name:        pName.String,
				Resource:    pRes.String,
				Action:      pAct.String,
				Description: pDesc.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}
