package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/session"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var accountCols = []string{
	"id", "email", "password_hash", "first_name", "last_name", "enabled", "locked",
	"failed_attempts", "locked_until", "password_expires_at", "last_login_at",
	"created_by", "updated_by", "created_at", "updated_at", "version",
}

var roleCols = []string{"name", "description", "active", "p_name", "p_resource", "p_action", "p_description"}

func TestFindByEmailLoadsRolesAndPermissions(t *testing.T) {
	db, mock := newMock(t)
	store := NewAccountStore(db, clock)

	expires := fixedNow.Add(90 * 24 * time.Hour)
	mock.ExpectQuery("select id, email, .* from accounts where email = ").
		WithArgs("admin@example.com").
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow(
			"acc-1", "admin@example.com", "$argon2id$...", "Ada", "Admin", true, false,
			2, nil, expires, nil, "system", "system", fixedNow, fixedNow, int64(4)))
	mock.ExpectQuery("from roles r\\s+join account_roles ar").
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows(roleCols).
			AddRow("ROLE_ADMIN", "Administrator", true, "USERS_READ", "users", "read", "").
			AddRow("ROLE_ADMIN", "Administrator", true, "USERS_WRITE", "users", "write", "").
			AddRow("ROLE_VIEWER", "Viewer", true, nil, nil, nil, nil))

	a, err := store.FindByEmail(context.Background(), "  Admin@Example.com ")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if a.ID != "acc-1" || a.Version != 4 || a.FailedAttempts != 2 {
		t.Fatalf("unexpected account: %+v", a)
	}
	if a.PasswordExpiresAt == nil || !a.PasswordExpiresAt.Equal(expires) || a.LockedUntil != nil {
		t.Fatalf("unexpected nullable times: %+v", a)
	}
	if len(a.Roles) != 2 || len(a.Roles[0].Permissions) != 2 || len(a.Roles[1].Permissions) != 0 {
		t.Fatalf("unexpected roles: %+v", a.Roles)
	}
	if got := a.PermissionNames(); len(got) != 2 || got[0] != "USERS_READ" {
		t.Fatalf("unexpected permissions: %v", got)
	}
}

func TestFindByIDMissingIsNotFound(t *testing.T) {
	db, mock := newMock(t)
	store := NewAccountStore(db, clock)

	mock.ExpectQuery("from accounts where id = ").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	if _, err := store.FindByID(context.Background(), "nope"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateMapsUniqueViolation(t *testing.T) {
	db, mock := newMock(t)
	store := NewAccountStore(db, clock)

	mock.ExpectBegin()
	mock.ExpectExec("insert into accounts").WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	mock.ExpectRollback()

	_, err := store.Create(context.Background(), account.Account{Email: "dup@example.com", PasswordHash: "h"})
	if !errors.Is(err, account.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCreateWritesRolesAndStartsAtVersionOne(t *testing.T) {
	db, mock := newMock(t)
	store := NewAccountStore(db, clock)

	mock.ExpectBegin()
	mock.ExpectExec("insert into accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into account_roles").
		WithArgs(sqlmock.AnyArg(), "ROLE_VIEWER").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := store.Create(context.Background(), account.Account{
		Email:        "New@Example.com",
		PasswordHash: "h",
		Roles:        []account.Role{{Name: "ROLE_VIEWER", Active: true}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == "" || a.Version != 1 || a.Email != "new@example.com" || !a.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected created account: %+v", a)
	}
}

func TestSaveStaleVersionIsConflict(t *testing.T) {
	db, mock := newMock(t)
	store := NewAccountStore(db, clock)

	mock.ExpectBegin()
	mock.ExpectExec("update accounts set").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select exists").WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := store.Save(context.Background(), account.Account{ID: "acc-1", Email: "a@example.com", Version: 3})
	if !errors.Is(err, account.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestSaveMissingRowIsNotFound(t *testing.T) {
	db, mock := newMock(t)
	store := NewAccountStore(db, clock)

	mock.ExpectBegin()
	mock.ExpectExec("update accounts set").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select exists").WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := store.Save(context.Background(), account.Account{ID: "ghost", Version: 1})
	if !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveBumpsVersionAndRewritesRoles(t *testing.T) {
	db, mock := newMock(t)
	store := NewAccountStore(db, clock)

	mock.ExpectBegin()
	mock.ExpectExec("update accounts set").
		WithArgs("acc-1", int64(3), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from account_roles").WithArgs("acc-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into account_roles").WithArgs("acc-1", "ROLE_ADMIN").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	saved, err := store.Save(context.Background(), account.Account{
		ID:      "acc-1",
		Email:   "a@example.com",
		Version: 3,
		Roles:   []account.Role{{Name: "ROLE_ADMIN", Active: true}},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Version != 4 || !saved.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected saved account: %+v", saved)
	}
}

func TestSaveUnknownRoleIsNotFound(t *testing.T) {
	db, mock := newMock(t)
	store := NewAccountStore(db, clock)

	mock.ExpectBegin()
	mock.ExpectExec("update accounts set").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from account_roles").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into account_roles").WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})
	mock.ExpectRollback()

	_, err := store.Save(context.Background(), account.Account{
		ID:      "acc-1",
		Version: 1,
		Roles:   []account.Role{{Name: "ROLE_GHOST"}},
	})
	if !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMutateRetriesOnConflict(t *testing.T) {
	db, mock := newMock(t)
	store := NewAccountStore(db, clock)

	row := func(version int64, failed int) *sqlmock.Rows {
		return sqlmock.NewRows(accountCols).AddRow(
			"acc-1", "a@example.com", "h", "", "", true, false,
			failed, nil, nil, nil, "", "", fixedNow, fixedNow, version)
	}
	noRoles := func() *sqlmock.Rows { return sqlmock.NewRows(roleCols) }

	mock.ExpectQuery("from accounts where id = ").WillReturnRows(row(1, 0))
	mock.ExpectQuery("from roles r").WillReturnRows(noRoles())
	mock.ExpectBegin()
	mock.ExpectExec("update accounts set").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select exists").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	mock.ExpectQuery("from accounts where id = ").WillReturnRows(row(2, 1))
	mock.ExpectQuery("from roles r").WillReturnRows(noRoles())
	mock.ExpectBegin()
	mock.ExpectExec("update accounts set").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from account_roles").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	saved, err := account.Mutate(context.Background(), store, "acc-1", 3, func(a account.Account) (account.Account, error) {
		a.FailedAttempts++
		return a, nil
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if saved.FailedAttempts != 2 || saved.Version != 3 {
		t.Fatalf("expected retry on fresh row, got %+v", saved)
	}
}

func TestActiveRolesBuildsPlaceholders(t *testing.T) {
	db, mock := newMock(t)
	store := NewAccountStore(db, clock)

	mock.ExpectQuery(`r\.active and r\.name in \(\$1, \$2\)`).
		WithArgs("ROLE_ADMIN", "ROLE_VIEWER").
		WillReturnRows(sqlmock.NewRows(roleCols).
			AddRow("ROLE_ADMIN", "", true, "USERS_READ", "users", "read", ""))

	roles, err := store.ActiveRoles(context.Background(), []string{"ROLE_ADMIN", "ROLE_VIEWER"})
	if err != nil {
		t.Fatalf("ActiveRoles: %v", err)
	}
	if len(roles) != 1 || roles[0].Name != "ROLE_ADMIN" {
		t.Fatalf("unexpected roles: %+v", roles)
	}

	empty, err := store.ActiveRoles(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no query for empty names, got %v %v", empty, err)
	}
}

func TestSaveRoleUpsertsPermissions(t *testing.T) {
	db, mock := newMock(t)
	store := NewAccountStore(db, clock)

	mock.ExpectBegin()
	mock.ExpectExec("insert into roles").WithArgs("ROLE_VIEWER", "Read only", true).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from role_permissions").WithArgs("ROLE_VIEWER").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into permissions").WithArgs("USERS_READ", "users", "read", "").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into role_permissions").WithArgs("ROLE_VIEWER", "USERS_READ").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SaveRole(context.Background(), account.Role{
		Name:        "ROLE_VIEWER",
		Description: "Read only",
		Active:      true,
		Permissions: []account.Permission{{Name: "USERS_READ", Resource: "users", Action: "read"}},
	})
	if err != nil {
		t.Fatalf("SaveRole: %v", err)
	}
}

var sessionCols = []string{"id", "account_id", "token_hash", "ip", "user_agent", "created_at", "expires_at", "active"}

func TestSessionFindActiveByTokenHash(t *testing.T) {
	db, mock := newMock(t)
	store := NewSessionStore(db, clock)
	hash := session.HashToken("refresh-token")

	mock.ExpectQuery("from sessions\\s+where token_hash = ").
		WithArgs(hash[:]).
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow("sid-1", "acc-1", hash[:], "10.0.0.1", "curl/8", fixedNow, fixedNow.Add(time.Hour), true))

	got, err := store.FindActiveByTokenHash(context.Background(), hash)
	if err != nil {
		t.Fatalf("FindActiveByTokenHash: %v", err)
	}
	if got.ID != "sid-1" || got.TokenHash != hash || !got.Valid(fixedNow) {
		t.Fatalf("unexpected session: %+v", got)
	}

	mock.ExpectQuery("from sessions").WillReturnError(sql.ErrNoRows)
	if _, err := store.FindActiveByTokenHash(context.Background(), hash); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionBackendErrorIsUnavailable(t *testing.T) {
	db, mock := newMock(t)
	store := NewSessionStore(db, clock)

	mock.ExpectExec("insert into sessions").WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), session.Session{ID: "sid-1", Active: true})
	if !errors.Is(err, session.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSessionDeactivateAllCountsRows(t *testing.T) {
	db, mock := newMock(t)
	store := NewSessionStore(db, clock)

	mock.ExpectExec("update sessions set active = false where account_id").
		WithArgs("acc-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.DeactivateAllForAccount(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("DeactivateAllForAccount: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
}

func TestSessionListActiveFiltersByNow(t *testing.T) {
	db, mock := newMock(t)
	store := NewSessionStore(db, clock)
	hash := session.HashToken("t")

	mock.ExpectQuery("expires_at > ").
		WithArgs("acc-1", fixedNow).
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow("sid-1", "acc-1", hash[:], "", "", fixedNow, fixedNow.Add(time.Hour), true).
			AddRow("sid-2", "acc-1", []byte("short"), "", "", fixedNow, fixedNow.Add(time.Hour), true))

	if _, err := store.ListActiveForAccount(context.Background(), "acc-1"); err == nil {
		t.Fatal("expected malformed token hash to fail")
	}
}

func TestAuditAppendAndList(t *testing.T) {
	db, mock := newMock(t)
	store := NewAuditStore(db)

	event := adminauth.AuditEvent{
		ID:        "01HZX",
		Kind:      adminauth.AuditLoginFailure,
		Email:     "nobody@example.com",
		IP:        "10.0.0.9",
		Detail:    "User not found: nobody@example.com",
		Timestamp: fixedNow,
	}
	mock.ExpectExec("insert into audit_events").
		WithArgs("01HZX", "LOGIN_FAILURE", "", "nobody@example.com", "10.0.0.9", "", false, event.Detail, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.Append(context.Background(), event); err != nil {
		t.Fatalf("Append: %v", err)
	}

	mock.ExpectQuery(`where account_id = \$1 and kind = \$2 order by occurred_at desc, id desc limit \$3`).
		WithArgs("acc-1", "LOGIN_FAILURE", defaultAuditLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "account_id", "email", "ip", "user_agent", "success", "detail", "occurred_at"}).
			AddRow("01HZY", "LOGIN_FAILURE", "acc-1", "a@example.com", "10.0.0.9", "", false, "Invalid password", fixedNow))

	events, err := store.List(context.Background(), AuditFilter{AccountID: "acc-1", Kind: adminauth.AuditLoginFailure})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 1 || events[0].Kind != adminauth.AuditLoginFailure || events[0].AccountID != "acc-1" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestAuditListCapsLimit(t *testing.T) {
	db, mock := newMock(t)
	store := NewAuditStore(db)

	mock.ExpectQuery(`from audit_events order by occurred_at desc, id desc limit \$1`).
		WithArgs(maxAuditLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "account_id", "email", "ip", "user_agent", "success", "detail", "occurred_at"}))

	if _, err := store.List(context.Background(), AuditFilter{Limit: 50000}); err != nil {
		t.Fatalf("List: %v", err)
	}
}

func TestAuditSuspiciousIPs(t *testing.T) {
	db, mock := newMock(t)
	store := NewAuditStore(db)
	since := fixedNow.Add(-time.Hour)

	mock.ExpectQuery("group by ip").
		WithArgs("LOGIN_FAILURE", since, 10).
		WillReturnRows(sqlmock.NewRows([]string{"ip", "failures"}).AddRow("203.0.113.7", 42))

	got, err := store.SuspiciousIPs(context.Background(), since, 10)
	if err != nil {
		t.Fatalf("SuspiciousIPs: %v", err)
	}
	if len(got) != 1 || got[0].IP != "203.0.113.7" || got[0].Failures != 42 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestNilDBFailsFast(t *testing.T) {
	if _, err := NewAccountStore(nil, nil).FindByID(context.Background(), "x"); !errors.Is(err, errNoDB) {
		t.Fatalf("expected errNoDB, got %v", err)
	}
	if err := NewSessionStore(nil, nil).Deactivate(context.Background(), "x"); !errors.Is(err, session.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := NewAuditStore(nil).Append(context.Background(), adminauth.AuditEvent{}); !errors.Is(err, errNoDB) {
		t.Fatalf("expected errNoDB, got %v", err)
	}
}
