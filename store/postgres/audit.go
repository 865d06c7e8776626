package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/adminauth"
)

// AuditStore is an audit sink backed by the audit_events table, plus the
// read side used by administrative tooling.
type AuditStore struct {
	db *sql.DB
}

var _ adminauth.AuditSink = (*AuditStore)(nil)

// NewAuditStore wraps db.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Append inserts one event. Replays of the same event ID are ignored.
func (s *AuditStore) Append(ctx context.Context, e adminauth.AuditEvent) error {
	if s.db == nil {
		return errNoDB
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_events (id, kind, account_id, email, ip, user_agent, success, detail, occurred_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		on conflict (id) do nothing
	`, e.ID, string(e.Kind), e.AccountID, e.Email, e.IP, e.UserAgent, e.Success, e.Detail, e.Timestamp)
	return err
}

// AuditFilter narrows List. Zero fields match everything; Limit defaults
// to 100 and is capped at 1000.
type AuditFilter struct {
	AccountID string
	Kind      adminauth.AuditKind
	Since     time.Time
	Until     time.Time
	Limit     int
}

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// List returns matching events, newest first.
func (s *AuditStore) List(ctx context.Context, f AuditFilter) ([]adminauth.AuditEvent, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.AccountID != "" {
		add("account_id = $%d", f.AccountID)
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if !f.Since.IsZero() {
		add("occurred_at >= $%d", f.Since)
	}
	if !f.Until.IsZero() {
		add("occurred_at < $%d", f.Until)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	query := `select id, kind, account_id, email, ip, user_agent, success, detail, occurred_at from audit_events`
	if len(clauses) > 0 {
		query += ` where ` + strings.Join(clauses, " and ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` order by occurred_at desc, id desc limit $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]adminauth.AuditEvent, 0)
	for rows.Next() {
		var (
			e    adminauth.AuditEvent
			kind string
		)
		if err := rows.Scan(&e.ID, &kind, &e.AccountID, &e.Email, &e.IP, &e.UserAgent, &e.Success, &e.Detail, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Kind = adminauth.AuditKind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountFailedLogins counts LOGIN_FAILURE events for email since the given
// time.
func (s *AuditStore) CountFailedLogins(ctx context.Context, email string, since time.Time) (int, error) {
	if s.db == nil {
		return 0, errNoDB
	}
	var n int
	err := s.db.QueryRowContext(ctx, `
		select count(*) from audit_events
		where kind = $1 and email = $2 and occurred_at >= $3
	`, string(adminauth.AuditLoginFailure), strings.ToLower(strings.TrimSpace(email)), since).Scan(&n)
	return n, err
}

// IPCount is one row of SuspiciousIPs.
type IPCount struct {
	IP       string `json:"ip"`
	Failures int    `json:"failures"`
}

// SuspiciousIPs lists client IPs with at least threshold failed logins
// since the given time, most active first.
func (s *AuditStore) SuspiciousIPs(ctx context.Context, since time.Time, threshold int) ([]IPCount, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select ip, count(*) as failures from audit_events
		where kind = $1 and occurred_at >= $2 and ip <> ''
		group by ip
		having count(*) >= $3
		order by failures desc, ip
	`, string(adminauth.AuditLoginFailure), since, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]IPCount, 0)
	for rows.Next() {
		var c IPCount
		if err := rows.Scan(&c.IP, &c.Failures); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Purge deletes events older than cutoff.
func (s *AuditStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.db == nil {
		return 0, errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from audit_events where occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
