package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/adminauth/session"
)

// SessionStore persists refresh-token sessions. Token hashes are stored as
// bytea; a partial unique index keeps active hashes distinct.
type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ session.Store = (*SessionStore)(nil)

// NewSessionStore wraps db. now defaults to time.Now.
func NewSessionStore(db *sql.DB, now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{db: db, now: now}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
}

func (s *SessionStore) Save(ctx context.Context, sess session.Session) error {
	if s.db == nil {
		return unavailable(errNoDB)
	}
	_, err := s.db.ExecContext(ctx, `
		insert into sessions (id, account_id, token_hash, ip, user_agent, created_at, expires_at, active)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		on conflict (id) do update set active = excluded.active, expires_at = excluded.expires_at
	`, sess.ID, sess.AccountID, sess.TokenHash[:], sess.IP, sess.UserAgent, sess.CreatedAt, sess.ExpiresAt, sess.Active)
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func scanSession(row interface{ Scan(...any) error }) (session.Session, error) {
	var (
		sess session.Session
		hash []byte
	)
	if err := row.Scan(&sess.ID, &sess.AccountID, &hash, &sess.IP, &sess.UserAgent,
		&sess.CreatedAt, &sess.ExpiresAt, &sess.Active); err != nil {
		return session.Session{}, err
	}
	if len(hash) != len(sess.TokenHash) {
		return session.Session{}, fmt.Errorf("session %s: token hash has %d bytes", sess.ID, len(hash))
	}
	copy(sess.TokenHash[:], hash)
	return sess, nil
}

func (s *SessionStore) FindActiveByTokenHash(ctx context.Context, hash [32]byte) (session.Session, error) {
	if s.db == nil {
		return session.Session{}, unavailable(errNoDB)
	}
	sess, err := scanSession(s.db.QueryRowContext(ctx, `
		select id, account_id, token_hash, ip, user_agent, created_at, expires_at, active
		from sessions
		where token_hash = $1 and active
	`, hash[:]))
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, unavailable(err)
	}
	return sess, nil
}

func (s *SessionStore) Deactivate(ctx context.Context, id string) error {
	if s.db == nil {
		return unavailable(errNoDB)
	}
	if _, err := s.db.ExecContext(ctx, `update sessions set active = false where id = $1`, id); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *SessionStore) DeactivateAllForAccount(ctx context.Context, accountID string) (int, error) {
	if s.db == nil {
		return 0, unavailable(errNoDB)
	}
	res, err := s.db.ExecContext(ctx, `update sessions set active = false where account_id = $1 and active`, accountID)
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	return int(n), nil
}

func (s *SessionStore) ListActiveForAccount(ctx context.Context, accountID string) ([]session.Session, error) {
	if s.db == nil {
		return nil, unavailable(errNoDB)
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, account_id, token_hash, ip, user_agent, created_at, expires_at, active
		from sessions
		where account_id = $1 and active and expires_at > $2
		order by created_at, id
	`, accountID, s.now())
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	out := make([]session.Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

// PurgeExpired deletes sessions that are inactive or expired before cutoff
// and returns how many rows went.
func (s *SessionStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.db == nil {
		return 0, unavailable(errNoDB)
	}
	res, err := s.db.ExecContext(ctx, `delete from sessions where expires_at < $1 or (not active and created_at < $1)`, cutoff)
	if err != nil {
		return 0, unavailable(err)
	}
	return res.RowsAffected()
}
