package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const minTTL = time.Second

// RedisStore keeps sessions in Redis:
//
//	<prefix>:s:<id>       encoded Session, expiring with the refresh token
//	<prefix>:h:<hash>     session id for an active token hash
//	<prefix>:a:<account>  set of the account's session ids
//
// Inactive sessions keep their record until expiry but lose the hash index,
// so they can no longer be found by token.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore returns a Store over client. now defaults to time.Now.
func NewRedisStore(client redis.UniversalClient, prefix string, now func() time.Time) *RedisStore {
	if prefix == "" {
		prefix = "as"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{redis: client, prefix: prefix, now: now}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":s:" + id
}

func (s *RedisStore) hashKey(h [32]byte) string {
	return s.prefix + ":h:" + HashHex(h)
}

func (s *RedisStore) accountKey(accountID string) string {
	return s.prefix + ":a:" + accountID
}

func (s *RedisStore) ttl(sess Session) time.Duration {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl < minTTL {
		return minTTL
	}
	return ttl
}

// Save writes the record, its hash index and the account index in one
// MULTI/EXEC.
func (s *RedisStore) Save(ctx context.Context, sess Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}
	ttl := s.ttl(sess)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.ID), data, ttl)
		if sess.Active {
			pipe.Set(ctx, s.hashKey(sess.TokenHash), sess.ID, ttl)
		}
		pipe.SAdd(ctx, s.accountKey(sess.AccountID), sess.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) FindActiveByTokenHash(ctx context.Context, hash [32]byte) (Session, error) {
	id, err := s.redis.Get(ctx, s.hashKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sess, err := s.get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !sess.Active || sess.TokenHash != hash {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *RedisStore) get(ctx context.Context, id string) (Session, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Decode(data)
}

func (s *RedisStore) Deactivate(ctx context.Context, id string) error {
	sess, err := s.get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if !sess.Active {
		return nil
	}
	return s.deactivate(ctx, []Session{sess}, "", nil)
}

// DeactivateAllForAccount closes every session listed in the account index.
// Only the ids that were read are removed from the index, so a session saved
// concurrently stays indexed and is closed by the next call.
func (s *RedisStore) DeactivateAllForAccount(ctx context.Context, accountID string) (int, error) {
	sessions, stale, err := s.load(ctx, accountID)
	if err != nil {
		return 0, err
	}
	active := make([]Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Active {
			active = append(active, sess)
			continue
		}
		stale = append(stale, sess.ID)
	}
	if err := s.deactivate(ctx, active, accountID, stale); err != nil {
		return 0, err
	}
	return len(active), nil
}

// deactivate rewrites each record inactive, drops its hash index and removes
// it from the account index. stale ids are removed from accountID's index.
func (s *RedisStore) deactivate(ctx context.Context, list []Session, accountID string, stale []string) error {
	encoded := make([][]byte, len(list))
	for i, sess := range list {
		sess.Active = false
		data, err := Encode(sess)
		if err != nil {
			return err
		}
		encoded[i] = data
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, sess := range list {
			pipe.Set(ctx, s.key(sess.ID), encoded[i], redis.KeepTTL)
			pipe.Del(ctx, s.hashKey(sess.TokenHash))
			pipe.SRem(ctx, s.accountKey(sess.AccountID), sess.ID)
		}
		if accountID != "" && len(stale) > 0 {
			members := make([]interface{}, len(stale))
			for i, id := range stale {
				members[i] = id
			}
			pipe.SRem(ctx, s.accountKey(accountID), members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ListActiveForAccount also prunes index members whose record is gone or
// inactive.
func (s *RedisStore) ListActiveForAccount(ctx context.Context, accountID string) ([]Session, error) {
	sessions, stale, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Valid(now) {
			out = append(out, sess)
			continue
		}
		stale = append(stale, sess.ID)
	}
	if len(stale) > 0 {
		members := make([]interface{}, len(stale))
		for i, id := range stale {
			members[i] = id
		}
		if err := s.redis.SRem(ctx, s.accountKey(accountID), members...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	sortByCreated(out)
	return out, nil
}

// load returns the decoded sessions of an account and the ids whose record
// has already expired.
func (s *RedisStore) load(ctx context.Context, accountID string) ([]Session, []string, error) {
	ids, err := s.redis.SMembers(ctx, s.accountKey(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sessions := make([]Session, 0, len(ids))
	var missing []string
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				missing = append(missing, ids[i])
				continue
			}
			return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, cmdErr)
		}
		sess, decErr := Decode(data)
		if decErr != nil {
			return nil, nil, decErr
		}
		sessions = append(sessions, sess)
	}
	return sessions, missing, nil
}

// Ping reports Redis availability and round-trip latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
