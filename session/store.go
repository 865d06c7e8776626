package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no active session matches.
	ErrNotFound = errors.New("session not found")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("session store unavailable")
)

// Store persists refresh-token sessions.
type Store interface {
	Save(ctx context.Context, s Session) error
	// FindActiveByTokenHash returns the active session for hash. Expiry is
	// left to the caller; see [Session.Valid].
	FindActiveByTokenHash(ctx context.Context, hash [32]byte) (Session, error)
	// Deactivate is idempotent; an unknown id is not an error.
	Deactivate(ctx context.Context, id string) error
	// DeactivateAllForAccount returns how many active sessions were closed.
	DeactivateAllForAccount(ctx context.Context, accountID string) (int, error)
	ListActiveForAccount(ctx context.Context, accountID string) ([]Session, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]Session
	byHash map[[32]byte]string
	now    func() time.Time
}

// NewMemoryStore returns an empty store. now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		byID:   make(map[string]Session),
		byHash: make(map[[32]byte]string),
		now:    now,
	}
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byID[s.ID] = s
	if s.Active {
		m.byHash[s.TokenHash] = s.ID
	}
	return nil
}

func (m *MemoryStore) FindActiveByTokenHash(_ context.Context, hash [32]byte) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byHash[hash]
	if !ok {
		return Session{}, ErrNotFound
	}
	s, ok := m.byID[id]
	if !ok || !s.Active {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return nil
	}
	s.Active = false
	m.byID[id] = s
	delete(m.byHash, s.TokenHash)
	return nil
}

func (m *MemoryStore) DeactivateAllForAccount(_ context.Context, accountID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.byID {
		if s.AccountID != accountID || !s.Active {
			continue
		}
		s.Active = false
		m.byID[id] = s
		delete(m.byHash, s.TokenHash)
		n++
	}
	return n, nil
}

func (m *MemoryStore) ListActiveForAccount(_ context.Context, accountID string) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	out := make([]Session, 0)
	for _, s := range m.byID {
		if s.AccountID == accountID && s.Valid(now) {
			out = append(out, s)
		}
	}
	sortByCreated(out)
	return out, nil
}

func sortByCreated(list []Session) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
