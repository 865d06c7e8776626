package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store and RoleStore.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	byEmail  map[string]string
	roles    map[string]Role
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		byEmail:  make(map[string]string),
		roles:    make(map[string]Role),
		now:      time.Now,
	}
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return Account{}, ErrNotFound
	}
	return s.accounts[id].Clone(), nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a.Clone(), nil
}

func (s *MemoryStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byEmail[NormalizeEmail(email)]
	return ok, nil
}

func (s *MemoryStore) Create(_ context.Context, a Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.Email = NormalizeEmail(a.Email)
	if _, ok := s.byEmail[a.Email]; ok {
		return Account{}, ErrEmailTaken
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := s.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	a.Version = 1

	s.accounts[a.ID] = a.Clone()
	s.byEmail[a.Email] = a.ID
	return a.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, a Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[a.ID]
	if !ok {
		return Account{}, ErrNotFound
	}
	if current.Version != a.Version {
		return Account{}, ErrVersionConflict
	}
	a.Email = NormalizeEmail(a.Email)
	if a.Email != current.Email {
		if owner, taken := s.byEmail[a.Email]; taken && owner != a.ID {
			return Account{}, ErrEmailTaken
		}
		delete(s.byEmail, current.Email)
		s.byEmail[a.Email] = a.ID
	}
	a.Version = current.Version + 1
	s.accounts[a.ID] = a.Clone()
	return a.Clone(), nil
}

func (s *MemoryStore) FindRole(_ context.Context, name string) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[name]
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) ActiveRoles(_ context.Context, names []string) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Role, 0, len(names))
	for _, name := range names {
		r, ok := s.roles[name]
		if !ok || !r.Active {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *MemoryStore) SaveRole(_ context.Context, r Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.Permissions = append([]Permission(nil), r.Permissions...)
	s.roles[r.Name] = r
	return nil
}
