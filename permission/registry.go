package permission

import (
	"errors"
	"sort"
	"sync"

	"github.com/MrEthical07/adminauth/account"
)

// Registry is the catalogue of permissions known to the system. It is filled
// at startup, frozen, and then read concurrently.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]account.Permission
	frozen bool
}

// NewRegistry returns an empty, unfrozen Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]account.Permission)}
}

// Register adds the resource/action permission and returns it. Must be
// called before [Registry.Freeze].
func (r *Registry) Register(resource, action, description string) (account.Permission, error) {
	p, err := account.NewPermission(resource, action, description)
	if err != nil {
		return account.Permission{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return account.Permission{}, errors.New("registry frozen")
	}
	if _, exists := r.byName[p.Name]; exists {
		return account.Permission{}, errors.New("permission already registered: " + p.Name)
	}
	r.byName[p.Name] = p
	return p, nil
}

// Lookup returns the permission registered under name.
func (r *Registry) Lookup(name string) (account.Permission, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// Permissions returns every registered permission sorted by name.
func (r *Registry) Permissions() []account.Permission {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]account.Permission, 0, len(r.byName))
	for _, p := range r.byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Count returns the number of registered permissions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
