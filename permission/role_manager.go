package permission

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/MrEthical07/adminauth/account"
)

// RoleManager holds role definitions built from a Registry. Like the
// registry it is configured during initialization and treated as immutable
// once frozen.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]account.Role
	frozen bool
}

// NewRoleManager returns a RoleManager resolving permission names through registry.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]account.Role),
	}
}

// RegisterRole defines an active role granting the named permissions. Every
// permission must already be registered.
func (rm *RoleManager) RegisterRole(name, description string, permissionNames ...string) (account.Role, error) {
	if !account.ValidRoleName(name) {
		return account.Role{}, fmt.Errorf("invalid role name %q", name)
	}

	perms := make([]account.Permission, 0, len(permissionNames))
	for _, pn := range permissionNames {
		p, ok := rm.registry.Lookup(pn)
		if !ok {
			return account.Role{}, errors.New("permission not registered: " + pn)
		}
		perms = append(perms, p)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return account.Role{}, errors.New("role manager frozen")
	}
	if _, exists := rm.roles[name]; exists {
		return account.Role{}, errors.New("role already registered")
	}

	role := account.Role{Name: name, Description: description, Active: true, Permissions: perms}
	rm.roles[name] = role
	return role, nil
}

// Role returns the definition registered under name.
func (rm *RoleManager) Role(name string) (account.Role, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r, ok := rm.roles[name]
	return r, ok
}

// Roles returns every definition sorted by name.
func (rm *RoleManager) Roles() []account.Role {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	out := make([]account.Role, 0, len(rm.roles))
	for _, r := range rm.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Freeze prevents further registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of defined roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
