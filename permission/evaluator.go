package permission

import (
	"sort"
	"strings"
)

const rolePrefix = "ROLE_"

// Set is an immutable set of upper-case names.
type Set struct {
	names map[string]struct{}
}

// NewSet builds a Set. Names are trimmed and upper-cased; blanks are dropped.
func NewSet(names ...string) Set {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		m[n] = struct{}{}
	}
	return Set{names: m}
}

// Has reports membership. name is upper-cased before the lookup.
func (s Set) Has(name string) bool {
	_, ok := s.names[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int { return len(s.names) }

// Names returns the members in sorted order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Principal is the authenticated caller as resolved from an access token.
type Principal struct {
	ID          string
	Email       string
	Name        string
	Roles       Set
	Permissions Set
}

// NewPrincipal resolves role and permission names into sets once so that
// per-request checks are map lookups.
func NewPrincipal(id, email, name string, roles, permissions []string) Principal {
	return Principal{
		ID:          id,
		Email:       email,
		Name:        name,
		Roles:       NewSet(roles...),
		Permissions: NewSet(permissions...),
	}
}

// Authenticated reports whether the principal carries an identity.
func (p Principal) Authenticated() bool { return p.ID != "" }

// HasPermission reports whether the principal holds name (case-insensitive).
func (p Principal) HasPermission(name string) bool {
	return p.Permissions.Has(name)
}

// HasAnyPermission reports whether at least one name is held.
func (p Principal) HasAnyPermission(names ...string) bool {
	for _, n := range names {
		if p.HasPermission(n) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every name is held. An empty list is
// never satisfied.
func (p Principal) HasAllPermissions(names ...string) bool {
	if len(names) == 0 {
		return false
	}
	for _, n := range names {
		if !p.HasPermission(n) {
			return false
		}
	}
	return true
}

// HasRole accepts both "ADMIN" and "ROLE_ADMIN".
func (p Principal) HasRole(name string) bool {
	return p.Roles.Has(RoleName(name))
}

// HasAnyRole reports whether at least one role is held.
func (p Principal) HasAnyRole(names ...string) bool {
	for _, n := range names {
		if p.HasRole(n) {
			return true
		}
	}
	return false
}

// RoleName adds the ROLE_ prefix when it is missing.
func RoleName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" || strings.HasPrefix(name, rolePrefix) {
		return name
	}
	return rolePrefix + name
}

// Requirement is a capability a request needs. A Requirement without a
// Resource names a bare permission in Action.
type Requirement struct {
	Resource string
	Action   string
	// TargetID is the id of the account being acted on, when there is one.
	TargetID string
}

// Need builds a resource/action requirement.
func Need(resource, action string) Requirement {
	return Requirement{Resource: resource, Action: action}
}

// Named builds a bare permission-name requirement.
func Named(name string) Requirement {
	return Requirement{Action: name}
}

// On returns a copy of r aimed at the given target id.
func (r Requirement) On(targetID string) Requirement {
	r.TargetID = targetID
	return r
}

// Permission returns the RESOURCE_ACTION name, or the bare action.
func (r Requirement) Permission() string {
	action := strings.ToUpper(strings.TrimSpace(r.Action))
	resource := strings.ToUpper(strings.TrimSpace(r.Resource))
	if resource == "" {
		return action
	}
	return resource + "_" + action
}

func (r Requirement) String() string {
	if r.TargetID == "" {
		return r.Permission()
	}
	return r.Permission() + " on " + strings.ToLower(strings.TrimSpace(r.Resource)) + ":" + r.TargetID
}

// Evaluator decides Requirements against Principals. It holds no state and
// never touches a store; the zero value is ready to use.
type Evaluator struct{}

// Allowed grants when the principal holds the full RESOURCE_ACTION name, or
// the generic ACTION name, or when an account acts on its own user record
// with READ or WRITE.
func (Evaluator) Allowed(p Principal, r Requirement) bool {
	action := strings.ToUpper(strings.TrimSpace(r.Action))
	if !p.Authenticated() || action == "" {
		return false
	}
	if p.HasPermission(r.Permission()) || p.HasPermission(action) {
		return true
	}
	return selfAccess(p, r, action)
}

func selfAccess(p Principal, r Requirement, action string) bool {
	switch strings.ToLower(strings.TrimSpace(r.Resource)) {
	case "user", "users":
	default:
		return false
	}
	if action != "READ" && action != "WRITE" {
		return false
	}
	return r.TargetID != "" && r.TargetID == p.ID
}
