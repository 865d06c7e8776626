package account

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	rolePattern     = regexp.MustCompile(`^ROLE_[A-Z_]+$`)
	resourcePattern = regexp.MustCompile(`^[a-z_]+$`)
)

// Permission is an atomic capability identified by its resource/action pair.
type Permission struct {
	Name        string
	Resource    string
	Action      string
	Description string
}

// NewPermission derives the permission name from resource and action.
func NewPermission(resource, action, description string) (Permission, error) {
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))
	if !resourcePattern.MatchString(resource) {
		return Permission{}, errors.New("permission resource must contain only lowercase letters and underscores")
	}
	if !resourcePattern.MatchString(action) {
		return Permission{}, errors.New("permission action must contain only lowercase letters and underscores")
	}
	return Permission{
		Name:        PermissionName(resource, action),
		Resource:    resource,
		Action:      action,
		Description: description,
	}, nil
}

// PermissionName returns the canonical RESOURCE_ACTION name.
func PermissionName(resource, action string) string {
	return strings.ToUpper(resource) + "_" + strings.ToUpper(action)
}

// Role is a named bundle of permissions.
type Role struct {
	Name        string
	Description string
	Active      bool
	Permissions []Permission
}

// ValidRoleName reports whether name matches ROLE_[A-Z_]+.
func ValidRoleName(name string) bool {
	return rolePattern.MatchString(name)
}

// PermissionNames returns the sorted permission names granted by the role.
func (r Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Account is the identity record of an operator.
//
// Accounts are passed by value through the lifecycle transitions; stores own
// the persisted copy and detect concurrent writers through Version.
type Account struct {
	ID                string
	Email             string
	PasswordHash      string
	FirstName         string
	LastName          string
	Enabled           bool
	Locked            bool
	FailedAttempts    int
	LockedUntil       *time.Time
	PasswordExpiresAt *time.Time
	LastLoginAt       *time.Time
	Roles             []Role
	CreatedBy         string
	UpdatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int64
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FullName joins first and last name, falling back to the email.
func (a Account) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
	if name == "" {
		return a.Email
	}
	return name
}

// RoleNames returns the sorted names of the account's active roles.
func (a Account) RoleNames() []string {
	names := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		if !r.Active {
			continue
		}
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

// PermissionNames returns the de-duplicated, sorted permission names granted
// through the account's active roles.
func (a Account) PermissionNames() []string {
	seen := make(map[string]struct{})
	for _, r := range a.Roles {
		if !r.Active {
			continue
		}
		for _, p := range r.Permissions {
			seen[p.Name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasRole reports whether the account holds the named role.
func (a Account) HasRole(name string) bool {
	for _, r := range a.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (a Account) Clone() Account {
	out := a
	out.LockedUntil = cloneTime(a.LockedUntil)
	out.PasswordExpiresAt = cloneTime(a.PasswordExpiresAt)
	out.LastLoginAt = cloneTime(a.LastLoginAt)
	if a.Roles != nil {
		out.Roles = make([]Role, len(a.Roles))
		for i, r := range a.Roles {
			out.Roles[i] = r
			if r.Permissions != nil {
				out.Roles[i].Permissions = append([]Permission(nil), r.Permissions...)
			}
		}
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
