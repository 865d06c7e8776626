package account

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no account or role matches the lookup.
	ErrNotFound = errors.New("account: not found")
	// ErrVersionConflict is returned by Save when the stored version moved on.
	ErrVersionConflict = errors.New("account: version conflict")
	// ErrEmailTaken is returned by Create when the normalized email exists.
	ErrEmailTaken = errors.New("account: email already exists")
)

// Store persists accounts. Save must reject writes whose Version does not
// match the stored row and return the saved account with its new Version.
type Store interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, a Account) (Account, error)
	Save(ctx context.Context, a Account) (Account, error)
}

// RoleStore is the read-mostly role/permission catalogue.
type RoleStore interface {
	FindRole(ctx context.Context, name string) (Role, error)
	ActiveRoles(ctx context.Context, names []string) ([]Role, error)
	SaveRole(ctx context.Context, r Role) error
}

// DefaultSaveRetries bounds Mutate when the caller passes a non-positive value.
const DefaultSaveRetries = 3

// Mutate loads the account, applies fn and saves the result, reloading and
// re-applying fn when Save reports a version conflict. fn must be free of
// side effects other than the returned account, since it may run more than once.
func Mutate(ctx context.Context, store Store, id string, retries int, fn func(Account) (Account, error)) (Account, error) {
	if retries <= 0 {
		retries = DefaultSaveRetries
	}
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		current, err := store.FindByID(ctx, id)
		if err != nil {
			return Account{}, err
		}
		next, err := fn(current)
		if err != nil {
			return Account{}, err
		}
		next.Version = current.Version
		saved, err := store.Save(ctx, next)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return Account{}, err
		}
		lastErr = err
	}
	return Account{}, fmt.Errorf("%w: retries exhausted after %d attempts", lastErr, retries+1)
}
