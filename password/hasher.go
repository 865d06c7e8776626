package password

import "errors"

var (
	// ErrEmptyPassword is returned when hashing an empty string.
	ErrEmptyPassword = errors.New("password: empty input")
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("password: malformed hash")
)

// Hasher is a slow, salted one-way function.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
	NeedsUpgrade(encoded string) (bool, error)
	Handles(encoded string) bool
}

// Multi hashes with Primary and verifies with whichever hasher recognises the
// stored encoding. Hashes owned by a legacy hasher always need an upgrade.
type Multi struct {
	Primary Hasher
	Legacy  []Hasher
}

var _ Hasher = (*Multi)(nil)

func (m *Multi) Hash(plain string) (string, error) {
	return m.Primary.Hash(plain)
}

func (m *Multi) Verify(plain, encoded string) (bool, error) {
	h, _, err := m.owner(encoded)
	if err != nil {
		return false, err
	}
	return h.Verify(plain, encoded)
}

func (m *Multi) NeedsUpgrade(encoded string) (bool, error) {
	h, legacy, err := m.owner(encoded)
	if err != nil {
		return false, err
	}
	if legacy {
		return true, nil
	}
	return h.NeedsUpgrade(encoded)
}

func (m *Multi) Handles(encoded string) bool {
	_, _, err := m.owner(encoded)
	return err == nil
}

func (m *Multi) owner(encoded string) (Hasher, bool, error) {
	if m.Primary.Handles(encoded) {
		return m.Primary, false, nil
	}
	for _, h := range m.Legacy {
		if h.Handles(encoded) {
			return h, true, nil
		}
	}
	return nil, false, ErrMalformedHash
}
