package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2MinMemoryKB uint32 = 8 * 1024
	argon2MinSalt     uint32 = 16
	argon2MinKey      uint32 = 16
	argon2Prefix             = "$argon2id$"
)

// Argon2Params are the argon2id cost parameters. Memory is in KiB.
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params takes a few tens of milliseconds on commodity hardware.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate checks the parameters against the accepted floor.
func (p Argon2Params) Validate() error {
	switch {
	case p.Memory < argon2MinMemoryKB:
		return errors.New("argon2 memory must be >= 8192 KiB")
	case p.Time < 1:
		return errors.New("argon2 time must be >= 1")
	case p.Parallelism < 1:
		return errors.New("argon2 parallelism must be >= 1")
	case p.SaltLength < argon2MinSalt:
		return errors.New("argon2 salt length must be >= 16")
	case p.KeyLength < argon2MinKey:
		return errors.New("argon2 key length must be >= 16")
	}
	return nil
}

// Argon2 hashes into the PHC string format
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
type Argon2 struct {
	params Argon2Params
}

// NewArgon2 returns a hasher or an error for parameters below the floor.
func NewArgon2(params Argon2Params) (*Argon2, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2{params: params}, nil
}

// Hash derives a salted argon2id key for plain.
func (a *Argon2) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(plain), salt, a.params.Time, a.params.Memory, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf(
		"%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix,
		argon2.Version,
		a.params.Memory,
		a.params.Time,
		a.params.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters embedded in encoded.
func (a *Argon2) Verify(plain, encoded string) (bool, error) {
	stored, err := decodeArgon2(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(plain), stored.salt, stored.params.Time, stored.params.Memory, stored.params.Parallelism, stored.params.KeyLength)
	return subtle.ConstantTimeCompare(key, stored.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	stored, err := decodeArgon2(encoded)
	if err != nil {
		return false, err
	}
	p := stored.params
	return a.params.Memory > p.Memory ||
		a.params.Time > p.Time ||
		a.params.Parallelism > p.Parallelism ||
		a.params.KeyLength != p.KeyLength, nil
}

// Handles reports whether encoded is an argon2id PHC string.
func (a *Argon2) Handles(encoded string) bool {
	return strings.HasPrefix(encoded, argon2Prefix)
}

type argon2Hash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func decodeArgon2(encoded string) (argon2Hash, error) {
	var out argon2Hash

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return out, ErrMalformedHash
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") || version != argon2.Version {
		return out, fmt.Errorf("%w: unsupported argon2 version", ErrMalformedHash)
	}
	if err := parseArgon2Params(parts[3], &out.params); err != nil {
		return out, err
	}

	out.salt, err = base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(out.salt) < int(argon2MinSalt) {
		return out, fmt.Errorf("%w: invalid salt", ErrMalformedHash)
	}
	out.key, err = base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(out.key) == 0 {
		return out, fmt.Errorf("%w: invalid key", ErrMalformedHash)
	}
	out.params.SaltLength = uint32(len(out.salt))
	out.params.KeyLength = uint32(len(out.key))
	return out, nil
}

func parseArgon2Params(part string, p *Argon2Params) error {
	var seen uint8
	for _, pair := range strings.Split(part, ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: invalid parameter %q", ErrMalformedHash, pair)
		}
		bits := 32
		if name == "p" {
			bits = 8
		}
		v, err := strconv.ParseUint(raw, 10, bits)
		if err != nil || v == 0 {
			return fmt.Errorf("%w: invalid parameter %q", ErrMalformedHash, pair)
		}
		switch name {
		case "m":
			if uint32(v) < argon2MinMemoryKB {
				return fmt.Errorf("%w: memory below floor", ErrMalformedHash)
			}
			p.Memory = uint32(v)
			seen |= 1
		case "t":
			p.Time = uint32(v)
			seen |= 2
		case "p":
			p.Parallelism = uint8(v)
			seen |= 4
		default:
			return fmt.Errorf("%w: unsupported parameter %q", ErrMalformedHash, name)
		}
	}
	if seen != 7 {
		return fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}
	return nil
}
