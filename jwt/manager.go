package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind is the value of the "type" claim.
type Kind string

const (
	// KindAccess marks a short-lived, self-contained access token.
	KindAccess Kind = "access"
	// KindRefresh marks a refresh token backed by a server-side session.
	KindRefresh Kind = "refresh"
)

const minSecretBytes = 32

// ErrInvalidToken covers bad signatures, wrong algorithms, malformed input and
// expiry alike.
var ErrInvalidToken = errors.New("invalid or expired token")

// Config configures the HS256 token service.
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
	// KeyID is stamped into the header of new tokens. VerifySecrets, keyed by
	// kid, lets tokens signed with a retired secret verify until they expire.
	KeyID         string
	VerifySecrets map[string][]byte
	Now           func() time.Time
}

// Claims is the token payload. Roles and Permissions are only set on access tokens.
type Claims struct {
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Type        Kind     `json:"type"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Subject is the identity a token is minted for.
type Subject struct {
	ID          string
	Email       string
	Name        string
	Roles       []string
	Permissions []string
}

// Manager issues and verifies access and refresh tokens.
type Manager struct {
	config Config
	parser *jwt.Parser
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("jwt ttl must be > 0")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("jwt refresh ttl must be >= access ttl")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt leeway must be within [0, 2m]")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, secret := range cfg.VerifySecrets {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("jwt verify secret map contains empty kid")
		}
		if len(secret) < minSecretBytes {
			return nil, errors.New("jwt verify secret must be at least 32 bytes")
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Now),
		// Rejects signatures whose unused trailing bits are set.
		jwt.WithStrictDecoding(),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}

	return &Manager{config: cfg, parser: jwt.NewParser(options...)}, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// Issue mints a token of the given kind.
func (m *Manager) Issue(kind Kind, s Subject) (string, error) {
	switch kind {
	case KindAccess:
		return m.IssueAccess(s)
	case KindRefresh:
		return m.IssueRefresh(s)
	default:
		return "", errors.New("unknown token kind")
	}
}

// IssueAccess embeds the subject's roles and permissions so per-request
// authorization needs no store lookup.
func (m *Manager) IssueAccess(s Subject) (string, error) {
	now := m.config.Now()
	claims := Claims{
		Email:       s.Email,
		Name:        s.Name,
		Type:        KindAccess,
		Roles:       nonNil(s.Roles),
		Permissions: nonNil(s.Permissions),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
		},
	}
	return m.sign(claims)
}

// IssueRefresh mints a refresh token. The jti keeps tokens minted within the
// same second distinct, since their hashes key sessions.
func (m *Manager) IssueRefresh(s Subject) (string, error) {
	now := m.config.Now()
	claims := Claims{
		Email: s.Email,
		Type:  KindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   s.ID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.RefreshTTL)),
		},
	}
	return m.sign(claims)
}

func (m *Manager) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}
	return token.SignedString(m.config.Secret)
}

// Verify checks signature, algorithm, issuer and expiry. Every failure maps
// to ErrInvalidToken.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}
	token, err := m.parser.ParseWithClaims(tokenStr, &Claims{}, m.keyFor)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	switch claims.Type {
	case KindAccess, KindRefresh:
	default:
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) keyFor(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, errors.New("unexpected signing algorithm")
	}
	kid, _ := t.Header["kid"].(string)
	if kid == "" || kid == m.config.KeyID {
		return m.config.Secret, nil
	}
	if secret, ok := m.config.VerifySecrets[kid]; ok {
		return secret, nil
	}
	return nil, errors.New("unknown kid")
}

// VerifyKind is Verify plus a type check.
func (m *Manager) VerifyKind(tokenStr string, kind Kind) (*Claims, error) {
	claims, err := m.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type != kind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TypeOf returns the token kind, or "" for an invalid token.
func (m *Manager) TypeOf(tokenStr string) Kind {
	claims, err := m.Verify(tokenStr)
	if err != nil {
		return ""
	}
	return claims.Type
}

// SubjectOf returns the sub claim of a valid token.
func (m *Manager) SubjectOf(tokenStr string) (string, error) {
	claims, err := m.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// RolesOf returns the role names of a valid token.
func (m *Manager) RolesOf(tokenStr string) ([]string, error) {
	claims, err := m.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	return claims.Roles, nil
}

// PermissionsOf returns the permission names of a valid token.
func (m *Manager) PermissionsOf(tokenStr string) ([]string, error) {
	claims, err := m.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	return claims.Permissions, nil
}

// ExpiresAt returns the exp claim of a valid token.
func (m *Manager) ExpiresAt(tokenStr string) (time.Time, error) {
	claims, err := m.Verify(tokenStr)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}

// CanRefresh reports whether tokenStr is a valid refresh token.
func (m *Manager) CanRefresh(tokenStr string) bool {
	_, err := m.VerifyKind(tokenStr, KindRefresh)
	return err == nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
