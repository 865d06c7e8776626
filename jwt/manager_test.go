package jwt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "unit-test-secret-unit-test-secret-0123"

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Secret:     []byte(testSecret),
		Issuer:     "adminauth",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func subject() Subject {
	return Subject{
		ID:          "acc-1",
		Email:       "ops@example.com",
		Name:        "Ops Person",
		Roles:       []string{"ROLE_ADMIN"},
		Permissions: []string{"USERS_READ", "USERS_WRITE"},
	}
}

func TestIssueAccessRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock)

	tok, err := m.Issue(KindAccess, subject())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "acc-1" || claims.Type != KindAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Email != "ops@example.com" || claims.Name != "Ops Person" {
		t.Fatalf("unexpected identity claims: %+v", claims)
	}
	if len(claims.Roles) != 1 || len(claims.Permissions) != 2 {
		t.Fatalf("unexpected authorization claims: %+v", claims)
	}
	if m.TypeOf(tok) != KindAccess {
		t.Fatal("expected access type")
	}
	if perms, _ := m.PermissionsOf(tok); perms[0] != "USERS_READ" {
		t.Fatalf("unexpected permissions: %v", perms)
	}
}

func TestClaimNamesOnTheWire(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock)

	tok, err := m.IssueAccess(subject())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(tok, ".")
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	for _, name := range []string{"sub", "email", "name", "type", "roles", "permissions", "iss", "iat", "exp"} {
		if _, ok := payload[name]; !ok {
			t.Fatalf("missing claim %q in %v", name, payload)
		}
	}

	refresh, err := m.IssueRefresh(subject())
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	raw, _ = base64.RawURLEncoding.DecodeString(strings.Split(refresh, ".")[1])
	payload = map[string]any{}
	_ = json.Unmarshal(raw, &payload)
	if payload["type"] != "refresh" {
		t.Fatalf("expected refresh type, got %v", payload["type"])
	}
	if _, ok := payload["roles"]; ok {
		t.Fatal("refresh tokens must not carry roles")
	}
}

func TestTamperedSignatureIsInvalid(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock)

	tok, _ := m.IssueAccess(subject())
	// Flip the first signature character; the last one carries padding bits.
	i := strings.LastIndex(tok, ".") + 1
	replacement := byte('A')
	if tok[i] == 'A' {
		replacement = 'B'
	}
	tampered := tok[:i] + string(replacement) + tok[i+1:]

	if _, err := m.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if m.TypeOf(tampered) != "" {
		t.Fatal("expected empty type for tampered token")
	}
}

func TestSignaturePaddingBitsAreChecked(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock)

	tok, err := m.IssueAccess(subject())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	// A 32-byte HS256 signature leaves two unused bits in its last
	// character; flipping one keeps the decoded bytes identical.
	last := strings.IndexByte(alphabet, tok[len(tok)-1])
	if last < 0 {
		t.Fatalf("unexpected signature character %q", tok[len(tok)-1])
	}
	tampered := tok[:len(tok)-1] + string(alphabet[last^1])

	if _, err := m.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for altered padding bits, got %v", err)
	}
	if _, err := m.Verify(tok); err != nil {
		t.Fatalf("original token must still verify: %v", err)
	}
}

func TestExpiredTokenIsInvalid(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock)

	tok, _ := m.IssueAccess(subject())
	clock.now = clock.now.Add(16 * time.Minute)
	if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestRefreshTokensAreDistinct(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock)

	a, _ := m.IssueRefresh(subject())
	b, _ := m.IssueRefresh(subject())
	if a == b {
		t.Fatal("expected distinct refresh tokens")
	}
	if !m.CanRefresh(a) {
		t.Fatal("expected refresh token to be refreshable")
	}
	access, _ := m.IssueAccess(subject())
	if m.CanRefresh(access) {
		t.Fatal("access token must not be refreshable")
	}
	if _, err := m.VerifyKind(access, KindRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsOtherAlgorithmsAndSecrets(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, clock)

	claims := Claims{
		Email: "x@y.z",
		Type:  KindAccess,
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "acc-1",
			Issuer:    "adminauth",
			ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
		},
	}
	hs384, err := gjwt.NewWithClaims(gjwt.SigningMethodHS384, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Verify(hs384); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected HS384 rejection, got %v", err)
	}

	other, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("another-secret-another-secret-0000"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Verify(other); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign secret rejection, got %v", err)
	}
}

func TestVerifySecretsAcceptRetiredKey(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	oldSecret := []byte("retired-secret-retired-secret-000000")
	old, err := NewManager(Config{Secret: oldSecret, KeyID: "k0", AccessTTL: time.Minute, RefreshTTL: time.Hour, Now: clock.Now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	tok, _ := old.IssueAccess(subject())

	current, err := NewManager(Config{
		Secret:        []byte(testSecret),
		KeyID:         "k1",
		VerifySecrets: map[string][]byte{"k0": oldSecret},
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := current.Verify(tok); err != nil {
		t.Fatalf("expected retired key to verify: %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []Config{
		{Secret: []byte("short"), AccessTTL: time.Minute, RefreshTTL: time.Hour},
		{Secret: []byte(testSecret), AccessTTL: 0, RefreshTTL: time.Hour},
		{Secret: []byte(testSecret), AccessTTL: time.Hour, RefreshTTL: time.Minute},
		{Secret: []byte(testSecret), AccessTTL: time.Minute, RefreshTTL: time.Hour, Leeway: time.Hour},
		{Secret: []byte(testSecret), AccessTTL: time.Minute, RefreshTTL: time.Hour, VerifySecrets: map[string][]byte{"": []byte(testSecret)}},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
