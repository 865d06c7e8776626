package password

import (
	"errors"
	"strings"
	"testing"
)

func testParams() Argon2Params {
	return Argon2Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestArgon2HashAndVerify(t *testing.T) {
	hasher, err := NewArgon2(testParams())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	hash, err := hasher.Hash("Tr0ub4dor&3xyz!!")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("Tr0ub4dor&3xyz!!", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = hasher.Verify("Tr0ub4dor&3xyz!?", hash)
	if err != nil || ok {
		t.Fatalf("expected verification to fail, ok=%v err=%v", ok, err)
	}
}

func TestArgon2ShortInputsHash(t *testing.T) {
	hasher, err := NewArgon2(testParams())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	for _, plain := range []string{"x", "pw", "ünï"} {
		hash, err := hasher.Hash(plain)
		if err != nil {
			t.Fatalf("Hash(%q) error: %v", plain, err)
		}
		if ok, _ := hasher.Verify(plain, hash); !ok {
			t.Fatalf("round trip failed for %q", plain)
		}
	}
	if _, err := hasher.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestArgon2RejectsWeakParams(t *testing.T) {
	p := testParams()
	p.Memory = 1024
	if _, err := NewArgon2(p); err == nil {
		t.Fatal("expected memory floor error")
	}
	p = testParams()
	p.SaltLength = 8
	if _, err := NewArgon2(p); err == nil {
		t.Fatal("expected salt length error")
	}
}

func TestArgon2MalformedHashes(t *testing.T) {
	hasher, _ := NewArgon2(testParams())
	cases := []string{
		"",
		"plain",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
	}
	for _, encoded := range cases {
		if _, err := hasher.Verify("pw", encoded); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("Verify(%q): expected ErrMalformedHash, got %v", encoded, err)
		}
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	weak, _ := NewArgon2(testParams())
	hash, err := weak.Hash("upgrade-me")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	stronger := testParams()
	stronger.Time = 2
	strong, _ := NewArgon2(stronger)

	if up, err := strong.NeedsUpgrade(hash); err != nil || !up {
		t.Fatalf("expected upgrade, got %v %v", up, err)
	}
	if up, err := weak.NeedsUpgrade(hash); err != nil || up {
		t.Fatalf("expected no upgrade, got %v %v", up, err)
	}
}

func TestMultiVerifiesLegacyBcrypt(t *testing.T) {
	primary, _ := NewArgon2(testParams())
	legacy, err := NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	m := &Multi{Primary: primary, Legacy: []Hasher{legacy}}

	old, err := legacy.Hash("imported-secret")
	if err != nil {
		t.Fatalf("bcrypt hash error: %v", err)
	}
	if ok, err := m.Verify("imported-secret", old); err != nil || !ok {
		t.Fatalf("expected legacy verify, ok=%v err=%v", ok, err)
	}
	if up, _ := m.NeedsUpgrade(old); !up {
		t.Fatal("expected legacy hash to need an upgrade")
	}

	fresh, err := m.Hash("imported-secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !primary.Handles(fresh) {
		t.Fatalf("expected argon2id output, got %s", fresh)
	}
	if up, _ := m.NeedsUpgrade(fresh); up {
		t.Fatal("fresh primary hash must not need an upgrade")
	}
	if _, err := m.Verify("x", "$md5$nope"); !errors.Is(err, ErrMalformedHash) {
		t.Fatalf("expected ErrMalformedHash for unknown scheme, got %v", err)
	}
}
