package password

import (
	"strings"
	"testing"
	"time"
)

func TestValidateAcceptsStrongPassword(t *testing.T) {
	res := DefaultPolicy().Validate("Tr0ub4dor&3xyz!!")
	if !res.Valid {
		t.Fatalf("expected valid, got %+v", res)
	}
	if res.Score != 100 {
		t.Fatalf("expected score 100, got %d", res.Score)
	}
	if !contains(res.Suggestions, "Avoid sequential characters (abc, 123, qwe)") {
		t.Fatalf("expected sequence suggestion for xyz, got %v", res.Suggestions)
	}
}

func TestValidateHardRules(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		name   string
		pw     string
		reason string
	}{
		{"empty", "   ", "Password is required"},
		{"short", "password", "Password must be at least 12 characters long"},
		{"common", "Password123", "Password must be at least 12 characters long"},
		{"no upper", "aaaaaaaaaaaa", "Password must contain at least one uppercase letter"},
		{"no lower", "ABCDEFGH1234!", "Password must contain at least one lowercase letter"},
		{"no digit", "Abcdefghijk!!", "Password must contain at least one digit"},
		{"no special", "Abcdefghijk12", "Password must contain at least one special character"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := p.Validate(tc.pw)
			if res.Valid {
				t.Fatalf("expected invalid for %q", tc.pw)
			}
			if res.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, res.Reason)
			}
		})
	}
}

func TestValidateDenylistIsCaseInsensitive(t *testing.T) {
	p := DefaultPolicy()
	p.MinLength = 4
	res := p.Validate("PassWord")
	if res.Valid || res.Reason != "Password is too common and easily guessable" {
		t.Fatalf("expected denylist rejection, got %+v", res)
	}
	if len(res.Suggestions) != 3 {
		t.Fatalf("expected three suggestions, got %v", res.Suggestions)
	}
}

func TestValidateRepeatsFailSoftScore(t *testing.T) {
	p := Policy{MinLength: 12, MinEntropyBits: 50}
	res := p.Validate("aaaaaaaaaaaa")
	if res.Valid {
		t.Fatalf("expected invalid, got %+v", res)
	}
	if !contains(res.Suggestions, "Avoid repeating patterns (aaa, 123, abc)") {
		t.Fatalf("expected repeat suggestion, got %v", res.Suggestions)
	}
}

func TestValidatePersonalTokensPenalised(t *testing.T) {
	p := DefaultPolicy()
	res := p.Validate("Admin#Secure9x")
	if !res.Valid || res.Score != 95 {
		t.Fatalf("expected valid with score 95, got %+v", res)
	}
	if !contains(res.Suggestions, "Avoid personal information in passwords") {
		t.Fatalf("expected personal info suggestion, got %v", res.Suggestions)
	}

	p.AppName = "Herbarium"
	if res := p.Validate("Qz!herbarium7K"); !contains(res.Suggestions, "Avoid personal information in passwords") {
		t.Fatalf("expected app name penalty, got %v", res.Suggestions)
	}
}

func TestValidateLowEntropy(t *testing.T) {
	p := Policy{MinLength: 12, MinEntropyBits: 80}
	res := p.Validate("qwzrtkvbnmlp")
	if res.Valid {
		t.Fatalf("expected entropy rejection, got %+v", res)
	}
	if !contains(res.Suggestions, "Use a longer password") {
		t.Fatalf("expected entropy suggestions, got %v", res.Suggestions)
	}
}

func TestGenerateSatisfiesPolicy(t *testing.T) {
	p := DefaultPolicy()
	for i := 0; i < 50; i++ {
		pw, err := p.Generate(8)
		if err != nil {
			t.Fatalf("Generate error: %v", err)
		}
		if len(pw) != p.MinLength {
			t.Fatalf("expected length clamped to %d, got %d", p.MinLength, len(pw))
		}
		c := classify(pw)
		if !c.upper || !c.lower || !c.digit || !c.special {
			t.Fatalf("missing a required class in %q", pw)
		}
		if res := p.Validate(pw); !res.Valid {
			t.Fatalf("generated password %q rejected: %+v", pw, res)
		}
	}

	long, err := p.Generate(40)
	if err != nil || len(long) != 40 {
		t.Fatalf("expected 40 characters, got %d (%v)", len(long), err)
	}
}

func TestExpiryHelpers(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := DefaultPolicy()
	exp := p.ExpiryFor(now)
	if !exp.Equal(now.Add(90 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", exp)
	}
	if IsExpired(&exp, now) || !IsExpired(&exp, exp.Add(time.Second)) || IsExpired(nil, now) {
		t.Fatal("unexpected IsExpired result")
	}
	soon := now.Add(5*24*time.Hour + time.Hour)
	if DaysUntilExpiry(&soon, now) != 5 || !ExpiringSoon(&soon, now, 7) || ExpiringSoon(&soon, now, 3) {
		t.Fatal("unexpected expiring-soon evaluation")
	}
	past := now.Add(-time.Hour)
	if DaysUntilExpiry(&past, now) != 0 || ExpiringSoon(&past, now, 7) {
		t.Fatal("expired password is not expiring soon")
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
