package password

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// SpecialChars is the symbol class counted by the policy.
	SpecialChars = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?"

	charsetLower   = 26
	charsetUpper   = 26
	charsetDigit   = 10
	charsetSpecial = 32

	acceptScore = 70
)

var commonPasswords = map[string]struct{}{
	"password": {}, "123456": {}, "123456789": {}, "12345678": {}, "12345": {},
	"1234567": {}, "qwerty": {}, "abc123": {}, "password123": {}, "admin": {},
	"administrator": {}, "root": {}, "toor": {}, "pass": {}, "test": {},
	"guest": {}, "user": {}, "demo": {},
}

var personalTokens = []string{"admin", "user", "test", "demo", "app"}

// Policy configures password strength rules and expiry.
type Policy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigits    bool
	RequireSpecial   bool
	MinEntropyBits   float64
	ExpirationDays   int
	// AppName is treated as a personal token when scoring.
	AppName string
}

// DefaultPolicy returns the stock policy: 12 characters, all four classes,
// 50 bits of entropy, 90 day expiry.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:        12,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigits:    true,
		RequireSpecial:   true,
		MinEntropyBits:   50,
		ExpirationDays:   90,
	}
}

// Result is the outcome of Validate.
type Result struct {
	Valid       bool
	Reason      string
	Score       int
	Entropy     float64
	Suggestions []string
}

type classes struct {
	upper, lower, digit, special bool
}

func (c classes) count() int {
	n := 0
	for _, ok := range []bool{c.upper, c.lower, c.digit, c.special} {
		if ok {
			n++
		}
	}
	return n
}

func (c classes) charset() int {
	size := 0
	if c.lower {
		size += charsetLower
	}
	if c.upper {
		size += charsetUpper
	}
	if c.digit {
		size += charsetDigit
	}
	if c.special {
		size += charsetSpecial
	}
	return size
}

func classify(pw string) classes {
	var c classes
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			c.upper = true
		case r >= 'a' && r <= 'z':
			c.lower = true
		case r >= '0' && r <= '9':
			c.digit = true
		case strings.ContainsRune(SpecialChars, r):
			c.special = true
		}
	}
	return c
}

// Entropy returns length * log2(charset) over the classes present in pw.
func Entropy(pw string) float64 {
	size := classify(pw).charset()
	if size == 0 {
		return 0
	}
	return float64(utf8.RuneCountInString(pw)) * math.Log2(float64(size))
}

// Validate scores pw. Hard rules short-circuit in order: presence, length,
// denylist, required classes. The soft score then decides acceptance
// together with the entropy floor. Validate never fails; a rejection is a
// Result with Valid false.
func (p Policy) Validate(pw string) Result {
	if strings.TrimSpace(pw) == "" {
		return Result{Reason: "Password is required"}
	}
	pw = strings.TrimSpace(pw)
	length := utf8.RuneCountInString(pw)
	score := 0

	if length < p.MinLength {
		return Result{Reason: fmt.Sprintf("Password must be at least %d characters long", p.MinLength)}
	}
	score += 20

	if _, common := commonPasswords[strings.ToLower(pw)]; common {
		return Result{
			Reason:      "Password is too common and easily guessable",
			Suggestions: []string{"Add numbers and symbols", "Combine multiple words", "Use a unique password"},
		}
	}

	c := classify(pw)
	checks := []struct {
		required bool
		present  bool
		reason   string
		hint     string
	}{
		{p.RequireUppercase, c.upper, "Password must contain at least one uppercase letter", "Add uppercase letters (A-Z)"},
		{p.RequireLowercase, c.lower, "Password must contain at least one lowercase letter", "Add lowercase letters (a-z)"},
		{p.RequireDigits, c.digit, "Password must contain at least one digit", "Add numbers (0-9)"},
		{p.RequireSpecial, c.special, "Password must contain at least one special character", "Add special characters (!@#$%^&*)"},
	}
	for _, check := range checks {
		if check.required && !check.present {
			return Result{Reason: check.reason, Score: score, Suggestions: []string{check.hint}}
		}
		if check.present {
			score += 15
		}
	}

	suggestions := make(map[string]struct{})
	entropy := Entropy(pw)
	if entropy < p.MinEntropyBits {
		addAll(suggestions, "Use a longer password", "Mix different character types", "Avoid predictable patterns")
	} else {
		score += 20
	}

	if hasRepeats(pw) {
		score -= 10
		addAll(suggestions, "Avoid repeating patterns (aaa, 123, abc)")
	}
	if hasSequence(pw) {
		score -= 10
		addAll(suggestions, "Avoid sequential characters (abc, 123, qwe)")
	}
	if p.hasPersonalTokens(pw) {
		score -= 15
		addAll(suggestions, "Avoid personal information in passwords")
	}

	if length > p.MinLength+4 {
		score += 10
	}
	if c.count() == 4 {
		score += 10
	}

	valid := score >= acceptScore && entropy >= p.MinEntropyBits
	if !valid && len(suggestions) == 0 {
		addAll(suggestions, "Create a longer, more complex password", "Use a passphrase with multiple words", "Consider using a password manager")
	}

	res := Result{
		Valid:       valid,
		Score:       min(max(score, 0), 100),
		Entropy:     entropy,
		Suggestions: sortedKeys(suggestions),
		Reason:      "Password does not meet security requirements",
	}
	if valid {
		res.Reason = "Password meets security requirements"
	}
	return res
}

// hasRepeats matches an alphanumeric run of three identical characters or
// an immediately repeated pair ("abab").
func hasRepeats(pw string) bool {
	r := []rune(pw)
	for i := 0; i+2 < len(r); i++ {
		if isAlnum(r[i]) && r[i] == r[i+1] && r[i] == r[i+2] {
			return true
		}
	}
	for i := 0; i+3 < len(r); i++ {
		if r[i] == r[i+2] && r[i+1] == r[i+3] {
			return true
		}
	}
	return false
}

// hasSequence matches three consecutive code points ascending or descending,
// case-insensitively ("abc", "CBA", "123"). The digit row also wraps ("890").
func hasSequence(pw string) bool {
	lower := strings.ToLower(pw)
	if strings.Contains(lower, "890") {
		return true
	}
	r := []rune(lower)
	for i := 0; i+2 < len(r); i++ {
		if (r[i]+1 == r[i+1] && r[i+1]+1 == r[i+2]) || (r[i]-1 == r[i+1] && r[i+1]-1 == r[i+2]) {
			return true
		}
	}
	return false
}

func (p Policy) hasPersonalTokens(pw string) bool {
	lower := strings.ToLower(pw)
	for _, token := range personalTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	if app := strings.ToLower(strings.TrimSpace(p.AppName)); app != "" && strings.Contains(lower, app) {
		return true
	}
	run := 0
	for _, r := range lower {
		if r >= '0' && r <= '9' {
			run++
			if run >= 4 {
				return true
			}
			continue
		}
		run = 0
	}
	return false
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func addAll(set map[string]struct{}, values ...string) {
	for _, v := range values {
		set[v] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
