package password

import (
	"crypto/rand"
	"math/big"
)

const (
	genUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	genLower   = "abcdefghijklmnopqrstuvwxyz"
	genDigits  = "0123456789"
	genSpecial = "!@#$%^&*()_+-=[]{}|;:,.<>?"
	genAll     = genUpper + genLower + genDigits + genSpecial
)

// Generate returns a random password of at least MinLength characters that
// contains one character from every required class. Required characters are
// seeded first and then shuffled in place.
func (p Policy) Generate(length int) (string, error) {
	if length < p.MinLength {
		length = p.MinLength
	}

	out := make([]byte, 0, length)
	for _, class := range []struct {
		required bool
		alphabet string
	}{
		{p.RequireUppercase, genUpper},
		{p.RequireLowercase, genLower},
		{p.RequireDigits, genDigits},
		{p.RequireSpecial, genSpecial},
	} {
		if !class.required {
			continue
		}
		c, err := pick(class.alphabet)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := pick(genAll)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	for i := len(out) - 1; i > 0; i-- {
		j, err := randIntn(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

func pick(alphabet string) (byte, error) {
	i, err := randIntn(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

func randIntn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
