// Package auth hashes initial account passwords and grades their strength.
// Strength problems are advisory in non-interactive mode; the caller decides
// whether to enforce them.
package auth

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a plaintext password into a crypt string suitable for a
// configuration seed.
type Hasher interface {
	Hash(password string) (string, error)
}

type bcryptHasher struct {
	cost int
}

// NewHasher returns a bcrypt-backed Hasher.
func NewHasher() Hasher {
	return &bcryptHasher{cost: bcrypt.DefaultCost}
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Strength grades a password.
type Strength int

const (
	StrengthWeak Strength = iota
	StrengthFair
	StrengthStrong
)

// MinPasswordLength is the advisory lower bound for passwords.
const MinPasswordLength = 8

// Evaluate grades a password by length and character class coverage.
func Evaluate(password string) Strength {
	if len(password) < MinPasswordLength {
		return StrengthWeak
	}

	var lower, upper, digit, other bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}

	classes := 0
	for _, present := range []bool{lower, upper, digit, other} {
		if present {
			classes++
		}
	}
	if classes >= 3 {
		return StrengthStrong
	}
	return StrengthFair
}
