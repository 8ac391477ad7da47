package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// PasswordChecker compares passwords so that an unknown account costs the same
// bcrypt work as a known account with a wrong password.
type PasswordChecker struct {
	placeholder []byte
}

// NewPasswordChecker returns a checker whose placeholder hash uses cost. The
// placeholder is hashed here so no login pays for generating it.
func NewPasswordChecker(cost int) *PasswordChecker {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte("rserve-placeholder-password"), cost)
	if err != nil {
		h = []byte("$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva")
	}
	return &PasswordChecker{placeholder: h}
}

// Check reports whether plain matches hashed. An empty hashed means no
// account was found; the comparison still runs against a placeholder.
func (p *PasswordChecker) Check(hashed, plain string) bool {
	target := []byte(hashed)
	known := 1
	if hashed == "" {
		target = p.placeholder
		known = 0
	}
	match := 0
	if bcrypt.CompareHashAndPassword(target, []byte(plain)) == nil {
		match = 1
	}
	return subtle.ConstantTimeEq(int32(known&match), 1) == 1
}
