package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// bcrypt rejects inputs longer than 72 bytes (ErrPasswordTooLong), so
// longer passwords are truncated instead of failing. Hash and verify
// must truncate identically or long passwords could never verify.
const maxPasswordBytes = 72

func HashPassword(password string) (string, error) {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	hashedPassword, err := bcrypt.GenerateFromPassword(b, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func VerifyPassword(hash, plain string) bool {
	b := []byte(plain)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), b) == nil
}
