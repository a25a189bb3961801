package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plain password
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// AdminCredentials guards admin endpoints with a username and bcrypt password hash.
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

// Enabled reports whether admin credentials are configured.
func (a AdminCredentials) Enabled() bool {
	return a.PasswordHash != ""
}

// Check validates a username/password pair.
func (a AdminCredentials) Check(username, password string) bool {
	if !a.Enabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) == 1
	passOK := CheckPassword(a.PasswordHash, password) == nil
	return userOK && passOK
}
