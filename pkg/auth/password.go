// Package auth provides the admin-key hashing used by the observatory
// endpoint. End-user login is by display name only and carries no secret.
package auth

import "golang.org/x/crypto/bcrypt"

// HashKey returns a bcrypt hash of the admin key, for generating the value
// stored in configuration.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckKey validates a presented key against the configured hash.
func CheckKey(key, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(key)) == nil
}
