// Package auth hashes and verifies console account passwords.
package auth

import "golang.org/x/crypto/bcrypt"

// Console logins are rare, so a high bcrypt cost is affordable.
const hashCost = 14

// HashPassword returns the bcrypt hash of a console account password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	return string(bytes), err
}

// CheckPasswordHash reports whether the plaintext password matches the
// stored hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
