package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost is deliberately above the library default: counselor
// accounts guard student records and live for years, so the extra login
// latency is acceptable.
const bcryptCost = 14

// HashPassword returns the bcrypt hash to store for a password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPasswordHash reports whether the plaintext password matches the
// stored hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
