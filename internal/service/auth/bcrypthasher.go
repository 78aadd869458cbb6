package auth

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// Hasher used if service config does not provide one
var DefaultHasher = BcryptHasher{}

// Bcrypt password hasher
// Password is pre-hashed with sha256 cause bcrypt ignores everything after 72 bytes
type BcryptHasher struct {
	// bcrypt.DefaultCost is used if zero
	Cost int
}

func (h BcryptHasher) cost() int {
	if h.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

func (h BcryptHasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(sum[:], h.cost())
	return string(hash), err
}

func (h BcryptHasher) Compare(hashedPassword string, password string) error {
	sum := sha256.Sum256([]byte(password))
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), sum[:])
}
