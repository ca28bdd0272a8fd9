package utils

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost matches the cost factor of existing hashes.
const PasswordCost = 10

var (
	dummyOnce sync.Once
	dummy     []byte
)

// HashPassword returns the bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares the bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CheckPasswordDummy spends one compare at PasswordCost and always reports false.
// Login calls it for unknown usernames so they take as long as a wrong password.
func CheckPasswordDummy(password string) bool {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
	return false
}

func dummyHash() []byte {
	dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("no such user"), PasswordCost)
		if err != nil {
			Logger.Error("dummy password hash failed", zap.Error(err))
			return
		}
		dummy = h
	})
	return dummy
}
