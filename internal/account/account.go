// Package account handles user registration and login. Passwords are only
// ever stored as bcrypt hashes; verification is a salted-hash comparison.
package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLen = 8

var (
	ErrEmailTaken       = errors.New("email already registered")
	ErrNotFound         = errors.New("account not found")
	ErrBadCredentials   = errors.New("wrong email or password")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordMismatch = errors.New("passwords must match")
	ErrInvalidEmail     = errors.New("invalid email address")
)

type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Registration carries the fields of the account creation form.
type Registration struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

func (r Registration) Validate() error {
	if !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	if len(r.Password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	if r.Password != r.PasswordConfirmation {
		return ErrPasswordMismatch
	}
	return nil
}

func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// VerifyPassword compares a candidate password against the stored hash.
func VerifyPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
