package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/salesinsight/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor for password hashes
var bcryptCost = 12

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)

// User is a registered account. Name is the login handle.
type User struct {
	shared.BaseEntity
	Name         string
	Age          int
	PasswordHash string
	LastLoginAt  *time.Time
}

// NewUser creates a user with a hashed password
func NewUser(name string, age int, password string) (*User, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateAge(age); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	return &User{
		BaseEntity:   shared.NewBaseEntity(),
		Name:         strings.TrimSpace(name),
		Age:          age,
		PasswordHash: passwordHash,
	}, nil
}

// Update changes the mutable profile fields
func (u *User) Update(name string, age int) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := validateAge(age); err != nil {
		return err
	}

	u.Name = strings.TrimSpace(name)
	u.Age = age
	u.Touch()
	return nil
}

// VerifyPassword checks a plain-text password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// RecordLogin stamps the last successful login
func (u *User) RecordLogin() {
	now := time.Now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_USERNAME", "Name cannot be empty")
	}
	if len(name) < 3 {
		return shared.NewDomainError("INVALID_USERNAME", "Name must be at least 3 characters")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_USERNAME", "Name cannot exceed 100 characters")
	}
	if !usernameRegex.MatchString(name) {
		return shared.NewDomainError("INVALID_USERNAME", "Name can only contain letters, numbers, underscores, hyphens, and dots")
	}
	return nil
}

func validateAge(age int) error {
	if age < 0 || age > 150 {
		return shared.NewDomainError("INVALID_AGE", "Age must be between 0 and 150")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot be empty")
	}
	if len(password) < 6 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 6 characters")
	}
	// bcrypt ignores input past 72 bytes
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
