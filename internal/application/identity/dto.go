package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/identity"
)

// RegisterInput contains the input for user registration
type RegisterInput struct {
	Name     string
	Age      int
	Password string
}

// LoginInput contains the input for user login
type LoginInput struct {
	Name     string
	Password string
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	TokenResult
	User UserInfo
}

// TokenResult is an issued access/refresh token pair
type TokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// UserInfo is the public view of a user
type UserInfo struct {
	ID          uuid.UUID
	Name        string
	Age         int
	CreatedAt   time.Time
	LastLoginAt *time.Time
}

// RefreshInput contains the input for token refresh
type RefreshInput struct {
	RefreshToken string
}

// LogoutInput contains the input for user logout.
// An empty RefreshToken revokes every grant of the user.
type LogoutInput struct {
	UserID       uuid.UUID
	RefreshToken string
}

func toUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		Name:        u.Name,
		Age:         u.Age,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
