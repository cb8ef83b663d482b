package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/application/identity"
)

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=3,max=100" example:"alice"`
	Age      int    `json:"age" binding:"gte=0,lte=150" example:"30"`
	Password string `json:"password" binding:"required,min=6,max=72" example:"secret1"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Name     string `json:"name" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required" example:"secret1"`
}

// RefreshTokenRequest is the body of POST /auth/refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest is the optional body of POST /auth/logout.
// Without a refresh token every session of the user is revoked.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is an issued token pair
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type" example:"Bearer"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Age         int        `json:"age"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Token TokenResponse `json:"token"`
	User  UserResponse  `json:"user"`
}

func toTokenResponse(t identity.TokenResult) TokenResponse {
	return TokenResponse{
		AccessToken:           t.AccessToken,
		RefreshToken:          t.RefreshToken,
		AccessTokenExpiresAt:  t.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: t.RefreshTokenExpiresAt,
		TokenType:             t.TokenType,
	}
}

func toUserResponse(u identity.UserInfo) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Age:         u.Age,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
