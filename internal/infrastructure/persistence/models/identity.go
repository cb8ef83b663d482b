package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/identity"
)

// UserModel is the persistence model for identity.User
type UserModel struct {
	BaseModel
	Name         string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Age          int    `gorm:"not null;default:0"`
	PasswordHash string `gorm:"type:varchar(255);not null"`
	LastLoginAt  *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the model to a domain entity
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseEntity:   m.BaseModel.ToDomain(),
		Name:         m.Name,
		Age:          m.Age,
		PasswordHash: m.PasswordHash,
		LastLoginAt:  m.LastLoginAt,
	}
}

// UserModelFromDomain creates a model from a domain entity
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Name:         u.Name,
		Age:          u.Age,
		PasswordHash: u.PasswordHash,
		LastLoginAt:  u.LastLoginAt,
	}
	m.FromDomainBaseEntity(u.BaseEntity)
	return m
}

// RefreshTokenModel is the persistence model for identity.RefreshToken
type RefreshTokenModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
	RevokedAt *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}

// ToDomain converts the model to a domain entity
func (m *RefreshTokenModel) ToDomain() *identity.RefreshToken {
	return &identity.RefreshToken{
		ID:        m.ID,
		UserID:    m.UserID,
		ExpiresAt: m.ExpiresAt,
		RevokedAt: m.RevokedAt,
		CreatedAt: m.CreatedAt,
	}
}

// RefreshTokenModelFromDomain creates a model from a domain entity
func RefreshTokenModelFromDomain(t *identity.RefreshToken) *RefreshTokenModel {
	return &RefreshTokenModel{
		ID:        t.ID,
		UserID:    t.UserID,
		ExpiresAt: t.ExpiresAt,
		RevokedAt: t.RevokedAt,
		CreatedAt: t.CreatedAt,
	}
}
