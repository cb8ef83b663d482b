package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/shared"
)

// RefreshToken is a persisted, revocable refresh token grant
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// NewRefreshToken records a grant identified by the token's JWT ID
func NewRefreshToken(tokenID, userID uuid.UUID, expiresAt time.Time) (*RefreshToken, error) {
	if tokenID == uuid.Nil || userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REFRESH_TOKEN", "Token and user IDs are required")
	}
	return &RefreshToken{
		ID:        tokenID,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsActive reports whether the token can still be exchanged at the given time
func (t *RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// Revoke marks the token as unusable
func (t *RefreshToken) Revoke() {
	if t.RevokedAt != nil {
		return
	}
	now := time.Now()
	t.RevokedAt = &now
}
