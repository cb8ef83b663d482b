// Package models contains GORM persistence models. Domain entities stay free of
// ORM tags; each model converts to and from its entity.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields and maps to shared.BaseEntity
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// All returns every model managed by AutoMigrate
func All() []any {
	return []any{
		&UserModel{},
		&RefreshTokenModel{},
		&PostModel{},
		&UploadModel{},
		&FactRecordModel{},
		&SummaryModel{},
	}
}
