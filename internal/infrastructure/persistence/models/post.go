package models

import (
	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/post"
)

// PostModel is the persistence model for post.Post
type PostModel struct {
	BaseModel
	Title    string    `gorm:"type:varchar(200);not null"`
	Body     string    `gorm:"type:text;not null"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (PostModel) TableName() string {
	return "posts"
}

// ToDomain converts the model to a domain entity
func (m *PostModel) ToDomain() *post.Post {
	return &post.Post{
		BaseEntity: m.BaseModel.ToDomain(),
		Title:      m.Title,
		Body:       m.Body,
		AuthorID:   m.AuthorID,
	}
}

// PostModelFromDomain creates a model from a domain entity
func PostModelFromDomain(p *post.Post) *PostModel {
	m := &PostModel{
		Title:    p.Title,
		Body:     p.Body,
		AuthorID: p.AuthorID,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
