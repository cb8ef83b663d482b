package post

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/shared"
)

// Post is a short text entry written by a user
type Post struct {
	shared.BaseEntity
	Title    string
	Body     string
	AuthorID uuid.UUID
}

// NewPost creates a post owned by authorID
func NewPost(authorID uuid.UUID, title, body string) (*Post, error) {
	if authorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_AUTHOR", "Author cannot be empty")
	}
	if err := validate(title, body); err != nil {
		return nil, err
	}
	return &Post{
		BaseEntity: shared.NewBaseEntity(),
		Title:      strings.TrimSpace(title),
		Body:       body,
		AuthorID:   authorID,
	}, nil
}

// Edit replaces title and body
func (p *Post) Edit(title, body string) error {
	if err := validate(title, body); err != nil {
		return err
	}
	p.Title = strings.TrimSpace(title)
	p.Body = body
	p.Touch()
	return nil
}

// IsAuthoredBy reports whether userID wrote the post
func (p *Post) IsAuthoredBy(userID uuid.UUID) bool {
	return p.AuthorID == userID
}

func validate(title, body string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Title cannot be empty")
	}
	if len(title) > 200 {
		return shared.NewDomainError("INVALID_TITLE", "Title cannot exceed 200 characters")
	}
	if len(body) > 10000 {
		return shared.NewDomainError("INVALID_BODY", "Body cannot exceed 10000 characters")
	}
	return nil
}

// Repository defines the interface for post persistence
type Repository interface {
	Create(ctx context.Context, post *Post) error
	Update(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Post, error)
	FindAll(ctx context.Context, authorID *uuid.UUID, filter shared.Filter) ([]Post, int64, error)
}
