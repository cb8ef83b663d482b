// Package post implements the posts use cases.
package post

import (
	"context"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/post"
	"github.com/salesinsight/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CreateInput contains the fields of a new post
type CreateInput struct {
	Title string
	Body  string
}

// UpdateInput replaces title and body
type UpdateInput struct {
	Title string
	Body  string
}

// Service handles post operations
type Service struct {
	repo   post.Repository
	logger *zap.Logger
}

// NewService creates a new post service
func NewService(repo post.Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create stores a post written by authorID
func (s *Service) Create(ctx context.Context, authorID uuid.UUID, input CreateInput) (*post.Post, error) {
	p, err := post.NewPost(authorID, input.Title, input.Body)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("Failed to create post", zap.Error(err))
		return nil, err
	}
	return p, nil
}

// Get returns any post
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*post.Post, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns a page of posts, optionally by one author
func (s *Service) List(ctx context.Context, authorID *uuid.UUID, filter shared.Filter) (shared.Paginated[post.Post], error) {
	posts, total, err := s.repo.FindAll(ctx, authorID, filter)
	if err != nil {
		return shared.Paginated[post.Post]{}, err
	}
	return shared.NewPaginated(posts, total, filter.Page, filter.PageSize), nil
}

// Update edits a post. Posts of other authors are reported as not found.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (*post.Post, error) {
	p, err := s.ownedPost(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := p.Edit(input.Title, input.Body); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a post. Posts of other authors are reported as not found.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.ownedPost(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Post deleted", zap.String("post_id", id.String()), zap.String("user_id", userID.String()))
	return nil
}

func (s *Service) ownedPost(ctx context.Context, userID, id uuid.UUID) (*post.Post, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAuthoredBy(userID) {
		return nil, shared.ErrNotFound
	}
	return p, nil
}
