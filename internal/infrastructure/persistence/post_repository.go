package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/post"
	"github.com/salesinsight/backend/internal/domain/shared"
	"github.com/salesinsight/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPostRepository implements post.Repository using GORM
type GormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository creates a new GormPostRepository
func NewGormPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

// Create creates a new post
func (r *GormPostRepository) Create(ctx context.Context, p *post.Post) error {
	return r.db.WithContext(ctx).Create(models.PostModelFromDomain(p)).Error
}

// Update saves title and body of an existing post
func (r *GormPostRepository) Update(ctx context.Context, p *post.Post) error {
	result := r.db.WithContext(ctx).Model(&models.PostModel{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"title":      p.Title,
			"body":       p.Body,
			"updated_at": p.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a post by ID
func (r *GormPostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PostModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a post by ID
func (r *GormPostRepository) FindByID(ctx context.Context, id uuid.UUID) (*post.Post, error) {
	var model models.PostModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists posts, optionally restricted to one author
func (r *GormPostRepository) FindAll(ctx context.Context, authorID *uuid.UUID, filter shared.Filter) ([]post.Post, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PostModel{})
	if authorID != nil {
		query = query.Where("author_id = ?", *authorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, PostSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var postModels []models.PostModel
	if err := query.Find(&postModels).Error; err != nil {
		return nil, 0, err
	}

	posts := make([]post.Post, len(postModels))
	for i := range postModels {
		posts[i] = *postModels[i].ToDomain()
	}
	return posts, total, nil
}
