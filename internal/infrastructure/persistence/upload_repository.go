package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/sales"
	"github.com/salesinsight/backend/internal/domain/shared"
	"github.com/salesinsight/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUploadRepository implements sales.UploadRepository using GORM
type GormUploadRepository struct {
	db *gorm.DB
}

// NewGormUploadRepository creates a new GormUploadRepository
func NewGormUploadRepository(db *gorm.DB) *GormUploadRepository {
	return &GormUploadRepository{db: db}
}

// Create persists a new upload
func (r *GormUploadRepository) Create(ctx context.Context, upload *sales.Upload) error {
	return r.db.WithContext(ctx).Create(models.UploadModelFromDomain(upload)).Error
}

// FindByID finds an upload by ID
func (r *GormUploadRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Upload, error) {
	var model models.UploadModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForOwner finds an upload by ID scoped to its owner.
// Another user's upload is reported as not found.
func (r *GormUploadRepository) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*sales.Upload, error) {
	var model models.UploadModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOwner lists an owner's uploads with pagination
func (r *GormUploadRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]sales.Upload, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.UploadModel{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, UploadSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var uploadModels []models.UploadModel
	if err := query.Find(&uploadModels).Error; err != nil {
		return nil, 0, err
	}

	uploads := make([]sales.Upload, len(uploadModels))
	for i := range uploadModels {
		uploads[i] = *uploadModels[i].ToDomain()
	}
	return uploads, total, nil
}

// UpdateStatus writes the lifecycle columns in a single UPDATE
func (r *GormUploadRepository) UpdateStatus(ctx context.Context, upload *sales.Upload) error {
	return updateUploadStatus(r.db.WithContext(ctx), upload)
}

func updateUploadStatus(db *gorm.DB, upload *sales.Upload) error {
	model := models.UploadModelFromDomain(upload)
	result := db.Model(&models.UploadModel{}).
		Where("id = ?", upload.ID).
		Updates(model.StatusColumns())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
