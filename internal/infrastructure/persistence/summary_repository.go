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

// GormSummaryRepository implements sales.SummaryRepository and sales.CompletionWriter
type GormSummaryRepository struct {
	db *gorm.DB
}

// NewGormSummaryRepository creates a new GormSummaryRepository
func NewGormSummaryRepository(db *gorm.DB) *GormSummaryRepository {
	return &GormSummaryRepository{db: db}
}

// FindByUploadID returns the summary of an upload
func (r *GormSummaryRepository) FindByUploadID(ctx context.Context, uploadID uuid.UUID) (*sales.Summary, error) {
	var model models.SummaryModel
	if err := r.db.WithContext(ctx).First(&model, "upload_id = ?", uploadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CompleteWithSummary stores the summary and the upload's done status in one transaction
func (r *GormSummaryRepository) CompleteWithSummary(ctx context.Context, upload *sales.Upload, summary *sales.Summary) error {
	if upload.ID != summary.UploadID {
		return shared.NewDomainError("SUMMARY_MISMATCH", "Summary does not belong to upload")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(models.SummaryModelFromDomain(summary)).Error; err != nil {
			return err
		}
		return updateUploadStatus(tx, upload)
	})
}
