package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/sales"
	"github.com/salesinsight/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const defaultFactBatchSize = 500

// GormFactRecordRepository implements sales.FactRecordRepository using GORM
type GormFactRecordRepository struct {
	db        *gorm.DB
	batchSize int
}

// NewGormFactRecordRepository creates a repository that inserts in batches of batchSize rows
func NewGormFactRecordRepository(db *gorm.DB, batchSize int) *GormFactRecordRepository {
	if batchSize <= 0 {
		batchSize = defaultFactBatchSize
	}
	return &GormFactRecordRepository{db: db, batchSize: batchSize}
}

// CreateBatch inserts all records of an upload in one transaction.
// Either every record is stored or none is. Generated IDs are written back to records.
func (r *GormFactRecordRepository) CreateBatch(ctx context.Context, uploadID uuid.UUID, records []sales.FactRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]models.FactRecordModel, len(records))
	for i, rec := range records {
		rec.UploadID = uploadID
		rows[i] = models.FactRecordModelFromDomain(rec)
		rows[i].ID = 0
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, r.batchSize).Error
	})
	if err != nil {
		return err
	}

	for i := range records {
		records[i].ID = rows[i].ID
		records[i].UploadID = uploadID
	}
	return nil
}

// FindByUpload returns the records of an upload ordered by ID.
// Region and product predicates run in SQL; date bounds are applied after
// loading since stored dates are only normalised when they parse.
func (r *GormFactRecordRepository) FindByUpload(ctx context.Context, uploadID uuid.UUID, filter sales.RecordFilter) ([]sales.FactRecord, error) {
	query := r.db.WithContext(ctx).Where("upload_id = ?", uploadID)
	if filter.Region != nil {
		query = query.Where("region = ?", *filter.Region)
	}
	if filter.ProductName != nil {
		query = query.Where("product_name = ?", *filter.ProductName)
	}

	var rows []models.FactRecordModel
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]sales.FactRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return filter.Apply(records), nil
}

// CountByUpload counts the records of an upload
func (r *GormFactRecordRepository) CountByUpload(ctx context.Context, uploadID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FactRecordModel{}).
		Where("upload_id = ?", uploadID).
		Count(&count).Error
	return count, err
}

// DeleteByUpload removes the records of an upload that did not complete
func (r *GormFactRecordRepository) DeleteByUpload(ctx context.Context, uploadID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("upload_id = ?", uploadID).
		Delete(&models.FactRecordModel{}).Error
}
