package sales

import (
	"context"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/shared"
)

// UploadRepository defines persistence for uploads
type UploadRepository interface {
	// Create persists a new pending upload
	Create(ctx context.Context, upload *Upload) error

	// FindByID finds an upload by ID regardless of owner
	FindByID(ctx context.Context, id uuid.UUID) (*Upload, error)

	// FindByIDForOwner finds an upload by ID only if it belongs to ownerID
	FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*Upload, error)

	// FindByOwner lists an owner's uploads, newest first
	FindByOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]Upload, int64, error)

	// UpdateStatus writes the lifecycle columns of an upload in a single statement
	UpdateStatus(ctx context.Context, upload *Upload) error
}

// FactRecordRepository persists and reads back fact records
type FactRecordRepository interface {
	// CreateBatch inserts all records for an upload atomically
	CreateBatch(ctx context.Context, uploadID uuid.UUID, records []FactRecord) error

	// FindByUpload returns the records of an upload that match the filter, ordered by ID
	FindByUpload(ctx context.Context, uploadID uuid.UUID, filter RecordFilter) ([]FactRecord, error)

	// CountByUpload counts the records of an upload
	CountByUpload(ctx context.Context, uploadID uuid.UUID) (int64, error)

	// DeleteByUpload removes every record of an upload
	DeleteByUpload(ctx context.Context, uploadID uuid.UUID) error
}

// SummaryRepository persists analytics summaries
type SummaryRepository interface {
	// FindByUploadID returns the summary of an upload or shared.ErrNotFound
	FindByUploadID(ctx context.Context, uploadID uuid.UUID) (*Summary, error)
}

// CompletionWriter writes an upload's summary and its done transition together,
// so an upload is never observed as done without a summary.
type CompletionWriter interface {
	CompleteWithSummary(ctx context.Context, upload *Upload, summary *Summary) error
}
