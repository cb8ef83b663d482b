package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/sales"
	"github.com/salesinsight/backend/internal/domain/shared"
	"github.com/salesinsight/backend/internal/infrastructure/logger"
	"github.com/salesinsight/backend/internal/infrastructure/scheduler"
	"github.com/salesinsight/backend/internal/infrastructure/storage"
	"github.com/salesinsight/backend/internal/infrastructure/tabular"
	"go.uber.org/zap"
)

// TaskSubmitter queues background work without blocking. *scheduler.Pool implements it.
type TaskSubmitter interface {
	Submit(name string, fn scheduler.TaskFunc) error
}

// SubmitInput is one file received from a user.
type SubmitInput struct {
	OwnerID  uuid.UUID
	Filename string
	Content  []byte
}

// UploadService accepts uploads and answers status queries.
type UploadService struct {
	uploads   sales.UploadRepository
	blobs     storage.BlobStorage
	tasks     TaskSubmitter
	processor *Processor
	logger    *zap.Logger
}

// NewUploadService creates a new UploadService.
func NewUploadService(
	uploads sales.UploadRepository,
	blobs storage.BlobStorage,
	tasks TaskSubmitter,
	processor *Processor,
	logger *zap.Logger,
) *UploadService {
	return &UploadService{
		uploads:   uploads,
		blobs:     blobs,
		tasks:     tasks,
		processor: processor,
		logger:    logger,
	}
}

// Submit stores the file, records a pending upload and schedules processing.
// An unsupported extension returns tabular.ErrUnsupportedFormat before anything
// is written. If the task cannot be queued the upload is returned already failed.
func (s *UploadService) Submit(ctx context.Context, input SubmitInput) (*sales.Upload, error) {
	format, err := tabular.DetectFormat(input.Filename)
	if err != nil {
		return nil, err
	}

	upload, err := sales.NewUpload(input.OwnerID, input.Filename, sales.FileFormat(format))
	if err != nil {
		return nil, err
	}

	log := logger.Enrich(ctx, s.logger).With(zap.String("upload_id", upload.ID.String()))

	if err := s.blobs.Write(ctx, upload.StoragePath, input.Content); err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}
	if err := s.uploads.Create(ctx, upload); err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	uploadID := upload.ID
	taskName := "ingest:" + uploadID.String()
	if err := s.tasks.Submit(taskName, func(taskCtx context.Context) error {
		return s.processor.Process(taskCtx, uploadID)
	}); err != nil {
		log.Error("Failed to schedule upload processing", zap.Error(err))
		if ferr := upload.Fail(fmt.Sprintf("failed to schedule processing: %v", err)); ferr != nil {
			return nil, ferr
		}
		if uerr := s.uploads.UpdateStatus(ctx, upload); uerr != nil {
			return nil, fmt.Errorf("failed to record scheduling failure: %w", uerr)
		}
		return upload, nil
	}

	log.Info("Upload accepted",
		zap.String("filename", upload.Filename),
		zap.Int("bytes", len(input.Content)),
	)
	return upload, nil
}

// GetStatus returns an upload owned by ownerID. Uploads of other users are
// reported as shared.ErrNotFound.
func (s *UploadService) GetStatus(ctx context.Context, ownerID, uploadID uuid.UUID) (*sales.Upload, error) {
	return s.uploads.FindByIDForOwner(ctx, ownerID, uploadID)
}

// List returns a page of the owner's uploads, newest first by default.
func (s *UploadService) List(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (shared.Paginated[sales.Upload], error) {
	uploads, total, err := s.uploads.FindByOwner(ctx, ownerID, filter)
	if err != nil {
		return shared.Paginated[sales.Upload]{}, err
	}
	return shared.NewPaginated(uploads, total, filter.Page, filter.PageSize), nil
}
