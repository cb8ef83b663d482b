package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/domain/shared"
)

// UploadStatus represents the lifecycle state of an upload
type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusDone       UploadStatus = "done"
	UploadStatusFailed     UploadStatus = "failed"
)

// IsValid checks if the status is valid
func (s UploadStatus) IsValid() bool {
	switch s {
	case UploadStatusPending, UploadStatusProcessing, UploadStatusDone, UploadStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s UploadStatus) IsTerminal() bool {
	return s == UploadStatusDone || s == UploadStatusFailed
}

// FileFormat is the declared tabular format of an uploaded file
type FileFormat string

const (
	FileFormatCSV  FileFormat = "csv"
	FileFormatXLSX FileFormat = "xlsx"
)

// IsValid checks if the format is supported
func (f FileFormat) IsValid() bool {
	return f == FileFormatCSV || f == FileFormatXLSX
}

// Upload is one user-submitted tabular file and its processing lifecycle
type Upload struct {
	shared.BaseEntity
	Filename     string       `json:"filename"`
	StoragePath  string       `json:"storage_path"`
	Format       FileFormat   `json:"format"`
	Status       UploadStatus `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	OwnerID      uuid.UUID    `json:"owner_id"`
	RowCount     int          `json:"row_count"`
	DroppedCount int          `json:"dropped_count"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// NewUpload creates a pending upload owned by ownerID.
// The storage path is derived from the generated ID so it is never reused.
func NewUpload(ownerID uuid.UUID, filename string, format FileFormat) (*Upload, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner cannot be empty")
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if !format.IsValid() {
		return nil, shared.NewDomainError("UNSUPPORTED_FORMAT", fmt.Sprintf("Unsupported file format: %s", format))
	}

	u := &Upload{
		BaseEntity: shared.NewBaseEntity(),
		Filename:   filename,
		Format:     format,
		Status:     UploadStatusPending,
		OwnerID:    ownerID,
	}
	u.StoragePath = fmt.Sprintf("%s_%s", u.ID.String(), sanitizeFilename(filename))
	return u, nil
}

// StartProcessing moves a pending upload to processing
func (u *Upload) StartProcessing() error {
	if u.Status != UploadStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start processing from state: %s", u.Status))
	}

	now := time.Now()
	u.Status = UploadStatusProcessing
	u.StartedAt = &now
	u.UpdatedAt = now
	return nil
}

// Complete marks the upload as done. Only a processing upload can complete.
func (u *Upload) Complete(rowCount, droppedCount int) error {
	if u.Status != UploadStatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete from state: %s", u.Status))
	}
	if rowCount < 0 || droppedCount < 0 {
		return shared.NewDomainError("INVALID_ROW_COUNT", "Row counts cannot be negative")
	}

	now := time.Now()
	u.Status = UploadStatusDone
	u.RowCount = rowCount
	u.DroppedCount = droppedCount
	u.ErrorMessage = ""
	u.CompletedAt = &now
	u.UpdatedAt = now
	return nil
}

// Fail marks the upload as failed with a non-empty message
func (u *Upload) Fail(message string) error {
	if u.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail from terminal state: %s", u.Status))
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return shared.NewDomainError("INVALID_ERROR_MESSAGE", "Failure message cannot be empty")
	}

	now := time.Now()
	u.Status = UploadStatusFailed
	u.ErrorMessage = message
	u.CompletedAt = &now
	u.UpdatedAt = now
	return nil
}

// IsOwnedBy reports whether the upload belongs to ownerID
func (u *Upload) IsOwnedBy(ownerID uuid.UUID) bool {
	return u.OwnerID == ownerID
}

// IsDone returns true once the summary has been written
func (u *Upload) IsDone() bool {
	return u.Status == UploadStatusDone
}

// Duration returns the processing duration
func (u *Upload) Duration() time.Duration {
	if u.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if u.CompletedAt != nil {
		end = *u.CompletedAt
	}
	return end.Sub(*u.StartedAt)
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}
