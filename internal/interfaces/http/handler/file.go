package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/application/ingest"
	"github.com/salesinsight/backend/internal/domain/sales"
)

// UploadFormField is the multipart field carrying the file
const UploadFormField = "file"

// UploadAcceptedResponse is returned by POST /files/upload
type UploadAcceptedResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status" example:"pending"`
}

// UploadStatusResponse is the pollable state of one upload
type UploadStatusResponse struct {
	ID           uuid.UUID `json:"id"`
	Filename     string    `json:"filename"`
	Status       string    `json:"status" example:"done"`
	ErrorMessage string    `json:"error_message,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// UploadListItem is one row of GET /files
type UploadListItem struct {
	UploadStatusResponse
	RowCount     int        `json:"row_count"`
	DroppedCount int        `json:"dropped_count"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func toUploadStatusResponse(u *sales.Upload) UploadStatusResponse {
	return UploadStatusResponse{
		ID:           u.ID,
		Filename:     u.Filename,
		Status:       string(u.Status),
		ErrorMessage: u.ErrorMessage,
		UploadedAt:   u.CreatedAt,
	}
}

// FileHandler accepts sales files and reports their processing state
type FileHandler struct {
	BaseHandler
	uploadService *ingest.UploadService
	maxUploadSize int64
}

// NewFileHandler creates a new file handler. Files larger than maxUploadSize bytes are rejected.
func NewFileHandler(uploadService *ingest.UploadService, maxUploadSize int64) *FileHandler {
	return &FileHandler{
		uploadService: uploadService,
		maxUploadSize: maxUploadSize,
	}
}

// Upload godoc
// @Summary      Upload a sales file
// @Description  Accepts a .csv or .xlsx file and schedules background processing
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Sales data file"
// @Success      202 {object} APIResponse[UploadAcceptedResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /files/upload [post]
func (h *FileHandler) Upload(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile(UploadFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.RequestTooLarge(c, "Uploaded file exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, "Missing file in multipart field 'file'")
		return
	}
	if h.maxUploadSize > 0 && fileHeader.Size > h.maxUploadSize {
		h.RequestTooLarge(c, "Uploaded file exceeds maximum allowed size")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded file")
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded file")
		return
	}

	upload, err := h.uploadService.Submit(c.Request.Context(), ingest.SubmitInput{
		OwnerID:  userID,
		Filename: fileHeader.Filename,
		Content:  content,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, UploadAcceptedResponse{
		ID:     upload.ID,
		Status: string(upload.Status),
	})
}

// List godoc
// @Summary      List own uploads
// @Tags         files
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]UploadListItem]
// @Security     BearerAuth
// @Router       /files [get]
func (h *FileHandler) List(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	filter, ok := h.listFilter(c)
	if !ok {
		return
	}

	page, err := h.uploadService.List(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]UploadListItem, len(page.Items))
	for i := range page.Items {
		u := &page.Items[i]
		items[i] = UploadListItem{
			UploadStatusResponse: toUploadStatusResponse(u),
			RowCount:             u.RowCount,
			DroppedCount:         u.DroppedCount,
			CompletedAt:          u.CompletedAt,
		}
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// GetStatus godoc
// @Summary      Get upload status
// @Description  Uploads owned by other users are reported as not found
// @Tags         files
// @Produce      json
// @Param        id path string true "Upload ID"
// @Success      200 {object} APIResponse[UploadStatusResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /files/{id}/status [get]
func (h *FileHandler) GetStatus(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	upload, err := h.uploadService.GetStatus(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUploadStatusResponse(upload))
}
