package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	postapp "github.com/salesinsight/backend/internal/application/post"
	"github.com/salesinsight/backend/internal/domain/post"
	"github.com/salesinsight/backend/internal/interfaces/http/middleware"
)

// PostRequest is the body of post create and update
type PostRequest struct {
	Title string `json:"title" binding:"required,max=200" example:"Quarterly results"`
	Body  string `json:"body" binding:"max=10000"`
}

// PostResponse is the public view of a post
type PostResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	AuthorID  uuid.UUID `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPostResponse(p *post.Post) PostResponse {
	return PostResponse{
		ID:        p.ID,
		Title:     p.Title,
		Body:      p.Body,
		AuthorID:  p.AuthorID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// PostHandler handles posts CRUD
type PostHandler struct {
	BaseHandler
	postService *postapp.Service
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *postapp.Service) *PostHandler {
	return &PostHandler{postService: postService}
}

// Create godoc
// @Summary      Create a post
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        request body PostRequest true "Post"
// @Success      201 {object} APIResponse[PostResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	p, err := h.postService.Create(c.Request.Context(), userID, postapp.CreateInput{
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toPostResponse(p))
}

// List godoc
// @Summary      List posts
// @Tags         posts
// @Produce      json
// @Param        author_id query string false "Only posts by this author"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]PostResponse]
// @Router       /posts [get]
func (h *PostHandler) List(c *gin.Context) {
	filter, ok := h.listFilter(c)
	if !ok {
		return
	}

	var authorID *uuid.UUID
	if raw := c.Query("author_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid author_id format")
			return
		}
		authorID = &id
	}

	page, err := h.postService.List(c.Request.Context(), authorID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]PostResponse, len(page.Items))
	for i := range page.Items {
		items[i] = toPostResponse(&page.Items[i])
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// Get godoc
// @Summary      Get a post
// @Tags         posts
// @Produce      json
// @Param        id path string true "Post ID"
// @Success      200 {object} APIResponse[PostResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /posts/{id} [get]
func (h *PostHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.postService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPostResponse(p))
}

// Update godoc
// @Summary      Update a post
// @Description  Only the author may update; other users get 404
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        id path string true "Post ID"
// @Param        request body PostRequest true "Post"
// @Success      200 {object} APIResponse[PostResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /posts/{id} [put]
func (h *PostHandler) Update(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	p, err := h.postService.Update(c.Request.Context(), userID, id, postapp.UpdateInput{
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPostResponse(p))
}

// Delete godoc
// @Summary      Delete a post
// @Tags         posts
// @Param        id path string true "Post ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /posts/{id} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.postService.Delete(c.Request.Context(), userID, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
