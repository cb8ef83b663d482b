package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/salesinsight/backend/internal/application/identity"
)

// UserHandler serves the authenticated user's profile
type UserHandler struct {
	BaseHandler
	authService *identity.AuthService
}

// NewUserHandler creates a new user handler
func NewUserHandler(authService *identity.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// GetCurrentUser godoc
// @Summary      Get current user
// @Tags         users
// @Produce      json
// @Success      200 {object} APIResponse[UserResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/me [get]
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUserResponse(*user))
}
