package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finward/finward/internal/logging"
)

// Handler provides HTTP handlers for the users API.
type Handler struct {
	service *Service
}

// NewHandler creates a users handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the user routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/users", h.Register)
	r.GET("/users/:userId", h.Get)
	r.POST("/users/:userId/verify", h.Verify)
}

// Register handles POST /users
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	user, err := h.service.Register(ctx, req)
	switch {
	case errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "already_registered",
			"message": err.Error(),
		})
		return
	case errors.Is(err, ErrInvalidEmail) || errors.Is(err, ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	case err != nil:
		logging.L(ctx).Error("failed to register user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to register user",
		})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Get handles GET /users/:userId
func (h *Handler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("userId"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "User not found",
		})
		return
	}
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to load user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load user",
		})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Verify handles POST /users/:userId/verify
func (h *Handler) Verify(c *gin.Context) {
	user, err := h.service.Verify(c.Request.Context(), c.Param("userId"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "User not found",
		})
		return
	}
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to verify user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to verify user",
		})
		return
	}
	c.JSON(http.StatusOK, user)
}
