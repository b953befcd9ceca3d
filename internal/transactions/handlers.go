package transactions

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finward/finward/internal/logging"
	"github.com/finward/finward/internal/pagination"
	"github.com/finward/finward/internal/users"
)

// Handler provides HTTP handlers for the transactions API.
type Handler struct {
	service *Service
}

// NewHandler creates a transactions handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the transaction routes under /users/:userId.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	tx := r.Group("/users/:userId/transactions")
	tx.POST("", h.Create)
	tx.GET("", h.List)
	tx.GET("/statistics", h.GetStatistics)
	tx.GET("/summary", h.GetSummary)
	tx.GET("/fraud", h.ListFraudFlagged)
	tx.GET("/:id", h.Get)
	tx.PATCH("/:id", h.Update)
	tx.DELETE("/:id", h.Delete)
}

// Create handles POST /users/:userId/transactions
func (h *Handler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	tx, err := h.service.Create(ctx, c.Param("userId"), req)
	if err != nil {
		h.writeError(c, err, "Failed to create transaction")
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// Get handles GET /users/:userId/transactions/:id
func (h *Handler) Get(c *gin.Context) {
	tx, err := h.service.Get(c.Request.Context(), c.Param("userId"), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "Failed to load transaction")
		return
	}
	c.JSON(http.StatusOK, tx)
}

// Update handles PATCH /users/:userId/transactions/:id
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	tx, err := h.service.Update(c.Request.Context(), c.Param("userId"), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err, "Failed to update transaction")
		return
	}
	c.JSON(http.StatusOK, tx)
}

// Delete handles DELETE /users/:userId/transactions/:id
func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("userId"), c.Param("id")); err != nil {
		h.writeError(c, err, "Failed to delete transaction")
		return
	}
	c.Status(http.StatusNoContent)
}

// List handles GET /users/:userId/transactions
func (h *Handler) List(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}
	h.list(c, filter)
}

// ListFraudFlagged handles GET /users/:userId/transactions/fraud
func (h *Handler) ListFraudFlagged(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}
	flagged := true
	filter.FraudFlagged = &flagged
	h.list(c, filter)
}

func (h *Handler) list(c *gin.Context, filter ListFilter) {
	page, err := h.service.List(c.Request.Context(), c.Param("userId"), filter)
	if err != nil {
		h.writeError(c, err, "Failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetStatistics handles GET /users/:userId/transactions/statistics
func (h *Handler) GetStatistics(c *gin.Context) {
	start, ok := h.parseTime(c, "start")
	if !ok {
		return
	}
	end, ok := h.parseTime(c, "end")
	if !ok {
		return
	}

	stats, err := h.service.Statistics(c.Request.Context(), c.Param("userId"), start, end)
	if err != nil {
		h.writeError(c, err, "Failed to compute statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetSummary handles GET /users/:userId/transactions/summary
func (h *Handler) GetSummary(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 365 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "days must be between 1 and 365",
			})
			return
		}
		days = parsed
	}

	summary, err := h.service.Summary(c.Request.Context(), c.Param("userId"), days)
	if err != nil {
		h.writeError(c, err, "Failed to compute summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) parseFilter(c *gin.Context) (ListFilter, bool) {
	filter := ListFilter{
		Type:     c.Query("type"),
		Category: c.Query("category"),
		Cursor:   c.Query("cursor"),
		Limit:    20,
	}
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "limit must be between 1 and 100",
			})
			return filter, false
		}
		filter.Limit = parsed
	}

	var ok bool
	if filter.From, ok = h.parseTime(c, "from"); !ok {
		return filter, false
	}
	if filter.To, ok = h.parseTime(c, "to"); !ok {
		return filter, false
	}
	return filter, true
}

func (h *Handler) parseTime(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": name + " must be RFC 3339",
		})
		return time.Time{}, false
	}
	return t, true
}

// writeError maps service errors to HTTP responses.
func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound) || errors.Is(err, users.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Transaction or user not found",
		})
	case errors.Is(err, ErrTooOldToModify):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "too_old",
			"message": err.Error(),
		})
	case errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrMissingCategory) || errors.Is(err, ErrCategoryTooLong) ||
		errors.Is(err, ErrDescriptionTooLong) || errors.Is(err, pagination.ErrInvalidCursor):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
	default:
		logging.L(c.Request.Context()).Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": fallback,
		})
	}
}
