package notifications

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/middleware"
	"github.com/teamhuddle/backend/pkg/response"
)

const listLimit = 100

// Handler serves the caller's notifications.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /notifications?unread=true.
func (h *Handler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	list, err := h.repo.ListForUser(c.Request.Context(), userID, c.Query("unread") == "true", listLimit)
	if err != nil {
		h.logger.Error("list notifications failed", zap.Error(err))
		response.Internal(c, "failed to list notifications")
		return
	}
	response.OK(c, list)
}

// MarkRead handles POST /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	ok, err := h.repo.MarkRead(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.logger.Error("mark notification read failed", zap.Error(err))
		response.Internal(c, "failed to update notification")
		return
	}
	if !ok {
		response.NotFound(c, "notification not found")
		return
	}
	response.NoContent(c)
}

// MarkAllRead handles POST /notifications/read-all.
func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.repo.MarkAllRead(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.logger.Error("mark all notifications read failed", zap.Error(err))
		response.Internal(c, "failed to update notifications")
		return
	}
	response.OK(c, gin.H{"updated": n})
}
