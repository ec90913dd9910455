package participation

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/middleware"
	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/pkg/response"
)

// RespondRequest is the body for POST /activities/:id/respond.
type RespondRequest struct {
	Status          models.ParticipationStatus `json:"status" binding:"required"`
	RejectionReason string                     `json:"rejection_reason"`
}

// Handler handles RSVP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a participation handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Respond handles POST /activities/:id/respond.
func (h *Handler) Respond(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.svc.Respond(c.Request.Context(), id, middleware.UserID(c), req.Status, req.RejectionReason)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrReasonRequired):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrActivityNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, ErrActivityClosed):
			response.Conflict(c, err.Error())
		default:
			h.logger.Error("respond to activity failed", zap.Error(err), zap.String("activity_id", id.String()))
			response.Internal(c, "failed to save response")
		}
		return
	}
	response.OK(c, p)
}

// List handles GET /activities/:id/participants.
func (h *Handler) List(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	list, err := h.svc.List(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list participants failed", zap.Error(err), zap.String("activity_id", id.String()))
		response.Internal(c, "failed to list participants")
		return
	}
	if list == nil {
		list = []models.Participation{}
	}
	response.OK(c, list)
}
