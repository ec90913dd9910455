package activities

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/middleware"
	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/pkg/response"
)

// ParticipantLister loads the RSVPs of an activity.
type ParticipantLister interface {
	ListForActivity(ctx context.Context, activityID uuid.UUID) ([]models.Participation, error)
}

// Detail is an activity with its participants and the caller's response.
type Detail struct {
	View
	Participants []models.Participation `json:"participants"`
	MyResponse   *models.Participation  `json:"my_response,omitempty"`
}

// Handler handles activity endpoints.
type Handler struct {
	svc          *Service
	participants ParticipantLister
	logger       *zap.Logger
}

// NewHandler creates an activities handler.
func NewHandler(svc *Service, participants ParticipantLister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, participants: participants, logger: logger}
}

// List handles GET /activities.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "failed to list activities")
		return
	}
	response.OK(c, list)
}

// Get handles GET /activities/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := activityID(c)
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to load activity")
		return
	}
	d := Detail{View: *v, Participants: []models.Participation{}}
	if h.participants != nil {
		list, err := h.participants.ListForActivity(c.Request.Context(), id)
		if err != nil {
			h.writeError(c, err, "failed to load participants")
			return
		}
		me := middleware.UserID(c)
		for i := range list {
			if list[i].UserID == me {
				d.MyResponse = &list[i]
			}
		}
		if list != nil {
			d.Participants = list
		}
	}
	response.OK(c, d)
}

// Create handles POST /activities (admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	v, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.writeError(c, err, "failed to create activity")
		return
	}
	response.Created(c, v)
}

// Update handles PATCH /activities/:id (admin).
func (h *Handler) Update(c *gin.Context) {
	id, ok := activityID(c)
	if !ok {
		return
	}
	var req UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	v, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err, "failed to update activity")
		return
	}
	response.OK(c, v)
}

// Complete handles POST /activities/:id/complete (admin).
func (h *Handler) Complete(c *gin.Context) {
	h.statusAction(c, h.svc.Complete, "failed to complete activity")
}

// Cancel handles POST /activities/:id/cancel (admin).
func (h *Handler) Cancel(c *gin.Context) {
	h.statusAction(c, h.svc.Cancel, "failed to cancel activity")
}

// Delete handles DELETE /activities/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	h.statusAction(c, h.svc.Delete, "failed to delete activity")
}

func (h *Handler) statusAction(c *gin.Context, fn func(context.Context, uuid.UUID) error, msg string) {
	id, ok := activityID(c)
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), id); err != nil {
		h.writeError(c, err, msg)
		return
	}
	response.NoContent(c)
}

func activityID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidReference):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotStarted), errors.Is(err, ErrCancelled), errors.Is(err, ErrPollAlreadyPromoted):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		response.Internal(c, msg)
	}
}
