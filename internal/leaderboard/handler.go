package leaderboard

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/middleware"
	"github.com/teamhuddle/backend/pkg/response"
)

// SetRankRequest is the body for PUT /activities/:id/leaderboard/:userId. A null rank clears the entry.
type SetRankRequest struct {
	Rank *int `json:"rank"`
}

// Handler handles leaderboard endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a leaderboard handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Overview handles GET /leaderboard.
func (h *Handler) Overview(c *gin.Context) {
	boards, err := h.svc.Overview(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "failed to load leaderboard")
		return
	}
	response.OK(c, boards)
}

// Board handles GET /activities/:id/leaderboard.
func (h *Handler) Board(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	b, err := h.svc.Board(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to load leaderboard")
		return
	}
	response.OK(c, b)
}

// SetRank handles PUT /activities/:id/leaderboard/:userId (admin).
func (h *Handler) SetRank(c *gin.Context) {
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid activity id")
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req SetRankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.SetRank(c.Request.Context(), activityID, userID, req.Rank, middleware.UserID(c))
	if err != nil {
		h.writeError(c, err, "failed to set rank")
		return
	}
	response.OK(c, res)
}

func (h *Handler) writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrActivityNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalidRank):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrActivityNotCompleted):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		response.Internal(c, msg)
	}
}
