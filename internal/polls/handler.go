package polls

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/middleware"
	"github.com/teamhuddle/backend/pkg/queue"
	"github.com/teamhuddle/backend/pkg/response"
)

// CronSecretHeader authenticates external schedulers.
const CronSecretHeader = "X-Cron-Secret"

// SweepEnqueuer queues a promotion sweep for the worker.
type SweepEnqueuer interface {
	Enqueue(ctx context.Context, jobType queue.JobType, payload interface{}) error
}

// SweepJob is the payload of a promotion_sweep job.
type SweepJob struct {
	ActorID *uuid.UUID `json:"actor_id,omitempty"`
}

// Handler handles poll endpoints.
type Handler struct {
	svc        *Service
	jobs       SweepEnqueuer
	cronSecret string
	logger     *zap.Logger
}

// NewHandler creates a polls handler. jobs may be nil; async sweeps are then rejected.
func NewHandler(svc *Service, jobs SweepEnqueuer, cronSecret string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, jobs: jobs, cronSecret: cronSecret, logger: logger}
}

// VoteRequest is the body for POST/PUT /polls/:id/vote.
type VoteRequest struct {
	OptionID uuid.UUID `json:"option_id" binding:"required"`
}

// List handles GET /polls.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.writeError(c, err, "failed to list polls")
		return
	}
	response.OK(c, list)
}

// Get handles GET /polls/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.writeError(c, err, "failed to load poll")
		return
	}
	response.OK(c, v)
}

// Create handles POST /polls.
func (h *Handler) Create(c *gin.Context) {
	var req CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.writeError(c, err, "failed to create poll")
		return
	}
	response.Created(c, p)
}

// Vote handles POST /polls/:id/vote.
func (h *Handler) Vote(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	v, err := h.svc.Vote(c.Request.Context(), id, req.OptionID, middleware.UserID(c))
	if err != nil {
		h.writeError(c, err, "failed to vote")
		return
	}
	response.Created(c, v)
}

// ChangeVote handles PUT /polls/:id/vote.
func (h *Handler) ChangeVote(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.ChangeVote(c.Request.Context(), id, req.OptionID, middleware.UserID(c)); err != nil {
		h.writeError(c, err, "failed to change vote")
		return
	}
	response.NoContent(c)
}

// Close handles POST /polls/:id/close (admin).
func (h *Handler) Close(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	if err := h.svc.Close(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "failed to close poll")
		return
	}
	response.NoContent(c)
}

// Delete handles DELETE /polls/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "failed to delete poll")
		return
	}
	response.NoContent(c)
}

// ProcessExpired handles POST /polls/process-expired (admin). The admin becomes the activity creator.
func (h *Handler) ProcessExpired(c *gin.Context) {
	actor := middleware.UserID(c)
	h.sweep(c, &actor)
}

// ProcessExpiredCron handles POST /internal/polls/process-expired for external schedulers.
func (h *Handler) ProcessExpiredCron(c *gin.Context) {
	if h.cronSecret == "" {
		response.ServiceUnavailable(c, "cron trigger not configured")
		return
	}
	if subtle.ConstantTimeCompare([]byte(c.GetHeader(CronSecretHeader)), []byte(h.cronSecret)) != 1 {
		response.Unauthorized(c, "invalid cron secret")
		return
	}
	h.sweep(c, nil)
}

// sweep runs inline, or enqueues a job with ?async=true.
func (h *Handler) sweep(c *gin.Context, actor *uuid.UUID) {
	if c.Query("async") == "true" {
		if h.jobs == nil {
			response.ServiceUnavailable(c, "job queue not configured")
			return
		}
		if err := h.jobs.Enqueue(c.Request.Context(), queue.JobTypePromotionSweep, SweepJob{ActorID: actor}); err != nil {
			h.logger.Error("enqueue promotion sweep failed", zap.Error(err))
			response.Internal(c, "failed to queue sweep")
			return
		}
		response.Accepted(c, gin.H{"queued": true})
		return
	}
	sum, err := h.svc.ProcessExpired(c.Request.Context(), actor)
	if err != nil {
		h.writeError(c, err, "failed to process expired polls")
		return
	}
	response.OK(c, sum)
}

func pollID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid poll id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrAlreadyVoted), errors.Is(err, ErrPollNotOpen):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrNoExistingVote), errors.Is(err, ErrOptionNotInPoll),
		errors.Is(err, ErrTitleRequired), errors.Is(err, ErrTooFewOptions),
		errors.Is(err, ErrOptionTitleRequired), errors.Is(err, ErrExpiryInPast):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		response.Internal(c, msg)
	}
}
