package profiles

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/middleware"
	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/pkg/response"
	"github.com/teamhuddle/backend/pkg/storage"
)

// WebhookSecretHeader carries the shared secret on provider webhooks.
const WebhookSecretHeader = "X-Webhook-Secret"

// Handler handles profile, user admin and allowlist endpoints.
type Handler struct {
	svc           *Service
	webhookSecret string
	logger        *zap.Logger
}

// NewHandler creates a profiles handler.
func NewHandler(svc *Service, webhookSecret string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, webhookSecret: webhookSecret, logger: logger}
}

// UpdateMeRequest is the body for PATCH /me.
type UpdateMeRequest struct {
	FullName string `json:"full_name" binding:"required"`
}

// StatusRequest is the body for PATCH /me/status and PATCH /users/:id/status.
type StatusRequest struct {
	Status models.ProfileStatus `json:"status" binding:"required"`
}

// RoleRequest is the body for PATCH /users/:id/role.
type RoleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// AddAdminRequest is the body for POST /admins.
type AddAdminRequest struct {
	Email string `json:"email" binding:"required"`
}

// Signup handles POST /webhooks/auth/signup.
func (h *Handler) Signup(c *gin.Context) {
	if h.webhookSecret == "" {
		response.ServiceUnavailable(c, "signup webhook not configured")
		return
	}
	if subtle.ConstantTimeCompare([]byte(c.GetHeader(WebhookSecretHeader)), []byte(h.webhookSecret)) != 1 {
		response.Unauthorized(c, "invalid webhook secret")
		return
	}
	var ev SignupEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, created, err := h.svc.HandleSignup(c.Request.Context(), ev)
	if err != nil {
		if errors.Is(err, ErrInvalidSignup) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("signup webhook failed", zap.Error(err), zap.String("record_id", ev.Record.ID))
		response.Internal(c, "failed to provision profile")
		return
	}
	if p == nil {
		response.OK(c, gin.H{"message": "event processed"})
		return
	}
	if created {
		response.Created(c, p)
		return
	}
	response.OK(c, p)
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	if p := middleware.Profile(c); p != nil {
		response.OK(c, p)
		return
	}
	p, err := h.svc.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.writeError(c, err, "failed to load profile")
		return
	}
	response.OK(c, p)
}

// UpdateMe handles PATCH /me.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.svc.UpdateName(c.Request.Context(), middleware.UserID(c), req.FullName)
	if err != nil {
		h.writeError(c, err, "failed to update profile")
		return
	}
	response.OK(c, p)
}

// SetMyStatus handles PATCH /me/status.
func (h *Handler) SetMyStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.svc.SetStatus(c.Request.Context(), middleware.UserID(c), req.Status)
	if err != nil {
		h.writeError(c, err, "failed to update status")
		return
	}
	response.OK(c, p)
}

// UploadAvatar handles POST /me/avatar (multipart field "file").
func (h *Handler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxAvatarSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}
	defer f.Close()
	p, err := h.svc.UploadAvatar(c.Request.Context(), middleware.UserID(c), fh.Header.Get("Content-Type"), fh.Size, f)
	if err != nil {
		h.writeError(c, err, "failed to upload avatar")
		return
	}
	response.OK(c, p)
}

// List handles GET /users (admin).
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "failed to list users")
		return
	}
	response.OK(c, list)
}

// SetRole handles PATCH /users/:id/role (admin).
func (h *Handler) SetRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.svc.SetRole(c.Request.Context(), id, req.Role)
	if err != nil {
		h.writeError(c, err, "failed to update role")
		return
	}
	response.OK(c, p)
}

// SetStatus handles PATCH /users/:id/status (admin).
func (h *Handler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.svc.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.writeError(c, err, "failed to update status")
		return
	}
	response.OK(c, p)
}

// ListAdmins handles GET /admins (admin).
func (h *Handler) ListAdmins(c *gin.Context) {
	list, err := h.svc.ListAdmins(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "failed to list admins")
		return
	}
	response.OK(c, list)
}

// AddAdmin handles POST /admins (admin).
func (h *Handler) AddAdmin(c *gin.Context) {
	var req AddAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	a, err := h.svc.AddAdmin(c.Request.Context(), req.Email)
	if err != nil {
		h.writeError(c, err, "failed to add admin")
		return
	}
	response.Created(c, a)
}

// RemoveAdmin handles DELETE /admins/:id (admin).
func (h *Handler) RemoveAdmin(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid admin id")
		return
	}
	if err := h.svc.RemoveAdmin(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "failed to remove admin")
		return
	}
	response.NoContent(c)
}

func (h *Handler) writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAdminNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrAvatarType):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrAdminExists):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrAvatarTooLarge):
		response.TooLarge(c, err.Error())
	case errors.Is(err, ErrAvatarsDisabled):
		response.ServiceUnavailable(c, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		response.Internal(c, msg)
	}
}
