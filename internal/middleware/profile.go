package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/pkg/response"
)

// ContextProfile is the key for the caller's *models.Profile in gin context.
const ContextProfile = "profile"

// ProfileLoader fetches the caller's profile; (nil, nil) when none exists.
type ProfileLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// LoadProfile resolves the caller's profile after JWT, sets the role in context
// and rejects inactive or unknown accounts.
func LoadProfile(loader ProfileLoader, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		p, err := loader.GetByID(c.Request.Context(), UserID(c))
		if err != nil {
			logger.Error("load profile failed", zap.Error(err))
			response.Internal(c, "failed to load profile")
			c.Abort()
			return
		}
		if p == nil {
			response.Forbidden(c, "profile not provisioned")
			c.Abort()
			return
		}
		if p.Status != models.ProfileActive {
			response.Forbidden(c, "account is inactive")
			c.Abort()
			return
		}
		c.Set(ContextProfile, p)
		c.Set(ContextUserRole, string(p.Role))
		c.Next()
	}
}

// Profile returns the caller profile loaded by LoadProfile.
func Profile(c *gin.Context) *models.Profile {
	v, ok := c.Get(ContextProfile)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Profile)
	return p
}
