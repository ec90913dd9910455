package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/teamhuddle/backend/pkg/response"
)

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Authorization, Content-Type"
	corsMaxAge  = "86400"
)

// originPolicy decides which browser origins may call the API.
type originPolicy struct {
	any     bool
	allowed map[string]struct{}
}

func newOriginPolicy(list string) originPolicy {
	p := originPolicy{allowed: make(map[string]struct{})}
	for _, o := range strings.Split(list, ",") {
		switch o = strings.TrimRight(strings.TrimSpace(o), "/"); o {
		case "":
		case "*":
			p.any = true
		default:
			p.allowed[o] = struct{}{}
		}
	}
	if len(p.allowed) == 0 {
		p.any = true
	}
	return p
}

// match returns the Access-Control-Allow-Origin value for origin, or "".
func (p originPolicy) match(origin string) string {
	if p.any {
		return "*"
	}
	if _, ok := p.allowed[origin]; ok {
		return origin
	}
	return ""
}

// CORS answers preflights and tags responses for the browser client.
// allowedOrigins is "*" or a comma-separated list such as
// "http://localhost:5173,https://huddle.example.com". Preflights from
// other origins are refused with 403.
func CORS(allowedOrigins string) gin.HandlerFunc {
	policy := newOriginPolicy(allowedOrigins)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allow := ""
		if origin != "" || policy.any {
			allow = policy.match(origin)
		}
		if !policy.any {
			c.Header("Vary", "Origin")
		}
		if allow != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allow)
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAge)
		}
		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		if allow == "" && origin != "" {
			response.Forbidden(c, "origin not allowed")
			c.Abort()
			return
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}
