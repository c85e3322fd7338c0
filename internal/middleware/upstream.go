package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/teacher-stats-api/pkg/errors"
	"github.com/noah-isme/teacher-stats-api/pkg/response"
)

// ContextUpstreamTokenKey stores the schedule platform token forwarded by the teacher.
const ContextUpstreamTokenKey = "upstreamToken"

// UpstreamToken requires the schedule platform token in the Authorization header.
// Both "Bearer <token>" and the bare token are accepted.
func UpstreamToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		token, ok := bearerToken(header)
		if !ok {
			token = header
		}
		if token == "" {
			response.Error(c, appErrors.ErrMissingUpstreamToken)
			c.Abort()
			return
		}
		c.Set(ContextUpstreamTokenKey, token)
		c.Next()
	}
}

// UpstreamTokenValue returns the token stored by UpstreamToken.
func UpstreamTokenValue(c *gin.Context) string {
	if v, ok := c.Get(ContextUpstreamTokenKey); ok {
		if token, ok := v.(string); ok {
			return token
		}
	}
	return ""
}
