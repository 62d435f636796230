package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

const sessionKey = "currentSession"

// SessionLoader resolves the :id path parameter against the registry and
// stores the session in the context.
func SessionLoader(reg *scheduler.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := reg.Get(c.Param("id"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}

// GetSession retrieves the session set by SessionLoader.
func GetSession(c *gin.Context) (*scheduler.Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	s, ok := v.(*scheduler.Session)
	return s, ok
}
