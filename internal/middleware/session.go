// Package middleware carries ambient gin middleware: session identification
// (no authentication, by design).
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kestrel-retail/discovery-engine/internal/logger"
)

const sessionCookieName = "discovery_session"

type SessionMiddleware struct {
	log *logger.Logger
}

func NewSessionMiddleware(log *logger.Logger) *SessionMiddleware {
	return &SessionMiddleware{log: log.With("middleware", "SessionMiddleware")}
}

// Resolve reads the session cookie if present and stashes it on the gin
// context; it does not mint a new id (the orchestrator issues one on first
// search) and does not enforce its presence.
func (m *SessionMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cookie, err := c.Cookie(sessionCookieName); err == nil && cookie != "" {
			c.Set("session_id", cookie)
		}
		c.Next()
	}
}

func SessionIDFromContext(c *gin.Context) string {
	v, ok := c.Get("session_id")
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// SetSessionCookie persists a freshly-resolved session id for the next
// request, valid for the session's 30-day expiry.
func SetSessionCookie(c *gin.Context, sessionID string) {
	c.SetCookie(sessionCookieName, sessionID, 30*24*60*60, "/", "", false, true)
}
