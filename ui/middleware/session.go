package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"medstat/domain/core"
	"medstat/internal/session"
)

const (
	// SessionCookie carries the browser session id
	SessionCookie = "medstat_session"
	// SessionHeader is accepted instead of the cookie by scripts and tests
	SessionHeader = "X-Session-ID"

	sessionKey = "medstat.session"
)

// RequireSession resolves the browser session of the request and stores it
// in the gin context. Requests without a live session are answered through
// onError and aborted.
func RequireSession(state *session.AppState, onError func(*gin.Context, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(SessionHeader)
		if raw == "" {
			raw, _ = c.Cookie(SessionCookie)
		}
		if raw == "" {
			onError(c, fmt.Errorf("%w: create one with POST /api/session", core.ErrSessionNotFound))
			c.Abort()
			return
		}

		id, err := core.ParseID(raw)
		if err != nil {
			onError(c, fmt.Errorf("%w: %v", core.ErrSessionNotFound, err))
			c.Abort()
			return
		}

		sess, err := state.Get(id)
		if err != nil {
			onError(c, err)
			c.Abort()
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// Session returns the session stored by RequireSession
func Session(c *gin.Context) *session.BrowserSession {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.BrowserSession)
	return sess
}

// SetSessionCookie hands the session id to the browser
func SetSessionCookie(c *gin.Context, id core.ID, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id.String(), maxAge, "/", "", false, true)
}
