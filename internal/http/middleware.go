package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sujalbistaa/whisperwall/internal/log"
)

const (
	ctxUserID    = "userID"
	ctxSessionID = "whisperSession"

	headerUserID         = "X-User-ID"
	headerWhisperSession = "X-Whisper-Session"
	headerAdminToken     = "X-Admin-Token"

	sessionCookie = "whisperwall"
	sessionKey    = "sid"
)

// UserChecker reports whether a user id is registered.
type UserChecker interface {
	UserExists(userID string) (bool, error)
}

// RequireUser trusts the X-User-ID header set by the auth gateway, but only
// for ids that exist.
func RequireUser(users UserChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerUserID)
		if id == "" {
			abortJSON(c, http.StatusUnauthorized, codeUnauthorized, "Unauthorized: user id required")
			return
		}
		ok, err := users.UserExists(id)
		if err != nil {
			respondError(c, err)
			return
		}
		if !ok {
			abortJSON(c, http.StatusUnauthorized, codeUnauthorized, "Unauthorized: unknown user")
			return
		}
		c.Set(ctxUserID, id)
		c.Next()
	}
}

// WhisperSession gives every caller a stable anonymous id. The
// X-Whisper-Session header wins over the cookie so that non-browser clients
// can keep their own.
func WhisperSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sid := c.GetHeader(headerWhisperSession); sid != "" {
			c.Set(ctxSessionID, sid)
			c.Next()
			return
		}
		session := sessions.Default(c)
		sid, _ := session.Get(sessionKey).(string)
		if sid == "" {
			sid = uuid.NewString()
			session.Set(sessionKey, sid)
			if err := session.Save(); err != nil {
				log.Warn.Printf("could not persist whisper session: %v", err)
			}
		}
		c.Header(headerWhisperSession, sid)
		c.Set(ctxSessionID, sid)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func currentSession(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}

// AdminAuthMiddleware checks the X-Admin-Token header. With no token
// configured every admin request is refused.
func AdminAuthMiddleware(requiredToken string) gin.HandlerFunc {
	if requiredToken == "" {
		log.Warn.Println("X_ADMIN_TOKEN not set; admin routes are disabled")
	}
	return func(c *gin.Context) {
		suppliedToken := c.GetHeader(headerAdminToken)
		if suppliedToken == "" || requiredToken == "" {
			abortJSON(c, http.StatusUnauthorized, codeUnauthorized, "Unauthorized: Admin token required")
			return
		}
		if subtle.ConstantTimeCompare([]byte(suppliedToken), []byte(requiredToken)) != 1 {
			abortJSON(c, http.StatusForbidden, codeForbidden, "Forbidden: Invalid admin token")
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware adds basic, sensible security headers.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}
