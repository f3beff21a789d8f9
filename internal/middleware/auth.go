package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/models"
)

const (
	currentUserKey = "currentUser"
	// SessionTokenKey is where login stores the access token in the cookie session.
	SessionTokenKey = "token"
)

// Authenticate resolves the caller from the Authorization header (raw or Bearer)
// or, failing that, the session cookie. Disabled users are rejected.
func Authenticate(db *gorm.DB, tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c.GetHeader("Authorization"))
		if raw == "" {
			raw = sessionToken(c)
		}
		if raw == "" {
			abort(c, apperr.UnauthorizedErr("Unauthorized"))
			return
		}

		userID, err := tokens.Parse(raw)
		if err != nil {
			abort(c, apperr.UnauthorizedErr("Unauthorized"))
			return
		}

		var u models.User
		if err := db.WithContext(c.Request.Context()).
			Where("id = ? AND status = ?", userID, true).
			First(&u).Error; err != nil {
			abort(c, apperr.UnauthorizedErr("Unauthorized"))
			return
		}
		c.Set(currentUserKey, &u)
		c.Next()
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			abort(c, apperr.UnauthorizedErr("No user found in request"))
			return
		}
		if !u.Role.IsAdmin() {
			abort(c, apperr.ForbiddenErr("Admin access required"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user stored by Authenticate.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}

// SetCurrentUser is used by tests that skip token handling.
func SetCurrentUser(c *gin.Context, u *models.User) {
	c.Set(currentUserKey, u)
}

func bearer(h string) string {
	h = strings.TrimSpace(h)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

func sessionToken(c *gin.Context) string {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return ""
	}
	tok, _ := sessions.Default(c).Get(SessionTokenKey).(string)
	return tok
}

// abort hands err to the error middleware and stops the chain.
func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
