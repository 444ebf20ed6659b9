// Package middleware provides the gin middleware shared by every Auscultify route:
// session helpers, panic recovery, request ids and logging, and JSON body validation.
package middleware

import (
	contextutils "auscultify/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys for storing user information
const (
	// UserIDKey is the key used to store the user id in the session
	UserIDKey = "user_id"
	// EmailKey is the key used to store the login e-mail in the session
	EmailKey = "email"
)

const msgSessionRequired = "No hay ninguna sesión iniciada"

// SetSessionUser stores the logged-in user in the cookie session
func SetSessionUser(c *gin.Context, userID int, email string) error {
	session := sessions.Default(c)
	session.Set(UserIDKey, userID)
	session.Set(EmailKey, email)
	return session.Save()
}

// ClearSession removes every value from the cookie session and expires the cookie
func ClearSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// SessionUser reads the user stored by SetSessionUser
func SessionUser(c *gin.Context) (int, string, bool) {
	session := sessions.Default(c)

	var userID int
	switch v := session.Get(UserIDKey).(type) {
	case int:
		userID = v
	case int64:
		userID = int(v)
	case float64:
		userID = int(v)
	default:
		return 0, "", false
	}

	email, ok := session.Get(EmailKey).(string)
	if !ok || email == "" {
		return 0, "", false
	}
	return userID, email, true
}

// RequireAuth rejects requests without a session user and exposes the user under
// UserIDKey and EmailKey in the gin context
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, email, ok := SessionUser(c)
		if !ok {
			WriteError(c, contextutils.NewAppError(contextutils.ErrorCodeUnauthorized, contextutils.SeverityWarn, msgSessionRequired, ""))
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(EmailKey, email)
		c.Next()
	}
}
