package middleware

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	"github.com/shivamkjha23-afk/ATR2026/internal/identity"
)

// identityKey is the gin context key holding the acting user for audit stamps.
const identityKey = "actingUser"

// AuthMiddleware verifies the Firebase bearer token and stores the acting
// user (email when present, UID otherwise) in the request context. When no
// auth client is configured (local-only mode) requests proceed as the system
// actor.
func AuthMiddleware(firebaseAuth *auth.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if firebaseAuth == nil {
			c.Set(identityKey, identity.SystemActor)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		token, err := firebaseAuth.VerifyIDToken(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid ID token: " + err.Error()})
			return
		}

		actor := token.UID
		if email, ok := token.Claims["email"].(string); ok && email != "" {
			actor = identity.UsernameFromEmail(email)
		}
		c.Set(identityKey, actor)
		c.Next()
	}
}

// WithActor forces the acting user for every request. Used for in-process
// routes and tests that bypass token verification.
func WithActor(actor string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(identityKey, identity.ActorOrSystem(actor))
		c.Next()
	}
}

// ActingUser returns the audit identity resolved by AuthMiddleware, falling
// back to the system actor.
func ActingUser(c *gin.Context) string {
	if v, ok := c.Get(identityKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return identity.SystemActor
}
