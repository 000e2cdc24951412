package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/shivamkjha23-afk/ATR2026/internal/identity"
)

func TestAuthMiddleware_LocalOnlyMode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(nil))
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, ActingUser(c))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, identity.SystemActor, w.Body.String())
}

func TestWithActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithActor(" Shivam.Jha "))
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, ActingUser(c))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, "shivam.jha", w.Body.String())
}

func TestActingUser_Fallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	require.Equal(t, identity.SystemActor, ActingUser(c))
}
