package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/dialog-orchestrator/internal/middleware"
	"github.com/slotwise/dialog-orchestrator/pkg/jwt"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

func authRouter(manager *jwt.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	auth := middleware.NewAuthMiddleware(manager, logger.New("error"))
	router.POST("/api/v1/turns", auth.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	return router
}

func requestWithToken(t *testing.T, router *gin.Engine, token string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "/api/v1/turns", nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_ValidTokenSetsUserContext(t *testing.T) {
	manager := jwt.NewManager(jwt.Config{Secret: "test-secret", Issuer: "slotwise-auth", AccessTokenTTL: time.Minute})
	router := authRouter(manager)

	token, err := manager.GenerateAccessToken("u1", "u1@example.com", "customer", "tenant-1")
	require.NoError(t, err)

	w := requestWithToken(t, router, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u1")
}

func TestRequireAuth_MissingTokenRejected(t *testing.T) {
	manager := jwt.NewManager(jwt.Config{Secret: "test-secret", Issuer: "slotwise-auth", AccessTokenTTL: time.Minute})
	router := authRouter(manager)

	w := requestWithToken(t, router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_TOKEN")
}

func TestRequireAuth_WrongSecretRejected(t *testing.T) {
	manager := jwt.NewManager(jwt.Config{Secret: "test-secret", Issuer: "slotwise-auth", AccessTokenTTL: time.Minute})
	other := jwt.NewManager(jwt.Config{Secret: "other-secret", Issuer: "slotwise-auth", AccessTokenTTL: time.Minute})
	router := authRouter(manager)

	token, err := other.GenerateAccessToken("u1", "", "", "")
	require.NoError(t, err)

	w := requestWithToken(t, router, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_WrongIssuerRejected(t *testing.T) {
	manager := jwt.NewManager(jwt.Config{Secret: "test-secret", Issuer: "slotwise-auth", AccessTokenTTL: time.Minute})
	other := jwt.NewManager(jwt.Config{Secret: "test-secret", Issuer: "someone-else", AccessTokenTTL: time.Minute})
	router := authRouter(manager)

	token, err := other.GenerateAccessToken("u1", "", "", "")
	require.NoError(t, err)

	w := requestWithToken(t, router, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ISSUER")
}

func TestRequireAuth_ExpiredTokenRejected(t *testing.T) {
	manager := jwt.NewManager(jwt.Config{Secret: "test-secret", Issuer: "slotwise-auth", AccessTokenTTL: -time.Minute})
	router := authRouter(jwt.NewManager(jwt.Config{Secret: "test-secret", Issuer: "slotwise-auth", AccessTokenTTL: time.Minute}))

	token, err := manager.GenerateAccessToken("u1", "", "", "")
	require.NoError(t, err)

	w := requestWithToken(t, router, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}
