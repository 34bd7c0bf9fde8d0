package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/dialog-orchestrator/pkg/jwt"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

// AuthMiddleware verifies the bearer tokens the auth service issues
// before a turn reaches the orchestrator.
type AuthMiddleware struct {
	jwtManager *jwt.Manager
	logger     *logger.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *jwt.Manager, logger *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager, logger: logger}
}

// RequireAuth middleware that requires a valid access token
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := m.jwtManager.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			m.respondUnauthorized(c, "MISSING_TOKEN", "Authorization token required")
			return
		}

		claims, err := m.jwtManager.ValidateAccessToken(token)
		if err != nil {
			m.handleTokenError(c, err)
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("user_role", claims.Role)
		c.Set("tenant_id", claims.TenantID)

		c.Next()
	}
}

// handleTokenError maps JWT validation errors to responses
func (m *AuthMiddleware) handleTokenError(c *gin.Context, err error) {
	switch err {
	case jwt.ErrTokenExpired:
		m.respondUnauthorized(c, "TOKEN_EXPIRED", "Token has expired")
	case jwt.ErrTokenNotValidYet:
		m.respondUnauthorized(c, "TOKEN_NOT_VALID_YET", "Token is not valid yet")
	case jwt.ErrInvalidToken:
		m.respondUnauthorized(c, "INVALID_TOKEN", "Invalid token")
	case jwt.ErrInvalidTokenType:
		m.respondUnauthorized(c, "INVALID_TOKEN_TYPE", "Invalid token type")
	case jwt.ErrInvalidIssuer:
		m.respondUnauthorized(c, "INVALID_ISSUER", "Invalid token issuer")
	case jwt.ErrInvalidTokenFormat:
		m.respondUnauthorized(c, "INVALID_TOKEN_FORMAT", "Invalid token format")
	default:
		m.respondUnauthorized(c, "TOKEN_VALIDATION_ERROR", "Token validation failed")
	}
}

// respondUnauthorized sends an unauthorized response
func (m *AuthMiddleware) respondUnauthorized(c *gin.Context, code, message string) {
	m.logger.Warn("Unauthorized access attempt",
		"error_code", code,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"ip_address", c.ClientIP(),
	)

	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
	c.Abort()
}
