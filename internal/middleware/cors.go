package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS returns a permissive CORS middleware suitable for the internal
// surfaces this service fronts.
func CORS() gin.HandlerFunc {
	allowMethods := strings.Join([]string{
		http.MethodGet,
		http.MethodPost,
		http.MethodOptions,
	}, ", ")
	allowHeaders := strings.Join([]string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
		"Accept",
	}, ", ")

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", allowMethods)
		c.Header("Access-Control-Allow-Headers", allowHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
