package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/windofthesky/mysql-router/response"

	"github.com/gin-gonic/gin"
)

// TokenAuth 校验 Authorization: Bearer <token>。token 为空时不做校验。
func TokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "missing authorization header", "")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "invalid authorization format", "")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "invalid token", "")
			c.Abort()
			return
		}
		c.Next()
	}
}
