package middleware

import (
	"net/http"
	"strconv"

	"github.com/windofthesky/mysql-router/response"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes 限制管理请求的请求体大小，limit <= 0 时不限制。
// 声明长度超限的请求直接拒绝，未声明长度的请求在读取时截断。
func MaxBodyBytes(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	detail := "limit=" + strconv.FormatInt(limit, 10)

	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			response.ErrorWithStatus(c, http.StatusRequestEntityTooLarge, "request body too large", detail)
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
