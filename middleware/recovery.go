package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/windofthesky/mysql-router/logging"
	"github.com/windofthesky/mysql-router/response"

	"github.com/gin-gonic/gin"
)

// Recovery 捕获处理函数的 panic，把堆栈写入 log 对应的域并返回 500。
func Recovery(log logging.DomainLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered: %v method=%s path=%s query=%s\n%s",
					err, c.Request.Method, c.Request.URL.Path, c.Request.URL.RawQuery, debug.Stack())

				response.ErrorWithStatus(c, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
				c.Abort()
			}
		}()
		c.Next()
	}
}
