package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/windofthesky/mysql-router/logging"
)

// AccessLog 访问日志中间件，每个请求在 log 对应的域写一行。
// 5xx 记为 Error，4xx 记为 Warning，其余为 Info。
func AccessLog(log logging.DomainLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		cost := time.Since(start)
		status := c.Writer.Status()

		level := logging.LevelInfo
		switch {
		case status >= 500:
			level = logging.LevelError
		case status >= 400:
			level = logging.LevelWarning
		}
		if !log.Enabled(level) {
			return
		}

		traceID := "-"
		if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.HasTraceID() {
			traceID = spanCtx.TraceID().String()
		}
		requestID := c.GetString(ContextKeyRequestID)
		if requestID == "" {
			requestID = "-"
		}

		_ = log.Log(level, "%s %s status=%d cost=%s ip=%s query=%q request_id=%s trace_id=%s",
			c.Request.Method, path, status, cost, c.ClientIP(), query, requestID, traceID)
	}
}
