package middleware

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const (
	HeaderXRequestID    = "X-Request-ID"
	ContextKeyRequestID = "request_id"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

func nextID() string {
	nodeOnce.Do(func() {
		// 节点号 1 在 0..1023 之内，NewNode 不会失败
		node, _ = snowflake.NewNode(1)
	})
	return strconv.FormatInt(node.Generate().Int64(), 10)
}

// RequestID 透传或生成请求 ID，写入 gin.Context 与响应头。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = nextID()
		}

		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderXRequestID, requestID)

		c.Next()
	}
}
