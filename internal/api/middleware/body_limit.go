package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodyLimit 全局请求体大小限制中间件
// maxBytes: 允许的最大请求体字节数（如 1<<20 = 1MB）
//
// maxBytes <= 0 时不限制。超限时读取 Body 返回 *http.MaxBytesError，由 handler 的绑定错误处理映射为 413。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
