package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders 安全响应头。接口只返回 JSON 与下载文件，不需要任何页面资源；
// 导出文件不允许被中间代理缓存
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		if strings.Contains(c.Request.URL.Path, "/export/") {
			h.Set("Cache-Control", "no-store")
		}
		c.Next()
	}
}
