package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowHeaders  = "Content-Type, X-Requested-With, X-Request-ID"
	corsAllowMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsExposeHeaders = "Content-Disposition, X-Request-ID"
)

// CORS 跨域中间件。allowOrigins 含 "*" 时放行任意来源但不携带凭据；
// 导出接口依赖 Content-Disposition 取文件名，需要暴露给浏览器
func CORS(allowOrigins []string) gin.HandlerFunc {
	allowAny := false
	origins := make(map[string]struct{}, len(allowOrigins))
	for _, o := range allowOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAny = true
			continue
		}
		origins[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			c.Header("Vary", "Origin")
			_, listed := origins[origin]
			switch {
			case listed:
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Credentials", "true")
			case allowAny:
				c.Header("Access-Control-Allow-Origin", "*")
			}
			if listed || allowAny {
				c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
				c.Header("Access-Control-Allow-Methods", corsAllowMethods)
				c.Header("Access-Control-Expose-Headers", corsExposeHeaders)
				c.Header("Access-Control-Max-Age", "86400")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
