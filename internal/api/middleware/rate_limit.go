package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SNU-Hackathon/Doany-sub004/pkg/response"
)

// Limiter 滑动窗口计数，由 pkg/redis.Client 实现
type Limiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 按 客户端 IP + 路由模板 限流。limiter 为 nil 或出错时降级放行
func RateLimit(limiter Limiter, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := "doany:rate_limit:" + c.ClientIP() + ":" + c.Request.Method + ":" + c.FullPath()
		allowed, err := limiter.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("限流检查失败，放行请求", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Next()
	}
}
