package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SNU-Hackathon/Doany-sub004/config"
	"github.com/SNU-Hackathon/Doany-sub004/internal/api/handler"
	"github.com/SNU-Hackathon/Doany-sub004/internal/api/middleware"
	"github.com/SNU-Hackathon/Doany-sub004/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎，rdb 可为 nil
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		var limiter middleware.Limiter
		if rdb != nil {
			limiter = rdb
		}
		v1.Use(middleware.RateLimit(limiter, cfg.RateLimit.Limit, cfg.RateLimit.Window, logger))
	}
	{
		// 预览不落库
		v1.POST("/schedule/preview", h.Schedule.Preview)

		// 目标模块
		goals := v1.Group("/goals")
		{
			goals.POST("", h.Goal.CreateGoal)
			goals.GET("", h.Goal.ListGoals)
			goals.GET("/:id", h.Goal.GetGoal)
			goals.PATCH("/:id", h.Goal.UpdateGoal)
			goals.DELETE("/:id", h.Goal.DeleteGoal)

			// 日程
			goals.GET("/:id/schedule", h.Schedule.GetSchedule)
			goals.PUT("/:id/schedule", h.Schedule.UpdateSchedule)
			goals.POST("/:id/schedule/toggle", h.Schedule.ToggleDate)
			goals.POST("/:id/schedule/ranges", h.Schedule.ApplyRange)

			// 日历事件
			goals.GET("/:id/events", h.Schedule.ListEvents)
			goals.POST("/:id/events", h.Schedule.CreateEvent)
			goals.POST("/:id/events/import", h.Schedule.ImportICS)
			goals.DELETE("/:id/events/:eventId", h.Schedule.DeleteEvent)

			// 任务
			goals.GET("/:id/quests", h.Quest.ListQuests)
			goals.POST("/:id/quests/sync", h.Quest.SyncQuests)

			// 达成率与验证
			goals.GET("/:id/achievement", h.Achievement.GetAchievement)
			goals.GET("/:id/verifications", h.Achievement.ListVerifications)
			goals.POST("/:id/verifications", h.Achievement.RecordVerification)

			// 导出
			goals.GET("/:id/export/achievement", h.Export.ExportAchievement)
			goals.GET("/:id/export/calendar", h.Export.ExportCalendar)
		}

		v1.PUT("/quests/:id/status", h.Quest.UpdateStatus)
	}

	return r, nil
}
