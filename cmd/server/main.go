package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/SNU-Hackathon/Doany-sub004/config"
	"github.com/SNU-Hackathon/Doany-sub004/internal/api/handler"
	"github.com/SNU-Hackathon/Doany-sub004/internal/api/router"
	"github.com/SNU-Hackathon/Doany-sub004/internal/job"
	"github.com/SNU-Hackathon/Doany-sub004/internal/repository"
	"github.com/SNU-Hackathon/Doany-sub004/internal/service"
	"github.com/SNU-Hackathon/Doany-sub004/pkg/database"
	applogger "github.com/SNU-Hackathon/Doany-sub004/pkg/logger"
	"github.com/SNU-Hackathon/Doany-sub004/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，留空时按默认路径查找")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("timezone", cfg.Schedule.Timezone),
		zap.String("duplicate_policy", cfg.Schedule.DuplicatePolicy),
	)

	// 3. 连接数据库并迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：失败时不缓存、不限流）
	var cache service.Cache
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，达成率缓存与限流将不可用", zap.Error(err))
		rdb = nil
	} else {
		cache = rdb
	}

	// 5. 依赖注入: Repository → Service → Handler
	settings, err := service.NewSettings(cfg)
	if err != nil {
		logger.Fatal("日程参数无效", zap.Error(err))
	}
	repo := repository.NewRepository(db)
	svc := service.NewService(settings, repo, cache, logger)
	h := handler.NewHandler(svc)

	// 6. 初始化路由
	engine, err := router.Setup(cfg, h, rdb, logger)
	if err != nil {
		logger.Fatal("初始化路由失败", zap.Error(err))
	}

	// 7. 达成率快照任务
	var snapshotJob *job.SnapshotJob
	if cfg.Job.SnapshotEnabled {
		snapshotJob, err = job.NewSnapshotJob(cfg.Job.SnapshotCron, settings.Zone, svc.Achievement, logger)
		if err != nil {
			logger.Fatal("初始化快照任务失败", zap.Error(err))
		}
		snapshotJob.Start()
	}

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if snapshotJob != nil {
		snapshotJob.Stop(ctx)
	}

	sqlDB.Close()

	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
