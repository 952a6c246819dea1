package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SNU-Hackathon/Doany-sub004/config"
	"github.com/SNU-Hackathon/Doany-sub004/internal/repository"
	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Goal        GoalService
	Schedule    ScheduleService
	Quest       QuestService
	Achievement AchievementService
	Export      ExportService
}

// Cache 达成率结果缓存。nil 表示不启用缓存。
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Settings 日程计算的运行参数
type Settings struct {
	Zone           schedule.Zone
	QuestCap       int
	PreviewCap     int
	Policy         schedule.DuplicatePolicy
	AchievementTTL time.Duration
	// Now 可在测试中替换
	Now func() time.Time
}

// NewSettings 由配置构造运行参数
func NewSettings(cfg *config.Config) (Settings, error) {
	zone, err := schedule.LoadZone(cfg.Schedule.Timezone)
	if err != nil {
		return Settings{}, err
	}
	policy, err := schedule.ParseDuplicatePolicy(cfg.Schedule.DuplicatePolicy)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Zone:           zone,
		QuestCap:       cfg.Schedule.QuestCap,
		PreviewCap:     cfg.Schedule.PreviewCap,
		Policy:         policy,
		AchievementTTL: cfg.Cache.AchievementTTL,
		Now:            time.Now,
	}.withDefaults(), nil
}

func (s Settings) withDefaults() Settings {
	if s.QuestCap <= 0 {
		s.QuestCap = schedule.DefaultQuestCap
	}
	if s.PreviewCap <= 0 {
		s.PreviewCap = schedule.DefaultQuestCap
	}
	if s.Policy == "" {
		s.Policy = schedule.CountEach
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

// today 配置时区下的今天
func (s Settings) today() schedule.Date {
	return s.Zone.DateOf(s.Now())
}

// NewService 创建 Service 聚合
func NewService(
	settings Settings,
	repo *repository.Repository,
	cache Cache,
	logger *zap.Logger,
) *Service {
	settings = settings.withDefaults()

	quest := NewQuestService(settings, repo, logger)
	achievement := NewAchievementService(settings, repo, cache, logger)
	sched := NewScheduleService(settings, repo, quest, achievement, logger)
	return &Service{
		Goal:        NewGoalService(settings, repo, quest, achievement, logger),
		Schedule:    sched,
		Quest:       quest,
		Achievement: achievement,
		Export:      NewExportService(settings, sched, achievement, logger),
	}
}
