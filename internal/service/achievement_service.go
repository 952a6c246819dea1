package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SNU-Hackathon/Doany-sub004/internal/dto"
	"github.com/SNU-Hackathon/Doany-sub004/internal/model"
	"github.com/SNU-Hackathon/Doany-sub004/internal/repository"
	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
)

// AchievementService 达成率业务接口
type AchievementService interface {
	// Get 计算目标达成率，结果按目标缓存
	Get(ctx context.Context, goalID string) (*dto.AchievementResponse, error)
	RecordVerification(ctx context.Context, goalID string, req *dto.RecordVerificationRequest) (*dto.VerificationResponse, error)
	ListVerifications(ctx context.Context, goalID string, req *dto.VerificationListRequest) ([]dto.VerificationResponse, int64, error)
	// Invalidate 日程或验证事件变化后清除缓存
	Invalidate(ctx context.Context, goalID string)
	// Snapshot 为 date 当天处于周期内的所有目标写入达成率快照，返回写入数量
	Snapshot(ctx context.Context, date schedule.Date) (int, error)
}

type achievementService struct {
	settings Settings
	repo     *repository.Repository
	cache    Cache
	logger   *zap.Logger
}

// NewAchievementService 创建 AchievementService 实例，cache 可为 nil
func NewAchievementService(settings Settings, repo *repository.Repository, cache Cache, logger *zap.Logger) AchievementService {
	return &achievementService{settings: settings.withDefaults(), repo: repo, cache: cache, logger: logger}
}

func achievementCacheKey(goalID string) string { return "achievement:" + goalID }

// ════════════════════════════════════════════════════════════
// Get
// ════════════════════════════════════════════════════════════

func (s *achievementService) Get(ctx context.Context, goalID string) (*dto.AchievementResponse, error) {
	if s.cache != nil {
		var cached dto.AchievementResponse
		if err := s.cache.GetJSON(ctx, achievementCacheKey(goalID), &cached); err == nil {
			return &cached, nil
		}
	}

	goal, err := s.repo.Goal.GetByID(ctx, goalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		s.logger.Error("查询目标失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, err
	}

	resp, err := s.compute(ctx, goal)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, achievementCacheKey(goalID), resp, s.settings.AchievementTTL); err != nil {
			s.logger.Warn("写入达成率缓存失败", zap.String("goal_id", goalID), zap.Error(err))
		}
	}
	return resp, nil
}

// compute 物化 → 完整周划分 → 聚合；频率目标按周计数
func (s *achievementService) compute(ctx context.Context, goal *model.Goal) (*dto.AchievementResponse, error) {
	resp := &dto.AchievementResponse{
		GoalID:     goal.GoalID,
		Policy:     string(s.settings.Policy),
		Timezone:   s.settings.Zone.String(),
		Days:       []schedule.DayResult{},
		ComputedAt: s.settings.Now().In(s.settings.Zone.Location()).Format(timestampLayout),
	}

	events, err := s.repo.CalendarEvent.ListByGoal(ctx, goal.GoalID, "", "")
	if err != nil {
		s.logger.Error("查询日历事件失败", zap.String("goal_id", goal.GoalID), zap.Error(err))
		return nil, err
	}
	resolved, err := resolveGoal(goal, events)
	if err != nil {
		s.logger.Error("解析目标日程失败", zap.String("goal_id", goal.GoalID), zap.Error(err))
		return nil, err
	}
	if resolved.Period == nil {
		return resp, nil
	}
	period := *resolved.Period

	from, to := dayBounds(s.settings.Zone, period)
	rows, _, err := s.repo.Verification.ListByGoal(ctx, goal.GoalID, &from, &to, 0, 0)
	if err != nil {
		s.logger.Error("查询验证事件失败", zap.String("goal_id", goal.GoalID), zap.Error(err))
		return nil, err
	}
	verifications := make([]schedule.VerificationEvent, 0, len(rows))
	for _, v := range rows {
		verifications = append(verifications, schedule.VerificationEvent{
			Timestamp: v.OccurredAt,
			Status:    schedule.VerificationStatus(v.Status),
		})
	}

	agg := schedule.Aggregator{Zone: s.settings.Zone, Policy: s.settings.Policy}
	var result schedule.Achievement
	partition := schedule.PartitionCompleteWeeks(period, resolved.Store.MaterializeWithEvents(period))
	if schedule.GoalType(goal.GoalType) == schedule.GoalTypeFrequency {
		result = agg.AggregateWeekly(period, goal.PerWeek, verifications)
	} else {
		result = agg.Aggregate(partition.PerDate, verifications)
		result.Weeks = weeklyBreakdown(partition, result.Days)
	}

	if r, ok := partition.CompleteRange(); ok {
		resp.CompleteRange = &r
	}
	resp.RequiredTotal = result.RequiredTotal
	resp.TotalAchieved = result.TotalAchieved
	resp.Percent = result.Percent
	resp.Days = result.Days
	resp.Weeks = result.Weeks
	return resp, nil
}

// weeklyBreakdown 按完整周汇总逐日结果
func weeklyBreakdown(p schedule.WeekPartition, days []schedule.DayResult) []schedule.WindowResult {
	out := make([]schedule.WindowResult, 0, len(p.Weeks))
	for _, w := range p.Weeks {
		if !w.Complete {
			continue
		}
		wr := schedule.WindowResult{Index: w.Index, Range: w.Range, Required: w.Required}
		for _, d := range days {
			if w.Range.Contains(d.Date) {
				wr.Success += d.Success
				wr.Achieved += d.Achieved
			}
		}
		out = append(out, wr)
	}
	return out
}

func (s *achievementService) Invalidate(ctx context.Context, goalID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, achievementCacheKey(goalID)); err != nil {
		s.logger.Warn("清除达成率缓存失败", zap.String("goal_id", goalID), zap.Error(err))
	}
}

// ────────────────────── 验证事件 ──────────────────────

func (s *achievementService) RecordVerification(ctx context.Context, goalID string, req *dto.RecordVerificationRequest) (*dto.VerificationResponse, error) {
	if _, err := s.repo.Goal.GetByID(ctx, goalID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		s.logger.Error("查询目标失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, err
	}

	if req.QuestID != nil {
		quest, err := s.repo.Quest.GetByID(ctx, *req.QuestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrQuestNotFound
			}
			s.logger.Error("查询任务失败", zap.String("quest_id", *req.QuestID), zap.Error(err))
			return nil, err
		}
		if quest.GoalID != goalID {
			return nil, ErrQuestGoalMismatch
		}
	}

	occurredAt := s.settings.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}
	v := &model.Verification{
		GoalID:     goalID,
		QuestID:    req.QuestID,
		OccurredAt: occurredAt.UTC(),
		Status:     req.Status,
		Method:     req.Method,
		Note:       req.Note,
	}
	if err := s.repo.Verification.Create(ctx, v); err != nil {
		s.logger.Error("记录验证事件失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, err
	}
	s.Invalidate(ctx, goalID)

	s.logger.Info("记录验证事件",
		zap.String("goal_id", goalID),
		zap.String("status", v.Status),
		zap.String("date", s.settings.Zone.DateOf(v.OccurredAt).String()),
	)
	resp := toVerificationResponse(v, s.settings.Zone)
	return &resp, nil
}

func (s *achievementService) ListVerifications(ctx context.Context, goalID string, req *dto.VerificationListRequest) ([]dto.VerificationResponse, int64, error) {
	if _, err := s.repo.Goal.GetByID(ctx, goalID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrGoalNotFound
		}
		return nil, 0, err
	}

	var from, to *time.Time
	if req.From != "" {
		d, err := schedule.ParseDate(req.From)
		if err != nil {
			return nil, 0, fmt.Errorf("from: %w", err)
		}
		t := s.settings.Zone.Midnight(d)
		from = &t
	}
	if req.To != "" {
		d, err := schedule.ParseDate(req.To)
		if err != nil {
			return nil, 0, fmt.Errorf("to: %w", err)
		}
		t := s.settings.Zone.Midnight(d.AddDays(1))
		to = &t
	}

	rows, total, err := s.repo.Verification.ListByGoal(ctx, goalID, from, to, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询验证事件失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, 0, err
	}
	out := make([]dto.VerificationResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toVerificationResponse(&rows[i], s.settings.Zone))
	}
	return out, total, nil
}

// ════════════════════════════════════════════════════════════
// Snapshot 由定时任务调用
// ════════════════════════════════════════════════════════════

func (s *achievementService) Snapshot(ctx context.Context, date schedule.Date) (int, error) {
	goals, err := s.repo.Goal.ListActiveOn(ctx, date.String())
	if err != nil {
		s.logger.Error("查询进行中的目标失败", zap.Error(err))
		return 0, err
	}

	written := 0
	for i := range goals {
		goal := &goals[i]
		resp, err := s.compute(ctx, goal)
		if err != nil {
			// 单个目标失败不影响其余目标
			s.logger.Warn("计算达成率快照失败", zap.String("goal_id", goal.GoalID), zap.Error(err))
			continue
		}
		snap := &model.AchievementSnapshot{
			GoalID:        goal.GoalID,
			SnapshotDate:  date.String(),
			RequiredTotal: resp.RequiredTotal,
			TotalAchieved: resp.TotalAchieved,
			Percent:       resp.Percent,
		}
		if err := s.repo.Snapshot.Upsert(ctx, snap); err != nil {
			s.logger.Warn("写入达成率快照失败", zap.String("goal_id", goal.GoalID), zap.Error(err))
			continue
		}
		written++
	}
	s.logger.Info("达成率快照完成", zap.String("date", date.String()), zap.Int("goals", len(goals)), zap.Int("written", written))
	return written, nil
}
