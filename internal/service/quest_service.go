package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SNU-Hackathon/Doany-sub004/internal/dto"
	"github.com/SNU-Hackathon/Doany-sub004/internal/model"
	"github.com/SNU-Hackathon/Doany-sub004/internal/repository"
	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
	pkgerrors "github.com/SNU-Hackathon/Doany-sub004/pkg/errors"
)

// QuestService 任务业务接口
type QuestService interface {
	List(ctx context.Context, goalID string, req *dto.QuestListRequest) ([]dto.QuestResponse, error)
	// Sync 按当前目标定义重算今天及以后的任务，新增缺失任务并退役失效的 pending 任务
	Sync(ctx context.Context, goalID string) (*dto.SyncQuestsResponse, error)
	// SyncGoal 在调用方的事务中同步；repo 为事务绑定的聚合
	SyncGoal(ctx context.Context, repo *repository.Repository, goal *model.Goal) (*dto.SyncQuestsResponse, error)
	// UpdateStatus 记录外部验证子系统上报的状态
	UpdateStatus(ctx context.Context, questID string, req *dto.UpdateQuestStatusRequest) (*dto.QuestResponse, error)
}

type questService struct {
	settings Settings
	repo     *repository.Repository
	logger   *zap.Logger
}

// NewQuestService 创建 QuestService 实例
func NewQuestService(settings Settings, repo *repository.Repository, logger *zap.Logger) QuestService {
	return &questService{settings: settings.withDefaults(), repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *questService) List(ctx context.Context, goalID string, req *dto.QuestListRequest) ([]dto.QuestResponse, error) {
	if _, err := s.repo.Goal.GetByID(ctx, goalID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		s.logger.Error("查询目标失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, err
	}

	rows, err := s.repo.Quest.ListByGoal(ctx, goalID, req.Status)
	if err != nil {
		s.logger.Error("查询任务列表失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, err
	}

	out := make([]dto.QuestResponse, 0, len(rows))
	for _, row := range rows {
		if req.From != "" || req.To != "" {
			if row.TargetDate == nil {
				continue
			}
			if (req.From != "" && *row.TargetDate < req.From) || (req.To != "" && *row.TargetDate > req.To) {
				continue
			}
		}
		q, err := questOfModel(row)
		if err != nil {
			s.logger.Warn("任务数据无效，已跳过", zap.String("quest_id", row.QuestID), zap.Error(err))
			continue
		}
		resp := toQuestResponse(q)
		if row.CompletedAt != nil {
			resp.CompletedAt = row.CompletedAt.In(s.settings.Zone.Location()).Format(timestampLayout)
		}
		out = append(out, resp)
	}
	return out, nil
}

// ════════════════════════════════════════════════════════════
// Sync 只作用于今天及以后，历史任务不受影响
// ════════════════════════════════════════════════════════════

func (s *questService) Sync(ctx context.Context, goalID string) (*dto.SyncQuestsResponse, error) {
	goal, err := s.repo.Goal.GetByID(ctx, goalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		s.logger.Error("查询目标失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	result, err := s.SyncGoal(ctx, txRepo, goal)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return nil, err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}
	return result, nil
}

func (s *questService) SyncGoal(ctx context.Context, repo *repository.Repository, goal *model.Goal) (*dto.SyncQuestsResponse, error) {
	events, err := repo.CalendarEvent.ListByGoal(ctx, goal.GoalID, "", "")
	if err != nil {
		s.logger.Error("查询日历事件失败", zap.String("goal_id", goal.GoalID), zap.Error(err))
		return nil, err
	}
	resolved, err := resolveGoal(goal, events)
	if err != nil {
		s.logger.Error("解析目标日程失败", zap.String("goal_id", goal.GoalID), zap.Error(err))
		return nil, err
	}
	spec, err := goalSpecOf(goal, resolved)
	if err != nil {
		return nil, err
	}

	result := &dto.SyncQuestsResponse{}
	if resolved.Period == nil {
		return result, nil
	}
	period := *resolved.Period
	today := s.settings.today()

	// 今天之前的部分不再变动
	var window []schedule.DateRange
	if today.After(period.Start) {
		window = schedule.SubtractRange([]schedule.DateRange{period}, schedule.DateRange{Start: period.Start, End: today.AddDays(-1)})
	} else {
		window = []schedule.DateRange{period}
	}
	bounds, ok := schedule.Bounds(window)
	if !ok {
		return result, nil
	}

	candidates, v := schedule.Expander{Cap: s.settings.QuestCap}.ExpandFrom(spec, today)
	if !v.IsValid {
		return nil, pkgerrors.NewValidationError(v.Reasons...)
	}

	rows, err := repo.Quest.ListByGoal(ctx, goal.GoalID, "")
	if err != nil {
		s.logger.Error("查询任务列表失败", zap.String("goal_id", goal.GoalID), zap.Error(err))
		return nil, err
	}
	existing := make([]schedule.Quest, 0, len(rows))
	for _, row := range rows {
		q, err := questOfModel(row)
		if err != nil {
			return nil, fmt.Errorf("任务 %s 数据无效: %w", row.QuestID, err)
		}
		existing = append(existing, q)
	}

	diff := schedule.DiffQuests(schedule.QuestsWithin(existing, bounds, period.Start), candidates)

	toCreate := make([]model.Quest, 0, len(diff.ToCreate))
	for _, q := range diff.ToCreate {
		m, err := questModelOf(q)
		if err != nil {
			return nil, err
		}
		toCreate = append(toCreate, m)
	}
	if err := repo.Quest.CreateBatch(ctx, toCreate); err != nil {
		s.logger.Error("写入任务失败", zap.String("goal_id", goal.GoalID), zap.Error(err))
		return nil, err
	}

	retireIDs := make([]string, 0, len(diff.ToRetire))
	for _, q := range diff.ToRetire {
		retireIDs = append(retireIDs, q.ID)
	}
	retired, err := repo.Quest.Retire(ctx, retireIDs)
	if err != nil {
		s.logger.Error("退役任务失败", zap.String("goal_id", goal.GoalID), zap.Error(err))
		return nil, err
	}

	result.Created = len(toCreate)
	result.Retired = int(retired)
	result.Kept = len(diff.Kept)
	s.logger.Info("任务同步完成",
		zap.String("goal_id", goal.GoalID),
		zap.Int("created", result.Created),
		zap.Int("retired", result.Retired),
		zap.Int("kept", result.Kept),
	)
	return result, nil
}

// ────────────────────── UpdateStatus ──────────────────────

func (s *questService) UpdateStatus(ctx context.Context, questID string, req *dto.UpdateQuestStatusRequest) (*dto.QuestResponse, error) {
	if !schedule.ValidQuestStatus(req.Status) {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("未知的任务状态: %q", req.Status))
	}

	row, err := s.repo.Quest.GetByID(ctx, questID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestNotFound
		}
		s.logger.Error("查询任务失败", zap.String("quest_id", questID), zap.Error(err))
		return nil, err
	}

	row.Status = req.Status
	row.CompletedAt = nil
	if req.Status == string(schedule.QuestCompleted) {
		now := s.settings.Now()
		row.CompletedAt = &now
	}
	if err := s.repo.Quest.UpdateStatus(ctx, questID, row.Status, row.CompletedAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestNotFound
		}
		s.logger.Error("更新任务状态失败", zap.String("quest_id", questID), zap.Error(err))
		return nil, err
	}

	q, err := questOfModel(*row)
	if err != nil {
		return nil, err
	}
	resp := toQuestResponse(q)
	if row.CompletedAt != nil {
		resp.CompletedAt = row.CompletedAt.In(s.settings.Zone.Location()).Format(timestampLayout)
	}
	return &resp, nil
}
