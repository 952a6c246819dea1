package service

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SNU-Hackathon/Doany-sub004/internal/dto"
	"github.com/SNU-Hackathon/Doany-sub004/internal/model"
	"github.com/SNU-Hackathon/Doany-sub004/internal/repository"
	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
	pkgerrors "github.com/SNU-Hackathon/Doany-sub004/pkg/errors"
)

// GoalService 目标业务接口
type GoalService interface {
	// Create 校验定义并保存目标，同时生成首批任务（按时间顺序，最多 QuestCap 个）
	Create(ctx context.Context, req *dto.CreateGoalRequest) (*dto.CreateGoalResponse, error)
	GetByID(ctx context.Context, id string) (*dto.GoalResponse, error)
	List(ctx context.Context, req *dto.GoalListRequest) ([]dto.GoalResponse, int64, error)
	// Update 修改标题、默认时间、频率、里程碑等，任务随之同步
	Update(ctx context.Context, id string, req *dto.UpdateGoalRequest) (*dto.GoalResponse, error)
	// Delete 删除目标及其事件与任务
	Delete(ctx context.Context, id string) error
}

type goalService struct {
	settings    Settings
	repo        *repository.Repository
	quest       QuestService
	achievement AchievementService
	logger      *zap.Logger
}

// NewGoalService 创建 GoalService 实例
func NewGoalService(
	settings Settings,
	repo *repository.Repository,
	quest QuestService,
	achievement AchievementService,
	logger *zap.Logger,
) GoalService {
	return &goalService{
		settings:    settings.withDefaults(),
		repo:        repo,
		quest:       quest,
		achievement: achievement,
		logger:      logger,
	}
}

// ════════════════════════════════════════════════════════════
// Create
// ════════════════════════════════════════════════════════════

func (s *goalService) Create(ctx context.Context, req *dto.CreateGoalRequest) (*dto.CreateGoalResponse, error) {
	resolved, v := definitionSchedule(&req.GoalDefinition).Resolve()
	if !v.IsValid {
		return nil, pkgerrors.NewValidationError(v.Reasons...)
	}

	goal := &model.Goal{
		GoalID:      uuid.NewString(),
		OwnerID:     req.OwnerID,
		Title:       req.Title,
		Description: req.Description,
		GoalType:    req.GoalType,
		PerWeek:     req.PerWeek,
	}
	goal.Version = 1
	if req.DefaultTime != "" {
		clock, err := schedule.ParseClock(req.DefaultTime)
		if err != nil {
			return nil, pkgerrors.NewValidationError("默认时间格式应为 HH:MM")
		}
		goal.DefaultTime = clock
	}
	goal.VerificationMethods = model.StringArray(nonNilStrings(req.VerificationMethods))
	if err := goal.SetMilestoneLabels(req.Milestones); err != nil {
		return nil, err
	}
	applyPeriod(goal, resolved.Period)
	if err := applyStore(goal, resolved.Store); err != nil {
		return nil, err
	}

	spec, err := goalSpecOf(goal, resolved)
	if err != nil {
		return nil, err
	}
	all, v := schedule.Expander{Cap: math.MaxInt32}.Expand(spec)
	if !v.IsValid {
		return nil, pkgerrors.NewValidationError(v.Reasons...)
	}
	first := all
	if len(first) > s.settings.QuestCap {
		first = first[:s.settings.QuestCap]
	}
	quests := make([]model.Quest, 0, len(first))
	for _, q := range first {
		m, err := questModelOf(q)
		if err != nil {
			return nil, err
		}
		quests = append(quests, m)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	if err := txRepo.Goal.Create(ctx, goal); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建目标失败", zap.String("owner_id", req.OwnerID), zap.Error(err))
		return nil, err
	}
	if err := txRepo.Quest.CreateBatch(ctx, quests); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("生成任务失败", zap.String("goal_id", goal.GoalID), zap.Error(err))
		return nil, err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("创建目标",
		zap.String("goal_id", goal.GoalID),
		zap.String("goal_type", goal.GoalType),
		zap.Int("quests", len(quests)),
		zap.Int("quest_total", len(all)),
	)
	return &dto.CreateGoalResponse{
		Goal:       toGoalResponse(goal),
		Quests:     toQuestResponses(first),
		Truncated:  len(all) > len(first),
		QuestTotal: len(all),
	}, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *goalService) GetByID(ctx context.Context, id string) (*dto.GoalResponse, error) {
	goal, err := s.repo.Goal.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		s.logger.Error("查询目标失败", zap.String("goal_id", id), zap.Error(err))
		return nil, err
	}
	resp := toGoalResponse(goal)
	return &resp, nil
}

func (s *goalService) List(ctx context.Context, req *dto.GoalListRequest) ([]dto.GoalResponse, int64, error) {
	goals, total, err := s.repo.Goal.List(ctx, req.OwnerID, req.GoalType, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询目标列表失败", zap.Error(err))
		return nil, 0, err
	}
	out := make([]dto.GoalResponse, 0, len(goals))
	for i := range goals {
		out = append(out, toGoalResponse(&goals[i]))
	}
	return out, total, nil
}

// ════════════════════════════════════════════════════════════
// Update
// ════════════════════════════════════════════════════════════

func (s *goalService) Update(ctx context.Context, id string, req *dto.UpdateGoalRequest) (*dto.GoalResponse, error) {
	goal, err := s.repo.Goal.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		s.logger.Error("查询目标失败", zap.String("goal_id", id), zap.Error(err))
		return nil, err
	}
	if goal.Version != req.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	if req.Title != nil {
		goal.Title = *req.Title
	}
	if req.Description != nil {
		goal.Description = *req.Description
	}
	if req.DefaultTime != nil {
		goal.DefaultTime = ""
		if *req.DefaultTime != "" {
			clock, err := schedule.ParseClock(*req.DefaultTime)
			if err != nil {
				return nil, pkgerrors.NewValidationError("默认时间格式应为 HH:MM")
			}
			goal.DefaultTime = clock
		}
	}
	if req.PerWeek != nil {
		goal.PerWeek = *req.PerWeek
	}
	if req.Milestones != nil {
		if err := goal.SetMilestoneLabels(req.Milestones); err != nil {
			return nil, err
		}
	}
	if req.VerificationMethods != nil {
		goal.VerificationMethods = model.StringArray(req.VerificationMethods)
	}

	// 修改后的定义必须仍能生成任务
	events, err := s.repo.CalendarEvent.ListByGoal(ctx, id, "", "")
	if err != nil {
		s.logger.Error("查询日历事件失败", zap.String("goal_id", id), zap.Error(err))
		return nil, err
	}
	resolved, err := resolveGoal(goal, events)
	if err != nil {
		return nil, err
	}
	spec, err := goalSpecOf(goal, resolved)
	if err != nil {
		return nil, err
	}
	if v := schedule.ValidateQuestGeneration(spec); !v.IsValid {
		return nil, pkgerrors.NewValidationError(v.Reasons...)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)
	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}

	if err := txRepo.Goal.Update(ctx, goal); err != nil {
		rollback()
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新目标失败", zap.String("goal_id", id), zap.Error(err))
		}
		return nil, err
	}
	if _, err := s.quest.SyncGoal(ctx, txRepo, goal); err != nil {
		rollback()
		return nil, err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}
	s.achievement.Invalidate(ctx, id)

	resp := toGoalResponse(goal)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *goalService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Goal.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGoalNotFound
		}
		s.logger.Error("查询目标失败", zap.String("goal_id", id), zap.Error(err))
		return err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	txRepo := s.repo.WithTx(tx)

	steps := []func(context.Context, string) error{
		txRepo.Quest.DeleteByGoal,
		txRepo.CalendarEvent.DeleteByGoal,
		txRepo.Goal.Delete,
	}
	for _, step := range steps {
		if err := step(ctx, id); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("删除目标失败", zap.String("goal_id", id), zap.Error(err))
			return err
		}
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	s.achievement.Invalidate(ctx, id)

	s.logger.Info("删除目标", zap.String("goal_id", id))
	return nil
}
