package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/SNU-Hackathon/Doany-sub004/internal/model"
	pkgerrors "github.com/SNU-Hackathon/Doany-sub004/pkg/errors"
)

// GoalRepository 目标数据访问接口
type GoalRepository interface {
	Create(ctx context.Context, goal *model.Goal) error
	GetByID(ctx context.Context, id string) (*model.Goal, error)
	List(ctx context.Context, ownerID, goalType string, offset, limit int) ([]model.Goal, int64, error)
	// ListActiveOn 周期覆盖 date 的目标（无周期的目标不包含在内）
	ListActiveOn(ctx context.Context, date string) ([]model.Goal, error)
	Update(ctx context.Context, goal *model.Goal) error
	Delete(ctx context.Context, id string) error
}

type goalRepo struct {
	db *gorm.DB
}

func NewGoalRepo(db *gorm.DB) GoalRepository {
	return &goalRepo{db: db}
}

func (r *goalRepo) Create(ctx context.Context, goal *model.Goal) error {
	return r.db.WithContext(ctx).Create(goal).Error
}

func (r *goalRepo) GetByID(ctx context.Context, id string) (*model.Goal, error) {
	var goal model.Goal
	err := r.db.WithContext(ctx).
		Where("goal_id = ?", id).
		First(&goal).Error
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *goalRepo) List(ctx context.Context, ownerID, goalType string, offset, limit int) ([]model.Goal, int64, error) {
	var (
		goals []model.Goal
		total int64
	)
	query := r.db.WithContext(ctx).Model(&model.Goal{})
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}
	if goalType != "" {
		query = query.Where("goal_type = ?", goalType)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&goals).Error
	return goals, total, err
}

func (r *goalRepo) ListActiveOn(ctx context.Context, date string) ([]model.Goal, error) {
	var goals []model.Goal
	err := r.db.WithContext(ctx).
		Where("start_date <> '' AND start_date <= ? AND end_date >= ?", date, date).
		Order("goal_id ASC").
		Find(&goals).Error
	return goals, err
}

func (r *goalRepo) Update(ctx context.Context, goal *model.Goal) error {
	oldVersion := goal.Version
	result := r.db.WithContext(ctx).
		Model(goal).
		Where("goal_id = ? AND version = ?", goal.GoalID, oldVersion).
		Updates(map[string]interface{}{
			"title":                goal.Title,
			"description":          goal.Description,
			"start_date":           goal.StartDate,
			"end_date":             goal.EndDate,
			"weekly_weekdays":      goal.WeeklyWeekdays,
			"weekly_time_settings": goal.WeeklyTimeSettings,
			"include_dates":        goal.IncludeDates,
			"exclude_dates":        goal.ExcludeDates,
			"default_time":         goal.DefaultTime,
			"per_week":             goal.PerWeek,
			"milestones":           goal.Milestones,
			"verification_methods": goal.VerificationMethods,
			"version":              oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	goal.Version = oldVersion + 1
	return nil
}

func (r *goalRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("goal_id = ?", id).
		Delete(&model.Goal{}).Error
}
