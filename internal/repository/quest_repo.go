package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SNU-Hackathon/Doany-sub004/internal/model"
)

// QuestRepository 任务数据访问接口
type QuestRepository interface {
	GetByID(ctx context.Context, id string) (*model.Quest, error)
	// ListByGoal status 为空表示全部状态
	ListByGoal(ctx context.Context, goalID, status string) ([]model.Quest, error)
	// CreateBatch 幂等写入：已退役的同 ID 任务被恢复为 pending，已存在的保持不变
	CreateBatch(ctx context.Context, quests []model.Quest) error
	// Retire 软删除仍为 pending 的任务，返回实际退役数量
	Retire(ctx context.Context, ids []string) (int64, error)
	UpdateStatus(ctx context.Context, id, status string, completedAt *time.Time) error
	DeleteByGoal(ctx context.Context, goalID string) error
}

type questRepo struct {
	db *gorm.DB
}

func NewQuestRepo(db *gorm.DB) QuestRepository {
	return &questRepo{db: db}
}

func (r *questRepo) GetByID(ctx context.Context, id string) (*model.Quest, error) {
	var quest model.Quest
	err := r.db.WithContext(ctx).
		Where("quest_id = ?", id).
		First(&quest).Error
	if err != nil {
		return nil, err
	}
	return &quest, nil
}

func (r *questRepo) ListByGoal(ctx context.Context, goalID, status string) ([]model.Quest, error) {
	var quests []model.Quest
	query := r.db.WithContext(ctx).Where("goal_id = ?", goalID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.
		Order("target_date ASC NULLS LAST, week_number ASC, sequence ASC").
		Find(&quests).Error
	return quests, err
}

func (r *questRepo) CreateBatch(ctx context.Context, quests []model.Quest) error {
	if len(quests) == 0 {
		return nil
	}
	ids := make([]string, len(quests))
	for i, q := range quests {
		ids[i] = q.QuestID
	}

	db := r.db.WithContext(ctx)
	err := db.Unscoped().
		Model(&model.Quest{}).
		Where("quest_id IN ? AND deleted_at IS NOT NULL", ids).
		Updates(map[string]interface{}{
			"deleted_at":   nil,
			"status":       "pending",
			"completed_at": nil,
		}).Error
	if err != nil {
		return err
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "quest_id"}},
		DoNothing: true,
	}).CreateInBatches(&quests, 100).Error
}

func (r *questRepo) Retire(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("quest_id IN ? AND status = ?", ids, "pending").
		Delete(&model.Quest{})
	return result.RowsAffected, result.Error
}

func (r *questRepo) UpdateStatus(ctx context.Context, id, status string, completedAt *time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Quest{}).
		Where("quest_id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *questRepo) DeleteByGoal(ctx context.Context, goalID string) error {
	return r.db.WithContext(ctx).
		Where("goal_id = ?", goalID).
		Delete(&model.Quest{}).Error
}
