package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SNU-Hackathon/Doany-sub004/internal/model"
)

// VerificationRepository 验证事件数据访问接口
type VerificationRepository interface {
	Create(ctx context.Context, v *model.Verification) error
	// ListByGoal from / to 为 nil 表示不限；limit <= 0 时返回全部
	ListByGoal(ctx context.Context, goalID string, from, to *time.Time, offset, limit int) ([]model.Verification, int64, error)
}

// SnapshotRepository 达成率快照数据访问接口
type SnapshotRepository interface {
	// Upsert 同一目标同一天只保留最新快照
	Upsert(ctx context.Context, s *model.AchievementSnapshot) error
	ListByGoal(ctx context.Context, goalID string) ([]model.AchievementSnapshot, error)
}

// ── Verification Repository 实现 ──

type verificationRepo struct {
	db *gorm.DB
}

func NewVerificationRepo(db *gorm.DB) VerificationRepository {
	return &verificationRepo{db: db}
}

func (r *verificationRepo) Create(ctx context.Context, v *model.Verification) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *verificationRepo) ListByGoal(ctx context.Context, goalID string, from, to *time.Time, offset, limit int) ([]model.Verification, int64, error) {
	var (
		list  []model.Verification
		total int64
	)
	query := r.db.WithContext(ctx).Model(&model.Verification{}).Where("goal_id = ?", goalID)
	if from != nil {
		query = query.Where("occurred_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("occurred_at < ?", *to)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Order("occurred_at ASC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	err := query.Find(&list).Error
	return list, total, err
}

// ── Snapshot Repository 实现 ──

type snapshotRepo struct {
	db *gorm.DB
}

func NewSnapshotRepo(db *gorm.DB) SnapshotRepository {
	return &snapshotRepo{db: db}
}

func (r *snapshotRepo) Upsert(ctx context.Context, s *model.AchievementSnapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "goal_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"required_total", "total_achieved", "percent", "created_at"}),
	}).Create(s).Error
}

func (r *snapshotRepo) ListByGoal(ctx context.Context, goalID string) ([]model.AchievementSnapshot, error) {
	var list []model.AchievementSnapshot
	err := r.db.WithContext(ctx).
		Where("goal_id = ?", goalID).
		Order("snapshot_date ASC").
		Find(&list).Error
	return list, err
}
