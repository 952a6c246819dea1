package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/SNU-Hackathon/Doany-sub004/internal/model"
)

// CalendarEventRepository 日历事件数据访问接口
type CalendarEventRepository interface {
	Create(ctx context.Context, event *model.CalendarEvent) error
	BatchCreate(ctx context.Context, events []model.CalendarEvent) error
	GetByID(ctx context.Context, id string) (*model.CalendarEvent, error)
	// ListByGoal from / to 为空表示不限
	ListByGoal(ctx context.Context, goalID, from, to string) ([]model.CalendarEvent, error)
	Delete(ctx context.Context, id string) error
	DeleteByGoal(ctx context.Context, goalID string) error
}

type calendarEventRepo struct {
	db *gorm.DB
}

func NewCalendarEventRepo(db *gorm.DB) CalendarEventRepository {
	return &calendarEventRepo{db: db}
}

func (r *calendarEventRepo) Create(ctx context.Context, event *model.CalendarEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *calendarEventRepo) BatchCreate(ctx context.Context, events []model.CalendarEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&events, 200).Error
}

func (r *calendarEventRepo) GetByID(ctx context.Context, id string) (*model.CalendarEvent, error) {
	var event model.CalendarEvent
	err := r.db.WithContext(ctx).
		Where("event_id = ?", id).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *calendarEventRepo) ListByGoal(ctx context.Context, goalID, from, to string) ([]model.CalendarEvent, error) {
	var events []model.CalendarEvent
	query := r.db.WithContext(ctx).Where("goal_id = ?", goalID)
	if from != "" {
		query = query.Where("date >= ?", from)
	}
	if to != "" {
		query = query.Where("date <= ?", to)
	}
	err := query.Order("date ASC, time ASC").Find(&events).Error
	return events, err
}

func (r *calendarEventRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ?", id).
		Delete(&model.CalendarEvent{}).Error
}

func (r *calendarEventRepo) DeleteByGoal(ctx context.Context, goalID string) error {
	return r.db.WithContext(ctx).
		Where("goal_id = ?", goalID).
		Delete(&model.CalendarEvent{}).Error
}
