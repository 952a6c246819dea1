package dto

import (
	"time"

	"github.com/SNU-Hackathon/Doany-sub004/internal/schedule"
)

// ── 达成率模块 DTO ──

// RecordVerificationRequest 记录一次验证事件
type RecordVerificationRequest struct {
	QuestID    *string    `json:"quest_id"    binding:"omitempty,uuid"`
	OccurredAt *time.Time `json:"occurred_at"`
	Status     string     `json:"status"      binding:"required,oneof=success fail"`
	Method     string     `json:"method"      binding:"omitempty,oneof=manual photo location time"`
	Note       string     `json:"note"        binding:"omitempty,max=500"`
}

// VerificationListRequest 验证事件列表查询参数
type VerificationListRequest struct {
	From string `form:"from" binding:"omitempty,dateonly"`
	To   string `form:"to"   binding:"omitempty,dateonly"`
	PaginationRequest
}

// ── 响应 ──

// VerificationResponse 验证事件响应
type VerificationResponse struct {
	ID         string  `json:"id"`
	GoalID     string  `json:"goal_id"`
	QuestID    *string `json:"quest_id,omitempty"`
	OccurredAt string  `json:"occurred_at"`
	Date       string  `json:"date"`
	Status     string  `json:"status"`
	Method     string  `json:"method,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// AchievementResponse 达成率响应
type AchievementResponse struct {
	GoalID        string                  `json:"goal_id"`
	Policy        string                  `json:"duplicate_policy"`
	Timezone      string                  `json:"timezone"`
	CompleteRange *schedule.DateRange     `json:"complete_range,omitempty"`
	RequiredTotal int                     `json:"required_total"`
	TotalAchieved int                     `json:"total_achieved"`
	Percent       int                     `json:"achievement_percent"`
	Days          []schedule.DayResult    `json:"days"`
	Weeks         []schedule.WindowResult `json:"weeks,omitempty"`
	ComputedAt    string                  `json:"computed_at"`
}
