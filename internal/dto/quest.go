package dto

import "github.com/SNU-Hackathon/Doany-sub004/internal/schedule"

// ── 任务模块 DTO ──

// UpdateQuestStatusRequest 外部验证子系统上报的任务状态
type UpdateQuestStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending completed failed skipped"`
}

// QuestListRequest 任务列表查询参数
type QuestListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=pending completed failed skipped"`
	From   string `form:"from"   binding:"omitempty,dateonly"`
	To     string `form:"to"     binding:"omitempty,dateonly"`
}

// QuestResponse 任务响应
type QuestResponse struct {
	ID                string                      `json:"id"`
	GoalID            string                      `json:"goal_id"`
	Title             string                      `json:"title"`
	Description       string                      `json:"description"`
	TargetDate        string                      `json:"target_date,omitempty"`
	WeekNumber        int                         `json:"week_number,omitempty"`
	Sequence          int                         `json:"sequence,omitempty"`
	Times             []string                    `json:"times,omitempty"`
	VerificationRules []schedule.VerificationRule `json:"verification_rules"`
	Status            string                      `json:"status"`
	CompletedAt       string                      `json:"completed_at,omitempty"`
}

// SyncQuestsResponse 任务同步结果
type SyncQuestsResponse struct {
	Created int `json:"created"`
	Retired int `json:"retired"`
	Kept    int `json:"kept"`
}
