package dto

import "github.com/SNU-Hackathon/Doany-sub004/internal/schedule"

// ── 日程模块 DTO ──

// UpdateScheduleRequest 整体替换目标的日程定义
type UpdateScheduleRequest struct {
	StartDate          string              `json:"start_date"           binding:"omitempty,dateonly"`
	EndDate            string              `json:"end_date"             binding:"omitempty,dateonly"`
	WeeklyWeekdays     []int               `json:"weekly_weekdays"      binding:"omitempty,max=7,dive,min=0,max=6"`
	WeeklyTimeSettings map[string][]string `json:"weekly_time_settings" binding:"omitempty,dive,keys,oneof=0 1 2 3 4 5 6,endkeys,dive,hhmm"`
	IncludeDates       []string            `json:"include_dates"        binding:"omitempty,max=366,dive,dateonly"`
	ExcludeDates       []string            `json:"exclude_dates"        binding:"omitempty,max=366,dive,dateonly"`
	Version            int                 `json:"version"              binding:"required,min=1"`
}

// ToggleDateRequest 切换单日排期
// Scoped 为 false 时不做星期回写，只改动 include_dates
type ToggleDateRequest struct {
	Date    string `json:"date"    binding:"required,dateonly"`
	Scoped  *bool  `json:"scoped"`
	Version int    `json:"version" binding:"required,min=1"`
}

// ApplyRangeRequest 批量开启 / 关闭一段日期
type ApplyRangeRequest struct {
	StartDate string `json:"start_date" binding:"required,dateonly"`
	EndDate   string `json:"end_date"   binding:"required,dateonly"`
	Enabled   *bool  `json:"enabled"    binding:"required"`
	Version   int    `json:"version"    binding:"required,min=1"`
}

// PreviewRequest 未保存目标的预览
type PreviewRequest struct {
	GoalDefinition
}

// CreateEventRequest 新增覆盖事件
type CreateEventRequest struct {
	Date    string `json:"date"     binding:"required,dateonly"`
	Time    string `json:"time"     binding:"required,hhmm"`
	GroupID string `json:"group_id" binding:"omitempty,max=64"`
	Title   string `json:"title"    binding:"omitempty,max=200"`
}

// EventListRequest 事件列表查询参数
type EventListRequest struct {
	From string `form:"from" binding:"omitempty,dateonly"`
	To   string `form:"to"   binding:"omitempty,dateonly"`
}

// ── 响应 ──

// OccurrenceResponse 单个排期日期
type OccurrenceResponse struct {
	Date    string   `json:"date"`
	Weekday int      `json:"weekday"`
	Count   int      `json:"count"`
	Times   []string `json:"times,omitempty"`
}

// ScheduleResponse 物化后的日程
type ScheduleResponse struct {
	GoalID          string               `json:"goal_id"`
	Period          *schedule.DateRange  `json:"period,omitempty"`
	WeeklyWeekdays  []int                `json:"weekly_weekdays"`
	TimeSettings    map[string][]string  `json:"weekly_time_settings"`
	IncludeDates    []string             `json:"include_dates"`
	ExcludeDates    []string             `json:"exclude_dates"`
	Occurrences     []OccurrenceResponse `json:"occurrences"`
	Requirement     schedule.Requirement `json:"requirement"`
	ScheduledRanges []schedule.DateRange `json:"scheduled_ranges"`
	RequiredTotal   int                  `json:"required_total"`
	Weeks           []schedule.Window    `json:"weeks"`
	Version         int                  `json:"version"`
}

// PreviewResponse 预览结果：校验原因、排期与任务
type PreviewResponse struct {
	Validation  ValidationResponse   `json:"validation"`
	Occurrences []OccurrenceResponse `json:"occurrences"`
	Truncated   bool                 `json:"truncated"`
	Weeks       []schedule.Window    `json:"weeks"`
	Quests      []QuestResponse      `json:"quests"`
}

// EventResponse 日历事件响应
type EventResponse struct {
	ID      string `json:"id"`
	GoalID  string `json:"goal_id"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Source  string `json:"source"`
	GroupID string `json:"group_id,omitempty"`
	Title   string `json:"title,omitempty"`
}

// ImportEventsResponse ICS 导入结果
type ImportEventsResponse struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportICSRequest 通过 URL 导入 ICS（文件上传走 multipart 字段 file）
type ImportICSRequest struct {
	URL string `json:"url" binding:"required,url,max=2048"`
}
