package dto

// ── 目标模块 DTO ──

// GoalDefinition 目标定义（创建与预览共用）
type GoalDefinition struct {
	Title               string              `json:"title"                binding:"required,max=200"`
	Description         string              `json:"description"          binding:"max=2000"`
	GoalType            string              `json:"goal_type"            binding:"required,oneof=schedule frequency milestone"`
	StartDate           string              `json:"start_date"           binding:"omitempty,dateonly"`
	EndDate             string              `json:"end_date"             binding:"omitempty,dateonly"`
	WeeklyWeekdays      []int               `json:"weekly_weekdays"      binding:"omitempty,max=7,dive,min=0,max=6"`
	WeeklyTimeSettings  map[string][]string `json:"weekly_time_settings" binding:"omitempty,dive,keys,oneof=0 1 2 3 4 5 6,endkeys,dive,hhmm"`
	IncludeDates        []string            `json:"include_dates"        binding:"omitempty,max=366,dive,dateonly"`
	ExcludeDates        []string            `json:"exclude_dates"        binding:"omitempty,max=366,dive,dateonly"`
	DefaultTime         string              `json:"default_time"         binding:"omitempty,hhmm"`
	PerWeek             int                 `json:"per_week"             binding:"omitempty,min=1,max=50"`
	Milestones          []string            `json:"milestones"           binding:"omitempty,max=100,dive,required,max=200"`
	VerificationMethods []string            `json:"verification_methods" binding:"omitempty,dive,oneof=manual photo location time"`
}

// CreateGoalRequest 创建目标请求
type CreateGoalRequest struct {
	OwnerID string `json:"owner_id" binding:"required,max=64"`
	GoalDefinition
}

// UpdateGoalRequest 修改目标基本信息
type UpdateGoalRequest struct {
	Title               *string  `json:"title"                binding:"omitempty,min=1,max=200"`
	Description         *string  `json:"description"          binding:"omitempty,max=2000"`
	DefaultTime         *string  `json:"default_time"         binding:"omitempty,hhmm"`
	PerWeek             *int     `json:"per_week"             binding:"omitempty,min=1,max=50"`
	Milestones          []string `json:"milestones"           binding:"omitempty,max=100,dive,required,max=200"`
	VerificationMethods []string `json:"verification_methods" binding:"omitempty,dive,oneof=manual photo location time"`
	Version             int      `json:"version"              binding:"required,min=1"`
}

// GoalListRequest 目标列表查询参数
type GoalListRequest struct {
	OwnerID  string `form:"owner_id"  binding:"omitempty,max=64"`
	GoalType string `form:"goal_type" binding:"omitempty,oneof=schedule frequency milestone"`
	PaginationRequest
}

// ── 响应 ──

// GoalResponse 目标响应
type GoalResponse struct {
	ID                  string              `json:"id"`
	OwnerID             string              `json:"owner_id"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	GoalType            string              `json:"goal_type"`
	StartDate           string              `json:"start_date,omitempty"`
	EndDate             string              `json:"end_date,omitempty"`
	WeeklyWeekdays      []int               `json:"weekly_weekdays"`
	WeeklyTimeSettings  map[string][]string `json:"weekly_time_settings"`
	IncludeDates        []string            `json:"include_dates"`
	ExcludeDates        []string            `json:"exclude_dates"`
	DefaultTime         string              `json:"default_time,omitempty"`
	PerWeek             int                 `json:"per_week,omitempty"`
	Milestones          []string            `json:"milestones,omitempty"`
	VerificationMethods []string            `json:"verification_methods"`
	Version             int                 `json:"version"`
	CreatedAt           string              `json:"created_at"`
	UpdatedAt           string              `json:"updated_at"`
}

// CreateGoalResponse 创建目标响应：目标与首批任务
type CreateGoalResponse struct {
	Goal       GoalResponse    `json:"goal"`
	Quests     []QuestResponse `json:"quests"`
	Truncated  bool            `json:"truncated"`
	QuestTotal int             `json:"quest_total"`
}
