package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Goal 目标，对应 goals
type Goal struct {
	GoalID              string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"goal_id"`
	OwnerID             string         `gorm:"type:varchar(64);not null;index"                json:"owner_id"`
	Title               string         `gorm:"type:varchar(200);not null"                     json:"title"`
	Description         string         `gorm:"type:text"                                      json:"description"`
	GoalType            string         `gorm:"type:varchar(20);not null"                      json:"goal_type"` // schedule | frequency | milestone
	StartDate           string         `gorm:"type:varchar(10)"                               json:"start_date"`
	EndDate             string         `gorm:"type:varchar(10)"                               json:"end_date"`
	WeeklyWeekdays      IntArray       `gorm:"type:int[]"                                     json:"weekly_weekdays"`
	WeeklyTimeSettings  datatypes.JSON `gorm:"type:jsonb"                                     json:"weekly_time_settings"`
	IncludeDates        StringArray    `gorm:"type:text[]"                                    json:"include_dates"`
	ExcludeDates        StringArray    `gorm:"type:text[]"                                    json:"exclude_dates"`
	DefaultTime         string         `gorm:"type:varchar(5)"                                json:"default_time"`
	PerWeek             int            `gorm:"not null;default:0"                             json:"per_week"`
	Milestones          datatypes.JSON `gorm:"type:jsonb"                                     json:"milestones"`
	VerificationMethods StringArray    `gorm:"type:text[]"                                    json:"verification_methods"`
	VersionedModel

	Events []CalendarEvent `gorm:"foreignKey:GoalID;references:GoalID" json:"events,omitempty"`
}

func (Goal) TableName() string { return "goals" }

// TimeSettings 解析 weekly_time_settings，空值返回 nil
func (g *Goal) TimeSettings() (map[string][]string, error) {
	if len(g.WeeklyTimeSettings) == 0 {
		return nil, nil
	}
	var out map[string][]string
	if err := json.Unmarshal(g.WeeklyTimeSettings, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetTimeSettings 写入 weekly_time_settings
func (g *Goal) SetTimeSettings(settings map[string][]string) error {
	if settings == nil {
		settings = map[string][]string{}
	}
	b, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	g.WeeklyTimeSettings = datatypes.JSON(b)
	return nil
}

// MilestoneLabels 解析里程碑列表
func (g *Goal) MilestoneLabels() ([]string, error) {
	if len(g.Milestones) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(g.Milestones, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetMilestoneLabels 写入里程碑列表
func (g *Goal) SetMilestoneLabels(labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return err
	}
	g.Milestones = datatypes.JSON(b)
	return nil
}

// AchievementSnapshot 达成率每日快照，对应 achievement_snapshots
type AchievementSnapshot struct {
	SnapshotID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"snapshot_id"`
	GoalID        string    `gorm:"type:uuid;not null"                             json:"goal_id"`
	SnapshotDate  string    `gorm:"type:varchar(10);not null"                      json:"snapshot_date"`
	RequiredTotal int       `gorm:"not null"                                       json:"required_total"`
	TotalAchieved int       `gorm:"not null"                                       json:"total_achieved"`
	Percent       int       `gorm:"not null"                                       json:"achievement_percent"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

func (AchievementSnapshot) TableName() string { return "achievement_snapshots" }
