package model

import (
	"time"

	"gorm.io/datatypes"
)

// Quest 展开后的任务，对应 quests
// 主键由目标 ID 与匹配键确定性派生；退役为软删除
type Quest struct {
	QuestID           string         `gorm:"type:uuid;primaryKey"                         json:"quest_id"`
	GoalID            string         `gorm:"type:uuid;not null;index"                     json:"goal_id"`
	MatchKey          string         `gorm:"type:varchar(64);not null"                    json:"match_key"`
	Title             string         `gorm:"type:varchar(300);not null"                   json:"title"`
	Description       string         `gorm:"type:text"                                    json:"description"`
	TargetDate        *string        `gorm:"type:varchar(10)"                             json:"target_date,omitempty"`
	WeekNumber        int            `gorm:"not null;default:0"                           json:"week_number"`
	Sequence          int            `gorm:"not null;default:0"                           json:"sequence"`
	Times             StringArray    `gorm:"type:text[]"                                  json:"times"`
	VerificationRules datatypes.JSON `gorm:"type:jsonb"                                   json:"verification_rules"`
	Status            string         `gorm:"type:varchar(20);not null;default:'pending'"  json:"status"` // pending | completed | failed | skipped
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	SoftDeleteModel
}

func (Quest) TableName() string { return "quests" }
