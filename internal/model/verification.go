package model

import "time"

// Verification 验证事件，对应 verifications
type Verification struct {
	VerificationID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"verification_id"`
	GoalID         string    `gorm:"type:uuid;not null;index"                       json:"goal_id"`
	QuestID        *string   `gorm:"type:uuid"                                      json:"quest_id,omitempty"`
	OccurredAt     time.Time `gorm:"not null"                                       json:"occurred_at"`
	Status         string    `gorm:"type:varchar(10);not null"                      json:"status"` // success | fail
	Method         string    `gorm:"type:varchar(20)"                               json:"method,omitempty"`
	Note           string    `gorm:"type:varchar(500)"                              json:"note,omitempty"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

func (Verification) TableName() string { return "verifications" }
