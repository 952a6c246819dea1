package model

// CalendarEvent 日历事件，对应 calendar_events
// source=weekly 为模式镜像（只读），source=override 为单次覆盖
type CalendarEvent struct {
	EventID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"event_id"`
	GoalID  string `gorm:"type:uuid;not null;index"                       json:"goal_id"`
	Date    string `gorm:"type:varchar(10);not null"                      json:"date"`
	Time    string `gorm:"type:varchar(5);not null"                       json:"time"`
	Source  string `gorm:"type:varchar(20);not null;default:'override'"   json:"source"`
	GroupID string `gorm:"type:varchar(64)"                               json:"group_id,omitempty"`
	Title   string `gorm:"type:varchar(200)"                              json:"title,omitempty"`
	BaseModel
}

func (CalendarEvent) TableName() string { return "calendar_events" }
