package availability

import "time"

// WeeklyAvailability is one weekday of a teacher's recurring schedule.
// StartTime and EndTime are "HH:MM" wall-clock times in the service location.
type WeeklyAvailability struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	TeacherID string    `json:"teacherId" gorm:"type:varchar(64);not null;uniqueIndex:idx_teacher_day"`
	DayOfWeek int       `json:"dayOfWeek" gorm:"not null;uniqueIndex:idx_teacher_day"`
	IsActive  bool      `json:"isActive" gorm:"not null;default:true"`
	StartTime string    `json:"startTime" gorm:"type:varchar(5);not null"`
	EndTime   string    `json:"endTime" gorm:"type:varchar(5);not null"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (WeeklyAvailability) TableName() string {
	return "weekly_availability"
}

// Interval is a half-open [Start, End) span of time.
type Interval struct {
	Start time.Time
	End   time.Time
}

func Models() []any {
	return []any{&WeeklyAvailability{}}
}
