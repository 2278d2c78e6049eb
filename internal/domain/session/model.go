package session

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

type Session struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TeacherID       string     `json:"teacherId" gorm:"type:varchar(64);not null;index:idx_sessions_teacher_time"`
	StudentID       string     `json:"studentId" gorm:"type:varchar(64);not null;index"`
	Skill           string     `json:"skill" gorm:"not null"`
	SkillCategory   string     `json:"skillCategory"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ScheduledAt     time.Time  `json:"scheduledAt" gorm:"not null;index:idx_sessions_teacher_time"`
	Duration        int        `json:"duration" gorm:"not null"`
	SessionType     string     `json:"sessionType" gorm:"type:varchar(32);not null"`
	IsSkillExchange bool       `json:"isSkillExchange" gorm:"not null;default:false"`
	TokensCharged   int        `json:"tokensCharged" gorm:"not null"`
	Status          string     `json:"status" gorm:"type:varchar(16);not null;index;check:status IN ('scheduled','cancelled','completed')"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *Session) EndsAt() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.Duration) * time.Minute)
}

func Models() []any {
	return []any{&Session{}}
}
