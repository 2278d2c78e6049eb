package notification

import "time"

type Type string

const (
	TypeSessionBooked    Type = "session_booked"    // teacher: a student booked a session
	TypeSessionConfirmed Type = "session_confirmed" // student: booking went through
	TypeSessionCancelled Type = "session_cancelled" // the other participant cancelled
)

type Notification struct {
	ID        uint64         `json:"id" gorm:"primaryKey"`
	UserID    string         `json:"userId" gorm:"type:varchar(64);not null;index:idx_notifications_user_unread"`
	Type      Type           `json:"type" gorm:"type:varchar(32);not null"`
	Title     string         `json:"title" gorm:"not null"`
	Body      string         `json:"body,omitempty"`
	Data      map[string]any `json:"data,omitempty" gorm:"serializer:json"`
	IsRead    bool           `json:"isRead" gorm:"not null;default:false;index:idx_notifications_user_unread"`
	ReadAt    *time.Time     `json:"readAt,omitempty"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index"`
}

func (Notification) TableName() string {
	return "notifications"
}

func Models() []any {
	return []any{&Notification{}}
}
