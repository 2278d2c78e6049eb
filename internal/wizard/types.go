package wizard

import (
	"context"
	"time"
)

// Step is the wizard position. Values 1-4 match the steps shown to the user.
type Step int

const (
	StepClosed Step = iota
	StepSelectDate
	StepSelectTime
	StepSelectDuration
	StepConfirm
)

func (s Step) String() string {
	switch s {
	case StepSelectDate:
		return "select_date"
	case StepSelectTime:
		return "select_time"
	case StepSelectDuration:
		return "select_duration"
	case StepConfirm:
		return "confirm"
	default:
		return "closed"
	}
}

const (
	DefaultTokensPerHour = 50
	DefaultDuration      = 60

	SessionTypeOneOnOne = "one-on-one"

	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// DurationOptions are the only session lengths (minutes) a user can pick.
var DurationOptions = []int{60, 90, 120}

type Teacher struct {
	ID   string `json:"_id" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type Skill struct {
	Name          string `json:"name" binding:"required"`
	Category      string `json:"category"`
	TokensPerHour int    `json:"tokensPerHour,omitempty"`
}

// HourlyRate returns the skill's token rate, falling back to DefaultTokensPerHour.
func (s Skill) HourlyRate() int {
	if s.TokensPerHour <= 0 {
		return DefaultTokensPerHour
	}
	return s.TokensPerHour
}

type DayAvailability struct {
	DayOfWeek int  `json:"dayOfWeek"`
	IsActive  bool `json:"isActive"`
}

type TimeSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// SessionRequest is the payload sent to the session collaborator on confirm.
type SessionRequest struct {
	TeacherID       string    `json:"teacherId"`
	Skill           string    `json:"skill"`
	SkillCategory   string    `json:"skillCategory"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	Duration        int       `json:"duration"`
	SessionType     string    `json:"sessionType"`
	IsSkillExchange bool      `json:"isSkillExchange"`
	TokensCharged   int       `json:"tokensCharged"`
}

// CreatedSession is what the session collaborator hands back on success.
type CreatedSession struct {
	ID            string    `json:"id"`
	Status        string    `json:"status,omitempty"`
	ScheduledAt   time.Time `json:"scheduledAt"`
	TokensCharged int       `json:"tokensCharged"`
}

type AvailabilityFetcher interface {
	WeeklyAvailability(ctx context.Context, teacherID string) ([]DayAvailability, error)
	AvailableSlots(ctx context.Context, teacherID string, date time.Time, durationMinutes int) ([]TimeSlot, error)
}

type SessionCreator interface {
	CreateSession(ctx context.Context, req SessionRequest) (*CreatedSession, error)
}

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice is a transient message for the user. It is replaced by the next one.
type Notice struct {
	Kind         NoticeKind    `json:"kind"`
	Message      string        `json:"message"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
}

// Confirmation summarises a booking that the session collaborator accepted.
type Confirmation struct {
	SessionID   string    `json:"sessionId"`
	TeacherName string    `json:"teacherName"`
	Skill       string    `json:"skill"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Duration    int       `json:"duration"`
	Tokens      int       `json:"tokens"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

// Snapshot is a read-only view of the wizard used for rendering.
type Snapshot struct {
	Step                Step              `json:"step"`
	StepName            string            `json:"stepName"`
	Teacher             Teacher           `json:"teacher"`
	Skill               Skill             `json:"skill"`
	Availability        []DayAvailability `json:"availability"`
	AvailabilityLoading bool              `json:"availabilityLoading"`
	Slots               []TimeSlot        `json:"slots"`
	SlotsLoading        bool              `json:"slotsLoading"`
	SelectedDate        string            `json:"selectedDate,omitempty"`
	SelectedTime        string            `json:"selectedTime,omitempty"`
	Duration            int               `json:"duration"`
	DurationOptions     []int             `json:"durationOptions"`
	TokenCost           int               `json:"tokenCost"`
	TokenCostLabel      string            `json:"tokenCostLabel"`
	Submitting          bool              `json:"submitting"`
	Notice              *Notice           `json:"notice,omitempty"`
}
