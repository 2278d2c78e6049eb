package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultLimit = 20
	maxLimit     = 100

	// ReadRetention is how long read notifications are kept.
	ReadRetention = 90 * 24 * time.Hour
)

type Service struct {
	repo *Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewService(repo *Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, now: time.Now, log: log}
}

type Page struct {
	Items  []Notification `json:"notifications"`
	Unread int64          `json:"unreadCount"`
	Total  int64          `json:"total"`
}

func (s *Service) Create(ctx context.Context, userID string, t Type, title, body string, data map[string]any) error {
	return s.repo.Create(ctx, &Notification{
		UserID: userID,
		Type:   t,
		Title:  title,
		Body:   body,
		Data:   data,
	})
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) (*Page, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.Count(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Unread: unread, Total: total}, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.Count(ctx, userID, true)
}

func (s *Service) MarkAsRead(ctx context.Context, id uint64, userID string) error {
	return s.repo.MarkAsRead(ctx, id, userID, s.now().UTC())
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID, s.now().UTC())
}

func (s *Service) PurgeRead(ctx context.Context) (int64, error) {
	return s.repo.DeleteReadBefore(ctx, s.now().Add(-ReadRetention))
}

// SessionBooked tells the teacher about a new booking and confirms it to the
// student.
func (s *Service) SessionBooked(ctx context.Context, sessionID, teacherID, studentID, skill string, at time.Time, tokens int) error {
	data := map[string]any{
		"sessionId":   sessionID,
		"skill":       skill,
		"scheduledAt": at.UTC().Format(time.RFC3339),
		"tokens":      tokens,
	}
	when := at.UTC().Format("Mon, Jan 2 15:04 MST")

	if err := s.Create(ctx, teacherID, TypeSessionBooked,
		"New session booked",
		fmt.Sprintf("%s session on %s", skill, when),
		data); err != nil {
		return err
	}
	return s.Create(ctx, studentID, TypeSessionConfirmed,
		"Session booked",
		fmt.Sprintf("%s session on %s, %d tokens charged", skill, when, tokens),
		data)
}

// SessionCancelled notifies whichever participant did not cancel.
func (s *Service) SessionCancelled(ctx context.Context, sessionID, recipientID, skill string, at time.Time, refunded int) error {
	body := fmt.Sprintf("%s session on %s was cancelled", skill, at.UTC().Format("Mon, Jan 2 15:04 MST"))
	return s.Create(ctx, recipientID, TypeSessionCancelled, "Session cancelled", body, map[string]any{
		"sessionId":   sessionID,
		"skill":       skill,
		"scheduledAt": at.UTC().Format(time.RFC3339),
		"refunded":    refunded,
	})
}
