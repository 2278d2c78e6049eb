package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"skillswap/internal/domain/wallet"
	"skillswap/internal/pkg/reqctx"
	"skillswap/internal/wizard"
)

// RetentionPeriod is how long cancelled sessions are kept before purging.
const RetentionPeriod = 30 * 24 * time.Hour

type CreateRequest struct {
	TeacherID       string    `json:"teacherId" binding:"required"`
	Skill           string    `json:"skill" binding:"required"`
	SkillCategory   string    `json:"skillCategory"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ScheduledAt     time.Time `json:"scheduledAt" binding:"required"`
	Duration        int       `json:"duration" binding:"required"`
	SessionType     string    `json:"sessionType"`
	IsSkillExchange bool      `json:"isSkillExchange"`
	TokensCharged   int       `json:"tokensCharged"`
}

// Wallet is the part of the token wallet sessions need.
type Wallet interface {
	SpendTx(tx *gorm.DB, userID string, amount int64, reference string) (*wallet.Wallet, *wallet.Transaction, error)
	RefundTx(tx *gorm.DB, userID string, amount int64, reference string) (*wallet.Wallet, *wallet.Transaction, error)
}

// Notifier tells participants about bookings. Failures are logged and never
// undo a committed booking.
type Notifier interface {
	SessionBooked(ctx context.Context, sessionID, teacherID, studentID, skill string, at time.Time, tokens int) error
	SessionCancelled(ctx context.Context, sessionID, recipientID, skill string, at time.Time, refunded int) error
}

type Service struct {
	repo     *Repository
	wallet   Wallet
	notifier Notifier
	now      func() time.Time
	log      *zap.Logger
}

func NewService(repo *Repository, w Wallet, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, wallet: w, now: time.Now, log: log}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Create books a session and charges the student in one transaction.
func (s *Service) Create(ctx context.Context, studentID string, req CreateRequest) (*Session, error) {
	if studentID == "" {
		return nil, ErrUnauthenticated
	}
	if req.TeacherID == "" || req.Skill == "" {
		return nil, ErrMissingTeacher
	}
	if !wizard.IsValidDuration(req.Duration) {
		return nil, ErrInvalidDuration
	}
	if req.TokensCharged <= 0 {
		return nil, ErrInvalidTokens
	}
	if !req.ScheduledAt.After(s.now()) {
		return nil, ErrPastStart
	}
	if req.TeacherID == studentID {
		return nil, ErrSelfBooking
	}
	if req.SessionType == "" {
		req.SessionType = wizard.SessionTypeOneOnOne
	}

	sess := &Session{
		ID:              uuid.New(),
		TeacherID:       req.TeacherID,
		StudentID:       studentID,
		Skill:           req.Skill,
		SkillCategory:   req.SkillCategory,
		Title:           req.Title,
		Description:     req.Description,
		ScheduledAt:     req.ScheduledAt.UTC().Truncate(time.Second),
		Duration:        req.Duration,
		SessionType:     req.SessionType,
		IsSkillExchange: req.IsSkillExchange,
		TokensCharged:   req.TokensCharged,
		Status:          StatusScheduled,
	}

	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clash, err := s.repo.ScheduledBetween(tx, sess.TeacherID, sess.ScheduledAt, sess.EndsAt())
		if err != nil {
			return err
		}
		if len(clash) > 0 {
			return ErrSlotTaken
		}
		if err := tx.Create(sess).Error; err != nil {
			return err
		}
		if _, _, err := s.wallet.SpendTx(tx, studentID, int64(sess.TokensCharged), sess.ID.String()); err != nil {
			if errors.Is(err, wallet.ErrInsufficientFunds) {
				return ErrInsufficientTokens
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session booked",
		zap.String("session_id", sess.ID.String()),
		zap.String("teacher_id", sess.TeacherID),
		zap.String("student_id", studentID),
		zap.Time("scheduled_at", sess.ScheduledAt),
		zap.Int("tokens", sess.TokensCharged))

	if s.notifier != nil {
		if err := s.notifier.SessionBooked(ctx, sess.ID.String(), sess.TeacherID, studentID,
			sess.Skill, sess.ScheduledAt, sess.TokensCharged); err != nil {
			s.log.Warn("booking notification failed", zap.String("session_id", sess.ID.String()), zap.Error(err))
		}
	}
	return sess, nil
}

// CreateSession serves the wizard in embedded mode. The student is the
// principal carried by ctx.
func (s *Service) CreateSession(ctx context.Context, req wizard.SessionRequest) (*wizard.CreatedSession, error) {
	sess, err := s.Create(ctx, reqctx.UserID(ctx), CreateRequest{
		TeacherID:       req.TeacherID,
		Skill:           req.Skill,
		SkillCategory:   req.SkillCategory,
		Title:           req.Title,
		Description:     req.Description,
		ScheduledAt:     req.ScheduledAt,
		Duration:        req.Duration,
		SessionType:     req.SessionType,
		IsSkillExchange: req.IsSkillExchange,
		TokensCharged:   req.TokensCharged,
	})
	if err != nil {
		return nil, err
	}
	return &wizard.CreatedSession{
		ID:            sess.ID.String(),
		Status:        sess.Status,
		ScheduledAt:   sess.ScheduledAt,
		TokensCharged: sess.TokensCharged,
	}, nil
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]Session, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.repo.ListByUser(ctx, userID)
}

// Cancel marks a scheduled session cancelled and refunds the student. Either
// participant may cancel.
func (s *Service) Cancel(ctx context.Context, sessionID, userID string) (*Session, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, ErrNotFound
	}

	var sess *Session
	err = s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sess, err = s.repo.GetForUpdate(tx, id)
		if err != nil {
			return err
		}
		if sess.StudentID != userID && sess.TeacherID != userID {
			return ErrForbidden
		}
		if sess.Status != StatusScheduled {
			return ErrNotCancellable
		}

		now := s.now().UTC().Truncate(time.Second)
		sess.Status = StatusCancelled
		sess.CancelledAt = &now
		if err := tx.Model(&Session{}).Where("id = ?", sess.ID).Updates(map[string]any{
			"status":       sess.Status,
			"cancelled_at": now,
		}).Error; err != nil {
			return err
		}

		if sess.TokensCharged > 0 {
			if _, _, err := s.wallet.RefundTx(tx, sess.StudentID, int64(sess.TokensCharged), sess.ID.String()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session cancelled",
		zap.String("session_id", sess.ID.String()),
		zap.String("by", userID),
		zap.Int("refunded", sess.TokensCharged))

	if s.notifier != nil {
		recipient := sess.TeacherID
		if userID == sess.TeacherID {
			recipient = sess.StudentID
		}
		if err := s.notifier.SessionCancelled(ctx, sess.ID.String(), recipient,
			sess.Skill, sess.ScheduledAt, sess.TokensCharged); err != nil {
			s.log.Warn("cancellation notification failed", zap.String("session_id", sess.ID.String()), zap.Error(err))
		}
	}
	return sess, nil
}

// PurgeCancelled deletes sessions cancelled longer than RetentionPeriod ago.
func (s *Service) PurgeCancelled(ctx context.Context) (int64, error) {
	return s.repo.PurgeCancelledBefore(ctx, s.now().Add(-RetentionPeriod))
}
