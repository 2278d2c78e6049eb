package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillswap/internal/domain/availability"
)

// maxDuration bounds how far back a session can start and still overlap a window.
const maxDuration = 120 * time.Minute

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *gorm.DB {
	return r.db
}

// ScheduledBetween lists the teacher's scheduled sessions that overlap [from, to).
func (r *Repository) ScheduledBetween(tx *gorm.DB, teacherID string, from, to time.Time) ([]Session, error) {
	var rows []Session
	if err := tx.
		Where("teacher_id = ? AND status = ?", teacherID, StatusScheduled).
		Where("scheduled_at > ? AND scheduled_at < ?", from.Add(-maxDuration).UTC(), to.UTC()).
		Order("scheduled_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := rows[:0]
	for _, s := range rows {
		if s.EndsAt().After(from) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *Repository) BusyIntervals(ctx context.Context, teacherID string, from, to time.Time) ([]availability.Interval, error) {
	rows, err := r.ScheduledBetween(r.db.WithContext(ctx), teacherID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]availability.Interval, 0, len(rows))
	for _, s := range rows {
		out = append(out, availability.Interval{Start: s.ScheduledAt.In(from.Location()), End: s.EndsAt().In(from.Location())})
	}
	return out, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Session, error) {
	var rows []Session
	err := r.db.WithContext(ctx).
		Where("student_id = ? OR teacher_id = ?", userID, userID).
		Order("scheduled_at asc").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) GetForUpdate(tx *gorm.DB, id uuid.UUID) (*Session, error) {
	var s Session
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// PurgeCancelledBefore hard-deletes sessions cancelled before cutoff.
func (r *Repository) PurgeCancelledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND cancelled_at < ?", StatusCancelled, cutoff.UTC()).
		Delete(&Session{})
	return res.RowsAffected, res.Error
}
