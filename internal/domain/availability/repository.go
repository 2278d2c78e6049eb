package availability

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]WeeklyAvailability, error)
	GetDay(ctx context.Context, teacherID string, day int) (*WeeklyAvailability, error)
	ReplaceWeek(ctx context.Context, teacherID string, days []WeeklyAvailability) error
}

type GormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) ListByTeacher(ctx context.Context, teacherID string) ([]WeeklyAvailability, error) {
	var rows []WeeklyAvailability
	err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("day_of_week asc").
		Find(&rows).Error
	return rows, err
}

// GetDay returns nil without error when the teacher has no entry for the day.
func (r *GormRepository) GetDay(ctx context.Context, teacherID string, day int) (*WeeklyAvailability, error) {
	var rows []WeeklyAvailability
	if err := r.db.WithContext(ctx).
		Where("teacher_id = ? AND day_of_week = ?", teacherID, day).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ReplaceWeek upserts the listed days and removes the days not listed.
func (r *GormRepository) ReplaceWeek(ctx context.Context, teacherID string, days []WeeklyAvailability) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keep := make([]int, 0, len(days))
		for i := range days {
			days[i].TeacherID = teacherID
			keep = append(keep, days[i].DayOfWeek)
		}

		del := tx.Where("teacher_id = ?", teacherID)
		if len(keep) > 0 {
			del = del.Where("day_of_week NOT IN ?", keep)
		}
		if err := del.Delete(&WeeklyAvailability{}).Error; err != nil {
			return err
		}
		if len(days) == 0 {
			return nil
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "teacher_id"}, {Name: "day_of_week"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_active", "start_time", "end_time", "updated_at"}),
		}).Create(&days).Error
	})
}
