package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"skillswap/internal/database"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return ErrEmailAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	var u User
	if err := r.db.WithContext(ctx).Where("id = ?", uid).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

// UpdateLoginState persists the failed-login counter and lock.
func (r *Repository) UpdateLoginState(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"failed_logins": u.FailedLogins,
			"locked_until":  u.LockedUntil,
		}).Error
}

// ClearExpiredLocks resets the failed-login state of accounts whose lock ended
// before now.
func (r *Repository) ClearExpiredLocks(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&User{}).
		Where("locked_until IS NOT NULL AND locked_until < ?", now.UTC()).
		Updates(map[string]any{"failed_logins": 0, "locked_until": nil})
	return res.RowsAffected, res.Error
}
