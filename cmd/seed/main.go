package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/domain/auth"
	"skillswap/internal/domain/availability"
	"skillswap/internal/domain/notification"
	"skillswap/internal/domain/session"
	"skillswap/internal/domain/wallet"
	"skillswap/internal/logger"
	jwtsvc "skillswap/internal/pkg/jwt"
)

const (
	seedPassword      = "skillswap123"
	studentStartFunds = 500
)

type teacherSeed struct {
	name  string
	email string
	days  []int
	start string
	end   string
}

var teachers = []teacherSeed{
	{name: "Ana", email: "ana@skillswap.dev", days: []int{1, 2, 3, 4, 5}, start: "09:00", end: "17:00"},
	{name: "Marat", email: "marat@skillswap.dev", days: []int{2, 4}, start: "14:00", end: "20:00"},
	{name: "Dana", email: "dana@skillswap.dev", days: []int{0, 6}, start: "10:00", end: "14:00"},
}

var students = []struct {
	name  string
	email string
}{
	{name: "Aigerim", email: "aigerim@skillswap.dev"},
	{name: "Bekzat", email: "bekzat@skillswap.dev"},
	{name: "Dina", email: "dina@skillswap.dev"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, zl)
	if err != nil {
		zl.Fatal("db connect failed", zap.Error(err))
	}

	zl.Info("running AutoMigrate")
	var models []any
	models = append(models, auth.Models()...)
	models = append(models, wallet.Models()...)
	models = append(models, availability.Models()...)
	models = append(models, session.Models()...)
	models = append(models, notification.Models()...)
	if err := db.AutoMigrate(models...); err != nil {
		zl.Fatal("AutoMigrate failed", zap.Error(err))
	}

	zl.Info("cleaning old data")
	if err := clean(db); err != nil {
		zl.Fatal("cleanup failed", zap.Error(err))
	}

	ctx := context.Background()
	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	wallets := wallet.NewService(db, zl)
	users := auth.NewService(auth.NewRepository(db), j, zl, auth.WithSignupTokens(wallets, 0))
	schedules := availability.NewService(availability.NewRepository(db), cfg.WizardLocation, zl)

	for _, t := range teachers {
		res, err := users.Register(ctx, auth.RegisterRequest{
			Name: t.name, Email: t.email, Password: seedPassword, Role: auth.RoleTeacher,
		})
		if err != nil {
			zl.Fatal("creating teacher failed", zap.String("email", t.email), zap.Error(err))
		}
		if _, err := schedules.SetWeekly(ctx, res.User.ID.String(), weekly(t)); err != nil {
			zl.Fatal("setting availability failed", zap.String("email", t.email), zap.Error(err))
		}
		zl.Info("teacher created",
			zap.String("id", res.User.ID.String()),
			zap.String("email", t.email),
			zap.Ints("days", t.days),
			zap.String("hours", t.start+"-"+t.end),
			zap.String("token", res.Token))
	}

	for _, s := range students {
		res, err := users.Register(ctx, auth.RegisterRequest{
			Name: s.name, Email: s.email, Password: seedPassword, Role: auth.RoleStudent,
		})
		if err != nil {
			zl.Fatal("creating student failed", zap.String("email", s.email), zap.Error(err))
		}
		if _, _, err := wallets.Add(ctx, res.User.ID.String(), studentStartFunds); err != nil {
			zl.Fatal("funding wallet failed", zap.String("email", s.email), zap.Error(err))
		}
		zl.Info("student created",
			zap.String("id", res.User.ID.String()),
			zap.String("email", s.email),
			zap.Int64("tokens", studentStartFunds),
			zap.String("token", res.Token))
	}

	zl.Info("seed completed",
		zap.String("password", seedPassword),
		zap.Duration("token_ttl", cfg.JWTTTL),
		zap.Time("at", time.Now()))
}

// clean deletes rows in dependency order.
func clean(db *gorm.DB) error {
	for _, table := range []string{"notifications", "sessions", "token_transactions", "token_wallets", "weekly_availability", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func weekly(t teacherSeed) availability.SetWeeklyRequest {
	active := make(map[int]bool, len(t.days))
	for _, d := range t.days {
		active[d] = true
	}
	req := availability.SetWeeklyRequest{}
	for d := 0; d < 7; d++ {
		req.Availability = append(req.Availability, availability.DayInput{
			DayOfWeek: d,
			IsActive:  active[d],
			StartTime: t.start,
			EndTime:   t.end,
		})
	}
	return req
}
