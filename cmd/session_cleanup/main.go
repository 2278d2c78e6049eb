package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/domain/auth"
	"skillswap/internal/domain/notification"
	"skillswap/internal/domain/session"
	"skillswap/internal/logger"
)

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

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	purged, err := session.NewService(session.NewRepository(db), nil, zl).PurgeCancelled(ctx)
	if err != nil {
		zl.Fatal("purging cancelled sessions failed", zap.Error(err))
	}

	unlocked, err := auth.NewRepository(db).ClearExpiredLocks(ctx, time.Now())
	if err != nil {
		zl.Fatal("clearing expired login locks failed", zap.Error(err))
	}

	readPurged, err := notification.NewService(notification.NewRepository(db), zl).PurgeRead(ctx)
	if err != nil {
		zl.Fatal("purging read notifications failed", zap.Error(err))
	}

	zl.Info("session cleanup completed",
		zap.Int64("cancelled_sessions_purged", purged),
		zap.Int64("login_locks_cleared", unlocked),
		zap.Int64("read_notifications_purged", readPurged))
}
