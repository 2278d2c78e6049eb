package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"skillswap/internal/backend"
	"skillswap/internal/cache"
	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/domain/auth"
	"skillswap/internal/domain/availability"
	"skillswap/internal/domain/notification"
	"skillswap/internal/domain/session"
	"skillswap/internal/domain/wallet"
	"skillswap/internal/domain/wizard"
	"skillswap/internal/logger"
	"skillswap/internal/middleware"
	jwtsvc "skillswap/internal/pkg/jwt"
	core "skillswap/internal/wizard"
)

const (
	sweepInterval = time.Minute
	shutdownWait  = 10 * time.Second
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeCache := openCache(cfg, zl)
	defer closeCache()

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	gin.SetMode(gin.ReleaseMode)
	if !cfg.IsProdLike() {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(middleware.ErrorLogger(zl))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	var limiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute, zl)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(j))
	ws := r.Group("/ws")
	ws.Use(middleware.QueryTokenAuth(j))
	if limiter != nil {
		// after auth so buckets are keyed by user
		protected.Use(limiter.Middleware())
	}

	var (
		fetcher core.AvailabilityFetcher
		creator core.SessionCreator
	)
	if cfg.EmbeddedBackend() {
		db, err := database.Connect(cfg.DatabaseURL, zl)
		if err != nil {
			zl.Fatal("database connect failed", zap.Error(err))
		}
		if err := migrate(db); err != nil {
			zl.Fatal("database migrate failed", zap.Error(err))
		}

		walletService := wallet.NewService(db, zl)
		authService := auth.NewService(auth.NewRepository(db), j, zl,
			auth.WithSignupTokens(walletService, cfg.SignupTokens))
		sessionRepo := session.NewRepository(db)
		sessionService := session.NewService(sessionRepo, walletService, zl)
		notificationService := notification.NewService(notification.NewRepository(db), zl)
		sessionService.SetNotifier(notificationService)
		availabilityService := availability.NewService(
			availability.NewRepository(db),
			cfg.WizardLocation,
			zl,
			availability.WithBusyLister(sessionRepo),
			availability.WithCache(store),
		)

		authHandler := auth.NewHandler(authService)
		authHandler.RegisterPublicRoutes(v1)
		authHandler.RegisterProtectedRoutes(protected)

		teachers := protected.Group("")
		teachers.Use(middleware.TeacherOnly())
		availability.NewHandler(availabilityService).RegisterRoutes(v1, teachers)
		session.NewHandler(sessionService).RegisterRoutes(protected)
		wallet.NewHandler(walletService).RegisterRoutes(protected)
		notification.NewHandler(notificationService).RegisterRoutes(protected)

		fetcher = availabilityService
		creator = sessionService
		zl.Info("serving embedded backend")
	} else {
		client := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, zl)
		fetcher = client
		creator = client
		zl.Info("using remote backend", zap.String("base_url", cfg.BackendBaseURL))
	}

	hub := wizard.NewHub(zl)
	registry := wizard.NewRegistry(core.Options{
		Availability: backend.NewCachedAvailability(fetcher, store, cfg.AvailabilityCacheTTL, zl),
		Sessions:     creator,
		Policy:       cfg.WizardFetchPolicy,
		Location:     cfg.WizardLocation,
		FetchTimeout: cfg.BackendTimeout,
		Logger:       zl,
	}, cfg.WizardIdleTTL, hub, zl)
	wizard.NewHandler(registry, hub, wizard.NewUpgrader(cfg.CORSAllowedOrigins), cfg.WizardLocation, zl).
		RegisterRoutes(protected, ws)

	go registry.Run(ctx, sweepInterval)
	if limiter != nil {
		go pruneLimiter(ctx, limiter)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zl.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown failed", zap.Error(err))
	}
}

func migrate(db *gorm.DB) error {
	var models []any
	models = append(models, auth.Models()...)
	models = append(models, wallet.Models()...)
	models = append(models, availability.Models()...)
	models = append(models, session.Models()...)
	models = append(models, notification.Models()...)
	return db.AutoMigrate(models...)
}

// openCache prefers redis and falls back to process memory when it is not
// configured.
func openCache(cfg *config.Config, zl *zap.Logger) (cache.Cache, func()) {
	if cfg.RedisAddr == "" {
		zl.Info("availability cache: in-memory")
		return cache.NewMemory(), func() {}
	}
	rc, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		if cfg.IsProdLike() {
			zl.Fatal("redis unavailable", zap.Error(err))
		}
		zl.Warn("redis unavailable, using in-memory cache", zap.Error(err))
		return cache.NewMemory(), func() {}
	}
	zl.Info("availability cache: redis", zap.String("addr", cfg.RedisAddr))
	return rc, func() { _ = rc.Close() }
}

func pruneLimiter(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.Prune(now)
		}
	}
}
