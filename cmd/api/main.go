package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/study-share/internal/api/http"
	"github.com/spec-kit/study-share/internal/api/http/handlers"
	"github.com/spec-kit/study-share/internal/auth"
	"github.com/spec-kit/study-share/internal/config"
	"github.com/spec-kit/study-share/internal/events"
	"github.com/spec-kit/study-share/internal/notify"
	"github.com/spec-kit/study-share/internal/observability"
	"github.com/spec-kit/study-share/internal/persistence"
	"github.com/spec-kit/study-share/internal/repository"
	"github.com/spec-kit/study-share/internal/repository/memory"
	"github.com/spec-kit/study-share/internal/service"
	"github.com/spec-kit/study-share/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	sentryEnabled, err := observability.InitSentry(cfg.Sentry, cfg.App)
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	defer observability.FlushSentry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var (
		userRepo     repository.UserRepository
		questionRepo repository.QuestionRepository
		reportRepo   repository.ReportRepository
	)
	if pool != nil {
		userRepo = repository.NewUserRepository(pool)
		questionRepo = repository.NewQuestionRepository(pool)
		reportRepo = repository.NewReportRepository(pool)
	} else {
		store := memory.NewStore()
		userRepo, questionRepo, reportRepo = store.Users(), store.Questions(), store.Reports()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	failures := notify.NewRedisFailureStore(redis.Client, "")

	metrics := observability.NewMetrics()

	var transport notify.Transport
	smtp, err := notify.NewSMTPTransport(cfg.SMTP, cfg.Notification.SendTimeout())
	if err != nil {
		logger.Warn("welcome mail disabled", zap.Error(err))
		transport = notify.DisabledTransport{}
	} else {
		transport = smtp
	}
	mailer := notify.NewDispatcher(cfg.Notification, notify.DispatcherDependencies{
		Transport: transport,
		Failures:  failures,
		Logger:    logger,
		Metrics:   metrics,
	})

	eventDispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(service.NewNotificationService(eventDispatcher, mailer, logger))
	requeueDone := worker.StartWelcomeRequeue(ctx, cfg.Notification.RequeueInterval(), cfg.Notification.RequeueBatch, failures, mailer, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:     userRepo,
		TokenManager: tokens,
		Dispatcher:   eventDispatcher,
		Logger:       logger,
	})
	moderationService := service.NewModerationService(service.ModerationDependencies{
		QuestionRepo: questionRepo,
		ReportRepo:   reportRepo,
		Dispatcher:   eventDispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	adminService := service.NewAdminService(service.AdminDependencies{
		UserRepo:   userRepo,
		Dispatcher: eventDispatcher,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	if sentryEnabled {
		app.Use(sentryfiber.New(sentryfiber.Options{Repanic: true, Timeout: 2 * time.Second}))
	}

	deps := map[string]handlers.Pinger{"redis": redis, "postgres": nil}
	if pool != nil {
		deps["postgres"] = pg
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Users:     handlers.NewUsersHandler(authService),
		Questions: handlers.NewQuestionsHandler(moderationService),
		Admin:     handlers.NewAdminHandler(moderationService, adminService),
		Guard:     auth.NewGuard(tokens),
		Metrics:   metrics,
		Logger:    logger,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-requeueDone

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Notification.SendTimeout()+5*time.Second)
	defer drainCancel()
	if err := mailer.Close(drainCtx); err != nil {
		logger.Warn("welcome mail queue not drained", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
