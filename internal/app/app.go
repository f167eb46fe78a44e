// Package app assembles the service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/task-tracker/internal/api/http"
	"github.com/spec-kit/task-tracker/internal/api/http/handlers"
	"github.com/spec-kit/task-tracker/internal/auth"
	"github.com/spec-kit/task-tracker/internal/config"
	"github.com/spec-kit/task-tracker/internal/display"
	"github.com/spec-kit/task-tracker/internal/events"
	"github.com/spec-kit/task-tracker/internal/mail"
	"github.com/spec-kit/task-tracker/internal/observability"
	"github.com/spec-kit/task-tracker/internal/persistence"
	"github.com/spec-kit/task-tracker/internal/repository"
	"github.com/spec-kit/task-tracker/internal/service"
	"github.com/spec-kit/task-tracker/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// App holds the wired services and their backing connections.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	location *time.Location

	postgres *persistence.Postgres
	redis    *persistence.Redis
	metrics  *observability.Metrics

	users      repository.UserRepository
	revocation auth.RevocationStore

	Tasks     *service.TaskService
	Reminders *service.ReminderService
	Auth      *service.AuthService
}

// New connects to Postgres, optionally migrates, and builds the services.
// Redis is only dialed when withRedis is set; the reminder CLI does not need it.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, withRedis bool) (*App, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			pg.Close()
			return nil, err
		}
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		location: loc,
		postgres: pg,
		metrics:  observability.NewMetrics(),
	}

	var revocation auth.RevocationStore
	if withRedis {
		a.redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		revocation = auth.NewRedisRevocationStore(a.redis.Client)
	}
	a.revocation = revocation

	mailer, err := mail.New(cfg.Mail, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("configure mailer: %w", err)
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartActivityWorker(service.NewActivityService(dispatcher, a.metrics, logger))

	pool := pg.PoolHandle()
	taskRepo := repository.NewTaskRepository(pool)
	a.users = repository.NewUserRepository(pool)

	a.Tasks = service.NewTaskService(service.TaskDependencies{
		TaskRepo:   taskRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
		Location:   loc,
	})
	a.Reminders = service.NewReminderService(service.ReminderDependencies{
		TaskRepo:     taskRepo,
		UserRepo:     a.users,
		Mailer:       mailer,
		Dispatcher:   dispatcher,
		Recorder:     a.metrics,
		Logger:       logger,
		Location:     loc,
		TriggerHour:  cfg.Reminder.TriggerHour,
		UrgentWindow: cfg.Reminder.UrgentWindow(),
	})
	a.Auth = service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   a.users,
		Revocation: revocation,
		Logger:     logger,
	})
	return a, nil
}

// HTTP builds the fiber application with every route registered.
func (a *App) HTTP() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               a.cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, a.logger, a.metrics, a.cfg.App.RequestTimeout())

	deps := map[string]handlers.Pinger{"postgres": a.postgres}
	if a.redis != nil {
		deps["redis"] = a.redis
	}

	authMiddleware := auth.NewAuthMiddleware(a.Auth.TokenManager(), a.users, a.revocation, a.cfg.Auth.CookieName)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(a.cfg.App.Name, a.cfg.App.Version, deps),
		Users: handlers.NewUsersHandler(a.Auth, handlers.CookieOptions{
			Name:   a.cfg.Auth.CookieName,
			Secure: a.cfg.App.Env == "production",
		}),
		Tasks:          handlers.NewTasksHandler(a.Tasks, display.NewFormatter(a.location)),
		Reminders:      handlers.NewRemindersHandler(a.Reminders),
		AuthMiddleware: authMiddleware.Handle,
		Metrics:        a.metrics,
		ReminderKey:    a.cfg.Reminder.TriggerKey,
	})
	return app
}

// Serve listens until ctx is cancelled, then drains in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	server := a.HTTP()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", a.cfg.App.Addr()))
		errCh <- server.Listen(a.cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases connections.
func (a *App) Close() {
	a.redis.Close()
	a.postgres.Close()
}
