package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/task-tracker/internal/api/http/handlers"
	"github.com/spec-kit/task-tracker/internal/auth"
	"github.com/spec-kit/task-tracker/internal/observability"
)

// ReminderKeyHeader carries the shared key for the reminder trigger.
const ReminderKeyHeader = "X-Reminder-Key"

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tasks          *handlers.TasksHandler
	Reminders      *handlers.RemindersHandler
	AuthMiddleware fiber.Handler
	Metrics        *observability.Metrics
	ReminderKey    string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	app.Get("/run-reminders", auth.RequireTriggerKey(ReminderKeyHeader, cfg.ReminderKey), cfg.Reminders.Run)

	// The auth chain is attached per route so unmatched paths still 404.
	protected := func(h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{cfg.AuthMiddleware, auth.RequireUser(), h}
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/logout", protected(cfg.Users.Logout)...)
	authGroup.Get("/me", protected(cfg.Users.Me)...)
	authGroup.Delete("/account", protected(cfg.Users.DeleteAccount)...)

	app.Get("/", protected(cfg.Tasks.List)...)
	app.Post("/add", protected(cfg.Tasks.Add)...)
	app.Post("/update_description/:id", protected(cfg.Tasks.UpdateDescription)...)
	app.Post("/update_deadline/:id", protected(cfg.Tasks.UpdateDeadline)...)
	app.Post("/toggle/:id", protected(cfg.Tasks.Toggle)...)
	app.Post("/delete/:id", protected(cfg.Tasks.Delete)...)
	app.Post("/clear", protected(cfg.Tasks.Clear)...)
	app.Post("/remind/:id", protected(cfg.Reminders.SendNow)...)
}
