package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spec-kit/study-share/internal/api/http/handlers"
	"github.com/spec-kit/study-share/internal/auth"
	"github.com/spec-kit/study-share/internal/domain"
	"github.com/spec-kit/study-share/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Users     *handlers.UsersHandler
	Questions *handlers.QuestionsHandler
	Admin     *handlers.AdminHandler
	Guard     *auth.Guard
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)

	questions := app.Group("/questions")
	questions.Get("/", cfg.Questions.ListQuestions)
	questions.Get("/:slug", cfg.Questions.GetQuestion)

	authenticated := Authenticate(cfg.Guard)
	questions.Post("/", authenticated, cfg.Questions.CreateQuestion)
	questions.Patch("/:slug", authenticated, cfg.Questions.UpdateQuestion)
	questions.Delete("/:slug", authenticated, cfg.Questions.DeleteQuestion)
	questions.Post("/:slug/reports", authenticated, cfg.Questions.FileReport)

	moderators := RequireRoles(cfg.Guard, cfg.Logger, cfg.Metrics, domain.RoleAdmin, domain.RoleSuperAdmin)
	admin := app.Group(AdminPrefix)
	admin.Get("/administrators", moderators, cfg.Admin.ListAdministrators)
	admin.Get("/reports", moderators, cfg.Admin.ListReports)
	admin.Post("/reports/:id/resolve", moderators, cfg.Admin.ResolveReport)
	admin.Put("/users/:id/role", RequireRoles(cfg.Guard, cfg.Logger, cfg.Metrics, domain.RoleSuperAdmin), cfg.Admin.SetRole)
}
