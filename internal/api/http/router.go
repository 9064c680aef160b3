package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health                 *handlers.HealthHandler
	Account                *handlers.AccountHandler
	AuthMiddleware         *auth.AuthMiddleware
	AllowAdminRegistration bool
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	account := app.Group("/api/account")
	account.Post("/login", cfg.Account.Login)
	account.Post("/userid-from-token", cfg.Account.UserIDFromToken)
	account.Post("/refresh", cfg.Account.Refresh)
	account.Post("/register", cfg.Account.Register)
	if cfg.AllowAdminRegistration {
		account.Post("/register-admin", cfg.Account.RegisterAdmin)
	}
	account.Get("/confirm-email", cfg.Account.ConfirmEmail)
	account.Post("/forgot-password", cfg.Account.ForgotPassword)
	account.Post("/reset-password", cfg.Account.ResetPassword)

	account.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Account.Me)
}
