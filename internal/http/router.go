package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pribylovaa/student-portal/internal/access"
	"github.com/pribylovaa/student-portal/internal/http/handlers"
	"github.com/pribylovaa/student-portal/internal/http/middleware"
	"github.com/pribylovaa/student-portal/internal/models"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// Diagnostics включает поле detail в ответах об ошибках (не для prod).
	Diagnostics bool
	// Limiter ограничивает POST-формы аутентификации; nil — без ограничения.
	Limiter *middleware.RateLimiter
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, ctrl *access.Controller, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		chimw.RealIP,
		middleware.Diagnostics(opts.Diagnostics),
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
		middleware.Timeout(opts.Timeout),
	)

	registerRoutes(root, h, middleware.NewAuth(ctrl), opts.Limiter)
	return root
}

// registerRoutes — единая точка регистрации всех эндпойнтов портала.
func registerRoutes(r chi.Router, h *handlers.Handlers, auth *middleware.Auth, limiter *middleware.RateLimiter) {
	// auth: формы доступны только гостям.
	r.Route("/auth", func(r chi.Router) {
		r.With(auth.RedirectIfAuthenticated()).Get("/login", h.LoginForm)
		r.With(auth.RedirectIfAuthenticated()).Get("/register", h.RegisterForm)
		r.Get("/forgot-password", h.ForgotPasswordForm)
		r.Get("/reset-password/{token}", h.ResetPasswordForm)

		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Middleware())
			}
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password/{token}", h.ResetPassword)
		})
	})

	r.HandleFunc("/logout", h.Logout)

	// Всё ниже требует действительной сессии.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession())

		r.With(auth.RequireRole(models.RoleStudent)).Get("/dashboard", h.Dashboard)
		r.With(auth.RequireRole(models.RoleAdmin)).Get("/admin/dashboard", h.AdminDashboard)

		r.Get("/settings/details", h.Details)
		r.Post("/settings/details", h.ChangeEmail)
		r.Post("/settings/security", h.ChangePassword)
	})
}
