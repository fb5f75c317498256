package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/tidewater-dev/crewdeck/internal/api/auth"
	"github.com/tidewater-dev/crewdeck/internal/api/comments"
	"github.com/tidewater-dev/crewdeck/internal/api/files"
	"github.com/tidewater-dev/crewdeck/internal/api/middleware"
	"github.com/tidewater-dev/crewdeck/internal/api/notifications"
	"github.com/tidewater-dev/crewdeck/internal/api/projects"
	"github.com/tidewater-dev/crewdeck/internal/api/reports"
	"github.com/tidewater-dev/crewdeck/internal/api/risks"
	"github.com/tidewater-dev/crewdeck/internal/api/tasks"
	"github.com/tidewater-dev/crewdeck/internal/api/users"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.AccessTokenTTL)
	lockoutTracker := auth.NewLockoutTracker(s.config.LockoutThreshold, s.config.LockoutDuration)

	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)
	userLimiter := middleware.NewRateLimiter(s.config.RateLimitPerUser)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	authHandler := auth.NewHandler(s.storage, jwtService, lockoutTracker, s.config.RefreshTokenTTL)
	userHandler := users.NewHandler(s.storage)
	projectHandler := projects.NewHandler(s.storage, s.fanout)
	taskHandler := tasks.NewHandler(s.storage, s.fanout)
	commentHandler := comments.NewHandler(s.storage, s.fanout)
	fileHandler := files.NewHandler(s.storage, s.blobs, s.fanout)
	riskHandler := risks.NewHandler(s.storage, s.fanout)
	notificationHandler := notifications.NewHandler(s.storage)
	reportHandler := reports.NewHandler(s.storage)

	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (mostly public)
		r.Route("/auth", func(r chi.Router) {
			// Public routes with IP rate limiting
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(ipLimiter))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
			})

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.JWTAuth(jwtService))
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Everything below requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			r.Route("/users", func(r chi.Router) {
				// Any authenticated user: self endpoints plus the user
				// directory the SPA uses for assignment pickers.
				r.Get("/", userHandler.List)
				r.Get("/me", userHandler.GetCurrentUser)
				r.Put("/me/password", userHandler.ChangePassword)

				// Admin-only endpoints
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Post("/", userHandler.Create)
				})

				// Per-user endpoints (admin or self)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.RequireAdminOrSelf)
					r.Get("/", userHandler.GetByID)
					r.Put("/", userHandler.Update)

					// Delete is admin-only
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireAdmin)
						r.Delete("/", userHandler.Delete)
					})
				})
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.List)
				r.Post("/", projectHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", projectHandler.GetByID)
					r.Put("/", projectHandler.Update)
					r.Delete("/", projectHandler.Delete)
					r.Get("/tasks", taskHandler.ListByProject)
					r.Post("/tasks", taskHandler.Create)
				})
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Post("/", taskHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", taskHandler.GetByID)
					r.Put("/", taskHandler.Update)
					r.Delete("/", taskHandler.Delete)
					r.Get("/comments", commentHandler.ListByTask)
					r.Post("/comments", commentHandler.Create)
				})
			})

			r.Route("/comments", func(r chi.Router) {
				r.Put("/{id}", commentHandler.Update)
				r.Delete("/{id}", commentHandler.Delete)
			})

			r.Route("/files", func(r chi.Router) {
				r.Get("/", fileHandler.List)
				r.Post("/", fileHandler.Upload)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", fileHandler.GetByID)
					r.Get("/download", fileHandler.Download)
					r.Delete("/", fileHandler.Delete)
				})
			})

			r.Route("/risks", func(r chi.Router) {
				r.Get("/", riskHandler.List)
				r.Post("/", riskHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", riskHandler.GetByID)
					r.Put("/", riskHandler.Update)
					r.Delete("/", riskHandler.Delete)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Post("/read-all", notificationHandler.MarkAllRead)
				r.Post("/{id}/read", notificationHandler.MarkRead)
				r.Delete("/{id}", notificationHandler.Delete)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/projects", reportHandler.ListProjects)
				r.Route("/projects/{id}", func(r chi.Router) {
					r.Get("/data", reportHandler.ProjectData)
					r.Get("/risk-metrics", reportHandler.RiskMetrics)
					r.Get("/task-trends", reportHandler.TaskTrends)
				})
			})
		})
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}
