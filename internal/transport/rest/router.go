package rest

import (
	"log/slog"

	"github.com/frahmantamala/grievance-management/internal/auth"
	"github.com/frahmantamala/grievance-management/internal/comment"
	"github.com/frahmantamala/grievance-management/internal/core/role"
	"github.com/frahmantamala/grievance-management/internal/department"
	"github.com/frahmantamala/grievance-management/internal/grievance"
	"github.com/frahmantamala/grievance-management/internal/transport/middleware"
	"github.com/frahmantamala/grievance-management/internal/transport/swagger"
	"github.com/frahmantamala/grievance-management/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options carries everything the router mounts. Nil handlers leave their
// routes out.
type Options struct {
	Health         *HealthHandler
	Auth           *auth.Handler
	RBAC           *auth.RBACAuthorization
	Users          *user.Handler
	Departments    *department.Handler
	Grievances     *grievance.Handler
	Comments       *comment.Handler
	Spec           *swagger.Spec
	AllowedOrigins string
	MetricsEnabled bool
	MetricsPath    string
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rbac := opts.RBAC
	if rbac == nil {
		rbac = auth.NewRBACAuthorization(logger)
	}

	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	if opts.MetricsEnabled {
		router.Use(middleware.MetricsMiddleware())
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, promhttp.Handler())
	}

	if opts.Spec != nil {
		router.Get(swagger.SpecPath, opts.Spec.ServeHTTP)
		router.Handle("/swagger/*", swagger.Handler())
	}

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		if opts.Health != nil {
			r.Get("/health", opts.Health.healthCheckHandler)
			r.Get("/ping", opts.Health.pingHandler)
		}

		if opts.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", opts.Auth.Login)
			sr.Post("/refresh", opts.Auth.RefreshToken)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(opts.Auth.AuthMiddleware)

			if h := opts.Users; h != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.Get("/me", h.GetCurrentUser)
					ur.Get("/", h.ListUsers)
					ur.Get("/{id}", h.GetUser)

					ur.With(rbac.RequireRole(role.Employee, role.Admin, role.SuperAdmin)).Post("/", h.CreateUser)
					ur.With(rbac.RequireElevated()).Patch("/{id}/role", h.UpdateUserRole)
				})
			}

			if h := opts.Departments; h != nil {
				pr.Route("/departments", func(dr chi.Router) {
					dr.Get("/", h.ListDepartments)
					dr.Get("/{id}", h.GetDepartment)

					dr.With(rbac.RequireElevated()).Post("/", h.CreateDepartment)
					dr.With(rbac.RequireSuperAdmin()).Delete("/{id}", h.DeleteDepartment)
				})
			}

			if h := opts.Grievances; h != nil {
				pr.Route("/grievances", func(gr chi.Router) {
					gr.With(rbac.RequireRole(role.User)).Post("/", h.CreateGrievance)
					gr.Get("/", h.ListGrievances)
					gr.With(rbac.RequireElevated()).Post("/assign", h.AssignGrievances)
					gr.Get("/attachments/{attachment_id}", h.DownloadAttachment)

					// ticket ids everywhere except resolve, which takes the numeric id
					gr.Get("/{id}", h.GetGrievance)
					gr.Get("/{id}/history", h.GetHistory)
					gr.Post("/{id}/resolve", h.ResolveGrievance)
					gr.With(rbac.RequireElevated()).Post("/{id}/transfer", h.TransferGrievance)
					gr.With(rbac.RequireElevated()).Post("/{id}/close", h.CloseGrievance)
				})
			}

			if h := opts.Comments; h != nil {
				pr.Route("/comments", func(cr chi.Router) {
					cr.Post("/", h.PostComment)
					cr.Get("/grievance/{id}", h.ListComments)
				})
			}
		})
	})
}
