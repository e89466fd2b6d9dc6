package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/core/role"
	"github.com/frahmantamala/grievance-management/internal/transport"
)

// RBACAuthorization gates whole route groups by role before a handler runs.
// Resource level rules stay in Policy and are applied by the services.
type RBACAuthorization struct {
	*transport.BaseHandler
	logger *slog.Logger
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		logger:      logger,
	}
}

// RequireRole lets the request through only for actors holding one of roles.
func (ra *RBACAuthorization) RequireRole(roles ...role.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				ra.logger.Warn("authorization check failed: actor not found in context")
				ra.HandleServiceError(w, internal.NewUnauthorizedError("unauthorized", internal.ErrCodeInvalidToken))
				return
			}

			for _, allowed := range roles {
				if actor.Role == allowed && actor.IsActive {
					next.ServeHTTP(w, r)
					return
				}
			}

			ra.logger.WarnContext(r.Context(), "access denied: role not allowed",
				"user_id", actor.ID,
				"role", actor.Role,
				"allowed_roles", roles)
			ra.HandleServiceError(w, internal.ErrPermissionDenied)
		})
	}
}

func (ra *RBACAuthorization) RequireElevated() func(http.Handler) http.Handler {
	return ra.RequireRole(role.Admin, role.SuperAdmin)
}

func (ra *RBACAuthorization) RequireSuperAdmin() func(http.Handler) http.Handler {
	return ra.RequireRole(role.SuperAdmin)
}
