package auth

import (
	"context"

	"github.com/frahmantamala/grievance-management/internal"
	userDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/grievance-management/internal/core/role"
)

type ctxKey string

const contextActorKey ctxKey = "actor"

// Actor is the authenticated identity every service call is authorized against.
type Actor struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Role         role.Role `json:"role"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	IsActive     bool      `json:"is_active"`
}

func ActorFromDataModel(u *userDatamodel.User) *Actor {
	return &Actor{
		ID:           u.ID,
		Email:        u.Email,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
	}
}

// InDepartment reports whether the actor belongs to departmentID.
func (a *Actor) InDepartment(departmentID int64) bool {
	return a.DepartmentID != nil && *a.DepartmentID == departmentID
}

func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	ctx = internal.ContextWithUserID(ctx, actor.ID)
	return context.WithValue(ctx, contextActorKey, actor)
}

func ActorFromContext(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(contextActorKey).(*Actor)
	return a, ok && a != nil
}
