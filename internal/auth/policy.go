package auth

import (
	"log/slog"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/core/role"
)

type Action string

const (
	ActionCreateGrievance    Action = "create_grievance"
	ActionReadGrievance      Action = "read_grievance"
	ActionAssign             Action = "assign"
	ActionResolve            Action = "resolve"
	ActionTransfer           Action = "transfer"
	ActionClose              Action = "close"
	ActionComment            Action = "comment"
	ActionReadDepartmentList Action = "read_department_list"
	ActionManageUserRole     Action = "manage_user_role"
	ActionCreateUser         Action = "create_user"
	ActionCreateDepartment   Action = "create_department"
	ActionDeleteDepartment   Action = "delete_department"
)

// Resource carries the attributes of the object an action targets. Only the
// fields relevant to the action need to be set.
type Resource struct {
	DepartmentID *int64
	OwnerID      int64
	AssigneeID   *int64
	TargetRole   role.Role
	DesiredRole  role.Role
}

func DepartmentResource(departmentID int64) Resource {
	return Resource{DepartmentID: &departmentID}
}

// Policy is the single place that decides whether an actor may perform an action.
type Policy struct {
	logger *slog.Logger
}

func NewPolicy(logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{logger: logger}
}

// Can reports whether actor may perform action on res. Inactive actors can
// never do anything.
func (p *Policy) Can(actor *Actor, action Action, res Resource) bool {
	if actor == nil || !actor.IsActive || !actor.Role.IsValid() {
		return false
	}

	switch action {
	case ActionCreateGrievance:
		return actor.Role == role.User

	case ActionReadGrievance, ActionComment:
		switch actor.Role {
		case role.Admin, role.SuperAdmin:
			return true
		case role.User:
			return res.OwnerID == actor.ID
		case role.Employee:
			return res.AssigneeID != nil && *res.AssigneeID == actor.ID
		}
		return false

	case ActionAssign:
		return actor.Role == role.SuperAdmin || (actor.Role == role.Admin && actor.DepartmentID != nil)

	case ActionResolve:
		switch actor.Role {
		case role.SuperAdmin:
			return true
		case role.Admin:
			return sameDepartment(actor, res)
		case role.Employee:
			return res.AssigneeID != nil && *res.AssigneeID == actor.ID
		}
		return false

	case ActionTransfer, ActionClose:
		switch actor.Role {
		case role.SuperAdmin:
			return true
		case role.Admin:
			return sameDepartment(actor, res)
		}
		return false

	case ActionReadDepartmentList:
		switch actor.Role {
		case role.SuperAdmin:
			return true
		case role.Admin, role.Employee:
			return res.DepartmentID == nil || sameDepartment(actor, res)
		}
		return false

	case ActionManageUserRole:
		if !actor.Role.IsElevated() {
			return false
		}
		if res.TargetRole == role.SuperAdmin && actor.Role != role.SuperAdmin {
			return false
		}
		return role.CanGrant(actor.Role, res.DesiredRole)

	case ActionCreateUser:
		if actor.Role == role.User {
			return false
		}
		return role.CanGrant(actor.Role, res.DesiredRole)

	case ActionCreateDepartment:
		return actor.Role.IsElevated()

	case ActionDeleteDepartment:
		return actor.Role == role.SuperAdmin
	}

	return false
}

// Authorize is Can returning a FORBIDDEN AppError on denial. Rank violations
// on role-granting actions are reported as role escalation.
func (p *Policy) Authorize(actor *Actor, action Action, res Resource) error {
	if p.Can(actor, action, res) {
		return nil
	}

	var actorID int64
	var actorRole role.Role
	if actor != nil {
		actorID, actorRole = actor.ID, actor.Role
	}
	p.logger.Warn("access denied",
		"actor_id", actorID,
		"actor_role", actorRole,
		"action", action)

	if actor != nil && actor.IsActive && grantsRoles(actor, action) && !role.CanGrant(actor.Role, res.DesiredRole) {
		return internal.ErrRoleEscalation
	}
	return internal.ErrPermissionDenied
}

func grantsRoles(actor *Actor, action Action) bool {
	switch action {
	case ActionCreateUser:
		return actor.Role != role.User
	case ActionManageUserRole:
		return actor.Role.IsElevated()
	}
	return false
}

func sameDepartment(actor *Actor, res Resource) bool {
	return res.DepartmentID != nil && actor.InDepartment(*res.DepartmentID)
}
