package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/auth"
	"github.com/frahmantamala/grievance-management/internal/core/common/pagination"
	"github.com/frahmantamala/grievance-management/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/grievance-management/internal/core/role"
	"github.com/frahmantamala/grievance-management/internal/department"
)

type RepositoryAPI interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	List(ctx context.Context, filter Filter, params pagination.Params) ([]*userDatamodel.User, int64, error)
	UpdateRole(ctx context.Context, id int64, r role.Role, departmentID *int64) error
	// ReleaseAssignments puts the open grievances assigned to employeeID back
	// in the pending queue and records who did it.
	ReleaseAssignments(ctx context.Context, employeeID, changedBy int64, at time.Time, notes string) (int, error)
	WithTx(ctx context.Context, fn func(tx RepositoryAPI) error) error
}

// DepartmentLookup resolves department ids; department.Service satisfies it.
type DepartmentLookup interface {
	Lookup(ctx context.Context, id int64) (*department.Department, error)
}

type Service struct {
	repo        RepositoryAPI
	departments DepartmentLookup
	policy      *auth.Policy
	bcryptCost  int
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, departments DepartmentLookup, policy *auth.Policy, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		departments: departments,
		policy:      policy,
		bcryptCost:  bcryptCost,
		logger:      logger,
	}
}

// Create registers a new account. The creator can never hand out a role
// ranked above its own.
func (s *Service) Create(ctx context.Context, actor *auth.Actor, dto CreateUserDTO) (*User, error) {
	dto.Email = strings.ToLower(strings.TrimSpace(dto.Email))
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	desired, err := role.Parse(dto.Role)
	if err != nil {
		return nil, internal.NewValidationFieldError("role", err.Error(), internal.ErrCodeInvalidRole)
	}

	if err := s.policy.Authorize(actor, auth.ActionCreateUser, auth.Resource{DesiredRole: desired}); err != nil {
		return nil, err
	}

	if err := s.checkDepartment(ctx, desired, dto.DepartmentID); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, dto.Email); err == nil {
		return nil, internal.ErrDuplicateEmail
	} else if !errors.Is(err, internal.ErrUserNotFound) {
		s.logger.Error("failed to check email", "error", err)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	active := true
	if dto.IsActive != nil {
		active = *dto.IsActive
	}

	row := &userDatamodel.User{
		Email:        dto.Email,
		PasswordHash: hash,
		Role:         desired,
		DepartmentID: dto.DepartmentID,
		IsActive:     active,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if errors.Is(err, internal.ErrDuplicateEmail) {
			return nil, err
		}
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created",
		"user_id", row.ID,
		"role", row.Role,
		"department_id", row.DepartmentID,
		"created_by", actor.ID)

	return FromDataModel(row), nil
}

func (s *Service) Get(ctx context.Context, actor *auth.Actor, id int64) (View, error) {
	if actor == nil || !actor.IsActive {
		return nil, internal.ErrPermissionDenied
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return ProjectFor(actor, u), nil
}

// Me returns the caller's own account.
func (s *Service) Me(ctx context.Context, actor *auth.Actor) (*User, error) {
	if actor == nil {
		return nil, internal.ErrPermissionDenied
	}
	return s.load(ctx, actor.ID)
}

func (s *Service) List(ctx context.Context, actor *auth.Actor, filter Filter, params pagination.Params) (pagination.Page[View], error) {
	if actor == nil || !actor.IsActive {
		return pagination.Page[View]{}, internal.ErrPermissionDenied
	}
	if filter.Role != "" {
		if _, err := role.Parse(filter.Role); err != nil {
			return pagination.Page[View]{}, internal.NewValidationFieldError("role", err.Error(), internal.ErrCodeInvalidRole)
		}
	}

	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return pagination.Page[View]{}, internal.NewInternalError("failed to list users", err)
	}

	items := make([]View, 0, len(rows))
	for _, row := range rows {
		items = append(items, ProjectFor(actor, FromDataModel(row)))
	}
	return pagination.NewPage(items, total, params), nil
}

// UpdateRole changes the role of id. Promotions into employee or admin need a
// department, taken from the request or kept from the account. An employee
// who changes role or department hands their open grievances back to the
// pending queue.
func (s *Service) UpdateRole(ctx context.Context, actor *auth.Actor, id int64, dto UpdateRoleDTO) (*User, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	desired, err := role.Parse(dto.Role)
	if err != nil {
		return nil, internal.NewValidationFieldError("role", err.Error(), internal.ErrCodeInvalidRole)
	}

	target, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.policy.Authorize(actor, auth.ActionManageUserRole, auth.Resource{
		TargetRole:  target.Role,
		DesiredRole: desired,
	}); err != nil {
		return nil, err
	}

	departmentID := target.DepartmentID
	if dto.DepartmentID != nil {
		departmentID = dto.DepartmentID
	}
	if err := s.checkDepartment(ctx, desired, departmentID); err != nil {
		return nil, err
	}

	released := 0
	err = s.repo.WithTx(ctx, func(tx RepositoryAPI) error {
		if err := tx.UpdateRole(ctx, id, desired, departmentID); err != nil {
			return err
		}
		if keepsAssignments(target, desired, departmentID) {
			return nil
		}
		n, err := tx.ReleaseAssignments(ctx, id, actor.ID, time.Now().UTC(), "assignee left the employee queue")
		released = n
		return err
	})
	if err != nil {
		s.logger.Error("failed to update role", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to update role", err)
	}

	s.logger.Info("user role updated",
		"user_id", id,
		"from", target.Role,
		"to", desired,
		"released_grievances", released,
		"actor_id", actor.ID)

	return s.load(ctx, id)
}

// keepsAssignments reports whether target can keep working its assigned
// grievances after moving to desired in departmentID.
func keepsAssignments(target *User, desired role.Role, departmentID *int64) bool {
	if target.Role != role.Employee {
		return true
	}
	if desired != role.Employee {
		return false
	}
	return target.DepartmentID != nil && departmentID != nil && *target.DepartmentID == *departmentID
}

func (s *Service) checkDepartment(ctx context.Context, r role.Role, departmentID *int64) error {
	if departmentID == nil {
		if r.RequiresDepartment() {
			return internal.ErrDepartmentRequired
		}
		return nil
	}
	if _, err := s.departments.Lookup(ctx, *departmentID); err != nil {
		if errors.Is(err, internal.ErrDepartmentNotFound) {
			return internal.ErrUnknownDepartment
		}
		return err
	}
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to get user", err)
	}
	return FromDataModel(row), nil
}
