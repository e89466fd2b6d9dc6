package department

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/auth"
	"github.com/frahmantamala/grievance-management/internal/core/common/pagination"
	"github.com/frahmantamala/grievance-management/internal/core/common/validation"
	departmentDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/department"
	"github.com/frahmantamala/grievance-management/internal/core/role"
)

type RepositoryAPI interface {
	Create(ctx context.Context, d *departmentDatamodel.Department) error
	GetByID(ctx context.Context, id int64) (*departmentDatamodel.Department, error)
	GetByName(ctx context.Context, name string) (*departmentDatamodel.Department, error)
	List(ctx context.Context, filter Filter, params pagination.Params) ([]*departmentDatamodel.Department, int64, error)
	CountReferences(ctx context.Context, id int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	repo   RepositoryAPI
	policy *auth.Policy
	cache  *Cache
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, policy *auth.Policy, cache *Cache, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NewCache(0, 0)
	}
	return &Service{
		repo:   repo,
		policy: policy,
		cache:  cache,
		logger: logger,
	}
}

func (s *Service) Create(ctx context.Context, actor *auth.Actor, dto CreateDepartmentDTO) (*Department, error) {
	if err := s.policy.Authorize(actor, auth.ActionCreateDepartment, auth.Resource{}); err != nil {
		return nil, err
	}

	dto.Name = strings.TrimSpace(dto.Name)
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, dto.Name)
	if err != nil && !errors.Is(err, internal.ErrDepartmentNotFound) {
		s.logger.Error("failed to check department name", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create department", err)
	}
	if existing != nil {
		return nil, internal.ErrDuplicateDepartment
	}

	row := ToDataModel(NewDepartment(dto.Name))
	if err := s.repo.Create(ctx, row); err != nil {
		if errors.Is(err, internal.ErrDuplicateDepartment) {
			return nil, err
		}
		s.logger.Error("failed to create department", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create department", err)
	}

	d := FromDataModel(row)
	s.cache.Set(d)

	s.logger.Info("department created", "department_id", d.ID, "name", d.Name, "actor_id", actor.ID)
	return d, nil
}

// Get returns a department the actor is allowed to see.
func (s *Service) Get(ctx context.Context, actor *auth.Actor, id int64) (*Department, error) {
	d, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, auth.ActionReadDepartmentList, auth.DepartmentResource(id)); err != nil {
		return nil, err
	}
	return d, nil
}

// List applies the role window: super admins see every department, admins
// and employees only their own, users none.
func (s *Service) List(ctx context.Context, actor *auth.Actor, params pagination.Params) (pagination.Page[*Department], error) {
	if err := s.policy.Authorize(actor, auth.ActionReadDepartmentList, auth.Resource{}); err != nil {
		return pagination.Page[*Department]{}, err
	}

	var filter Filter
	if actor.Role != role.SuperAdmin {
		if actor.DepartmentID == nil {
			return pagination.NewPage[*Department](nil, 0, params), nil
		}
		filter.ID = actor.DepartmentID
	}

	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		s.logger.Error("failed to list departments", "error", err)
		return pagination.Page[*Department]{}, internal.NewInternalError("failed to list departments", err)
	}

	items := make([]*Department, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromDataModel(row))
	}
	return pagination.NewPage(items, total, params), nil
}

// Delete removes a department nobody references any more.
func (s *Service) Delete(ctx context.Context, actor *auth.Actor, id int64) error {
	if err := s.policy.Authorize(actor, auth.ActionDeleteDepartment, auth.DepartmentResource(id)); err != nil {
		return err
	}

	if _, err := s.Lookup(ctx, id); err != nil {
		return err
	}

	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		s.logger.Error("failed to count department references", "error", err, "department_id", id)
		return internal.NewInternalError("failed to delete department", err)
	}
	if refs > 0 {
		s.logger.Warn("refusing to delete referenced department", "department_id", id, "references", refs)
		return internal.ErrDepartmentInUse
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete department", "error", err, "department_id", id)
		return internal.NewInternalError("failed to delete department", err)
	}
	s.cache.Delete(id)

	s.logger.Info("department deleted", "department_id", id, "actor_id", actor.ID)
	return nil
}

// Lookup resolves a department by id without authorization, going through
// the cache. Missing departments yield ErrDepartmentNotFound.
func (s *Service) Lookup(ctx context.Context, id int64) (*Department, error) {
	if d, ok := s.cache.Get(id); ok {
		return d, nil
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, internal.ErrDepartmentNotFound) {
			return nil, err
		}
		s.logger.Error("failed to get department", "error", err, "department_id", id)
		return nil, internal.NewInternalError("failed to get department", err)
	}

	d := FromDataModel(row)
	s.cache.Set(d)
	return d, nil
}
