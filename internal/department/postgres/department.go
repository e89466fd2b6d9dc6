package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/core/common/pagination"
	departmentDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/department"
	grievanceDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/grievance"
	userDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/grievance-management/internal/department"
	"gorm.io/gorm"
)

var sortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"created_at": "created_at",
}

type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) department.RepositoryAPI {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) Create(ctx context.Context, d *departmentDatamodel.Department) error {
	err := r.db.WithContext(ctx).Create(d).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.ErrDuplicateDepartment
	}
	return err
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id int64) (*departmentDatamodel.Department, error) {
	var d departmentDatamodel.Department
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DepartmentRepository) GetByName(ctx context.Context, name string) (*departmentDatamodel.Department, error) {
	var d departmentDatamodel.Department
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DepartmentRepository) List(ctx context.Context, filter department.Filter, params pagination.Params) ([]*departmentDatamodel.Department, int64, error) {
	query := r.db.WithContext(ctx).Model(&departmentDatamodel.Department{})
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if params.Search != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, params.SearchPattern())
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var departments []*departmentDatamodel.Department
	err := params.Apply(query, sortColumns, "name").Find(&departments).Error
	return departments, total, err
}

// CountReferences counts grievances and users that still point at the department.
func (r *DepartmentRepository) CountReferences(ctx context.Context, id int64) (int64, error) {
	db := r.db.WithContext(ctx)

	var grievances int64
	if err := db.Model(&grievanceDatamodel.Grievance{}).Where("department_id = ?", id).Count(&grievances).Error; err != nil {
		return 0, err
	}

	var users int64
	if err := db.Model(&userDatamodel.User{}).Where("department_id = ?", id).Count(&users).Error; err != nil {
		return 0, err
	}

	return grievances + users, nil
}

func (r *DepartmentRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&departmentDatamodel.Department{}, id).Error
}
