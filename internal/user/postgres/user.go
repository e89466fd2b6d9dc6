package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/core/common/pagination"
	grievanceDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/grievance"
	userDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/grievance-management/internal/core/role"
	"github.com/frahmantamala/grievance-management/internal/grievance"
	"github.com/frahmantamala/grievance-management/internal/user"
	"gorm.io/gorm"
)

var sortColumns = map[string]string{
	"id":         "id",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) WithTx(ctx context.Context, fn func(tx user.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UserRepository{db: tx})
	})
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.ErrDuplicateEmail
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context, filter user.Filter, params pagination.Params) ([]*userDatamodel.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&userDatamodel.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.DepartmentID != nil {
		query = query.Where("department_id = ?", *filter.DepartmentID)
	}
	if params.Search != "" {
		query = query.Where(`LOWER(email) LIKE ? ESCAPE '\'`, params.SearchPattern())
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []*userDatamodel.User
	err := params.Apply(query, sortColumns, "created_at").Find(&users).Error
	return users, total, err
}

func (r *UserRepository) UpdateRole(ctx context.Context, id int64, newRole role.Role, departmentID *int64) error {
	result := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"role":          newRole,
			"department_id": departmentID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ReleaseAssignments(ctx context.Context, employeeID, changedBy int64, at time.Time, notes string) (int, error) {
	var rows []*grievanceDatamodel.Grievance
	err := r.db.WithContext(ctx).
		Where("assigned_to = ?", employeeID).
		Where("status IN ?", []string{grievance.StatusPending, grievance.StatusInProgress}).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return 0, err
	}

	for _, g := range rows {
		err := r.db.WithContext(ctx).Model(&grievanceDatamodel.Grievance{}).
			Where("id = ?", g.ID).
			Updates(map[string]interface{}{
				"assigned_to": nil,
				"status":      grievance.StatusPending,
				"updated_at":  at,
			}).Error
		if err != nil {
			return 0, err
		}
		note := notes
		err = r.db.WithContext(ctx).Create(&grievanceDatamodel.StatusHistory{
			GrievanceID: g.ID,
			Status:      grievance.StatusPending,
			ChangedByID: changedBy,
			ChangedAt:   at,
			Notes:       &note,
		}).Error
		if err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}
