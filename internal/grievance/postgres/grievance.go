package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/core/common/pagination"
	grievanceDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/grievance"
	userDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/grievance-management/internal/core/role"
	"github.com/frahmantamala/grievance-management/internal/grievance"
	"gorm.io/gorm"
)

var sortColumns = map[string]string{
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"status":      "status",
	"ticket_id":   "ticket_id",
	"resolved_at": "resolved_at",
}

type GrievanceRepository struct {
	db *gorm.DB
}

func NewGrievanceRepository(db *gorm.DB) grievance.RepositoryAPI {
	return &GrievanceRepository{db: db}
}

// WithTx runs fn inside one database transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
func (r *GrievanceRepository) WithTx(ctx context.Context, fn func(tx grievance.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GrievanceRepository{db: tx})
	})
}

func (r *GrievanceRepository) Create(ctx context.Context, g *grievanceDatamodel.Grievance) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *GrievanceRepository) Update(ctx context.Context, g *grievanceDatamodel.Grievance) error {
	result := r.db.WithContext(ctx).Model(&grievanceDatamodel.Grievance{}).
		Where("id = ?", g.ID).
		Updates(map[string]interface{}{
			"department_id": g.DepartmentID,
			"assigned_to":   g.AssignedTo,
			"status":        g.Status,
			"resolved_by":   g.ResolvedBy,
			"resolved_at":   g.ResolvedAt,
			"updated_at":    g.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrGrievanceNotFound
	}
	return nil
}

func (r *GrievanceRepository) GetByID(ctx context.Context, id int64) (*grievanceDatamodel.Grievance, error) {
	var g grievanceDatamodel.Grievance
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrGrievanceNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *GrievanceRepository) GetByTicketID(ctx context.Context, ticketID string) (*grievanceDatamodel.Grievance, error) {
	var g grievanceDatamodel.Grievance
	err := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrGrievanceNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *GrievanceRepository) List(ctx context.Context, scope grievance.Scope, filter grievance.Filter, params pagination.Params) ([]*grievanceDatamodel.Grievance, int64, error) {
	query := r.db.WithContext(ctx).Model(&grievanceDatamodel.Grievance{})

	// visibility window first
	if scope.UserID != nil {
		query = query.Where("user_id = ?", *scope.UserID)
	}
	if scope.AssigneeID != nil {
		query = query.Where("assigned_to = ?", *scope.AssigneeID)
	}
	if scope.DepartmentID != nil {
		query = query.Where("department_id = ?", *scope.DepartmentID)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DepartmentID != nil {
		query = query.Where("department_id = ?", *filter.DepartmentID)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	if params.Search != "" {
		pattern := params.SearchPattern()
		query = query.Where(`(LOWER(content) LIKE ? ESCAPE '\' OR LOWER(ticket_id) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*grievanceDatamodel.Grievance
	err := params.Apply(query, sortColumns, "created_at").Find(&rows).Error
	return rows, total, err
}

func (r *GrievanceRepository) AddHistory(ctx context.Context, h *grievanceDatamodel.StatusHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *GrievanceRepository) History(ctx context.Context, grievanceID int64) ([]*grievanceDatamodel.StatusHistory, error) {
	var rows []*grievanceDatamodel.StatusHistory
	err := r.db.WithContext(ctx).
		Where("grievance_id = ?", grievanceID).
		Order("changed_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *GrievanceRepository) AddAttachment(ctx context.Context, a *grievanceDatamodel.Attachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *GrievanceRepository) GetAttachment(ctx context.Context, id int64) (*grievanceDatamodel.Attachment, error) {
	var a grievanceDatamodel.Attachment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrAttachmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GrievanceRepository) Attachments(ctx context.Context, grievanceIDs ...int64) ([]*grievanceDatamodel.Attachment, error) {
	var rows []*grievanceDatamodel.Attachment
	if len(grievanceIDs) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Where("grievance_id IN ?", grievanceIDs).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *GrievanceRepository) PendingUnassigned(ctx context.Context) ([]*grievanceDatamodel.Grievance, error) {
	var rows []*grievanceDatamodel.Grievance
	err := r.db.WithContext(ctx).
		Where("status = ?", grievance.StatusPending).
		Where("assigned_to IS NULL").
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *GrievanceRepository) ActiveEmployees(ctx context.Context) ([]*userDatamodel.User, error) {
	var rows []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("role = ?", role.Employee).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *GrievanceRepository) GetUser(ctx context.Context, id int64) (*userDatamodel.User, error) {
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
