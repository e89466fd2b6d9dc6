package postgres

import (
	"context"

	"github.com/frahmantamala/grievance-management/internal/comment"
	"github.com/frahmantamala/grievance-management/internal/core/common/pagination"
	commentDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/comment"
	"gorm.io/gorm"
)

// comments only sort by creation time
var sortColumns = map[string]string{
	"created_at": "created_at",
}

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) comment.RepositoryAPI {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, c *commentDatamodel.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CommentRepository) ListByGrievance(ctx context.Context, grievanceID int64, params pagination.Params) ([]*commentDatamodel.Comment, int64, error) {
	query := r.db.WithContext(ctx).Model(&commentDatamodel.Comment{}).
		Where("grievance_id = ?", grievanceID)
	if params.Search != "" {
		query = query.Where(`LOWER(content) LIKE ? ESCAPE '\'`, params.SearchPattern())
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*commentDatamodel.Comment
	err := params.Apply(query, sortColumns, "created_at").Find(&rows).Error
	return rows, total, err
}
