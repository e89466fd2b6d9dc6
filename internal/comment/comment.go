package comment

import (
	"time"

	commentDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/comment"
)

type Comment struct {
	ID          int64     `json:"id"`
	GrievanceID int64     `json:"grievance_id"`
	AuthorID    int64     `json:"author_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewComment(grievanceID, authorID int64, content string) *Comment {
	return &Comment{
		GrievanceID: grievanceID,
		AuthorID:    authorID,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
}

func ToDataModel(c *Comment) *commentDatamodel.Comment {
	return &commentDatamodel.Comment{
		ID:          c.ID,
		GrievanceID: c.GrievanceID,
		AuthorID:    c.AuthorID,
		Content:     c.Content,
		CreatedAt:   c.CreatedAt,
	}
}

func FromDataModel(c *commentDatamodel.Comment) *Comment {
	return &Comment{
		ID:          c.ID,
		GrievanceID: c.GrievanceID,
		AuthorID:    c.AuthorID,
		Content:     c.Content,
		CreatedAt:   c.CreatedAt,
	}
}
