package comment

type CreateCommentDTO struct {
	GrievanceID int64  `json:"grievance_id" validate:"required,gt=0"`
	Content     string `json:"content"`
}
