package comment

import "time"

type Comment struct {
	ID          int64     `gorm:"primaryKey"`
	GrievanceID int64     `gorm:"column:grievance_id;index;not null"`
	AuthorID    int64     `gorm:"column:author_id;not null"`
	Content     string    `gorm:"column:content;type:text;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Comment) TableName() string {
	return "comments"
}
