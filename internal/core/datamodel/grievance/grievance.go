package grievance

import "time"

type Grievance struct {
	ID           int64      `gorm:"primaryKey"`
	TicketID     string     `gorm:"column:ticket_id;type:varchar(36);uniqueIndex;not null"`
	UserID       int64      `gorm:"column:user_id;index;not null"`
	DepartmentID int64      `gorm:"column:department_id;index;not null"`
	Content      string     `gorm:"column:content;type:text;not null"`
	AssignedTo   *int64     `gorm:"column:assigned_to;index"`
	Status       string     `gorm:"column:status;type:varchar(32);index;not null"`
	ResolvedBy   *int64     `gorm:"column:resolved_by"`
	ResolvedAt   *time.Time `gorm:"column:resolved_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Grievance) TableName() string {
	return "grievances"
}

// StatusHistory rows are append-only.
type StatusHistory struct {
	ID          int64     `gorm:"primaryKey"`
	GrievanceID int64     `gorm:"column:grievance_id;index;not null"`
	Status      string    `gorm:"column:status;type:varchar(128);not null"`
	ChangedByID int64     `gorm:"column:changed_by_id;not null"`
	ChangedAt   time.Time `gorm:"column:changed_at;autoCreateTime"`
	Notes       *string   `gorm:"column:notes"`
}

func (StatusHistory) TableName() string {
	return "grievance_status_history"
}

type Attachment struct {
	ID          int64     `gorm:"primaryKey"`
	GrievanceID int64     `gorm:"column:grievance_id;index;not null"`
	FilePath    string    `gorm:"column:file_path;not null"`
	FileName    string    `gorm:"column:file_name;not null"`
	FileType    string    `gorm:"column:file_type"`
	FileSize    int64     `gorm:"column:file_size;not null"`
	UploadedAt  time.Time `gorm:"column:uploaded_at;autoCreateTime"`
}

func (Attachment) TableName() string {
	return "grievance_attachments"
}
