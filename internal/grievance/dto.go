package grievance

import (
	"io"
	"time"
)

type CreateGrievanceDTO struct {
	DepartmentID int64  `json:"department_id" form:"department_id" validate:"required,gt=0"`
	Content      string `json:"content" form:"content"`
}

// Upload is one file attached to a new grievance.
type Upload struct {
	Name   string
	Reader io.Reader
}

type ResolveDTO struct {
	ResolverID *int64 `query:"resolver_id" validate:"omitempty,gt=0"`
	Solved     bool   `query:"solved"`
}

type TransferDTO struct {
	NewDepartmentID int64   `json:"new_department_id" validate:"required,gt=0"`
	Notes           *string `json:"notes" validate:"omitempty,max=1000"`
}

type CloseDTO struct {
	Notes *string `json:"notes" validate:"omitempty,max=1000"`
}

// Filter holds the user supplied list filters. They narrow the role window,
// never widen it.
type Filter struct {
	Status       string     `query:"status" validate:"omitempty,oneof=pending in_progress solved not_solved closed"`
	DepartmentID *int64     `query:"department_id" validate:"omitempty,gt=0"`
	AssignedTo   *int64     `query:"assigned_to" validate:"omitempty,gt=0"`
	CreatedFrom  *time.Time `query:"created_from"`
	CreatedTo    *time.Time `query:"created_to"`
}

// Scope is the visibility window derived from the actor.
type Scope struct {
	UserID       *int64
	AssigneeID   *int64
	DepartmentID *int64
}
