package user

type CreateUserDTO struct {
	Email        string `json:"email" validate:"required,email,max=255"`
	Password     string `json:"password" validate:"required,min=8,max=128"`
	Role         string `json:"role" validate:"required"`
	DepartmentID *int64 `json:"department_id" validate:"omitempty,gt=0"`
	IsActive     *bool  `json:"is_active"`
}

type UpdateRoleDTO struct {
	Role         string `json:"role" validate:"required"`
	DepartmentID *int64 `json:"department_id" validate:"omitempty,gt=0"`
}

// Filter narrows a user listing; zero values mean no restriction.
type Filter struct {
	Role         string
	DepartmentID *int64
}
