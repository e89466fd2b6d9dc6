package department

type CreateDepartmentDTO struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

// Filter narrows a department listing. A nil ID lists every department.
type Filter struct {
	ID *int64
}
