package user

import (
	"time"

	"github.com/frahmantamala/grievance-management/internal/auth"
	userDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/grievance-management/internal/core/role"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         role.Role `json:"role"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// View is one of the two user projections returned to clients.
type View interface {
	userView()
}

type Full struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Role         role.Role `json:"role"`
	DepartmentID *int64    `json:"department_id"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Limited struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func (Full) userView()    {}
func (Limited) userView() {}

func (u *User) Full() Full {
	return Full{
		ID:           u.ID,
		Email:        u.Email,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (u *User) Limited() Limited {
	return Limited{ID: u.ID, Email: u.Email}
}

// ProjectFor picks the projection actor is entitled to. Plain users only
// ever get the limited view of other accounts.
func ProjectFor(actor *auth.Actor, u *User) View {
	if actor.ID == u.ID {
		return u.Full()
	}
	if actor.Role == role.User {
		return u.Limited()
	}
	return u.Full()
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
