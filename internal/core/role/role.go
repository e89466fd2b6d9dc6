package role

import (
	"database/sql/driver"
	"fmt"
)

// Role is an actor's privilege level. The zero value is not a valid role.
type Role string

const (
	User       Role = "user"
	Employee   Role = "employee"
	Admin      Role = "admin"
	SuperAdmin Role = "super_admin"
)

// All lists every role in ascending privilege order.
var All = []Role{User, Employee, Admin, SuperAdmin}

// Rank returns the position of r in the privilege ordering, or -1 for unknown roles.
func (r Role) Rank() int {
	switch r {
	case User:
		return 0
	case Employee:
		return 1
	case Admin:
		return 2
	case SuperAdmin:
		return 3
	default:
		return -1
	}
}

func (r Role) IsValid() bool {
	return r.Rank() >= 0
}

func (r Role) String() string {
	return string(r)
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.IsValid() && r.Rank() >= other.Rank()
}

// IsElevated reports whether r is one of the administrative roles.
func (r Role) IsElevated() bool {
	return r == Admin || r == SuperAdmin
}

// RequiresDepartment reports whether actors holding r must belong to a department.
func (r Role) RequiresDepartment() bool {
	return r == Employee || r == Admin
}

// CanGrant reports whether an actor holding granter may create or promote
// another actor to target. Super admins are the only ones who can grant super_admin.
func CanGrant(granter, target Role) bool {
	if !granter.IsValid() || !target.IsValid() {
		return false
	}
	if target == SuperAdmin && granter != SuperAdmin {
		return false
	}
	return target.Rank() <= granter.Rank()
}

// Parse converts a label into a Role.
func Parse(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Scan implements sql.Scanner so gorm can read the role column directly.
func (r *Role) Scan(value any) error {
	switch v := value.(type) {
	case string:
		*r = Role(v)
	case []byte:
		*r = Role(v)
	case nil:
		*r = ""
	default:
		return fmt.Errorf("cannot scan %T into role", value)
	}
	return nil
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	return string(r), nil
}
