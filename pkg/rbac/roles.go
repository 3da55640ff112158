package rbac

import "fmt"

// Role is the authorization level of an identity. Lower values rank higher.
type Role uint

const (
	SuperAdmin Role = iota + 1
	InstitutionalAdmin
	DepartmentAdmin
	Mentor
	Student
)

var AllRoles = []Role{SuperAdmin, InstitutionalAdmin, DepartmentAdmin, Mentor, Student}

var roleNames = map[Role]string{
	SuperAdmin:         "super_admin",
	InstitutionalAdmin: "institutional_admin",
	DepartmentAdmin:    "department_admin",
	Mentor:             "mentor",
	Student:            "student",
}

func (r Role) Valid() bool {
	return r >= SuperAdmin && r <= Student
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint(r))
}

// ParseRole converts a stored role id into a Role.
func ParseRole(id uint) (Role, error) {
	r := Role(id)
	if !r.Valid() {
		return 0, fmt.Errorf("unknown role id %d", id)
	}
	return r, nil
}

// Outranks reports whether r sits strictly above other in the hierarchy.
func (r Role) Outranks(other Role) bool {
	return r.Valid() && other.Valid() && r < other
}

// CanGrant reports whether an actor holding role actor may assign target
// to another identity. SuperAdmin may assign any role, everyone else only
// roles strictly below their own.
func CanGrant(actor, target Role) bool {
	if !actor.Valid() || !target.Valid() {
		return false
	}
	if actor == SuperAdmin {
		return true
	}
	return actor.Outranks(target)
}
