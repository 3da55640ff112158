package rbac

import "context"

// Principal is the authenticated caller produced by the request gate.
type Principal struct {
	ID           uint
	Email        string
	Role         Role
	DepartmentID *uint
}

func (p Principal) Can(c Capability) bool {
	return HasCapability(p.Role, c)
}

// SameDepartment reports whether the principal and dept refer to the same
// non-nil department.
func (p Principal) SameDepartment(dept *uint) bool {
	return p.DepartmentID != nil && dept != nil && *p.DepartmentID == *dept
}

type principalKey struct{}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
