package tokens

import (
	"github.com/golang-jwt/jwt/v5"
)

type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Identity is the set of identity facts carried by every session token.
type Identity struct {
	UserID       uint
	Email        string
	RoleID       uint
	DepartmentID *uint
}

type Claims struct {
	UserID       uint   `json:"id"`
	Email        string `json:"email"`
	RoleID       uint   `json:"role_id"`
	DepartmentID *uint  `json:"department_id"`
	Type         Type   `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{
		UserID:       c.UserID,
		Email:        c.Email,
		RoleID:       c.RoleID,
		DepartmentID: c.DepartmentID,
	}
}
