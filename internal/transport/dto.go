package transport

import (
	"time"

	"github.com/Skotchmaster/mentor_portal/internal/models"
	"github.com/Skotchmaster/mentor_portal/pkg/rbac"
)

// UserDTO is the public view of an identity. It never carries the hash.
type UserDTO struct {
	ID           uint      `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	RoleID       uint      `json:"roleId"`
	Role         string    `json:"role"`
	DepartmentID *uint     `json:"departmentId"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

func NewUserDTO(u *models.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		RoleID:       u.RoleID,
		Role:         u.Role().String(),
		DepartmentID: u.DepartmentID,
		Status:       string(u.Status),
		CreatedAt:    u.CreatedAt,
	}
}

type NavigationDTO struct {
	Role         string            `json:"role"`
	Routes       []rbac.Route      `json:"routes"`
	Capabilities []rbac.Capability `json:"capabilities"`
}

// Envelope is the success shape shared by every JSON endpoint.
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type ErrorEnvelope struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}
