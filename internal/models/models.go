package models

import (
	"time"

	"github.com/Skotchmaster/mentor_portal/pkg/rbac"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"          json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;size:255"     json:"email"`
	PasswordHash string    `gorm:"not null"                          json:"-"`
	FirstName    string    `gorm:"not null;size:100"                 json:"firstName"`
	LastName     string    `gorm:"not null;size:100"                 json:"lastName"`
	RoleID       uint      `gorm:"not null;index"                    json:"roleId"`
	DepartmentID *uint     `gorm:"index"                             json:"departmentId"`
	Status       Status    `gorm:"not null;default:active;size:16"   json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) Role() rbac.Role {
	return rbac.Role(u.RoleID)
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

func (u *User) Principal() rbac.Principal {
	return rbac.Principal{
		ID:           u.ID,
		Email:        u.Email,
		Role:         u.Role(),
		DepartmentID: u.DepartmentID,
	}
}
