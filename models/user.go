package models

import (
	"time"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleOwner UserRole = "owner"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:254;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         UserRole  `json:"role" gorm:"size:20;not null;default:'owner'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the authenticated identity a request acts as. It is passed
// explicitly into every mutating operation.
type Principal struct {
	UserID   uint     `json:"user_id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
}

// PrincipalOf builds the principal for a stored user.
func PrincipalOf(u *User) Principal {
	return Principal{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// IsOwnerOf reports whether p owns e. Ownerless legacy rows belong to nobody.
func (p Principal) IsOwnerOf(e *Establishment) bool {
	return e != nil && e.OwnerID != nil && p.UserID != 0 && *e.OwnerID == p.UserID
}
