package types

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is the cached projection of subscription state. It is written by
// the subscription lifecycle and read by authorization checks.
type UserRole string

const (
	// RoleCliente is the standard customer role.
	RoleCliente UserRole = "Cliente"
	// RoleMemberships marks premium/admin-equivalent accounts.
	RoleMemberships UserRole = "memberships"
)

// User is the directory record. PasswordHash never serializes.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        *string   `json:"phone,omitempty"`
	Role         UserRole  `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the account has the premium/admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleMemberships
}

// IsCustomer reports whether the account has the standard role.
func (u *User) IsCustomer() bool {
	return u.Role == RoleCliente
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	return u.Name + " " + u.LastName
}

// CreateUserData carries new-account fields; Role defaults to Cliente.
type CreateUserData struct {
	Name     string
	LastName string
	Email    string
	Password string
	Phone    *string
}

// UpdateUserParams defines the fields allowed for profile updates.
// Pointers allow partial updates.
type UpdateUserParams struct {
	Name     *string `json:"name,omitempty"`
	LastName *string `json:"last_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}
