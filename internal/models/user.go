package models

import "time"

// UserRole enumerates the backend account roles.
type UserRole string

const (
	RoleMember       UserRole = "member"
	RoleTrainer      UserRole = "trainer"
	RoleReceptionist UserRole = "receptionist"
	RoleAdmin        UserRole = "admin"
)

// Valid reports whether the role is one the backend issues.
func (r UserRole) Valid() bool {
	switch r {
	case RoleMember, RoleTrainer, RoleReceptionist, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated user profile as served by GET /profile.
type Identity struct {
	ID       int64      `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Phone    string     `json:"phone"`
	Role     UserRole   `json:"role"`
	Avatar   string     `json:"avatar,omitempty"`
	Active   bool       `json:"active"`
	JoinedAt *time.Time `json:"join_date,omitempty"`
}

// RegisterRequest creates a new member account.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3"`
	Password  string `json:"password" validate:"required,min=6"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}
