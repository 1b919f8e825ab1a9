package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of roles a principal may carry.
type Role string

const (
	RoleScout         Role = "SCOUT"
	RoleParent        Role = "PARENT"
	RoleTroopLeader   Role = "TROOP_LEADER"
	RoleCouncilAdmin  Role = "COUNCIL_ADMIN"
	RoleNationalAdmin Role = "NATIONAL_ADMIN"
)

// Roles lists every valid role.
var Roles = []Role{RoleScout, RoleParent, RoleTroopLeader, RoleCouncilAdmin, RoleNationalAdmin}

// ParseRole returns the role named by s, or false if s is not a known role.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// IsAdmin reports whether the role may use council or national administration.
func (r Role) IsAdmin() bool {
	return r == RoleCouncilAdmin || r == RoleNationalAdmin
}

// User is a registered account. A scout's TroopID is nil until assigned.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"` // bcrypt hash, never serialized
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	PhoneNumber   string    `json:"phoneNumber"`
	Role          Role      `json:"role"`
	CouncilID     *string   `json:"councilId"`
	TroopID       *string   `json:"troopId"`
	IsActive      bool      `json:"isActive"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreateUserRequest is the validated input for creating a user.
type CreateUserRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"omitempty,min=8"`
	FirstName   string  `json:"firstName" validate:"required,max=100"`
	LastName    string  `json:"lastName" validate:"required,max=100"`
	PhoneNumber string  `json:"phoneNumber" validate:"omitempty,max=32"`
	Role        Role    `json:"role" validate:"required,oneof=SCOUT PARENT TROOP_LEADER COUNCIL_ADMIN NATIONAL_ADMIN"`
	CouncilID   *string `json:"councilId"`
	TroopID     *string `json:"troopId"`
}

// UpdateUserRequest replaces the mutable profile fields of a user.
type UpdateUserRequest struct {
	Email         string  `json:"email" validate:"required,email"`
	FirstName     string  `json:"firstName" validate:"required,max=100"`
	LastName      string  `json:"lastName" validate:"required,max=100"`
	PhoneNumber   string  `json:"phoneNumber" validate:"omitempty,max=32"`
	Role          Role    `json:"role" validate:"required,oneof=SCOUT PARENT TROOP_LEADER COUNCIL_ADMIN NATIONAL_ADMIN"`
	CouncilID     *string `json:"councilId"`
	IsActive      *bool   `json:"isActive"`
	EmailVerified *bool   `json:"emailVerified"`
}

// LoginRequest is the validated input for logging in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// LoginResponse is the API response after successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// NewUserID generates a new UUID for a user.
func NewUserID() string {
	return uuid.New().String()
}
