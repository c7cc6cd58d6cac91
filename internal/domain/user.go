package domain

import "time"

// User roles. Surveyors submit issues, engineers resolve them, admins route.
const (
	RoleSurveyor = "surveyor"
	RoleEngineer = "engineer"
	RoleAdmin    = "admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleSurveyor || role == RoleEngineer || role == RoleAdmin
}

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Username     string    `json:"username" dynamodbav:"username"`
	Email        string    `json:"email" dynamodbav:"email"`
	Phone        *string   `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Role         string    `json:"role" dynamodbav:"role"`
	Enable       int       `json:"enable" dynamodbav:"enable"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateUserRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=30"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
