package auth

import (
	"github.com/marketpay/marketpay-backend/internal/users"
)

// RegisterRequest carries a signup submission.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,min=2"`
}

// LoginRequest carries a login submission.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is the payload returned by both register and login.
type AuthResponse struct {
	User  users.UserDTO `json:"user"`
	Token string        `json:"token"`
}
