package dto

import "time"

// LoginRequest accepts either JSON or form-encoded credentials.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// UserResponse is the authenticated staff identity.
type UserResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}
