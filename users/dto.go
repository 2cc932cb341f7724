// Package users implements user account management: registration, login, and
// CRUD over user records. This file defines the request and response payloads
// of the users API.
package users

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Name     string `json:"name" example:"Jane Doe"`
	Password string `json:"password" example:"strongpassword123"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"strongpassword123"`
}

// UserResponse is the client-facing view of a user record. It deliberately
// carries no password field of any kind.
type UserResponse struct {
	ID    int64  `json:"id" example:"1"`
	Email string `json:"email" example:"user@example.com"`
	Name  string `json:"name" example:"Jane Doe"`
}

// TokenResponse is returned on successful registration or login.
type TokenResponse struct {
	AccessToken string       `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType   string       `json:"token_type" example:"bearer"`
	ExpiresIn   int64        `json:"expires_in" example:"86400"` // seconds until the token expires
	User        UserResponse `json:"user"`
}

// UpdateUserRequest represents a partial update of a user record. Pointer
// fields distinguish "not provided" from an explicit value; the password is
// re-hashed only when a new one is supplied.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty" example:"new@example.com"`
	Name     *string `json:"name,omitempty" example:"Jane D."`
	Password *string `json:"password,omitempty" example:"newpassword123"`
}

// MessageResponse is a simple confirmation payload.
type MessageResponse struct {
	Message string `json:"message" example:"User deleted successfully"`
}
