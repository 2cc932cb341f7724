package auth

import "time"

// User represents a user record as stored in the database and used within
// business logic. The password hash is excluded from JSON serialization so it
// can never reach a client-facing boundary by accident.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	HashedPassword string    `json:"-"` // never serialized outward
	CreatedAt      time.Time `json:"created_at"`
}
