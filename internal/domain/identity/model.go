package identity

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the users table. The password hash never leaves the API.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	HospitalID   *uuid.UUID `db:"hospital_id" json:"hospital_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CreateUserInput carries the fields accepted when registering a user.
type CreateUserInput struct {
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Username   string     `json:"username"`
	Password   string     `json:"password"`
	Role       string     `json:"role"`
	HospitalID *uuid.UUID `json:"hospital_id,omitempty"`
}

// UpdateUserInput carries the optional fields of a partial user update.
type UpdateUserInput struct {
	Name       *string    `json:"name,omitempty"`
	Email      *string    `json:"email,omitempty"`
	Username   *string    `json:"username,omitempty"`
	Password   *string    `json:"password,omitempty"`
	Role       *string    `json:"role,omitempty"`
	HospitalID *uuid.UUID `json:"hospital_id,omitempty"`
}
