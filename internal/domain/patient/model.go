package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table. A patient row shares its primary key
// with the user account created alongside it.
type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
	MedicalID   string    `db:"medical_id" json:"medical_id"`
	Allergies   *string   `db:"allergies" json:"allergies,omitempty"`
	BloodType   *string   `db:"blood_type" json:"blood_type,omitempty"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterInput is the compound sign-up payload: account credentials plus the
// clinical identity created with them.
type RegisterInput struct {
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	MedicalID   string    `json:"medical_id"`
	Email       string    `json:"email"`
	Password    string    `json:"password"`
	Username    string    `json:"username"`
	Allergies   *string   `json:"allergies,omitempty"`
	BloodType   *string   `json:"blood_type,omitempty"`
}

// UpdateInput carries the optional fields of a partial patient update.
type UpdateInput struct {
	FirstName   *string    `json:"first_name,omitempty"`
	LastName    *string    `json:"last_name,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	MedicalID   *string    `json:"medical_id,omitempty"`
	Allergies   *string    `json:"allergies,omitempty"`
	BloodType   *string    `json:"blood_type,omitempty"`
}
