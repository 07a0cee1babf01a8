package hospital

import (
	"time"

	"github.com/google/uuid"
)

// Hospital maps to the hospitals table. (Name, City) pairs are unique so two
// campuses of the same network stay distinguishable.
type Hospital struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	City      string    `db:"city" json:"city"`
	State     string    `db:"state" json:"state"`
	ZipCode   string    `db:"zip_code" json:"zip_code"`
	Phone     string    `db:"phone" json:"phone"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Website   *string   `db:"website" json:"website,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StaffMember is the slim user view attached to a hospital record.
type StaffMember struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
	Role string    `db:"role" json:"role"`
}

// HospitalWithStaff is the directory detail view.
type HospitalWithStaff struct {
	*Hospital
	Staff []*StaffMember `json:"staff"`
}

// UpdateInput carries the optional fields of a partial hospital update.
type UpdateInput struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	State   *string `json:"state,omitempty"`
	ZipCode *string `json:"zip_code,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Website *string `json:"website,omitempty"`
}
