package treatment

import (
	"time"

	"github.com/google/uuid"
)

// Treatment statuses. No transition rules apply; any value may follow any
// other.
const (
	StatusScheduled = "SCHEDULED"
	StatusOngoing   = "ONGOING"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// ValidStatus reports whether status is one of the defined treatment
// statuses.
func ValidStatus(status string) bool {
	switch status {
	case StatusScheduled, StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Treatment maps to the treatments table. Hospital is free text, not a
// directory reference.
type Treatment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Hospital  string    `db:"hospital" json:"hospital"`
	Date      time.Time `db:"date" json:"date"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// History maps to the treatment_history table. Session numbers order the
// entries; the latest entry is the one with the highest session.
type History struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	TreatmentID           uuid.UUID  `db:"treatment_id" json:"treatment_id"`
	Session               int        `db:"session" json:"session"`
	Date                  time.Time  `db:"date" json:"date"`
	Notes                 string     `db:"notes" json:"notes"`
	Progress              string     `db:"progress" json:"progress"`
	Adjustments           string     `db:"adjustments" json:"adjustments"`
	SideEffects           string     `db:"side_effects" json:"side_effects"`
	PrescribedMedications *string    `db:"prescribed_medications" json:"prescribed_medications,omitempty"`
	NextReview            *time.Time `db:"next_review" json:"next_review,omitempty"`
	DoctorID              uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
}

// Filter narrows treatment listings.
type Filter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *string
}

// UpdateInput carries the optional fields of a partial treatment update.
type UpdateInput struct {
	Name     *string    `json:"name,omitempty"`
	Hospital *string    `json:"hospital,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
	Status   *string    `json:"status,omitempty"`
}

// PatientTreatment is a treatment with its doctor summary and session
// history, as shown on a patient's record.
type PatientTreatment struct {
	*Treatment
	DoctorName string     `json:"doctor_name"`
	History    []*History `json:"history"`
}

// HistoryResult is the ownership-checked history view. Denied or missing
// treatments produce an Error string instead of a failure so callers render
// a uniform shape.
type HistoryResult struct {
	History []*History `json:"history"`
	Message string     `json:"message,omitempty"`
	Error   string     `json:"error,omitempty"`
}
