package icu

import (
	"time"

	"github.com/google/uuid"
)

// Patient condition values recorded by status updates.
const (
	StatusCritical  = "CRITICAL"
	StatusStable    = "STABLE"
	StatusImproving = "IMPROVING"
	StatusRecovered = "RECOVERED"
	StatusDeceased  = "DECEASED"
)

// PatientStatuses lists every condition value in display order.
var PatientStatuses = []string{StatusCritical, StatusStable, StatusImproving, StatusRecovered, StatusDeceased}

// ValidStatus reports whether status is one of the defined condition values.
func ValidStatus(status string) bool {
	switch status {
	case StatusCritical, StatusStable, StatusImproving, StatusRecovered, StatusDeceased:
		return true
	}
	return false
}

// Admission maps to the icu_admissions table. DischargeDate is nil while the
// patient occupies the bed.
type Admission struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	BedNumber     int        `db:"bed_number" json:"bed_number"`
	AdmissionDate time.Time  `db:"admission_date" json:"admission_date"`
	DischargeDate *time.Time `db:"discharge_date" json:"discharge_date,omitempty"`
	StaffID       uuid.UUID  `db:"staff_id" json:"staff_id"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// StatusUpdate maps to the status_updates table.
type StatusUpdate struct {
	ID          uuid.UUID `db:"id" json:"id"`
	AdmissionID uuid.UUID `db:"admission_id" json:"admission_id"`
	Status      string    `db:"status" json:"status"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
	StaffID     uuid.UUID `db:"staff_id" json:"staff_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AdmissionWithStatus pairs an admission with its most recent status update,
// which may be nil when none has been recorded yet.
type AdmissionWithStatus struct {
	Admission    *Admission    `json:"admission"`
	LatestStatus *StatusUpdate `json:"latest_status"`
}

// CurrentStatusResult is the dashboard view of a patient's situation. Missing
// data is reported through Message instead of an error so aggregate views
// stay renderable.
type CurrentStatusResult struct {
	Admission    *Admission    `json:"admission"`
	LatestStatus *StatusUpdate `json:"latest_status"`
	Message      string        `json:"message,omitempty"`
}

// UpdateAdmissionInput carries the optional fields of a partial admission
// update.
type UpdateAdmissionInput struct {
	BedNumber     *int       `json:"bed_number,omitempty"`
	AdmissionDate *time.Time `json:"admission_date,omitempty"`
	StaffID       *uuid.UUID `json:"staff_id,omitempty"`
}

// UpdateStatusInput carries the optional fields of a partial status-update
// edit.
type UpdateStatusInput struct {
	Status    *string    `json:"status,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}
