package icu

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Admissions
	CreateAdmission(ctx context.Context, a *Admission) error
	GetAdmission(ctx context.Context, id uuid.UUID) (*Admission, error)
	UpdateAdmission(ctx context.Context, a *Admission) error
	DeleteAdmission(ctx context.Context, id uuid.UUID) error
	ListAdmissions(ctx context.Context, limit, offset int) ([]*Admission, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Admission, error)
	ActiveByPatient(ctx context.Context, patientID uuid.UUID) (*Admission, error)
	CurrentAdmissions(ctx context.Context) ([]*AdmissionWithStatus, error)
	ActiveByStaff(ctx context.Context, staffID uuid.UUID) ([]*Admission, error)

	// Status updates
	CreateStatusUpdate(ctx context.Context, su *StatusUpdate) error
	GetStatusUpdate(ctx context.Context, id uuid.UUID) (*StatusUpdate, error)
	UpdateStatusUpdate(ctx context.Context, su *StatusUpdate) error
	DeleteStatusUpdate(ctx context.Context, id uuid.UUID) error
	ListStatusUpdates(ctx context.Context, limit, offset int) ([]*StatusUpdate, int, error)
	ListByAdmission(ctx context.Context, admissionID uuid.UUID) ([]*StatusUpdate, error)
	LatestByAdmission(ctx context.Context, admissionID uuid.UUID) (*StatusUpdate, error)
	StatusCounts(ctx context.Context, from, to *time.Time) (map[string]int, error)
}
