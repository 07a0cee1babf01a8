package icu

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clearia/clearia/internal/platform/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// -- Admissions --

func (s *Service) CreateAdmission(ctx context.Context, a *Admission) error {
	if a.PatientID == uuid.Nil {
		return apperr.New(apperr.Validation, "patient_id is required")
	}
	if a.StaffID == uuid.Nil {
		return apperr.New(apperr.Validation, "staff_id is required")
	}
	if a.BedNumber <= 0 {
		return apperr.New(apperr.Validation, "bed_number must be positive")
	}
	if a.AdmissionDate.IsZero() {
		a.AdmissionDate = time.Now().UTC()
	}
	return s.repo.CreateAdmission(ctx, a)
}

func (s *Service) GetAdmission(ctx context.Context, id uuid.UUID) (*Admission, error) {
	a, err := s.repo.GetAdmission(ctx, id)
	if err != nil {
		if ErrNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "admission not found")
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) UpdateAdmission(ctx context.Context, id uuid.UUID, in UpdateAdmissionInput) (*Admission, error) {
	a, err := s.GetAdmission(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.BedNumber != nil {
		if *in.BedNumber <= 0 {
			return nil, apperr.New(apperr.Validation, "bed_number must be positive")
		}
		a.BedNumber = *in.BedNumber
	}
	if in.AdmissionDate != nil {
		a.AdmissionDate = *in.AdmissionDate
	}
	if in.StaffID != nil {
		a.StaffID = *in.StaffID
	}
	if a.DischargeDate != nil && a.DischargeDate.Before(a.AdmissionDate) {
		return nil, apperr.New(apperr.Validation, "admission date cannot pass the discharge date")
	}

	if err := s.repo.UpdateAdmission(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Discharge closes an admission. Calling it again overwrites the discharge
// date rather than failing, so a corrected date can be recorded the same way.
func (s *Service) Discharge(ctx context.Context, id uuid.UUID, date *time.Time) (*Admission, error) {
	a, err := s.GetAdmission(ctx, id)
	if err != nil {
		return nil, err
	}

	when := time.Now().UTC()
	if date != nil {
		when = *date
	}
	if when.Before(a.AdmissionDate) {
		return nil, apperr.New(apperr.Validation, "discharge date cannot precede the admission date")
	}

	a.DischargeDate = &when
	if err := s.repo.UpdateAdmission(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) DeleteAdmission(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetAdmission(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteAdmission(ctx, id)
}

func (s *Service) ListAdmissions(ctx context.Context, limit, offset int) ([]*Admission, int, error) {
	return s.repo.ListAdmissions(ctx, limit, offset)
}

func (s *Service) ListAdmissionsByPatient(ctx context.Context, patientID uuid.UUID) ([]*Admission, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// CurrentAdmissions returns every occupied bed with its latest status update.
func (s *Service) CurrentAdmissions(ctx context.Context) ([]*AdmissionWithStatus, error) {
	return s.repo.CurrentAdmissions(ctx)
}

// ActiveAdmissionsByStaff returns the open admissions a staff member is
// responsible for.
func (s *Service) ActiveAdmissionsByStaff(ctx context.Context, staffID uuid.UUID) ([]*Admission, error) {
	return s.repo.ActiveByStaff(ctx, staffID)
}

// CurrentStatus resolves a patient's active admission and its latest status
// update. Missing rows are reported through the result message, never as an
// error, so dashboard views render with partial data. Storage failures still
// propagate as errors.
func (s *Service) CurrentStatus(ctx context.Context, patientID uuid.UUID) (*CurrentStatusResult, error) {
	a, err := s.repo.ActiveByPatient(ctx, patientID)
	if err != nil {
		if ErrNotFound(err) {
			return &CurrentStatusResult{Message: "no active admission for patient"}, nil
		}
		return nil, err
	}

	latest, err := s.repo.LatestByAdmission(ctx, a.ID)
	if err != nil {
		if ErrNotFound(err) {
			return &CurrentStatusResult{
				Admission: a,
				Message:   "no status recorded for current admission",
			}, nil
		}
		return nil, err
	}
	return &CurrentStatusResult{Admission: a, LatestStatus: latest}, nil
}

// -- Status updates --

func (s *Service) CreateStatusUpdate(ctx context.Context, su *StatusUpdate) error {
	if su.AdmissionID == uuid.Nil {
		return apperr.New(apperr.Validation, "admission_id is required")
	}
	if su.StaffID == uuid.Nil {
		return apperr.New(apperr.Validation, "staff_id is required")
	}
	if !ValidStatus(su.Status) {
		return apperr.Newf(apperr.Validation, "invalid status: %s", su.Status)
	}
	if _, err := s.GetAdmission(ctx, su.AdmissionID); err != nil {
		return err
	}
	if su.Timestamp.IsZero() {
		su.Timestamp = time.Now().UTC()
	}
	return s.repo.CreateStatusUpdate(ctx, su)
}

func (s *Service) GetStatusUpdate(ctx context.Context, id uuid.UUID) (*StatusUpdate, error) {
	su, err := s.repo.GetStatusUpdate(ctx, id)
	if err != nil {
		if ErrNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "status update not found")
		}
		return nil, err
	}
	return su, nil
}

func (s *Service) UpdateStatusUpdate(ctx context.Context, id uuid.UUID, in UpdateStatusInput) (*StatusUpdate, error) {
	su, err := s.GetStatusUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Status != nil {
		if !ValidStatus(*in.Status) {
			return nil, apperr.Newf(apperr.Validation, "invalid status: %s", *in.Status)
		}
		su.Status = *in.Status
	}
	if in.Notes != nil {
		su.Notes = in.Notes
	}
	if in.Timestamp != nil {
		su.Timestamp = *in.Timestamp
	}

	if err := s.repo.UpdateStatusUpdate(ctx, su); err != nil {
		return nil, err
	}
	return su, nil
}

func (s *Service) DeleteStatusUpdate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetStatusUpdate(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteStatusUpdate(ctx, id)
}

func (s *Service) ListStatusUpdates(ctx context.Context, limit, offset int) ([]*StatusUpdate, int, error) {
	return s.repo.ListStatusUpdates(ctx, limit, offset)
}

func (s *Service) ListStatusUpdatesByAdmission(ctx context.Context, admissionID uuid.UUID) ([]*StatusUpdate, error) {
	return s.repo.ListByAdmission(ctx, admissionID)
}

// StatusCounts tallies status updates per condition value over an optional
// time window. Every condition value appears in the result, zero or not.
func (s *Service) StatusCounts(ctx context.Context, from, to *time.Time) (map[string]int, error) {
	counts, err := s.repo.StatusCounts(ctx, from, to)
	if err != nil {
		return nil, err
	}
	result := make(map[string]int, len(PatientStatuses))
	for _, status := range PatientStatuses {
		result[status] = counts[status]
	}
	return result, nil
}
