package treatment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearia/clearia/internal/platform/apperr"
	"github.com/clearia/clearia/internal/platform/auth"
)

const deniedMessage = "Treatment not found or access denied"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateTreatment(ctx context.Context, t *Treatment) error {
	if strings.TrimSpace(t.Name) == "" {
		return apperr.New(apperr.Validation, "name is required")
	}
	if t.PatientID == uuid.Nil {
		return apperr.New(apperr.Validation, "patient_id is required")
	}
	if t.DoctorID == uuid.Nil {
		return apperr.New(apperr.Validation, "doctor_id is required")
	}
	if t.Status == "" {
		t.Status = StatusScheduled
	}
	if !ValidStatus(t.Status) {
		return apperr.Newf(apperr.Validation, "invalid status: %s", t.Status)
	}
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}

	if err := s.repo.Create(ctx, t); err != nil {
		if IsForeignKeyViolation(err) {
			return apperr.New(apperr.Validation, "patient or doctor does not exist")
		}
		return err
	}
	return nil
}

func (s *Service) GetTreatment(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if ErrNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "treatment not found")
		}
		return nil, err
	}
	return t, nil
}

func (s *Service) UpdateTreatment(ctx context.Context, id uuid.UUID, in UpdateInput) (*Treatment, error) {
	t, err := s.GetTreatment(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperr.New(apperr.Validation, "name is required")
		}
		t.Name = *in.Name
	}
	if in.Hospital != nil {
		t.Hospital = *in.Hospital
	}
	if in.Date != nil {
		t.Date = *in.Date
	}
	if in.Status != nil {
		if !ValidStatus(*in.Status) {
			return nil, apperr.Newf(apperr.Validation, "invalid status: %s", *in.Status)
		}
		t.Status = *in.Status
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateStatus sets the treatment status. Any defined value may follow any
// other.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Treatment, error) {
	if !ValidStatus(status) {
		return nil, apperr.Newf(apperr.Validation, "invalid status: %s", status)
	}
	return s.UpdateTreatment(ctx, id, UpdateInput{Status: &status})
}

func (s *Service) DeleteTreatment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetTreatment(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListTreatments(ctx context.Context, f Filter, limit, offset int) ([]*Treatment, int, error) {
	if f.Status != nil && !ValidStatus(*f.Status) {
		return nil, 0, apperr.Newf(apperr.Validation, "invalid status: %s", *f.Status)
	}
	return s.repo.List(ctx, f, limit, offset)
}

// ListByPatient returns the patient's treatments with doctor names and
// session history.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PatientTreatment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) AddHistory(ctx context.Context, h *History) error {
	if h.TreatmentID == uuid.Nil {
		return apperr.New(apperr.Validation, "treatment_id is required")
	}
	if h.DoctorID == uuid.Nil {
		return apperr.New(apperr.Validation, "doctor_id is required")
	}
	if _, err := s.GetTreatment(ctx, h.TreatmentID); err != nil {
		return err
	}
	if h.Session <= 0 {
		max, err := s.repo.MaxSession(ctx, h.TreatmentID)
		if err != nil {
			return err
		}
		h.Session = max + 1
	}
	if h.Date.IsZero() {
		h.Date = time.Now().UTC()
	}
	if err := s.repo.AddHistory(ctx, h); err != nil {
		if IsUniqueViolation(err) {
			return apperr.Newf(apperr.Conflict, "session %d already recorded for this treatment", h.Session)
		}
		return err
	}
	return nil
}

// HistoryByTreatment returns session history for a treatment, ordered by
// session ascending. Access is ownership checked: staff may read any
// treatment, a patient only their own. Denied or missing treatments yield a
// result with an error string rather than a failure, so dashboard views get
// a uniform shape regardless of outcome.
func (s *Service) HistoryByTreatment(ctx context.Context, caller auth.Identity, treatmentID uuid.UUID) (*HistoryResult, error) {
	t, err := s.repo.GetByID(ctx, treatmentID)
	if err != nil {
		if ErrNotFound(err) {
			return &HistoryResult{Error: deniedMessage}, nil
		}
		return nil, err
	}

	if !caller.IsStaff() && caller.UserID != t.PatientID {
		return &HistoryResult{Error: deniedMessage}, nil
	}

	history, err := s.repo.HistoryByTreatment(ctx, treatmentID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return &HistoryResult{Message: "no history recorded for this treatment"}, nil
	}
	return &HistoryResult{History: history}, nil
}

// LatestSession returns the history entry with the highest session number,
// or nil when the treatment has no history the caller may see.
func (s *Service) LatestSession(ctx context.Context, caller auth.Identity, treatmentID uuid.UUID) (*History, error) {
	result, err := s.HistoryByTreatment(ctx, caller, treatmentID)
	if err != nil {
		return nil, err
	}
	if len(result.History) == 0 {
		return nil, nil
	}
	return result.History[len(result.History)-1], nil
}
