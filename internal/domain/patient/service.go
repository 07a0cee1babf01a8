package patient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearia/clearia/internal/domain/identity"
	"github.com/clearia/clearia/internal/platform/apperr"
	"github.com/clearia/clearia/internal/platform/auth"
)

// TxRunner runs fn inside a storage transaction. Repository calls made with
// the context handed to fn share it.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo  Repository
	users identity.Repository
	tx    TxRunner
}

func NewService(repo Repository, users identity.Repository, tx TxRunner) *Service {
	return &Service{repo: repo, users: users, tx: tx}
}

// Register is the compound patient sign-up: it creates the user account and
// the patient record together. Both inserts share one transaction so a
// failure on the patient side cannot leave an orphaned account behind.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Patient, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.MedicalID = strings.TrimSpace(in.MedicalID)

	if len(strings.TrimSpace(in.FirstName)) < 2 || len(strings.TrimSpace(in.LastName)) < 2 {
		return nil, apperr.New(apperr.Validation, "first and last name must be at least 2 characters")
	}
	if len(in.Username) < 3 {
		return nil, apperr.New(apperr.Validation, "username must be at least 3 characters")
	}
	if len(in.Password) < 6 {
		return nil, apperr.New(apperr.Validation, "password must be at least 6 characters")
	}
	if in.Email == "" {
		return nil, apperr.New(apperr.Validation, "email is required")
	}
	if in.MedicalID == "" {
		return nil, apperr.New(apperr.Validation, "medical id is required")
	}
	if in.DateOfBirth.IsZero() {
		return nil, apperr.New(apperr.Validation, "date of birth is required")
	}
	if in.DateOfBirth.After(time.Now()) {
		return nil, apperr.New(apperr.Validation, "date of birth cannot be in the future")
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.New(apperr.Conflict, "email already exists")
	} else if !identity.ErrNotFound(err) {
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return nil, apperr.New(apperr.Conflict, "username already exists")
	} else if !identity.ErrNotFound(err) {
		return nil, err
	}
	if _, err := s.repo.GetByMedicalID(ctx, in.MedicalID); err == nil {
		return nil, apperr.New(apperr.Conflict, "medical id already exists")
	} else if !ErrNotFound(err) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "hash password", err)
	}

	p := &Patient{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		DateOfBirth: in.DateOfBirth,
		MedicalID:   in.MedicalID,
		Allergies:   in.Allergies,
		BloodType:   in.BloodType,
	}
	err = s.tx(ctx, func(ctx context.Context) error {
		u := &identity.User{
			Name:         p.FirstName + " " + p.LastName,
			Email:        in.Email,
			Username:     in.Username,
			PasswordHash: hash,
			Role:         auth.RolePatient,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		p.ID = u.ID
		p.UserID = u.ID
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if ErrNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "patient not found")
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPatientByMedicalID(ctx context.Context, medicalID string) (*Patient, error) {
	p, err := s.repo.GetByMedicalID(ctx, strings.TrimSpace(medicalID))
	if err != nil {
		if ErrNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "patient not found")
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, in UpdateInput) (*Patient, error) {
	p, err := s.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.MedicalID != nil {
		medicalID := strings.TrimSpace(*in.MedicalID)
		if medicalID != p.MedicalID {
			if _, err := s.repo.GetByMedicalID(ctx, medicalID); err == nil {
				return nil, apperr.New(apperr.Conflict, "medical id already exists")
			} else if !ErrNotFound(err) {
				return nil, err
			}
		}
		p.MedicalID = medicalID
	}
	if in.FirstName != nil {
		if len(strings.TrimSpace(*in.FirstName)) < 2 {
			return nil, apperr.New(apperr.Validation, "first name must be at least 2 characters")
		}
		p.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		if len(strings.TrimSpace(*in.LastName)) < 2 {
			return nil, apperr.New(apperr.Validation, "last name must be at least 2 characters")
		}
		p.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.DateOfBirth != nil {
		if in.DateOfBirth.After(time.Now()) {
			return nil, apperr.New(apperr.Validation, "date of birth cannot be in the future")
		}
		p.DateOfBirth = *in.DateOfBirth
	}
	if in.Allergies != nil {
		p.Allergies = in.Allergies
	}
	if in.BloodType != nil {
		p.BloodType = in.BloodType
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePatient removes the patient's user account; the patient row goes with
// it through the cascading foreign key.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	p, err := s.GetPatient(ctx, id)
	if err != nil {
		return err
	}
	return s.users.Delete(ctx, p.UserID)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ActiveAdmissionID returns the id of the patient's current ICU admission, or
// nil when the patient is not admitted.
func (s *Service) ActiveAdmissionID(ctx context.Context, patientID uuid.UUID) (*uuid.UUID, error) {
	if _, err := s.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ActiveAdmissionID(ctx, patientID)
}
