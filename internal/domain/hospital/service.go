package hospital

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/clearia/clearia/internal/platform/apperr"
	"github.com/clearia/clearia/internal/platform/auth"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateHospital registers a directory entry. The (name, city) pair must be
// unique, case-insensitively.
func (s *Service) CreateHospital(ctx context.Context, h *Hospital) error {
	h.Name = strings.TrimSpace(h.Name)
	h.City = strings.TrimSpace(h.City)
	if h.Name == "" {
		return apperr.New(apperr.Validation, "name is required")
	}
	if h.Address == "" {
		return apperr.New(apperr.Validation, "address is required")
	}
	if h.City == "" {
		return apperr.New(apperr.Validation, "city is required")
	}
	if h.State == "" {
		return apperr.New(apperr.Validation, "state is required")
	}

	if _, err := s.repo.GetByNameCity(ctx, h.Name, h.City); err == nil {
		return apperr.Newf(apperr.Conflict, "hospital %q already exists in %s", h.Name, h.City)
	} else if !ErrNotFound(err) {
		return err
	}

	return s.repo.Create(ctx, h)
}

func (s *Service) GetHospital(ctx context.Context, id uuid.UUID) (*HospitalWithStaff, error) {
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if ErrNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "hospital not found")
		}
		return nil, err
	}
	staff, err := s.repo.Staff(ctx, id)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		staff = []*StaffMember{}
	}
	return &HospitalWithStaff{Hospital: h, Staff: staff}, nil
}

func (s *Service) UpdateHospital(ctx context.Context, id uuid.UUID, in UpdateInput) (*Hospital, error) {
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if ErrNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "hospital not found")
		}
		return nil, err
	}

	name, city := h.Name, h.City
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.New(apperr.Validation, "name is required")
		}
	}
	if in.City != nil {
		city = strings.TrimSpace(*in.City)
		if city == "" {
			return nil, apperr.New(apperr.Validation, "city is required")
		}
	}
	if name != h.Name || city != h.City {
		if existing, err := s.repo.GetByNameCity(ctx, name, city); err == nil && existing.ID != id {
			return nil, apperr.Newf(apperr.Conflict, "hospital %q already exists in %s", name, city)
		} else if err != nil && !ErrNotFound(err) {
			return nil, err
		}
	}

	h.Name = name
	h.City = city
	if in.Address != nil {
		h.Address = *in.Address
	}
	if in.State != nil {
		h.State = *in.State
	}
	if in.ZipCode != nil {
		h.ZipCode = *in.ZipCode
	}
	if in.Phone != nil {
		h.Phone = *in.Phone
	}
	if in.Email != nil {
		h.Email = in.Email
	}
	if in.Website != nil {
		h.Website = in.Website
	}

	if err := s.repo.Update(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// DeleteHospital removes a directory entry. Deletion is refused while any
// user still references the hospital.
func (s *Service) DeleteHospital(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if ErrNotFound(err) {
			return apperr.New(apperr.NotFound, "hospital not found")
		}
		return err
	}
	n, err := s.repo.UserCount(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Newf(apperr.Conflict, "hospital has %d assigned users", n)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListHospitals(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ByLocation filters the directory by city and state substrings. Blank
// filters match everything.
func (s *Service) ByLocation(ctx context.Context, city, state string) ([]*Hospital, error) {
	return s.repo.ByLocation(ctx, strings.TrimSpace(city), strings.TrimSpace(state))
}

func (s *Service) Search(ctx context.Context, query string, limit int) ([]*Hospital, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(apperr.Validation, "query is required")
	}
	return s.repo.Search(ctx, query, limit)
}

// Stats returns per-role user counts for a hospital. Every staff role is
// present in the result, zero when unrepresented.
func (s *Service) Stats(ctx context.Context, id uuid.UUID) (map[string]int, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if ErrNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "hospital not found")
		}
		return nil, err
	}
	counts, err := s.repo.RoleCounts(ctx, id)
	if err != nil {
		return nil, err
	}
	stats := map[string]int{
		auth.RoleAdmin:  0,
		auth.RoleDoctor: 0,
		auth.RoleNurse:  0,
	}
	for role, n := range counts {
		stats[role] = n
	}
	return stats, nil
}
