package identity

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

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)

	if in.Name == "" {
		return nil, apperr.New(apperr.Validation, "name is required")
	}
	if in.Email == "" {
		return nil, apperr.New(apperr.Validation, "email is required")
	}
	if in.Username == "" {
		return nil, apperr.New(apperr.Validation, "username is required")
	}
	if len(in.Password) < 6 {
		return nil, apperr.New(apperr.Validation, "password must be at least 6 characters")
	}
	if !auth.ValidRole(in.Role) {
		return nil, apperr.Newf(apperr.Validation, "invalid role: %s", in.Role)
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.New(apperr.Conflict, "email already exists")
	} else if !ErrNotFound(err) {
		return nil, err
	}
	if _, err := s.repo.GetByUsername(ctx, in.Username); err == nil {
		return nil, apperr.New(apperr.Conflict, "username already exists")
	} else if !ErrNotFound(err) {
		return nil, err
	}

	if in.HospitalID != nil {
		exists, err := s.repo.HospitalExists(ctx, *in.HospitalID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.New(apperr.NotFound, "hospital not found")
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "hash password", err)
	}

	u := &User{
		Name:         in.Name,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         in.Role,
		HospitalID:   in.HospitalID,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if ErrNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email != u.Email {
			if _, err := s.repo.GetByEmail(ctx, email); err == nil {
				return nil, apperr.New(apperr.Conflict, "email already exists")
			} else if !ErrNotFound(err) {
				return nil, err
			}
		}
		u.Email = email
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username != u.Username {
			if _, err := s.repo.GetByUsername(ctx, username); err == nil {
				return nil, apperr.New(apperr.Conflict, "username already exists")
			} else if !ErrNotFound(err) {
				return nil, err
			}
		}
		u.Username = username
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Role != nil {
		if !auth.ValidRole(*in.Role) {
			return nil, apperr.Newf(apperr.Validation, "invalid role: %s", *in.Role)
		}
		u.Role = *in.Role
	}
	if in.HospitalID != nil {
		exists, err := s.repo.HospitalExists(ctx, *in.HospitalID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.New(apperr.NotFound, "hospital not found")
		}
		u.HospitalID = in.HospitalID
	}
	if in.Password != nil {
		if len(*in.Password) < 6 {
			return nil, apperr.New(apperr.Validation, "password must be at least 6 characters")
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "hash password", err)
		}
		u.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// GetLatestUser returns the most recently created account.
func (s *Service) GetLatestUser(ctx context.Context) (*User, error) {
	u, err := s.repo.Latest(ctx)
	if err != nil {
		if ErrNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "no users registered")
		}
		return nil, err
	}
	return u, nil
}

// VerifyCredentials checks an email/password pair. Unknown email and wrong
// password produce the same error so callers cannot probe for accounts.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if ErrNotFound(err) {
			return nil, apperr.New(apperr.Unauthenticated, "invalid credentials")
		}
		return nil, err
	}
	if !auth.ComparePassword(u.PasswordHash, password) {
		return nil, apperr.New(apperr.Unauthenticated, "invalid credentials")
	}
	return u, nil
}
