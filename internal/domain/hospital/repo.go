package hospital

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	GetByNameCity(ctx context.Context, name, city string) (*Hospital, error)
	Update(ctx context.Context, h *Hospital) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Hospital, int, error)
	ByLocation(ctx context.Context, city, state string) ([]*Hospital, error)
	Search(ctx context.Context, query string, limit int) ([]*Hospital, error)
	Staff(ctx context.Context, hospitalID uuid.UUID) ([]*StaffMember, error)
	UserCount(ctx context.Context, hospitalID uuid.UUID) (int, error)
	RoleCounts(ctx context.Context, hospitalID uuid.UUID) (map[string]int, error)
}
