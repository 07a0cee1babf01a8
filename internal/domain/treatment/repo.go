package treatment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *Treatment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Treatment, error)
	Update(ctx context.Context, t *Treatment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Treatment, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PatientTreatment, error)

	AddHistory(ctx context.Context, h *History) error
	HistoryByTreatment(ctx context.Context, treatmentID uuid.UUID) ([]*History, error)
	MaxSession(ctx context.Context, treatmentID uuid.UUID) (int, error)
}
