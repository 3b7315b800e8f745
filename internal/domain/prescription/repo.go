package prescription

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	Get(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error

	ListForPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Prescription, int, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, status string, limit, offset int) ([]*Prescription, int, error)
	ListForConsultation(ctx context.Context, consultationID uuid.UUID) ([]*Prescription, error)
	CountByStatusForUser(ctx context.Context, userID uuid.UUID) (*StatusCounts, error)
}
