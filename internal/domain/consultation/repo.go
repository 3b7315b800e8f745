package consultation

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence contract for consultations and their message
// threads.
type Repository interface {
	Create(ctx context.Context, c *Consultation) error
	Get(ctx context.Context, id uuid.UUID) (*Consultation, error)
	Update(ctx context.Context, c *Consultation) error

	// ListOpen returns pending consultations the given doctor may pick up:
	// those with no preferred doctor or preferring exactly this one.
	// Severity and category narrow the list further when non-empty.
	ListOpen(ctx context.Context, doctorID uuid.UUID, severity, category string, limit, offset int) ([]*Consultation, int, error)

	// ListForPatient and ListForDoctor filter by status when it is non-empty.
	ListForPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Consultation, int, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, status string, limit, offset int) ([]*Consultation, int, error)

	CountByStatusForUser(ctx context.Context, userID uuid.UUID) (*StatusCounts, error)

	AddMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, consultationID uuid.UUID) ([]*Message, error)
}
