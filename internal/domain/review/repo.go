package review

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Review) error
	Get(ctx context.Context, id uuid.UUID) (*Review, error)
	Update(ctx context.Context, r *Review) error

	// HadInteraction reports whether the patient has a consultation answered
	// by the doctor or a completed appointment with them.
	HadInteraction(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)

	// ListForDoctor returns reviews with the reviewer's profile name joined
	// in; anonymization happens in the service. A non-zero rating narrows the
	// list to exactly that rating.
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, rating, limit, offset int) ([]*reviewWithName, int, error)
}

// reviewWithName pairs a review with the reviewer's full profile name, empty
// when the patient never filled a profile in.
type reviewWithName struct {
	Review
	PatientName string
}
