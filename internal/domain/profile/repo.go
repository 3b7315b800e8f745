package profile

import (
	"context"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*PatientProfile, error)
	Upsert(ctx context.Context, p *PatientProfile) error
}

type DoctorRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error)
	Upsert(ctx context.Context, d *DoctorProfile) error
	Search(ctx context.Context, f SearchFilters, limit, offset int) ([]*DoctorProfile, int, error)
	// ApplyRating folds one new review rating into the running average,
	// creating a placeholder profile row for doctors who never filled one in.
	// Must execute as a single statement so concurrent reviews serialize on
	// the row.
	ApplyRating(ctx context.Context, userID uuid.UUID, rating int) (*DoctorProfile, error)
}
