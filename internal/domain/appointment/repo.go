package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error

	// SlotTaken reports whether the doctor already has a non-terminal
	// appointment at (date, startTime), ignoring excludeID when set.
	SlotTaken(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string, excludeID uuid.UUID) (bool, error)

	// BookedTimes returns the start times of non-terminal appointments for
	// one doctor on one day.
	BookedTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error)

	ListForPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Appointment, int, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, status string, limit, offset int) ([]*Appointment, int, error)

	CountByStatusForUser(ctx context.Context, userID uuid.UUID) (*StatusCounts, error)
}
