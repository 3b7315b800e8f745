package reporting

import (
	"context"
	"time"
)

// Repository runs the aggregate queries behind admin reports. Every method
// returns zero-valued results on an empty table, not an error.
type Repository interface {
	UserBreakdown(ctx context.Context) (map[string]map[string]int, error)
	ConsultationCounts(ctx context.Context) (map[string]int, error)
	AppointmentCounts(ctx context.Context) (map[string]int, error)
	PrescriptionCounts(ctx context.Context) (map[string]int, error)
	ReviewStats(ctx context.Context) (ReviewStats, error)
	ActivityBetween(ctx context.Context, from, to time.Time) (*ActivityReport, error)
}
