package reporting

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telecare/telecare/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) UserBreakdown(ctx context.Context) (map[string]map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT role, status, COUNT(*) FROM users GROUP BY role, status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]map[string]int)
	for rows.Next() {
		var role, status string
		var n int
		if err := rows.Scan(&role, &status, &n); err != nil {
			return nil, err
		}
		if out[role] == nil {
			out[role] = make(map[string]int)
		}
		out[role][status] = n
	}
	return out, rows.Err()
}

func (r *repoPG) ConsultationCounts(ctx context.Context) (map[string]int, error) {
	return r.statusCounts(ctx, "consultations")
}

func (r *repoPG) AppointmentCounts(ctx context.Context) (map[string]int, error) {
	return r.statusCounts(ctx, "appointments")
}

func (r *repoPG) PrescriptionCounts(ctx context.Context) (map[string]int, error) {
	return r.statusCounts(ctx, "prescriptions")
}

// statusCounts tallies a table by its status column. The table name comes
// from a fixed internal call site, never user input.
func (r *repoPG) statusCounts(ctx context.Context, table string) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT status, COUNT(*) FROM `+table+` GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (r *repoPG) ReviewStats(ctx context.Context) (ReviewStats, error) {
	var stats ReviewStats
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews`).
		Scan(&stats.Count, &stats.Average)
	return stats, err
}

func (r *repoPG) ActivityBetween(ctx context.Context, from, to time.Time) (*ActivityReport, error) {
	report := &ActivityReport{From: from, To: to}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE created_at >= $1 AND created_at < $2),
			(SELECT COUNT(*) FROM consultations WHERE created_at >= $1 AND created_at < $2),
			(SELECT COUNT(*) FROM appointments WHERE created_at >= $1 AND created_at < $2),
			(SELECT COUNT(*) FROM prescriptions WHERE created_at >= $1 AND created_at < $2),
			(SELECT COUNT(*) FROM reviews WHERE created_at >= $1 AND created_at < $2)`,
		from, to).
		Scan(&report.UsersRegistered, &report.ConsultationsCreated, &report.AppointmentsBooked,
			&report.PrescriptionsIssued, &report.ReviewsSubmitted)
	if err != nil {
		return nil, err
	}
	return report, nil
}
