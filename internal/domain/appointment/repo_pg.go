package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

const apptCols = `id, patient_id, doctor_id, date, start_time, appointment_type, duration_minutes,
	reason, urgent, status, notes, cancelled_at, cancelled_by, cancellation_reason, created_at, updated_at`

func scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.StartTime, &a.Type, &a.DurationMinutes,
		&a.Reason, &a.Urgent, &a.Status, &a.Notes, &a.CancelledAt, &a.CancelledBy, &a.CancellationReason,
		&a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, date, start_time, appointment_type,
			duration_minutes, reason, urgent, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.Date, a.StartTime, a.Type,
		a.DurationMinutes, a.Reason, a.Urgent, a.Status).
		Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppt(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments
		SET date = $2, start_time = $3, reason = $4, status = $5, notes = $6,
		    cancelled_at = $7, cancelled_by = $8, cancellation_reason = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.Date, a.StartTime, a.Reason, a.Status, a.Notes,
		a.CancelledAt, a.CancelledBy, a.CancellationReason).
		Scan(&a.UpdatedAt)
}

func (r *repoPG) SlotTaken(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string, excludeID uuid.UUID) (bool, error) {
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND date = $2 AND start_time = $3
			  AND status NOT IN ('completed','cancelled','no_show')
			  AND id <> $4
		)`, doctorID, date, startTime, excludeID).Scan(&taken)
	return taken, err
}

func (r *repoPG) BookedTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT start_time FROM appointments
		WHERE doctor_id = $1 AND date = $2
		  AND status NOT IN ('completed','cancelled','no_show')`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Appointment, int, error) {
	return r.listForUser(ctx, "patient_id", patientID, status, limit, offset)
}

func (r *repoPG) ListForDoctor(ctx context.Context, doctorID uuid.UUID, status string, limit, offset int) ([]*Appointment, int, error) {
	return r.listForUser(ctx, "doctor_id", doctorID, status, limit, offset)
}

func (r *repoPG) listForUser(ctx context.Context, col string, userID uuid.UUID, status string, limit, offset int) ([]*Appointment, int, error) {
	where := fmt.Sprintf(" WHERE %s = $1", col)
	args := []interface{}{userID}
	idx := 2
	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + apptCols + ` FROM appointments` + where +
		fmt.Sprintf(` ORDER BY date DESC, start_time DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *repoPG) CountByStatusForUser(ctx context.Context, userID uuid.UUID) (*StatusCounts, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT status, COUNT(*) FROM appointments
		WHERE patient_id = $1 OR doctor_id = $1
		GROUP BY status`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		switch status {
		case StatusScheduled:
			counts.Scheduled = n
		case StatusConfirmed:
			counts.Confirmed = n
		case StatusInProgress:
			counts.InProgress = n
		case StatusCompleted:
			counts.Completed = n
		case StatusCancelled:
			counts.Cancelled = n
		case StatusNoShow:
			counts.NoShow = n
		}
		counts.Total += n
	}
	return &counts, rows.Err()
}
