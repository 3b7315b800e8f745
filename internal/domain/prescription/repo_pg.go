package prescription

import (
	"context"
	"encoding/json"
	"fmt"

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

const rxCols = `id, consultation_id, patient_id, doctor_id, medications, instructions,
	status, created_at, updated_at`

func scanRx(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var meds []byte
	err := row.Scan(&p.ID, &p.ConsultationID, &p.PatientID, &p.DoctorID, &meds, &p.Instructions,
		&p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meds, &p.Medications); err != nil {
		return nil, fmt.Errorf("decode medications: %w", err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	meds, err := json.Marshal(p.Medications)
	if err != nil {
		return fmt.Errorf("encode medications: %w", err)
	}
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescriptions (id, consultation_id, patient_id, doctor_id, medications, instructions, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		p.ID, p.ConsultationID, p.PatientID, p.DoctorID, meds, p.Instructions, p.Status).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanRx(r.conn(ctx).QueryRow(ctx,
		`SELECT `+rxCols+` FROM prescriptions WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Prescription) error {
	meds, err := json.Marshal(p.Medications)
	if err != nil {
		return fmt.Errorf("encode medications: %w", err)
	}
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE prescriptions
		SET medications = $2, instructions = $3, status = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, meds, p.Instructions, p.Status).
		Scan(&p.UpdatedAt)
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Prescription, int, error) {
	return r.listForUser(ctx, "patient_id", patientID, status, limit, offset)
}

func (r *repoPG) ListForDoctor(ctx context.Context, doctorID uuid.UUID, status string, limit, offset int) ([]*Prescription, int, error) {
	return r.listForUser(ctx, "doctor_id", doctorID, status, limit, offset)
}

func (r *repoPG) listForUser(ctx context.Context, col string, userID uuid.UUID, status string, limit, offset int) ([]*Prescription, int, error) {
	where := fmt.Sprintf(" WHERE %s = $1", col)
	args := []interface{}{userID}
	idx := 2
	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + rxCols + ` FROM prescriptions` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		p, err := scanRx(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repoPG) ListForConsultation(ctx context.Context, consultationID uuid.UUID) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+rxCols+` FROM prescriptions
		WHERE consultation_id = $1
		ORDER BY created_at ASC`, consultationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		p, err := scanRx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repoPG) CountByStatusForUser(ctx context.Context, userID uuid.UUID) (*StatusCounts, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT status, COUNT(*) FROM prescriptions
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
		case StatusActive:
			counts.Active = n
		case StatusCompleted:
			counts.Completed = n
		case StatusCancelled:
			counts.Cancelled = n
		}
		counts.Total += n
	}
	return &counts, rows.Err()
}
