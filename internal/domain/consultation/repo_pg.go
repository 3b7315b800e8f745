package consultation

import (
	"context"
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

const consultationCols = `id, patient_id, doctor_id, question, symptoms, severity, category,
	preferred_doctor_id, status, response, diagnosis, prescription_note,
	responded_at, closed_at, created_at, updated_at`

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(&c.ID, &c.PatientID, &c.DoctorID, &c.Question, &c.Symptoms, &c.Severity, &c.Category,
		&c.PreferredDoctorID, &c.Status, &c.Response, &c.Diagnosis, &c.PrescriptionNote,
		&c.RespondedAt, &c.ClosedAt, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Consultation) error {
	c.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consultations (id, patient_id, question, symptoms, severity, category, preferred_doctor_id, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		c.ID, c.PatientID, c.Question, c.Symptoms, c.Severity, c.Category, c.PreferredDoctorID, c.Status).
		Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return scanConsultation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+consultationCols+` FROM consultations WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, c *Consultation) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE consultations
		SET doctor_id = $2, status = $3, response = $4, diagnosis = $5,
		    prescription_note = $6, responded_at = $7, closed_at = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.DoctorID, c.Status, c.Response, c.Diagnosis, c.PrescriptionNote, c.RespondedAt, c.ClosedAt).
		Scan(&c.UpdatedAt)
}

func (r *repoPG) ListOpen(ctx context.Context, doctorID uuid.UUID, severity, category string, limit, offset int) ([]*Consultation, int, error) {
	where := ` WHERE status = 'pending' AND (preferred_doctor_id IS NULL OR preferred_doctor_id = $1)`
	args := []interface{}{doctorID}
	idx := 2
	if severity != "" {
		where += fmt.Sprintf(" AND severity = $%d", idx)
		args = append(args, severity)
		idx++
	}
	if category != "" {
		where += fmt.Sprintf(" AND category = $%d", idx)
		args = append(args, category)
		idx++
	}
	return r.list(ctx, where, args, idx, limit, offset)
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Consultation, int, error) {
	return r.listForUser(ctx, "patient_id", patientID, status, limit, offset)
}

func (r *repoPG) ListForDoctor(ctx context.Context, doctorID uuid.UUID, status string, limit, offset int) ([]*Consultation, int, error) {
	return r.listForUser(ctx, "doctor_id", doctorID, status, limit, offset)
}

func (r *repoPG) listForUser(ctx context.Context, col string, userID uuid.UUID, status string, limit, offset int) ([]*Consultation, int, error) {
	where := fmt.Sprintf(" WHERE %s = $1", col)
	args := []interface{}{userID}
	idx := 2
	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, status)
		idx++
	}
	return r.list(ctx, where, args, idx, limit, offset)
}

func (r *repoPG) list(ctx context.Context, where string, args []interface{}, idx, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consultations`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + consultationCols + ` FROM consultations` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repoPG) CountByStatusForUser(ctx context.Context, userID uuid.UUID) (*StatusCounts, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT status, COUNT(*) FROM consultations
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
		case StatusPending:
			counts.Pending = n
		case StatusAnswered:
			counts.Answered = n
		case StatusClosed:
			counts.Closed = n
		}
		counts.Total += n
	}
	return &counts, rows.Err()
}

func (r *repoPG) AddMessage(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consultation_messages (id, consultation_id, sender_id, body)
		VALUES ($1,$2,$3,$4)
		RETURNING sent_at`,
		m.ID, m.ConsultationID, m.SenderID, m.Body).
		Scan(&m.SentAt)
}

func (r *repoPG) ListMessages(ctx context.Context, consultationID uuid.UUID) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, consultation_id, sender_id, body, sent_at
		FROM consultation_messages
		WHERE consultation_id = $1
		ORDER BY sent_at ASC`, consultationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConsultationID, &m.SenderID, &m.Body, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
