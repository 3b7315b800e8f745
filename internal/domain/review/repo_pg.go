package review

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

const reviewCols = `id, patient_id, doctor_id, consultation_id, appointment_id,
	rating, title, comment, recommend, doctor_response, responded_at, created_at`

func scanReview(row pgx.Row) (*Review, error) {
	var rv Review
	err := row.Scan(&rv.ID, &rv.PatientID, &rv.DoctorID, &rv.ConsultationID, &rv.AppointmentID,
		&rv.Rating, &rv.Title, &rv.Comment, &rv.Recommend, &rv.DoctorResponse, &rv.RespondedAt, &rv.CreatedAt)
	return &rv, err
}

func (r *repoPG) Create(ctx context.Context, rv *Review) error {
	rv.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO reviews (id, patient_id, doctor_id, consultation_id, appointment_id, rating, title, comment, recommend)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		rv.ID, rv.PatientID, rv.DoctorID, rv.ConsultationID, rv.AppointmentID, rv.Rating, rv.Title, rv.Comment, rv.Recommend).
		Scan(&rv.CreatedAt)
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Review, error) {
	return scanReview(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reviewCols+` FROM reviews WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, rv *Review) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE reviews
		SET doctor_response = $2, responded_at = $3
		WHERE id = $1`,
		rv.ID, rv.DoctorResponse, rv.RespondedAt)
	return err
}

func (r *repoPG) HadInteraction(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	var had bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM consultations
			WHERE patient_id = $1 AND doctor_id = $2 AND status IN ('answered','closed')
		) OR EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1 AND doctor_id = $2 AND status = 'completed'
		)`, patientID, doctorID).Scan(&had)
	return had, err
}

func (r *repoPG) ListForDoctor(ctx context.Context, doctorID uuid.UUID, rating, limit, offset int) ([]*reviewWithName, int, error) {
	where := ` WHERE r.doctor_id = $1`
	args := []interface{}{doctorID}
	idx := 2
	if rating != 0 {
		where += fmt.Sprintf(` AND r.rating = $%d`, idx)
		args = append(args, rating)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews r`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `
		SELECT r.id, r.patient_id, r.doctor_id, r.consultation_id, r.appointment_id,
		       r.rating, r.title, r.comment, r.recommend, r.doctor_response, r.responded_at, r.created_at,
		       COALESCE(p.full_name, '')
		FROM reviews r
		LEFT JOIN patient_profiles p ON p.user_id = r.patient_id` + where +
		fmt.Sprintf(`
		ORDER BY r.created_at DESC
		LIMIT $%d OFFSET $%d`, idx, idx+1)
	rows, err := r.conn(ctx).Query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*reviewWithName
	for rows.Next() {
		var rn reviewWithName
		if err := rows.Scan(&rn.ID, &rn.PatientID, &rn.DoctorID, &rn.ConsultationID, &rn.AppointmentID,
			&rn.Rating, &rn.Title, &rn.Comment, &rn.Recommend, &rn.DoctorResponse, &rn.RespondedAt, &rn.CreatedAt,
			&rn.PatientName); err != nil {
			return nil, 0, err
		}
		out = append(out, &rn)
	}
	return out, total, rows.Err()
}
