package video

import (
	"context"

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

const roomCols = `id, room_code, consultation_id, appointment_id, patient_id, doctor_id,
	created_by, status, started_at, ended_at, created_at`

func scanRoom(row pgx.Row) (*Room, error) {
	var rm Room
	err := row.Scan(&rm.ID, &rm.RoomCode, &rm.ConsultationID, &rm.AppointmentID, &rm.PatientID, &rm.DoctorID,
		&rm.CreatedBy, &rm.Status, &rm.StartedAt, &rm.EndedAt, &rm.CreatedAt)
	return &rm, err
}

func (r *repoPG) Create(ctx context.Context, rm *Room) error {
	rm.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO video_rooms (id, room_code, consultation_id, appointment_id, patient_id, doctor_id, created_by, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		rm.ID, rm.RoomCode, rm.ConsultationID, rm.AppointmentID, rm.PatientID, rm.DoctorID, rm.CreatedBy, rm.Status).
		Scan(&rm.CreatedAt)
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Room, error) {
	return scanRoom(r.conn(ctx).QueryRow(ctx,
		`SELECT `+roomCols+` FROM video_rooms WHERE id = $1`, id))
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*Room, error) {
	return scanRoom(r.conn(ctx).QueryRow(ctx,
		`SELECT `+roomCols+` FROM video_rooms WHERE room_code = $1`, code))
}

func (r *repoPG) Update(ctx context.Context, rm *Room) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE video_rooms
		SET status = $2, started_at = $3, ended_at = $4
		WHERE id = $1`,
		rm.ID, rm.Status, rm.StartedAt, rm.EndedAt)
	return err
}

func (r *repoPG) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Room, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM video_rooms WHERE patient_id = $1 OR doctor_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+roomCols+` FROM video_rooms
		WHERE patient_id = $1 OR doctor_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rm)
	}
	return out, total, rows.Err()
}

func (r *repoPG) AddMessage(ctx context.Context, m *ChatMessage) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO video_room_messages (id, room_id, sender_id, body)
		VALUES ($1,$2,$3,$4)
		RETURNING sent_at`,
		m.ID, m.RoomID, m.SenderID, m.Body).
		Scan(&m.SentAt)
}

func (r *repoPG) ListMessages(ctx context.Context, roomID uuid.UUID) ([]*ChatMessage, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, room_id, sender_id, body, sent_at
		FROM video_room_messages
		WHERE room_id = $1
		ORDER BY sent_at ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Body, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
