package video

import (
	"time"

	"github.com/google/uuid"
)

// Room statuses. A room waits until the first participant connects, is
// active while the call runs, and is ended for good once closed.
const (
	StatusWaiting = "waiting"
	StatusActive  = "active"
	StatusEnded   = "ended"
)

// Room is one video session, anchored to the consultation or appointment the
// call is about. Exactly one of the two anchors is set.
type Room struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	RoomCode       string     `db:"room_code" json:"room_code"`
	ConsultationID *uuid.UUID `db:"consultation_id" json:"consultation_id,omitempty"`
	AppointmentID  *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	CreatedBy      uuid.UUID  `db:"created_by" json:"created_by"`
	Status         string     `db:"status" json:"status"`
	StartedAt      *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt        *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// IsParticipant reports whether userID belongs in the room.
func (r *Room) IsParticipant(userID uuid.UUID) bool {
	return r.PatientID == userID || r.DoctorID == userID
}

// ChatMessage is one persisted in-call chat line. Signaling frames (offers,
// answers, ICE candidates) are relayed live and never stored.
type ChatMessage struct {
	ID       uuid.UUID `db:"id" json:"id"`
	RoomID   uuid.UUID `db:"room_id" json:"room_id"`
	SenderID uuid.UUID `db:"sender_id" json:"sender_id"`
	Body     string    `db:"body" json:"body"`
	SentAt   time.Time `db:"sent_at" json:"sent_at"`
}
