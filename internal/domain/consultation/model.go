package consultation

import (
	"time"

	"github.com/google/uuid"
)

// Consultation statuses. A consultation is opened by a patient, claimed by the
// first doctor to respond, and closed by either participant.
const (
	StatusPending  = "pending"
	StatusAnswered = "answered"
	StatusClosed   = "closed"
)

// Severity of the patient's complaint.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Category routes the consultation to the right kind of attention.
const (
	CategoryGeneral   = "general"
	CategoryEmergency = "emergency"
	CategoryFollowup  = "followup"
)

type Consultation struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID  *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	Question  string     `db:"question" json:"question"`
	Symptoms  string     `db:"symptoms" json:"symptoms"`
	Severity  string     `db:"severity" json:"severity"`
	Category  string     `db:"category" json:"category"`
	// PreferredDoctorID, when set, keeps the consultation out of every other
	// doctor's open list.
	PreferredDoctorID *uuid.UUID `db:"preferred_doctor_id" json:"preferred_doctor_id,omitempty"`
	Status            string     `db:"status" json:"status"`
	Response          *string    `db:"response" json:"response,omitempty"`
	Diagnosis         *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	PrescriptionNote  *string    `db:"prescription_note" json:"prescription_note,omitempty"`
	RespondedAt       *time.Time `db:"responded_at" json:"responded_at,omitempty"`
	ClosedAt          *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// IsParticipant reports whether userID is the patient or the responding doctor.
func (c *Consultation) IsParticipant(userID uuid.UUID) bool {
	if c.PatientID == userID {
		return true
	}
	return c.DoctorID != nil && *c.DoctorID == userID
}

// Message is one follow-up message on an answered consultation. The thread is
// append-only and ordered by sent time.
type Message struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ConsultationID uuid.UUID `db:"consultation_id" json:"consultation_id"`
	SenderID       uuid.UUID `db:"sender_id" json:"sender_id"`
	Body           string    `db:"body" json:"body"`
	SentAt         time.Time `db:"sent_at" json:"sent_at"`
}

// StatusCounts is a per-status tally for one user's consultations.
type StatusCounts struct {
	Pending  int `json:"pending"`
	Answered int `json:"answered"`
	Closed   int `json:"closed"`
	Total    int `json:"total"`
}
