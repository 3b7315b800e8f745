package prescription

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Medication is one line item on a prescription. The list is stored as a
// JSONB document, not normalized rows; it is always read and written whole.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration,omitempty"`
	// Instructions are per-medication directions ("take with food").
	Instructions string `json:"instructions,omitempty"`
}

// Prescription is issued by the doctor who answered a consultation.
type Prescription struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	ConsultationID uuid.UUID    `db:"consultation_id" json:"consultation_id"`
	PatientID      uuid.UUID    `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	Medications    []Medication `db:"medications" json:"medications"`
	Instructions   string       `db:"instructions" json:"instructions"`
	Status         string       `db:"status" json:"status"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// IsParticipant reports whether userID is the patient or prescribing doctor.
func (p *Prescription) IsParticipant(userID uuid.UUID) bool {
	return p.PatientID == userID || p.DoctorID == userID
}

// StatusCounts is a per-status tally for one user's prescriptions.
type StatusCounts struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}
