package review

import (
	"time"

	"github.com/google/uuid"
)

// Review is a patient's one-time rating of a doctor, tied to the interaction
// that justifies it (a consultation or an appointment).
type Review struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	ConsultationID *uuid.UUID `db:"consultation_id" json:"consultation_id,omitempty"`
	AppointmentID  *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	Rating         int        `db:"rating" json:"rating"`
	Title          string     `db:"title" json:"title"`
	Comment        *string    `db:"comment" json:"comment,omitempty"`
	Recommend      bool       `db:"recommend" json:"recommend"`
	DoctorResponse *string    `db:"doctor_response" json:"doctor_response,omitempty"`
	RespondedAt    *time.Time `db:"responded_at" json:"responded_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// PublicReview is the listing view: the reviewer is reduced to an anonymized
// display name.
type PublicReview struct {
	ID             uuid.UUID  `json:"id"`
	PatientName    string     `json:"patient_name"`
	Rating         int        `json:"rating"`
	Title          string     `json:"title"`
	Comment        *string    `json:"comment,omitempty"`
	Recommend      bool       `json:"recommend"`
	DoctorResponse *string    `json:"doctor_response,omitempty"`
	RespondedAt    *time.Time `json:"responded_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
