package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses and the allowed transitions between them. Completed,
// cancelled and no_show are terminal.
const (
	StatusScheduled  = "scheduled"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

var transitions = map[string][]string{
	StatusScheduled:  {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// CanTransition reports whether an appointment may move from one status to
// another. Terminal statuses have no outgoing transitions.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status permits no further changes.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}

// Appointment types.
const (
	TypeConsultation = "consultation"
	TypeCheckup      = "checkup"
	TypeFollowUp     = "follow_up"
	TypeEmergency    = "emergency"
)

// Appointment is one booked slot. Date carries the calendar day and StartTime
// the slot in "HH:MM" form; slot conflicts compare (doctor, date, start_time).
type Appointment struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID           uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Date               time.Time  `db:"date" json:"date"`
	StartTime          string     `db:"start_time" json:"start_time"`
	Type               string     `db:"appointment_type" json:"appointment_type"`
	DurationMinutes    int        `db:"duration_minutes" json:"duration_minutes"`
	Reason             string     `db:"reason" json:"reason"`
	Urgent             bool       `db:"urgent" json:"urgent"`
	Status             string     `db:"status" json:"status"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	CancelledAt        *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy        *uuid.UUID `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// IsParticipant reports whether userID is the patient or the doctor.
func (a *Appointment) IsParticipant(userID uuid.UUID) bool {
	return a.PatientID == userID || a.DoctorID == userID
}

// Slot is one entry in a doctor's availability grid for a day.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// DayAvailability is one day's slot grid in an availability response.
type DayAvailability struct {
	Date  string `json:"date"`
	Day   string `json:"day_name"`
	Slots []Slot `json:"slots"`
}

// StatusCounts is a per-status tally for one user's appointments.
type StatusCounts struct {
	Scheduled  int `json:"scheduled"`
	Confirmed  int `json:"confirmed"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
	NoShow     int `json:"no_show"`
	Total      int `json:"total"`
}
