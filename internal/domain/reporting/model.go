package reporting

import "time"

// PlatformReport is the admin overview: everything an operator needs at a
// glance. Zero values mean an empty platform, never missing data.
type PlatformReport struct {
	GeneratedAt   time.Time                 `json:"generated_at"`
	Users         map[string]map[string]int `json:"users"` // role -> status -> count
	Consultations map[string]int            `json:"consultations"`
	Appointments  map[string]int            `json:"appointments"`
	Prescriptions map[string]int            `json:"prescriptions"`
	Reviews       ReviewStats               `json:"reviews"`
}

// ReviewStats summarizes the review corpus.
type ReviewStats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// ActivityReport counts what happened inside a date range.
type ActivityReport struct {
	From                 time.Time `json:"from"`
	To                   time.Time `json:"to"`
	UsersRegistered      int       `json:"users_registered"`
	ConsultationsCreated int       `json:"consultations_created"`
	AppointmentsBooked   int       `json:"appointments_booked"`
	PrescriptionsIssued  int       `json:"prescriptions_issued"`
	ReviewsSubmitted     int       `json:"reviews_submitted"`
}
