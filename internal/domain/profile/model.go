package profile

import (
	"time"

	"github.com/google/uuid"
)

// PatientProfile maps to the patient_profiles table, linked 1:1 to a user.
type PatientProfile struct {
	UserID            uuid.UUID  `db:"user_id" json:"user_id"`
	FullName          string     `db:"full_name" json:"full_name"`
	DateOfBirth       *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender            *string    `db:"gender" json:"gender,omitempty"`
	Phone             *string    `db:"phone" json:"phone,omitempty"`
	Address           *string    `db:"address" json:"address,omitempty"`
	EmergencyContact  *string    `db:"emergency_contact" json:"emergency_contact,omitempty"`
	BloodType         *string    `db:"blood_type" json:"blood_type,omitempty"`
	Allergies         []string   `db:"allergies" json:"allergies"`
	ChronicConditions []string   `db:"chronic_conditions" json:"chronic_conditions"`
	Medications       []string   `db:"medications" json:"medications"`
	InsuranceProvider *string    `db:"insurance_provider" json:"insurance_provider,omitempty"`
	InsuranceID       *string    `db:"insurance_id" json:"insurance_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// DoctorProfile maps to the doctor_profiles table, linked 1:1 to a user.
// Rating and TotalReviews are maintained incrementally by the review workflow.
type DoctorProfile struct {
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	FullName        string    `db:"full_name" json:"full_name"`
	Specialization  string    `db:"specialization" json:"specialization"`
	LicenseNumber   string    `db:"license_number" json:"license_number"`
	ConsultationFee float64   `db:"consultation_fee" json:"consultation_fee"`
	YearsExperience int       `db:"years_experience" json:"years_experience"`
	Bio             *string   `db:"bio" json:"bio,omitempty"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	AvailableDays   []string  `db:"available_days" json:"available_days"`
	AvailableHours  string    `db:"available_hours" json:"available_hours"`
	Rating          float64   `db:"rating" json:"rating"`
	TotalReviews    int       `db:"total_reviews" json:"total_reviews"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// DoctorPublic is the unauthenticated view of a doctor. License number and
// phone never leave the service in public listings.
type DoctorPublic struct {
	UserID          uuid.UUID `json:"user_id"`
	FullName        string    `json:"full_name"`
	Specialization  string    `json:"specialization"`
	ConsultationFee float64   `json:"consultation_fee"`
	YearsExperience int       `json:"years_experience"`
	Bio             *string   `json:"bio,omitempty"`
	AvailableDays   []string  `json:"available_days"`
	AvailableHours  string    `json:"available_hours"`
	Rating          float64   `json:"rating"`
	TotalReviews    int       `json:"total_reviews"`
}

// Public strips the sensitive fields from a doctor profile.
func (d *DoctorProfile) Public() *DoctorPublic {
	return &DoctorPublic{
		UserID:          d.UserID,
		FullName:        d.FullName,
		Specialization:  d.Specialization,
		ConsultationFee: d.ConsultationFee,
		YearsExperience: d.YearsExperience,
		Bio:             d.Bio,
		AvailableDays:   d.AvailableDays,
		AvailableHours:  d.AvailableHours,
		Rating:          d.Rating,
		TotalReviews:    d.TotalReviews,
	}
}

// PatientPatch is a partial update to a patient profile. Nil fields are left
// untouched by Apply.
type PatientPatch struct {
	FullName          *string    `json:"full_name"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	Gender            *string    `json:"gender"`
	Phone             *string    `json:"phone"`
	Address           *string    `json:"address"`
	EmergencyContact  *string    `json:"emergency_contact"`
	BloodType         *string    `json:"blood_type"`
	Allergies         []string   `json:"allergies"`
	ChronicConditions []string   `json:"chronic_conditions"`
	Medications       []string   `json:"medications"`
	InsuranceProvider *string    `json:"insurance_provider"`
	InsuranceID       *string    `json:"insurance_id"`
}

// Apply merges the patch into p.
func (patch *PatientPatch) Apply(p *PatientProfile) {
	if patch.FullName != nil {
		p.FullName = *patch.FullName
	}
	if patch.DateOfBirth != nil {
		p.DateOfBirth = patch.DateOfBirth
	}
	if patch.Gender != nil {
		p.Gender = patch.Gender
	}
	if patch.Phone != nil {
		p.Phone = patch.Phone
	}
	if patch.Address != nil {
		p.Address = patch.Address
	}
	if patch.EmergencyContact != nil {
		p.EmergencyContact = patch.EmergencyContact
	}
	if patch.BloodType != nil {
		p.BloodType = patch.BloodType
	}
	if patch.Allergies != nil {
		p.Allergies = patch.Allergies
	}
	if patch.ChronicConditions != nil {
		p.ChronicConditions = patch.ChronicConditions
	}
	if patch.Medications != nil {
		p.Medications = patch.Medications
	}
	if patch.InsuranceProvider != nil {
		p.InsuranceProvider = patch.InsuranceProvider
	}
	if patch.InsuranceID != nil {
		p.InsuranceID = patch.InsuranceID
	}
}

// DoctorPatch is a partial update to a doctor profile. Rating fields are not
// patchable; they belong to the review workflow.
type DoctorPatch struct {
	FullName        *string  `json:"full_name"`
	Specialization  *string  `json:"specialization"`
	LicenseNumber   *string  `json:"license_number"`
	ConsultationFee *float64 `json:"consultation_fee"`
	YearsExperience *int     `json:"years_experience"`
	Bio             *string  `json:"bio"`
	Phone           *string  `json:"phone"`
	AvailableDays   []string `json:"available_days"`
	AvailableHours  *string  `json:"available_hours"`
}

// Apply merges the patch into d.
func (patch *DoctorPatch) Apply(d *DoctorProfile) {
	if patch.FullName != nil {
		d.FullName = *patch.FullName
	}
	if patch.Specialization != nil {
		d.Specialization = *patch.Specialization
	}
	if patch.LicenseNumber != nil {
		d.LicenseNumber = *patch.LicenseNumber
	}
	if patch.ConsultationFee != nil {
		d.ConsultationFee = *patch.ConsultationFee
	}
	if patch.YearsExperience != nil {
		d.YearsExperience = *patch.YearsExperience
	}
	if patch.Bio != nil {
		d.Bio = patch.Bio
	}
	if patch.Phone != nil {
		d.Phone = patch.Phone
	}
	if patch.AvailableDays != nil {
		d.AvailableDays = patch.AvailableDays
	}
	if patch.AvailableHours != nil {
		d.AvailableHours = *patch.AvailableHours
	}
}

// SearchFilters narrows a public doctor search.
type SearchFilters struct {
	Specialization string
	MinRating      float64
	MaxFee         float64
	AvailableDay   string // weekday name, e.g. "monday"
	SortBy         string // rating | fee | experience
}
