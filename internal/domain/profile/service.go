package profile

import (
	"context"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/domain/identity"
	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/internal/platform/db"
)

// UserSource resolves accounts for profile views. Satisfied by the identity
// service.
type UserSource interface {
	GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Service struct {
	patients PatientRepository
	doctors  DoctorRepository
	users    UserSource
}

func NewService(patients PatientRepository, doctors DoctorRepository, users UserSource) *Service {
	return &Service{patients: patients, doctors: doctors, users: users}
}

// OwnProfile bundles the account record with its role profile. The profile
// is nil until the user has filled one in.
type OwnProfile struct {
	User    *identity.User  `json:"user"`
	Patient *PatientProfile `json:"patient_profile,omitempty"`
	Doctor  *DoctorProfile  `json:"doctor_profile,omitempty"`
}

// GetOwn returns the caller's account and role profile.
func (s *Service) GetOwn(ctx context.Context, actor *auth.Principal) (*OwnProfile, error) {
	user, err := s.users.GetUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	own := &OwnProfile{User: user}
	switch actor.Role {
	case auth.RolePatient:
		p, err := s.patients.Get(ctx, actor.ID)
		if err != nil && !db.IsNotFound(err) {
			return nil, apperr.Wrap(apperr.KindInternal, "load patient profile", err)
		}
		if err == nil {
			own.Patient = p
		}
	case auth.RoleDoctor:
		d, err := s.doctors.Get(ctx, actor.ID)
		if err != nil && !db.IsNotFound(err) {
			return nil, apperr.Wrap(apperr.KindInternal, "load doctor profile", err)
		}
		if err == nil {
			own.Doctor = d
		}
	}
	return own, nil
}

// UpsertPatient creates or partially updates the caller's patient profile.
// Only the owning patient may call this; unset patch fields are untouched.
func (s *Service) UpsertPatient(ctx context.Context, actor *auth.Principal, patch *PatientPatch) (*PatientProfile, error) {
	if actor.Role != auth.RolePatient {
		return nil, apperr.E(apperr.KindForbidden, "only patients may edit a patient profile")
	}

	p, err := s.patients.Get(ctx, actor.ID)
	if err != nil {
		if !db.IsNotFound(err) {
			return nil, apperr.Wrap(apperr.KindInternal, "load patient profile", err)
		}
		p = &PatientProfile{UserID: actor.ID}
	}

	patch.Apply(p)
	if p.FullName == "" {
		return nil, apperr.E(apperr.KindValidation, "full_name is required")
	}

	if err := s.patients.Upsert(ctx, p); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "save patient profile", err)
	}
	return p, nil
}

// UpsertDoctor creates or partially updates the caller's doctor profile.
// A newly created profile starts with rating 0 and no reviews.
func (s *Service) UpsertDoctor(ctx context.Context, actor *auth.Principal, patch *DoctorPatch) (*DoctorProfile, error) {
	if actor.Role != auth.RoleDoctor {
		return nil, apperr.E(apperr.KindForbidden, "only doctors may edit a doctor profile")
	}

	d, err := s.doctors.Get(ctx, actor.ID)
	if err != nil {
		if !db.IsNotFound(err) {
			return nil, apperr.Wrap(apperr.KindInternal, "load doctor profile", err)
		}
		d = &DoctorProfile{UserID: actor.ID}
	}

	patch.Apply(d)
	if d.FullName == "" {
		return nil, apperr.E(apperr.KindValidation, "full_name is required")
	}
	if d.Specialization == "" {
		return nil, apperr.E(apperr.KindValidation, "specialization is required")
	}
	if d.LicenseNumber == "" {
		return nil, apperr.E(apperr.KindValidation, "license_number is required")
	}

	if err := s.doctors.Upsert(ctx, d); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "save doctor profile", err)
	}
	return d, nil
}

// GetDoctorPublic returns the public view of one doctor.
func (s *Service) GetDoctorPublic(ctx context.Context, doctorID uuid.UUID) (*DoctorPublic, error) {
	d, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.E(apperr.KindNotFound, "doctor not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load doctor profile", err)
	}
	return d.Public(), nil
}

// GetDoctor returns the full doctor profile for internal workflow use.
func (s *Service) GetDoctor(ctx context.Context, doctorID uuid.UUID) (*DoctorProfile, error) {
	d, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.E(apperr.KindNotFound, "doctor not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load doctor profile", err)
	}
	return d, nil
}

// GetPatient returns a patient profile for internal workflow use.
func (s *Service) GetPatient(ctx context.Context, patientID uuid.UUID) (*PatientProfile, error) {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.E(apperr.KindNotFound, "patient profile not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load patient profile", err)
	}
	return p, nil
}

// SearchDoctors is the public doctor directory with filters and sorting.
// Results carry only public fields.
func (s *Service) SearchDoctors(ctx context.Context, f SearchFilters, limit, offset int) ([]*DoctorPublic, int, error) {
	doctors, total, err := s.doctors.Search(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "search doctors", err)
	}
	public := make([]*DoctorPublic, 0, len(doctors))
	for _, d := range doctors {
		public = append(public, d.Public())
	}
	return public, total, nil
}
