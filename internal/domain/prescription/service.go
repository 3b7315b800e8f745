package prescription

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/domain/consultation"
	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/internal/platform/db"
)

// ConsultationSource resolves consultations so prescribing rights can be
// checked. Satisfied by the consultation repository.
type ConsultationSource interface {
	Get(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error)
}

// Notifier delivers a notification to one user on behalf of a sender.
type Notifier interface {
	Notify(ctx context.Context, senderID, userID uuid.UUID, ntype, title, message string, refID *uuid.UUID) error
}

type Service struct {
	repo    Repository
	consult ConsultationSource
	notify  Notifier
}

func NewService(repo Repository, consult ConsultationSource, notify Notifier) *Service {
	return &Service{repo: repo, consult: consult, notify: notify}
}

// Create issues a prescription against a consultation. Only the doctor who
// answered the consultation may prescribe on it; the patient is taken from
// the consultation, never from the request.
func (s *Service) Create(ctx context.Context, actor *auth.Principal, consultationID uuid.UUID, meds []Medication, instructions string) (*Prescription, error) {
	if actor.Role != auth.RoleDoctor {
		return nil, apperr.E(apperr.KindForbidden, "only doctors may prescribe")
	}
	if err := validateMedications(meds); err != nil {
		return nil, err
	}

	c, err := s.consult.Get(ctx, consultationID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.E(apperr.KindNotFound, "consultation not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load consultation", err)
	}
	if c.DoctorID == nil || *c.DoctorID != actor.ID {
		return nil, apperr.E(apperr.KindForbidden, "only the responding doctor may prescribe on this consultation")
	}

	p := &Prescription{
		ConsultationID: c.ID,
		PatientID:      c.PatientID,
		DoctorID:       actor.ID,
		Medications:    meds,
		Instructions:   strings.TrimSpace(instructions),
		Status:         StatusActive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create prescription", err)
	}

	if s.notify != nil {
		_ = s.notify.Notify(ctx, actor.ID, p.PatientID, "prescription_issued",
			"New prescription", "A doctor has issued you a prescription.", &p.ID)
	}
	return p, nil
}

// Get returns one prescription to its participants or an admin.
func (s *Service) Get(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*Prescription, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != auth.RoleAdmin && !p.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this prescription")
	}
	return p, nil
}

// Update lets the prescribing doctor revise an active prescription.
func (s *Service) Update(ctx context.Context, actor *auth.Principal, id uuid.UUID, meds []Medication, instructions *string) (*Prescription, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.DoctorID != actor.ID {
		return nil, apperr.E(apperr.KindForbidden, "only the prescribing doctor may update")
	}
	if p.Status != StatusActive {
		return nil, apperr.Ef(apperr.KindInvalidState, "prescription is %s", p.Status)
	}

	if meds != nil {
		if err := validateMedications(meds); err != nil {
			return nil, err
		}
		p.Medications = meds
	}
	if instructions != nil {
		p.Instructions = strings.TrimSpace(*instructions)
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "update prescription", err)
	}
	return p, nil
}

// MarkCompleted closes out a prescription. The patient or the prescribing
// doctor may complete it; completing twice is a no-op.
func (s *Service) MarkCompleted(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*Prescription, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this prescription")
	}
	if p.Status == StatusCompleted {
		return p, nil
	}
	if p.Status == StatusCancelled {
		return nil, apperr.E(apperr.KindInvalidState, "prescription is cancelled")
	}

	p.Status = StatusCompleted
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "complete prescription", err)
	}
	return p, nil
}

// Cancel withdraws an active prescription. Only the prescribing doctor may
// cancel; a completed prescription cannot be cancelled, and cancelling twice
// is a no-op.
func (s *Service) Cancel(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*Prescription, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.DoctorID != actor.ID {
		return nil, apperr.E(apperr.KindForbidden, "only the prescribing doctor may cancel")
	}
	if p.Status == StatusCancelled {
		return p, nil
	}
	if p.Status == StatusCompleted {
		return nil, apperr.E(apperr.KindInvalidState, "prescription is completed")
	}

	p.Status = StatusCancelled
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "cancel prescription", err)
	}

	if s.notify != nil {
		_ = s.notify.Notify(ctx, actor.ID, p.PatientID, "prescription_cancelled",
			"Prescription cancelled", "A prescription issued to you has been cancelled.", &p.ID)
	}
	return p, nil
}

// ListOwn returns the caller's prescriptions: received ones for patients,
// issued ones for doctors.
func (s *Service) ListOwn(ctx context.Context, actor *auth.Principal, status string, limit, offset int) ([]*Prescription, int, error) {
	switch status {
	case "", StatusActive, StatusCompleted, StatusCancelled:
	default:
		return nil, 0, apperr.E(apperr.KindValidation, "unknown status filter")
	}

	var (
		out   []*Prescription
		total int
		err   error
	)
	if actor.Role == auth.RoleDoctor {
		out, total, err = s.repo.ListForDoctor(ctx, actor.ID, status, limit, offset)
	} else {
		out, total, err = s.repo.ListForPatient(ctx, actor.ID, status, limit, offset)
	}
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list prescriptions", err)
	}
	return out, total, nil
}

// ListForConsultation returns all prescriptions issued on one consultation,
// to its participants or an admin.
func (s *Service) ListForConsultation(ctx context.Context, actor *auth.Principal, consultationID uuid.UUID) ([]*Prescription, error) {
	c, err := s.consult.Get(ctx, consultationID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.E(apperr.KindNotFound, "consultation not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load consultation", err)
	}
	if actor.Role != auth.RoleAdmin && !c.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this consultation")
	}

	out, err := s.repo.ListForConsultation(ctx, consultationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list prescriptions", err)
	}
	return out, nil
}

// Stats tallies the caller's prescriptions by status.
func (s *Service) Stats(ctx context.Context, actor *auth.Principal) (*StatusCounts, error) {
	counts, err := s.repo.CountByStatusForUser(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "prescription stats", err)
	}
	return counts, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.E(apperr.KindNotFound, "prescription not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load prescription", err)
	}
	return p, nil
}

func validateMedications(meds []Medication) error {
	if len(meds) == 0 {
		return apperr.E(apperr.KindValidation, "at least one medication is required")
	}
	for i, m := range meds {
		if strings.TrimSpace(m.Name) == "" {
			return apperr.Ef(apperr.KindValidation, "medication %d: name is required", i+1)
		}
		if strings.TrimSpace(m.Dosage) == "" {
			return apperr.Ef(apperr.KindValidation, "medication %d: dosage is required", i+1)
		}
	}
	return nil
}
