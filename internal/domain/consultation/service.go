package consultation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/internal/platform/db"
)

// TxRunner executes fn inside a database transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Notifier delivers a notification to one user. Delivery is best effort from
// the caller's point of view; persistence is the notifier's problem.
type Notifier interface {
	Notify(ctx context.Context, senderID, userID uuid.UUID, ntype, title, message string, refID *uuid.UUID) error
}

type Service struct {
	repo   Repository
	tx     TxRunner
	notify Notifier
}

func NewService(repo Repository, tx TxRunner, notify Notifier) *Service {
	return &Service{repo: repo, tx: tx, notify: notify}
}

// CreateRequest is a patient's consultation submission. Severity defaults to
// medium and category to general when left empty.
type CreateRequest struct {
	Question          string
	Symptoms          string
	Severity          string
	Category          string
	PreferredDoctorID *uuid.UUID
}

// Create opens a pending consultation for the acting patient.
func (s *Service) Create(ctx context.Context, actor *auth.Principal, req CreateRequest) (*Consultation, error) {
	if actor.Role != auth.RolePatient {
		return nil, apperr.E(apperr.KindForbidden, "only patients may open consultations")
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return nil, apperr.E(apperr.KindValidation, "question is required")
	}
	req.Symptoms = strings.TrimSpace(req.Symptoms)
	if req.Symptoms == "" {
		return nil, apperr.E(apperr.KindValidation, "symptoms description is required")
	}
	if req.Severity == "" {
		req.Severity = SeverityMedium
	}
	switch req.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
	default:
		return nil, apperr.E(apperr.KindValidation, "severity must be low, medium or high")
	}
	if req.Category == "" {
		req.Category = CategoryGeneral
	}
	switch req.Category {
	case CategoryGeneral, CategoryEmergency, CategoryFollowup:
	default:
		return nil, apperr.E(apperr.KindValidation, "category must be general, emergency or followup")
	}

	c := &Consultation{
		PatientID:         actor.ID,
		Question:          req.Question,
		Symptoms:          req.Symptoms,
		Severity:          req.Severity,
		Category:          req.Category,
		PreferredDoctorID: req.PreferredDoctorID,
		Status:            StatusPending,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create consultation", err)
	}
	return c, nil
}

// Get returns one consultation to its participants or an admin.
func (s *Service) Get(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*Consultation, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != auth.RoleAdmin && !c.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this consultation")
	}
	return c, nil
}

// ListOpen returns pending consultations the acting doctor can pick up:
// those with no preferred doctor, or preferring exactly this one. Severity
// and category narrow the list when set.
func (s *Service) ListOpen(ctx context.Context, actor *auth.Principal, severity, category string, limit, offset int) ([]*Consultation, int, error) {
	out, total, err := s.repo.ListOpen(ctx, actor.ID, severity, category, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list open consultations", err)
	}
	return out, total, nil
}

// ListOwn returns the caller's consultations: authored ones for patients,
// claimed ones for doctors.
func (s *Service) ListOwn(ctx context.Context, actor *auth.Principal, status string, limit, offset int) ([]*Consultation, int, error) {
	switch status {
	case "", StatusPending, StatusAnswered, StatusClosed:
	default:
		return nil, 0, apperr.E(apperr.KindValidation, "unknown status filter")
	}

	var (
		out   []*Consultation
		total int
		err   error
	)
	if actor.Role == auth.RoleDoctor {
		out, total, err = s.repo.ListForDoctor(ctx, actor.ID, status, limit, offset)
	} else {
		out, total, err = s.repo.ListForPatient(ctx, actor.ID, status, limit, offset)
	}
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list consultations", err)
	}
	return out, total, nil
}

// RespondRequest carries a doctor's answer. Diagnosis and PrescriptionNote
// are optional free-text annotations.
type RespondRequest struct {
	Response         string
	Diagnosis        *string
	PrescriptionNote *string
}

// Respond claims a pending consultation for the acting doctor. The first
// doctor to respond wins; a later response by a different doctor fails with a
// conflict. The claiming doctor may revise their own response while the
// consultation stays open.
func (s *Service) Respond(ctx context.Context, actor *auth.Principal, id uuid.UUID, req RespondRequest) (*Consultation, error) {
	if actor.Role != auth.RoleDoctor {
		return nil, apperr.E(apperr.KindForbidden, "only doctors may respond")
	}
	req.Response = strings.TrimSpace(req.Response)
	if req.Response == "" {
		return nil, apperr.E(apperr.KindValidation, "response text is required")
	}

	var out *Consultation
	err := s.tx(ctx, func(ctx context.Context) error {
		c, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		switch c.Status {
		case StatusClosed:
			return apperr.E(apperr.KindInvalidState, "consultation already completed")
		case StatusAnswered:
			if c.DoctorID == nil || *c.DoctorID != actor.ID {
				return apperr.E(apperr.KindConflict, "another doctor has already responded")
			}
		}

		now := time.Now()
		doctorID := actor.ID
		c.DoctorID = &doctorID
		c.Response = &req.Response
		if req.Diagnosis != nil {
			c.Diagnosis = req.Diagnosis
		}
		if req.PrescriptionNote != nil {
			c.PrescriptionNote = req.PrescriptionNote
		}
		if c.Status == StatusPending {
			c.RespondedAt = &now
		}
		c.Status = StatusAnswered
		if err := s.repo.Update(ctx, c); err != nil {
			return apperr.Wrap(apperr.KindInternal, "save response", err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notify != nil {
		_ = s.notify.Notify(ctx, actor.ID, out.PatientID, "consultation_answered",
			"A doctor has responded", "Your consultation has received a response.", &out.ID)
	}
	return out, nil
}

// Close ends a consultation. The patient or the responding doctor may close
// it; closing an already closed consultation is a no-op.
func (s *Service) Close(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*Consultation, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this consultation")
	}
	if c.Status == StatusClosed {
		return c, nil
	}

	now := time.Now()
	c.Status = StatusClosed
	c.ClosedAt = &now
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "close consultation", err)
	}
	return c, nil
}

// AddMessage appends a follow-up message to an open consultation thread and
// notifies the other participant.
func (s *Service) AddMessage(ctx context.Context, actor *auth.Principal, id uuid.UUID, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.E(apperr.KindValidation, "message body is required")
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this consultation")
	}
	if c.Status == StatusClosed {
		return nil, apperr.E(apperr.KindInvalidState, "consultation already completed")
	}

	m := &Message{ConsultationID: c.ID, SenderID: actor.ID, Body: body}
	if err := s.repo.AddMessage(ctx, m); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "add message", err)
	}

	if s.notify != nil {
		recipient := c.PatientID
		if actor.ID == c.PatientID && c.DoctorID != nil {
			recipient = *c.DoctorID
		}
		if recipient != actor.ID {
			_ = s.notify.Notify(ctx, actor.ID, recipient, "consultation_message",
				"New consultation message", "You have a new message on a consultation.", &c.ID)
		}
	}
	return m, nil
}

// ListMessages returns the full thread in send order.
func (s *Service) ListMessages(ctx context.Context, actor *auth.Principal, id uuid.UUID) ([]*Message, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != auth.RoleAdmin && !c.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this consultation")
	}
	msgs, err := s.repo.ListMessages(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list messages", err)
	}
	return msgs, nil
}

// Stats tallies the caller's consultations by status.
func (s *Service) Stats(ctx context.Context, actor *auth.Principal) (*StatusCounts, error) {
	counts, err := s.repo.CountByStatusForUser(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "consultation stats", err)
	}
	return counts, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.E(apperr.KindNotFound, "consultation not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load consultation", err)
	}
	return c, nil
}
