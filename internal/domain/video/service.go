package video

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/domain/appointment"
	"github.com/telecare/telecare/internal/domain/consultation"
	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/internal/platform/db"
)

// ConsultationSource resolves consultations for room anchoring. Satisfied by
// the consultation repository.
type ConsultationSource interface {
	Get(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error)
}

// AppointmentSource resolves appointments for room anchoring. Satisfied by
// the appointment repository.
type AppointmentSource interface {
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
}

// Notifier delivers a notification to one user on behalf of a sender.
type Notifier interface {
	Notify(ctx context.Context, senderID, userID uuid.UUID, ntype, title, message string, refID *uuid.UUID) error
}

type Service struct {
	repo     Repository
	consults ConsultationSource
	appts    AppointmentSource
	notify   Notifier
}

func NewService(repo Repository, consults ConsultationSource, appts AppointmentSource, notify Notifier) *Service {
	return &Service{repo: repo, consults: consults, appts: appts, notify: notify}
}

// CreateRoom opens a video room anchored to exactly one consultation or
// appointment the caller participates in. The other participant is notified
// with the room code.
func (s *Service) CreateRoom(ctx context.Context, actor *auth.Principal, consultationID, appointmentID *uuid.UUID) (*Room, error) {
	if (consultationID == nil) == (appointmentID == nil) {
		return nil, apperr.E(apperr.KindValidation, "exactly one of consultation_id and appointment_id is required")
	}

	rm := &Room{
		RoomCode:  newRoomCode(),
		CreatedBy: actor.ID,
		Status:    StatusWaiting,
	}
	switch {
	case consultationID != nil:
		c, err := s.consults.Get(ctx, *consultationID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, apperr.E(apperr.KindNotFound, "consultation not found")
			}
			return nil, apperr.Wrap(apperr.KindInternal, "load consultation", err)
		}
		if c.DoctorID == nil {
			return nil, apperr.E(apperr.KindInvalidState, "consultation has no responding doctor yet")
		}
		if !c.IsParticipant(actor.ID) {
			return nil, apperr.E(apperr.KindForbidden, "not a participant in this consultation")
		}
		rm.ConsultationID = &c.ID
		rm.PatientID = c.PatientID
		rm.DoctorID = *c.DoctorID
	default:
		a, err := s.appts.Get(ctx, *appointmentID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, apperr.E(apperr.KindNotFound, "appointment not found")
			}
			return nil, apperr.Wrap(apperr.KindInternal, "load appointment", err)
		}
		if !a.IsParticipant(actor.ID) {
			return nil, apperr.E(apperr.KindForbidden, "not a participant in this appointment")
		}
		rm.AppointmentID = &a.ID
		rm.PatientID = a.PatientID
		rm.DoctorID = a.DoctorID
	}

	if err := s.repo.Create(ctx, rm); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create room", err)
	}

	if s.notify != nil {
		other := rm.PatientID
		if actor.ID == rm.PatientID {
			other = rm.DoctorID
		}
		_ = s.notify.Notify(ctx, actor.ID, other, "video_room_created",
			"Video call invitation", "A video call room is ready: "+rm.RoomCode, &rm.ID)
	}
	return rm, nil
}

// Join validates that the caller may enter the room identified by code and
// marks the room active on first entry. The websocket handshake happens in
// the handler; this is the admission check.
func (s *Service) Join(ctx context.Context, actor *auth.Principal, code string) (*Room, error) {
	rm, err := s.loadByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !rm.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this room")
	}
	if rm.Status == StatusEnded {
		return nil, apperr.E(apperr.KindInvalidState, "this call has ended")
	}

	if rm.Status == StatusWaiting {
		now := time.Now()
		rm.Status = StatusActive
		rm.StartedAt = &now
		if err := s.repo.Update(ctx, rm); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "activate room", err)
		}
	}
	return rm, nil
}

// End closes the room for good.
func (s *Service) End(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*Room, error) {
	rm, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rm.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this room")
	}
	if rm.Status == StatusEnded {
		return rm, nil
	}

	now := time.Now()
	rm.Status = StatusEnded
	rm.EndedAt = &now
	if err := s.repo.Update(ctx, rm); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "end room", err)
	}
	return rm, nil
}

// Get returns one room to its participants or an admin.
func (s *Service) Get(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*Room, error) {
	rm, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != auth.RoleAdmin && !rm.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this room")
	}
	return rm, nil
}

// ListOwn returns the caller's rooms, newest first.
func (s *Service) ListOwn(ctx context.Context, actor *auth.Principal, limit, offset int) ([]*Room, int, error) {
	out, total, err := s.repo.ListForUser(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list rooms", err)
	}
	return out, total, nil
}

// AddMessage stores an in-call chat line. Live fan-out to room peers is the
// websocket layer's job; persistence makes the chat reviewable afterwards.
func (s *Service) AddMessage(ctx context.Context, actor *auth.Principal, roomID uuid.UUID, body string) (*ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.E(apperr.KindValidation, "message body is required")
	}

	rm, err := s.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !rm.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this room")
	}
	if rm.Status == StatusEnded {
		return nil, apperr.E(apperr.KindInvalidState, "this call has ended")
	}

	m := &ChatMessage{RoomID: rm.ID, SenderID: actor.ID, Body: body}
	if err := s.repo.AddMessage(ctx, m); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "add message", err)
	}
	return m, nil
}

// ListMessages returns the room chat in send order.
func (s *Service) ListMessages(ctx context.Context, actor *auth.Principal, roomID uuid.UUID) ([]*ChatMessage, error) {
	rm, err := s.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if actor.Role != auth.RoleAdmin && !rm.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this room")
	}
	msgs, err := s.repo.ListMessages(ctx, roomID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list messages", err)
	}
	return msgs, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Room, error) {
	rm, err := s.repo.Get(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.E(apperr.KindNotFound, "room not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load room", err)
	}
	return rm, nil
}

func (s *Service) loadByCode(ctx context.Context, code string) (*Room, error) {
	rm, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.E(apperr.KindNotFound, "room not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load room", err)
	}
	return rm, nil
}

// newRoomCode returns a short join code. 8 random bytes keep collisions
// implausible at this scale; the column's unique index catches the rest.
func newRoomCode() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}
