package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/domain/profile"
	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/internal/platform/db"
)

// slotMinutes is the booking granularity of the availability grid.
const slotMinutes = 30

// TxRunner executes fn inside a database transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// DoctorDirectory resolves doctor profiles, for availability checks at
// booking time. Satisfied by the profile service.
type DoctorDirectory interface {
	GetDoctor(ctx context.Context, doctorID uuid.UUID) (*profile.DoctorProfile, error)
}

// Notifier delivers a notification to one user on behalf of a sender.
type Notifier interface {
	Notify(ctx context.Context, senderID, userID uuid.UUID, ntype, title, message string, refID *uuid.UUID) error
}

type Service struct {
	repo    Repository
	doctors DoctorDirectory
	tx      TxRunner
	notify  Notifier
}

func NewService(repo Repository, doctors DoctorDirectory, tx TxRunner, notify Notifier) *Service {
	return &Service{repo: repo, doctors: doctors, tx: tx, notify: notify}
}

// BookRequest carries a patient's booking. Date is the calendar day and
// StartTime the slot in "HH:MM". Type defaults to consultation and
// DurationMinutes to one slot length.
type BookRequest struct {
	DoctorID        uuid.UUID
	Date            time.Time
	StartTime       string
	Type            string
	DurationMinutes int
	Reason          string
	Urgent          bool
}

// Book reserves a slot with a doctor. The conflict check and the insert run
// in one transaction; a unique index on the live slot backs the check up, so
// two patients racing for the same slot cannot both succeed. Urgent bookings
// skip the advertised-hours check but not the conflict check.
func (s *Service) Book(ctx context.Context, actor *auth.Principal, req BookRequest) (*Appointment, error) {
	if actor.Role != auth.RolePatient {
		return nil, apperr.E(apperr.KindForbidden, "only patients may book appointments")
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return nil, apperr.E(apperr.KindValidation, "reason is required")
	}
	if _, err := time.Parse("15:04", req.StartTime); err != nil {
		return nil, apperr.E(apperr.KindValidation, "start_time must be HH:MM")
	}
	if req.Date.IsZero() {
		return nil, apperr.E(apperr.KindValidation, "date is required")
	}
	today := time.Now().Truncate(24 * time.Hour)
	if req.Date.Before(today) {
		return nil, apperr.E(apperr.KindValidation, "date must not be in the past")
	}
	if req.Type == "" {
		req.Type = TypeConsultation
	}
	switch req.Type {
	case TypeConsultation, TypeCheckup, TypeFollowUp, TypeEmergency:
	default:
		return nil, apperr.E(apperr.KindValidation, "unknown appointment type")
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = slotMinutes
	}
	if req.DurationMinutes < 0 {
		return nil, apperr.E(apperr.KindValidation, "duration must be positive")
	}

	doc, err := s.doctors.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !req.Urgent && !withinAdvertisedHours(doc, req.Date, req.StartTime) {
		return nil, apperr.E(apperr.KindValidation, "doctor is not available at this time")
	}

	a := &Appointment{
		PatientID:       actor.ID,
		DoctorID:        req.DoctorID,
		Date:            req.Date,
		StartTime:       req.StartTime,
		Type:            req.Type,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
		Urgent:          req.Urgent,
		Status:          StatusScheduled,
	}
	err = s.tx(ctx, func(ctx context.Context) error {
		taken, err := s.repo.SlotTaken(ctx, a.DoctorID, a.Date, a.StartTime, uuid.Nil)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "check slot", err)
		}
		if taken {
			return apperr.E(apperr.KindSlotConflict, "this slot is already booked")
		}
		if err := s.repo.Create(ctx, a); err != nil {
			if db.IsUniqueViolation(err, "appointments_live_slot_idx") {
				return apperr.E(apperr.KindSlotConflict, "this slot is already booked")
			}
			return apperr.Wrap(apperr.KindInternal, "create appointment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notify != nil {
		_ = s.notify.Notify(ctx, actor.ID, a.DoctorID, "appointment_booked",
			"New appointment",
			fmt.Sprintf("An appointment was booked for %s at %s.", a.Date.Format("2006-01-02"), a.StartTime),
			&a.ID)
	}
	return a, nil
}

// Get returns one appointment to its participants or an admin.
func (s *Service) Get(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != auth.RoleAdmin && !a.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this appointment")
	}
	return a, nil
}

// ListOwn returns the caller's appointments, newest first.
func (s *Service) ListOwn(ctx context.Context, actor *auth.Principal, status string, limit, offset int) ([]*Appointment, int, error) {
	switch status {
	case "", StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
	default:
		return nil, 0, apperr.E(apperr.KindValidation, "unknown status filter")
	}

	var (
		out   []*Appointment
		total int
		err   error
	)
	if actor.Role == auth.RoleDoctor {
		out, total, err = s.repo.ListForDoctor(ctx, actor.ID, status, limit, offset)
	} else {
		out, total, err = s.repo.ListForPatient(ctx, actor.ID, status, limit, offset)
	}
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list appointments", err)
	}
	return out, total, nil
}

// maxAvailabilityDays caps how far ahead the availability grid reaches.
const maxAvailabilityDays = 30

// Availability returns the doctor's slot grids from the given day through
// daysAhead days later, inclusive. Days outside the doctor's advertised days
// yield an empty grid for that day.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, from time.Time, daysAhead int) ([]DayAvailability, error) {
	if daysAhead < 0 {
		return nil, apperr.E(apperr.KindValidation, "days_ahead must not be negative")
	}
	if daysAhead > maxAvailabilityDays {
		return nil, apperr.Ef(apperr.KindValidation, "days_ahead must be at most %d", maxAvailabilityDays)
	}

	doc, err := s.doctors.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	days := make([]DayAvailability, 0, daysAhead+1)
	for d := 0; d <= daysAhead; d++ {
		date := from.AddDate(0, 0, d)
		day := DayAvailability{
			Date:  date.Format("2006-01-02"),
			Day:   date.Weekday().String(),
			Slots: []Slot{},
		}

		grid := slotGrid(doc, date)
		if len(grid) > 0 {
			booked, err := s.repo.BookedTimes(ctx, doctorID, date)
			if err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, "load booked slots", err)
			}
			taken := make(map[string]struct{}, len(booked))
			for _, t := range booked {
				taken[t] = struct{}{}
			}
			for i := range grid {
				if _, ok := taken[grid[i].Time]; ok {
					grid[i].Available = false
				}
			}
			day.Slots = grid
		}
		days = append(days, day)
	}
	return days, nil
}

// UpdateRequest reschedules an appointment or amends its notes. Nil fields
// are untouched.
type UpdateRequest struct {
	Date      *time.Time
	StartTime *string
	Reason    *string
	Notes     *string
}

// Update amends a non-terminal appointment. Rescheduling re-runs the slot
// conflict check in a transaction.
func (s *Service) Update(ctx context.Context, actor *auth.Principal, id uuid.UUID, req UpdateRequest) (*Appointment, error) {
	var out *Appointment
	err := s.tx(ctx, func(ctx context.Context) error {
		a, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if !a.IsParticipant(actor.ID) {
			return apperr.E(apperr.KindForbidden, "not a participant in this appointment")
		}
		if IsTerminal(a.Status) {
			return apperr.Ef(apperr.KindInvalidState, "appointment is %s", a.Status)
		}

		reslot := false
		if req.Date != nil {
			a.Date = *req.Date
			reslot = true
		}
		if req.StartTime != nil {
			if _, err := time.Parse("15:04", *req.StartTime); err != nil {
				return apperr.E(apperr.KindValidation, "start_time must be HH:MM")
			}
			a.StartTime = *req.StartTime
			reslot = true
		}
		if req.Reason != nil {
			if strings.TrimSpace(*req.Reason) == "" {
				return apperr.E(apperr.KindValidation, "reason must not be empty")
			}
			a.Reason = *req.Reason
		}
		if req.Notes != nil {
			a.Notes = req.Notes
		}

		if reslot {
			taken, err := s.repo.SlotTaken(ctx, a.DoctorID, a.Date, a.StartTime, a.ID)
			if err != nil {
				return apperr.Wrap(apperr.KindInternal, "check slot", err)
			}
			if taken {
				return apperr.E(apperr.KindSlotConflict, "this slot is already booked")
			}
		}

		if err := s.repo.Update(ctx, a); err != nil {
			if db.IsUniqueViolation(err, "appointments_live_slot_idx") {
				return apperr.E(apperr.KindSlotConflict, "this slot is already booked")
			}
			return apperr.Wrap(apperr.KindInternal, "update appointment", err)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Confirm moves a scheduled appointment to confirmed. Doctor only.
func (s *Service) Confirm(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*Appointment, error) {
	return s.changeStatus(ctx, actor, id, StatusConfirmed)
}

// Start moves an appointment to in_progress. Doctor only.
func (s *Service) Start(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*Appointment, error) {
	return s.changeStatus(ctx, actor, id, StatusInProgress)
}

// Complete marks an appointment completed. Doctor only.
func (s *Service) Complete(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*Appointment, error) {
	return s.changeStatus(ctx, actor, id, StatusCompleted)
}

// MarkNoShow records that the patient did not attend. Doctor only.
func (s *Service) MarkNoShow(ctx context.Context, actor *auth.Principal, id uuid.UUID) (*Appointment, error) {
	return s.changeStatus(ctx, actor, id, StatusNoShow)
}

// Cancel cancels a non-terminal appointment, recording who cancelled and why.
// Either participant may cancel; the freed slot becomes bookable again
// immediately.
func (s *Service) Cancel(ctx context.Context, actor *auth.Principal, id uuid.UUID, reason *string) (*Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this appointment")
	}
	if !CanTransition(a.Status, StatusCancelled) {
		return nil, apperr.Ef(apperr.KindInvalidState, "cannot move a %s appointment to %s", a.Status, StatusCancelled)
	}

	now := time.Now()
	by := actor.ID
	a.Status = StatusCancelled
	a.CancelledAt = &now
	a.CancelledBy = &by
	if reason != nil && strings.TrimSpace(*reason) != "" {
		a.CancellationReason = reason
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "update appointment", err)
	}

	s.notifyStatus(ctx, actor, a)
	return a, nil
}

// changeStatus applies a doctor-driven transition. Cancellation has its own
// path since either participant may cancel.
func (s *Service) changeStatus(ctx context.Context, actor *auth.Principal, id uuid.UUID, to string) (*Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsParticipant(actor.ID) {
		return nil, apperr.E(apperr.KindForbidden, "not a participant in this appointment")
	}
	if actor.ID != a.DoctorID {
		return nil, apperr.E(apperr.KindForbidden, "only the doctor may do this")
	}
	if !CanTransition(a.Status, to) {
		return nil, apperr.Ef(apperr.KindInvalidState, "cannot move a %s appointment to %s", a.Status, to)
	}

	a.Status = to
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "update appointment", err)
	}

	s.notifyStatus(ctx, actor, a)
	return a, nil
}

// notifyStatus tells the other participant about a status change.
func (s *Service) notifyStatus(ctx context.Context, actor *auth.Principal, a *Appointment) {
	if s.notify == nil {
		return
	}
	recipient := a.PatientID
	if actor.ID == a.PatientID {
		recipient = a.DoctorID
	}
	_ = s.notify.Notify(ctx, actor.ID, recipient, "appointment_"+a.Status,
		"Appointment "+strings.ReplaceAll(a.Status, "_", " "),
		fmt.Sprintf("Your appointment on %s at %s is now %s.", a.Date.Format("2006-01-02"), a.StartTime, a.Status),
		&a.ID)
}

// Stats tallies the caller's appointments by status.
func (s *Service) Stats(ctx context.Context, actor *auth.Principal) (*StatusCounts, error) {
	counts, err := s.repo.CountByStatusForUser(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "appointment stats", err)
	}
	return counts, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.E(apperr.KindNotFound, "appointment not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load appointment", err)
	}
	return a, nil
}

// slotGrid expands the doctor's advertised hours into half-hour slots for the
// given day, all marked available. Empty when the doctor does not work that
// weekday or advertises no parsable hours.
func slotGrid(doc *profile.DoctorProfile, date time.Time) []Slot {
	if !worksOn(doc, date) {
		return nil
	}
	start, end, ok := parseHours(doc.AvailableHours)
	if !ok {
		return nil
	}

	var grid []Slot
	for t := start; t.Before(end); t = t.Add(slotMinutes * time.Minute) {
		grid = append(grid, Slot{Time: t.Format("15:04"), Available: true})
	}
	return grid
}

func withinAdvertisedHours(doc *profile.DoctorProfile, date time.Time, startTime string) bool {
	for _, s := range slotGrid(doc, date) {
		if s.Time == startTime {
			return true
		}
	}
	return false
}

func worksOn(doc *profile.DoctorProfile, date time.Time) bool {
	day := strings.ToLower(date.Weekday().String())
	for _, d := range doc.AvailableDays {
		if strings.ToLower(d) == day {
			return true
		}
	}
	return false
}

// parseHours splits "09:00-17:00" into clock times on the zero date.
func parseHours(hours string) (start, end time.Time, ok bool) {
	parts := strings.SplitN(hours, "-", 2)
	if len(parts) != 2 {
		return start, end, false
	}
	start, err := time.Parse("15:04", strings.TrimSpace(parts[0]))
	if err != nil {
		return start, end, false
	}
	end, err = time.Parse("15:04", strings.TrimSpace(parts[1]))
	if err != nil || !start.Before(end) {
		return start, end, false
	}
	return start, end, true
}
