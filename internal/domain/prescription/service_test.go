package prescription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/telecare/telecare/internal/domain/consultation"
	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
)

type mockRepo struct {
	byID map[uuid.UUID]*Prescription
}

func newMockRepo() *mockRepo { return &mockRepo{byID: make(map[uuid.UUID]*Prescription)} }

func (m *mockRepo) Create(_ context.Context, p *Prescription) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Prescription, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, p *Prescription) error {
	if _, ok := m.byID[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	p.UpdatedAt = time.Now()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *mockRepo) ListForPatient(_ context.Context, patientID uuid.UUID, status string, _, _ int) ([]*Prescription, int, error) {
	var out []*Prescription
	for _, p := range m.byID {
		if p.PatientID != patientID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) ListForDoctor(_ context.Context, doctorID uuid.UUID, status string, _, _ int) ([]*Prescription, int, error) {
	var out []*Prescription
	for _, p := range m.byID {
		if p.DoctorID != doctorID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) ListForConsultation(_ context.Context, consultationID uuid.UUID) ([]*Prescription, error) {
	var out []*Prescription
	for _, p := range m.byID {
		if p.ConsultationID == consultationID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) CountByStatusForUser(_ context.Context, userID uuid.UUID) (*StatusCounts, error) {
	var counts StatusCounts
	for _, p := range m.byID {
		if !p.IsParticipant(userID) {
			continue
		}
		switch p.Status {
		case StatusActive:
			counts.Active++
		case StatusCompleted:
			counts.Completed++
		case StatusCancelled:
			counts.Cancelled++
		}
		counts.Total++
	}
	return &counts, nil
}

type mockConsultSource struct {
	byID map[uuid.UUID]*consultation.Consultation
}

func (m *mockConsultSource) Get(_ context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

type mockNotifier struct{ sent []uuid.UUID }

func (m *mockNotifier) Notify(_ context.Context, _, userID uuid.UUID, _, _, _ string, _ *uuid.UUID) error {
	m.sent = append(m.sent, userID)
	return nil
}

type fixture struct {
	svc     *Service
	notes   *mockNotifier
	patient *auth.Principal
	doctor  *auth.Principal
	consult *consultation.Consultation
}

func newFixture() *fixture {
	pat := &auth.Principal{ID: uuid.New(), Role: auth.RolePatient}
	doc := &auth.Principal{ID: uuid.New(), Role: auth.RoleDoctor}
	docID := doc.ID
	c := &consultation.Consultation{
		ID:        uuid.New(),
		PatientID: pat.ID,
		DoctorID:  &docID,
		Status:    consultation.StatusAnswered,
	}
	consultSrc := &mockConsultSource{byID: map[uuid.UUID]*consultation.Consultation{c.ID: c}}
	notes := &mockNotifier{}
	return &fixture{
		svc:     NewService(newMockRepo(), consultSrc, notes),
		notes:   notes,
		patient: pat,
		doctor:  doc,
		consult: c,
	}
}

func amoxicillin() []Medication {
	return []Medication{{
		Name: "Amoxicillin", Dosage: "500mg", Frequency: "3x daily",
		Duration: "7 days", Instructions: "take with food",
	}}
}

func TestCreate_RespondingDoctorOnly(t *testing.T) {
	f := newFixture()

	p, err := f.svc.Create(context.Background(), f.doctor, f.consult.ID, amoxicillin(), "Take with food.")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.PatientID != f.patient.ID || p.Status != StatusActive {
		t.Fatalf("unexpected prescription: %+v", p)
	}
	if p.Medications[0].Instructions != "take with food" {
		t.Fatalf("medication instructions dropped: %+v", p.Medications[0])
	}
	if len(f.notes.sent) != 1 || f.notes.sent[0] != f.patient.ID {
		t.Fatalf("patient not notified: %+v", f.notes.sent)
	}

	// A doctor who did not answer the consultation cannot prescribe on it.
	other := &auth.Principal{ID: uuid.New(), Role: auth.RoleDoctor}
	if _, err := f.svc.Create(context.Background(), other, f.consult.ID, amoxicillin(), ""); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("want forbidden for other doctor, got %v", err)
	}

	if _, err := f.svc.Create(context.Background(), f.doctor, uuid.New(), amoxicillin(), ""); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("want not found for unknown consultation, got %v", err)
	}
}

func TestCreate_MedicationValidation(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.Create(context.Background(), f.doctor, f.consult.ID, nil, ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("want validation for empty medications, got %v", err)
	}
	bad := []Medication{{Name: "Ibuprofen"}}
	if _, err := f.svc.Create(context.Background(), f.doctor, f.consult.ID, bad, ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("want validation for missing dosage, got %v", err)
	}
}

func TestUpdate_OwnerOnlyWhileActive(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), f.doctor, f.consult.ID, amoxicillin(), "Take with food.")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Update(context.Background(), f.patient, p.ID, nil, nil); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("patient update should be forbidden, got %v", err)
	}

	newMeds := []Medication{{Name: "Amoxicillin", Dosage: "250mg", Frequency: "2x daily"}}
	updated, err := f.svc.Update(context.Background(), f.doctor, p.ID, newMeds, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Medications[0].Dosage != "250mg" || updated.Instructions != "Take with food." {
		t.Fatalf("unexpected after update: %+v", updated)
	}

	if _, err := f.svc.MarkCompleted(context.Background(), f.patient, p.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.Update(context.Background(), f.doctor, p.ID, newMeds, nil); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("update on completed should be invalid state, got %v", err)
	}
}

func TestMarkCompleted_ParticipantsAndIdempotent(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), f.doctor, f.consult.ID, amoxicillin(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stranger := &auth.Principal{ID: uuid.New(), Role: auth.RolePatient}
	if _, err := f.svc.MarkCompleted(context.Background(), stranger, p.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("stranger complete should be forbidden, got %v", err)
	}

	done, err := f.svc.MarkCompleted(context.Background(), f.patient, p.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Fatalf("not completed: %+v", done)
	}

	if _, err := f.svc.MarkCompleted(context.Background(), f.doctor, p.ID); err != nil {
		t.Fatalf("second complete should be a no-op, got %v", err)
	}
}

func TestCancel_PrescribingDoctorOnly(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), f.doctor, f.consult.ID, amoxicillin(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Cancel(context.Background(), f.patient, p.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("patient cancel should be forbidden, got %v", err)
	}

	cancelled, err := f.svc.Cancel(context.Background(), f.doctor, p.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("not cancelled: %+v", cancelled)
	}
	// Patient is told about both the issue and the cancellation.
	if len(f.notes.sent) != 2 || f.notes.sent[1] != f.patient.ID {
		t.Fatalf("patient not notified of cancellation: %+v", f.notes.sent)
	}

	if _, err := f.svc.Cancel(context.Background(), f.doctor, p.ID); err != nil {
		t.Fatalf("second cancel should be a no-op, got %v", err)
	}
	if _, err := f.svc.MarkCompleted(context.Background(), f.patient, p.ID); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("complete on cancelled should be invalid state, got %v", err)
	}
	if _, err := f.svc.Update(context.Background(), f.doctor, p.ID, amoxicillin(), nil); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("update on cancelled should be invalid state, got %v", err)
	}
}

func TestCancel_CompletedCannotBeCancelled(t *testing.T) {
	f := newFixture()
	p, err := f.svc.Create(context.Background(), f.doctor, f.consult.ID, amoxicillin(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.MarkCompleted(context.Background(), f.patient, p.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), f.doctor, p.ID); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("cancel on completed should be invalid state, got %v", err)
	}
}

func TestListOwnAndForConsultation(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Create(context.Background(), f.doctor, f.consult.ID, amoxicillin(), ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	mine, total, err := f.svc.ListOwn(context.Background(), f.patient, "", 20, 0)
	if err != nil {
		t.Fatalf("list own patient: %v", err)
	}
	if total != 1 || len(mine) != 1 {
		t.Fatalf("patient should see one, got %d", total)
	}

	issued, total, err := f.svc.ListOwn(context.Background(), f.doctor, StatusActive, 20, 0)
	if err != nil {
		t.Fatalf("list own doctor: %v", err)
	}
	if total != 1 || len(issued) != 1 {
		t.Fatalf("doctor should see one active, got %d", total)
	}

	onConsult, err := f.svc.ListForConsultation(context.Background(), f.patient, f.consult.ID)
	if err != nil {
		t.Fatalf("list for consultation: %v", err)
	}
	if len(onConsult) != 1 {
		t.Fatalf("consultation listing should have one, got %d", len(onConsult))
	}

	stranger := &auth.Principal{ID: uuid.New(), Role: auth.RolePatient}
	if _, err := f.svc.ListForConsultation(context.Background(), stranger, f.consult.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("stranger listing should be forbidden, got %v", err)
	}
}

func TestStats_CountsByStatus(t *testing.T) {
	f := newFixture()

	first, err := f.svc.Create(context.Background(), f.doctor, f.consult.ID, amoxicillin(), "")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := f.svc.Create(context.Background(), f.doctor, f.consult.ID, amoxicillin(), ""); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := f.svc.MarkCompleted(context.Background(), f.patient, first.ID); err != nil {
		t.Fatalf("complete first: %v", err)
	}

	counts, err := f.svc.Stats(context.Background(), f.patient)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if counts.Active != 1 || counts.Completed != 1 || counts.Total != 2 {
		t.Fatalf("got %+v, want 1 active, 1 completed, 2 total", counts)
	}

	stranger := &auth.Principal{ID: uuid.New(), Role: auth.RolePatient}
	empty, err := f.svc.Stats(context.Background(), stranger)
	if err != nil {
		t.Fatalf("stranger stats: %v", err)
	}
	if empty.Total != 0 {
		t.Fatalf("stranger should have zero prescriptions, got %d", empty.Total)
	}
}
