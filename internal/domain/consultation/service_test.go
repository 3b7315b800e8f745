package consultation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
)

type mockRepo struct {
	byID     map[uuid.UUID]*Consultation
	messages map[uuid.UUID][]*Message
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		byID:     make(map[uuid.UUID]*Consultation),
		messages: make(map[uuid.UUID][]*Message),
	}
}

func (m *mockRepo) Create(_ context.Context, c *Consultation) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Consultation, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, c *Consultation) error {
	if _, ok := m.byID[c.ID]; !ok {
		return pgx.ErrNoRows
	}
	c.UpdatedAt = time.Now()
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *mockRepo) ListOpen(_ context.Context, doctorID uuid.UUID, severity, category string, limit, offset int) ([]*Consultation, int, error) {
	var out []*Consultation
	for _, c := range m.byID {
		if c.Status != StatusPending {
			continue
		}
		if c.PreferredDoctorID != nil && *c.PreferredDoctorID != doctorID {
			continue
		}
		if severity != "" && c.Severity != severity {
			continue
		}
		if category != "" && c.Category != category {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) ListForPatient(_ context.Context, patientID uuid.UUID, status string, _, _ int) ([]*Consultation, int, error) {
	var out []*Consultation
	for _, c := range m.byID {
		if c.PatientID != patientID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) ListForDoctor(_ context.Context, doctorID uuid.UUID, status string, _, _ int) ([]*Consultation, int, error) {
	var out []*Consultation
	for _, c := range m.byID {
		if c.DoctorID == nil || *c.DoctorID != doctorID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) CountByStatusForUser(_ context.Context, userID uuid.UUID) (*StatusCounts, error) {
	var counts StatusCounts
	for _, c := range m.byID {
		if c.PatientID != userID && (c.DoctorID == nil || *c.DoctorID != userID) {
			continue
		}
		switch c.Status {
		case StatusPending:
			counts.Pending++
		case StatusAnswered:
			counts.Answered++
		case StatusClosed:
			counts.Closed++
		}
		counts.Total++
	}
	return &counts, nil
}

func (m *mockRepo) AddMessage(_ context.Context, msg *Message) error {
	msg.ID = uuid.New()
	msg.SentAt = time.Now()
	cp := *msg
	m.messages[msg.ConsultationID] = append(m.messages[msg.ConsultationID], &cp)
	return nil
}

func (m *mockRepo) ListMessages(_ context.Context, consultationID uuid.UUID) ([]*Message, error) {
	return m.messages[consultationID], nil
}

type sentNote struct {
	senderID uuid.UUID
	userID   uuid.UUID
	ntype    string
}

type mockNotifier struct{ sent []sentNote }

func (m *mockNotifier) Notify(_ context.Context, senderID, userID uuid.UUID, ntype, _, _ string, _ *uuid.UUID) error {
	m.sent = append(m.sent, sentNote{senderID: senderID, userID: userID, ntype: ntype})
	return nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockRepo, *mockNotifier) {
	repo := newMockRepo()
	notes := &mockNotifier{}
	return NewService(repo, passthroughTx, notes), repo, notes
}

func patient() *auth.Principal { return &auth.Principal{ID: uuid.New(), Role: auth.RolePatient} }
func doctor() *auth.Principal  { return &auth.Principal{ID: uuid.New(), Role: auth.RoleDoctor} }

func ask(question, symptoms string) CreateRequest {
	return CreateRequest{Question: question, Symptoms: symptoms}
}

func answer(text string) RespondRequest { return RespondRequest{Response: text} }

func TestCreate_PatientOnlyAndValidation(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Create(context.Background(), doctor(), ask("why?", "headache")); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("want forbidden for doctor, got %v", err)
	}
	if _, err := svc.Create(context.Background(), patient(), ask("   ", "headache")); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("want validation for empty question, got %v", err)
	}
	if _, err := svc.Create(context.Background(), patient(), ask("why?", "   ")); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("want validation for empty symptoms, got %v", err)
	}
	if _, err := svc.Create(context.Background(), patient(), CreateRequest{
		Question: "q", Symptoms: "s", Severity: "catastrophic",
	}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("want validation for unknown severity, got %v", err)
	}
	if _, err := svc.Create(context.Background(), patient(), CreateRequest{
		Question: "q", Symptoms: "s", Category: "gossip",
	}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("want validation for unknown category, got %v", err)
	}

	c, err := svc.Create(context.Background(), patient(), ask("Should I worry?", "persistent headache"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Status != StatusPending || c.DoctorID != nil {
		t.Fatalf("new consultation should be unclaimed pending: %+v", c)
	}
	if c.Severity != SeverityMedium || c.Category != CategoryGeneral {
		t.Fatalf("defaults not applied: %+v", c)
	}
}

func TestRespond_FirstDoctorWins(t *testing.T) {
	svc, _, notes := newTestService()
	pat := patient()
	c, err := svc.Create(context.Background(), pat, ask("What is this?", "rash on arm"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, second := doctor(), doctor()
	answered, err := svc.Respond(context.Background(), first, c.ID, answer("Looks like contact dermatitis."))
	if err != nil {
		t.Fatalf("first respond: %v", err)
	}
	if answered.Status != StatusAnswered || answered.DoctorID == nil || *answered.DoctorID != first.ID {
		t.Fatalf("claim not recorded: %+v", answered)
	}
	if answered.RespondedAt == nil {
		t.Fatal("responded_at not set")
	}

	_, err = svc.Respond(context.Background(), second, c.ID, answer("I disagree."))
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("second doctor should conflict, got %v", err)
	}

	// The claiming doctor may revise their answer.
	revised, err := svc.Respond(context.Background(), first, c.ID, answer("Updated: try hydrocortisone."))
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if *revised.Response != "Updated: try hydrocortisone." {
		t.Fatalf("revision not applied: %+v", revised)
	}

	// Patient was notified of the response (twice, once per respond), with
	// the responding doctor as sender.
	if len(notes.sent) != 2 || notes.sent[0].userID != pat.ID || notes.sent[0].ntype != "consultation_answered" {
		t.Fatalf("unexpected notifications: %+v", notes.sent)
	}
	if notes.sent[0].senderID != first.ID {
		t.Fatalf("sender should be the responding doctor: %+v", notes.sent[0])
	}
}

func TestRespond_RecordsDiagnosisAndPrescriptionNote(t *testing.T) {
	svc, _, _ := newTestService()
	pat := patient()
	doc := doctor()
	c, _ := svc.Create(context.Background(), pat, ask("Is this serious?", "swollen ankle"))

	diag := "Mild sprain"
	note := "Ibuprofen 400mg as needed"
	answered, err := svc.Respond(context.Background(), doc, c.ID, RespondRequest{
		Response:         "Rest, ice, compression.",
		Diagnosis:        &diag,
		PrescriptionNote: &note,
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if answered.Diagnosis == nil || *answered.Diagnosis != diag {
		t.Fatalf("diagnosis not recorded: %+v", answered)
	}
	if answered.PrescriptionNote == nil || *answered.PrescriptionNote != note {
		t.Fatalf("prescription note not recorded: %+v", answered)
	}

	// A revision without annotations keeps the earlier ones.
	revised, err := svc.Respond(context.Background(), doc, c.ID, answer("Also elevate the foot."))
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if revised.Diagnosis == nil || *revised.Diagnosis != diag {
		t.Fatalf("revision dropped diagnosis: %+v", revised)
	}
}

func TestRespond_ClosedIsInvalidState(t *testing.T) {
	svc, _, _ := newTestService()
	pat := patient()
	c, _ := svc.Create(context.Background(), pat, ask("Help?", "sore throat"))
	if _, err := svc.Close(context.Background(), pat, c.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := svc.Respond(context.Background(), doctor(), c.ID, answer("too late"))
	if apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("want invalid state on closed, got %v", err)
	}
}

func TestClose_ParticipantsOnlyAndIdempotent(t *testing.T) {
	svc, _, _ := newTestService()
	pat := patient()
	doc := doctor()
	c, _ := svc.Create(context.Background(), pat, ask("What helps?", "back pain"))
	if _, err := svc.Respond(context.Background(), doc, c.ID, answer("Rest and ibuprofen.")); err != nil {
		t.Fatalf("respond: %v", err)
	}

	if _, err := svc.Close(context.Background(), doctor(), c.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("stranger doctor should be forbidden, got %v", err)
	}

	closed, err := svc.Close(context.Background(), doc, c.ID)
	if err != nil {
		t.Fatalf("close by responder: %v", err)
	}
	if closed.Status != StatusClosed || closed.ClosedAt == nil {
		t.Fatalf("not closed: %+v", closed)
	}

	again, err := svc.Close(context.Background(), pat, c.ID)
	if err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	if !again.ClosedAt.Equal(*closed.ClosedAt) {
		t.Fatal("second close changed closed_at")
	}
}

func TestMessages_ParticipantThread(t *testing.T) {
	svc, _, notes := newTestService()
	pat := patient()
	doc := doctor()
	c, _ := svc.Create(context.Background(), pat, ask("Is this the flu?", "fever for 3 days"))
	if _, err := svc.Respond(context.Background(), doc, c.ID, answer("Any other symptoms?")); err != nil {
		t.Fatalf("respond: %v", err)
	}
	notes.sent = nil

	if _, err := svc.AddMessage(context.Background(), doctor(), c.ID, "hi"); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("stranger should be forbidden, got %v", err)
	}

	if _, err := svc.AddMessage(context.Background(), pat, c.ID, "Also a mild cough."); err != nil {
		t.Fatalf("patient message: %v", err)
	}
	if _, err := svc.AddMessage(context.Background(), doc, c.ID, "Keep hydrated, monitor temperature."); err != nil {
		t.Fatalf("doctor message: %v", err)
	}

	msgs, err := svc.ListMessages(context.Background(), pat, c.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].SenderID != pat.ID || msgs[1].SenderID != doc.ID {
		t.Fatalf("unexpected thread: %+v", msgs)
	}

	// Each message notified the other participant.
	if len(notes.sent) != 2 || notes.sent[0].userID != doc.ID || notes.sent[1].userID != pat.ID {
		t.Fatalf("unexpected notifications: %+v", notes.sent)
	}

	if _, err := svc.Close(context.Background(), pat, c.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := svc.AddMessage(context.Background(), pat, c.ID, "one more"); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("message on closed should be invalid state, got %v", err)
	}
}

func TestListOpen_HidesAnsweredAndHonorsPreferredDoctor(t *testing.T) {
	svc, _, _ := newTestService()
	pat := patient()
	preferred := doctor()
	other := doctor()

	a, _ := svc.Create(context.Background(), pat, CreateRequest{
		Question: "Can you follow up?", Symptoms: "chest tightness", PreferredDoctorID: &preferred.ID,
	})
	b, _ := svc.Create(context.Background(), pat, ask("Routine question", "general checkup question"))
	answered, _ := svc.Create(context.Background(), pat, ask("Quick one", "mild cold"))
	if _, err := svc.Respond(context.Background(), other, answered.ID, answer("All good.")); err != nil {
		t.Fatalf("respond: %v", err)
	}

	// The preferred doctor sees both open consultations.
	open, total, err := svc.ListOpen(context.Background(), preferred, "", "", 20, 0)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if total != 2 {
		t.Fatalf("preferred doctor should see 2 open, got %d", total)
	}
	for _, c := range open {
		if c.ID == answered.ID {
			t.Fatalf("answered consultation leaked into open list: %+v", open)
		}
	}

	// Any other doctor sees only the unrestricted one.
	open, total, err = svc.ListOpen(context.Background(), other, "", "", 20, 0)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if total != 1 || open[0].ID != b.ID {
		t.Fatalf("preferred-doctor consultation should be hidden, got %+v", open)
	}
	_ = a
}

func TestListOpen_SeverityAndCategoryFilters(t *testing.T) {
	svc, _, _ := newTestService()
	pat := patient()
	doc := doctor()

	urgent, _ := svc.Create(context.Background(), pat, CreateRequest{
		Question: "Now?", Symptoms: "severe chest pain", Severity: SeverityHigh, Category: CategoryEmergency,
	})
	if _, err := svc.Create(context.Background(), pat, ask("Later is fine", "itchy eyes")); err != nil {
		t.Fatalf("create: %v", err)
	}

	open, total, err := svc.ListOpen(context.Background(), doc, SeverityHigh, CategoryEmergency, 20, 0)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if total != 1 || open[0].ID != urgent.ID {
		t.Fatalf("severity/category filter failed: %+v", open)
	}
}

func TestListOwnAndStats(t *testing.T) {
	svc, _, _ := newTestService()
	pat := patient()
	doc := doctor()
	a, _ := svc.Create(context.Background(), pat, ask("First?", "first"))
	if _, err := svc.Respond(context.Background(), doc, a.ID, answer("answered")); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if _, err := svc.Create(context.Background(), pat, ask("Second?", "second")); err != nil {
		t.Fatalf("create: %v", err)
	}

	mine, total, err := svc.ListOwn(context.Background(), pat, "", 20, 0)
	if err != nil {
		t.Fatalf("list own: %v", err)
	}
	if total != 2 || len(mine) != 2 {
		t.Fatalf("patient should see both, got %d", total)
	}

	claimed, total, err := svc.ListOwn(context.Background(), doc, StatusAnswered, 20, 0)
	if err != nil {
		t.Fatalf("list own doctor: %v", err)
	}
	if total != 1 || claimed[0].ID != a.ID {
		t.Fatalf("doctor should see one claimed, got %+v", claimed)
	}

	if _, _, err := svc.ListOwn(context.Background(), pat, "bogus", 20, 0); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("bogus status filter should fail validation, got %v", err)
	}

	stats, err := svc.Stats(context.Background(), pat)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 || stats.Pending != 1 || stats.Answered != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
