package review

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/telecare/telecare/internal/domain/profile"
	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
)

type pair struct{ patient, doctor uuid.UUID }

type mockRepo struct {
	byID         map[uuid.UUID]*Review
	interactions map[pair]bool
	names        map[uuid.UUID]string
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		byID:         make(map[uuid.UUID]*Review),
		interactions: make(map[pair]bool),
		names:        make(map[uuid.UUID]string),
	}
}

func sameRef(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *mockRepo) Create(_ context.Context, rv *Review) error {
	for _, existing := range m.byID {
		if existing.PatientID == rv.PatientID && existing.DoctorID == rv.DoctorID &&
			sameRef(existing.ConsultationID, rv.ConsultationID) &&
			sameRef(existing.AppointmentID, rv.AppointmentID) {
			return &pgconn.PgError{Code: "23505", ConstraintName: "reviews_interaction_idx"}
		}
	}
	rv.ID = uuid.New()
	rv.CreatedAt = time.Now()
	cp := *rv
	m.byID[rv.ID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Review, error) {
	rv, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *rv
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, rv *Review) error {
	if _, ok := m.byID[rv.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *rv
	m.byID[rv.ID] = &cp
	return nil
}

func (m *mockRepo) HadInteraction(_ context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	return m.interactions[pair{patientID, doctorID}], nil
}

func (m *mockRepo) ListForDoctor(_ context.Context, doctorID uuid.UUID, rating, _, _ int) ([]*reviewWithName, int, error) {
	var out []*reviewWithName
	for _, rv := range m.byID {
		if rv.DoctorID != doctorID {
			continue
		}
		if rating != 0 && rv.Rating != rating {
			continue
		}
		out = append(out, &reviewWithName{Review: *rv, PatientName: m.names[rv.PatientID]})
	}
	return out, len(out), nil
}

type mockRatings struct {
	profiles map[uuid.UUID]*profile.DoctorProfile
}

func (m *mockRatings) ApplyRating(_ context.Context, doctorID uuid.UUID, rating int) (*profile.DoctorProfile, error) {
	d, ok := m.profiles[doctorID]
	if !ok {
		// First rating for a doctor without a profile row seeds one.
		d = &profile.DoctorProfile{UserID: doctorID}
		m.profiles[doctorID] = d
	}
	d.Rating = (d.Rating*float64(d.TotalReviews) + float64(rating)) / float64(d.TotalReviews+1)
	d.TotalReviews++
	cp := *d
	return &cp, nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockRepo, *mockRatings, uuid.UUID) {
	repo := newMockRepo()
	doctorID := uuid.New()
	ratings := &mockRatings{profiles: map[uuid.UUID]*profile.DoctorProfile{
		doctorID: {UserID: doctorID, FullName: "Dr. Incognito", Specialization: "gp", LicenseNumber: "MD-7"},
	}}
	return NewService(repo, ratings, passthroughTx), repo, ratings, doctorID
}

func patientWithInteraction(repo *mockRepo, doctorID uuid.UUID) *auth.Principal {
	p := &auth.Principal{ID: uuid.New(), Role: auth.RolePatient}
	repo.interactions[pair{p.ID, doctorID}] = true
	return p
}

func rated(doctorID uuid.UUID, rating int) CreateRequest {
	return CreateRequest{DoctorID: doctorID, Rating: rating, Title: "Visit summary", Recommend: true}
}

func TestCreate_RequiresInteraction(t *testing.T) {
	svc, repo, _, doctorID := newTestService()

	stranger := &auth.Principal{ID: uuid.New(), Role: auth.RolePatient}
	_, err := svc.Create(context.Background(), stranger, rated(doctorID, 5))
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("no interaction should be forbidden, got %v", err)
	}

	pat := patientWithInteraction(repo, doctorID)
	rv, err := svc.Create(context.Background(), pat, rated(doctorID, 4))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rv.Rating != 4 || rv.PatientID != pat.ID || rv.Title != "Visit summary" || !rv.Recommend {
		t.Fatalf("unexpected review: %+v", rv)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, repo, _, doctorID := newTestService()
	pat := patientWithInteraction(repo, doctorID)

	for _, bad := range []int{0, 6, -1} {
		if _, err := svc.Create(context.Background(), pat, rated(doctorID, bad)); apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("rating %d should fail validation, got %v", bad, err)
		}
	}

	untitled := rated(doctorID, 5)
	untitled.Title = "   "
	if _, err := svc.Create(context.Background(), pat, untitled); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("blank title should fail validation, got %v", err)
	}
}

func TestCreate_OneReviewPerInteraction(t *testing.T) {
	svc, repo, _, doctorID := newTestService()
	pat := patientWithInteraction(repo, doctorID)

	first := uuid.New()
	second := uuid.New()

	req := rated(doctorID, 5)
	req.AppointmentID = &first
	if _, err := svc.Create(context.Background(), pat, req); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Reviewing the same appointment again is a duplicate.
	dup := rated(doctorID, 3)
	dup.AppointmentID = &first
	if _, err := svc.Create(context.Background(), pat, dup); apperr.KindOf(err) != apperr.KindDuplicateReview {
		t.Fatalf("same appointment should be duplicate, got %v", err)
	}

	// A different appointment with the same doctor is a fresh interaction.
	other := rated(doctorID, 4)
	other.AppointmentID = &second
	if _, err := svc.Create(context.Background(), pat, other); err != nil {
		t.Fatalf("second appointment review: %v", err)
	}

	// Same for a consultation with that doctor.
	consult := rated(doctorID, 4)
	consult.ConsultationID = &first
	if _, err := svc.Create(context.Background(), pat, consult); err != nil {
		t.Fatalf("consultation review: %v", err)
	}
}

func TestCreate_UpdatesRunningAverage(t *testing.T) {
	svc, repo, ratings, doctorID := newTestService()

	given := []int{5, 3, 4, 4, 2, 5, 1}
	for _, r := range given {
		pat := patientWithInteraction(repo, doctorID)
		if _, err := svc.Create(context.Background(), pat, rated(doctorID, r)); err != nil {
			t.Fatalf("create rating %d: %v", r, err)
		}
	}

	sum := 0
	for _, r := range given {
		sum += r
	}
	want := float64(sum) / float64(len(given))
	got := ratings.profiles[doctorID]
	if got.TotalReviews != len(given) {
		t.Fatalf("total reviews = %d, want %d", got.TotalReviews, len(given))
	}
	if diff := got.Rating - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("average = %v, want %v", got.Rating, want)
	}
}

func TestCreate_SeedsProfileOnFirstRating(t *testing.T) {
	svc, repo, ratings, _ := newTestService()

	// A doctor with no profile row yet.
	newDoctor := uuid.New()
	pat := patientWithInteraction(repo, newDoctor)
	if _, err := svc.Create(context.Background(), pat, rated(newDoctor, 4)); err != nil {
		t.Fatalf("first review for profile-less doctor: %v", err)
	}

	got, ok := ratings.profiles[newDoctor]
	if !ok {
		t.Fatal("profile row not created")
	}
	if got.TotalReviews != 1 || got.Rating != 4 {
		t.Fatalf("seeded profile = %+v, want rating 4 from 1 review", got)
	}
}

func TestRespond_ReviewedDoctorOnly(t *testing.T) {
	svc, repo, _, doctorID := newTestService()
	pat := patientWithInteraction(repo, doctorID)
	comment := "Very thorough."
	req := rated(doctorID, 5)
	req.Comment = &comment
	rv, err := svc.Create(context.Background(), pat, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other := &auth.Principal{ID: uuid.New(), Role: auth.RoleDoctor}
	if _, err := svc.Respond(context.Background(), other, rv.ID, "thanks"); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("other doctor should be forbidden, got %v", err)
	}

	doc := &auth.Principal{ID: doctorID, Role: auth.RoleDoctor}
	answered, err := svc.Respond(context.Background(), doc, rv.ID, "Thank you for the kind words.")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if answered.DoctorResponse == nil || answered.RespondedAt == nil {
		t.Fatalf("response not recorded: %+v", answered)
	}

	if _, err := svc.Respond(context.Background(), doc, uuid.New(), "x"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown review should be not found, got %v", err)
	}
}

func TestListForDoctor_AnonymizesNames(t *testing.T) {
	svc, repo, _, doctorID := newTestService()

	named := patientWithInteraction(repo, doctorID)
	repo.names[named.ID] = "Beatriz"
	if _, err := svc.Create(context.Background(), named, rated(doctorID, 5)); err != nil {
		t.Fatalf("create: %v", err)
	}

	nameless := patientWithInteraction(repo, doctorID)
	if _, err := svc.Create(context.Background(), nameless, rated(doctorID, 3)); err != nil {
		t.Fatalf("create: %v", err)
	}

	out, total, err := svc.ListForDoctor(context.Background(), doctorID, 0, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 {
		t.Fatalf("want 2 reviews, got %d", total)
	}
	seen := map[string]bool{}
	for _, rv := range out {
		seen[rv.PatientName] = true
	}
	if !seen["B***"] || !seen["Anonymous"] {
		t.Fatalf("unexpected anonymized names: %v", seen)
	}
}

func TestListForDoctor_RatingFilter(t *testing.T) {
	svc, repo, _, doctorID := newTestService()

	for _, r := range []int{5, 3, 5} {
		pat := patientWithInteraction(repo, doctorID)
		if _, err := svc.Create(context.Background(), pat, rated(doctorID, r)); err != nil {
			t.Fatalf("create rating %d: %v", r, err)
		}
	}

	out, total, err := svc.ListForDoctor(context.Background(), doctorID, 5, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 {
		t.Fatalf("want 2 five-star reviews, got %d", total)
	}
	for _, rv := range out {
		if rv.Rating != 5 {
			t.Fatalf("filter leaked rating %d", rv.Rating)
		}
	}

	if _, _, err := svc.ListForDoctor(context.Background(), doctorID, 9, 20, 0); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("out-of-range filter should fail validation, got %v", err)
	}
}
