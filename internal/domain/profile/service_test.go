package profile

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/telecare/telecare/internal/domain/identity"
	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
)

type mockPatientRepo struct {
	byUser map[uuid.UUID]*PatientProfile
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{byUser: make(map[uuid.UUID]*PatientProfile)}
}

func (m *mockPatientRepo) Get(_ context.Context, userID uuid.UUID) (*PatientProfile, error) {
	p, ok := m.byUser[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) Upsert(_ context.Context, p *PatientProfile) error {
	cp := *p
	m.byUser[p.UserID] = &cp
	return nil
}

type mockDoctorRepo struct {
	byUser map[uuid.UUID]*DoctorProfile
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{byUser: make(map[uuid.UUID]*DoctorProfile)}
}

func (m *mockDoctorRepo) Get(_ context.Context, userID uuid.UUID) (*DoctorProfile, error) {
	d, ok := m.byUser[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (m *mockDoctorRepo) Upsert(_ context.Context, d *DoctorProfile) error {
	if existing, ok := m.byUser[d.UserID]; ok {
		d.Rating = existing.Rating
		d.TotalReviews = existing.TotalReviews
	}
	cp := *d
	m.byUser[d.UserID] = &cp
	return nil
}

func (m *mockDoctorRepo) Search(_ context.Context, f SearchFilters, limit, offset int) ([]*DoctorProfile, int, error) {
	var out []*DoctorProfile
	for _, d := range m.byUser {
		if f.Specialization != "" && d.Specialization != f.Specialization {
			continue
		}
		if f.MinRating > 0 && d.Rating < f.MinRating {
			continue
		}
		if f.MaxFee > 0 && d.ConsultationFee > f.MaxFee {
			continue
		}
		if f.AvailableDay != "" {
			found := false
			for _, day := range d.AvailableDays {
				if day == f.AvailableDay {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockDoctorRepo) ApplyRating(_ context.Context, userID uuid.UUID, rating int) (*DoctorProfile, error) {
	d, ok := m.byUser[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	d.Rating = (d.Rating*float64(d.TotalReviews) + float64(rating)) / float64(d.TotalReviews+1)
	d.TotalReviews++
	cp := *d
	return &cp, nil
}

type mockUserSource struct {
	byID map[uuid.UUID]*identity.User
}

func (m *mockUserSource) GetUser(_ context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, apperr.E(apperr.KindNotFound, "user not found")
	}
	return u, nil
}

func newTestService() (*Service, *mockPatientRepo, *mockDoctorRepo, *mockUserSource) {
	patients := newMockPatientRepo()
	doctors := newMockDoctorRepo()
	users := &mockUserSource{byID: make(map[uuid.UUID]*identity.User)}
	return NewService(patients, doctors, users), patients, doctors, users
}

func strptr(s string) *string { return &s }

func TestUpsertPatient_CreateThenPatch(t *testing.T) {
	svc, _, _, _ := newTestService()
	actor := &auth.Principal{ID: uuid.New(), Role: auth.RolePatient}

	p, err := svc.UpsertPatient(context.Background(), actor, &PatientPatch{
		FullName:  strptr("Ana Flores"),
		BloodType: strptr("O+"),
		Allergies: []string{"penicillin"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.UserID != actor.ID || p.FullName != "Ana Flores" {
		t.Fatalf("unexpected profile %+v", p)
	}

	// A later patch only touches the fields it carries.
	p, err = svc.UpsertPatient(context.Background(), actor, &PatientPatch{
		Phone: strptr("+1-555-0101"),
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if p.FullName != "Ana Flores" || *p.BloodType != "O+" {
		t.Fatalf("patch overwrote unset fields: %+v", p)
	}
	if p.Phone == nil || *p.Phone != "+1-555-0101" {
		t.Fatalf("phone not applied: %+v", p)
	}
	if len(p.Allergies) != 1 || p.Allergies[0] != "penicillin" {
		t.Fatalf("allergies lost: %+v", p.Allergies)
	}
}

func TestUpsertPatient_RoleAndValidation(t *testing.T) {
	svc, _, _, _ := newTestService()

	doctor := &auth.Principal{ID: uuid.New(), Role: auth.RoleDoctor}
	if _, err := svc.UpsertPatient(context.Background(), doctor, &PatientPatch{FullName: strptr("X")}); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("want forbidden for doctor, got %v", err)
	}

	patient := &auth.Principal{ID: uuid.New(), Role: auth.RolePatient}
	if _, err := svc.UpsertPatient(context.Background(), patient, &PatientPatch{}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("want validation without full_name, got %v", err)
	}
}

func TestUpsertDoctor_RequiredFieldsAndRatingPreserved(t *testing.T) {
	svc, _, doctors, _ := newTestService()
	actor := &auth.Principal{ID: uuid.New(), Role: auth.RoleDoctor}

	_, err := svc.UpsertDoctor(context.Background(), actor, &DoctorPatch{FullName: strptr("Dr. Chen")})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("want validation without specialization, got %v", err)
	}

	fee := 75.0
	d, err := svc.UpsertDoctor(context.Background(), actor, &DoctorPatch{
		FullName:        strptr("Dr. Chen"),
		Specialization:  strptr("cardiology"),
		LicenseNumber:   strptr("MD-4411"),
		ConsultationFee: &fee,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.Rating != 0 || d.TotalReviews != 0 {
		t.Fatalf("new profile should start unrated: %+v", d)
	}

	// Reviews land, then the doctor edits their bio. Rating must survive.
	if _, err := doctors.ApplyRating(context.Background(), actor.ID, 5); err != nil {
		t.Fatalf("apply rating: %v", err)
	}
	d, err = svc.UpsertDoctor(context.Background(), actor, &DoctorPatch{Bio: strptr("20 years in cardiology.")})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if d.Rating != 5 || d.TotalReviews != 1 {
		t.Fatalf("edit clobbered rating: %+v", d)
	}
}

func TestGetOwn_IncludesRoleProfile(t *testing.T) {
	svc, _, _, users := newTestService()
	id := uuid.New()
	users.byID[id] = &identity.User{ID: id, Email: "pat@example.com", Role: auth.RolePatient, Status: identity.StatusActive}
	actor := &auth.Principal{ID: id, Role: auth.RolePatient}

	// No profile yet: user alone, no error.
	own, err := svc.GetOwn(context.Background(), actor)
	if err != nil {
		t.Fatalf("get own: %v", err)
	}
	if own.Patient != nil || own.Doctor != nil {
		t.Fatalf("expected bare account, got %+v", own)
	}

	if _, err := svc.UpsertPatient(context.Background(), actor, &PatientPatch{FullName: strptr("Pat")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	own, err = svc.GetOwn(context.Background(), actor)
	if err != nil {
		t.Fatalf("get own: %v", err)
	}
	if own.Patient == nil || own.Patient.FullName != "Pat" {
		t.Fatalf("patient profile missing: %+v", own)
	}
}

func TestGetDoctorPublic_StripsSensitiveFields(t *testing.T) {
	svc, _, _, _ := newTestService()
	actor := &auth.Principal{ID: uuid.New(), Role: auth.RoleDoctor}
	if _, err := svc.UpsertDoctor(context.Background(), actor, &DoctorPatch{
		FullName:       strptr("Dr. Osei"),
		Specialization: strptr("dermatology"),
		LicenseNumber:  strptr("MD-9001"),
		Phone:          strptr("+1-555-0199"),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	pub, err := svc.GetDoctorPublic(context.Background(), actor.ID)
	if err != nil {
		t.Fatalf("get public: %v", err)
	}
	if pub.FullName != "Dr. Osei" || pub.Specialization != "dermatology" {
		t.Fatalf("unexpected public view %+v", pub)
	}

	if _, err := svc.GetDoctorPublic(context.Background(), uuid.New()); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("want not found for unknown doctor, got %v", err)
	}
}

func TestSearchDoctors_Filters(t *testing.T) {
	svc, _, doctors, _ := newTestService()
	cardio := &DoctorProfile{UserID: uuid.New(), FullName: "Dr. A", Specialization: "cardiology",
		LicenseNumber: "MD-1", ConsultationFee: 50, Rating: 4.5, TotalReviews: 10, AvailableDays: []string{"monday"}}
	derma := &DoctorProfile{UserID: uuid.New(), FullName: "Dr. B", Specialization: "dermatology",
		LicenseNumber: "MD-2", ConsultationFee: 120, Rating: 3.0, TotalReviews: 4, AvailableDays: []string{"friday"}}
	doctors.byUser[cardio.UserID] = cardio
	doctors.byUser[derma.UserID] = derma

	out, total, err := svc.SearchDoctors(context.Background(), SearchFilters{Specialization: "cardiology"}, 20, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || len(out) != 1 || out[0].FullName != "Dr. A" {
		t.Fatalf("specialization filter: %v total=%d", out, total)
	}

	out, _, err = svc.SearchDoctors(context.Background(), SearchFilters{MinRating: 4.0, MaxFee: 100}, 20, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(out) != 1 || out[0].FullName != "Dr. A" {
		t.Fatalf("rating/fee filter: %v", out)
	}

	out, _, err = svc.SearchDoctors(context.Background(), SearchFilters{AvailableDay: "friday"}, 20, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(out) != 1 || out[0].FullName != "Dr. B" {
		t.Fatalf("day filter: %v", out)
	}
}

func TestApplyRating_RunningAverage(t *testing.T) {
	_, _, doctors, _ := newTestService()
	id := uuid.New()
	doctors.byUser[id] = &DoctorProfile{UserID: id, FullName: "Dr. C", Specialization: "gp", LicenseNumber: "MD-3"}

	ratings := []int{5, 3, 4, 4, 2}
	var last *DoctorProfile
	var err error
	for _, r := range ratings {
		last, err = doctors.ApplyRating(context.Background(), id, r)
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	want := float64(sum) / float64(len(ratings))
	if last.TotalReviews != len(ratings) {
		t.Fatalf("total reviews = %d, want %d", last.TotalReviews, len(ratings))
	}
	if diff := last.Rating - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("rating = %v, want %v", last.Rating, want)
	}
}
