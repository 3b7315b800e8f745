package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
)

type mockRepo struct {
	users         map[string]map[string]int
	consultations map[string]int
	appointments  map[string]int
	prescriptions map[string]int
	reviews       ReviewStats
	activity      ActivityReport
}

func (m *mockRepo) UserBreakdown(_ context.Context) (map[string]map[string]int, error) {
	if m.users == nil {
		return map[string]map[string]int{}, nil
	}
	return m.users, nil
}

func (m *mockRepo) ConsultationCounts(_ context.Context) (map[string]int, error) {
	if m.consultations == nil {
		return map[string]int{}, nil
	}
	return m.consultations, nil
}

func (m *mockRepo) AppointmentCounts(_ context.Context) (map[string]int, error) {
	if m.appointments == nil {
		return map[string]int{}, nil
	}
	return m.appointments, nil
}

func (m *mockRepo) PrescriptionCounts(_ context.Context) (map[string]int, error) {
	if m.prescriptions == nil {
		return map[string]int{}, nil
	}
	return m.prescriptions, nil
}

func (m *mockRepo) ReviewStats(_ context.Context) (ReviewStats, error) {
	return m.reviews, nil
}

func (m *mockRepo) ActivityBetween(_ context.Context, from, to time.Time) (*ActivityReport, error) {
	report := m.activity
	report.From = from
	report.To = to
	return &report, nil
}

func admin() *auth.Principal { return &auth.Principal{ID: uuid.New(), Role: auth.RoleAdmin} }

func TestPlatform_AdminOnly(t *testing.T) {
	svc := NewService(&mockRepo{})

	for _, role := range []string{auth.RolePatient, auth.RoleDoctor} {
		p := &auth.Principal{ID: uuid.New(), Role: role}
		if _, err := svc.Platform(context.Background(), p); apperr.KindOf(err) != apperr.KindForbidden {
			t.Fatalf("%s should be forbidden, got %v", role, err)
		}
	}
}

func TestPlatform_EmptyPlatformIsZeros(t *testing.T) {
	svc := NewService(&mockRepo{})

	report, err := svc.Platform(context.Background(), admin())
	if err != nil {
		t.Fatalf("platform: %v", err)
	}
	if len(report.Users) != 0 || len(report.Consultations) != 0 {
		t.Fatalf("empty platform should report zeros: %+v", report)
	}
	if report.Reviews.Count != 0 || report.Reviews.Average != 0 {
		t.Fatalf("empty reviews should be zero: %+v", report.Reviews)
	}
	if report.GeneratedAt.IsZero() {
		t.Fatal("generated_at not set")
	}
}

func TestPlatform_AggregatesPassThrough(t *testing.T) {
	svc := NewService(&mockRepo{
		users: map[string]map[string]int{
			"patient": {"active": 10, "suspended": 1},
			"doctor":  {"active": 3},
		},
		consultations: map[string]int{"pending": 2, "answered": 5, "closed": 7},
		appointments:  map[string]int{"scheduled": 4, "completed": 9},
		prescriptions: map[string]int{"active": 6},
		reviews:       ReviewStats{Count: 12, Average: 4.25},
	})

	report, err := svc.Platform(context.Background(), admin())
	if err != nil {
		t.Fatalf("platform: %v", err)
	}
	if report.Users["patient"]["active"] != 10 || report.Users["doctor"]["active"] != 3 {
		t.Fatalf("user breakdown wrong: %+v", report.Users)
	}
	if report.Consultations["answered"] != 5 || report.Appointments["completed"] != 9 {
		t.Fatalf("counts wrong: %+v", report)
	}
	if report.Reviews.Average != 4.25 {
		t.Fatalf("review average wrong: %+v", report.Reviews)
	}
}

func TestActivity_RangeValidation(t *testing.T) {
	svc := NewService(&mockRepo{activity: ActivityReport{UsersRegistered: 3, AppointmentsBooked: 2}})
	now := time.Now()

	if _, err := svc.Activity(context.Background(), admin(), now, now.AddDate(0, 0, -7)); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("inverted range should fail validation, got %v", err)
	}

	from := now.AddDate(0, 0, -7)
	report, err := svc.Activity(context.Background(), admin(), from, now)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if report.UsersRegistered != 3 || report.AppointmentsBooked != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !report.From.Equal(from) {
		t.Fatalf("range not echoed: %+v", report)
	}
}
