package reporting

import (
	"context"
	"time"

	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Platform builds the full admin overview.
func (s *Service) Platform(ctx context.Context, actor *auth.Principal) (*PlatformReport, error) {
	if actor.Role != auth.RoleAdmin {
		return nil, apperr.E(apperr.KindForbidden, "admin only")
	}

	report := &PlatformReport{GeneratedAt: time.Now()}
	var err error
	if report.Users, err = s.repo.UserBreakdown(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "user breakdown", err)
	}
	if report.Consultations, err = s.repo.ConsultationCounts(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "consultation counts", err)
	}
	if report.Appointments, err = s.repo.AppointmentCounts(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "appointment counts", err)
	}
	if report.Prescriptions, err = s.repo.PrescriptionCounts(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "prescription counts", err)
	}
	if report.Reviews, err = s.repo.ReviewStats(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "review stats", err)
	}
	return report, nil
}

// Activity counts platform activity inside [from, to). An inverted range is
// a validation error, not an empty report.
func (s *Service) Activity(ctx context.Context, actor *auth.Principal, from, to time.Time) (*ActivityReport, error) {
	if actor.Role != auth.RoleAdmin {
		return nil, apperr.E(apperr.KindForbidden, "admin only")
	}
	if !from.Before(to) {
		return nil, apperr.E(apperr.KindValidation, "from must be before to")
	}

	report, err := s.repo.ActivityBetween(ctx, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "activity report", err)
	}
	return report, nil
}
