package review

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/domain/profile"
	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/internal/platform/db"
)

// TxRunner executes fn inside a database transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// RatingSink folds a new rating into a doctor's running average. Satisfied by
// the profile doctor repository.
type RatingSink interface {
	ApplyRating(ctx context.Context, doctorID uuid.UUID, rating int) (*profile.DoctorProfile, error)
}

type Service struct {
	repo    Repository
	ratings RatingSink
	tx      TxRunner
}

func NewService(repo Repository, ratings RatingSink, tx TxRunner) *Service {
	return &Service{repo: repo, ratings: ratings, tx: tx}
}

// CreateRequest is a patient's review submission. At most one of
// ConsultationID and AppointmentID ties it to a specific interaction.
type CreateRequest struct {
	DoctorID       uuid.UUID
	ConsultationID *uuid.UUID
	AppointmentID  *uuid.UUID
	Rating         int
	Title          string
	Comment        *string
	Recommend      bool
}

// Create records a review and folds its rating into the doctor's average in
// one transaction. A patient may review each interaction with a doctor once,
// and only after an actual interaction with them.
func (s *Service) Create(ctx context.Context, actor *auth.Principal, req CreateRequest) (*Review, error) {
	if actor.Role != auth.RolePatient {
		return nil, apperr.E(apperr.KindForbidden, "only patients may leave reviews")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperr.E(apperr.KindValidation, "rating must be between 1 and 5")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, apperr.E(apperr.KindValidation, "title is required")
	}

	had, err := s.repo.HadInteraction(ctx, actor.ID, req.DoctorID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check interaction", err)
	}
	if !had {
		return nil, apperr.E(apperr.KindForbidden, "you can only review doctors you have consulted with")
	}

	rv := &Review{
		PatientID:      actor.ID,
		DoctorID:       req.DoctorID,
		ConsultationID: req.ConsultationID,
		AppointmentID:  req.AppointmentID,
		Rating:         req.Rating,
		Title:          req.Title,
		Comment:        req.Comment,
		Recommend:      req.Recommend,
	}
	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rv); err != nil {
			if db.IsUniqueViolation(err, "reviews_interaction_idx") {
				return apperr.E(apperr.KindDuplicateReview, "you have already reviewed this interaction")
			}
			return apperr.Wrap(apperr.KindInternal, "create review", err)
		}
		if _, err := s.ratings.ApplyRating(ctx, rv.DoctorID, rv.Rating); err != nil {
			return apperr.Wrap(apperr.KindInternal, "apply rating", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rv, nil
}

// Respond lets the reviewed doctor attach one public reply.
func (s *Service) Respond(ctx context.Context, actor *auth.Principal, reviewID uuid.UUID, response string) (*Review, error) {
	rv, err := s.repo.Get(ctx, reviewID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.E(apperr.KindNotFound, "review not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "load review", err)
	}
	if rv.DoctorID != actor.ID {
		return nil, apperr.E(apperr.KindForbidden, "only the reviewed doctor may respond")
	}
	if response == "" {
		return nil, apperr.E(apperr.KindValidation, "response text is required")
	}

	now := time.Now()
	rv.DoctorResponse = &response
	rv.RespondedAt = &now
	if err := s.repo.Update(ctx, rv); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "save response", err)
	}
	return rv, nil
}

// ListForDoctor returns a doctor's reviews with reviewer names anonymized to
// a leading initial. A non-zero rating keeps only reviews with exactly that
// rating.
func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, rating, limit, offset int) ([]*PublicReview, int, error) {
	if rating != 0 && (rating < 1 || rating > 5) {
		return nil, 0, apperr.E(apperr.KindValidation, "rating filter must be between 1 and 5")
	}
	rows, total, err := s.repo.ListForDoctor(ctx, doctorID, rating, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list reviews", err)
	}

	out := make([]*PublicReview, 0, len(rows))
	for _, rn := range rows {
		out = append(out, &PublicReview{
			ID:             rn.ID,
			PatientName:    anonymize(rn.PatientName),
			Rating:         rn.Rating,
			Title:          rn.Title,
			Comment:        rn.Comment,
			Recommend:      rn.Recommend,
			DoctorResponse: rn.DoctorResponse,
			RespondedAt:    rn.RespondedAt,
			CreatedAt:      rn.CreatedAt,
		})
	}
	return out, total, nil
}

// anonymize reduces a name to its first letter. Patients without a profile
// name show as "Anonymous".
func anonymize(name string) string {
	for _, r := range name {
		return string(r) + "***"
	}
	return "Anonymous"
}
