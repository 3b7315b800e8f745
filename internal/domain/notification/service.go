package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/internal/platform/push"
)

// Pusher is the live-delivery side of the hub. Delivery is best effort and
// its result only logged; the persisted row is what the user will see on
// their next list call regardless.
type Pusher interface {
	SendToUser(userID uuid.UUID, event push.Event) int
}

type Service struct {
	repo   Repository
	pusher Pusher
	log    zerolog.Logger
}

func NewService(repo Repository, pusher Pusher, log zerolog.Logger) *Service {
	return &Service{repo: repo, pusher: pusher, log: log}
}

// Notify persists a notification and then attempts live delivery. A user with
// no open websocket still gets the row; push failures never fail the caller.
// A zero senderID records a system notification.
func (s *Service) Notify(ctx context.Context, senderID, userID uuid.UUID, ntype, title, message string, refID *uuid.UUID) error {
	n := &Notification{
		UserID:  userID,
		Type:    ntype,
		Title:   title,
		Message: message,
		RefID:   refID,
	}
	if senderID != uuid.Nil {
		n.SenderID = &senderID
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return apperr.Wrap(apperr.KindInternal, "persist notification", err)
	}

	if s.pusher != nil {
		delivered := s.pusher.SendToUser(userID, push.NewEvent("notification", n))
		s.log.Debug().
			Str("notification_id", n.ID.String()).
			Str("user_id", userID.String()).
			Int("connections", delivered).
			Msg("notification pushed")
	}
	return nil
}

// List returns the caller's notifications, newest first.
func (s *Service) List(ctx context.Context, actor *auth.Principal, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	out, total, err := s.repo.ListForUser(ctx, actor.ID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list notifications", err)
	}
	return out, total, nil
}

// MarkRead marks one of the caller's notifications read. Re-marking a read
// notification succeeds; touching another user's notification looks like it
// does not exist.
func (s *Service) MarkRead(ctx context.Context, actor *auth.Principal, id uuid.UUID) error {
	ok, err := s.repo.MarkRead(ctx, id, actor.ID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "mark notification read", err)
	}
	if !ok {
		return apperr.E(apperr.KindNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead marks every unread notification of the caller read and returns
// how many were flipped.
func (s *Service) MarkAllRead(ctx context.Context, actor *auth.Principal) (int, error) {
	n, err := s.repo.MarkAllRead(ctx, actor.ID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "mark all read", err)
	}
	return n, nil
}

// UnreadCount returns the caller's unread tally, for badge rendering.
func (s *Service) UnreadCount(ctx context.Context, actor *auth.Principal) (int, error) {
	n, err := s.repo.UnreadCount(ctx, actor.ID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "unread count", err)
	}
	return n, nil
}
