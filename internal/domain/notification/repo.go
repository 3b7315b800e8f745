package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error)

	// MarkRead flips one notification owned by userID; it reports whether a
	// row matched, so callers can tell "already read" from "not yours".
	MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}
