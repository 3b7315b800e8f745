package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one persisted message for one user. Live delivery over a
// websocket is an optimization; the row is the source of truth.
type Notification struct {
	ID uuid.UUID `db:"id" json:"id"`
	// SenderID is the user whose action produced the notification, nil for
	// system-generated ones.
	SenderID  *uuid.UUID `db:"sender_id" json:"sender_id,omitempty"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Type      string     `db:"type" json:"type"`
	Title     string     `db:"title" json:"title"`
	Message   string     `db:"message" json:"message"`
	RefID     *uuid.UUID `db:"ref_id" json:"ref_id,omitempty"`
	Read      bool       `db:"read" json:"read"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
