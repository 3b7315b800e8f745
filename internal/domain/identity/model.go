package identity

import (
	"time"

	"github.com/google/uuid"
)

// Account statuses. Accounts are never hard-deleted; "deleted" is a soft
// delete that keeps the record for audit purposes.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
	StatusDeleted   = "deleted"
)

// Admin management actions on an account.
const (
	ActionActivate   = "activate"
	ActionDeactivate = "deactivate"
	ActionSuspend    = "suspend"
	ActionDelete     = "delete"
)

// User maps to the users table.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool { return u.Status == StatusActive }

// AuditEntry records an admin status change on an account. Append-only.
type AuditEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ActorID   uuid.UUID `db:"actor_id" json:"actor_id"`
	TargetID  uuid.UUID `db:"target_id" json:"target_id"`
	Action    string    `db:"action" json:"action"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ResetToken is a single outstanding password-reset token for a user. At most
// one exists per user; requesting a new one replaces it.
type ResetToken struct {
	ID        uuid.UUID `db:"id" json:"-"`
	UserID    uuid.UUID `db:"user_id" json:"-"`
	Token     string    `db:"token" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"-"`
	Used      bool      `db:"used" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

// Valid reports whether the token can still be redeemed at the given time.
func (t *ResetToken) Valid(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}

// statusForAction maps an admin action onto the resulting account status.
var statusForAction = map[string]string{
	ActionActivate:   StatusActive,
	ActionDeactivate: StatusInactive,
	ActionSuspend:    StatusSuspended,
	ActionDelete:     StatusDeleted,
}
