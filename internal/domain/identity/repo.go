package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository is the persistence contract for accounts. Implementations
// return db.IsNotFound-compatible errors for missing rows and surface unique
// violations on email unchanged so the service can classify them.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, role, status string, limit, offset int) ([]*User, int, error)
	CountByRoleStatus(ctx context.Context) (map[string]map[string]int, error)
}

// AuditRepository is the append-only log of admin account actions.
type AuditRepository interface {
	Append(ctx context.Context, e *AuditEntry) error
	ListForTarget(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error)
}

// ResetTokenRepository manages the single outstanding reset token per user.
type ResetTokenRepository interface {
	Replace(ctx context.Context, t *ResetToken) error
	GetByToken(ctx context.Context, token string) (*ResetToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
