package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/platform/apperr"
	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/internal/platform/db"
)

// TxRunner executes fn atomically. Production wiring uses db.WithTx; tests
// substitute a passthrough.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Config carries the tunable policy knobs of the identity service.
type Config struct {
	PasswordMinLen int
	ResetTokenTTL  time.Duration
}

type Service struct {
	users  UserRepository
	audit  AuditRepository
	resets ResetTokenRepository
	hasher *auth.Hasher
	tokens *auth.Tokens
	tx     TxRunner
	cfg    Config
}

func NewService(users UserRepository, audit AuditRepository, resets ResetTokenRepository,
	hasher *auth.Hasher, tokens *auth.Tokens, tx TxRunner, cfg Config) *Service {
	if cfg.PasswordMinLen <= 0 {
		cfg.PasswordMinLen = 6
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	return &Service{users: users, audit: audit, resets: resets,
		hasher: hasher, tokens: tokens, tx: tx, cfg: cfg}
}

// Register creates an account and signs in the new user. Emails are
// normalized to lower case so uniqueness is case-insensitive.
func (s *Service) Register(ctx context.Context, email, password, role string) (*User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", apperr.E(apperr.KindValidation, "a valid email is required")
	}
	if role != auth.RolePatient && role != auth.RoleDoctor {
		return nil, "", apperr.E(apperr.KindValidation, "role must be patient or doctor")
	}
	if err := s.checkPassword(password); err != nil {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "hash password", err)
	}

	u := &User{Email: email, PasswordHash: hash, Role: role, Status: StatusActive}
	if err := s.users.Create(ctx, u); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, "", apperr.E(apperr.KindDuplicateEmail, "email is already registered")
		}
		return nil, "", apperr.Wrap(apperr.KindInternal, "create user", err)
	}

	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "issue token", err)
	}
	return u, token, nil
}

// Authenticate verifies credentials and returns the user with a fresh access
// token. Lookup and hash mismatch produce the same error so callers cannot
// probe which emails exist. Accounts that are not active cannot sign in.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, "", apperr.E(apperr.KindInvalidCredentials, "invalid email or password")
		}
		return nil, "", apperr.Wrap(apperr.KindInternal, "look up user", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, "", apperr.E(apperr.KindInvalidCredentials, "invalid email or password")
	}
	if !u.IsActive() {
		return nil, "", apperr.E(apperr.KindAccountDisabled, "account is not active")
	}

	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "issue token", err)
	}
	return u, token, nil
}

// GetUser returns an account by ID.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.E(apperr.KindNotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "look up user", err)
	}
	return u, nil
}

// ChangeStatus applies an admin management action to an account and records
// it in the audit log. The status update and the audit entry commit together.
func (s *Service) ChangeStatus(ctx context.Context, actor *auth.Principal, targetID uuid.UUID, action string, reason *string) (*User, error) {
	if actor.Role != auth.RoleAdmin {
		return nil, apperr.E(apperr.KindForbidden, "only admins may manage accounts")
	}
	status, ok := statusForAction[action]
	if !ok {
		return nil, apperr.Ef(apperr.KindValidation, "unknown action %q", action)
	}

	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.users.UpdateStatus(ctx, target.ID, status); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return s.audit.Append(ctx, &AuditEntry{
			ActorID:  actor.ID,
			TargetID: target.ID,
			Action:   action,
			Reason:   reason,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "change account status", err)
	}

	target.Status = status
	return target, nil
}

// ResetPasswordRequest issues a reset token for the account behind email.
// It returns an empty token without error when the email is unknown, so the
// caller's response never reveals whether an account exists.
func (s *Service) ResetPasswordRequest(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return "", nil
		}
		return "", apperr.Wrap(apperr.KindInternal, "look up user", err)
	}

	token, err := randomToken()
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "generate token", err)
	}

	rt := &ResetToken{
		UserID:    u.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(s.cfg.ResetTokenTTL),
	}
	if err := s.resets.Replace(ctx, rt); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "store reset token", err)
	}
	return token, nil
}

// ResetPasswordConfirm redeems a reset token. Tokens are single-use; expiry
// is checked lazily here rather than by a background sweeper.
func (s *Service) ResetPasswordConfirm(ctx context.Context, token, newPassword string) error {
	if err := s.checkPassword(newPassword); err != nil {
		return err
	}

	rt, err := s.resets.GetByToken(ctx, token)
	if err != nil {
		if db.IsNotFound(err) {
			return apperr.E(apperr.KindInvalidOrExpiredToken, "invalid or expired reset token")
		}
		return apperr.Wrap(apperr.KindInternal, "look up reset token", err)
	}
	if !rt.Valid(time.Now()) {
		return apperr.E(apperr.KindInvalidOrExpiredToken, "invalid or expired reset token")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "hash password", err)
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.users.UpdatePassword(ctx, rt.UserID, hash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return s.resets.MarkUsed(ctx, rt.ID)
	})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "confirm password reset", err)
	}
	return nil
}

// ChangePassword rotates the caller's password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(u.PasswordHash, currentPassword) {
		return apperr.E(apperr.KindWrongCurrentPassword, "current password is incorrect")
	}
	if newPassword == currentPassword {
		return apperr.E(apperr.KindValidation, "new password must differ from the current one")
	}
	if err := s.checkPassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return apperr.Wrap(apperr.KindInternal, "update password", err)
	}
	return nil
}

// CleanupExpiredTokens deletes used and expired reset tokens. Meant to be
// invoked from the admin API by an external scheduler.
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int, error) {
	n, err := s.resets.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "delete expired tokens", err)
	}
	return n, nil
}

// ListUsers returns accounts filtered by role and status. Admin only.
func (s *Service) ListUsers(ctx context.Context, actor *auth.Principal, role, status string, limit, offset int) ([]*User, int, error) {
	if actor.Role != auth.RoleAdmin {
		return nil, 0, apperr.E(apperr.KindForbidden, "only admins may list accounts")
	}
	users, total, err := s.users.List(ctx, role, status, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list users", err)
	}
	return users, total, nil
}

// AuditTrail returns the admin action log for one account. Admin only.
func (s *Service) AuditTrail(ctx context.Context, actor *auth.Principal, targetID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error) {
	if actor.Role != auth.RoleAdmin {
		return nil, 0, apperr.E(apperr.KindForbidden, "only admins may view the audit log")
	}
	entries, total, err := s.audit.ListForTarget(ctx, targetID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list audit entries", err)
	}
	return entries, total, nil
}

func (s *Service) checkPassword(password string) error {
	if len(password) < s.cfg.PasswordMinLen {
		return apperr.Ef(apperr.KindValidation, "password must be at least %d characters", s.cfg.PasswordMinLen)
	}
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
