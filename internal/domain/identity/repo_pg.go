package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telecare/telecare/internal/platform/db"
)

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const userCols = `id, email, password_hash, role, status, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, role, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.PasswordHash, u.Role, u.Status).
		Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (r *userRepoPG) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	return err
}

func (r *userRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return err
}

func (r *userRepoPG) List(ctx context.Context, role, status string, limit, offset int) ([]*User, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if role != "" {
		where += fmt.Sprintf(" AND role = $%d", idx)
		args = append(args, role)
		idx++
	}
	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userCols + ` FROM users` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *userRepoPG) CountByRoleStatus(ctx context.Context) (map[string]map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT role, status, COUNT(*) FROM users GROUP BY role, status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]map[string]int)
	for rows.Next() {
		var role, status string
		var n int
		if err := rows.Scan(&role, &status, &n); err != nil {
			return nil, err
		}
		if counts[role] == nil {
			counts[role] = make(map[string]int)
		}
		counts[role][status] = n
	}
	return counts, rows.Err()
}

// =========== Audit Repository ===========

type auditRepoPG struct{ pool *pgxpool.Pool }

func NewAuditRepoPG(pool *pgxpool.Pool) AuditRepository { return &auditRepoPG{pool: pool} }

func (r *auditRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *auditRepoPG) Append(ctx context.Context, e *AuditEntry) error {
	e.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO account_audit (id, actor_id, target_id, action, reason)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		e.ID, e.ActorID, e.TargetID, e.Action, e.Reason).
		Scan(&e.CreatedAt)
}

func (r *auditRepoPG) ListForTarget(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM account_audit WHERE target_id = $1`, targetID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, actor_id, target_id, action, reason, created_at
		FROM account_audit WHERE target_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, targetID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.TargetID, &e.Action, &e.Reason, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, &e)
	}
	return entries, total, rows.Err()
}

// =========== Reset Token Repository ===========

type resetTokenRepoPG struct{ pool *pgxpool.Pool }

func NewResetTokenRepoPG(pool *pgxpool.Pool) ResetTokenRepository {
	return &resetTokenRepoPG{pool: pool}
}

func (r *resetTokenRepoPG) conn(ctx context.Context) db.Querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *resetTokenRepoPG) Replace(ctx context.Context, t *ResetToken) error {
	t.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO reset_tokens (id, user_id, token, expires_at, used)
		VALUES ($1,$2,$3,$4,false)
		ON CONFLICT (user_id) DO UPDATE
			SET id = EXCLUDED.id, token = EXCLUDED.token,
				expires_at = EXCLUDED.expires_at, used = false, created_at = NOW()
		RETURNING created_at`,
		t.ID, t.UserID, t.Token, t.ExpiresAt).
		Scan(&t.CreatedAt)
}

func (r *resetTokenRepoPG) GetByToken(ctx context.Context, token string) (*ResetToken, error) {
	var t ResetToken
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, user_id, token, expires_at, used, created_at
		FROM reset_tokens WHERE token = $1`, token).
		Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *resetTokenRepoPG) MarkUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE reset_tokens SET used = true WHERE id = $1`, id)
	return err
}

func (r *resetTokenRepoPG) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM reset_tokens WHERE used = true OR expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
