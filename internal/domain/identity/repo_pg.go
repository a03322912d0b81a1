package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medtrack/medtrack/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userCols = `id, email, name, password_hash, streak, last_streak_update, created_at, updated_at`

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash,
		&u.Streak, &u.LastStreakUpdate, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.Name, u.PasswordHash).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

// BumpStreak performs the conditional increment in one statement so the
// date comparison and the update cannot interleave with a concurrent call.
func (r *userRepoPG) BumpStreak(ctx context.Context, id uuid.UUID, now time.Time) (int, bool, error) {
	var streak int
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE users
		SET streak = streak + 1, last_streak_update = $2, updated_at = NOW()
		WHERE id = $1
		  AND (last_streak_update IS NULL OR last_streak_update::date < $2::date)
		RETURNING streak`,
		id, now).Scan(&streak)
	if err == nil {
		return streak, true, nil
	}
	if err != pgx.ErrNoRows {
		return 0, false, err
	}

	// Already bumped today: report the current value unchanged.
	err = r.conn(ctx).QueryRow(ctx, `SELECT streak FROM users WHERE id = $1`, id).Scan(&streak)
	if err != nil {
		return 0, false, err
	}
	return streak, false, nil
}
