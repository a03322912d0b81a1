package category

import (
	"context"

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) Create(ctx context.Context, cat *Category) error {
	cat.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO categories (id, user_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		cat.ID, cat.UserID, cat.Name).Scan(&cat.CreatedAt, &cat.UpdatedAt)
}

func (r *repoPG) Get(ctx context.Context, userID, id uuid.UUID) (*Category, error) {
	var cat Category
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM categories WHERE id = $1 AND user_id = $2`,
		id, userID).Scan(&cat.ID, &cat.UserID, &cat.Name, &cat.CreatedAt, &cat.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *repoPG) List(ctx context.Context, userID uuid.UUID) ([]*Category, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM categories WHERE user_id = $1
		ORDER BY name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []*Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.UserID, &cat.Name, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, &cat)
	}
	return cats, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, cat *Category) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE categories SET name = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`,
		cat.ID, cat.UserID, cat.Name).Scan(&cat.UpdatedAt)
}

func (r *repoPG) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
