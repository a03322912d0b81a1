package medication

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

const medCols = `m.id, m.user_id, m.name, m.dose, m.frequency, m.times,
	m.start_date, m.end_date, m.category_id, c.name, m.created_at, m.updated_at`

const medFrom = ` FROM medications m LEFT JOIN categories c ON c.id = m.category_id `

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Dose, &m.Frequency, &m.Times,
		&m.StartDate, &m.EndDate, &m.CategoryID, &m.CategoryName, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMedications(rows pgx.Rows) ([]*Medication, error) {
	defer rows.Close()
	var meds []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}
	return meds, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medications (id, user_id, name, dose, frequency, times, start_date, end_date, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		m.ID, m.UserID, m.Name, m.Dose, m.Frequency, m.Times,
		m.StartDate, m.EndDate, m.CategoryID).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *repoPG) Get(ctx context.Context, userID, id uuid.UUID) (*Medication, error) {
	return scanMedication(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medCols+medFrom+`WHERE m.id = $1 AND m.user_id = $2`, id, userID))
}

func (r *repoPG) List(ctx context.Context, userID uuid.UUID) ([]*Medication, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medCols+medFrom+`WHERE m.user_id = $1 ORDER BY m.name ASC`, userID)
	if err != nil {
		return nil, err
	}
	return collectMedications(rows)
}

func (r *repoPG) ListActiveBetween(ctx context.Context, userID uuid.UUID, from, to DateOnly) ([]*Medication, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medCols+medFrom+`
		WHERE m.user_id = $1
		  AND m.start_date <= $3
		  AND (m.end_date IS NULL OR m.end_date >= $2)
		ORDER BY m.name ASC`, userID, from, to)
	if err != nil {
		return nil, err
	}
	return collectMedications(rows)
}

func (r *repoPG) Update(ctx context.Context, m *Medication) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE medications
		SET name = $3, dose = $4, frequency = $5, times = $6,
		    start_date = $7, end_date = $8, category_id = $9, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`,
		m.ID, m.UserID, m.Name, m.Dose, m.Frequency, m.Times,
		m.StartDate, m.EndDate, m.CategoryID).Scan(&m.UpdatedAt)
}

func (r *repoPG) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
