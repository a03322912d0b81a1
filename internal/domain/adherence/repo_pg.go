package adherence

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) DoseLogRepository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const logCols = `l.id, l.medication_id, l.user_id, l.scheduled_time, l.taken_at,
	l.status, l.was_late, l.created_at, l.updated_at, m.name, m.dose, c.name`

const logFrom = ` FROM dose_logs l
	JOIN medications m ON m.id = l.medication_id
	LEFT JOIN categories c ON c.id = m.category_id `

func scanLog(row pgx.Row) (*DoseLog, error) {
	var l DoseLog
	var med MedicationSummary
	err := row.Scan(&l.ID, &l.MedicationID, &l.UserID, &l.ScheduledTime, &l.TakenAt,
		&l.Status, &l.WasLate, &l.CreatedAt, &l.UpdatedAt,
		&med.Name, &med.Dose, &med.CategoryName)
	if err != nil {
		return nil, err
	}
	med.ID = l.MedicationID
	l.Medication = &med
	return &l, nil
}

func (r *repoPG) Create(ctx context.Context, log *DoseLog) error {
	log.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO dose_logs (id, medication_id, user_id, scheduled_time, taken_at, status, was_late)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		log.ID, log.MedicationID, log.UserID, log.ScheduledTime,
		log.TakenAt, log.Status, log.WasLate).Scan(&log.CreatedAt, &log.UpdatedAt)
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]*DoseLog, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+logCols+logFrom+`
		WHERE l.user_id = $1
		  AND ($2::timestamptz IS NULL OR l.created_at >= $2)
		  AND ($3::timestamptz IS NULL OR l.created_at < $3)
		ORDER BY l.created_at DESC`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*DoseLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *repoPG) FindBySlot(ctx context.Context, userID, medicationID uuid.UUID, scheduledTime string, dayStart, dayEnd time.Time) (*DoseLog, error) {
	return scanLog(r.conn(ctx).QueryRow(ctx, `
		SELECT `+logCols+logFrom+`
		WHERE l.user_id = $1
		  AND l.medication_id = $2
		  AND l.scheduled_time = $3
		  AND l.created_at >= $4 AND l.created_at < $5
		ORDER BY l.created_at DESC
		LIMIT 1`, userID, medicationID, scheduledTime, dayStart, dayEnd))
}
