package walkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pangkas-pos/pangkas/internal/sequence"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

// Repository is the persistence port used by Service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Entry, error)
	List(ctx context.Context, req ListRequest) ([]Entry, int, error)
	Active(ctx context.Context) ([]Entry, error)
	TodayStats(ctx context.Context) (TodayStats, error)
}

// TxRepository exposes the operations a queue mutation executes inside one
// transaction: minting the next number and the entry writes share a commit.
type TxRepository interface {
	NextQueueNumber(ctx context.Context, prefix string, scopeDate time.Time) (string, error)
	Insert(ctx context.Context, e Entry) (int64, error)
	GetForUpdate(ctx context.Context, id int64) (*Entry, error)
	SetStatus(ctx context.Context, id int64, status Status, startedAt, completedAt *time.Time) error
	MarkCalled(ctx context.Context, id int64, at time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepo struct {
	tx  pgx.Tx
	seq *sequence.Generator
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("walkin: begin tx: %w", err)
	}
	if err := fn(ctx, &txRepo{tx: tx, seq: sequence.NewGenerator(tx)}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const entryColumns = `id, queue_number, customer_id, barber_id, customer_name, service_ids, notes, status, called_at, started_at, completed_at, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.QueueNumber, &e.CustomerID, &e.BarberID, &e.CustomerName,
		&e.ServiceIDs, &e.Notes, &e.Status, &e.CalledAt, &e.StartedAt, &e.CompletedAt,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Entry, error) {
	e, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM walkin_queues WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("walkin: entry %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return e, nil
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]Entry, int, error) {
	conditions := []string{"TRUE"}
	var args []any
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.BarberID != nil {
		conditions = append(conditions, fmt.Sprintf("barber_id = $%d", argPos))
		args = append(args, *req.BarberID)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM walkin_queues "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(req.Page, req.PerPage, total)
	query := fmt.Sprintf(`SELECT %s FROM walkin_queues %s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		entryColumns, whereClause, argPos, argPos+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *e)
	}
	return result, total, rows.Err()
}

func (r *repository) Active(ctx context.Context) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM walkin_queues
WHERE status IN ('waiting', 'in_progress') AND created_at::date = CURRENT_DATE
ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (r *repository) TodayStats(ctx context.Context) (TodayStats, error) {
	var stats TodayStats
	err := r.pool.QueryRow(ctx, `SELECT
COUNT(*) FILTER (WHERE status = 'waiting'),
COUNT(*) FILTER (WHERE status = 'in_progress'),
COUNT(*) FILTER (WHERE status = 'completed'),
COUNT(*) FILTER (WHERE status = 'cancelled')
FROM walkin_queues WHERE created_at::date = CURRENT_DATE`).
		Scan(&stats.Waiting, &stats.InProgress, &stats.Completed, &stats.Cancelled)
	if err != nil {
		return TodayStats{}, err
	}
	return stats, nil
}

func (r *txRepo) NextQueueNumber(ctx context.Context, prefix string, scopeDate time.Time) (string, error) {
	n, err := r.seq.Next(ctx, sequence.SeriesQueue, scopeDate)
	if err != nil {
		return "", err
	}
	return sequence.FormatQueue(prefix, n), nil
}

func (r *txRepo) Insert(ctx context.Context, e Entry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO walkin_queues
(queue_number, customer_id, barber_id, customer_name, service_ids, notes, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
RETURNING id`,
		e.QueueNumber, e.CustomerID, e.BarberID, e.CustomerName, e.ServiceIDs, e.Notes, e.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("walkin: insert entry: %w", err)
	}
	return id, nil
}

func (r *txRepo) GetForUpdate(ctx context.Context, id int64) (*Entry, error) {
	e, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM walkin_queues WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("walkin: entry %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return e, nil
}

func (r *txRepo) SetStatus(ctx context.Context, id int64, status Status, startedAt, completedAt *time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE walkin_queues SET
status = $2,
started_at = COALESCE($3, started_at),
completed_at = COALESCE($4, completed_at),
updated_at = NOW()
WHERE id = $1`, id, status, startedAt, completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("walkin: entry %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *txRepo) MarkCalled(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE walkin_queues SET called_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("walkin: entry %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
