package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pangkas-pos/pangkas/internal/catalog"
	"github.com/pangkas-pos/pangkas/internal/inventory"
	"github.com/pangkas-pos/pangkas/internal/sequence"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

// Repository is the persistence port used by Service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Transaction, error)
	GetByInvoice(ctx context.Context, invoiceNumber string) (*Transaction, error)
	List(ctx context.Context, req ListTransactionsRequest) ([]Transaction, int, error)
	TodayStats(ctx context.Context) (TodayStats, error)
}

// TxRepository exposes the operations a sale executes inside one transaction.
// It embeds CatalogReader so pricing reads from the same tx snapshot that the
// stock movement writes to.
type TxRepository interface {
	CatalogReader
	AdjustStock(ctx context.Context, productID, delta int64) error
	NextInvoiceNumber(ctx context.Context, scopeDate time.Time) (string, error)
	InsertTransaction(ctx context.Context, t Transaction) (int64, error)
	InsertItems(ctx context.Context, transactionID int64, items []TransactionItem) error
	SettleQueue(ctx context.Context, queueID int64) error
	GetForUpdate(ctx context.Context, id int64) (*Transaction, error)
	UpdateStatus(ctx context.Context, id int64, status TransactionStatus) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepo struct {
	tx       pgx.Tx
	catalog  *catalog.Repository
	adjuster *inventory.Adjuster
	seq      *sequence.Generator
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("sales: begin tx: %w", err)
	}
	wrapper := &txRepo{
		tx:       tx,
		catalog:  catalog.NewRepository(tx),
		adjuster: inventory.NewAdjuster(tx),
		seq:      sequence.NewGenerator(tx),
	}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const transactionColumns = `id, invoice_number, customer_id, barber_id, queue_id, subtotal, discount_amount, tax_amount, total_amount, payment_method, paid_amount, change_amount, status, notes, created_at, updated_at`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.InvoiceNumber, &t.CustomerID, &t.BarberID, &t.QueueID,
		&t.Subtotal, &t.DiscountAmount, &t.TaxAmount, &t.TotalAmount,
		&t.PaymentMethod, &t.PaidAmount, &t.ChangeAmount, &t.Status, &t.Notes,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func loadItems(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, transactionID int64) ([]TransactionItem, error) {
	rows, err := q.Query(ctx, `SELECT id, transaction_id, item_type, item_id, item_name, quantity, unit_price, total_price, notes
FROM transaction_items WHERE transaction_id = $1 ORDER BY id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionItem
	for rows.Next() {
		var it TransactionItem
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.ItemType, &it.ItemID, &it.ItemName, &it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.Notes); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sales: transaction %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	t.Items, err = loadItems(ctx, r.pool, t.ID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *repository) GetByInvoice(ctx context.Context, invoiceNumber string) (*Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE invoice_number = $1`, invoiceNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sales: invoice %s: %w", invoiceNumber, shared.ErrNotFound)
		}
		return nil, err
	}
	t.Items, err = loadItems(ctx, r.pool, t.ID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *repository) List(ctx context.Context, req ListTransactionsRequest) ([]Transaction, int, error) {
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
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(req.Page, req.PerPage, total)
	query := fmt.Sprintf(`SELECT %s FROM transactions %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, whereClause, argPos, argPos+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range result {
		items, err := loadItems(ctx, r.pool, result[i].ID)
		if err != nil {
			return nil, 0, err
		}
		result[i].Items = items
	}
	return result, total, nil
}

func (r *repository) TodayStats(ctx context.Context) (TodayStats, error) {
	var stats TodayStats
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
FROM transactions WHERE status = 'completed' AND created_at::date = CURRENT_DATE`).
		Scan(&stats.TotalTransactions, &stats.TotalSales)
	if err != nil {
		return TodayStats{}, err
	}
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(ti.quantity), 0)
FROM transaction_items ti
JOIN transactions t ON ti.transaction_id = t.id
WHERE t.status = 'completed' AND t.created_at::date = CURRENT_DATE`).Scan(&stats.TotalItems)
	if err != nil {
		return TodayStats{}, err
	}
	return stats, nil
}

func (r *txRepo) GetService(ctx context.Context, id int64) (*catalog.Service, error) {
	return r.catalog.GetService(ctx, id)
}

func (r *txRepo) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	return r.catalog.GetProduct(ctx, id)
}

func (r *txRepo) AdjustStock(ctx context.Context, productID, delta int64) error {
	_, err := r.adjuster.Apply(ctx, productID, delta)
	return err
}

func (r *txRepo) NextInvoiceNumber(ctx context.Context, scopeDate time.Time) (string, error) {
	n, err := r.seq.Next(ctx, sequence.SeriesInvoice, scopeDate)
	if err != nil {
		return "", err
	}
	return sequence.FormatInvoice(scopeDate, n), nil
}

func (r *txRepo) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO transactions
(invoice_number, customer_id, barber_id, queue_id, subtotal, discount_amount, tax_amount, total_amount, payment_method, paid_amount, change_amount, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
RETURNING id`,
		t.InvoiceNumber, t.CustomerID, t.BarberID, t.QueueID,
		t.Subtotal, t.DiscountAmount, t.TaxAmount, t.TotalAmount,
		t.PaymentMethod, t.PaidAmount, t.ChangeAmount, t.Status, t.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sales: insert transaction: %w", err)
	}
	return id, nil
}

func (r *txRepo) InsertItems(ctx context.Context, transactionID int64, items []TransactionItem) error {
	for _, it := range items {
		_, err := r.tx.Exec(ctx, `INSERT INTO transaction_items
(transaction_id, item_type, item_id, item_name, quantity, unit_price, total_price, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			transactionID, it.ItemType, it.ItemID, it.ItemName, it.Quantity, it.UnitPrice, it.TotalPrice, it.Notes)
		if err != nil {
			return fmt.Errorf("sales: insert item: %w", err)
		}
	}
	return nil
}

func (r *txRepo) SettleQueue(ctx context.Context, queueID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE walkin_queues
SET status = 'completed', completed_at = NOW(), updated_at = NOW()
WHERE id = $1`, queueID)
	if err != nil {
		return fmt.Errorf("sales: settle queue %d: %w", queueID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sales: queue %d: %w", queueID, shared.ErrNotFound)
	}
	return nil
}

func (r *txRepo) GetForUpdate(ctx context.Context, id int64) (*Transaction, error) {
	t, err := scanTransaction(r.tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sales: transaction %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	t.Items, err = loadItems(ctx, r.tx, t.ID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *txRepo) UpdateStatus(ctx context.Context, id int64, status TransactionStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE transactions SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return err
}
