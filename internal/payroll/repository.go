package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pangkas-pos/pangkas/internal/shared"
	"github.com/pangkas-pos/pangkas/internal/staff"
)

// Repository is the persistence port used by Service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Slip, error)
	FindByPeriod(ctx context.Context, barberID int64, year, month int) (*Slip, error)
	List(ctx context.Context, req ListSlipsRequest) ([]Slip, int, error)
	Statistics(ctx context.Context, barberID *int64, year int) (Statistics, error)
	AvailableYears(ctx context.Context) ([]int, error)
}

// TxRepository exposes the writes one payroll mutation performs atomically.
// The commission base is read through the same transaction that inserts the
// slip, so the snapshot can never straddle a concurrent sale.
type TxRepository interface {
	GetBarber(ctx context.Context, id int64) (*staff.Barber, error)
	PeriodBreakdown(ctx context.Context, barberID int64, from, to time.Time) (PeriodBreakdown, error)
	Insert(ctx context.Context, s Slip) (int64, error)
	GetForUpdate(ctx context.Context, id int64) (*Slip, error)
	Update(ctx context.Context, s Slip) error
	MarkPaid(ctx context.Context, id int64, paidBy string, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepo struct {
	tx      pgx.Tx
	barbers *staff.Repository
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("payroll: begin tx: %w", err)
	}
	if err := fn(ctx, &txRepo{tx: tx, barbers: staff.NewRepository(tx)}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const slipColumns = `s.id, s.barber_id, s.year, s.month, s.period_name, s.status,
s.base_salary, s.commission_total, s.bonus, s.overtime,
s.deduction_late, s.deduction_absence, s.deduction_other, s.deduction_note,
s.total_income, s.total_deduction, s.net_salary,
s.total_customers, s.total_services, s.total_transaction_amount,
s.note, s.paid_at, s.paid_by, s.created_at, s.updated_at, b.name`

const slipFrom = ` FROM salary_slips s JOIN barbers b ON b.id = s.barber_id `

func scanSlip(row pgx.Row) (*Slip, error) {
	var s Slip
	err := row.Scan(&s.ID, &s.BarberID, &s.Year, &s.Month, &s.PeriodName, &s.Status,
		&s.BaseSalary, &s.CommissionTotal, &s.Bonus, &s.Overtime,
		&s.DeductionLate, &s.DeductionAbsence, &s.DeductionOther, &s.DeductionNote,
		&s.TotalIncome, &s.TotalDeduction, &s.NetSalary,
		&s.TotalCustomers, &s.TotalServices, &s.TotalTransactionAmount,
		&s.Note, &s.PaidAt, &s.PaidBy, &s.CreatedAt, &s.UpdatedAt, &s.BarberName)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Slip, error) {
	s, err := scanSlip(r.pool.QueryRow(ctx, `SELECT `+slipColumns+slipFrom+`WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payroll: slip %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return s, nil
}

func (r *repository) FindByPeriod(ctx context.Context, barberID int64, year, month int) (*Slip, error) {
	s, err := scanSlip(r.pool.QueryRow(ctx,
		`SELECT `+slipColumns+slipFrom+`WHERE s.barber_id = $1 AND s.year = $2 AND s.month = $3`,
		barberID, year, month))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payroll: slip for barber %d period %d-%02d: %w",
				barberID, year, month, shared.ErrNotFound)
		}
		return nil, err
	}
	return s, nil
}

func (r *repository) List(ctx context.Context, req ListSlipsRequest) ([]Slip, int, error) {
	conditions := []string{"TRUE"}
	var args []any
	argPos := 1

	if req.BarberID != nil {
		conditions = append(conditions, fmt.Sprintf("s.barber_id = $%d", argPos))
		args = append(args, *req.BarberID)
		argPos++
	}
	if req.Year != nil {
		conditions = append(conditions, fmt.Sprintf("s.year = $%d", argPos))
		args = append(args, *req.Year)
		argPos++
	}
	if req.Month != nil {
		conditions = append(conditions, fmt.Sprintf("s.month = $%d", argPos))
		args = append(args, *req.Month)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+slipFrom+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(req.Page, req.PerPage, total)
	query := fmt.Sprintf(`SELECT %s%s%s ORDER BY s.year DESC, s.month DESC, b.name LIMIT $%d OFFSET $%d`,
		slipColumns, slipFrom, whereClause, argPos, argPos+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Slip
	for rows.Next() {
		s, err := scanSlip(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *s)
	}
	return result, total, rows.Err()
}

func (r *repository) Statistics(ctx context.Context, barberID *int64, year int) (Statistics, error) {
	stats := Statistics{Year: year}
	query := `SELECT COUNT(*),
COALESCE(SUM(net_salary) FILTER (WHERE status = 'paid'), 0),
COALESCE(SUM(net_salary) FILTER (WHERE status IN ('draft', 'approved')), 0)
FROM salary_slips WHERE year = $1`
	args := []any{year}
	if barberID != nil {
		query += ` AND barber_id = $2`
		args = append(args, *barberID)
	}
	err := r.pool.QueryRow(ctx, query, args...).Scan(&stats.TotalSlips, &stats.TotalPaid, &stats.TotalPending)
	if err != nil {
		return Statistics{}, err
	}
	return stats, nil
}

func (r *repository) AvailableYears(ctx context.Context) ([]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT year FROM salary_slips ORDER BY year DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(years) == 0 {
		years = []int{time.Now().Year()}
	}
	return years, nil
}

func (r *txRepo) GetBarber(ctx context.Context, id int64) (*staff.Barber, error) {
	return r.barbers.Get(ctx, id)
}

func (r *txRepo) PeriodBreakdown(ctx context.Context, barberID int64, from, to time.Time) (PeriodBreakdown, error) {
	var b PeriodBreakdown
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
FROM transactions
WHERE barber_id = $1 AND status = 'completed' AND created_at >= $2 AND created_at < $3`,
		barberID, from, to).Scan(&b.GrossAmount, &b.Customers)
	if err != nil {
		return PeriodBreakdown{}, err
	}
	err = r.tx.QueryRow(ctx, `SELECT COUNT(*)
FROM transaction_items ti
JOIN transactions t ON t.id = ti.transaction_id
WHERE t.barber_id = $1 AND t.status = 'completed' AND ti.item_type = 'service'
AND t.created_at >= $2 AND t.created_at < $3`,
		barberID, from, to).Scan(&b.ServiceItems)
	if err != nil {
		return PeriodBreakdown{}, err
	}
	return b, nil
}

func (r *txRepo) Insert(ctx context.Context, s Slip) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO salary_slips
(barber_id, year, month, period_name, status,
 base_salary, commission_total, bonus, overtime,
 deduction_late, deduction_absence, deduction_other, deduction_note,
 total_income, total_deduction, net_salary,
 total_customers, total_services, total_transaction_amount,
 note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, NOW(), NOW())
RETURNING id`,
		s.BarberID, s.Year, s.Month, s.PeriodName, s.Status,
		s.BaseSalary, s.CommissionTotal, s.Bonus, s.Overtime,
		s.DeductionLate, s.DeductionAbsence, s.DeductionOther, s.DeductionNote,
		s.TotalIncome, s.TotalDeduction, s.NetSalary,
		s.TotalCustomers, s.TotalServices, s.TotalTransactionAmount,
		s.Note).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("payroll: insert slip: %w", err)
	}
	return id, nil
}

func (r *txRepo) GetForUpdate(ctx context.Context, id int64) (*Slip, error) {
	s, err := scanSlip(r.tx.QueryRow(ctx, `SELECT `+slipColumns+slipFrom+`WHERE s.id = $1 FOR UPDATE OF s`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payroll: slip %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return s, nil
}

func (r *txRepo) Update(ctx context.Context, s Slip) error {
	tag, err := r.tx.Exec(ctx, `UPDATE salary_slips SET
base_salary = $2, bonus = $3, overtime = $4,
deduction_late = $5, deduction_absence = $6, deduction_other = $7, deduction_note = $8,
total_income = $9, total_deduction = $10, net_salary = $11,
status = $12, note = $13, updated_at = NOW()
WHERE id = $1`,
		s.ID, s.BaseSalary, s.Bonus, s.Overtime,
		s.DeductionLate, s.DeductionAbsence, s.DeductionOther, s.DeductionNote,
		s.TotalIncome, s.TotalDeduction, s.NetSalary,
		s.Status, s.Note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payroll: slip %d: %w", s.ID, shared.ErrNotFound)
	}
	return nil
}

func (r *txRepo) MarkPaid(ctx context.Context, id int64, paidBy string, at time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE salary_slips SET status = 'paid', paid_at = $2, paid_by = $3, updated_at = NOW() WHERE id = $1`,
		id, at, paidBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payroll: slip %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *txRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM salary_slips WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payroll: slip %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
