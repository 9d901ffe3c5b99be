package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pangkas-pos/pangkas/internal/platform/db"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

// TaskPort enqueues slip notification jobs. Enqueue failures never fail the
// payroll operation.
type TaskPort interface {
	EnqueueSlipCreated(ctx context.Context, slip Slip) error
	EnqueueSlipPaid(ctx context.Context, slip Slip) error
}

// AuditPort records mutations after commit, best effort.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

const maxTxAttempts = 3

// Service manages the salary slip lifecycle. Generation snapshots the
// commission base inside one transaction; the unique period constraint picks
// exactly one winner among concurrent generators.
type Service struct {
	repo   Repository
	tasks  TaskPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService constructs a payroll Service.
func NewService(repo Repository, tasks TaskPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, tasks: tasks, audit: audit, logger: logger}
}

// Generate creates a draft slip for one barber and calendar month. The
// commission snapshot is frozen at this point; a duplicate period surfaces
// as ErrConflict and the caller can fetch the existing slip.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Slip, error) {
	if req.Month < 1 || req.Month > 12 {
		return nil, fmt.Errorf("payroll: month %d out of range: %w", req.Month, shared.ErrValidation)
	}
	if req.Year < 2020 || req.Year > 2100 {
		return nil, fmt.Errorf("payroll: year %d out of range: %w", req.Year, shared.ErrValidation)
	}

	from, to := PeriodBounds(req.Year, req.Month)

	var slipID int64
	attempt := func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			barber, err := tx.GetBarber(ctx, req.BarberID)
			if err != nil {
				return err
			}
			breakdown, err := tx.PeriodBreakdown(ctx, req.BarberID, from, to)
			if err != nil {
				return err
			}

			slip := Slip{
				BarberID:               barber.ID,
				Year:                   req.Year,
				Month:                  req.Month,
				PeriodName:             PeriodName(req.Year, req.Month),
				Status:                 SlipDraft,
				BaseSalary:             barber.BaseSalary,
				CommissionTotal:        Commission(breakdown.GrossAmount, barber.CommissionRate),
				TotalCustomers:         breakdown.Customers,
				TotalServices:          breakdown.ServiceItems,
				TotalTransactionAmount: breakdown.GrossAmount,
			}
			slip.Recalculate()

			id, err := tx.Insert(ctx, slip)
			if err != nil {
				return err
			}
			slipID = id
			return nil
		})
	}

	if err := s.retryTx(ctx, attempt); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("payroll: slip for barber %d period %d-%02d already exists: %w",
				req.BarberID, req.Year, req.Month, shared.ErrConflict)
		}
		return nil, err
	}

	created, err := s.repo.Get(ctx, slipID)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "payroll:generate", created.ID, map[string]any{
		"barber_id":   created.BarberID,
		"period_name": created.PeriodName,
		"net_salary":  created.NetSalary,
	})
	s.enqueue(ctx, "slip created", created, func(ctx context.Context, slip Slip) error {
		return s.tasks.EnqueueSlipCreated(ctx, slip)
	})
	return created, nil
}

// FindByPeriod returns the slip for one barber and month, if any.
func (s *Service) FindByPeriod(ctx context.Context, barberID int64, year, month int) (*Slip, error) {
	return s.repo.FindByPeriod(ctx, barberID, year, month)
}

// Update patches a draft slip and recomputes its totals. Any other status is
// rejected: approved and paid slips are frozen.
func (s *Service) Update(ctx context.Context, id int64, req UpdateSlipRequest) (*Slip, error) {
	attempt := func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			slip, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if slip.Status != SlipDraft {
				return fmt.Errorf("payroll: slip %d is %s, only draft can be updated: %w",
					id, slip.Status, shared.ErrState)
			}

			applyFloat := func(dst *float64, src *float64) {
				if src != nil {
					*dst = *src
				}
			}
			applyFloat(&slip.BaseSalary, req.BaseSalary)
			applyFloat(&slip.Bonus, req.Bonus)
			applyFloat(&slip.Overtime, req.Overtime)
			applyFloat(&slip.DeductionLate, req.DeductionLate)
			applyFloat(&slip.DeductionAbsence, req.DeductionAbsence)
			applyFloat(&slip.DeductionOther, req.DeductionOther)
			if req.DeductionNote != nil {
				slip.DeductionNote = req.DeductionNote
			}
			if req.Note != nil {
				slip.Note = req.Note
			}
			slip.Recalculate()
			return tx.Update(ctx, *slip)
		})
	}

	if err := s.retryTx(ctx, attempt); err != nil {
		return nil, err
	}
	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "payroll:update", id, map[string]any{"net_salary": updated.NetSalary})
	return updated, nil
}

// Approve moves a draft slip to approved.
func (s *Service) Approve(ctx context.Context, id int64) (*Slip, error) {
	attempt := func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			slip, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if slip.Status != SlipDraft {
				return fmt.Errorf("payroll: slip %d is %s, only draft can be approved: %w",
					id, slip.Status, shared.ErrState)
			}
			slip.Status = SlipApproved
			return tx.Update(ctx, *slip)
		})
	}

	if err := s.retryTx(ctx, attempt); err != nil {
		return nil, err
	}
	approved, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "payroll:approve", id, nil)
	return approved, nil
}

// MarkPaid settles a slip. Paid is terminal; paying twice is rejected.
func (s *Service) MarkPaid(ctx context.Context, id int64, paidBy string) (*Slip, error) {
	if paidBy == "" {
		return nil, fmt.Errorf("payroll: paid_by required: %w", shared.ErrValidation)
	}

	attempt := func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			slip, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if slip.Status == SlipPaid {
				return fmt.Errorf("payroll: slip %d already paid: %w", id, shared.ErrState)
			}
			return tx.MarkPaid(ctx, id, paidBy, time.Now())
		})
	}

	if err := s.retryTx(ctx, attempt); err != nil {
		return nil, err
	}
	paid, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "payroll:pay", id, map[string]any{
		"paid_by":    paidBy,
		"net_salary": paid.NetSalary,
	})
	s.enqueue(ctx, "slip paid", paid, func(ctx context.Context, slip Slip) error {
		return s.tasks.EnqueueSlipPaid(ctx, slip)
	})
	return paid, nil
}

// Delete removes a draft slip so its period can be regenerated.
func (s *Service) Delete(ctx context.Context, id int64) error {
	attempt := func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			slip, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if slip.Status != SlipDraft {
				return fmt.Errorf("payroll: slip %d is %s, only draft can be deleted: %w",
					id, slip.Status, shared.ErrState)
			}
			return tx.Delete(ctx, id)
		})
	}

	if err := s.retryTx(ctx, attempt); err != nil {
		return err
	}
	s.recordAudit(ctx, "payroll:delete", id, nil)
	return nil
}

// Get returns one slip.
func (s *Service) Get(ctx context.Context, id int64) (*Slip, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered, paginated slip listing.
func (s *Service) List(ctx context.Context, req ListSlipsRequest) ([]Slip, int, error) {
	return s.repo.List(ctx, req)
}

// Statistics returns one year's totals by status.
func (s *Service) Statistics(ctx context.Context, barberID *int64, year int) (Statistics, error) {
	if year == 0 {
		year = time.Now().Year()
	}
	return s.repo.Statistics(ctx, barberID, year)
}

// AvailableYears lists the years that have slips, newest first.
func (s *Service) AvailableYears(ctx context.Context) ([]int, error) {
	return s.repo.AvailableYears(ctx)
}

// retryTx retries only serialization failures. Unique violations are real
// duplicates here, never transient, so they pass straight through.
func (s *Service) retryTx(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !db.IsRetryable(err) {
			return err
		}
		if s.logger != nil {
			s.logger.Warn("retrying payroll transaction",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("payroll: transaction contention after %d attempts: %w", maxTxAttempts, shared.ErrConflict)
}

func (s *Service) enqueue(ctx context.Context, kind string, slip *Slip, fn func(context.Context, Slip) error) {
	if s.tasks == nil {
		return
	}
	if err := fn(ctx, *slip); err != nil && s.logger != nil {
		s.logger.Warn("enqueue notification failed",
			slog.String("kind", kind),
			slog.Int64("slip_id", slip.ID),
			slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "salary_slip",
		EntityID: fmt.Sprint(entityID),
		Meta:     meta,
	})
	if err != nil && s.logger != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
