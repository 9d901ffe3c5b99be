package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pangkas-pos/pangkas/internal/platform/db"
	"github.com/pangkas-pos/pangkas/internal/settings"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

// SettingsPort supplies the externally managed tax configuration.
type SettingsPort interface {
	Bool(ctx context.Context, key string, def bool) (bool, error)
	Float(ctx context.Context, key string, def float64) (float64, error)
}

// AuditPort records mutations after commit, best effort.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// The whole sale transaction is retried on serialization failures before the
// caller sees a retryable conflict.
const maxTxAttempts = 3

// Service records and cancels sales. Every mutation is one atomic unit: cart
// pricing, stock decrement, invoice numbering, ledger persistence and queue
// settlement commit or roll back together.
type Service struct {
	repo     Repository
	settings SettingsPort
	audit    AuditPort
	logger   *slog.Logger
}

// NewService constructs a sales Service.
func NewService(repo Repository, settings SettingsPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, settings: settings, audit: audit, logger: logger}
}

// Create records a completed sale.
func (s *Service) Create(ctx context.Context, req CreateTransactionRequest) (*Transaction, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("sales: empty cart: %w", shared.ErrValidation)
	}
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("sales: unknown payment method %q: %w", req.PaymentMethod, shared.ErrValidation)
	}
	if req.PaidAmount < 0 || req.DiscountAmount < 0 {
		return nil, fmt.Errorf("sales: negative amount: %w", shared.ErrValidation)
	}

	tax, err := s.taxConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("sales: load tax config: %w", err)
	}

	var transactionID int64
	scopeDate := time.Now()

	attempt := func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			cart, err := PriceCart(ctx, tx, req.Items, req.DiscountAmount, req.PaidAmount, tax)
			if err != nil {
				return err
			}

			for _, item := range cart.Items {
				if item.ItemType != ItemProduct {
					continue
				}
				if err := tx.AdjustStock(ctx, item.ItemID, -item.Quantity); err != nil {
					return err
				}
			}

			invoiceNumber, err := tx.NextInvoiceNumber(ctx, scopeDate)
			if err != nil {
				return err
			}

			header := Transaction{
				InvoiceNumber:  invoiceNumber,
				CustomerID:     req.CustomerID,
				BarberID:       req.BarberID,
				QueueID:        req.QueueID,
				Subtotal:       cart.Subtotal,
				DiscountAmount: cart.DiscountAmount,
				TaxAmount:      cart.TaxAmount,
				TotalAmount:    cart.TotalAmount,
				PaymentMethod:  req.PaymentMethod,
				PaidAmount:     cart.PaidAmount,
				ChangeAmount:   cart.ChangeAmount,
				Status:         StatusCompleted,
				Notes:          req.Notes,
			}
			id, err := tx.InsertTransaction(ctx, header)
			if err != nil {
				return err
			}
			if err := tx.InsertItems(ctx, id, cart.Items); err != nil {
				return err
			}
			if req.QueueID != nil {
				if err := tx.SettleQueue(ctx, *req.QueueID); err != nil {
					return err
				}
			}
			transactionID = id
			return nil
		})
	}

	if err := s.retryTx(ctx, attempt); err != nil {
		return nil, err
	}

	created, err := s.repo.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "sales:create", created.ID, map[string]any{
		"invoice_number": created.InvoiceNumber,
		"total_amount":   created.TotalAmount,
		"request_id":     uuid.NewString(),
	})
	return created, nil
}

// Cancel reverses a completed sale: stock is restored by exactly the quantity
// originally decremented and the header flips to cancelled. A transaction in
// any other state is rejected, so a retried cancel never double-restores.
func (s *Service) Cancel(ctx context.Context, id int64) (*Transaction, error) {
	attempt := func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			existing, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if existing.Status != StatusCompleted {
				return fmt.Errorf("sales: transaction %d is %s, only completed can be cancelled: %w", id, existing.Status, shared.ErrState)
			}
			for _, item := range existing.Items {
				if item.ItemType != ItemProduct {
					continue
				}
				if err := tx.AdjustStock(ctx, item.ItemID, item.Quantity); err != nil {
					return err
				}
			}
			return tx.UpdateStatus(ctx, id, StatusCancelled)
		})
	}

	if err := s.retryTx(ctx, attempt); err != nil {
		return nil, err
	}

	cancelled, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "sales:cancel", id, map[string]any{
		"invoice_number": cancelled.InvoiceNumber,
	})
	return cancelled, nil
}

// Get returns one transaction with its items.
func (s *Service) Get(ctx context.Context, id int64) (*Transaction, error) {
	return s.repo.Get(ctx, id)
}

// GetByInvoice returns one transaction by invoice number.
func (s *Service) GetByInvoice(ctx context.Context, invoiceNumber string) (*Transaction, error) {
	return s.repo.GetByInvoice(ctx, invoiceNumber)
}

// List returns a filtered, paginated ledger listing.
func (s *Service) List(ctx context.Context, req ListTransactionsRequest) ([]Transaction, int, error) {
	return s.repo.List(ctx, req)
}

// TodayStats returns the current day's completed sale aggregates.
func (s *Service) TodayStats(ctx context.Context) (TodayStats, error) {
	return s.repo.TodayStats(ctx)
}

// retryTx runs fn up to maxTxAttempts times, retrying only transient
// serialization and unique-collision failures. Domain errors pass through on
// the first occurrence; an exhausted budget surfaces as a retryable conflict.
func (s *Service) retryTx(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !db.IsRetryable(err) && !db.IsUniqueViolation(err) {
			return err
		}
		if s.logger != nil {
			s.logger.Warn("retrying sale transaction",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("sales: transaction contention after %d attempts: %w", maxTxAttempts, shared.ErrConflict)
}

func (s *Service) taxConfig(ctx context.Context) (TaxConfig, error) {
	if s.settings == nil {
		return TaxConfig{}, nil
	}
	enabled, err := s.settings.Bool(ctx, settings.KeyEnableTax, false)
	if err != nil {
		return TaxConfig{}, err
	}
	if !enabled {
		return TaxConfig{}, nil
	}
	rate, err := s.settings.Float(ctx, settings.KeyTaxRate, 0)
	if err != nil {
		return TaxConfig{}, err
	}
	return TaxConfig{Enabled: true, Rate: rate}, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "transaction",
		EntityID: fmt.Sprint(entityID),
		Meta:     meta,
	})
	if err != nil && s.logger != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
