package walkin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pangkas-pos/pangkas/internal/platform/db"
	"github.com/pangkas-pos/pangkas/internal/settings"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

// SettingsPort supplies the configured queue number prefix.
type SettingsPort interface {
	String(ctx context.Context, key string, def string) (string, error)
}

const maxTxAttempts = 3

// Service registers and advances walk-in queue entries. Numbering and the
// entry insert commit together, so two concurrent registrations can never
// share a ticket number.
type Service struct {
	repo     Repository
	settings SettingsPort
	logger   *slog.Logger
}

// NewService constructs a walk-in Service.
func NewService(repo Repository, settings SettingsPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, settings: settings, logger: logger}
}

// Register creates a waiting queue entry with the next ticket number for
// today.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Entry, error) {
	if req.CustomerName == "" {
		return nil, fmt.Errorf("walkin: customer name required: %w", shared.ErrValidation)
	}
	if len(req.ServiceIDs) == 0 {
		return nil, fmt.Errorf("walkin: at least one service required: %w", shared.ErrValidation)
	}

	prefix := settings.DefaultQueuePrefix
	if s.settings != nil {
		var err error
		prefix, err = s.settings.String(ctx, settings.KeyQueuePrefix, settings.DefaultQueuePrefix)
		if err != nil {
			return nil, fmt.Errorf("walkin: load queue prefix: %w", err)
		}
	}

	var entryID int64
	scopeDate := time.Now()
	attempt := func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			number, err := tx.NextQueueNumber(ctx, prefix, scopeDate)
			if err != nil {
				return err
			}
			id, err := tx.Insert(ctx, Entry{
				QueueNumber:  number,
				CustomerID:   req.CustomerID,
				BarberID:     req.BarberID,
				CustomerName: req.CustomerName,
				ServiceIDs:   req.ServiceIDs,
				Notes:        req.Notes,
				Status:       StatusWaiting,
			})
			if err != nil {
				return err
			}
			entryID = id
			return nil
		})
	}

	if err := s.retryTx(ctx, attempt); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, entryID)
}

// UpdateStatus advances an entry through its lifecycle, stamping started_at
// and completed_at on the matching transitions.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*Entry, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("walkin: unknown status %q: %w", status, shared.ErrValidation)
	}

	attempt := func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			existing, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if !CanTransition(existing.Status, status) {
				return fmt.Errorf("walkin: entry %d cannot go %s -> %s: %w",
					id, existing.Status, status, shared.ErrState)
			}
			now := time.Now()
			var startedAt, completedAt *time.Time
			switch status {
			case StatusInProgress:
				startedAt = &now
			case StatusCompleted:
				completedAt = &now
			}
			return tx.SetStatus(ctx, id, status, startedAt, completedAt)
		})
	}

	if err := s.retryTx(ctx, attempt); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Call stamps called_at on a waiting entry so display boards can announce it.
// Calling is repeatable; only terminal entries are rejected.
func (s *Service) Call(ctx context.Context, id int64) (*Entry, error) {
	attempt := func() error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			existing, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if existing.Status.Terminal() {
				return fmt.Errorf("walkin: entry %d already %s: %w", id, existing.Status, shared.ErrState)
			}
			return tx.MarkCalled(ctx, id, time.Now())
		})
	}

	if err := s.retryTx(ctx, attempt); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get returns one queue entry.
func (s *Service) Get(ctx context.Context, id int64) (*Entry, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered, paginated queue listing.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Entry, int, error) {
	return s.repo.List(ctx, req)
}

// Active returns today's waiting and in-progress entries in arrival order.
func (s *Service) Active(ctx context.Context) ([]Entry, error) {
	return s.repo.Active(ctx)
}

// TodayStats returns today's per-status counts.
func (s *Service) TodayStats(ctx context.Context) (TodayStats, error) {
	return s.repo.TodayStats(ctx)
}

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
			s.logger.Warn("retrying queue transaction",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("walkin: transaction contention after %d attempts: %w", maxTxAttempts, shared.ErrConflict)
}
