package reporting

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pangkas-pos/pangkas/internal/catalog"
	"github.com/pangkas-pos/pangkas/internal/payroll"
	"github.com/pangkas-pos/pangkas/internal/sales"
	"github.com/pangkas-pos/pangkas/internal/walkin"
)

// SalesStatsPort supplies today's sales aggregates.
type SalesStatsPort interface {
	TodayStats(ctx context.Context) (sales.TodayStats, error)
}

// QueueStatsPort supplies today's queue counts.
type QueueStatsPort interface {
	TodayStats(ctx context.Context) (walkin.TodayStats, error)
}

// StockPort lists products at or below their reorder level.
type StockPort interface {
	LowStock(ctx context.Context) ([]catalog.Product, error)
}

// PayrollStatsPort supplies the current year's payroll totals.
type PayrollStatsPort interface {
	Statistics(ctx context.Context, barberID *int64, year int) (payroll.Statistics, error)
}

// Dashboard is the aggregate served to the back-office home screen.
type Dashboard struct {
	Sales       sales.TodayStats   `json:"sales"`
	Queue       walkin.TodayStats  `json:"queue"`
	LowStock    []catalog.Product  `json:"low_stock"`
	Payroll     payroll.Statistics `json:"payroll"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Service builds the dashboard. All sources are queried concurrently; the
// whole payload is cached and concurrent cache misses share one build.
type Service struct {
	salesStats   SalesStatsPort
	queueStats   QueueStatsPort
	stock        StockPort
	payrollStats PayrollStatsPort
	cache        *Cache
	group        singleflight.Group
}

// NewService constructs a reporting Service.
func NewService(salesStats SalesStatsPort, queueStats QueueStatsPort, stock StockPort, payrollStats PayrollStatsPort, cache *Cache) *Service {
	return &Service{
		salesStats:   salesStats,
		queueStats:   queueStats,
		stock:        stock,
		payrollStats: payrollStats,
		cache:        cache,
	}
}

func dashboardKey(day time.Time) string {
	return fmt.Sprintf("reporting:dashboard:%s", day.Format("2006-01-02"))
}

// Dashboard returns today's aggregates, cached.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	key := dashboardKey(time.Now())

	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		var dash Dashboard
		err := s.cache.FetchJSON(ctx, key, &dash, func(ctx context.Context) (interface{}, error) {
			return s.build(ctx)
		})
		return dash, err
	})

	select {
	case <-ctx.Done():
		return Dashboard{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Dashboard{}, res.Err
		}
		return res.Val.(Dashboard), nil
	}
}

func (s *Service) build(ctx context.Context) (Dashboard, error) {
	dash := Dashboard{GeneratedAt: time.Now()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.salesStats.TodayStats(ctx)
		if err != nil {
			return fmt.Errorf("reporting: sales stats: %w", err)
		}
		dash.Sales = stats
		return nil
	})
	g.Go(func() error {
		stats, err := s.queueStats.TodayStats(ctx)
		if err != nil {
			return fmt.Errorf("reporting: queue stats: %w", err)
		}
		dash.Queue = stats
		return nil
	})
	g.Go(func() error {
		products, err := s.stock.LowStock(ctx)
		if err != nil {
			return fmt.Errorf("reporting: low stock: %w", err)
		}
		if products == nil {
			products = []catalog.Product{}
		}
		dash.LowStock = products
		return nil
	})
	g.Go(func() error {
		stats, err := s.payrollStats.Statistics(ctx, nil, time.Now().Year())
		if err != nil {
			return fmt.Errorf("reporting: payroll stats: %w", err)
		}
		dash.Payroll = stats
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}
