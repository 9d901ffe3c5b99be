package reporting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pangkas-pos/pangkas/internal/catalog"
	"github.com/pangkas-pos/pangkas/internal/payroll"
	"github.com/pangkas-pos/pangkas/internal/sales"
	"github.com/pangkas-pos/pangkas/internal/walkin"
)

type stubSources struct {
	calls int
	fail  bool
}

func (s *stubSources) TodayStats(context.Context) (sales.TodayStats, error) {
	s.calls++
	if s.fail {
		return sales.TodayStats{}, fmt.Errorf("db down")
	}
	return sales.TodayStats{TotalTransactions: 12, TotalSales: 1850000, TotalItems: 20}, nil
}

type stubQueue struct{}

func (stubQueue) TodayStats(context.Context) (walkin.TodayStats, error) {
	return walkin.TodayStats{Waiting: 3, InProgress: 1, Completed: 8}, nil
}

type stubStock struct{}

func (stubStock) LowStock(context.Context) ([]catalog.Product, error) {
	return []catalog.Product{{ID: 10, Name: "Pomade", Stock: 2, MinStock: 5}}, nil
}

type stubPayroll struct{}

func (stubPayroll) Statistics(_ context.Context, _ *int64, year int) (payroll.Statistics, error) {
	return payroll.Statistics{TotalSlips: 4, TotalPaid: 9000000, Year: year}, nil
}

func newTestService(t *testing.T) (*Service, *stubSources, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	src := &stubSources{}
	svc := NewService(src, stubQueue{}, stubStock{}, stubPayroll{}, NewCache(client, time.Minute))
	return svc, src, mr
}

func TestDashboardAggregates(t *testing.T) {
	svc, _, _ := newTestService(t)

	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	require.Equal(t, 12, dash.Sales.TotalTransactions)
	require.InDelta(t, 1850000, dash.Sales.TotalSales, 0.001)
	require.Equal(t, 3, dash.Queue.Waiting)
	require.Len(t, dash.LowStock, 1)
	require.Equal(t, "Pomade", dash.LowStock[0].Name)
	require.Equal(t, 4, dash.Payroll.TotalSlips)
}

func TestDashboardCacheHit(t *testing.T) {
	svc, src, _ := newTestService(t)

	_, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)

	// second read is served from redis, sources stay untouched
	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)
	require.Equal(t, 12, dash.Sales.TotalTransactions)
}

func TestDashboardCacheExpiry(t *testing.T) {
	svc, src, mr := newTestService(t)

	_, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
}

func TestDashboardSourceFailure(t *testing.T) {
	svc, src, _ := newTestService(t)
	src.fail = true

	_, err := svc.Dashboard(context.Background())
	require.Error(t, err)
}

func TestDashboardWithoutCache(t *testing.T) {
	src := &stubSources{}
	svc := NewService(src, stubQueue{}, stubStock{}, stubPayroll{}, nil)

	_, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	_, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
}
