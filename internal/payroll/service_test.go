package payroll

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/pangkas-pos/pangkas/internal/shared"
	"github.com/pangkas-pos/pangkas/internal/staff"
)

type periodKey struct {
	barberID    int64
	year, month int
}

type memState struct {
	barbers   map[int64]staff.Barber
	breakdown map[int64]PeriodBreakdown
	slips     map[int64]*Slip
	periods   map[periodKey]int64
	nextID    int64
}

func (s *memState) clone() *memState {
	out := &memState{
		barbers:   s.barbers,
		breakdown: s.breakdown,
		slips:     map[int64]*Slip{},
		periods:   map[periodKey]int64{},
		nextID:    s.nextID,
	}
	for k, v := range s.slips {
		cp := *v
		out.slips[k] = &cp
	}
	for k, v := range s.periods {
		out.periods[k] = v
	}
	return out
}

type memRepo struct {
	state *memState
}

func newMemRepo() *memRepo {
	return &memRepo{state: &memState{
		barbers: map[int64]staff.Barber{
			1: {ID: 1, Name: "Agus", CommissionRate: 35, BaseSalary: 2000000},
		},
		breakdown: map[int64]PeriodBreakdown{
			1: {GrossAmount: 10000000, Customers: 40, ServiceItems: 55},
		},
		slips:   map[int64]*Slip{},
		periods: map[periodKey]int64{},
	}}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	next := r.state.clone()
	if err := fn(ctx, &memTx{state: next}); err != nil {
		return err
	}
	r.state = next
	return nil
}

func (r *memRepo) Get(_ context.Context, id int64) (*Slip, error) {
	s, ok := r.state.slips[id]
	if !ok {
		return nil, fmt.Errorf("payroll: slip %d: %w", id, shared.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) FindByPeriod(ctx context.Context, barberID int64, year, month int) (*Slip, error) {
	id, ok := r.state.periods[periodKey{barberID, year, month}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *memRepo) List(context.Context, ListSlipsRequest) ([]Slip, int, error) {
	return nil, 0, nil
}

func (r *memRepo) Statistics(_ context.Context, barberID *int64, year int) (Statistics, error) {
	stats := Statistics{Year: year}
	for _, s := range r.state.slips {
		if s.Year != year {
			continue
		}
		if barberID != nil && s.BarberID != *barberID {
			continue
		}
		stats.TotalSlips++
		if s.Status == SlipPaid {
			stats.TotalPaid += s.NetSalary
		} else {
			stats.TotalPending += s.NetSalary
		}
	}
	return stats, nil
}

func (r *memRepo) AvailableYears(context.Context) ([]int, error) {
	return []int{time.Now().Year()}, nil
}

type memTx struct {
	state *memState
}

func (t *memTx) GetBarber(_ context.Context, id int64) (*staff.Barber, error) {
	b, ok := t.state.barbers[id]
	if !ok {
		return nil, fmt.Errorf("staff: barber %d: %w", id, shared.ErrNotFound)
	}
	return &b, nil
}

func (t *memTx) PeriodBreakdown(_ context.Context, barberID int64, _, _ time.Time) (PeriodBreakdown, error) {
	return t.state.breakdown[barberID], nil
}

func (t *memTx) Insert(_ context.Context, s Slip) (int64, error) {
	key := periodKey{s.BarberID, s.Year, s.Month}
	if _, exists := t.state.periods[key]; exists {
		return 0, &pgconn.PgError{Code: "23505", ConstraintName: "salary_slips_barber_period_key"}
	}
	t.state.nextID++
	s.ID = t.state.nextID
	t.state.slips[s.ID] = &s
	t.state.periods[key] = s.ID
	return s.ID, nil
}

func (t *memTx) GetForUpdate(_ context.Context, id int64) (*Slip, error) {
	s, ok := t.state.slips[id]
	if !ok {
		return nil, fmt.Errorf("payroll: slip %d: %w", id, shared.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (t *memTx) Update(_ context.Context, s Slip) error {
	if _, ok := t.state.slips[s.ID]; !ok {
		return shared.ErrNotFound
	}
	cp := s
	t.state.slips[s.ID] = &cp
	return nil
}

func (t *memTx) MarkPaid(_ context.Context, id int64, paidBy string, at time.Time) error {
	s, ok := t.state.slips[id]
	if !ok {
		return shared.ErrNotFound
	}
	s.Status = SlipPaid
	s.PaidAt = &at
	s.PaidBy = &paidBy
	return nil
}

func (t *memTx) Delete(_ context.Context, id int64) error {
	s, ok := t.state.slips[id]
	if !ok {
		return shared.ErrNotFound
	}
	delete(t.state.periods, periodKey{s.BarberID, s.Year, s.Month})
	delete(t.state.slips, id)
	return nil
}

type stubTasks struct {
	created []Slip
	paid    []Slip
	fail    bool
}

func (s *stubTasks) EnqueueSlipCreated(_ context.Context, slip Slip) error {
	if s.fail {
		return fmt.Errorf("broker down")
	}
	s.created = append(s.created, slip)
	return nil
}

func (s *stubTasks) EnqueueSlipPaid(_ context.Context, slip Slip) error {
	if s.fail {
		return fmt.Errorf("broker down")
	}
	s.paid = append(s.paid, slip)
	return nil
}

func generate(t *testing.T, svc *Service) *Slip {
	t.Helper()
	slip, err := svc.Generate(context.Background(), GenerateRequest{BarberID: 1, Year: 2026, Month: 8})
	require.NoError(t, err)
	return slip
}

func TestCommission(t *testing.T) {
	require.InDelta(t, 3500000, Commission(10000000, 35), 0.001)
	require.InDelta(t, 0, Commission(0, 35), 0.001)
}

func TestPeriodName(t *testing.T) {
	require.Equal(t, "Agustus 2026", PeriodName(2026, 8))
	require.Equal(t, "Januari 2025", PeriodName(2025, 1))
}

func TestFormatRupiah(t *testing.T) {
	require.Contains(t, FormatRupiah(3500000), "3.500.000")
}

func TestGenerateSnapshotsCommission(t *testing.T) {
	tasks := &stubTasks{}
	svc := NewService(newMemRepo(), tasks, nil, nil)

	slip := generate(t, svc)

	require.Equal(t, SlipDraft, slip.Status)
	require.Equal(t, "Agustus 2026", slip.PeriodName)
	require.InDelta(t, 2000000, slip.BaseSalary, 0.001)
	require.InDelta(t, 3500000, slip.CommissionTotal, 0.001)
	require.InDelta(t, 5500000, slip.TotalIncome, 0.001)
	require.InDelta(t, 0, slip.TotalDeduction, 0.001)
	require.InDelta(t, 5500000, slip.NetSalary, 0.001)
	require.Equal(t, 40, slip.TotalCustomers)
	require.Equal(t, 55, slip.TotalServices)
	require.InDelta(t, 10000000, slip.TotalTransactionAmount, 0.001)

	require.Len(t, tasks.created, 1)
}

func TestGenerateDuplicatePeriod(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil, nil)

	first := generate(t, svc)

	_, err := svc.Generate(context.Background(), GenerateRequest{BarberID: 1, Year: 2026, Month: 8})
	require.ErrorIs(t, err, shared.ErrConflict)

	existing, err := svc.FindByPeriod(context.Background(), 1, 2026, 8)
	require.NoError(t, err)
	require.Equal(t, first.ID, existing.ID)
}

func TestGenerateUnknownBarber(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil, nil)

	_, err := svc.Generate(context.Background(), GenerateRequest{BarberID: 99, Year: 2026, Month: 8})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGenerateEnqueueFailureDoesNotFail(t *testing.T) {
	svc := NewService(newMemRepo(), &stubTasks{fail: true}, nil, nil)

	slip := generate(t, svc)
	require.Equal(t, SlipDraft, slip.Status)
}

func TestUpdateDraftRecomputesTotals(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil, nil)
	slip := generate(t, svc)

	bonus := 500000.0
	late := 100000.0
	updated, err := svc.Update(context.Background(), slip.ID, UpdateSlipRequest{
		Bonus:         &bonus,
		DeductionLate: &late,
	})
	require.NoError(t, err)

	// income = 2.000.000 base + 3.500.000 commission + 500.000 bonus
	require.InDelta(t, 6000000, updated.TotalIncome, 0.001)
	require.InDelta(t, 100000, updated.TotalDeduction, 0.001)
	require.InDelta(t, 5900000, updated.NetSalary, 0.001)
	// commission snapshot untouched
	require.InDelta(t, 3500000, updated.CommissionTotal, 0.001)
}

func TestUpdateRejectedAfterApproval(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil, nil)
	slip := generate(t, svc)

	_, err := svc.Approve(context.Background(), slip.ID)
	require.NoError(t, err)

	bonus := 500000.0
	_, err = svc.Update(context.Background(), slip.ID, UpdateSlipRequest{Bonus: &bonus})
	require.ErrorIs(t, err, shared.ErrState)
}

func TestLifecycle(t *testing.T) {
	tasks := &stubTasks{}
	svc := NewService(newMemRepo(), tasks, nil, nil)
	slip := generate(t, svc)

	approved, err := svc.Approve(context.Background(), slip.ID)
	require.NoError(t, err)
	require.Equal(t, SlipApproved, approved.Status)

	// approve is draft-only
	_, err = svc.Approve(context.Background(), slip.ID)
	require.ErrorIs(t, err, shared.ErrState)

	paid, err := svc.MarkPaid(context.Background(), slip.ID, "Ibu Ratna")
	require.NoError(t, err)
	require.Equal(t, SlipPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	require.Equal(t, "Ibu Ratna", *paid.PaidBy)
	require.Len(t, tasks.paid, 1)

	// paid is terminal
	_, err = svc.MarkPaid(context.Background(), slip.ID, "Ibu Ratna")
	require.ErrorIs(t, err, shared.ErrState)
	bonus := 1.0
	_, err = svc.Update(context.Background(), slip.ID, UpdateSlipRequest{Bonus: &bonus})
	require.ErrorIs(t, err, shared.ErrState)
}

func TestMarkPaidStraightFromDraft(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil, nil)
	slip := generate(t, svc)

	paid, err := svc.MarkPaid(context.Background(), slip.ID, "Ibu Ratna")
	require.NoError(t, err)
	require.Equal(t, SlipPaid, paid.Status)
}

func TestDeleteDraftOnly(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil, nil)
	slip := generate(t, svc)

	require.NoError(t, svc.Delete(context.Background(), slip.ID))
	_, err := svc.Get(context.Background(), slip.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	// period is free again after deletion
	regenerated := generate(t, svc)
	require.NotEqual(t, slip.ID, regenerated.ID)

	_, err = svc.Approve(context.Background(), regenerated.ID)
	require.NoError(t, err)
	err = svc.Delete(context.Background(), regenerated.ID)
	require.ErrorIs(t, err, shared.ErrState)
}
