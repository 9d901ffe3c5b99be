package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/pangkas-pos/pangkas/internal/catalog"
	"github.com/pangkas-pos/pangkas/internal/sequence"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

// memState is the committed store behind memRepo. WithTx hands fn a deep
// copy and swaps it in only when fn succeeds, so a failed transaction leaves
// the committed state untouched exactly like a rolled back database tx.
type memState struct {
	services     map[int64]catalog.Service
	products     map[int64]catalog.Product
	queues       map[int64]string
	transactions map[int64]*Transaction
	nextID       int64
	counter      int64
}

func (s *memState) clone() *memState {
	out := &memState{
		services:     map[int64]catalog.Service{},
		products:     map[int64]catalog.Product{},
		queues:       map[int64]string{},
		transactions: map[int64]*Transaction{},
		nextID:       s.nextID,
		counter:      s.counter,
	}
	for k, v := range s.services {
		out.services[k] = v
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.queues {
		out.queues[k] = v
	}
	for k, v := range s.transactions {
		cp := *v
		cp.Items = append([]TransactionItem(nil), v.Items...)
		out.transactions[k] = &cp
	}
	return out
}

type memRepo struct {
	state *memState

	// txErrs are consumed one per WithTx call before fn runs, simulating
	// transient commit failures.
	txErrs   []error
	attempts int
}

func newMemRepo() *memRepo {
	return &memRepo{state: &memState{
		services: map[int64]catalog.Service{
			1: {ID: 1, Name: "Potong Rambut", Price: 150000},
		},
		products: map[int64]catalog.Product{
			10: {ID: 10, Name: "Pomade", Price: 35000, Stock: 10, MinStock: 2},
		},
		queues:       map[int64]string{5: "in_progress"},
		transactions: map[int64]*Transaction{},
	}}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.attempts++
	if len(r.txErrs) > 0 {
		err := r.txErrs[0]
		r.txErrs = r.txErrs[1:]
		return err
	}
	next := r.state.clone()
	if err := fn(ctx, &memTx{state: next}); err != nil {
		return err
	}
	r.state = next
	return nil
}

func (r *memRepo) Get(_ context.Context, id int64) (*Transaction, error) {
	t, ok := r.state.transactions[id]
	if !ok {
		return nil, fmt.Errorf("sales: transaction %d: %w", id, shared.ErrNotFound)
	}
	cp := *t
	cp.Items = append([]TransactionItem(nil), t.Items...)
	return &cp, nil
}

func (r *memRepo) GetByInvoice(ctx context.Context, invoiceNumber string) (*Transaction, error) {
	for id, t := range r.state.transactions {
		if t.InvoiceNumber == invoiceNumber {
			return r.Get(ctx, id)
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memRepo) List(context.Context, ListTransactionsRequest) ([]Transaction, int, error) {
	return nil, 0, nil
}

func (r *memRepo) TodayStats(context.Context) (TodayStats, error) {
	return TodayStats{}, nil
}

type memTx struct {
	state *memState
}

func (t *memTx) GetService(_ context.Context, id int64) (*catalog.Service, error) {
	s, ok := t.state.services[id]
	if !ok {
		return nil, fmt.Errorf("catalog: service %d: %w", id, shared.ErrNotFound)
	}
	return &s, nil
}

func (t *memTx) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := t.state.products[id]
	if !ok {
		return nil, fmt.Errorf("catalog: product %d: %w", id, shared.ErrNotFound)
	}
	return &p, nil
}

func (t *memTx) AdjustStock(_ context.Context, productID, delta int64) error {
	p, ok := t.state.products[productID]
	if !ok {
		return fmt.Errorf("inventory: product %d: %w", productID, shared.ErrNotFound)
	}
	if p.Stock+delta < 0 {
		return fmt.Errorf("inventory: product %d stock %d cannot absorb %d: %w",
			productID, p.Stock, delta, shared.ErrInsufficientStock)
	}
	p.Stock += delta
	t.state.products[productID] = p
	return nil
}

func (t *memTx) NextInvoiceNumber(_ context.Context, scopeDate time.Time) (string, error) {
	t.state.counter++
	return sequence.FormatInvoice(scopeDate, t.state.counter), nil
}

func (t *memTx) InsertTransaction(_ context.Context, tr Transaction) (int64, error) {
	t.state.nextID++
	tr.ID = t.state.nextID
	t.state.transactions[tr.ID] = &tr
	return tr.ID, nil
}

func (t *memTx) InsertItems(_ context.Context, transactionID int64, items []TransactionItem) error {
	tr, ok := t.state.transactions[transactionID]
	if !ok {
		return shared.ErrNotFound
	}
	for _, item := range items {
		item.TransactionID = transactionID
		tr.Items = append(tr.Items, item)
	}
	return nil
}

func (t *memTx) SettleQueue(_ context.Context, queueID int64) error {
	if _, ok := t.state.queues[queueID]; !ok {
		return fmt.Errorf("sales: queue %d: %w", queueID, shared.ErrNotFound)
	}
	t.state.queues[queueID] = "completed"
	return nil
}

func (t *memTx) GetForUpdate(_ context.Context, id int64) (*Transaction, error) {
	tr, ok := t.state.transactions[id]
	if !ok {
		return nil, fmt.Errorf("sales: transaction %d: %w", id, shared.ErrNotFound)
	}
	cp := *tr
	cp.Items = append([]TransactionItem(nil), tr.Items...)
	return &cp, nil
}

func (t *memTx) UpdateStatus(_ context.Context, id int64, status TransactionStatus) error {
	tr, ok := t.state.transactions[id]
	if !ok {
		return shared.ErrNotFound
	}
	tr.Status = status
	return nil
}

type stubSettings struct {
	enableTax bool
	taxRate   float64
}

func (s stubSettings) Bool(context.Context, string, bool) (bool, error) {
	return s.enableTax, nil
}

func (s stubSettings) Float(context.Context, string, float64) (float64, error) {
	return s.taxRate, nil
}

type stubAudit struct {
	logs []shared.AuditLog
}

func (a *stubAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newSaleRequest() CreateTransactionRequest {
	barberID := int64(3)
	return CreateTransactionRequest{
		BarberID: &barberID,
		Items: []CartLineRequest{
			{ItemType: ItemService, ItemID: 1, Quantity: 1},
			{ItemType: ItemProduct, ItemID: 10, Quantity: 2},
		},
		DiscountAmount: 20000,
		PaymentMethod:  PaymentCash,
		PaidAmount:     250000,
	}
}

func TestCreateRecordsSaleAtomically(t *testing.T) {
	repo := newMemRepo()
	audit := &stubAudit{}
	svc := NewService(repo, stubSettings{enableTax: true, taxRate: 10}, audit, nil)

	req := newSaleRequest()
	queueID := int64(5)
	req.QueueID = &queueID

	created, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, StatusCompleted, created.Status)
	require.InDelta(t, 220000, created.Subtotal, 0.001)
	require.InDelta(t, 20000, created.TaxAmount, 0.001)
	require.InDelta(t, 220000, created.TotalAmount, 0.001)
	require.InDelta(t, 30000, created.ChangeAmount, 0.001)
	require.Len(t, created.Items, 2)

	wantInvoice := sequence.FormatInvoice(time.Now(), 1)
	require.Equal(t, wantInvoice, created.InvoiceNumber)

	// Stock decremented by the product quantity, service lines untouched.
	require.Equal(t, int64(8), repo.state.products[10].Stock)
	// Linked queue settled in the same commit.
	require.Equal(t, "completed", repo.state.queues[5])

	require.Len(t, audit.logs, 1)
	require.Equal(t, "sales:create", audit.logs[0].Action)
}

func TestCreateInsufficientStockRollsBack(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, stubSettings{}, nil, nil)

	req := newSaleRequest()
	req.Items = []CartLineRequest{{ItemType: ItemProduct, ItemID: 10, Quantity: 11}}
	req.PaidAmount = 500000
	req.DiscountAmount = 0

	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	// Nothing committed: stock, counter and ledger all unchanged.
	require.Equal(t, int64(10), repo.state.products[10].Stock)
	require.Equal(t, int64(0), repo.state.counter)
	require.Empty(t, repo.state.transactions)
	require.Equal(t, 1, repo.attempts)
}

func TestCreateRejectsUnknownPaymentMethod(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, stubSettings{}, nil, nil)

	req := newSaleRequest()
	req.PaymentMethod = PaymentMethod("cheque")

	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Zero(t, repo.attempts)
}

func TestCreateRetriesSerializationFailure(t *testing.T) {
	repo := newMemRepo()
	repo.txErrs = []error{&pgconn.PgError{Code: "40001"}}
	svc := NewService(repo, stubSettings{}, nil, nil)

	created, err := svc.Create(context.Background(), newSaleRequest())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, created.Status)
	require.Equal(t, 2, repo.attempts)
}

func TestCreateContentionExhaustsRetries(t *testing.T) {
	repo := newMemRepo()
	repo.txErrs = []error{
		&pgconn.PgError{Code: "40001"},
		&pgconn.PgError{Code: "40P01"},
		&pgconn.PgError{Code: "40001"},
	}
	svc := NewService(repo, stubSettings{}, nil, nil)

	_, err := svc.Create(context.Background(), newSaleRequest())
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, 3, repo.attempts)
	require.Empty(t, repo.state.transactions)
}

func TestCancelRestoresStockOnce(t *testing.T) {
	repo := newMemRepo()
	audit := &stubAudit{}
	svc := NewService(repo, stubSettings{}, audit, nil)

	created, err := svc.Create(context.Background(), newSaleRequest())
	require.NoError(t, err)
	require.Equal(t, int64(8), repo.state.products[10].Stock)

	cancelled, err := svc.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, int64(10), repo.state.products[10].Stock)

	// A second cancel must not restore stock again.
	_, err = svc.Cancel(context.Background(), created.ID)
	require.ErrorIs(t, err, shared.ErrState)
	require.Equal(t, int64(10), repo.state.products[10].Stock)
}

func TestCancelUnknownTransaction(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, stubSettings{}, nil, nil)

	_, err := svc.Cancel(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
