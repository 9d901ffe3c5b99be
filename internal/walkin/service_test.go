package walkin

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pangkas-pos/pangkas/internal/sequence"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

type memState struct {
	entries map[int64]*Entry
	nextID  int64
	counter int64
}

func (s *memState) clone() *memState {
	out := &memState{entries: map[int64]*Entry{}, nextID: s.nextID, counter: s.counter}
	for k, v := range s.entries {
		cp := *v
		out.entries[k] = &cp
	}
	return out
}

type memRepo struct {
	state *memState
}

func newMemRepo() *memRepo {
	return &memRepo{state: &memState{entries: map[int64]*Entry{}}}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	next := r.state.clone()
	if err := fn(ctx, &memTx{state: next}); err != nil {
		return err
	}
	r.state = next
	return nil
}

func (r *memRepo) Get(_ context.Context, id int64) (*Entry, error) {
	e, ok := r.state.entries[id]
	if !ok {
		return nil, fmt.Errorf("walkin: entry %d: %w", id, shared.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (r *memRepo) List(context.Context, ListRequest) ([]Entry, int, error) {
	return nil, 0, nil
}

func (r *memRepo) Active(context.Context) ([]Entry, error) {
	return nil, nil
}

func (r *memRepo) TodayStats(context.Context) (TodayStats, error) {
	stats := TodayStats{}
	for _, e := range r.state.entries {
		switch e.Status {
		case StatusWaiting:
			stats.Waiting++
		case StatusInProgress:
			stats.InProgress++
		case StatusCompleted:
			stats.Completed++
		case StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

type memTx struct {
	state *memState
}

func (t *memTx) NextQueueNumber(_ context.Context, prefix string, _ time.Time) (string, error) {
	t.state.counter++
	return sequence.FormatQueue(prefix, t.state.counter), nil
}

func (t *memTx) Insert(_ context.Context, e Entry) (int64, error) {
	t.state.nextID++
	e.ID = t.state.nextID
	t.state.entries[e.ID] = &e
	return e.ID, nil
}

func (t *memTx) GetForUpdate(_ context.Context, id int64) (*Entry, error) {
	e, ok := t.state.entries[id]
	if !ok {
		return nil, fmt.Errorf("walkin: entry %d: %w", id, shared.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (t *memTx) SetStatus(_ context.Context, id int64, status Status, startedAt, completedAt *time.Time) error {
	e, ok := t.state.entries[id]
	if !ok {
		return shared.ErrNotFound
	}
	e.Status = status
	if startedAt != nil {
		e.StartedAt = startedAt
	}
	if completedAt != nil {
		e.CompletedAt = completedAt
	}
	return nil
}

func (t *memTx) MarkCalled(_ context.Context, id int64, at time.Time) error {
	e, ok := t.state.entries[id]
	if !ok {
		return shared.ErrNotFound
	}
	e.CalledAt = &at
	return nil
}

type stubSettings struct {
	prefix string
}

func (s stubSettings) String(_ context.Context, _ string, def string) (string, error) {
	if s.prefix == "" {
		return def, nil
	}
	return s.prefix, nil
}

func register(t *testing.T, svc *Service) *Entry {
	t.Helper()
	entry, err := svc.Register(context.Background(), RegisterRequest{
		CustomerName: "Budi",
		ServiceIDs:   []int64{1},
	})
	require.NoError(t, err)
	return entry
}

func TestRegisterAssignsSequentialNumbers(t *testing.T) {
	svc := NewService(newMemRepo(), stubSettings{}, nil)

	first := register(t, svc)
	second := register(t, svc)

	require.Equal(t, "A001", first.QueueNumber)
	require.Equal(t, "A002", second.QueueNumber)
	require.Equal(t, StatusWaiting, first.Status)
}

func TestRegisterUsesConfiguredPrefix(t *testing.T) {
	svc := NewService(newMemRepo(), stubSettings{prefix: "B"}, nil)

	entry := register(t, svc)
	require.Equal(t, "B001", entry.QueueNumber)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newMemRepo(), stubSettings{}, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{ServiceIDs: []int64{1}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Register(context.Background(), RegisterRequest{CustomerName: "Budi"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLifecycleTransitions(t *testing.T) {
	svc := NewService(newMemRepo(), stubSettings{}, nil)
	entry := register(t, svc)

	started, err := svc.UpdateStatus(context.Background(), entry.ID, StatusInProgress)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, started.Status)
	require.NotNil(t, started.StartedAt)

	done, err := svc.UpdateStatus(context.Background(), entry.ID, StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
}

func TestLifecycleRejectsInvalidTransitions(t *testing.T) {
	svc := NewService(newMemRepo(), stubSettings{}, nil)
	entry := register(t, svc)

	// waiting cannot jump straight to completed
	_, err := svc.UpdateStatus(context.Background(), entry.ID, StatusCompleted)
	require.ErrorIs(t, err, shared.ErrState)

	_, err = svc.UpdateStatus(context.Background(), entry.ID, StatusCancelled)
	require.NoError(t, err)

	// cancelled is terminal
	_, err = svc.UpdateStatus(context.Background(), entry.ID, StatusInProgress)
	require.ErrorIs(t, err, shared.ErrState)
}

func TestCallStampsCalledAt(t *testing.T) {
	svc := NewService(newMemRepo(), stubSettings{}, nil)
	entry := register(t, svc)

	called, err := svc.Call(context.Background(), entry.ID)
	require.NoError(t, err)
	require.NotNil(t, called.CalledAt)

	// repeat call is allowed while the entry is live
	_, err = svc.Call(context.Background(), entry.ID)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), entry.ID, StatusCancelled)
	require.NoError(t, err)
	_, err = svc.Call(context.Background(), entry.ID)
	require.ErrorIs(t, err, shared.ErrState)
}

func TestUpdateStatusUnknownEntry(t *testing.T) {
	svc := NewService(newMemRepo(), stubSettings{}, nil)

	_, err := svc.UpdateStatus(context.Background(), 404, StatusInProgress)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
