package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

// fakeRedis is an in-memory redisStore.
type fakeRedis struct {
	values map[string]string
	evals  []evalCall
	err    error
}

type evalCall struct {
	script string
	keys   []string
	args   []any
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	if _, ok := f.values[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.values[key] = value.(string)
	cmd.SetVal(true)
	return cmd
}

// Eval runs releaseScript's compare-and-delete in one step and records the call.
func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	f.evals = append(f.evals, evalCall{script: script, keys: keys, args: args})
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	if script != releaseScript || len(keys) != 1 || len(args) != 1 {
		cmd.SetErr(errors.New("unexpected script"))
		return cmd
	}
	if value, ok := f.values[keys[0]]; ok && value == args[0] {
		delete(f.values, keys[0])
		cmd.SetVal(int64(1))
		return cmd
	}
	cmd.SetVal(int64(0))
	return cmd
}

func TestRedisLock(t *testing.T) {
	ctx := context.Background()

	t.Run("Exclusive until released", func(t *testing.T) {
		store := newFakeRedis()
		first, err := NewRedisLock(store, "sweeper:lock", time.Minute)
		require.NoError(t, err)
		second, err := NewRedisLock(store, "sweeper:lock", time.Minute)
		require.NoError(t, err)

		ok, err := first.Acquire(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = second.Acquire(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, second.Release(ctx))
		assert.Contains(t, store.values, "sweeper:lock")

		require.NoError(t, first.Release(ctx))
		assert.NotContains(t, store.values, "sweeper:lock")
		require.Len(t, store.evals, 1, "only the owner issues a release")

		ok, err = second.Acquire(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Does not delete a lock taken over after expiry", func(t *testing.T) {
		store := newFakeRedis()
		lock, err := NewRedisLock(store, "sweeper:lock", time.Minute)
		require.NoError(t, err)

		_, err = lock.Acquire(ctx)
		require.NoError(t, err)
		token := store.values["sweeper:lock"]
		store.values["sweeper:lock"] = "someone-else"

		require.NoError(t, lock.Release(ctx))
		assert.Equal(t, "someone-else", store.values["sweeper:lock"])

		// Ownership check and delete go to Redis as a single script call.
		require.Len(t, store.evals, 1)
		assert.Equal(t, releaseScript, store.evals[0].script)
		assert.Equal(t, []string{"sweeper:lock"}, store.evals[0].keys)
		assert.Equal(t, []any{token}, store.evals[0].args)

		require.NoError(t, lock.Release(ctx))
		assert.Len(t, store.evals, 1, "second release is a no-op")
	})

	t.Run("Expired lock", func(t *testing.T) {
		store := newFakeRedis()
		lock, err := NewRedisLock(store, "sweeper:lock", time.Minute)
		require.NoError(t, err)

		_, err = lock.Acquire(ctx)
		require.NoError(t, err)
		delete(store.values, "sweeper:lock")

		assert.NoError(t, lock.Release(ctx))
	})

	t.Run("Redis error", func(t *testing.T) {
		store := newFakeRedis()
		store.err = errors.New("connection refused")
		lock, err := NewRedisLock(store, "sweeper:lock", time.Minute)
		require.NoError(t, err)

		_, err = lock.Acquire(ctx)
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("Release error", func(t *testing.T) {
		store := newFakeRedis()
		lock, err := NewRedisLock(store, "sweeper:lock", time.Minute)
		require.NoError(t, err)

		_, err = lock.Acquire(ctx)
		require.NoError(t, err)
		store.err = errors.New("connection reset")

		assert.ErrorContains(t, lock.Release(ctx), "connection reset")
	})

	t.Run("Invalid params", func(t *testing.T) {
		_, err := NewRedisLock(nil, "k", time.Minute)
		assert.Error(t, err)
		_, err = NewRedisLock(newFakeRedis(), "", time.Minute)
		assert.Error(t, err)
	})
}

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	lock := NewLocalLock()

	ok, _ := lock.Acquire(ctx)
	assert.True(t, ok)
	ok, _ = lock.Acquire(ctx)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx))
	ok, _ = lock.Acquire(ctx)
	assert.True(t, ok)
}

type testJob struct {
	name string
	err  error
	runs atomic.Int32
}

func (j *testJob) Name() string { return j.name }

func (j *testJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

type heldLock struct{}

func (heldLock) Acquire(context.Context) (bool, error) { return false, nil }
func (heldLock) Release(context.Context) error         { return nil }

func TestService_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("Runs every job even on failure", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		ok := &testJob{name: "ok"}
		fail := &testJob{name: "fail", err: errors.New("boom")}

		svc, err := NewService(ServiceParams{
			Registry: NewRegistry(ok, fail),
			Lock:     NewLocalLock(),
			Metrics:  metrics.NewJobMetrics(reg),
			Logger:   zerolog.Nop(),
		})
		require.NoError(t, err)

		require.NoError(t, svc.RunOnce(ctx))

		assert.EqualValues(t, 1, ok.runs.Load())
		assert.EqualValues(t, 1, fail.runs.Load())

		count, err := testutil.GatherAndCount(reg, "job_failure_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Skips when another instance holds the lock", func(t *testing.T) {
		job := &testJob{name: "ok"}
		svc, err := NewService(ServiceParams{
			Registry: NewRegistry(job),
			Lock:     heldLock{},
			Logger:   zerolog.Nop(),
		})
		require.NoError(t, err)

		require.NoError(t, svc.RunOnce(ctx))
		assert.Zero(t, job.runs.Load())
	})

	t.Run("Requires a lock", func(t *testing.T) {
		_, err := NewService(ServiceParams{Logger: zerolog.Nop()})
		assert.Error(t, err)
	})
}

func TestService_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &testJob{name: "ok"}
	svc, err := NewService(ServiceParams{
		Registry: NewRegistry(job),
		Lock:     NewLocalLock(),
		Interval: time.Hour,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) ListByStatusBefore(ctx context.Context, status model.OrderStatus, cutoff time.Time, limit int) ([]model.Order, error) {
	args := m.Called(ctx, status, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

type mockCanceller struct {
	mock.Mock
}

func (m *mockCanceller) Cancel(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, principal, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func newTestStaleJob(t *testing.T, orders *mockOrders, canceller *mockCanceller, batch int, now time.Time) Job {
	t.Helper()
	job, err := NewStaleOrderJob(StaleOrderJobParams{
		Orders:     orders,
		Canceller:  canceller,
		PaymentTTL: 72 * time.Hour,
		BatchSize:  batch,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	job.(*staleOrderJob).now = func() time.Time { return now }
	return job
}

func TestStaleOrderJob_Run(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-72 * time.Hour)

	t.Run("Cancels every stale order as the system", func(t *testing.T) {
		orders := new(mockOrders)
		canceller := new(mockCanceller)
		stale := []model.Order{{ID: uuid.New()}, {ID: uuid.New()}}

		orders.On("ListByStatusBefore", ctx, model.OrderStatusAwaitingPayment, cutoff, 10).Return(stale, nil).Once()
		for _, o := range stale {
			canceller.On("Cancel", ctx, model.SystemPrincipal, o.ID).Return(&model.Order{ID: o.ID, Status: model.OrderStatusCancelled}, nil).Once()
		}

		err := newTestStaleJob(t, orders, canceller, 10, now).Run(ctx)

		require.NoError(t, err)
		orders.AssertExpectations(t)
		canceller.AssertExpectations(t)
	})

	t.Run("Pages until a short batch", func(t *testing.T) {
		orders := new(mockOrders)
		canceller := new(mockCanceller)
		first := []model.Order{{ID: uuid.New()}, {ID: uuid.New()}}
		second := []model.Order{{ID: uuid.New()}}

		orders.On("ListByStatusBefore", ctx, model.OrderStatusAwaitingPayment, cutoff, 2).Return(first, nil).Once()
		orders.On("ListByStatusBefore", ctx, model.OrderStatusAwaitingPayment, cutoff, 2).Return(second, nil).Once()
		canceller.On("Cancel", ctx, model.SystemPrincipal, mock.Anything).Return(&model.Order{}, nil).Times(3)

		require.NoError(t, newTestStaleJob(t, orders, canceller, 2, now).Run(ctx))
		orders.AssertExpectations(t)
		canceller.AssertExpectations(t)
	})

	t.Run("Combines failures and keeps going", func(t *testing.T) {
		orders := new(mockOrders)
		canceller := new(mockCanceller)
		stale := []model.Order{{ID: uuid.New()}, {ID: uuid.New()}, {ID: uuid.New()}, {ID: uuid.New()}}

		orders.On("ListByStatusBefore", ctx, model.OrderStatusAwaitingPayment, cutoff, 4).Return(stale, nil).Once()
		canceller.On("Cancel", ctx, model.SystemPrincipal, stale[0].ID).Return(nil, errors.New("deadlock detected"))
		canceller.On("Cancel", ctx, model.SystemPrincipal, stale[1].ID).
			Return(nil, model.NewInvalidStatusTransitionError(model.OrderStatusAwaitingVerification, model.OrderStatusCancelled))
		canceller.On("Cancel", ctx, model.SystemPrincipal, stale[2].ID).Return(nil, errors.New("connection reset"))
		canceller.On("Cancel", ctx, model.SystemPrincipal, stale[3].ID).Return(&model.Order{}, nil)

		err := newTestStaleJob(t, orders, canceller, 4, now).Run(ctx)

		require.Error(t, err)
		assert.Len(t, multierr.Errors(err), 2)
		orders.AssertExpectations(t)
		canceller.AssertExpectations(t)
	})

	t.Run("Query failure", func(t *testing.T) {
		orders := new(mockOrders)
		canceller := new(mockCanceller)
		orders.On("ListByStatusBefore", ctx, model.OrderStatusAwaitingPayment, cutoff, 10).Return(nil, errors.New("pool closed"))

		err := newTestStaleJob(t, orders, canceller, 10, now).Run(ctx)

		assert.ErrorContains(t, err, "query stale orders")
		canceller.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNewStaleOrderJob_Validation(t *testing.T) {
	_, err := NewStaleOrderJob(StaleOrderJobParams{Canceller: new(mockCanceller), PaymentTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewStaleOrderJob(StaleOrderJobParams{Orders: new(mockOrders), PaymentTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewStaleOrderJob(StaleOrderJobParams{Orders: new(mockOrders), Canceller: new(mockCanceller)})
	assert.Error(t, err)
}
