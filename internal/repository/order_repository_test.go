package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderRepository_BeginTx(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NotNil(t, tx)

	assert.NoError(t, tx.Rollback(ctx))
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	order := &model.Order{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		TotalPrice:      decimal.RequireFromString("59.97"),
		ShippingAddress: "42 Harbour Road",
		Status:          model.OrderStatusAwaitingPayment,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	items := []model.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, VariantID: uuid.New(), Quantity: 2, UnitPriceAtPurchase: decimal.RequireFromString("19.99")},
		{ID: uuid.New(), OrderID: order.ID, VariantID: uuid.New(), Quantity: 1, UnitPriceAtPurchase: decimal.RequireFromString("19.99")},
	}

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	require.NoError(t, repo.CreateOrderItems(ctx, tx, items))
	require.NoError(t, repo.CreateOrderItems(ctx, tx, nil))
	require.NoError(t, tx.Commit(ctx))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.UserID, got.UserID)
	assert.Equal(t, model.OrderStatusAwaitingPayment, got.Status)
	assert.True(t, got.TotalPrice.Equal(order.TotalPrice))
	assert.Nil(t, got.ShippedAt)
	assert.Nil(t, got.Payment)
	require.Len(t, got.Items, 2)

	sum := decimal.Zero
	for _, item := range got.Items {
		sum = sum.Add(item.LineTotal())
	}
	assert.True(t, sum.Equal(got.TotalPrice))

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := seedOrder(t, pool, repo, uuid.New(), model.OrderStatusProcessing, time.Now())

	t.Run("Shipping stamps shipped_at", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Second)
		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusProcessing, model.OrderStatusShipped, at))
		require.NoError(t, tx.Commit(ctx))

		got, err := repo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusShipped, got.Status)
		require.NotNil(t, got.ShippedAt)
		assert.True(t, got.ShippedAt.Equal(at))
		assert.Nil(t, got.ReceivedAt)
	})

	t.Run("Stale expected status is rejected", func(t *testing.T) {
		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		err = repo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusProcessing, model.OrderStatusCancelled, time.Now())
		require.ErrorIs(t, err, model.ErrInvalidStatusTransition)
		de, _ := model.AsDomainError(err)
		assert.Equal(t, model.StatusTransitionDetails{From: model.OrderStatusProcessing, To: model.OrderStatusCancelled}, de.Details)
	})

	t.Run("Completing stamps received_at", func(t *testing.T) {
		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusShipped, model.OrderStatusCompleted, time.Now()))
		require.NoError(t, tx.Commit(ctx))

		got, err := repo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCompleted, got.Status)
		assert.NotNil(t, got.ShippedAt)
		assert.NotNil(t, got.ReceivedAt)
	})
}

func TestOrderRepository_Lists(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	userID := uuid.New()
	now := time.Now()
	old := seedOrder(t, pool, repo, userID, model.OrderStatusAwaitingPayment, now.Add(-96*time.Hour))
	recent := seedOrder(t, pool, repo, userID, model.OrderStatusAwaitingPayment, now.Add(-time.Hour))
	seedOrder(t, pool, repo, uuid.New(), model.OrderStatusAwaitingVerification, now)

	mine, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, recent.ID, mine[0].ID)
	assert.Equal(t, old.ID, mine[1].ID)

	queue, err := repo.ListByStatus(ctx, model.OrderStatusAwaitingVerification)
	require.NoError(t, err)
	assert.Len(t, queue, 1)

	stale, err := repo.ListByStatusBefore(ctx, model.OrderStatusAwaitingPayment, now.Add(-72*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)

	limited, err := repo.ListByStatusBefore(ctx, model.OrderStatusAwaitingPayment, now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	empty, err := repo.ListByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestOrderRepository_LockByID(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := seedOrder(t, pool, repo, uuid.New(), model.OrderStatusAwaitingPayment, time.Now())

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	locked, err := repo.LockByID(ctx, tx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, locked.ID)

	items, err := repo.GetItems(ctx, tx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = repo.LockByID(ctx, tx, uuid.New())
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}
