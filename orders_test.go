package rxkart_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rxkart "github.com/rxkart/rxkart-go"
)

func TestOrders_TransitionStatus(t *testing.T) {
	b := newBackend(t)
	b.handle(t, "GET /orders", func() interface{} {
		return []rxkart.Order{
			{
				ID:          "o1",
				UserID:      "u1",
				Status:      rxkart.OrderStatusPending,
				PaymentMode: rxkart.PaymentCOD,
				Total:       decimal.NewFromInt(120),
				Items: []rxkart.OrderItem{
					{ProductID: "p1", Name: "Aspirin", Quantity: 2, Price: decimal.NewFromInt(60)},
				},
			},
		}
	})
	b.handle(t, "PUT /orders/status/o1", func() interface{} {
		return rxkart.Order{ID: "o1", Status: rxkart.OrderStatusAccepted}
	})

	c := newTestClient(t, b)
	ctx := context.Background()

	res, err := c.Orders.List(ctx)
	require.NoError(t, err)
	order := res.Data[0]

	t.Run("a disallowed transition is rejected before any network call", func(t *testing.T) {
		delivered := order
		delivered.Status = rxkart.OrderStatusDelivered

		before := b.requests.Load()
		_, err := c.Orders.TransitionStatus(ctx, delivered, rxkart.OrderStatusAccepted, "")
		assert.True(t, errors.Is(err, rxkart.ErrIllegalTransition))
		assert.Equal(t, before, b.requests.Load())

		// and the cached record is untouched
		b.offline.Store(true)
		defer b.offline.Store(false)

		cached, err := c.Orders.Get(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, rxkart.OrderStatusPending, cached.Data.Status)
	})

	t.Run("an unknown status is rejected", func(t *testing.T) {
		_, err := c.Orders.TransitionStatus(ctx, order, rxkart.OrderStatus("teleported"), "")
		assert.True(t, errors.Is(err, rxkart.ErrIllegalTransition))
	})

	t.Run("a legal transition merges into the cached record", func(t *testing.T) {
		_, err := c.Orders.TransitionStatus(ctx, order, rxkart.OrderStatusAccepted, "seller confirmed")
		require.NoError(t, err)

		b.offline.Store(true)
		defer b.offline.Store(false)

		cached, err := c.Orders.Get(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, rxkart.OrderStatusAccepted, cached.Data.Status)
		assert.Equal(t, "seller confirmed", cached.Data.StatusDescription)

		// merge, not overwrite: everything else survives
		assert.Equal(t, "u1", cached.Data.UserID)
		assert.True(t, cached.Data.Total.Equal(decimal.NewFromInt(120)))
		require.Len(t, cached.Data.Items, 1)
		assert.Equal(t, "Aspirin", cached.Data.Items[0].Name)
		assert.Equal(t, rxkart.PaymentCOD, cached.Data.PaymentMode)
	})
}

func TestOrders_ByUser(t *testing.T) {
	b := newBackend(t)
	b.handle(t, "GET /orders/user/u1", func() interface{} {
		return []rxkart.Order{
			{ID: "o1", UserID: "u1", Status: rxkart.OrderStatusPending},
		}
	})
	b.handle(t, "GET /orders/user/u2", func() interface{} {
		return []rxkart.Order{
			{ID: "o2", UserID: "u2", Status: rxkart.OrderStatusShipped},
		}
	})

	c := newTestClient(t, b)
	ctx := context.Background()

	_, err := c.Orders.ByUser(ctx, "u1")
	require.NoError(t, err)
	_, err = c.Orders.ByUser(ctx, "u2")
	require.NoError(t, err)

	t.Run("missing user id is an explicit error, not an empty list", func(t *testing.T) {
		_, err := c.Orders.ByUser(ctx, "")
		assert.True(t, errors.Is(err, rxkart.ErrMissingRelation))
	})

	t.Run("offline fallback filters by the relation key", func(t *testing.T) {
		b.offline.Store(true)
		defer b.offline.Store(false)

		res, err := c.Orders.ByUser(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, res.Stale)
		require.Len(t, res.Data, 1)
		assert.Equal(t, "o1", res.Data[0].ID)
	})
}

func TestOrders_CreateDefaultsFromSession(t *testing.T) {
	b := newBackend(t)

	var received rxkart.Order
	b.mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		received.ID = "o7"
		writeJSON(w, received)
	})

	c := newTestClient(t, b)

	created, err := c.Orders.Create(context.Background(), rxkart.Order{
		Items: []rxkart.OrderItem{{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(60)}},
		Total: decimal.NewFromInt(60),
	})
	require.NoError(t, err)

	assert.Equal(t, "o7", created.ID)
	assert.Equal(t, b.loginUser.ID, received.UserID)
	assert.Equal(t, rxkart.OrderStatusPending, received.Status)
	assert.NotEmpty(t, received.ClientRef)

	// the server's record lands in the cache
	b.offline.Store(true)
	cached, err := c.Orders.Get(context.Background(), "o7")
	require.NoError(t, err)
	assert.True(t, cached.Stale)
	assert.Equal(t, b.loginUser.ID, cached.Data.UserID)
}
