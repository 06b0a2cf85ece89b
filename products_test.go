package rxkart_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rxkart "github.com/rxkart/rxkart-go"
)

func TestProducts_ListReadThrough(t *testing.T) {
	b := newBackend(t)
	b.handle(t, "GET /products", func() interface{} {
		return []rxkart.Product{
			{ID: "p1", Name: "Aspirin", Price: decimal.NewFromInt(10)},
		}
	})

	c := newTestClient(t, b)
	ctx := context.Background()

	t.Run("live list is fresh and cached", func(t *testing.T) {
		res, err := c.Products.List(ctx)
		require.NoError(t, err)
		assert.False(t, res.Stale)
		require.Len(t, res.Data, 1)
		assert.Equal(t, "Aspirin", res.Data[0].Name)
	})

	t.Run("offline list serves the cached set unchanged", func(t *testing.T) {
		b.offline.Store(true)
		defer b.offline.Store(false)

		res, err := c.Products.List(ctx)
		require.NoError(t, err)
		assert.True(t, res.Stale)
		require.Len(t, res.Data, 1)
		assert.Equal(t, "p1", res.Data[0].ID)
		assert.Equal(t, "Aspirin", res.Data[0].Name)
		assert.True(t, res.Data[0].Price.Equal(decimal.NewFromInt(10)))
	})

	t.Run("offline detail falls back to the cached record", func(t *testing.T) {
		b.offline.Store(true)
		defer b.offline.Store(false)

		res, err := c.Products.Get(ctx, "p1")
		require.NoError(t, err)
		assert.True(t, res.Stale)
		assert.Equal(t, "Aspirin", res.Data.Name)
	})

	t.Run("offline detail miss is an error", func(t *testing.T) {
		b.offline.Store(true)
		defer b.offline.Store(false)

		_, err := c.Products.Get(ctx, "p404")
		assert.True(t, errors.Is(err, rxkart.ErrNotFound))
	})
}

func TestProducts_ByCategory(t *testing.T) {
	b := newBackend(t)
	b.handle(t, "GET /products/category/painkillers", func() interface{} {
		return []rxkart.Product{
			{ID: "p1", Name: "Aspirin", Category: "painkillers"},
		}
	})
	b.handle(t, "GET /products/category/vitamins", func() interface{} {
		return []rxkart.Product{
			{ID: "p2", Name: "C-500", Category: "vitamins"},
		}
	})

	c := newTestClient(t, b)
	ctx := context.Background()

	_, err := c.Products.ByCategory(ctx, "painkillers")
	require.NoError(t, err)
	_, err = c.Products.ByCategory(ctx, "vitamins")
	require.NoError(t, err)

	t.Run("offline category list filters the cache by relation", func(t *testing.T) {
		b.offline.Store(true)
		defer b.offline.Store(false)

		res, err := c.Products.ByCategory(ctx, "vitamins")
		require.NoError(t, err)
		assert.True(t, res.Stale)
		require.Len(t, res.Data, 1)
		assert.Equal(t, "p2", res.Data[0].ID)
	})

	t.Run("category list caching does not evict other categories", func(t *testing.T) {
		b.offline.Store(true)
		defer b.offline.Store(false)

		res, err := c.Products.ByCategory(ctx, "painkillers")
		require.NoError(t, err)
		require.Len(t, res.Data, 1)
		assert.Equal(t, "p1", res.Data[0].ID)
	})

	t.Run("missing category is an explicit error", func(t *testing.T) {
		_, err := c.Products.ByCategory(ctx, "")
		assert.True(t, errors.Is(err, rxkart.ErrMissingRelation))
	})
}

func TestProducts_CreateAndDelete(t *testing.T) {
	b := newBackend(t)
	b.handle(t, "GET /products", func() interface{} {
		return []rxkart.Product{
			{ID: "p1", Name: "Aspirin"},
			{ID: "p2", Name: "Ibuprofen"},
		}
	})
	b.handle(t, "POST /products", func() interface{} {
		return rxkart.Product{ID: "p9", Name: "Paracetamol"}
	})
	b.handle(t, "DELETE /products/p1", func() interface{} {
		return map[string]string{"message": "deleted"}
	})

	c := newTestClient(t, b)
	ctx := context.Background()

	_, err := c.Products.List(ctx)
	require.NoError(t, err)

	t.Run("create caches the server-assigned record", func(t *testing.T) {
		created, err := c.Products.Create(ctx, rxkart.Product{Name: "Paracetamol"})
		require.NoError(t, err)
		assert.Equal(t, "p9", created.ID)

		b.offline.Store(true)
		defer b.offline.Store(false)

		res, err := c.Products.Get(ctx, "p9")
		require.NoError(t, err)
		assert.Equal(t, "Paracetamol", res.Data.Name)
	})

	t.Run("delete evicts the cached record", func(t *testing.T) {
		require.NoError(t, c.Products.Delete(ctx, "p1"))

		b.offline.Store(true)
		defer b.offline.Store(false)

		res, err := c.Products.List(ctx)
		require.NoError(t, err)
		for _, p := range res.Data {
			assert.NotEqual(t, "p1", p.ID)
		}
	})

}

func TestProducts_CreateFailureSurfaces(t *testing.T) {
	b := newBackend(t)
	b.fail(t, "POST /products", 400, "name is required")

	c := newTestClient(t, b)

	_, err := c.Products.Create(context.Background(), rxkart.Product{})
	require.Error(t, err)

	var apiErr *rxkart.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Equal(t, "name is required", apiErr.Message)

	// no optimistic local creation
	b.offline.Store(true)
	_, err = c.Products.Get(context.Background(), "p1")
	assert.True(t, errors.Is(err, rxkart.ErrNotFound))
}

func TestProducts_ListPrimed(t *testing.T) {
	b := newBackend(t)
	b.handle(t, "GET /products", func() interface{} {
		return []rxkart.Product{
			{ID: "p1", Name: "Aspirin", Price: decimal.NewFromInt(10)},
			{ID: "p2", Name: "Ibuprofen", Price: decimal.NewFromInt(14)},
		}
	})

	c := newTestClient(t, b)
	ctx := context.Background()

	t.Run("an empty cache paints an empty stale snapshot", func(t *testing.T) {
		var painted *rxkart.Result[[]rxkart.Product]
		res, err := c.Products.ListPrimed(ctx, func(r rxkart.Result[[]rxkart.Product]) {
			painted = &r
		})
		require.NoError(t, err)

		require.NotNil(t, painted)
		assert.True(t, painted.Stale)
		assert.Empty(t, painted.Data)

		assert.False(t, res.Stale)
		assert.Len(t, res.Data, 2)
	})

	t.Run("a warm cache paints before the fetch", func(t *testing.T) {
		var painted *rxkart.Result[[]rxkart.Product]
		res, err := c.Products.ListPrimed(ctx, func(r rxkart.Result[[]rxkart.Product]) {
			painted = &r
		})
		require.NoError(t, err)

		require.NotNil(t, painted)
		assert.True(t, painted.Stale)
		assert.Len(t, painted.Data, 2)
		assert.False(t, res.Stale)
	})

	t.Run("a failed refetch leaves the painted data standing", func(t *testing.T) {
		b.offline.Store(true)
		defer b.offline.Store(false)

		res, err := c.Products.ListPrimed(ctx, nil)
		require.NoError(t, err)
		assert.True(t, res.Stale)
		assert.Len(t, res.Data, 2)
	})
}
