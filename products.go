package rxkart

import (
	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/rxkart/rxkart-go/internal/cachedb"
)

// ProductService is the remote data client for the product catalog.
type ProductService struct {
	c *Client
}

// List returns the whole catalog, Stale from cache on a degraded read.
func (s *ProductService) List(ctx context.Context) (Result[[]Product], error) {
	return listThroughCache[Product](ctx, s.c, storeProducts, "/products", nil)
}

// ListPrimed is List with an instant first paint: primed receives the
// cached (possibly empty) catalog before the network round trip, and
// the returned result replaces it wholesale once the fetch completes.
func (s *ProductService) ListPrimed(ctx context.Context, primed func(Result[[]Product])) (Result[[]Product], error) {
	return listPrimedThroughCache[Product](ctx, s.c, storeProducts, "/products", nil, primed)
}

// ByCategory returns products in one category. The category is a
// required relation key.
func (s *ProductService) ByCategory(ctx context.Context, category string) (Result[[]Product], error) {
	if category == "" {
		return Result[[]Product]{}, errors.Wrap(ErrMissingRelation, "category")
	}

	pred := func(rec cachedb.Record) bool {
		return rec.StringOrDefault("category", "") == category
	}

	return listThroughCache[Product](ctx, s.c, storeProducts, "/products/category/"+url.PathEscape(category), pred)
}

// BySeller returns one seller's listings.
func (s *ProductService) BySeller(ctx context.Context, sellerID string) (Result[[]Product], error) {
	if sellerID == "" {
		return Result[[]Product]{}, errors.Wrap(ErrMissingRelation, "sellerId")
	}

	pred := func(rec cachedb.Record) bool {
		return rec.StringOrDefault("sellerId", "") == sellerID
	}

	return listThroughCache[Product](ctx, s.c, storeProducts, "/products/seller/"+url.PathEscape(sellerID), pred)
}

// Get returns one product by id.
func (s *ProductService) Get(ctx context.Context, id string) (Result[Product], error) {
	return getThroughCache[Product](ctx, s.c, storeProducts, "/products/"+url.PathEscape(id), id)
}

// Create lists a new product. The server assigns the id; a failed
// create leaves neither local nor cached trace.
func (s *ProductService) Create(ctx context.Context, p Product) (Product, error) {
	sess, err := s.c.requireSession()
	if err != nil {
		return Product{}, err
	}

	if p.SellerID == "" && sess.Role == RoleSeller {
		p.SellerID = sess.UserID
	}

	return createThrough(ctx, s.c, storeProducts, "/products", p)
}

// Update sends changed fields and merges them into the cached record.
func (s *ProductService) Update(ctx context.Context, id string, changes map[string]interface{}) (Product, error) {
	if _, err := s.c.requireSession(); err != nil {
		return Product{}, err
	}

	return updateThrough[Product](ctx, s.c, storeProducts, "/products/"+url.PathEscape(id), id, changes)
}

// Delete removes the product and evicts it from the cache.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if _, err := s.c.requireSession(); err != nil {
		return err
	}

	return s.c.deleteThrough(ctx, storeProducts, "/products/"+url.PathEscape(id), id)
}
