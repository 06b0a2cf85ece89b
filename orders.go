package rxkart

import (
	"context"
	"net/url"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rxkart/rxkart-go/internal/cachedb"
)

// OrderService is the remote data client for orders and their status
// transitions.
type OrderService struct {
	c *Client
}

// List returns every order visible to the session (admin views).
func (s *OrderService) List(ctx context.Context) (Result[[]Order], error) {
	return listThroughCache[Order](ctx, s.c, storeOrders, "/orders", nil)
}

// ByUser returns one customer's orders. The user id is a required
// relation key.
func (s *OrderService) ByUser(ctx context.Context, userID string) (Result[[]Order], error) {
	if userID == "" {
		return Result[[]Order]{}, errors.Wrap(ErrMissingRelation, "userId")
	}

	pred := func(rec cachedb.Record) bool {
		return rec.StringOrDefault("userId", "") == userID
	}

	return listThroughCache[Order](ctx, s.c, storeOrders, "/orders/user/"+url.PathEscape(userID), pred)
}

// BySeller returns the orders a seller has to fulfill.
func (s *OrderService) BySeller(ctx context.Context, sellerID string) (Result[[]Order], error) {
	if sellerID == "" {
		return Result[[]Order]{}, errors.Wrap(ErrMissingRelation, "sellerId")
	}

	pred := func(rec cachedb.Record) bool {
		return rec.StringOrDefault("sellerId", "") == sellerID
	}

	return listThroughCache[Order](ctx, s.c, storeOrders, "/orders/seller/"+url.PathEscape(sellerID), pred)
}

// ByRegion returns the orders of one region (regional admin view).
func (s *OrderService) ByRegion(ctx context.Context, region string) (Result[[]Order], error) {
	if region == "" {
		return Result[[]Order]{}, errors.Wrap(ErrMissingRelation, "region")
	}

	pred := func(rec cachedb.Record) bool {
		return rec.StringOrDefault("region", "") == region
	}

	return listThroughCache[Order](ctx, s.c, storeOrders, "/orders/region/"+url.PathEscape(region), pred)
}

// Get returns one order by id.
func (s *OrderService) Get(ctx context.Context, id string) (Result[Order], error) {
	return getThroughCache[Order](ctx, s.c, storeOrders, "/orders/"+url.PathEscape(id), id)
}

// Create places an order. The user id and shipping address default
// from the session; a client reference guards against double
// submission of the same checkout.
func (s *OrderService) Create(ctx context.Context, draft Order) (Order, error) {
	sess, err := s.c.requireSession()
	if err != nil {
		return Order{}, err
	}

	if draft.UserID == "" {
		draft.UserID = sess.UserID
	}

	if draft.ShippingAddress == (Address{}) && sess.ShippingAddress != nil {
		draft.ShippingAddress = *sess.ShippingAddress
	}

	if draft.ClientRef == "" {
		draft.ClientRef = uuid.NewString()
	}

	if draft.Status == "" {
		draft.Status = OrderStatusPending
	}

	return createThrough(ctx, s.c, storeOrders, "/orders", draft)
}

// TransitionStatus moves an order along the fulfillment chain. An
// illegal transition is rejected before any network call and leaves
// the cache untouched. On success the new status and description are
// merged into the cached record; every other field is preserved.
func (s *OrderService) TransitionStatus(ctx context.Context, order Order, to OrderStatus, description string) (Order, error) {
	if _, err := s.c.requireSession(); err != nil {
		return Order{}, err
	}

	if !to.IsValid() {
		return Order{}, errors.Wrapf(ErrIllegalTransition, "unknown status %q", to)
	}

	if !order.Status.CanTransitionTo(to) {
		return Order{}, errors.Wrapf(ErrIllegalTransition, "%s -> %s", order.Status, to)
	}

	changes := map[string]interface{}{
		"status":            to,
		"statusDescription": description,
	}

	return updateThrough[Order](ctx, s.c, storeOrders, "/orders/status/"+url.PathEscape(order.ID), order.ID, changes)
}

// Delete removes an order and evicts it from the cache.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	if _, err := s.c.requireSession(); err != nil {
		return err
	}

	return s.c.deleteThrough(ctx, storeOrders, "/orders/"+url.PathEscape(id), id)
}
