package rxkart

import (
	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/rxkart/rxkart-go/internal/cachedb"
)

// SellerService is the remote data client for the seller approval
// queue. Approve and Reject follow the
// optimistic-mutation-with-rollback strategy: the passed seller's
// status advances to an intermediate value before the backend
// confirms, then to the terminal value on success, or reverts on
// failure. This is deliberately separate from the read-through
// strategy the list operations use.
type SellerService struct {
	c *Client
}

// Pending returns the queue of sellers awaiting approval.
func (s *SellerService) Pending(ctx context.Context) (Result[[]Seller], error) {
	return listThroughCache[Seller](ctx, s.c, storePendingSellers, "/sellers/pending", nil)
}

// PendingPrimed is Pending with an instant first paint: primed
// receives the cached queue before the network round trip.
func (s *SellerService) PendingPrimed(ctx context.Context, primed func(Result[[]Seller])) (Result[[]Seller], error) {
	return listPrimedThroughCache[Seller](ctx, s.c, storePendingSellers, "/sellers/pending", nil, primed)
}

// PendingByRegion returns the approval queue of one region.
func (s *SellerService) PendingByRegion(ctx context.Context, region string) (Result[[]Seller], error) {
	if region == "" {
		return Result[[]Seller]{}, errors.Wrap(ErrMissingRelation, "region")
	}

	pred := func(rec cachedb.Record) bool {
		return rec.StringOrDefault("region", "") == region
	}

	return listThroughCache[Seller](ctx, s.c, storePendingSellers, "/sellers/pending/region/"+url.PathEscape(region), pred)
}

// Approve confirms a pending seller. The seller's in-memory status
// becomes "approving" immediately, "approved" once the backend
// confirms, and reverts to its prior value when the call fails.
func (s *SellerService) Approve(ctx context.Context, seller *Seller) error {
	return s.resolve(ctx, seller, SellerStatusApproving, SellerStatusApproved, "approve")
}

// Reject declines a pending seller, with the same optimistic rule as
// Approve.
func (s *SellerService) Reject(ctx context.Context, seller *Seller) error {
	return s.resolve(ctx, seller, SellerStatusRejecting, SellerStatusRejected, "reject")
}

func (s *SellerService) resolve(ctx context.Context, seller *Seller, intermediate, terminal SellerStatus, action string) error {
	if _, err := s.c.requireSession(); err != nil {
		return err
	}

	if seller == nil || seller.ID == "" {
		return errors.Wrap(ErrMissingRelation, "sellerId")
	}

	if seller.Status != SellerStatusPending {
		return errors.Wrapf(ErrIllegalTransition, "%s -> %s", seller.Status, terminal)
	}

	prior := seller.Status
	seller.Status = intermediate

	body := map[string]interface{}{"status": terminal}
	var out Seller
	if err := s.c.api.Put(ctx, "/sellers/"+action+"/"+url.PathEscape(seller.ID), body, &out); err != nil {
		seller.Status = prior
		return err
	}

	seller.Status = terminal

	// a resolved seller leaves the pending queue
	s.c.cacheDelete(storePendingSellers, seller.ID)

	return nil
}
