package rxkart

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// SyncAll refreshes every cache store the session's role can see,
// in parallel. Useful before going offline. Degraded reads that fell
// back to cache count as failures here, since the point is a fresh
// snapshot.
func (c *Client) SyncAll(ctx context.Context) error {
	sess, err := c.requireSession()
	if err != nil {
		return err
	}

	var refreshes []func(context.Context) error

	requireFresh := func(stale bool, err error) error {
		if err != nil {
			return err
		}

		if stale {
			return ErrUnreachable
		}

		return nil
	}

	switch sess.Role {
	case RoleCustomer:
		refreshes = append(refreshes,
			func(ctx context.Context) error {
				res, err := c.Products.List(ctx)
				return requireFresh(res.Stale, err)
			},
			func(ctx context.Context) error {
				res, err := c.Orders.ByUser(ctx, sess.UserID)
				return requireFresh(res.Stale, err)
			},
		)
	case RoleSeller:
		refreshes = append(refreshes,
			func(ctx context.Context) error {
				res, err := c.Products.BySeller(ctx, sess.UserID)
				return requireFresh(res.Stale, err)
			},
			func(ctx context.Context) error {
				res, err := c.Orders.BySeller(ctx, sess.UserID)
				return requireFresh(res.Stale, err)
			},
		)
	case RoleRegionalAdmin:
		refreshes = append(refreshes,
			func(ctx context.Context) error {
				res, err := c.Orders.ByRegion(ctx, sess.Region)
				return requireFresh(res.Stale, err)
			},
			func(ctx context.Context) error {
				res, err := c.Users.ByRegion(ctx, sess.Region)
				return requireFresh(res.Stale, err)
			},
			func(ctx context.Context) error {
				res, err := c.Sellers.PendingByRegion(ctx, sess.Region)
				return requireFresh(res.Stale, err)
			},
		)
	default: // super admin sees everything
		refreshes = append(refreshes,
			func(ctx context.Context) error {
				res, err := c.Products.List(ctx)
				return requireFresh(res.Stale, err)
			},
			func(ctx context.Context) error {
				res, err := c.Orders.List(ctx)
				return requireFresh(res.Stale, err)
			},
			func(ctx context.Context) error {
				res, err := c.Users.List(ctx)
				return requireFresh(res.Stale, err)
			},
			func(ctx context.Context) error {
				res, err := c.Sellers.Pending(ctx)
				return requireFresh(res.Stale, err)
			},
		)
	}

	p := pool.New().WithErrors().WithContext(ctx)
	for _, refresh := range refreshes {
		p.Go(refresh)
	}

	return p.Wait()
}
