package rxkart

import (
	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/rxkart/rxkart-go/internal/cachedb"
)

// UserService is the remote data client for user accounts (admin
// views).
type UserService struct {
	c *Client
}

// List returns every user account.
func (s *UserService) List(ctx context.Context) (Result[[]User], error) {
	return listThroughCache[User](ctx, s.c, storeUsers, "/users", nil)
}

// ByRegion returns the accounts of one region.
func (s *UserService) ByRegion(ctx context.Context, region string) (Result[[]User], error) {
	if region == "" {
		return Result[[]User]{}, errors.Wrap(ErrMissingRelation, "region")
	}

	pred := func(rec cachedb.Record) bool {
		return rec.StringOrDefault("region", "") == region
	}

	return listThroughCache[User](ctx, s.c, storeUsers, "/users/region/"+url.PathEscape(region), pred)
}

// Get returns one user by id.
func (s *UserService) Get(ctx context.Context, id string) (Result[User], error) {
	return getThroughCache[User](ctx, s.c, storeUsers, "/users/"+url.PathEscape(id), id)
}

// Update sends changed fields and merges them into the cached record.
func (s *UserService) Update(ctx context.Context, id string, changes map[string]interface{}) (User, error) {
	if _, err := s.c.requireSession(); err != nil {
		return User{}, err
	}

	return updateThrough[User](ctx, s.c, storeUsers, "/users/"+url.PathEscape(id), id, changes)
}

// Delete removes a user account and evicts it from the cache.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := s.c.requireSession(); err != nil {
		return err
	}

	return s.c.deleteThrough(ctx, storeUsers, "/users/"+url.PathEscape(id), id)
}
