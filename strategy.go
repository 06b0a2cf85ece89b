package rxkart

// Two distinct data-access strategies are used across the services and
// are deliberately not unified:
//
//   - read-through-cache (this file): reads hit the backend, fresh
//     results are reconciled into the cache, and a degraded read falls
//     back to the cache as an explicitly Stale result.
//   - optimistic-mutation-with-rollback (sellers.go): a narrow
//     per-item rule for the seller approval flow where the in-memory
//     status advances to an intermediate value before the backend
//     confirms, and reverts on failure.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/rxkart/rxkart-go/internal/cachedb"
)

// degradable reports whether a failed read may be served from cache:
// the backend unreachable, or failing server-side. Client rejections
// (4xx) always surface, so an expired token is never masked by stale
// data.
func degradable(err error) bool {
	if errors.Is(err, ErrUnreachable) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}

	return false
}

// entityID extracts the stable identifier from a marshaled entity.
// Backend records carry either "id" or "_id".
func entityID(payload []byte) string {
	if v := gjson.GetBytes(payload, "id"); v.Exists() {
		return v.String()
	}

	return gjson.GetBytes(payload, "_id").String()
}

// listThroughCache fetches a list from path. On success every returned
// record replaces its cached counterpart and records the server no
// longer returns are evicted (within pred's scope). On a degraded
// failure the cached records matching pred are returned as Stale and
// are never cleared.
func listThroughCache[T any](
	ctx context.Context,
	c *Client,
	store, path string,
	pred func(cachedb.Record) bool,
) (Result[[]T], error) {
	token := c.cacheSeq(store)

	var live []T
	err := c.api.Get(ctx, path, &live)
	if err == nil {
		payloads := make(map[string][]byte, len(live))
		for i := range live {
			b, mErr := json.Marshal(live[i])
			if mErr != nil {
				continue
			}

			if id := entityID(b); id != "" {
				payloads[id] = b
			}
		}

		c.cacheReconcile(store, token, payloads, pred)

		return fresh(live), nil
	}

	if !degradable(err) {
		return Result[[]T]{}, err
	}

	c.logger.Debug("serving list from cache after a degraded read",
		zap.String("store", store), zap.Error(err))

	return cachedList[T](c, store, pred), nil
}

// listPrimedThroughCache is the instant-paint variant: the cached
// (possibly empty) set is handed to primed before the network round
// trip, then the fetch proceeds exactly as listThroughCache. Callers
// render the primed snapshot immediately and replace it wholesale when
// the returned result arrives.
func listPrimedThroughCache[T any](
	ctx context.Context,
	c *Client,
	store, path string,
	pred func(cachedb.Record) bool,
	primed func(Result[[]T]),
) (Result[[]T], error) {
	if primed != nil {
		primed(cachedList[T](c, store, pred))
	}

	return listThroughCache[T](ctx, c, store, path, pred)
}

// cachedList decodes the cached records matching pred into a Stale
// result stamped with the oldest record's store time.
func cachedList[T any](c *Client, store string, pred func(cachedb.Record) bool) Result[[]T] {
	records := c.cacheGetFiltered(store, pred)
	out := make([]T, 0, len(records))
	at := time.Time{}
	for _, rec := range records {
		var v T
		if uErr := rec.Unmarshal(&v); uErr != nil {
			continue
		}

		out = append(out, v)
		if at.IsZero() || rec.StoredAt().Before(at) {
			at = rec.StoredAt()
		}
	}

	return staleFromCache(out, at)
}

// getThroughCache fetches one entity from path, caching it on success
// and falling back to the cached copy on a degraded failure.
func getThroughCache[T any](
	ctx context.Context,
	c *Client,
	store, path, id string,
) (Result[T], error) {
	var zero Result[T]

	var live T
	err := c.api.Get(ctx, path, &live)
	if err == nil {
		if b, mErr := json.Marshal(live); mErr == nil {
			if eid := entityID(b); eid != "" {
				c.cachePut(store, eid, b)
			}
		}

		return fresh(live), nil
	}

	if !degradable(err) {
		return zero, err
	}

	rec, ok := c.cacheGet(store, id)
	if !ok {
		return zero, errors.Wrapf(ErrNotFound, "%s %s: %s", store, id, err.Error())
	}

	var v T
	if uErr := rec.Unmarshal(&v); uErr != nil {
		return zero, errors.Wrapf(ErrNotFound, "%s %s: cached copy unreadable", store, id)
	}

	return staleFromCache(v, rec.StoredAt()), nil
}

// createThrough posts a new entity and caches the server-assigned
// record. There is no optimistic local creation: a failed create
// leaves no trace.
func createThrough[T any](ctx context.Context, c *Client, store, path string, in T) (T, error) {
	var out T
	if err := c.api.Post(ctx, path, in, &out); err != nil {
		return out, err
	}

	if b, err := json.Marshal(out); err == nil {
		if id := entityID(b); id != "" {
			c.cachePut(store, id, b)
		}
	}

	return out, nil
}

// updateThrough puts changed fields and merges them into the cached
// record, read-modify-write, preserving fields the change did not
// touch. The caller's own state is not rolled back on failure.
func updateThrough[T any](
	ctx context.Context,
	c *Client,
	store, path, id string,
	changes map[string]interface{},
) (T, error) {
	var out T
	if err := c.api.Put(ctx, path, changes, &out); err != nil {
		return out, err
	}

	c.cacheMergePut(store, id, changes)

	return out, nil
}

// deleteThrough deletes the entity and evicts the cached record. Every
// entity type propagates deletes to the cache.
func (c *Client) deleteThrough(ctx context.Context, store, path, id string) error {
	if err := c.api.Delete(ctx, path); err != nil {
		return err
	}

	c.cacheDelete(store, id)

	return nil
}

// cacheMergePut merges changed fields over the cached payload and
// stores the result. With no cached record the changes stand alone.
func (c *Client) cacheMergePut(store, id string, changes map[string]interface{}) {
	merged := make(map[string]interface{})
	if rec, ok := c.cacheGet(store, id); ok {
		_ = rec.Unmarshal(&merged)
	}

	for k, v := range changes {
		merged[k] = v
	}

	b, err := json.Marshal(merged)
	if err != nil {
		return
	}

	c.cachePut(store, id, b)
}
