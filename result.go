package rxkart

import "time"

// Result tags data with its provenance. Fresh results come straight
// from the backend; Stale results were served from the local cache
// after a network failure and may no longer match server state.
// The distinction is explicit so callers can render a staleness
// indicator instead of passing cached data off as live.
type Result[T any] struct {
	Data      T
	Stale     bool
	FetchedAt time.Time
}

func fresh[T any](data T) Result[T] {
	return Result[T]{Data: data, FetchedAt: time.Now()}
}

func staleFromCache[T any](data T, storedAt time.Time) Result[T] {
	return Result[T]{Data: data, Stale: true, FetchedAt: storedAt}
}
