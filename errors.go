package rxkart

import (
	"github.com/pkg/errors"

	"github.com/rxkart/rxkart-go/internal/rest"
)

// ErrUnreachable indicates the backend gave no response. Reads degrade
// to the local cache when this happens; writes surface it.
var ErrUnreachable = rest.ErrUnreachable

// ErrMalformedResponse indicates a response body that was not valid
// JSON.
var ErrMalformedResponse = rest.ErrMalformedResponse

// APIError is a non-2xx backend response carrying the server-provided
// message when one was present.
type APIError = rest.APIError

// ErrNotLoggedIn is returned by operations that require a session.
var ErrNotLoggedIn = errors.New("no active session, log in first")

// ErrIllegalTransition is returned before any network call when a
// status transition is not allowed from the current status.
var ErrIllegalTransition = errors.New("illegal status transition")

// ErrMissingRelation is returned by relation-scoped queries (orders by
// user, sellers by region) called with an empty relation key. It is an
// explicit error, never a silent empty list.
var ErrMissingRelation = errors.New("relation key is required")

// ErrNotFound is returned when an entity is absent both on the backend
// and in the local cache.
var ErrNotFound = errors.New("entity not found")
