package rxkart_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	rxkart "github.com/rxkart/rxkart-go"
)

// backend is a fake RxKart API. Flipping offline aborts every
// connection before a response is written, which the client sees as an
// unreachable network.
type backend struct {
	mux      *http.ServeMux
	srv      *httptest.Server
	offline  atomic.Bool
	requests atomic.Int64

	loginUser rxkart.User
}

func newBackend(t *testing.T) *backend {
	t.Helper()

	b := &backend{
		mux: http.NewServeMux(),
		loginUser: rxkart.User{
			ID:     "u1",
			Name:   "Asha",
			Email:  "asha@example.com",
			Role:   rxkart.RoleSuperAdmin,
			Region: "south",
		},
	}

	b.mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"token": "test-token",
			"user":  b.loginUser,
		})
	})

	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		if b.offline.Load() {
			panic(http.ErrAbortHandler)
		}

		b.mux.ServeHTTP(w, r)
	}))

	t.Cleanup(b.srv.Close)

	return b
}

func (b *backend) handle(t *testing.T, pattern string, payload func() interface{}) {
	t.Helper()

	b.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, payload())
	})
}

func (b *backend) fail(t *testing.T, pattern string, status int, message string) {
	t.Helper()

	b.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// newTestClient builds a logged-in client with an in-memory cache.
func newTestClient(t *testing.T, b *backend, opts ...rxkart.Option) *rxkart.Client {
	t.Helper()

	opts = append([]rxkart.Option{rxkart.WithCachePath(rxkart.InMemoryCache)}, opts...)

	c, err := rxkart.Open(b.srv.URL, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Login(context.Background(), b.loginUser.Email, "secret")
	require.NoError(t, err)

	return c
}
