// Package rxkart is the Go client for the RxKart medicine e-commerce
// backend. Every read is backed by a local persistent cache so lists
// and details keep working offline, served as explicitly Stale
// results; every write goes straight to the backend and updates the
// cache only on success. The backend is always the source of truth.
package rxkart

import (
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/rxkart/rxkart-go/internal/cachedb"
	"github.com/rxkart/rxkart-go/internal/rest"
)

// Named cache stores, one partition per entity type.
const (
	storeProducts       = "products"
	storeOrders         = "orders"
	storeUsers          = "users"
	storePendingSellers = "pending-sellers"
	storeSession        = "session"
)

type Client struct {
	api    *rest.Client
	cache  *cachedb.DB
	logger *zap.Logger

	mu      sync.RWMutex
	session *Session

	Products *ProductService
	Orders   *OrderService
	Users    *UserService
	Sellers  *SellerService
}

// Options configures a Client.
type Options struct {
	CachePath  string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Option is a functional option for configuring Open.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		CachePath: DefaultCachePath(),
		Logger:    zap.NewNop(),
	}
}

// WithCachePath sets the cache database file. Pass
// rxkart.InMemoryCache to keep the cache off disk.
func WithCachePath(path string) Option {
	return func(o *Options) { o.CachePath = path }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *Options) { o.HTTPClient = hc }
}

// WithLogger sets the logger. Defaults to a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// InMemoryCache keeps the local cache off disk; it will not survive
// process restarts.
const InMemoryCache = cachedb.InMemory

// DefaultCachePath returns the on-disk location of the cache database.
func DefaultCachePath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "rxkart", "cache.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "rxkart", "cache.db")
	}
	return filepath.Join(".rxkart", "cache.db")
}

// Open builds a client for the backend at baseURL. A cache that cannot
// be opened is not fatal: the client degrades to network-only
// operation and offline reads stop working.
func Open(baseURL string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	c := &Client{logger: o.Logger}
	c.api = rest.NewClient(baseURL, c.sessionToken, o.Logger)
	if o.HTTPClient != nil {
		c.api.SetHTTPClient(o.HTTPClient)
	}

	if o.CachePath != cachedb.InMemory {
		if err := os.MkdirAll(filepath.Dir(o.CachePath), 0755); err != nil {
			c.logger.Warn("could not create cache directory, cache disabled", zap.Error(err))
			o.CachePath = ""
		}
	}

	if o.CachePath != "" {
		db, err := cachedb.Open(o.CachePath)
		if err != nil {
			c.logger.Warn("local cache unavailable, offline reads disabled", zap.Error(err))
		} else {
			c.cache = db
		}
	}

	c.Products = &ProductService{c: c}
	c.Orders = &OrderService{c: c}
	c.Users = &UserService{c: c}
	c.Sellers = &SellerService{c: c}

	c.restoreSession()

	return c, nil
}

func (c *Client) Close() error {
	if c.cache == nil {
		return nil
	}

	return c.cache.Close()
}

func (c *Client) sessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return ""
	}

	return c.session.Token
}

// --- cache helpers -------------------------------------------------
//
// Each one tolerates a missing or failing cache: reads act like a
// miss, writes are dropped with a log line. Cache trouble must never
// break an operation that the network can still complete.

func (c *Client) cacheSeq(store string) uint64 {
	if c.cache == nil {
		return 0
	}

	return c.cache.Seq(store)
}

func (c *Client) cachePut(store, id string, payload []byte) {
	if c.cache == nil {
		return
	}

	if err := c.cache.Put(store, id, payload); err != nil {
		c.logger.Warn("cache put failed",
			zap.String("store", store), zap.String("id", id), zap.Error(err))
	}
}

func (c *Client) cacheDelete(store, id string) {
	if c.cache == nil {
		return
	}

	if err := c.cache.Delete(store, id); err != nil {
		c.logger.Warn("cache delete failed",
			zap.String("store", store), zap.String("id", id), zap.Error(err))
	}
}

func (c *Client) cacheGet(store, id string) (cachedb.Record, bool) {
	if c.cache == nil {
		return cachedb.Record{}, false
	}

	rec, err := c.cache.Get(store, id)
	if err != nil {
		return cachedb.Record{}, false
	}

	return rec, true
}

func (c *Client) cacheGetFiltered(store string, pred func(cachedb.Record) bool) []cachedb.Record {
	if c.cache == nil {
		return nil
	}

	records, err := c.cache.GetFiltered(store, pred)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("store", store), zap.Error(err))
		return nil
	}

	return records
}

func (c *Client) cacheReconcile(store string, token uint64, payloads map[string][]byte, scope func(cachedb.Record) bool) {
	if c.cache == nil {
		return
	}

	applied, err := c.cache.Reconcile(store, token, payloads, scope)
	if err != nil {
		c.logger.Warn("cache reconcile failed", zap.String("store", store), zap.Error(err))
		return
	}

	if !applied {
		c.logger.Debug("cache reconcile skipped, a mutation landed during the refetch",
			zap.String("store", store))
	}
}

func (c *Client) cacheWipe(store string) {
	if c.cache == nil {
		return
	}

	if err := c.cache.Wipe(store); err != nil {
		c.logger.Warn("cache wipe failed", zap.String("store", store), zap.Error(err))
	}
}
