// Package cachedb is an embedded, append-only-log backed document
// cache. Records are opaque JSON payloads grouped into named stores
// and keyed by entity id; the whole database lives in one log file
// that is replayed on open and compacted on close.
//
// The cache is a non-authoritative mirror of server state. Callers
// must treat every operation as fallible and degrade to a no-cache
// path when Open fails.
package cachedb

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrDatabaseAlreadyClosed = errors.New("cache database already closed")
var ErrKeyDoesNotExist = errors.New("key does not exist in cache")

type DB struct {
	e  *engine
	mu sync.RWMutex
}

// Open opens (creating on first use) the cache database at path. Pass
// InMemory to skip durable storage. An error here means "cache
// unavailable", never a reason to abort the caller.
func Open(path string, opts ...Option) (*DB, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	e := newEngine(path, cfg)
	if err := e.init(); err != nil {
		return nil, err
	}

	return &DB{e: e}, nil
}

func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.e.close()
}

// Put inserts or replaces the record with the given id. Byte-identical
// payloads are recognized by checksum and skipped entirely.
func (db *DB) Put(store, id string, payload []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.e.closed {
		return ErrDatabaseAlreadyClosed
	}

	ent := newEntry(newKey(store, id), payload)
	if !db.e.put(ent) {
		return nil
	}

	db.e.bumpSeq(store)

	s := &serializer{}
	s.serializeSetCommand(ent)
	return db.e.persist(s)
}

// Get returns the record with the given id or ErrKeyDoesNotExist.
func (db *DB) Get(store, id string) (Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.e.closed {
		return Record{}, ErrDatabaseAlreadyClosed
	}

	ent, ok := db.e.findByKey(newKey(store, id))
	if !ok {
		return Record{}, errors.Wrapf(ErrKeyDoesNotExist, "%s in store %s", id, store)
	}

	return ent.clone().record(), nil
}

// GetAll returns every record of the named store, ordered by id.
func (db *DB) GetAll(store string) ([]Record, error) {
	return db.GetFiltered(store, nil)
}

// GetFiltered returns the records of the named store matched by pred.
// There is no secondary index; this is a full scan of the store.
func (db *DB) GetFiltered(store string, pred func(Record) bool) ([]Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.e.closed {
		return nil, ErrDatabaseAlreadyClosed
	}

	var records []Record
	db.e.scanStore(store, func(ent *entry) bool {
		r := ent.clone().record()
		if pred == nil || pred(r) {
			records = append(records, r)
		}

		return true
	})

	return records, nil
}

// Delete removes the record with the given id. Absence is not an
// error.
func (db *DB) Delete(store, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.e.closed {
		return ErrDatabaseAlreadyClosed
	}

	k := newKey(store, id)
	if !db.e.remove(k) {
		return nil
	}

	db.e.bumpSeq(store)

	s := &serializer{}
	s.serializeDelCommand(k)
	return db.e.persist(s)
}

// Wipe drops every record of the named store.
func (db *DB) Wipe(store string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.e.closed {
		return ErrDatabaseAlreadyClosed
	}

	if wiped := db.e.wipeUnderLock(store); len(wiped) == 0 {
		return nil
	}

	db.e.bumpSeq(store)

	s := &serializer{}
	s.serializeWipeCommand(store)
	return db.e.persist(s)
}

// Count returns the number of records in the named store.
func (db *DB) Count(store string) int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.e.closed {
		return 0
	}

	return db.e.countStore(store)
}

// Seq returns the store's mutation sequence. Every Put, Delete, Wipe
// and applied Reconcile bumps it. Reconcile uses it to detect that a
// mutation landed while a list refetch was in flight.
func (db *DB) Seq(store string) uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.e.closed {
		return 0
	}

	return db.e.seq(store)
}

// Reconcile overwrites the store entry-by-entry with a fresh server
// result, deleting cached ids the server no longer returns. When the
// server result was scoped (a by-relation query), scope limits the
// deletions to the records the query could have returned; nil means
// the result covers the whole store. The write is skipped
// (applied=false) when the store's sequence no longer matches token,
// meaning a mutation resolved after the refetch started; the refetch
// result can no longer be trusted not to clobber it.
func (db *DB) Reconcile(store string, token uint64, payloads map[string][]byte, scope func(Record) bool) (applied bool, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.e.closed {
		return false, ErrDatabaseAlreadyClosed
	}

	if db.e.seq(store) != token {
		return false, nil
	}

	var stale []key
	db.e.scanStore(store, func(ent *entry) bool {
		if _, ok := payloads[ent.key.id]; ok {
			return true
		}

		if scope == nil || scope(ent.clone().record()) {
			stale = append(stale, ent.key)
		}

		return true
	})

	s := &serializer{}
	var dirty bool

	for _, k := range stale {
		db.e.remove(k)
		s.serializeDelCommand(k)
		dirty = true
	}

	for id, payload := range payloads {
		ent := newEntry(newKey(store, id), payload)
		if db.e.put(ent) {
			s.serializeSetCommand(ent)
			dirty = true
		}
	}

	if !dirty {
		return true, nil
	}

	db.e.bumpSeq(store)

	return true, db.e.persist(s)
}

// Vacuum compacts the log file down to one command per live record.
func (db *DB) Vacuum() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.e.closed {
		return ErrDatabaseAlreadyClosed
	}

	if db.e.log == nil {
		return nil
	}

	return db.e.runVacuumUnderLock()
}

type config struct {
	flushStrategy      FlushStrategy
	asyncFlushInterval time.Duration
	disableVacuum      bool
}

func defaultConfig() *config {
	return &config{
		flushStrategy:      Sync,
		asyncFlushInterval: time.Second,
	}
}

// Option configures an opened database.
type Option func(*config)

// WithAsyncFlush trades durability of the last interval for fewer
// fsync calls.
func WithAsyncFlush(interval time.Duration) Option {
	return func(cfg *config) {
		cfg.flushStrategy = Async
		if interval > 0 {
			cfg.asyncFlushInterval = interval
		}
	}
}

// WithoutVacuum disables log compaction on Close.
func WithoutVacuum() Option {
	return func(cfg *config) {
		cfg.disableVacuum = true
	}
}
