package cachedb

import (
	"time"

	"github.com/tidwall/btree"
)

const schemaVersion = 1

// InMemory is the path that disables durable storage entirely.
const InMemory = ":memory:"

type engine struct {
	dbFile        string
	cfg           *config
	log           *aof
	pks           *btree.BTreeG[*entry]
	seqs          map[string]uint64
	stopCh        chan struct{}
	runningVacuum bool
	totalDeletes  uint64
	closed        bool
}

func newEngine(dbFile string, cfg *config) *engine {
	return &engine{
		dbFile: dbFile,
		cfg:    cfg,
		pks:    btree.NewBTreeGOptions(byKeys, btree.Options{NoLocks: true}),
		seqs:   make(map[string]uint64),
		stopCh: make(chan struct{}),
	}
}

// init loads the on-disk log, if any. Called under the DB write lock.
func (e *engine) init() error {
	if e.dbFile == InMemory {
		return nil
	}

	log, err := openAOF(e.dbFile, e.cfg.flushStrategy)
	if err != nil {
		return err
	}

	e.log = log

	if err := e.log.load(e); err != nil {
		_ = e.log.close()
		e.log = nil
		return err
	}

	if e.log.fresh() {
		s := &serializer{}
		s.serializeVersion(schemaVersion)
		if err := e.log.append(s); err != nil {
			return err
		}
	}

	if e.cfg.flushStrategy == Async {
		go e.asyncFlush(e.cfg.asyncFlushInterval)
	}

	return nil
}

func (e *engine) close() error {
	if e.closed {
		return ErrDatabaseAlreadyClosed
	}

	if e.log != nil && !e.cfg.disableVacuum {
		if err := e.runVacuumUnderLock(); err != nil {
			return err
		}
	}

	defer func() {
		e.pks = nil
		e.seqs = nil
		e.log = nil
		e.closed = true
	}()

	close(e.stopCh)

	if e.log != nil {
		return e.log.close()
	}

	return nil
}

func (e *engine) asyncFlush(d time.Duration) {
	t := time.NewTicker(d)
	defer t.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-t.C:
			_ = e.log.sync()
		}
	}
}

// runVacuumUnderLock rewrites the log to hold exactly one set command
// per live entry.
func (e *engine) runVacuumUnderLock() error {
	s := &serializer{}
	s.serializeVersion(schemaVersion)

	e.pks.Scan(func(ent *entry) bool {
		s.serializeSetCommand(ent)
		return true
	})

	if err := e.log.writeAndSwap(s); err != nil {
		return err
	}

	e.totalDeletes = 0

	return nil
}

// replayer implementation: rebuilds the index while the log loads.

func (e *engine) replaySet(k key, value []byte, sum uint64) error {
	e.pks.Set(&entry{key: k, value: value, sum: sum, storedAt: time.Now()})
	return nil
}

func (e *engine) replayDel(k key) {
	if _, ok := e.pks.Delete(&entry{key: k}); ok {
		e.totalDeletes++
	}
}

func (e *engine) replayWipe(store string) {
	e.wipeUnderLock(store)
}

// put inserts or replaces by key. Returns false when the stored payload
// is byte-identical and no write is needed.
func (e *engine) put(ent *entry) bool {
	if existing, ok := e.pks.Get(ent); ok && existing.sum == ent.sum {
		return false
	}

	e.pks.Set(ent)
	return true
}

func (e *engine) findByKey(k key) (*entry, bool) {
	return e.pks.Get(&entry{key: k})
}

// remove deletes by key, reporting whether the key was present.
func (e *engine) remove(k key) bool {
	if _, ok := e.pks.Delete(&entry{key: k}); !ok {
		return false
	}

	e.totalDeletes++
	return true
}

func (e *engine) wipeUnderLock(store string) []key {
	var wiped []key
	e.scanStore(store, func(ent *entry) bool {
		wiped = append(wiped, ent.key)
		return true
	})

	for _, k := range wiped {
		e.pks.Delete(&entry{key: k})
		e.totalDeletes++
	}

	return wiped
}

// scanStore visits every entry of one named store in id order.
func (e *engine) scanStore(store string, it func(ent *entry) bool) {
	e.pks.Ascend(&entry{key: key{store: store}}, func(ent *entry) bool {
		if ent.key.store != store {
			return false
		}

		return it(ent)
	})
}

func (e *engine) countStore(store string) int {
	var n int
	e.scanStore(store, func(*entry) bool {
		n++
		return true
	})

	return n
}

func (e *engine) seq(store string) uint64 {
	return e.seqs[store]
}

func (e *engine) bumpSeq(store string) uint64 {
	e.seqs[store]++
	return e.seqs[store]
}

func (e *engine) persist(s *serializer) error {
	if e.log == nil {
		return nil
	}

	return e.log.append(s)
}
