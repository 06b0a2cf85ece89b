package cachedb

import (
	"time"

	"github.com/cespare/xxhash/v2"
)

type entry struct {
	key      key
	value    []byte
	sum      uint64
	storedAt time.Time
}

func newEntry(k key, value []byte) *entry {
	return &entry{
		key:      k,
		value:    value,
		sum:      xxhash.Sum64(value),
		storedAt: time.Now(),
	}
}

func (ent *entry) clone() *entry {
	cpEnt := entry{key: ent.key, sum: ent.sum, storedAt: ent.storedAt}
	cpEnt.value = make([]byte, len(ent.value))
	copy(cpEnt.value, ent.value)

	return &cpEnt
}

func (ent *entry) record() Record {
	return Record{
		store:    ent.key.store,
		id:       ent.key.id,
		payload:  ent.value,
		storedAt: ent.storedAt,
	}
}
