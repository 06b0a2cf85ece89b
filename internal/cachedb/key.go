package cachedb

import "strings"

const keySeparator = ":"

// key identifies a record inside a named store. Keys order first by
// store name, then by id, so all records of one store are contiguous
// in the primary index and a store scan is a range scan.
type key struct {
	store string
	id    string
}

func newKey(store, id string) key {
	return key{store: store, id: id}
}

// parseKey splits a serialized "store:id" key. The id part may itself
// contain separators, only the first one delimits the store name.
func parseKey(raw string) key {
	if i := strings.Index(raw, keySeparator); i >= 0 {
		return key{store: raw[:i], id: raw[i+1:]}
	}

	return key{store: raw}
}

func (k key) String() string {
	return k.store + keySeparator + k.id
}

func (k key) Less(other key) bool {
	if k.store != other.store {
		return k.store < other.store
	}

	return k.id < other.id
}

func byKeys(a, b *entry) bool {
	return a.key.Less(b.key)
}
