package cachedb_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxkart/rxkart-go/internal/cachedb"
)

func TestCacheDB_PutGet(t *testing.T) {
	db, err := cachedb.Open(cachedb.InMemory)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	t.Run("get missing key", func(t *testing.T) {
		_, err := db.Get("products", "nope")
		assert.True(t, errors.Is(err, cachedb.ErrKeyDoesNotExist))
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, db.Put("products", "p1", []byte(`{"id":"p1","name":"Aspirin","price":10}`)))

		rec, err := db.Get("products", "p1")
		require.NoError(t, err)
		assert.Equal(t, "p1", rec.ID())
		assert.Equal(t, "products", rec.Store())
		assert.Equal(t, "Aspirin", rec.StringOrDefault("name", ""))
		assert.Equal(t, 10, rec.IntOrDefault("price", 0))
	})

	t.Run("put is idempotent", func(t *testing.T) {
		payload := []byte(`{"id":"p2","name":"Ibuprofen"}`)
		require.NoError(t, db.Put("products", "p2", payload))
		require.NoError(t, db.Put("products", "p2", payload))

		assert.Equal(t, 2, db.Count("products"))
	})

	t.Run("put with same id replaces the payload fully", func(t *testing.T) {
		require.NoError(t, db.Put("products", "p2", []byte(`{"id":"p2","stock":5}`)))

		rec, err := db.Get("products", "p2")
		require.NoError(t, err)
		assert.Equal(t, 5, rec.IntOrDefault("stock", 0))
		assert.Equal(t, "", rec.StringOrDefault("name", ""))
		assert.Equal(t, 2, db.Count("products"))
	})

	t.Run("stores are isolated partitions", func(t *testing.T) {
		require.NoError(t, db.Put("orders", "p1", []byte(`{"id":"p1","status":"pending"}`)))

		rec, err := db.Get("products", "p1")
		require.NoError(t, err)
		assert.Equal(t, "Aspirin", rec.StringOrDefault("name", ""))
		assert.Equal(t, 1, db.Count("orders"))
	})
}

func TestCacheDB_GetAllAndFiltered(t *testing.T) {
	db, err := cachedb.Open(cachedb.InMemory)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	require.NoError(t, db.Put("orders", "o1", []byte(`{"id":"o1","userId":"u1"}`)))
	require.NoError(t, db.Put("orders", "o2", []byte(`{"id":"o2","userId":"u2"}`)))
	require.NoError(t, db.Put("orders", "o3", []byte(`{"id":"o3","userId":"u1"}`)))

	t.Run("get all", func(t *testing.T) {
		records, err := db.GetAll("orders")
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "o1", records[0].ID())
		assert.Equal(t, "o3", records[2].ID())
	})

	t.Run("filtered by relation key", func(t *testing.T) {
		records, err := db.GetFiltered("orders", func(r cachedb.Record) bool {
			return r.StringOrDefault("userId", "") == "u1"
		})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "o1", records[0].ID())
		assert.Equal(t, "o3", records[1].ID())
	})

	t.Run("unknown store scans empty", func(t *testing.T) {
		records, err := db.GetAll("sellers")
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestCacheDB_DeleteAndWipe(t *testing.T) {
	db, err := cachedb.Open(cachedb.InMemory)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	require.NoError(t, db.Put("products", "p1", []byte(`{"id":"p1"}`)))
	require.NoError(t, db.Put("products", "p2", []byte(`{"id":"p2"}`)))

	t.Run("delete removes the record", func(t *testing.T) {
		require.NoError(t, db.Delete("products", "p1"))

		_, err := db.Get("products", "p1")
		assert.True(t, errors.Is(err, cachedb.ErrKeyDoesNotExist))
		assert.Equal(t, 1, db.Count("products"))
	})

	t.Run("deleting an absent key is a no-op", func(t *testing.T) {
		require.NoError(t, db.Delete("products", "p1"))
		assert.Equal(t, 1, db.Count("products"))
	})

	t.Run("wipe empties the store", func(t *testing.T) {
		require.NoError(t, db.Wipe("products"))
		assert.Equal(t, 0, db.Count("products"))
	})
}

func TestCacheDB_Reconcile(t *testing.T) {
	t.Run("overwrites, inserts and evicts", func(t *testing.T) {
		db, err := cachedb.Open(cachedb.InMemory)
		require.NoError(t, err)
		defer func() { require.NoError(t, db.Close()) }()

		require.NoError(t, db.Put("products", "p1", []byte(`{"id":"p1","stock":1}`)))
		require.NoError(t, db.Put("products", "p2", []byte(`{"id":"p2"}`)))

		token := db.Seq("products")
		applied, err := db.Reconcile("products", token, map[string][]byte{
			"p1": []byte(`{"id":"p1","stock":9}`),
			"p3": []byte(`{"id":"p3"}`),
		}, nil)
		require.NoError(t, err)
		assert.True(t, applied)

		records, err := db.GetAll("products")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "p1", records[0].ID())
		assert.Equal(t, 9, records[0].IntOrDefault("stock", 0))
		assert.Equal(t, "p3", records[1].ID())
	})

	t.Run("a mutation during the refetch wins", func(t *testing.T) {
		db, err := cachedb.Open(cachedb.InMemory)
		require.NoError(t, err)
		defer func() { require.NoError(t, db.Close()) }()

		require.NoError(t, db.Put("products", "p1", []byte(`{"id":"p1","stock":1}`)))

		token := db.Seq("products")
		// a mutation lands while the refetch is in flight
		require.NoError(t, db.Put("products", "p1", []byte(`{"id":"p1","stock":0}`)))

		applied, err := db.Reconcile("products", token, map[string][]byte{
			"p1": []byte(`{"id":"p1","stock":7}`),
		}, nil)
		require.NoError(t, err)
		assert.False(t, applied)

		rec, err := db.Get("products", "p1")
		require.NoError(t, err)
		assert.Equal(t, 0, rec.IntOrDefault("stock", -1))
	})

	t.Run("scoped reconcile keeps unrelated records", func(t *testing.T) {
		db, err := cachedb.Open(cachedb.InMemory)
		require.NoError(t, err)
		defer func() { require.NoError(t, db.Close()) }()

		require.NoError(t, db.Put("orders", "o1", []byte(`{"id":"o1","userId":"u1"}`)))
		require.NoError(t, db.Put("orders", "o2", []byte(`{"id":"o2","userId":"u2"}`)))

		// u1's refetch came back empty; u2's order must survive
		applied, err := db.Reconcile("orders", db.Seq("orders"), map[string][]byte{}, func(r cachedb.Record) bool {
			return r.StringOrDefault("userId", "") == "u1"
		})
		require.NoError(t, err)
		assert.True(t, applied)

		records, err := db.GetAll("orders")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "o2", records[0].ID())
	})
}

func TestCacheDB_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	db, err := cachedb.Open(path)
	require.NoError(t, err)

	require.NoError(t, db.Put("products", "p1", []byte(`{"id":"p1","name":"Aspirin"}`)))
	require.NoError(t, db.Put("products", "p2", []byte(`{"id":"p2","name":"Ibuprofen"}`)))
	require.NoError(t, db.Delete("products", "p2"))
	require.NoError(t, db.Close())

	t.Run("records survive reopen", func(t *testing.T) {
		db, err := cachedb.Open(path)
		require.NoError(t, err)
		defer func() { require.NoError(t, db.Close()) }()

		records, err := db.GetAll("products")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "p1", records[0].ID())
		assert.Equal(t, "Aspirin", records[0].StringOrDefault("name", ""))
	})

	t.Run("a partial trailing write is cut off", func(t *testing.T) {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0666)
		require.NoError(t, err)
		_, err = f.WriteString("*4\r\n+set\r\n$11\r\nproducts:p9\r\n$60\r\n{\"id\":")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		db, err := cachedb.Open(path)
		require.NoError(t, err)
		defer func() { require.NoError(t, db.Close()) }()

		records, err := db.GetAll("products")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "p1", records[0].ID())
	})

	t.Run("an unsupported schema version wipes the file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("*2\r\n+ver\r\n+99\r\n"), 0666))

		db, err := cachedb.Open(path)
		require.NoError(t, err)
		defer func() { require.NoError(t, db.Close()) }()

		assert.Equal(t, 0, db.Count("products"))
		require.NoError(t, db.Put("products", "p1", []byte(`{"id":"p1"}`)))
	})
}

func TestCacheDB_Vacuum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	db, err := cachedb.Open(path)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, db.Put("products", "p1", []byte(`{"id":"p1","stock":`+string(rune('0'+i))+`}`)))
	}
	require.NoError(t, db.Put("products", "p2", []byte(`{"id":"p2"}`)))
	require.NoError(t, db.Delete("products", "p2"))

	before, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, db.Vacuum())

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, after.Size(), before.Size())

	require.NoError(t, db.Close())

	db, err = cachedb.Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	records, err := db.GetAll("products")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 9, records[0].IntOrDefault("stock", -1))
}

func TestCacheDB_ClosedDatabase(t *testing.T) {
	db, err := cachedb.Open(cachedb.InMemory)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.True(t, errors.Is(db.Close(), cachedb.ErrDatabaseAlreadyClosed))
	assert.True(t, errors.Is(db.Put("products", "p1", nil), cachedb.ErrDatabaseAlreadyClosed))

	_, err = db.GetAll("products")
	assert.True(t, errors.Is(err, cachedb.ErrDatabaseAlreadyClosed))
}
