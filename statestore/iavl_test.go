package statestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *IAVLStore {
	t.Helper()
	store, err := NewMemoryIAVLStore(100)
	require.NoError(t, err)
	return store
}

func TestNewIAVLStore(t *testing.T) {
	t.Run("creates new store", func(t *testing.T) {
		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "state")

		store, err := NewIAVLStore(path, 100)
		require.NoError(t, err)
		require.NotNil(t, store)
		defer store.Close()

		require.Equal(t, int64(0), store.Version())
	})

	t.Run("reopens existing store", func(t *testing.T) {
		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "state")

		// Create and populate store
		store1, err := NewIAVLStore(path, 100)
		require.NoError(t, err)

		err = store1.Set([]byte("key"), []byte("value"))
		require.NoError(t, err)

		_, version, err := store1.Commit()
		require.NoError(t, err)
		require.Equal(t, int64(1), version)
		require.NoError(t, store1.Close())

		// Reopen store
		store2, err := NewIAVLStore(path, 100)
		require.NoError(t, err)
		defer store2.Close()

		require.Equal(t, int64(1), store2.Version())

		// Verify data
		value, err := store2.Get([]byte("key"))
		require.NoError(t, err)
		require.Equal(t, []byte("value"), value)
	})
}

func TestSetAndGet(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	t.Run("sets and gets value", func(t *testing.T) {
		err := store.Set([]byte("key1"), []byte("value1"))
		require.NoError(t, err)

		value, err := store.Get([]byte("key1"))
		require.NoError(t, err)
		require.Equal(t, []byte("value1"), value)
	})

	t.Run("returns nil for non-existent key", func(t *testing.T) {
		value, err := store.Get([]byte("nonexistent"))
		require.NoError(t, err)
		require.Nil(t, value)
	})

	t.Run("overwrites existing value", func(t *testing.T) {
		err := store.Set([]byte("key2"), []byte("original"))
		require.NoError(t, err)

		err = store.Set([]byte("key2"), []byte("updated"))
		require.NoError(t, err)

		value, err := store.Get([]byte("key2"))
		require.NoError(t, err)
		require.Equal(t, []byte("updated"), value)
	})

	t.Run("rejects nil key", func(t *testing.T) {
		err := store.Set(nil, []byte("value"))
		require.Error(t, err)
	})

	t.Run("rejects nil value", func(t *testing.T) {
		err := store.Set([]byte("key"), nil)
		require.Error(t, err)
	})
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	require.NoError(t, store.Set([]byte("toDelete"), []byte("value")))

	err := store.Delete([]byte("toDelete"))
	require.NoError(t, err)

	has, err := store.Has([]byte("toDelete"))
	require.NoError(t, err)
	require.False(t, has)

	// Deleting a missing key is a no-op; a nil key is rejected.
	require.NoError(t, store.Delete([]byte("nonexistent")))
	require.Error(t, store.Delete(nil))
}

func TestCommitIncrementsVersion(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, store.Set([]byte("key"), []byte{byte(i)}))

		hash, version, err := store.Commit()
		require.NoError(t, err)
		require.NotNil(t, hash)
		require.Equal(t, i, version)
		require.Equal(t, i, store.Version())
	}
}

func TestDifferentDataDifferentHashes(t *testing.T) {
	store1 := newTestStore(t)
	defer store1.Close()
	store2 := newTestStore(t)
	defer store2.Close()

	require.NoError(t, store1.Set([]byte("key"), []byte("value1")))
	hash1, _, err := store1.Commit()
	require.NoError(t, err)

	require.NoError(t, store2.Set([]byte("key"), []byte("value2")))
	hash2, _, err := store2.Commit()
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2)
}

func TestIterateInKeyOrder(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	require.NoError(t, store.Set([]byte("b"), []byte("2")))
	require.NoError(t, store.Set([]byte("a"), []byte("1")))
	require.NoError(t, store.Set([]byte("c"), []byte("3")))

	var keys []string
	err := store.Iterate(func(key, value []byte) bool {
		keys = append(keys, string(key))
		return false
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestLoadVersion(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	require.NoError(t, store.Set([]byte("key"), []byte("v1")))
	_, _, err := store.Commit()
	require.NoError(t, err)

	require.NoError(t, store.Set([]byte("key"), []byte("v2")))
	_, _, err = store.Commit()
	require.NoError(t, err)

	require.NoError(t, store.LoadVersion(1))
	value, err := store.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), value)
}
