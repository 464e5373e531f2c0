package blockstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JeremyLWright/uplink/types"
)

// backends under test share one suite: the interface contract is the
// same regardless of the storage engine.
func backends(t *testing.T) map[string]BlockStore {
	t.Helper()
	lvl, err := NewLevelDBBlockStore(filepath.Join(t.TempDir(), "blocks"))
	require.NoError(t, err)
	bdg, err := NewBadgerDBBlockStore(filepath.Join(t.TempDir(), "blocks"))
	require.NoError(t, err)
	return map[string]BlockStore{
		"memory":  NewMemoryBlockStore(),
		"leveldb": lvl,
		"badger":  bdg,
	}
}

func testBlock(b byte) (hash, data []byte) {
	return types.HashBytes([]byte{b}).Bytes(), []byte{0xb0, b}
}

func TestSaveLoadBlock(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			hash, data := testBlock(1)
			require.NoError(t, store.SaveBlock(1, hash, data))

			gotHash, gotData, err := store.LoadBlock(1)
			require.NoError(t, err)
			require.Equal(t, hash, gotHash)
			require.Equal(t, data, gotData)

			height, byHash, err := store.LoadBlockByHash(hash)
			require.NoError(t, err)
			require.Equal(t, int64(1), height)
			require.Equal(t, data, byHash)

			require.True(t, store.HasBlock(1))
			require.False(t, store.HasBlock(2))
		})
	}
}

func TestDuplicateHeightRejected(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			hash, data := testBlock(1)
			require.NoError(t, store.SaveBlock(1, hash, data))

			other, otherData := testBlock(2)
			err := store.SaveBlock(1, other, otherData)
			require.ErrorIs(t, err, ErrBlockExists)
		})
	}
}

func TestHashCollisionRejected(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			hash, data := testBlock(1)
			require.NoError(t, store.SaveBlock(1, hash, data))

			err := store.SaveBlock(2, hash, data)
			require.ErrorIs(t, err, ErrHashCollision)
		})
	}
}

func TestHeightAndBase(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			require.Equal(t, int64(0), store.Height())
			require.Equal(t, int64(0), store.Base())

			for _, h := range []int64{3, 5, 4} {
				hash, data := testBlock(byte(h))
				require.NoError(t, store.SaveBlock(h, hash, data))
			}
			require.Equal(t, int64(5), store.Height())
			require.Equal(t, int64(3), store.Base())
		})
	}
}

func TestMissingBlock(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			_, _, err := store.LoadBlock(99)
			require.ErrorIs(t, err, ErrBlockNotFound)

			_, _, err = store.LoadBlockByHash([]byte("nope"))
			require.ErrorIs(t, err, ErrBlockNotFound)
		})
	}
}

func TestLevelDBReopenKeepsMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks")

	store, err := NewLevelDBBlockStore(path)
	require.NoError(t, err)
	hash, data := testBlock(7)
	require.NoError(t, store.SaveBlock(7, hash, data))
	require.NoError(t, store.Close())

	reopened, err := NewLevelDBBlockStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, int64(7), reopened.Height())
	require.Equal(t, int64(7), reopened.Base())
	require.True(t, reopened.HasBlock(7))
}
