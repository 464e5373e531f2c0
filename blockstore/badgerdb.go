package blockstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// BadgerDBBlockStore implements BlockStore using BadgerDB.
// BadgerDB is optimized for SSDs and offers better write performance
// than LevelDB for certain workloads.
type BadgerDBBlockStore struct {
	db     *badger.DB
	path   string
	height int64
	base   int64
	mu     sync.RWMutex
}

// BadgerDBOptions contains configuration options for BadgerDB.
type BadgerDBOptions struct {
	// SyncWrites ensures durability by syncing writes to disk.
	// Default: true
	SyncWrites bool

	// Compression enables Snappy compression for values.
	// Default: true
	Compression bool
}

// DefaultBadgerDBOptions returns sensible defaults.
func DefaultBadgerDBOptions() BadgerDBOptions {
	return BadgerDBOptions{
		SyncWrites:  true,
		Compression: true,
	}
}

// NewBadgerDBBlockStore creates a new BadgerDB-backed block store.
func NewBadgerDBBlockStore(path string) (*BadgerDBBlockStore, error) {
	return NewBadgerDBBlockStoreWithOptions(path, DefaultBadgerDBOptions())
}

// NewBadgerDBBlockStoreWithOptions creates a store with custom options.
func NewBadgerDBBlockStoreWithOptions(path string, opts BadgerDBOptions) (*BadgerDBBlockStore, error) {
	badgerOpts := badger.DefaultOptions(path).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(nil)
	if opts.Compression {
		badgerOpts = badgerOpts.WithCompression(options.Snappy)
	} else {
		badgerOpts = badgerOpts.WithCompression(options.None)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badgerdb: %w", err)
	}

	store := &BadgerDBBlockStore{
		db:   db,
		path: path,
	}
	if err := store.loadMetadata(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *BadgerDBBlockStore) loadMetadata() error {
	return s.db.View(func(txn *badger.Txn) error {
		if item, err := txn.Get(keyMetaHeight); err == nil {
			_ = item.Value(func(val []byte) error {
				if len(val) == 8 {
					s.height = int64(binary.BigEndian.Uint64(val))
				}
				return nil
			})
		}
		if item, err := txn.Get(keyMetaBase); err == nil {
			_ = item.Value(func(val []byte) error {
				if len(val) == 8 {
					s.base = int64(binary.BigEndian.Uint64(val))
				}
				return nil
			})
		}
		return nil
	})
}

// SaveBlock persists a block at the given height.
func (s *BadgerDBBlockStore) SaveBlock(height int64, hash, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newHeight := s.height
	if height > newHeight {
		newHeight = height
	}
	newBase := s.base
	if newBase == 0 || height < newBase {
		newBase = height
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		heightKey := makeHeightKey(height)
		if _, err := txn.Get(heightKey); err == nil {
			return ErrBlockExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("checking height key: %w", err)
		}

		blockKey := makeBlockKey(hash)
		if item, err := txn.Get(blockKey); err == nil {
			var existingHeight int64
			_ = item.Value(func(val []byte) error {
				if len(val) == 8 {
					existingHeight = int64(binary.BigEndian.Uint64(val))
				}
				return nil
			})
			if existingHeight != height {
				return fmt.Errorf("%w: hash already exists at height %d", ErrHashCollision, existingHeight)
			}
		}

		entry := append(append([]byte(nil), hash...), data...)
		if err := txn.Set(heightKey, entry); err != nil {
			return err
		}
		if err := txn.Set(blockKey, encodeInt64(height)); err != nil {
			return err
		}
		if err := txn.Set(keyMetaHeight, encodeInt64(newHeight)); err != nil {
			return err
		}
		return txn.Set(keyMetaBase, encodeInt64(newBase))
	})
	if err != nil {
		return err
	}

	s.height = newHeight
	s.base = newBase
	return nil
}

// LoadBlock retrieves a block by height.
func (s *BadgerDBBlockStore) LoadBlock(height int64) ([]byte, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hash, data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeHeightKey(height))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrBlockNotFound
		}
		if err != nil {
			return fmt.Errorf("reading block: %w", err)
		}
		return item.Value(func(val []byte) error {
			if len(val) < 32 {
				return fmt.Errorf("corrupt block entry at height %d", height)
			}
			hash = append([]byte(nil), val[:32]...)
			data = append([]byte(nil), val[32:]...)
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return hash, data, nil
}

// LoadBlockByHash retrieves a block by its hash.
func (s *BadgerDBBlockStore) LoadBlockByHash(hash []byte) (int64, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var height int64
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeBlockKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrBlockNotFound
		}
		if err != nil {
			return fmt.Errorf("reading block index: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt block index for hash %x", hash)
			}
			height = int64(binary.BigEndian.Uint64(val))
			return nil
		}); err != nil {
			return err
		}

		entry, err := txn.Get(makeHeightKey(height))
		if err != nil {
			return fmt.Errorf("reading block: %w", err)
		}
		return entry.Value(func(val []byte) error {
			if len(val) < 32 {
				return fmt.Errorf("corrupt block entry at height %d", height)
			}
			data = append([]byte(nil), val[32:]...)
			return nil
		})
	})
	if err != nil {
		return 0, nil, err
	}
	return height, data, nil
}

// HasBlock checks if a block exists at the given height.
func (s *BadgerDBBlockStore) HasBlock(height int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(makeHeightKey(height))
		return err
	})
	return err == nil
}

// Height returns the latest block height.
func (s *BadgerDBBlockStore) Height() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.height
}

// Base returns the earliest available block height.
func (s *BadgerDBBlockStore) Base() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.base
}

// Close closes the underlying database.
func (s *BadgerDBBlockStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}
