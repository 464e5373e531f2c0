package blockstore

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Key prefixes for LevelDB storage.
var (
	prefixHeight  = []byte("H:") // Height -> hash || block data
	prefixBlock   = []byte("B:") // Hash -> height
	keyMetaHeight = []byte("M:height")
	keyMetaBase   = []byte("M:base")
)

// LevelDBBlockStore implements BlockStore using LevelDB.
type LevelDBBlockStore struct {
	db     *leveldb.DB
	path   string
	height int64
	base   int64
	mu     sync.RWMutex
}

// NewLevelDBBlockStore creates a new LevelDB-backed block store.
func NewLevelDBBlockStore(path string) (*LevelDBBlockStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		NoSync: false, // Ensure durability
	})
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}

	store := &LevelDBBlockStore{
		db:   db,
		path: path,
	}
	if err := store.loadMetadata(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *LevelDBBlockStore) loadMetadata() error {
	if data, err := s.db.Get(keyMetaHeight, nil); err == nil && len(data) == 8 {
		s.height = int64(binary.BigEndian.Uint64(data))
	}
	if data, err := s.db.Get(keyMetaBase, nil); err == nil && len(data) == 8 {
		s.base = int64(binary.BigEndian.Uint64(data))
	}
	return nil
}

// SaveBlock persists a block at the given height.
func (s *LevelDBBlockStore) SaveBlock(height int64, hash, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	heightKey := makeHeightKey(height)
	if has, err := s.db.Has(heightKey, nil); err != nil {
		return fmt.Errorf("checking height key: %w", err)
	} else if has {
		return ErrBlockExists
	}

	blockKey := makeBlockKey(hash)
	if existing, err := s.db.Get(blockKey, nil); err == nil && len(existing) == 8 {
		existingHeight := int64(binary.BigEndian.Uint64(existing[:8]))
		if existingHeight != height {
			return fmt.Errorf("%w: hash already exists at height %d", ErrHashCollision, existingHeight)
		}
	}

	batch := new(leveldb.Batch)
	batch.Put(heightKey, append(append([]byte(nil), hash...), data...))
	batch.Put(blockKey, encodeInt64(height))

	newHeight := s.height
	if height > newHeight {
		newHeight = height
	}
	newBase := s.base
	if newBase == 0 || height < newBase {
		newBase = height
	}
	batch.Put(keyMetaHeight, encodeInt64(newHeight))
	batch.Put(keyMetaBase, encodeInt64(newBase))

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("writing block batch: %w", err)
	}
	s.height = newHeight
	s.base = newBase
	return nil
}

// LoadBlock retrieves a block by height.
func (s *LevelDBBlockStore) LoadBlock(height int64) ([]byte, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, err := s.db.Get(makeHeightKey(height), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil, ErrBlockNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading block: %w", err)
	}
	if len(entry) < 32 {
		return nil, nil, fmt.Errorf("corrupt block entry at height %d", height)
	}
	hash := append([]byte(nil), entry[:32]...)
	data := append([]byte(nil), entry[32:]...)
	return hash, data, nil
}

// LoadBlockByHash retrieves a block by its hash.
func (s *LevelDBBlockStore) LoadBlockByHash(hash []byte) (int64, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	heightBytes, err := s.db.Get(makeBlockKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return 0, nil, ErrBlockNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("reading block index: %w", err)
	}
	if len(heightBytes) != 8 {
		return 0, nil, fmt.Errorf("corrupt block index for hash %x", hash)
	}
	height := int64(binary.BigEndian.Uint64(heightBytes))

	entry, err := s.db.Get(makeHeightKey(height), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("reading block: %w", err)
	}
	if len(entry) < 32 {
		return 0, nil, fmt.Errorf("corrupt block entry at height %d", height)
	}
	return height, append([]byte(nil), entry[32:]...), nil
}

// HasBlock checks if a block exists at the given height.
func (s *LevelDBBlockStore) HasBlock(height int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	has, err := s.db.Has(makeHeightKey(height), nil)
	return err == nil && has
}

// Height returns the latest block height.
func (s *LevelDBBlockStore) Height() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.height
}

// Base returns the earliest available block height.
func (s *LevelDBBlockStore) Base() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.base
}

// Close closes the underlying database.
func (s *LevelDBBlockStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

func makeHeightKey(height int64) []byte {
	key := make([]byte, len(prefixHeight)+8)
	copy(key, prefixHeight)
	binary.BigEndian.PutUint64(key[len(prefixHeight):], uint64(height))
	return key
}

func makeBlockKey(hash []byte) []byte {
	key := make([]byte, len(prefixBlock)+len(hash))
	copy(key, prefixBlock)
	copy(key[len(prefixBlock):], hash)
	return key
}

func encodeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}
