package statestore

import (
	"errors"
	"fmt"
	"sync"

	"cosmossdk.io/log"
	"github.com/cosmos/iavl"
	idb "github.com/cosmos/iavl/db"
)

// IAVLStore implements StateStore using a cosmos/iavl merkle tree.
type IAVLStore struct {
	tree *iavl.MutableTree
	db   idb.DB
	mu   sync.RWMutex
}

// NewIAVLStore creates a new IAVL-backed state store.
// path is the directory for persistent storage.
// cacheSize is the number of nodes to cache in memory.
func NewIAVLStore(path string, cacheSize int) (*IAVLStore, error) {
	db, err := idb.NewDB("state", "goleveldb", path)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb for iavl: %w", err)
	}

	tree := iavl.NewMutableTree(db, cacheSize, false, log.NewNopLogger())

	// Load the latest version if it exists
	if _, err := tree.Load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading iavl tree: %w", err)
	}

	return &IAVLStore{
		tree: tree,
		db:   db,
	}, nil
}

// NewMemoryIAVLStore creates an in-memory IAVL store for testing.
func NewMemoryIAVLStore(cacheSize int) (*IAVLStore, error) {
	db := idb.NewMemDB()
	tree := iavl.NewMutableTree(db, cacheSize, false, log.NewNopLogger())

	return &IAVLStore{
		tree: tree,
		db:   db,
	}, nil
}

// Get retrieves the value for a key.
func (s *IAVLStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, err := s.tree.Get(key)
	if err != nil {
		return nil, fmt.Errorf("getting key: %w", err)
	}
	return value, nil
}

// Has checks if a key exists.
func (s *IAVLStore) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	has, err := s.tree.Has(key)
	if err != nil {
		return false, fmt.Errorf("checking key existence: %w", err)
	}
	return has, nil
}

// Set stores a key-value pair in the working tree.
func (s *IAVLStore) Set(key []byte, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == nil {
		return errors.New("key cannot be nil")
	}
	if value == nil {
		return errors.New("value cannot be nil")
	}

	_, err := s.tree.Set(key, value)
	if err != nil {
		return fmt.Errorf("setting key: %w", err)
	}
	return nil
}

// Delete removes a key from the working tree.
func (s *IAVLStore) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == nil {
		return errors.New("key cannot be nil")
	}

	_, _, err := s.tree.Remove(key)
	if err != nil {
		return fmt.Errorf("removing key: %w", err)
	}
	return nil
}

// Iterate walks all key-value pairs in key order.
func (s *IAVLStore) Iterate(fn func(key, value []byte) bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := s.tree.Iterate(fn)
	if err != nil {
		return fmt.Errorf("iterating tree: %w", err)
	}
	return nil
}

// Commit saves the current working tree as a new version.
func (s *IAVLStore) Commit() ([]byte, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, version, err := s.tree.SaveVersion()
	if err != nil {
		return nil, 0, fmt.Errorf("saving version: %w", err)
	}
	return hash, version, nil
}

// RootHash returns the root hash of the current working tree.
func (s *IAVLStore) RootHash() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.WorkingHash()
}

// Version returns the latest committed version number.
func (s *IAVLStore) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.Version()
}

// LoadVersion loads a specific version of the tree.
func (s *IAVLStore) LoadVersion(version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.tree.LoadVersion(version)
	if err != nil {
		return fmt.Errorf("loading version %d: %w", version, err)
	}
	return nil
}

// Close closes the store and releases resources.
func (s *IAVLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}
