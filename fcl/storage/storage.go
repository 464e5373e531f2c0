// Package storage provides the key-value storage scopes backing FCL
// contract evaluation.
//
// A method call sees three scopes: the contract's persistent global
// storage, per-counterparty local storage, and a method-scoped temp
// storage that is discarded when the method returns. Keys are the UTF-8
// bytes of variable names.
package storage

import (
	"sort"

	"github.com/JeremyLWright/uplink/fcl/value"
)

// Scope names a storage scope.
type Scope int

// Storage scopes.
const (
	// ScopeGlobal is the contract's persistent storage.
	ScopeGlobal Scope = iota

	// ScopeLocal is per-counterparty persistent storage.
	ScopeLocal

	// ScopeTemp is method-scoped scratch storage.
	ScopeTemp
)

// String returns a human-readable description of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopeLocal:
		return "local"
	case ScopeTemp:
		return "temp"
	default:
		return "unknown"
	}
}

// Storage is a mapping from variable names to values. The map key is the
// raw UTF-8 byte string of the name.
type Storage map[string]value.Value

// New creates an empty storage.
func New() Storage {
	return make(Storage)
}

// Get returns the value for a name and whether it is present.
func (s Storage) Get(name string) (value.Value, bool) {
	v, ok := s[name]
	return v, ok
}

// Put stores a value under a name, replacing any existing value.
func (s Storage) Put(name string, v value.Value) {
	s[name] = v
}

// Has reports whether a name is present.
func (s Storage) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Delete removes a name.
func (s Storage) Delete(name string) {
	delete(s, name)
}

// Len returns the number of entries.
func (s Storage) Len() int {
	return len(s)
}

// Keys returns the names in lexicographic byte order. Deterministic
// iteration order matters anywhere storage contents feed hashing or
// serialization.
func (s Storage) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the storage. Values are immutable once
// stored, so sharing them between clones is safe.
func (s Storage) Clone() Storage {
	out := make(Storage, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
