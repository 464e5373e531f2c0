package statestore

import (
	"fmt"
	"sort"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/JeremyLWright/uplink/fcl"
	"github.com/JeremyLWright/uplink/fcl/storage"
	"github.com/JeremyLWright/uplink/fcl/value"
	"github.com/JeremyLWright/uplink/types"
	"github.com/JeremyLWright/uplink/world"
)

// Entity key prefixes. Keys are one prefix byte followed by the raw
// entity address, so each kind occupies a contiguous key range.
const (
	prefixAccount  = byte('a')
	prefixAsset    = byte('s')
	prefixContract = byte('c')
)

// WorldStore persists world snapshots into a StateStore, one version per
// validated block. Records are cramberry-encoded with deterministic field
// ordering; storage entries carry canonically encoded values.
type WorldStore struct {
	store StateStore
}

// NewWorldStore wraps a state store.
func NewWorldStore(store StateStore) *WorldStore {
	return &WorldStore{store: store}
}

// Commit writes the world into the working tree, removes entities that no
// longer exist, and saves a new version. Returns the root hash (the app
// hash for the block) and the version number.
func (ws *WorldStore) Commit(w *world.World) (types.Hash, int64, error) {
	desired := make(map[string][]byte)

	for _, acc := range w.Accounts() {
		data, err := cramberry.Marshal(accountRecordFrom(acc))
		if err != nil {
			return nil, 0, fmt.Errorf("encoding account %s: %w", acc.Address, err)
		}
		desired[string(entityKey(prefixAccount, acc.Address))] = data
	}
	for _, a := range w.Assets() {
		data, err := cramberry.Marshal(assetRecordFrom(a))
		if err != nil {
			return nil, 0, fmt.Errorf("encoding asset %s: %w", a.Address, err)
		}
		desired[string(entityKey(prefixAsset, a.Address))] = data
	}
	for _, c := range w.Contracts() {
		data, err := cramberry.Marshal(contractRecordFrom(c))
		if err != nil {
			return nil, 0, fmt.Errorf("encoding contract %s: %w", c.Address, err)
		}
		desired[string(entityKey(prefixContract, c.Address))] = data
	}

	// Remove keys for entities gone from this snapshot (revoked
	// accounts).
	var stale [][]byte
	err := ws.store.Iterate(func(key, _ []byte) bool {
		if _, ok := desired[string(key)]; !ok {
			stale = append(stale, append([]byte(nil), key...))
		}
		return false
	})
	if err != nil {
		return nil, 0, err
	}
	for _, key := range stale {
		if err := ws.store.Delete(key); err != nil {
			return nil, 0, err
		}
	}

	// Deterministic write order.
	keys := make([]string, 0, len(desired))
	for k := range desired {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := ws.store.Set([]byte(k), desired[k]); err != nil {
			return nil, 0, err
		}
	}

	hash, version, err := ws.store.Commit()
	if err != nil {
		return nil, 0, err
	}
	return types.Hash(hash), version, nil
}

// Load rebuilds a world from the latest committed snapshot. Contract
// scripts are re-parsed from their stored source.
func (ws *WorldStore) Load(parser fcl.Parser) (*world.World, error) {
	w := world.New()
	var loadErr error

	err := ws.store.Iterate(func(key, data []byte) bool {
		if len(key) < 1 {
			return false
		}
		switch key[0] {
		case prefixAccount:
			var rec accountRecord
			if err := cramberry.Unmarshal(data, &rec); err != nil {
				loadErr = fmt.Errorf("decoding account record: %w", err)
				return true
			}
			w, loadErr = w.AddAccount(rec.toAccount())
		case prefixAsset:
			var rec assetRecord
			if err := cramberry.Unmarshal(data, &rec); err != nil {
				loadErr = fmt.Errorf("decoding asset record: %w", err)
				return true
			}
			asset := rec.toAsset()
			w, loadErr = w.AddAsset(asset.Address, asset)
		case prefixContract:
			var rec contractRecord
			if err := cramberry.Unmarshal(data, &rec); err != nil {
				loadErr = fmt.Errorf("decoding contract record: %w", err)
				return true
			}
			var c *world.Contract
			c, loadErr = rec.toContract(parser)
			if loadErr == nil {
				w, loadErr = w.AddContract(c.Address, c)
			}
		}
		return loadErr != nil
	})
	if err != nil {
		return nil, err
	}
	if loadErr != nil {
		return nil, loadErr
	}
	return w, nil
}

// Version returns the latest committed snapshot version.
func (ws *WorldStore) Version() int64 {
	return ws.store.Version()
}

// RootHash returns the working tree root hash.
func (ws *WorldStore) RootHash() types.Hash {
	return types.Hash(ws.store.RootHash())
}

// Close closes the underlying store.
func (ws *WorldStore) Close() error {
	return ws.store.Close()
}

func entityKey(prefix byte, addr types.Address) []byte {
	key := make([]byte, 1+len(addr))
	key[0] = prefix
	copy(key[1:], addr)
	return key
}

// Snapshot records. Maps are flattened into sorted pair slices so the
// encodings are byte-stable.

type metaPair struct {
	Key string `cramberry:"1"`
	Val string `cramberry:"2"`
}

type accountRecord struct {
	Address   []byte     `cramberry:"1"`
	PublicKey []byte     `cramberry:"2"`
	Timezone  string     `cramberry:"3"`
	Metadata  []metaPair `cramberry:"4"`
}

func accountRecordFrom(acc *world.Account) accountRecord {
	meta := make([]metaPair, 0, len(acc.Metadata))
	for k, v := range acc.Metadata {
		meta = append(meta, metaPair{Key: k, Val: v})
	}
	sort.Slice(meta, func(i, j int) bool { return meta[i].Key < meta[j].Key })
	return accountRecord{
		Address:   acc.Address,
		PublicKey: acc.PublicKey,
		Timezone:  acc.Timezone,
		Metadata:  meta,
	}
}

func (rec accountRecord) toAccount() *world.Account {
	meta := make(map[string]string, len(rec.Metadata))
	for _, p := range rec.Metadata {
		meta[p.Key] = p.Val
	}
	return &world.Account{
		Address:   types.Address(rec.Address),
		PublicKey: rec.PublicKey,
		Timezone:  rec.Timezone,
		Metadata:  meta,
	}
}

type holdingPair struct {
	Holder []byte `cramberry:"1"`
	Amount int64  `cramberry:"2"`
}

type assetRecord struct {
	Address      []byte        `cramberry:"1"`
	Name         string        `cramberry:"2"`
	Issuer       []byte        `cramberry:"3"`
	Supply       int64         `cramberry:"4"`
	Reference    string        `cramberry:"5"`
	HasReference bool          `cramberry:"6"`
	TypeKind     int32         `cramberry:"7"`
	TypePrec     uint8         `cramberry:"8"`
	Timestamp    int64         `cramberry:"9"`
	Holdings     []holdingPair `cramberry:"10"`
}

func assetRecordFrom(a *world.Asset) assetRecord {
	holdings := make([]holdingPair, 0, len(a.Holdings))
	for holder, amount := range a.Holdings {
		holdings = append(holdings, holdingPair{Holder: []byte(holder), Amount: amount})
	}
	sort.Slice(holdings, func(i, j int) bool {
		return string(holdings[i].Holder) < string(holdings[j].Holder)
	})
	return assetRecord{
		Address:      a.Address,
		Name:         a.Name,
		Issuer:       a.Issuer,
		Supply:       a.Supply,
		Reference:    a.Reference,
		HasReference: a.HasReference,
		TypeKind:     int32(a.Type.Kind),
		TypePrec:     a.Type.Precision,
		Timestamp:    a.Timestamp.Int64(),
		Holdings:     holdings,
	}
}

func (rec assetRecord) toAsset() *world.Asset {
	holdings := make(map[string]int64, len(rec.Holdings))
	for _, h := range rec.Holdings {
		holdings[string(h.Holder)] = h.Amount
	}
	return &world.Asset{
		Address:      types.Address(rec.Address),
		Name:         rec.Name,
		Issuer:       types.Address(rec.Issuer),
		Supply:       rec.Supply,
		Reference:    rec.Reference,
		HasReference: rec.HasReference,
		Type: types.AssetType{
			Kind:      types.AssetKind(rec.TypeKind),
			Precision: rec.TypePrec,
		},
		Timestamp: types.Timestamp(rec.Timestamp),
		Holdings:  holdings,
	}
}

type storageEntry struct {
	Name  string `cramberry:"1"`
	Value []byte `cramberry:"2"` // canonical value encoding
}

type localEntry struct {
	Addr    []byte         `cramberry:"1"`
	Entries []storageEntry `cramberry:"2"`
}

type contractRecord struct {
	Address           []byte         `cramberry:"1"`
	Owner             []byte         `cramberry:"2"`
	Timestamp         int64          `cramberry:"3"`
	Raw               []byte         `cramberry:"4"`
	State             string         `cramberry:"5"`
	SideState         int32          `cramberry:"6"`
	SideLocked        bool           `cramberry:"7"`
	SideStart         int64          `cramberry:"8"`
	SideDeadline      int64          `cramberry:"9"`
	StorageKeyModulus []byte         `cramberry:"10"`
	Globals           []storageEntry `cramberry:"11"`
	Locals            []localEntry   `cramberry:"12"`
	LocalVars         []string       `cramberry:"13"`
}

func contractRecordFrom(c *world.Contract) contractRecord {
	globals := storageEntries(c.GlobalStorage)

	locals := make([]localEntry, 0, len(c.LocalStorage))
	for addr, s := range c.LocalStorage {
		locals = append(locals, localEntry{
			Addr:    []byte(addr),
			Entries: storageEntries(s),
		})
	}
	sort.Slice(locals, func(i, j int) bool {
		return string(locals[i].Addr) < string(locals[j].Addr)
	})

	vars := make([]string, 0, len(c.LocalStorageVars))
	for name := range c.LocalStorageVars {
		vars = append(vars, name)
	}
	sort.Strings(vars)

	rec := contractRecord{
		Address:           c.Address,
		Owner:             c.Owner,
		Timestamp:         c.Timestamp.Int64(),
		Raw:               c.Raw,
		State:             c.State.Label(),
		SideState:         int32(c.SideState),
		StorageKeyModulus: c.StorageKeyModulus,
		Globals:           globals,
		Locals:            locals,
		LocalVars:         vars,
	}
	if c.SideLock != nil {
		rec.SideLocked = true
		rec.SideStart = c.SideLock.Start
		rec.SideDeadline = c.SideLock.Deadline
	}
	return rec
}

func (rec contractRecord) toContract(parser fcl.Parser) (*world.Contract, error) {
	script, err := parser.Parse(rec.Raw)
	if err != nil {
		return nil, fmt.Errorf("re-parsing contract %x: %w", rec.Address, err)
	}

	global, err := storageFromEntries(rec.Globals)
	if err != nil {
		return nil, err
	}
	locals := make(map[string]storage.Storage, len(rec.Locals))
	for _, l := range rec.Locals {
		s, err := storageFromEntries(l.Entries)
		if err != nil {
			return nil, err
		}
		locals[string(l.Addr)] = s
	}
	vars := make(map[string]struct{}, len(rec.LocalVars))
	for _, name := range rec.LocalVars {
		vars[name] = struct{}{}
	}

	c := &world.Contract{
		Address:           types.Address(rec.Address),
		Owner:             types.Address(rec.Owner),
		Timestamp:         types.Timestamp(rec.Timestamp),
		Raw:               rec.Raw,
		Script:            script,
		GlobalStorage:     global,
		LocalStorage:      locals,
		LocalStorageVars:  vars,
		State:             fcl.GraphLabel(rec.State),
		SideState:         fcl.SideState(rec.SideState),
		StorageKeyModulus: rec.StorageKeyModulus,
	}
	if rec.SideLocked {
		c.SideLock = &fcl.SideLock{Start: rec.SideStart, Deadline: rec.SideDeadline}
	}
	return c, nil
}

func storageEntries(s storage.Storage) []storageEntry {
	entries := make([]storageEntry, 0, s.Len())
	for _, name := range s.Keys() {
		v, _ := s.Get(name)
		entries = append(entries, storageEntry{
			Name:  name,
			Value: value.Encode(v),
		})
	}
	return entries
}

func storageFromEntries(entries []storageEntry) (storage.Storage, error) {
	s := storage.New()
	for _, e := range entries {
		v, err := value.Decode(e.Value)
		if err != nil {
			return nil, fmt.Errorf("decoding storage entry %s: %w", e.Name, err)
		}
		s.Put(e.Name, v)
	}
	return s, nil
}
