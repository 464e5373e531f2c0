// Package world holds the ledger state: accounts, assets and contracts
// indexed by address, with pure transition functions.
//
// Transitions never mutate the receiver. Each returns a new world sharing
// unchanged entities with the old one, so a failed transaction leaves the
// caller's world untouched by construction.
package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/JeremyLWright/uplink/fcl"
	"github.com/JeremyLWright/uplink/fcl/storage"
	"github.com/JeremyLWright/uplink/types"
)

// World transition errors.
var (
	// ErrAddressCollision is returned when an address already names an
	// entity of any kind.
	ErrAddressCollision = errors.New("address already in use")

	// ErrAccountNotFound is returned when an account lookup misses.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAssetNotFound is returned when an asset lookup misses.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrContractNotFound is returned when a contract lookup misses.
	ErrContractNotFound = errors.New("contract not found")

	// ErrInsufficientHoldings is returned when a transfer exceeds the
	// sender's holdings.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrInvalidTransferAmount is returned for zero or negative transfer
	// amounts.
	ErrInvalidTransferAmount = errors.New("invalid transfer amount")

	// ErrHoldingsOverflow is returned when a transfer would overflow the
	// receiver's holdings.
	ErrHoldingsOverflow = errors.New("holdings overflow")
)

// Account is a keyed participant identity.
type Account struct {
	// Address is the account address, derived from the public key.
	Address types.Address

	// PublicKey is the compressed secp256k1 public key.
	PublicKey []byte

	// Timezone is the account's IANA timezone name.
	Timezone string

	// Metadata carries free-form annotations.
	Metadata map[string]string
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	md := make(map[string]string, len(a.Metadata))
	for k, v := range a.Metadata {
		md[k] = v
	}
	return &Account{
		Address:   a.Address.Copy(),
		PublicKey: append([]byte(nil), a.PublicKey...),
		Timezone:  a.Timezone,
		Metadata:  md,
	}
}

// Asset is a supply of fungible units tracked per holder.
type Asset struct {
	// Address is the asset address.
	Address types.Address

	// Name is the display name.
	Name string

	// Issuer is the creating account; it initially holds the full supply.
	Issuer types.Address

	// Supply is the total number of units. The sum of Holdings always
	// equals Supply.
	Supply int64

	// Reference is an optional off-chain reference.
	Reference string

	// HasReference distinguishes an empty reference from an absent one.
	HasReference bool

	// Type describes the asset's unit semantics.
	Type types.AssetType

	// Timestamp is the creation time from the issuing transaction.
	Timestamp types.Timestamp

	// Holdings maps holder address keys to unit counts. Zero-balance
	// holders are removed.
	Holdings map[string]int64
}

// Clone returns a deep copy of the asset.
func (a *Asset) Clone() *Asset {
	h := make(map[string]int64, len(a.Holdings))
	for k, v := range a.Holdings {
		h[k] = v
	}
	out := *a
	out.Address = a.Address.Copy()
	out.Issuer = a.Issuer.Copy()
	out.Holdings = h
	return &out
}

// Balance returns a holder's balance.
func (a *Asset) Balance(holder types.Address) int64 {
	return a.Holdings[holder.Key()]
}

// HoldingsSum returns the sum of all holdings. It always equals Supply
// for a well-formed asset.
func (a *Asset) HoldingsSum() int64 {
	var sum int64
	for _, v := range a.Holdings {
		sum += v
	}
	return sum
}

// Contract is a deployed FCL script with its storage and graph position.
// Contracts are never deleted; terminated contracts remain visible.
type Contract struct {
	// Address is the contract address.
	Address types.Address

	// Owner is the deploying account.
	Owner types.Address

	// Timestamp is the deployment time.
	Timestamp types.Timestamp

	// Raw is the UTF-8 FCL source.
	Raw []byte

	// Script is the parsed, typechecked script.
	Script *fcl.Script

	// GlobalStorage is the contract's persistent storage.
	GlobalStorage storage.Storage

	// LocalStorage is per-counterparty storage, keyed by address. Only
	// counterparties observed by this node are present; the maps are not
	// consensus-relevant.
	LocalStorage map[string]storage.Storage

	// LocalStorageVars is the set of declared local variable names.
	LocalStorageVars map[string]struct{}

	// State is the contract's position in its control flow graph.
	State fcl.GraphState

	// SideState is the side-graph machine position.
	SideState fcl.SideState

	// SideLock is the side-graph lock, nil when unlocked.
	SideLock *fcl.SideLock

	// StorageKeyModulus is the contract-owned Paillier modulus for
	// homomorphic values, serialized as big-endian bytes. Empty when the
	// contract uses no crypto values.
	StorageKeyModulus []byte
}

// Clone returns a deep copy of the contract. The parsed script is shared;
// it is immutable after typechecking.
func (c *Contract) Clone() *Contract {
	local := make(map[string]storage.Storage, len(c.LocalStorage))
	for k, v := range c.LocalStorage {
		local[k] = v.Clone()
	}
	vars := make(map[string]struct{}, len(c.LocalStorageVars))
	for k := range c.LocalStorageVars {
		vars[k] = struct{}{}
	}
	out := *c
	out.Address = c.Address.Copy()
	out.Owner = c.Owner.Copy()
	out.Raw = append([]byte(nil), c.Raw...)
	out.GlobalStorage = c.GlobalStorage.Clone()
	out.LocalStorage = local
	out.LocalStorageVars = vars
	if c.SideLock != nil {
		lock := *c.SideLock
		out.SideLock = &lock
	}
	out.StorageKeyModulus = append([]byte(nil), c.StorageKeyModulus...)
	return &out
}

// World is the ledger state: three entity maps keyed by address bytes.
type World struct {
	accounts  map[string]*Account
	assets    map[string]*Asset
	contracts map[string]*Contract
}

// New creates an empty world.
func New() *World {
	return &World{
		accounts:  make(map[string]*Account),
		assets:    make(map[string]*Asset),
		contracts: make(map[string]*Contract),
	}
}

// clone returns a world sharing all three maps' entities but with fresh
// map headers for all three kinds.
func (w *World) clone() *World {
	accounts := make(map[string]*Account, len(w.accounts))
	for k, v := range w.accounts {
		accounts[k] = v
	}
	assets := make(map[string]*Asset, len(w.assets))
	for k, v := range w.assets {
		assets[k] = v
	}
	contracts := make(map[string]*Contract, len(w.contracts))
	for k, v := range w.contracts {
		contracts[k] = v
	}
	return &World{accounts: accounts, assets: assets, contracts: contracts}
}

// addressInUse reports whether any entity kind claims the address.
func (w *World) addressInUse(addr types.Address) bool {
	key := addr.Key()
	if _, ok := w.accounts[key]; ok {
		return true
	}
	if _, ok := w.assets[key]; ok {
		return true
	}
	if _, ok := w.contracts[key]; ok {
		return true
	}
	return false
}

// LookupAccount returns the account at an address.
func (w *World) LookupAccount(addr types.Address) (*Account, error) {
	acc, ok := w.accounts[addr.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return acc, nil
}

// LookupAsset returns the asset at an address.
func (w *World) LookupAsset(addr types.Address) (*Asset, error) {
	a, ok := w.assets[addr.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, addr)
	}
	return a, nil
}

// LookupContract returns the contract at an address.
func (w *World) LookupContract(addr types.Address) (*Contract, error) {
	c, ok := w.contracts[addr.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, addr)
	}
	return c, nil
}

// AddAccount registers a new account. Fails if the address names any
// existing entity.
func (w *World) AddAccount(acc *Account) (*World, error) {
	if w.addressInUse(acc.Address) {
		return nil, fmt.Errorf("%w: %s", ErrAddressCollision, acc.Address)
	}
	next := w.clone()
	next.accounts[acc.Address.Key()] = acc.Clone()
	return next, nil
}

// RemoveAccount removes an existing account.
func (w *World) RemoveAccount(addr types.Address) (*World, error) {
	if _, ok := w.accounts[addr.Key()]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	next := w.clone()
	delete(next.accounts, addr.Key())
	return next, nil
}

// AddAsset registers a new asset at the given address. Fails if the
// address names any existing entity.
func (w *World) AddAsset(to types.Address, asset *Asset) (*World, error) {
	if w.addressInUse(to) {
		return nil, fmt.Errorf("%w: %s", ErrAddressCollision, to)
	}
	a := asset.Clone()
	a.Address = to.Copy()
	next := w.clone()
	next.assets[to.Key()] = a
	return next, nil
}

// TransferAsset atomically moves units between holders. The transition
// fails without effect on a missing asset, insufficient sender holdings,
// a non-positive amount, or receiver overflow.
func (w *World) TransferAsset(asset types.Address, from, to types.Address, amount int64) (*World, error) {
	a, ok := w.assets[asset.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTransferAmount, amount)
	}
	fromBal := a.Holdings[from.Key()]
	if fromBal < amount {
		return nil, fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientHoldings, from, fromBal, amount)
	}
	toBal := a.Holdings[to.Key()]
	if toBal > 0 && toBal+amount < 0 {
		return nil, fmt.Errorf("%w: %s", ErrHoldingsOverflow, to)
	}

	updated := a.Clone()
	if fromBal == amount {
		delete(updated.Holdings, from.Key())
	} else {
		updated.Holdings[from.Key()] = fromBal - amount
	}
	updated.Holdings[to.Key()] = updated.Holdings[to.Key()] + amount

	next := w.clone()
	next.assets[asset.Key()] = updated
	return next, nil
}

// AddContract registers a new contract at the given address. Fails if the
// address names any existing entity.
func (w *World) AddContract(addr types.Address, c *Contract) (*World, error) {
	if w.addressInUse(addr) {
		return nil, fmt.Errorf("%w: %s", ErrAddressCollision, addr)
	}
	cc := c.Clone()
	cc.Address = addr.Copy()
	next := w.clone()
	next.contracts[addr.Key()] = cc
	return next, nil
}

// UpdateContract replaces a contract's contents. The address is
// unchanged.
func (w *World) UpdateContract(addr types.Address, c *Contract) (*World, error) {
	if _, ok := w.contracts[addr.Key()]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, addr)
	}
	cc := c.Clone()
	cc.Address = addr.Copy()
	next := w.clone()
	next.contracts[addr.Key()] = cc
	return next, nil
}

// Accounts returns all accounts in address order.
func (w *World) Accounts() []*Account {
	out := make([]*Account, 0, len(w.accounts))
	for _, a := range w.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address.Compare(out[j].Address) < 0 })
	return out
}

// Assets returns all assets in address order.
func (w *World) Assets() []*Asset {
	out := make([]*Asset, 0, len(w.assets))
	for _, a := range w.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address.Compare(out[j].Address) < 0 })
	return out
}

// Contracts returns all contracts in address order.
func (w *World) Contracts() []*Contract {
	out := make([]*Contract, 0, len(w.contracts))
	for _, c := range w.contracts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address.Compare(out[j].Address) < 0 })
	return out
}

// Counts returns the number of accounts, assets and contracts.
func (w *World) Counts() (accounts, assets, contracts int) {
	return len(w.accounts), len(w.assets), len(w.contracts)
}
