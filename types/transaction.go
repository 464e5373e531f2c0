package types

// TxKind identifies a transaction header variant.
type TxKind int

// Transaction header kinds. The three families (account, asset, contract)
// mirror the entity kinds held by the world state.
const (
	// TxCreateAccount registers a new account keyed by its public key.
	TxCreateAccount TxKind = iota

	// TxRevokeAccount removes an existing account.
	TxRevokeAccount

	// TxCreateAsset registers a new asset issued by the origin account.
	TxCreateAsset

	// TxTransferAsset moves asset units between holders.
	TxTransferAsset

	// TxBindAsset associates an asset with a contract. Bind semantics are
	// negotiated off-chain and are not specified for this core.
	TxBindAsset

	// TxCreateContract deploys a new contract from script bytes.
	TxCreateContract

	// TxCallContract invokes a contract method.
	TxCallContract

	// TxSyncLocal reconciles per-counterparty local storage. Sync semantics
	// are not specified for this core.
	TxSyncLocal
)

// String returns a human-readable description of the transaction kind.
func (k TxKind) String() string {
	switch k {
	case TxCreateAccount:
		return "CreateAccount"
	case TxRevokeAccount:
		return "RevokeAccount"
	case TxCreateAsset:
		return "CreateAsset"
	case TxTransferAsset:
		return "TransferAsset"
	case TxBindAsset:
		return "BindAsset"
	case TxCreateContract:
		return "CreateContract"
	case TxCallContract:
		return "CallContract"
	case TxSyncLocal:
		return "SyncLocal"
	default:
		return "Unknown"
	}
}

// TxHeader is the closed set of transaction header variants.
type TxHeader interface {
	// Kind returns the header variant tag.
	Kind() TxKind

	isTxHeader()
}

// CreateAccount registers a new account. The transaction is self-signed by
// the embedded public key rather than by an existing origin account.
type CreateAccount struct {
	// PublicKey is the new account's compressed secp256k1 public key.
	PublicKey []byte `cramberry:"1"`

	// Timezone is the account's IANA timezone name.
	Timezone string `cramberry:"2"`

	// Metadata carries free-form account annotations.
	Metadata map[string]string `cramberry:"3"`
}

// RevokeAccount removes an account from the world. Revoking an address in
// the current block's validator set is rejected.
type RevokeAccount struct {
	// Address is the account to remove.
	Address Address `cramberry:"1"`
}

// CreateAsset registers a new asset. The asset address is the transaction's
// To field; the issuer is the transaction origin.
type CreateAsset struct {
	// Name is the asset's display name.
	Name string `cramberry:"1"`

	// Supply is the total number of units issued to the issuer.
	Supply int64 `cramberry:"2"`

	// Reference is an optional off-chain reference string.
	Reference string `cramberry:"3"`

	// HasReference distinguishes an empty reference from an absent one.
	HasReference bool `cramberry:"4"`

	// Type describes the asset's unit semantics.
	Type AssetType `cramberry:"5"`
}

// TransferAsset moves asset units from the origin to another holder.
type TransferAsset struct {
	// Asset is the asset address.
	Asset Address `cramberry:"1"`

	// To is the receiving holder.
	To Address `cramberry:"2"`

	// Amount is the number of units to move.
	Amount int64 `cramberry:"3"`
}

// BindAsset associates an asset with a contract.
type BindAsset struct {
	// Asset is the asset address.
	Asset Address `cramberry:"1"`

	// Contract is the contract address.
	Contract Address `cramberry:"2"`

	// Proof is the off-chain bind proof.
	Proof []byte `cramberry:"3"`
}

// CreateContract deploys a new contract at the given address.
type CreateContract struct {
	// Address is the new contract's address.
	Address Address `cramberry:"1"`

	// Script is the UTF-8 FCL source.
	Script []byte `cramberry:"2"`
}

// CallContract invokes a method on a deployed contract. Arguments are
// canonically encoded values; the script typechecker has validated them
// against the method signature before the call reaches the core.
type CallContract struct {
	// Address is the contract address.
	Address Address `cramberry:"1"`

	// Method is the method name.
	Method string `cramberry:"2"`

	// Args are canonically encoded argument values.
	Args [][]byte `cramberry:"3"`
}

// SyncLocal reconciles per-counterparty local storage for a contract.
type SyncLocal struct {
	// Contract is the contract address.
	Contract Address `cramberry:"1"`

	// Op is the encoded synchronization operation.
	Op []byte `cramberry:"2"`
}

func (CreateAccount) Kind() TxKind  { return TxCreateAccount }
func (RevokeAccount) Kind() TxKind  { return TxRevokeAccount }
func (CreateAsset) Kind() TxKind    { return TxCreateAsset }
func (TransferAsset) Kind() TxKind  { return TxTransferAsset }
func (BindAsset) Kind() TxKind      { return TxBindAsset }
func (CreateContract) Kind() TxKind { return TxCreateContract }
func (CallContract) Kind() TxKind   { return TxCallContract }
func (SyncLocal) Kind() TxKind      { return TxSyncLocal }

func (CreateAccount) isTxHeader()  {}
func (RevokeAccount) isTxHeader()  {}
func (CreateAsset) isTxHeader()    {}
func (TransferAsset) isTxHeader()  {}
func (BindAsset) isTxHeader()      {}
func (CreateContract) isTxHeader() {}
func (CallContract) isTxHeader()   {}
func (SyncLocal) isTxHeader()      {}

// Transaction is a signed ledger operation.
type Transaction struct {
	// Header is the operation payload.
	Header TxHeader

	// Origin is the issuing account address. For CreateAccount the origin
	// is the address derived from the embedded public key.
	Origin Address

	// To is the target address for header kinds that need one
	// (CreateAsset). Nil otherwise.
	To Address

	// Signature is the deterministic ECDSA signature over SigHash, DER
	// encoded.
	Signature []byte

	// Timestamp is the issuance time in microseconds since the epoch.
	Timestamp Timestamp
}

// SigHash returns the hash a transaction signature commits to: the
// canonical encoding of the transaction with the signature field zeroed.
func (tx *Transaction) SigHash() Hash {
	return HashBytes(encodeTxSigning(tx))
}

// Hash returns the transaction hash over the full canonical encoding,
// signature included.
func (tx *Transaction) Hash() Hash {
	return HashBytes(encodeTx(tx))
}
