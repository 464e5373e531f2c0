package types

import (
	"errors"
	"fmt"
)

// Sentinel causes for invalid transactions.
var (
	// ErrNoSuchOriginAccount is returned when a transaction's origin is not
	// a known account.
	ErrNoSuchOriginAccount = errors.New("no such origin account")

	// ErrInvalidTxSignature is returned when a transaction signature does
	// not verify against the origin's public key.
	ErrInvalidTxSignature = errors.New("invalid transaction signature")

	// ErrInvalidPubKey is returned when an embedded public key byte string
	// cannot be decoded.
	ErrInvalidPubKey = errors.New("invalid public key byte string")

	// ErrRevokeValidator is returned when revoking an address in the
	// current block's validator set.
	ErrRevokeValidator = errors.New("cannot revoke current validator")

	// ErrMissingAssetAddress is returned when a CreateAsset transaction
	// carries no target address.
	ErrMissingAssetAddress = errors.New("missing asset address")

	// ErrBindUnsupported is returned for BindAsset headers. Bind semantics
	// are negotiated off-chain and rejected until specified.
	ErrBindUnsupported = errors.New("asset bind not supported")

	// ErrSyncLocalUnsupported is returned for SyncLocal headers, which are
	// rejected until their semantics are specified.
	ErrSyncLocalUnsupported = errors.New("local storage sync not supported")
)

// TxErrKind classifies the cause of an invalid transaction.
type TxErrKind int

// Invalid transaction cause kinds.
const (
	// TxErrOrigin means the origin account does not exist.
	TxErrOrigin TxErrKind = iota

	// TxErrSignature means the transaction signature did not verify.
	TxErrSignature

	// TxErrPubKey means an embedded public key failed to decode.
	TxErrPubKey

	// TxErrAccount means an account header failed to apply.
	TxErrAccount

	// TxErrAsset means an asset header failed to apply.
	TxErrAsset

	// TxErrContract means a contract header failed to apply.
	TxErrContract
)

// String returns a human-readable description of the cause kind.
func (k TxErrKind) String() string {
	switch k {
	case TxErrOrigin:
		return "NoSuchOriginAccount"
	case TxErrSignature:
		return "InvalidTxSignature"
	case TxErrPubKey:
		return "InvalidPubKey"
	case TxErrAccount:
		return "InvalidTxAccount"
	case TxErrAsset:
		return "InvalidTxAsset"
	case TxErrContract:
		return "InvalidTxContract"
	default:
		return "Unknown"
	}
}

// InvalidTransaction records why a transaction failed to apply. It carries
// the header kind, the cause classification, and the underlying error.
type InvalidTransaction struct {
	// Header is the kind of the failing transaction's header.
	Header TxKind

	// Cause classifies the failure.
	Cause TxErrKind

	// Err is the underlying error (world error, evaluation failure, or a
	// sentinel cause).
	Err error
}

// Error implements the error interface.
func (e *InvalidTransaction) Error() string {
	return fmt.Sprintf("invalid %s transaction (%s): %v", e.Header, e.Cause, e.Err)
}

// Unwrap returns the underlying error.
func (e *InvalidTransaction) Unwrap() error {
	return e.Err
}

// BlockErrKind classifies the cause of an invalid block.
type BlockErrKind int

// Invalid block cause kinds.
const (
	// BlockErrOrigin means the block origin is not a known account.
	BlockErrOrigin BlockErrKind = iota

	// BlockErrSigner means a block signer is not a known account.
	BlockErrSigner

	// BlockErrSignature means a block signature did not verify.
	BlockErrSignature

	// BlockErrTx means a transaction in the block failed to apply.
	BlockErrTx
)

// String returns a human-readable description of the cause kind.
func (k BlockErrKind) String() string {
	switch k {
	case BlockErrOrigin:
		return "InvalidBlockOrigin"
	case BlockErrSigner:
		return "InvalidBlockSigner"
	case BlockErrSignature:
		return "InvalidBlockSignature"
	case BlockErrTx:
		return "InvalidBlockTx"
	default:
		return "Unknown"
	}
}

// InvalidBlock records why a block failed verification or validation.
type InvalidBlock struct {
	// Kind classifies the failure.
	Kind BlockErrKind

	// Signer is the offending signer address for signer and signature
	// failures.
	Signer Address

	// Tx is the first invalid transaction for BlockErrTx failures.
	Tx *InvalidTransaction
}

// Error implements the error interface.
func (e *InvalidBlock) Error() string {
	switch e.Kind {
	case BlockErrSigner, BlockErrSignature:
		return fmt.Sprintf("%s: signer %s", e.Kind, e.Signer)
	case BlockErrTx:
		return fmt.Sprintf("%s: %v", e.Kind, e.Tx)
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the wrapped invalid transaction, if any.
func (e *InvalidBlock) Unwrap() error {
	if e.Tx != nil {
		return e.Tx
	}
	return nil
}
