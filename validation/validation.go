// Package validation verifies and validates blocks against the world
// state.
//
// Verification is pure: it checks the block origin, the validator
// signatures over the block hash, and every transaction signature,
// without touching the world. Validation then applies the transactions
// in order through the applier. A block whose signatures do not verify
// is never applied.
package validation

import (
	"time"

	"github.com/JeremyLWright/uplink/applier"
	"github.com/JeremyLWright/uplink/fcl/delta"
	"github.com/JeremyLWright/uplink/keys"
	"github.com/JeremyLWright/uplink/logging"
	"github.com/JeremyLWright/uplink/metrics"
	"github.com/JeremyLWright/uplink/types"
	"github.com/JeremyLWright/uplink/world"
)

// Result is the output of validating a block.
type Result struct {
	// World is the state after applying the block.
	World *world.World

	// Invalid lists every transaction that failed, in block order.
	Invalid []*types.InvalidTransaction

	// Deltas collects evaluation deltas per contract address key.
	Deltas map[string]delta.Log
}

// BlockValidator verifies block signatures and applies transactions.
type BlockValidator struct {
	applier *applier.Applier
	log     *logging.Logger
	metrics metrics.Metrics
}

// New creates a block validator around an applier. A nil logger discards
// output and nil metrics are replaced with a no-op.
func New(a *applier.Applier, log *logging.Logger, m metrics.Metrics) *BlockValidator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	return &BlockValidator{
		applier: a,
		log:     log.WithComponent("validation"),
		metrics: m,
	}
}

// VerifyBlock checks the block origin, every validator signature, and
// every transaction signature. It never mutates the world.
func (v *BlockValidator) VerifyBlock(w *world.World, b *types.Block) error {
	if _, err := w.LookupAccount(b.Header.Origin); err != nil {
		v.metrics.IncBlocksRejected(metrics.ReasonBadOrigin)
		return &types.InvalidBlock{Kind: types.BlockErrOrigin}
	}

	blockHash := b.SigHash()
	for _, sig := range b.Signatures {
		signer, err := w.LookupAccount(sig.Signer)
		if err != nil {
			v.metrics.IncBlocksRejected(metrics.ReasonBadSigner)
			return &types.InvalidBlock{Kind: types.BlockErrSigner, Signer: sig.Signer}
		}
		if !verifySignature(signer.PublicKey, sig.Signature, blockHash) {
			v.metrics.IncBlocksRejected(metrics.ReasonBadSignature)
			return &types.InvalidBlock{Kind: types.BlockErrSignature, Signer: sig.Signer}
		}
	}

	for _, tx := range b.Transactions {
		if invalid := v.verifyTransaction(w, tx); invalid != nil {
			v.metrics.IncBlocksRejected(metrics.ReasonInvalidTx)
			return &types.InvalidBlock{Kind: types.BlockErrTx, Tx: invalid}
		}
	}

	v.metrics.IncBlocksVerified()
	return nil
}

// verifyTransaction checks a transaction signature. CreateAccount is
// self-signed by its embedded key; everything else verifies against the
// origin account's stored key.
func (v *BlockValidator) verifyTransaction(w *world.World, tx *types.Transaction) *types.InvalidTransaction {
	var pubBytes []byte
	switch h := tx.Header.(type) {
	case types.CreateAccount:
		pubBytes = h.PublicKey
	default:
		acc, err := w.LookupAccount(tx.Origin)
		if err != nil {
			return &types.InvalidTransaction{
				Header: tx.Header.Kind(),
				Cause:  types.TxErrOrigin,
				Err:    types.ErrNoSuchOriginAccount,
			}
		}
		pubBytes = acc.PublicKey
	}
	if !verifySignature(pubBytes, tx.Signature, tx.SigHash()) {
		return &types.InvalidTransaction{
			Header: tx.Header.Kind(),
			Cause:  types.TxErrSignature,
			Err:    types.ErrInvalidTxSignature,
		}
	}
	return nil
}

func verifySignature(pubBytes, der []byte, digest types.Hash) bool {
	pub, err := keys.DecodePubKey(pubBytes)
	if err != nil {
		return false
	}
	sig, err := keys.ParseSignature(der)
	if err != nil {
		return false
	}
	return keys.VerifyHash(pub, sig, digest.Bytes())
}

// ValidateBlock applies the block's transactions in order. The returned
// error is the first invalid transaction, if any; the full invalid list
// is retained on the result for reporting.
func (v *BlockValidator) ValidateBlock(bctx *applier.BlockContext, w *world.World) (*Result, error) {
	start := time.Now()
	res := v.applier.Apply(bctx, w)
	v.metrics.ObserveBlockApplyLatency(time.Since(start))

	out := &Result{
		World:   res.World,
		Invalid: res.Invalid,
		Deltas:  res.Deltas,
	}
	v.log.Info("block validated",
		logging.Height(bctx.Block.Header.Index.Int64()),
		logging.Count(len(bctx.Block.Transactions)),
		"invalid", len(res.Invalid),
	)
	v.metrics.IncBlocksValidated()
	v.metrics.SetBlockHeight(bctx.Block.Header.Index.Int64())

	if len(res.Invalid) > 0 {
		return out, &types.InvalidBlock{Kind: types.BlockErrTx, Tx: res.Invalid[0]}
	}
	return out, nil
}

// Process verifies then validates: the standard path for an incoming
// block. Verification failure stops processing before any application.
func (v *BlockValidator) Process(bctx *applier.BlockContext, w *world.World) (*Result, error) {
	if err := v.VerifyBlock(w, bctx.Block); err != nil {
		return nil, err
	}
	return v.ValidateBlock(bctx, w)
}
