// Package applier applies individual transactions to the world state.
//
// Each transaction is applied through pure world transitions, so a
// failing transaction leaves the world exactly as it was. Contract calls
// delegate to the FCL evaluator and commit its storage, graph and world
// effects only on success.
package applier

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/JeremyLWright/uplink/fcl"
	"github.com/JeremyLWright/uplink/fcl/delta"
	"github.com/JeremyLWright/uplink/fcl/eval"
	"github.com/JeremyLWright/uplink/fcl/storage"
	"github.com/JeremyLWright/uplink/fcl/value"
	"github.com/JeremyLWright/uplink/keys"
	"github.com/JeremyLWright/uplink/logging"
	"github.com/JeremyLWright/uplink/metrics"
	"github.com/JeremyLWright/uplink/types"
	"github.com/JeremyLWright/uplink/world"
)

// Applier errors.
var (
	// ErrInvalidSupply is returned for a non-positive asset supply.
	ErrInvalidSupply = errors.New("asset supply must be positive")

	// ErrOriginMismatch is returned when a CreateAccount origin does not
	// match the address derived from the embedded public key.
	ErrOriginMismatch = errors.New("origin does not match public key")

	// ErrBadCallArg is returned when a call argument fails to decode.
	ErrBadCallArg = errors.New("malformed call argument")
)

// BlockContext carries the block-level facts transaction application
// depends on: the block being applied, its validator set, and the
// evaluating node's signing key.
type BlockContext struct {
	// Block is the block under validation.
	Block *types.Block

	// Validators is the permissioned validator set for this block.
	Validators *types.ValidatorSet

	// PrivKey is the evaluating node's key, exposed to the sign
	// primitive. May be nil for non-signing replay.
	PrivKey *keys.PrivateKey
}

// Result accumulates the output of applying a sequence of transactions.
type Result struct {
	// World is the state after the applied prefix.
	World *world.World

	// Invalid lists the transactions that failed, in block order.
	Invalid []*types.InvalidTransaction

	// Deltas collects the evaluation deltas per contract address key, in
	// emission order.
	Deltas map[string]delta.Log
}

// Applier applies transactions one at a time.
type Applier struct {
	parser  fcl.Parser
	log     *logging.Logger
	metrics metrics.Metrics
}

// New creates an applier. The parser deploys contracts from source; a nil
// logger discards output and nil metrics are replaced with a no-op.
func New(parser fcl.Parser, log *logging.Logger, m metrics.Metrics) *Applier {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	return &Applier{
		parser:  parser,
		log:     log.WithComponent("applier"),
		metrics: m,
	}
}

// Apply runs every transaction of the block context in order. Failures
// are collected and skipped; they never stop the remaining transactions.
func (a *Applier) Apply(bctx *BlockContext, w *world.World) *Result {
	res := &Result{
		World:  w,
		Deltas: make(map[string]delta.Log),
	}
	for _, tx := range bctx.Block.Transactions {
		next, deltas, invalid := a.ApplyTransaction(bctx, res.World, tx)
		if invalid != nil {
			res.Invalid = append(res.Invalid, invalid)
			a.metrics.IncTxsRejected(invalid.Header.String(), invalid.Cause.String())
			a.log.Debug("transaction rejected",
				logging.TxKind(invalid.Header.String()),
				logging.Error(invalid),
			)
			continue
		}
		res.World = next
		for key, log := range deltas {
			res.Deltas[key] = append(res.Deltas[key], log...)
		}
		a.metrics.IncTxsApplied(tx.Header.Kind().String())
	}
	accounts, assets, contracts := res.World.Counts()
	a.metrics.SetWorldAccounts(accounts)
	a.metrics.SetWorldAssets(assets)
	a.metrics.SetWorldContracts(contracts)
	return res
}

// ApplyTransaction applies one transaction. On success it returns the new
// world and any contract deltas; on failure it returns the cause and the
// world is unchanged.
func (a *Applier) ApplyTransaction(bctx *BlockContext, w *world.World, tx *types.Transaction) (*world.World, map[string]delta.Log, *types.InvalidTransaction) {
	kind := tx.Header.Kind()

	// Every header but CreateAccount requires an existing origin.
	if kind != types.TxCreateAccount {
		if _, err := w.LookupAccount(tx.Origin); err != nil {
			return nil, nil, invalidTx(kind, types.TxErrOrigin, types.ErrNoSuchOriginAccount)
		}
	}

	switch h := tx.Header.(type) {
	case types.CreateAccount:
		return a.applyCreateAccount(w, tx, h)
	case types.RevokeAccount:
		return a.applyRevokeAccount(bctx, w, h)
	case types.CreateAsset:
		return a.applyCreateAsset(w, tx, h)
	case types.TransferAsset:
		next, err := w.TransferAsset(h.Asset, tx.Origin, h.To, h.Amount)
		if err != nil {
			return nil, nil, invalidTx(kind, types.TxErrAsset, err)
		}
		return next, nil, nil
	case types.BindAsset:
		// Bind semantics are negotiated off-chain; rejected until
		// specified.
		return nil, nil, invalidTx(kind, types.TxErrAsset, types.ErrBindUnsupported)
	case types.CreateContract:
		return a.applyCreateContract(w, tx, h)
	case types.CallContract:
		return a.applyCall(bctx, w, tx, h)
	case types.SyncLocal:
		return nil, nil, invalidTx(kind, types.TxErrContract, types.ErrSyncLocalUnsupported)
	default:
		return nil, nil, invalidTx(kind, types.TxErrContract, fmt.Errorf("unknown header kind %d", kind))
	}
}

func (a *Applier) applyCreateAccount(w *world.World, tx *types.Transaction, h types.CreateAccount) (*world.World, map[string]delta.Log, *types.InvalidTransaction) {
	pub, err := keys.DecodePubKey(h.PublicKey)
	if err != nil {
		return nil, nil, invalidTx(types.TxCreateAccount, types.TxErrPubKey, types.ErrInvalidPubKey)
	}
	addr := keys.AddressFromPubKey(pub)
	if !tx.Origin.IsEmpty() && !tx.Origin.Equal(addr) {
		return nil, nil, invalidTx(types.TxCreateAccount, types.TxErrPubKey, ErrOriginMismatch)
	}
	acc := &world.Account{
		Address:   addr,
		PublicKey: append([]byte(nil), h.PublicKey...),
		Timezone:  h.Timezone,
		Metadata:  h.Metadata,
	}
	next, err := w.AddAccount(acc)
	if err != nil {
		return nil, nil, invalidTx(types.TxCreateAccount, types.TxErrAccount, err)
	}
	return next, nil, nil
}

func (a *Applier) applyRevokeAccount(bctx *BlockContext, w *world.World, h types.RevokeAccount) (*world.World, map[string]delta.Log, *types.InvalidTransaction) {
	if _, err := w.LookupAccount(h.Address); err != nil {
		return nil, nil, invalidTx(types.TxRevokeAccount, types.TxErrAccount, err)
	}
	// A validator of the current block cannot revoke itself out from
	// under the chain.
	if bctx.Validators.Contains(h.Address) {
		return nil, nil, invalidTx(types.TxRevokeAccount, types.TxErrAccount,
			fmt.Errorf("%w: %s", types.ErrRevokeValidator, h.Address))
	}
	next, err := w.RemoveAccount(h.Address)
	if err != nil {
		return nil, nil, invalidTx(types.TxRevokeAccount, types.TxErrAccount, err)
	}
	return next, nil, nil
}

func (a *Applier) applyCreateAsset(w *world.World, tx *types.Transaction, h types.CreateAsset) (*world.World, map[string]delta.Log, *types.InvalidTransaction) {
	if tx.To.IsEmpty() {
		return nil, nil, invalidTx(types.TxCreateAsset, types.TxErrAsset, types.ErrMissingAssetAddress)
	}
	if err := types.ValidateAddress(tx.To); err != nil {
		return nil, nil, invalidTx(types.TxCreateAsset, types.TxErrAsset, err)
	}
	if h.Supply <= 0 {
		return nil, nil, invalidTx(types.TxCreateAsset, types.TxErrAsset,
			fmt.Errorf("%w: %d", ErrInvalidSupply, h.Supply))
	}
	asset := &world.Asset{
		Name:         h.Name,
		Issuer:       tx.Origin.Copy(),
		Supply:       h.Supply,
		Reference:    h.Reference,
		HasReference: h.HasReference,
		Type:         h.Type,
		Timestamp:    tx.Timestamp,
		Holdings:     map[string]int64{tx.Origin.Key(): h.Supply},
	}
	next, err := w.AddAsset(tx.To, asset)
	if err != nil {
		return nil, nil, invalidTx(types.TxCreateAsset, types.TxErrAsset, err)
	}
	return next, nil, nil
}

func (a *Applier) applyCreateContract(w *world.World, tx *types.Transaction, h types.CreateContract) (*world.World, map[string]delta.Log, *types.InvalidTransaction) {
	if err := types.ValidateScriptSize(h.Script); err != nil {
		return nil, nil, invalidTx(types.TxCreateContract, types.TxErrContract, err)
	}
	script, err := a.parser.Parse(h.Script)
	if err != nil {
		return nil, nil, invalidTx(types.TxCreateContract, types.TxErrContract, err)
	}

	global := storage.New()
	for _, d := range script.Definitions {
		if !d.Local && d.Init != nil {
			global.Put(d.Name, d.Init)
		}
	}
	c := &world.Contract{
		Owner:            tx.Origin.Copy(),
		Timestamp:        tx.Timestamp,
		Raw:              append([]byte(nil), h.Script...),
		Script:           script,
		GlobalStorage:    global,
		LocalStorage:     make(map[string]storage.Storage),
		LocalStorageVars: script.LocalVars(),
		State:            fcl.GraphInitial(),
	}
	next, err := w.AddContract(h.Address, c)
	if err != nil {
		return nil, nil, invalidTx(types.TxCreateContract, types.TxErrContract, err)
	}
	a.log.Info("contract deployed",
		logging.Contract(h.Address.String()),
		logging.Size(len(h.Script)),
	)
	return next, nil, nil
}

// applyCall runs a contract method through the evaluator and commits its
// effects: global and local storage, graph position, side lock, asset
// movements, and the delta log.
func (a *Applier) applyCall(bctx *BlockContext, w *world.World, tx *types.Transaction, h types.CallContract) (*world.World, map[string]delta.Log, *types.InvalidTransaction) {
	c, err := w.LookupContract(h.Address)
	if err != nil {
		return nil, nil, invalidTx(types.TxCallContract, types.TxErrContract, err)
	}
	method, err := c.Script.Method(h.Method)
	if err != nil {
		return nil, nil, invalidTx(types.TxCallContract, types.TxErrContract,
			&eval.Fail{Kind: eval.FailNoSuchMethod, Detail: h.Method})
	}
	args := make([]value.Value, len(h.Args))
	for i, raw := range h.Args {
		v, decodeErr := value.Decode(raw)
		if decodeErr != nil {
			return nil, nil, invalidTx(types.TxCallContract, types.TxErrContract,
				fmt.Errorf("%w %d: %v", ErrBadCallArg, i, decodeErr))
		}
		args[i] = v
	}

	ctx, ctxErr := a.evalContext(bctx, tx, c)
	if ctxErr != nil {
		return nil, nil, invalidTx(types.TxCallContract, types.TxErrContract, ctxErr)
	}
	st := eval.NewState(c, w)
	ev := eval.New(ctx, st, a.log)

	a.metrics.IncMethodsEvaluated()
	if _, err := ev.EvalMethod(method, args); err != nil {
		var fail *eval.Fail
		if errors.As(err, &fail) {
			a.metrics.IncEvalFailures(fail.Kind.String())
		}
		return nil, nil, invalidTx(types.TxCallContract, types.TxErrContract, err)
	}

	updated := c.Clone()
	updated.GlobalStorage = st.Global
	updated.LocalStorage = st.Local
	updated.State = st.Graph
	updated.SideState = st.Side
	updated.SideLock = st.Lock

	next, err := st.World.UpdateContract(h.Address, updated)
	if err != nil {
		return nil, nil, invalidTx(types.TxCallContract, types.TxErrContract, err)
	}

	a.metrics.IncDeltasEmitted(len(st.Deltas))
	deltas := map[string]delta.Log{h.Address.Key(): st.Deltas}
	return next, deltas, nil
}

// evalContext assembles the evaluation context from block, transaction
// and contract facts. The storage key is the contract-owned Paillier
// modulus, stable across invocations.
func (a *Applier) evalContext(bctx *BlockContext, tx *types.Transaction, c *world.Contract) (*eval.Context, error) {
	var storageKey *keys.PaillierPub
	if len(c.StorageKeyModulus) > 0 {
		pub, err := keys.NewPaillierPub(newBig(c.StorageKeyModulus))
		if err != nil {
			return nil, fmt.Errorf("contract storage key: %w", err)
		}
		storageKey = pub
	}
	return &eval.Context{
		BlockIndex: bctx.Block.Header.Index,
		Validator:  bctx.Block.Header.Origin,
		TxHash:     tx.Hash(),
		Timestamp:  bctx.Block.Header.Timestamp,
		Created:    c.Timestamp,
		Deployer:   c.Owner,
		TxIssuer:   tx.Origin,
		Address:    c.Address,
		PrivKey:    bctx.PrivKey,
		StorageKey: storageKey,
	}, nil
}

func invalidTx(kind types.TxKind, cause types.TxErrKind, err error) *types.InvalidTransaction {
	return &types.InvalidTransaction{Header: kind, Cause: cause, Err: err}
}

func newBig(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}
