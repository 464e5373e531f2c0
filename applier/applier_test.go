package applier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JeremyLWright/uplink/fcl"
	"github.com/JeremyLWright/uplink/fcl/delta"
	"github.com/JeremyLWright/uplink/fcl/eval"
	"github.com/JeremyLWright/uplink/fcl/storage"
	"github.com/JeremyLWright/uplink/fcl/value"
	"github.com/JeremyLWright/uplink/keys"
	"github.com/JeremyLWright/uplink/types"
	"github.com/JeremyLWright/uplink/world"
)

func addr(b byte) types.Address {
	a := make([]byte, types.AddressSize)
	a[0] = b
	return a
}

// counterParser deploys a fixed counter script regardless of source:
// global int x = 0 with increment, crash and finish methods.
type counterParser struct{}

func (counterParser) Parse(src []byte) (*fcl.Script, error) {
	return &fcl.Script{
		Definitions: []fcl.Def{
			{Name: "x", Init: value.Int(0)},
		},
		Methods: []*fcl.Method{
			{
				Name: "increment",
				Tag:  fcl.MethodTag{Kind: fcl.TagMain, Label: "initial"},
				Body: fcl.Assign{
					Name: "x",
					RHS: fcl.BinOpE{
						Op: fcl.OpAdd,
						A:  fcl.Var{Name: "x"},
						B:  fcl.Lit{Val: value.Int(1)},
					},
				},
			},
			{
				Name: "crash",
				Tag:  fcl.MethodTag{Kind: fcl.TagMain, Label: "initial"},
				Body: fcl.BinOpE{
					Op: fcl.OpDiv,
					A:  fcl.Lit{Val: value.Int(10)},
					B:  fcl.Lit{Val: value.Int(0)},
				},
			},
			{
				Name: "finish",
				Tag:  fcl.MethodTag{Kind: fcl.TagMain, Label: "initial"},
				Body: fcl.CallE{
					Prim: fcl.PrimTerminate,
					Args: []fcl.Expr{fcl.Lit{Val: value.Msg("done")}},
				},
			},
		},
	}, nil
}

type failingParser struct{}

func (failingParser) Parse(src []byte) (*fcl.Script, error) {
	return nil, errors.New("syntax error")
}

func blockCtx(validators []types.Address, txs ...*types.Transaction) *BlockContext {
	return &BlockContext{
		Block: &types.Block{
			Header: types.BlockHeader{
				Index:     3,
				Origin:    addr(0xe1),
				Timestamp: 1_700_000_000_000_000,
				PrevHash:  types.EmptyHash(),
			},
			Transactions: txs,
		},
		Validators: types.NewValidatorSet(validators),
	}
}

func worldWithAccount(t *testing.T, a types.Address) *world.World {
	t.Helper()
	w, err := world.New().AddAccount(&world.Account{
		Address:   a,
		PublicKey: []byte{0x02, 0x01},
		Timezone:  "UTC",
	})
	require.NoError(t, err)
	return w
}

func deployCounter(t *testing.T, w *world.World, owner, at types.Address, startX int64) *world.World {
	t.Helper()
	script, err := counterParser{}.Parse(nil)
	require.NoError(t, err)
	global := storage.New()
	global.Put("x", value.Int(startX))
	w, err = w.AddContract(at, &world.Contract{
		Owner:            owner,
		Timestamp:        1,
		Raw:              []byte("contract Counter"),
		Script:           script,
		GlobalStorage:    global,
		LocalStorage:     map[string]storage.Storage{},
		LocalStorageVars: map[string]struct{}{},
		State:            fcl.GraphInitial(),
	})
	require.NoError(t, err)
	return w
}

func TestSeedScenario_CreateAccountAssetTransfer(t *testing.T) {
	priv, err := keys.GeneratePrivateKey()
	require.NoError(t, err)
	p1 := keys.AddressFromPubKey(priv.PubKey())

	issuerPriv, err := keys.GeneratePrivateKey()
	require.NoError(t, err)
	issuer := keys.AddressFromPubKey(issuerPriv.PubKey())

	usd := addr(0x05)

	txs := []*types.Transaction{
		{
			Header: types.CreateAccount{
				PublicKey: keys.EncodePubKey(priv.PubKey()),
				Timezone:  "Europe/London",
			},
			Origin:    p1,
			Timestamp: 10,
		},
		{
			Header: types.CreateAsset{
				Name:   "USD",
				Supply: 1000,
				Type:   types.AssetType{Kind: types.AssetDiscrete},
			},
			Origin:    issuer,
			To:        usd,
			Timestamp: 11,
		},
		{
			Header: types.TransferAsset{
				Asset:  usd,
				To:     p1,
				Amount: 500,
			},
			Origin:    issuer,
			Timestamp: 12,
		},
	}

	w := worldWithAccount(t, issuer)
	a := New(counterParser{}, nil, nil)
	res := a.Apply(blockCtx(nil, txs...), w)

	require.Empty(t, res.Invalid)

	_, err = res.World.LookupAccount(p1)
	require.NoError(t, err)

	asset, err := res.World.LookupAsset(usd)
	require.NoError(t, err)
	require.Equal(t, "USD", asset.Name)
	require.Equal(t, int64(1000), asset.Supply)
	require.Equal(t, int64(500), asset.Balance(p1))
	require.Equal(t, int64(500), asset.Balance(issuer))
}

func TestSeedScenario_IncrementCall(t *testing.T) {
	caller := addr(0x01)
	contractAddr := addr(0xc0)

	w := worldWithAccount(t, caller)
	w = deployCounter(t, w, caller, contractAddr, 7)

	tx := &types.Transaction{
		Header:    types.CallContract{Address: contractAddr, Method: "increment"},
		Origin:    caller,
		Timestamp: 20,
	}
	a := New(counterParser{}, nil, nil)
	res := a.Apply(blockCtx(nil, tx), w)

	require.Empty(t, res.Invalid)

	c, err := res.World.LookupContract(contractAddr)
	require.NoError(t, err)
	x, ok := c.GlobalStorage.Get("x")
	require.True(t, ok)
	require.True(t, value.Equal(value.Int(8), x))

	deltas := res.Deltas[contractAddr.Key()]
	require.Len(t, deltas, 1)
	mg := deltas[0].(delta.ModifyGlobal)
	require.Equal(t, "x", mg.Name)
	require.True(t, value.Equal(value.Int(8), mg.Value))
}

func TestSeedScenario_TerminateThenCall(t *testing.T) {
	caller := addr(0x01)
	contractAddr := addr(0xc0)

	w := worldWithAccount(t, caller)
	w = deployCounter(t, w, caller, contractAddr, 0)

	finish := &types.Transaction{
		Header:    types.CallContract{Address: contractAddr, Method: "finish"},
		Origin:    caller,
		Timestamp: 20,
	}
	again := &types.Transaction{
		Header:    types.CallContract{Address: contractAddr, Method: "increment"},
		Origin:    caller,
		Timestamp: 21,
	}
	a := New(counterParser{}, nil, nil)
	res := a.Apply(blockCtx(nil, finish, again), w)

	// First call terminates; second fails with TerminalState.
	require.Len(t, res.Invalid, 1)
	require.ErrorIs(t, res.Invalid[0], eval.ErrTerminalState)
	require.Equal(t, types.TxErrContract, res.Invalid[0].Cause)

	deltas := res.Deltas[contractAddr.Key()]
	require.Len(t, deltas, 2)
	require.True(t, deltas[0].(delta.ModifyState).State.IsTerminal())
	require.Equal(t, "done", string(deltas[1].(delta.Terminate).Msg))

	c, err := res.World.LookupContract(contractAddr)
	require.NoError(t, err)
	require.True(t, c.State.IsTerminal())
}

func TestSeedScenario_DivideByZeroCall(t *testing.T) {
	caller := addr(0x01)
	contractAddr := addr(0xc0)

	w := worldWithAccount(t, caller)
	w = deployCounter(t, w, caller, contractAddr, 7)

	tx := &types.Transaction{
		Header:    types.CallContract{Address: contractAddr, Method: "crash"},
		Origin:    caller,
		Timestamp: 20,
	}
	a := New(counterParser{}, nil, nil)
	res := a.Apply(blockCtx(nil, tx), w)

	require.Len(t, res.Invalid, 1)
	require.ErrorIs(t, res.Invalid[0], eval.ErrDivideByZero)
	require.Empty(t, res.Deltas)

	// The failed call mutated nothing.
	c, err := res.World.LookupContract(contractAddr)
	require.NoError(t, err)
	x, _ := c.GlobalStorage.Get("x")
	require.True(t, value.Equal(value.Int(7), x))
}

func TestSeedScenario_RevokeValidator(t *testing.T) {
	v := addr(0x01)
	w := worldWithAccount(t, v)

	tx := &types.Transaction{
		Header:    types.RevokeAccount{Address: v},
		Origin:    v,
		Timestamp: 20,
	}
	a := New(counterParser{}, nil, nil)
	res := a.Apply(blockCtx([]types.Address{v}, tx), w)

	require.Len(t, res.Invalid, 1)
	require.ErrorIs(t, res.Invalid[0], types.ErrRevokeValidator)
	require.Equal(t, types.TxErrAccount, res.Invalid[0].Cause)

	// World unchanged.
	_, err := res.World.LookupAccount(v)
	require.NoError(t, err)
}

func TestRevokeNonValidator(t *testing.T) {
	v := addr(0x01)
	target := addr(0x02)
	w := worldWithAccount(t, v)
	w, err := w.AddAccount(&world.Account{Address: target, PublicKey: []byte{0x02}})
	require.NoError(t, err)

	tx := &types.Transaction{
		Header: types.RevokeAccount{Address: target},
		Origin: v,
	}
	a := New(counterParser{}, nil, nil)
	res := a.Apply(blockCtx([]types.Address{v}, tx), w)

	require.Empty(t, res.Invalid)
	_, err = res.World.LookupAccount(target)
	require.ErrorIs(t, err, world.ErrAccountNotFound)
}

func TestNoSuchOriginAccount(t *testing.T) {
	tx := &types.Transaction{
		Header: types.TransferAsset{Asset: addr(0x05), To: addr(0x02), Amount: 1},
		Origin: addr(0x99),
	}
	a := New(counterParser{}, nil, nil)
	res := a.Apply(blockCtx(nil, tx), world.New())

	require.Len(t, res.Invalid, 1)
	require.ErrorIs(t, res.Invalid[0], types.ErrNoSuchOriginAccount)
	require.Equal(t, types.TxErrOrigin, res.Invalid[0].Cause)
}

func TestBindAndSyncLocalRejected(t *testing.T) {
	origin := addr(0x01)
	w := worldWithAccount(t, origin)
	a := New(counterParser{}, nil, nil)

	bind := &types.Transaction{
		Header: types.BindAsset{Asset: addr(0x05), Contract: addr(0xc0)},
		Origin: origin,
	}
	sync := &types.Transaction{
		Header: types.SyncLocal{Contract: addr(0xc0)},
		Origin: origin,
	}
	res := a.Apply(blockCtx(nil, bind, sync), w)

	require.Len(t, res.Invalid, 2)
	require.ErrorIs(t, res.Invalid[0], types.ErrBindUnsupported)
	require.ErrorIs(t, res.Invalid[1], types.ErrSyncLocalUnsupported)
}

func TestCreateAccountBadPubKey(t *testing.T) {
	tx := &types.Transaction{
		Header: types.CreateAccount{PublicKey: []byte("garbage")},
	}
	a := New(counterParser{}, nil, nil)
	res := a.Apply(blockCtx(nil, tx), world.New())

	require.Len(t, res.Invalid, 1)
	require.ErrorIs(t, res.Invalid[0], types.ErrInvalidPubKey)
	require.Equal(t, types.TxErrPubKey, res.Invalid[0].Cause)
}

func TestCreateAssetRequiresTarget(t *testing.T) {
	origin := addr(0x01)
	w := worldWithAccount(t, origin)

	tx := &types.Transaction{
		Header: types.CreateAsset{Name: "USD", Supply: 100},
		Origin: origin,
	}
	a := New(counterParser{}, nil, nil)
	res := a.Apply(blockCtx(nil, tx), w)

	require.Len(t, res.Invalid, 1)
	require.ErrorIs(t, res.Invalid[0], types.ErrMissingAssetAddress)
}

func TestCreateContractParseFailure(t *testing.T) {
	origin := addr(0x01)
	w := worldWithAccount(t, origin)

	tx := &types.Transaction{
		Header: types.CreateContract{Address: addr(0xc0), Script: []byte("not fcl")},
		Origin: origin,
	}
	a := New(failingParser{}, nil, nil)
	res := a.Apply(blockCtx(nil, tx), w)

	require.Len(t, res.Invalid, 1)
	require.Equal(t, types.TxErrContract, res.Invalid[0].Cause)
}

func TestCreateContractInitializesGlobals(t *testing.T) {
	origin := addr(0x01)
	w := worldWithAccount(t, origin)

	tx := &types.Transaction{
		Header:    types.CreateContract{Address: addr(0xc0), Script: []byte("contract Counter")},
		Origin:    origin,
		Timestamp: 42,
	}
	a := New(counterParser{}, nil, nil)
	res := a.Apply(blockCtx(nil, tx), w)

	require.Empty(t, res.Invalid)
	c, err := res.World.LookupContract(addr(0xc0))
	require.NoError(t, err)
	require.True(t, c.State.IsInitial())
	require.Equal(t, types.Timestamp(42), c.Timestamp)
	x, ok := c.GlobalStorage.Get("x")
	require.True(t, ok)
	require.True(t, value.Equal(value.Int(0), x))
}

func TestFailureDoesNotStopBlock(t *testing.T) {
	origin := addr(0x01)
	w := worldWithAccount(t, origin)

	bad := &types.Transaction{
		Header: types.TransferAsset{Asset: addr(0x05), To: addr(0x02), Amount: 1},
		Origin: origin,
	}
	good := &types.Transaction{
		Header:    types.CreateAsset{Name: "EUR", Supply: 10, Type: types.AssetType{Kind: types.AssetDiscrete}},
		Origin:    origin,
		To:        addr(0x06),
		Timestamp: 1,
	}
	a := New(counterParser{}, nil, nil)
	res := a.Apply(blockCtx(nil, bad, good), w)

	require.Len(t, res.Invalid, 1)
	_, err := res.World.LookupAsset(addr(0x06))
	require.NoError(t, err)
}

func TestCallArgumentsDecode(t *testing.T) {
	caller := addr(0x01)
	contractAddr := addr(0xc0)

	w := worldWithAccount(t, caller)

	// A script with a method that stores its argument globally.
	script := &fcl.Script{
		Definitions: []fcl.Def{{Name: "y", Init: value.Int(0)}},
		Methods: []*fcl.Method{{
			Name: "set",
			Tag:  fcl.MethodTag{Kind: fcl.TagMain, Label: "initial"},
			Args: []fcl.Arg{{Name: "n", Type: "int"}},
			Body: fcl.Assign{Name: "y", RHS: fcl.Var{Name: "n"}},
		}},
	}
	global := storage.New()
	global.Put("y", value.Int(0))
	w, err := w.AddContract(contractAddr, &world.Contract{
		Owner:            caller,
		Script:           script,
		GlobalStorage:    global,
		LocalStorage:     map[string]storage.Storage{},
		LocalStorageVars: map[string]struct{}{},
		State:            fcl.GraphInitial(),
	})
	require.NoError(t, err)

	tx := &types.Transaction{
		Header: types.CallContract{
			Address: contractAddr,
			Method:  "set",
			Args:    [][]byte{value.Encode(value.Int(99))},
		},
		Origin: caller,
	}
	a := New(counterParser{}, nil, nil)
	res := a.Apply(blockCtx(nil, tx), w)

	require.Empty(t, res.Invalid)
	c, err := res.World.LookupContract(contractAddr)
	require.NoError(t, err)
	y, _ := c.GlobalStorage.Get("y")
	require.True(t, value.Equal(value.Int(99), y))

	// Garbage arguments are rejected before evaluation.
	badTx := &types.Transaction{
		Header: types.CallContract{
			Address: contractAddr,
			Method:  "set",
			Args:    [][]byte{{0xff, 0xff}},
		},
		Origin: caller,
	}
	res = a.Apply(blockCtx(nil, badTx), res.World)
	require.Len(t, res.Invalid, 1)
	require.ErrorIs(t, res.Invalid[0], ErrBadCallArg)
}

func TestCallUnknownMethod(t *testing.T) {
	caller := addr(0x01)
	contractAddr := addr(0xc0)

	w := worldWithAccount(t, caller)
	w = deployCounter(t, w, caller, contractAddr, 0)

	tx := &types.Transaction{
		Header: types.CallContract{Address: contractAddr, Method: "nonsense"},
		Origin: caller,
	}
	a := New(counterParser{}, nil, nil)
	res := a.Apply(blockCtx(nil, tx), w)

	require.Len(t, res.Invalid, 1)
	require.ErrorIs(t, res.Invalid[0], eval.ErrNoSuchMethod)
}
