package eval

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JeremyLWright/uplink/fcl"
	"github.com/JeremyLWright/uplink/fcl/delta"
	"github.com/JeremyLWright/uplink/fcl/storage"
	"github.com/JeremyLWright/uplink/fcl/value"
	"github.com/JeremyLWright/uplink/keys"
	"github.com/JeremyLWright/uplink/types"
	"github.com/JeremyLWright/uplink/world"
)

func lit(v value.Value) fcl.Expr { return fcl.Lit{Val: v} }

func call(p fcl.PrimOp, args ...fcl.Expr) fcl.Expr {
	return fcl.CallE{Prim: p, Args: args}
}

func worldWithAsset(t *testing.T, issuer, assetAddr types.Address, supply int64) *world.World {
	t.Helper()
	w := world.New()
	w, err := w.AddAsset(assetAddr, &world.Asset{
		Name:     "GBP",
		Issuer:   issuer,
		Supply:   supply,
		Type:     types.AssetType{Kind: types.AssetDiscrete},
		Holdings: map[string]int64{issuer.Key(): supply},
	})
	require.NoError(t, err)
	return w
}

func TestIntrospectionPrims(t *testing.T) {
	ctx := testContext()
	st := testState(nil, nil)
	e := New(ctx, st, nil)

	cases := []struct {
		prim fcl.PrimOp
		want value.Value
	}{
		{fcl.PrimNow, value.DateTime(testNow)},
		{fcl.PrimBlock, value.Int(7)},
		{fcl.PrimDeployer, value.Account{Address: ctx.Deployer}},
		{fcl.PrimSender, value.Account{Address: ctx.TxIssuer}},
		{fcl.PrimCreated, value.DateTime(ctx.Created)},
		{fcl.PrimAddress, value.Contract{Address: ctx.Address}},
		{fcl.PrimValidator, value.Account{Address: ctx.Validator}},
		{fcl.PrimTxHash, value.Msg(ctx.TxHash.Bytes())},
		{fcl.PrimCurrentState, value.State("initial")},
	}
	for _, tc := range cases {
		v, err := e.eval(call(tc.prim))
		require.NoError(t, err, tc.prim)
		require.True(t, value.Equal(tc.want, v), "%s: got %s", tc.prim, v)
	}
}

func TestTransferToConservesSupply(t *testing.T) {
	ctx := testContext()
	assetAddr := addr(0xaa)
	st := testState(nil, nil)
	st.World = worldWithAsset(t, ctx.TxIssuer, assetAddr, 1000)
	e := New(ctx, st, nil)

	_, err := e.eval(call(fcl.PrimTransferTo,
		lit(value.Asset{Address: assetAddr}),
		lit(value.Int(400)),
	))
	require.NoError(t, err)

	a, err := st.World.LookupAsset(assetAddr)
	require.NoError(t, err)
	require.Equal(t, int64(600), a.Balance(ctx.TxIssuer))
	require.Equal(t, int64(400), a.Balance(ctx.Address))
	require.Equal(t, a.Supply, a.HoldingsSum())

	require.Len(t, st.Deltas, 1)
	d := st.Deltas[0].(delta.ModifyAsset)
	require.Equal(t, delta.AssetTransferTo, d.Op)
	require.Equal(t, int64(400), d.Amount)
}

func TestTransferFromAndHoldings(t *testing.T) {
	ctx := testContext()
	assetAddr := addr(0xaa)
	other := addr(0xbb)
	st := testState(nil, nil)
	st.World = worldWithAsset(t, ctx.TxIssuer, assetAddr, 1000)
	e := New(ctx, st, nil)

	// Fund the contract, then pay out of it.
	_, err := e.eval(call(fcl.PrimTransferTo,
		lit(value.Asset{Address: assetAddr}), lit(value.Int(500))))
	require.NoError(t, err)

	_, err = e.eval(call(fcl.PrimTransferFrom,
		lit(value.Asset{Address: assetAddr}),
		lit(value.Int(200)),
		lit(value.Account{Address: other}),
	))
	require.NoError(t, err)

	// Move between third parties.
	_, err = e.eval(call(fcl.PrimTransferHoldings,
		lit(value.Account{Address: other}),
		lit(value.Asset{Address: assetAddr}),
		lit(value.Int(50)),
		lit(value.Account{Address: ctx.TxIssuer}),
	))
	require.NoError(t, err)

	a, err := st.World.LookupAsset(assetAddr)
	require.NoError(t, err)
	require.Equal(t, int64(550), a.Balance(ctx.TxIssuer))
	require.Equal(t, int64(300), a.Balance(ctx.Address))
	require.Equal(t, int64(150), a.Balance(other))
	require.Equal(t, a.Supply, a.HoldingsSum())
	require.Len(t, st.Deltas, 3)
}

func TestTransferFailureAborts(t *testing.T) {
	ctx := testContext()
	assetAddr := addr(0xaa)
	st := testState(nil, nil)
	st.World = worldWithAsset(t, ctx.TxIssuer, assetAddr, 100)
	e := New(ctx, st, nil)

	_, err := e.eval(call(fcl.PrimTransferTo,
		lit(value.Asset{Address: assetAddr}),
		lit(value.Int(101)),
	))
	require.ErrorIs(t, err, ErrAssetIntegrity)
	require.Empty(t, st.Deltas)

	// The world view is untouched.
	a, lookupErr := st.World.LookupAsset(assetAddr)
	require.NoError(t, lookupErr)
	require.Equal(t, int64(100), a.Balance(ctx.TxIssuer))
}

func TestSignAndVerifyPrims(t *testing.T) {
	priv, err := keys.GeneratePrivateKey()
	require.NoError(t, err)

	ctx := testContext()
	ctx.PrivKey = priv
	signerAddr := keys.AddressFromPubKey(priv.PubKey())

	w := world.New()
	w, err = w.AddAccount(&world.Account{
		Address:   signerAddr,
		PublicKey: keys.EncodePubKey(priv.PubKey()),
		Timezone:  "UTC",
	})
	require.NoError(t, err)

	st := testState(nil, nil)
	st.World = w
	e := New(ctx, st, nil)

	sig, err := e.eval(call(fcl.PrimSign, lit(value.Msg("settle"))))
	require.NoError(t, err)
	require.Equal(t, value.KindSig, sig.Kind())

	ok, err := e.eval(call(fcl.PrimVerify,
		lit(value.Account{Address: signerAddr}),
		lit(sig),
		lit(value.Msg("settle")),
	))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Bool(true), ok))

	// Wrong message fails verification.
	ok, err = e.eval(call(fcl.PrimVerify,
		lit(value.Account{Address: signerAddr}),
		lit(sig),
		lit(value.Msg("steal")),
	))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Bool(false), ok))

	// Unknown account is an integrity failure.
	_, err = e.eval(call(fcl.PrimVerify,
		lit(value.Account{Address: addr(0x99)}),
		lit(sig),
		lit(value.Msg("settle")),
	))
	require.ErrorIs(t, err, ErrAccountIntegrity)
}

func TestSha256Prim(t *testing.T) {
	st := testState(nil, nil)
	e := New(testContext(), st, nil)

	h, err := e.eval(call(fcl.PrimSha256, lit(value.Int(42))))
	require.NoError(t, err)
	require.Equal(t, value.KindMsg, h.Kind())
	require.Len(t, []byte(h.(value.Msg)), types.HashSize)

	_, err = e.eval(call(fcl.PrimSha256, lit(value.Undefined{})))
	require.ErrorIs(t, err, ErrCannotHash)
}

func TestExistencePrims(t *testing.T) {
	ctx := testContext()
	st := testState(nil, nil)

	w := world.New()
	w, err := w.AddAccount(&world.Account{Address: addr(0x01), PublicKey: []byte{2}})
	require.NoError(t, err)
	st.World = w
	e := New(ctx, st, nil)

	v, err := e.eval(call(fcl.PrimAccountExists, lit(value.Addr{Address: addr(0x01)})))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Bool(true), v))

	v, err = e.eval(call(fcl.PrimAssetExists, lit(value.Addr{Address: addr(0x01)})))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Bool(false), v))

	v, err = e.eval(call(fcl.PrimContractExists, lit(value.Addr{Address: addr(0x02)})))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Bool(false), v))
}

func TestContractValuePrims(t *testing.T) {
	ctx := testContext()
	st := testState(nil, nil)

	other := addr(0x42)
	c := &world.Contract{
		Owner:            addr(0x01),
		Script:           &fcl.Script{},
		GlobalStorage:    storage.Storage{"rate": value.Int(250)},
		LocalStorage:     map[string]storage.Storage{},
		LocalStorageVars: map[string]struct{}{},
		State:            fcl.GraphLabel("quoting"),
	}
	w := world.New()
	w, err := w.AddContract(other, c)
	require.NoError(t, err)
	st.World = w
	e := New(ctx, st, nil)

	v, err := e.eval(call(fcl.PrimContractValue,
		lit(value.Contract{Address: other}), lit(value.Msg("rate"))))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Int(250), v))

	_, err = e.eval(call(fcl.PrimContractValue,
		lit(value.Contract{Address: other}), lit(value.Msg("missing"))))
	require.ErrorIs(t, err, ErrContractIntegrity)

	_, err = e.eval(call(fcl.PrimContractValue,
		lit(value.Contract{Address: addr(0x77)}), lit(value.Msg("rate"))))
	require.ErrorIs(t, err, ErrContractIntegrity)

	v, err = e.eval(call(fcl.PrimContractValueExists,
		lit(value.Contract{Address: other}), lit(value.Msg("rate"))))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Bool(true), v))

	v, err = e.eval(call(fcl.PrimContractValueExists,
		lit(value.Contract{Address: other}), lit(value.Msg("missing"))))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Bool(false), v))

	v, err = e.eval(call(fcl.PrimContractState, lit(value.Contract{Address: other})))
	require.NoError(t, err)
	require.True(t, value.Equal(value.State("quoting"), v))
}

func TestBusinessDayPrims(t *testing.T) {
	st := testState(nil, nil)
	e := New(testContext(), st, nil)

	// 2026-08-03 is a Monday; 2026-08-01 a Saturday.
	monday := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	saturday := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	christmas := time.Date(2026, 12, 25, 10, 0, 0, 0, time.UTC)

	v, err := e.eval(call(fcl.PrimIsBusinessDayUK, lit(value.DateTime(monday.UnixMicro()))))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Bool(true), v))

	v, err = e.eval(call(fcl.PrimIsBusinessDayUK, lit(value.DateTime(saturday.UnixMicro()))))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Bool(false), v))

	// Christmas is a holiday on both calendars.
	for _, p := range []fcl.PrimOp{fcl.PrimIsBusinessDayUK, fcl.PrimIsBusinessDayNYSE} {
		v, err = e.eval(call(p, lit(value.DateTime(christmas.UnixMicro()))))
		require.NoError(t, err)
		require.True(t, value.Equal(value.Bool(false), v), p)
	}

	// Next business day after Friday 2026-07-31 is Monday 2026-08-03.
	friday := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC)
	v, err = e.eval(call(fcl.PrimNextBusinessDayNYSE, lit(value.DateTime(friday.UnixMicro()))))
	require.NoError(t, err)
	require.True(t, value.Equal(value.DateTime(monday.Add(-30*time.Minute).UnixMicro()), v))
}

func TestFixedConversionPrims(t *testing.T) {
	st := testState(nil, nil)
	e := New(testContext(), st, nil)

	v, err := e.eval(call(fcl.PrimFloatToFixed2, lit(value.Float(1.005))))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Fixed{Prec: 2, Scaled: 100}, v))

	v, err = e.eval(call(fcl.PrimFixed2ToFloat, lit(value.Fixed{Prec: 2, Scaled: 150})))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Float(1.5), v))

	// Precision mismatch is a typechecker contract violation.
	_, err = e.eval(call(fcl.PrimFixed3ToFloat, lit(value.Fixed{Prec: 2, Scaled: 150})))
	require.ErrorIs(t, err, ErrImpossible)
}

func TestHomomorphicBinOps(t *testing.T) {
	paillier, err := keys.GeneratePaillierKey(1024)
	require.NoError(t, err)

	ctx := testContext()
	ctx.StorageKey = paillier.Pub
	st := testState(nil, nil)
	e := New(ctx, st, nil)

	enc := func(n int64) value.Value {
		c, err := paillier.Encrypt(big.NewInt(n))
		require.NoError(t, err)
		si, err := value.NewSafeInteger(c)
		require.NoError(t, err)
		return value.Crypto{C: si}
	}
	dec := func(v value.Value) int64 {
		m, err := paillier.Decrypt(v.(value.Crypto).C.Big())
		require.NoError(t, err)
		return m.Int64()
	}

	sum, err := e.eval(fcl.BinOpE{Op: fcl.OpAdd, A: lit(enc(30)), B: lit(enc(12))})
	require.NoError(t, err)
	require.Equal(t, int64(42), dec(sum))

	diff, err := e.eval(fcl.BinOpE{Op: fcl.OpSub, A: lit(enc(50)), B: lit(enc(8))})
	require.NoError(t, err)
	require.Equal(t, int64(42), dec(diff))

	// Scalar multiplication commutes.
	prod, err := e.eval(fcl.BinOpE{Op: fcl.OpMul, A: lit(enc(21)), B: lit(value.Int(2))})
	require.NoError(t, err)
	require.Equal(t, int64(42), dec(prod))

	prod, err = e.eval(fcl.BinOpE{Op: fcl.OpMul, A: lit(value.Int(2)), B: lit(enc(21))})
	require.NoError(t, err)
	require.Equal(t, int64(42), dec(prod))

	// Division on ciphertexts is undefined.
	_, err = e.eval(fcl.BinOpE{Op: fcl.OpDiv, A: lit(enc(1)), B: lit(enc(2))})
	require.ErrorIs(t, err, ErrImpossible)
}

func TestHomomorphicWithoutKey(t *testing.T) {
	st := testState(nil, nil)
	e := New(testContext(), st, nil)

	si := value.SafeIntegerFromInt64(7)
	_, err := e.eval(fcl.BinOpE{
		Op: fcl.OpAdd,
		A:  lit(value.Crypto{C: si}),
		B:  lit(value.Crypto{C: si}),
	})
	require.ErrorIs(t, err, ErrHomomorphic)
}

func TestDatetimeArithmetic(t *testing.T) {
	st := testState(nil, nil)
	e := New(testContext(), st, nil)

	hour := value.TimeDelta(3_600_000_000)

	v, err := e.eval(fcl.BinOpE{Op: fcl.OpAdd, A: lit(value.DateTime(testNow)), B: lit(hour)})
	require.NoError(t, err)
	require.True(t, value.Equal(value.DateTime(testNow)+value.DateTime(hour), v))

	v, err = e.eval(fcl.BinOpE{Op: fcl.OpSub, A: lit(value.DateTime(testNow)), B: lit(hour)})
	require.NoError(t, err)
	require.True(t, value.Equal(value.DateTime(int64(testNow)-int64(hour)), v))

	v, err = e.eval(fcl.BinOpE{Op: fcl.OpMul, A: lit(hour), B: lit(value.Int(24))})
	require.NoError(t, err)
	require.True(t, value.Equal(value.TimeDelta(86_400_000_000), v))

	// Scalar overflow is caught.
	_, err = e.eval(fcl.BinOpE{Op: fcl.OpMul, A: lit(hour), B: lit(value.Int(1 << 62))})
	require.ErrorIs(t, err, ErrOverflow)
}

func TestBetweenPrim(t *testing.T) {
	st := testState(nil, nil)
	e := New(testContext(), st, nil)

	v, err := e.eval(call(fcl.PrimBetween,
		lit(value.DateTime(testNow)), lit(value.DateTime(testNow+1))))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Bool(true), v))

	// Half-open: now == end is outside.
	v, err = e.eval(call(fcl.PrimBetween,
		lit(value.DateTime(testNow-10)), lit(value.DateTime(testNow))))
	require.NoError(t, err)
	require.True(t, value.Equal(value.Bool(false), v))
}

func TestMsgConcatBound(t *testing.T) {
	st := testState(nil, nil)
	e := New(testContext(), st, nil)

	big1 := value.Msg(make([]byte, types.MaxMsgSize))
	_, err := e.eval(fcl.BinOpE{Op: fcl.OpAdd, A: lit(big1), B: lit(value.Msg("x"))})
	require.ErrorIs(t, err, ErrHugeString)

	v, err := e.eval(fcl.BinOpE{Op: fcl.OpAdd, A: lit(value.Msg("ab")), B: lit(value.Msg("cd"))})
	require.NoError(t, err)
	require.True(t, value.Equal(value.Msg("abcd"), v))
}
