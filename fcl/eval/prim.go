package eval

import (
	"github.com/JeremyLWright/uplink/fcl"
	"github.com/JeremyLWright/uplink/fcl/delta"
	"github.com/JeremyLWright/uplink/fcl/value"
	"github.com/JeremyLWright/uplink/keys"
	"github.com/JeremyLWright/uplink/types"
)

// evalPrim evaluates the arguments of a primitive call and dispatches.
func (e *Evaluator) evalPrim(p fcl.PrimOp, argExprs []fcl.Expr) (value.Value, error) {
	args := make([]value.Value, len(argExprs))
	for i, ex := range argExprs {
		v, err := e.eval(ex)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch p {
	case fcl.PrimTerminate:
		return e.primTerminate(args)
	case fcl.PrimTransition:
		return e.primTransition(args)
	case fcl.PrimCurrentState:
		return value.State(e.st.Graph.Label()), nil
	case fcl.PrimNovationInit:
		return e.primNovationInit(args)
	case fcl.PrimNovationStop:
		e.st.Side = fcl.SideStop
		return value.Void{}, nil

	case fcl.PrimTransferTo:
		if err := arity(p, args, 2); err != nil {
			return nil, err
		}
		asset, err := assetArg(p, args[0])
		if err != nil {
			return nil, err
		}
		amount, err := intArg(p, args[1])
		if err != nil {
			return nil, err
		}
		return e.transfer(delta.AssetTransferTo, asset, e.ctx.TxIssuer, e.ctx.Address, amount)

	case fcl.PrimTransferFrom:
		if err := arity(p, args, 3); err != nil {
			return nil, err
		}
		asset, err := assetArg(p, args[0])
		if err != nil {
			return nil, err
		}
		amount, err := intArg(p, args[1])
		if err != nil {
			return nil, err
		}
		to, err := addrArg(p, args[2])
		if err != nil {
			return nil, err
		}
		return e.transfer(delta.AssetTransferFrom, asset, e.ctx.Address, to, amount)

	case fcl.PrimTransferHoldings:
		if err := arity(p, args, 4); err != nil {
			return nil, err
		}
		from, err := addrArg(p, args[0])
		if err != nil {
			return nil, err
		}
		asset, err := assetArg(p, args[1])
		if err != nil {
			return nil, err
		}
		amount, err := intArg(p, args[2])
		if err != nil {
			return nil, err
		}
		to, err := addrArg(p, args[3])
		if err != nil {
			return nil, err
		}
		return e.transfer(delta.AssetTransferHoldings, asset, from, to, amount)

	case fcl.PrimNow:
		return e.now(), nil
	case fcl.PrimBlock:
		return value.Int(e.ctx.BlockIndex), nil
	case fcl.PrimDeployer:
		return value.Account{Address: e.ctx.Deployer}, nil
	case fcl.PrimSender:
		return value.Account{Address: e.ctx.TxIssuer}, nil
	case fcl.PrimCreated:
		return value.DateTime(e.ctx.Created), nil
	case fcl.PrimAddress:
		return value.Contract{Address: e.ctx.Address}, nil
	case fcl.PrimValidator:
		return value.Account{Address: e.ctx.Validator}, nil

	case fcl.PrimSign:
		return e.primSign(args)
	case fcl.PrimVerify:
		return e.primVerify(args)
	case fcl.PrimSha256:
		if err := arity(p, args, 1); err != nil {
			return nil, err
		}
		h, err := value.Hash(args[0])
		if err != nil {
			return nil, fromValueErr(err)
		}
		return value.Msg(h.Bytes()), nil
	case fcl.PrimTxHash:
		return value.Msg(e.ctx.TxHash.Bytes()), nil

	case fcl.PrimAccountExists:
		if err := arity(p, args, 1); err != nil {
			return nil, err
		}
		addr, err := addrArg(p, args[0])
		if err != nil {
			return nil, err
		}
		_, lookupErr := e.st.World.LookupAccount(addr)
		return value.Bool(lookupErr == nil), nil
	case fcl.PrimAssetExists:
		if err := arity(p, args, 1); err != nil {
			return nil, err
		}
		addr, err := addrArg(p, args[0])
		if err != nil {
			return nil, err
		}
		_, lookupErr := e.st.World.LookupAsset(addr)
		return value.Bool(lookupErr == nil), nil
	case fcl.PrimContractExists:
		if err := arity(p, args, 1); err != nil {
			return nil, err
		}
		addr, err := addrArg(p, args[0])
		if err != nil {
			return nil, err
		}
		_, lookupErr := e.st.World.LookupContract(addr)
		return value.Bool(lookupErr == nil), nil

	case fcl.PrimContractValue:
		if err := arity(p, args, 2); err != nil {
			return nil, err
		}
		return e.primContractValue(args[0], args[1])
	case fcl.PrimContractValueExists:
		if err := arity(p, args, 2); err != nil {
			return nil, err
		}
		_, err := e.primContractValue(args[0], args[1])
		return value.Bool(err == nil), nil
	case fcl.PrimContractState:
		if err := arity(p, args, 1); err != nil {
			return nil, err
		}
		addr, err := addrArg(p, args[0])
		if err != nil {
			return nil, err
		}
		c, lookupErr := e.st.World.LookupContract(addr)
		if lookupErr != nil {
			return nil, failf(FailContractIntegrity, "contract %s not found", addr)
		}
		return value.State(c.State.Label()), nil

	case fcl.PrimIsBusinessDayUK:
		return e.primIsBusinessDay(args, calendarUK)
	case fcl.PrimNextBusinessDayUK:
		return e.primNextBusinessDay(args, calendarUK)
	case fcl.PrimIsBusinessDayNYSE:
		return e.primIsBusinessDay(args, calendarNYSE)
	case fcl.PrimNextBusinessDayNYSE:
		return e.primNextBusinessDay(args, calendarNYSE)

	case fcl.PrimBetween:
		if err := arity(p, args, 2); err != nil {
			return nil, err
		}
		s, err := datetimeArg(p, args[0])
		if err != nil {
			return nil, err
		}
		end, err := datetimeArg(p, args[1])
		if err != nil {
			return nil, err
		}
		now := e.now()
		return value.Bool(s <= now && now < end), nil

	default:
		if prec := fcl.FixedToFloatPrec(p); prec != 0 {
			return e.primFixedToFloat(args, prec)
		}
		if prec := fcl.FloatToFixedPrec(p); prec != 0 {
			return e.primFloatToFixed(args, prec)
		}
		return nil, failf(FailImpossible, "unknown primitive %s", p)
	}
}

func (e *Evaluator) primTerminate(args []value.Value) (value.Value, error) {
	if err := arity(fcl.PrimTerminate, args, 1); err != nil {
		return nil, err
	}
	msg, ok := args[0].(value.Msg)
	if !ok {
		return nil, failf(FailImpossible, "terminate takes a msg, got %s", args[0].Kind())
	}
	e.st.Deltas.Append(
		delta.ModifyState{State: fcl.GraphTerminal()},
		delta.Terminate{Msg: append([]byte(nil), msg...)},
	)
	e.st.Graph = fcl.GraphTerminal()
	return value.Void{}, nil
}

func (e *Evaluator) primTransition(args []value.Value) (value.Value, error) {
	if err := arity(fcl.PrimTransition, args, 1); err != nil {
		return nil, err
	}
	label, ok := args[0].(value.State)
	if !ok {
		return nil, failf(FailImpossible, "transitionTo takes a state, got %s", args[0].Kind())
	}
	next := fcl.GraphLabel(string(label))
	e.st.Graph = next
	e.st.Deltas.Append(delta.ModifyState{State: next})
	return value.Void{}, nil
}

// primNovationInit enters side-graph mode with a timed lock measured
// against block time.
func (e *Evaluator) primNovationInit(args []value.Value) (value.Value, error) {
	if err := arity(fcl.PrimNovationInit, args, 1); err != nil {
		return nil, err
	}
	d, ok := args[0].(value.TimeDelta)
	if !ok {
		return nil, failf(FailImpossible, "novationInit takes a timedelta, got %s", args[0].Kind())
	}
	deadline, err := value.AddInt64(e.ctx.Timestamp.Int64(), int64(d))
	if err != nil {
		return nil, fromValueErr(err)
	}
	e.st.Side = fcl.SideInit
	e.st.Lock = &fcl.SideLock{
		Start:    e.ctx.Timestamp.Int64(),
		Deadline: deadline,
	}
	return value.Void{}, nil
}

// transfer moves asset units through a pure world transition, emits the
// delta, and commits the new world view. A failed transfer aborts the
// call with an asset integrity failure and no delta.
func (e *Evaluator) transfer(op delta.AssetOp, asset, from, to types.Address, amount int64) (value.Value, error) {
	next, err := e.st.World.TransferAsset(asset, from, to, amount)
	if err != nil {
		return nil, failf(FailAssetIntegrity, "%s: %v", op, err)
	}
	e.st.World = next
	e.st.Deltas.Append(delta.ModifyAsset{
		Op:     op,
		Asset:  asset.Copy(),
		From:   from.Copy(),
		To:     to.Copy(),
		Amount: amount,
	})
	return value.Void{}, nil
}

func (e *Evaluator) primSign(args []value.Value) (value.Value, error) {
	if err := arity(fcl.PrimSign, args, 1); err != nil {
		return nil, err
	}
	msg, ok := args[0].(value.Msg)
	if !ok {
		return nil, failf(FailImpossible, "sign takes a msg, got %s", args[0].Kind())
	}
	if e.ctx.PrivKey == nil {
		return nil, failf(FailAccountIntegrity, "no signing key available")
	}
	sig := keys.Sign(e.ctx.PrivKey, msg)
	return value.Sig{R: sig.R, S: sig.S}, nil
}

// primVerify checks a signature against an account's public key. The
// message comes from the explicit message argument.
func (e *Evaluator) primVerify(args []value.Value) (value.Value, error) {
	if err := arity(fcl.PrimVerify, args, 3); err != nil {
		return nil, err
	}
	addr, err := addrArg(fcl.PrimVerify, args[0])
	if err != nil {
		return nil, err
	}
	sig, ok := args[1].(value.Sig)
	if !ok {
		return nil, failf(FailImpossible, "verify takes a sig, got %s", args[1].Kind())
	}
	msg, ok := args[2].(value.Msg)
	if !ok {
		return nil, failf(FailImpossible, "verify takes a msg, got %s", args[2].Kind())
	}
	acc, lookupErr := e.st.World.LookupAccount(addr)
	if lookupErr != nil {
		return nil, failf(FailAccountIntegrity, "account %s not found", addr)
	}
	pub, decodeErr := keys.DecodePubKey(acc.PublicKey)
	if decodeErr != nil {
		return nil, failf(FailAccountIntegrity, "account %s has malformed key", addr)
	}
	ok = keys.Verify(pub, &keys.Signature{R: sig.R, S: sig.S}, msg)
	return value.Bool(ok), nil
}

func (e *Evaluator) primContractValue(cArg, nameArg value.Value) (value.Value, error) {
	addr, err := addrArg(fcl.PrimContractValue, cArg)
	if err != nil {
		return nil, err
	}
	name, ok := nameArg.(value.Msg)
	if !ok {
		return nil, failf(FailImpossible, "contractValue takes a msg name, got %s", nameArg.Kind())
	}
	c, lookupErr := e.st.World.LookupContract(addr)
	if lookupErr != nil {
		return nil, failf(FailContractIntegrity, "contract %s not found", addr)
	}
	v, found := c.GlobalStorage.Get(string(name))
	if !found {
		return nil, failf(FailContractIntegrity, "contract %s has no variable %s", addr, string(name))
	}
	return v, nil
}

func (e *Evaluator) primIsBusinessDay(args []value.Value, c calendarID) (value.Value, error) {
	if len(args) != 1 {
		return nil, failf(FailImpossible, "business day check takes one datetime")
	}
	dt, ok := args[0].(value.DateTime)
	if !ok {
		return nil, failf(FailImpossible, "business day check takes a datetime, got %s", args[0].Kind())
	}
	return value.Bool(isBusinessDay(c, dt)), nil
}

func (e *Evaluator) primNextBusinessDay(args []value.Value, c calendarID) (value.Value, error) {
	if len(args) != 1 {
		return nil, failf(FailImpossible, "next business day takes one datetime")
	}
	dt, ok := args[0].(value.DateTime)
	if !ok {
		return nil, failf(FailImpossible, "next business day takes a datetime, got %s", args[0].Kind())
	}
	next, err := nextBusinessDay(c, dt)
	if err != nil {
		return nil, fromValueErr(err)
	}
	return next, nil
}

func (e *Evaluator) primFixedToFloat(args []value.Value, prec uint8) (value.Value, error) {
	if len(args) != 1 {
		return nil, failf(FailImpossible, "fixed conversion takes one argument")
	}
	f, ok := args[0].(value.Fixed)
	if !ok || f.Prec != prec {
		return nil, failf(FailImpossible, "expected fixed%d, got %s", prec, args[0])
	}
	return value.Float(f.Float()), nil
}

func (e *Evaluator) primFloatToFixed(args []value.Value, prec uint8) (value.Value, error) {
	if len(args) != 1 {
		return nil, failf(FailImpossible, "float conversion takes one argument")
	}
	f, ok := args[0].(value.Float)
	if !ok {
		return nil, failf(FailImpossible, "expected float, got %s", args[0].Kind())
	}
	fixed, err := value.FixedFromFloat(float64(f), prec)
	if err != nil {
		return nil, fromValueErr(err)
	}
	return fixed, nil
}

func arity(p fcl.PrimOp, args []value.Value, want int) error {
	if len(args) != want {
		return failf(FailImpossible, "%s takes %d args, got %d", p, want, len(args))
	}
	return nil
}

func intArg(p fcl.PrimOp, v value.Value) (int64, error) {
	i, ok := v.(value.Int)
	if !ok {
		return 0, failf(FailImpossible, "%s expects an int, got %s", p, v.Kind())
	}
	return int64(i), nil
}

func datetimeArg(p fcl.PrimOp, v value.Value) (value.DateTime, error) {
	dt, ok := v.(value.DateTime)
	if !ok {
		return 0, failf(FailImpossible, "%s expects a datetime, got %s", p, v.Kind())
	}
	return dt, nil
}

func assetArg(p fcl.PrimOp, v value.Value) (types.Address, error) {
	switch av := v.(type) {
	case value.Asset:
		return av.Address, nil
	case value.Addr:
		return av.Address, nil
	default:
		return nil, failf(FailImpossible, "%s expects an asset, got %s", p, v.Kind())
	}
}

// addrArg accepts any entity reference or bare address value.
func addrArg(p fcl.PrimOp, v value.Value) (types.Address, error) {
	switch av := v.(type) {
	case value.Account:
		return av.Address, nil
	case value.Asset:
		return av.Address, nil
	case value.Contract:
		return av.Address, nil
	case value.Addr:
		return av.Address, nil
	default:
		return nil, failf(FailImpossible, "%s expects an address, got %s", p, v.Kind())
	}
}
