package eval

import (
	"bytes"
	"math/big"

	"github.com/JeremyLWright/uplink/fcl"
	"github.com/JeremyLWright/uplink/fcl/value"
	"github.com/JeremyLWright/uplink/types"
)

// applyBinOp dispatches a binary operator on the operand kind pair. The
// typechecker admits only the combinations handled here; anything else is
// an impossible branch.
func (e *Evaluator) applyBinOp(op fcl.BinOp, a, b value.Value) (value.Value, error) {
	switch av := a.(type) {
	case value.Int:
		switch bv := b.(type) {
		case value.Int:
			return intBinOp(op, av, bv)
		case value.Crypto:
			if op == fcl.OpMul {
				return e.cipherScale(bv, int64(av))
			}
		case value.TimeDelta:
			if op == fcl.OpMul {
				return scaleTimeDelta(bv, int64(av))
			}
		}

	case value.Float:
		if bv, ok := b.(value.Float); ok {
			return floatBinOp(op, av, bv)
		}

	case value.Fixed:
		if bv, ok := b.(value.Fixed); ok {
			if av.Prec != bv.Prec {
				return nil, failf(FailImpossible, "fixed precision mismatch %d vs %d", av.Prec, bv.Prec)
			}
			return fixedBinOp(op, av, bv)
		}

	case value.Bool:
		if bv, ok := b.(value.Bool); ok {
			return boolBinOp(op, av, bv)
		}

	case value.Msg:
		if bv, ok := b.(value.Msg); ok {
			return msgBinOp(op, av, bv)
		}

	case value.Account:
		if bv, ok := b.(value.Account); ok {
			return refBinOp(op, av.Address, bv.Address)
		}

	case value.Asset:
		if bv, ok := b.(value.Asset); ok {
			return refBinOp(op, av.Address, bv.Address)
		}

	case value.Contract:
		if bv, ok := b.(value.Contract); ok {
			return refBinOp(op, av.Address, bv.Address)
		}

	case value.Addr:
		if bv, ok := b.(value.Addr); ok {
			return refBinOp(op, av.Address, bv.Address)
		}

	case value.DateTime:
		switch bv := b.(type) {
		case value.DateTime:
			return datetimeBinOp(op, av, bv)
		case value.TimeDelta:
			switch op {
			case fcl.OpAdd:
				n, err := value.AddInt64(int64(av), int64(bv))
				if err != nil {
					return nil, fromValueErr(err)
				}
				return value.DateTime(n), nil
			case fcl.OpSub:
				n, err := value.SubInt64(int64(av), int64(bv))
				if err != nil {
					return nil, fromValueErr(err)
				}
				return value.DateTime(n), nil
			}
		}

	case value.TimeDelta:
		switch bv := b.(type) {
		case value.TimeDelta:
			switch op {
			case fcl.OpAdd:
				n, err := value.AddInt64(int64(av), int64(bv))
				if err != nil {
					return nil, fromValueErr(err)
				}
				return value.TimeDelta(n), nil
			case fcl.OpSub:
				n, err := value.SubInt64(int64(av), int64(bv))
				if err != nil {
					return nil, fromValueErr(err)
				}
				return value.TimeDelta(n), nil
			}
		case value.Int:
			if op == fcl.OpMul {
				return scaleTimeDelta(av, int64(bv))
			}
		}

	case value.Crypto:
		switch bv := b.(type) {
		case value.Crypto:
			return e.cipherBinOp(op, av, bv)
		case value.Int:
			if op == fcl.OpMul {
				return e.cipherScale(av, int64(bv))
			}
		}
	}

	return nil, failf(FailImpossible, "operator %s undefined on %s and %s", op, a.Kind(), b.Kind())
}

func intBinOp(op fcl.BinOp, a, b value.Int) (value.Value, error) {
	switch op {
	case fcl.OpAdd:
		n, err := value.AddInt64(int64(a), int64(b))
		if err != nil {
			return nil, fromValueErr(err)
		}
		return value.Int(n), nil
	case fcl.OpSub:
		n, err := value.SubInt64(int64(a), int64(b))
		if err != nil {
			return nil, fromValueErr(err)
		}
		return value.Int(n), nil
	case fcl.OpMul:
		n, err := value.MulInt64(int64(a), int64(b))
		if err != nil {
			return nil, fromValueErr(err)
		}
		return value.Int(n), nil
	case fcl.OpDiv:
		n, err := value.DivInt64(int64(a), int64(b))
		if err != nil {
			return nil, fromValueErr(err)
		}
		return value.Int(n), nil
	case fcl.OpEq:
		return value.Bool(a == b), nil
	case fcl.OpNeq:
		return value.Bool(a != b), nil
	case fcl.OpLt:
		return value.Bool(a < b), nil
	case fcl.OpLte:
		return value.Bool(a <= b), nil
	case fcl.OpGt:
		return value.Bool(a > b), nil
	case fcl.OpGte:
		return value.Bool(a >= b), nil
	default:
		return nil, failf(FailImpossible, "operator %s undefined on int", op)
	}
}

func floatBinOp(op fcl.BinOp, a, b value.Float) (value.Value, error) {
	switch op {
	case fcl.OpAdd:
		return value.Float(a + b), nil
	case fcl.OpSub:
		return value.Float(a - b), nil
	case fcl.OpMul:
		return value.Float(a * b), nil
	case fcl.OpDiv:
		if b == 0 {
			return nil, failf(FailDivideByZero, "float division by zero")
		}
		return value.Float(a / b), nil
	case fcl.OpEq:
		return value.Bool(a == b), nil
	case fcl.OpNeq:
		return value.Bool(a != b), nil
	case fcl.OpLt:
		return value.Bool(a < b), nil
	case fcl.OpLte:
		return value.Bool(a <= b), nil
	case fcl.OpGt:
		return value.Bool(a > b), nil
	case fcl.OpGte:
		return value.Bool(a >= b), nil
	default:
		return nil, failf(FailImpossible, "operator %s undefined on float", op)
	}
}

func fixedBinOp(op fcl.BinOp, a, b value.Fixed) (value.Value, error) {
	switch op {
	case fcl.OpAdd:
		f, err := value.AddFixed(a, b)
		if err != nil {
			return nil, fromValueErr(err)
		}
		return f, nil
	case fcl.OpSub:
		f, err := value.SubFixed(a, b)
		if err != nil {
			return nil, fromValueErr(err)
		}
		return f, nil
	case fcl.OpMul:
		f, err := value.MulFixed(a, b)
		if err != nil {
			return nil, fromValueErr(err)
		}
		return f, nil
	case fcl.OpDiv:
		f, err := value.DivFixed(a, b)
		if err != nil {
			return nil, fromValueErr(err)
		}
		return f, nil
	case fcl.OpEq:
		return value.Bool(a.Cmp(b) == 0), nil
	case fcl.OpNeq:
		return value.Bool(a.Cmp(b) != 0), nil
	case fcl.OpLt:
		return value.Bool(a.Cmp(b) < 0), nil
	case fcl.OpLte:
		return value.Bool(a.Cmp(b) <= 0), nil
	case fcl.OpGt:
		return value.Bool(a.Cmp(b) > 0), nil
	case fcl.OpGte:
		return value.Bool(a.Cmp(b) >= 0), nil
	default:
		return nil, failf(FailImpossible, "operator %s undefined on fixed", op)
	}
}

func boolBinOp(op fcl.BinOp, a, b value.Bool) (value.Value, error) {
	switch op {
	case fcl.OpAnd:
		return value.Bool(a && b), nil
	case fcl.OpOr:
		return value.Bool(a || b), nil
	case fcl.OpEq:
		return value.Bool(a == b), nil
	case fcl.OpNeq:
		return value.Bool(a != b), nil
	default:
		return nil, failf(FailImpossible, "operator %s undefined on bool", op)
	}
}

func msgBinOp(op fcl.BinOp, a, b value.Msg) (value.Value, error) {
	switch op {
	case fcl.OpAdd:
		if len(a)+len(b) > types.MaxMsgSize {
			return nil, failf(FailHugeString, "concatenation of %d bytes", len(a)+len(b))
		}
		out := make([]byte, 0, len(a)+len(b))
		out = append(out, a...)
		out = append(out, b...)
		return value.Msg(out), nil
	case fcl.OpEq:
		return value.Bool(bytes.Equal(a, b)), nil
	case fcl.OpNeq:
		return value.Bool(!bytes.Equal(a, b)), nil
	case fcl.OpLt:
		return value.Bool(bytes.Compare(a, b) < 0), nil
	case fcl.OpLte:
		return value.Bool(bytes.Compare(a, b) <= 0), nil
	case fcl.OpGt:
		return value.Bool(bytes.Compare(a, b) > 0), nil
	case fcl.OpGte:
		return value.Bool(bytes.Compare(a, b) >= 0), nil
	default:
		return nil, failf(FailImpossible, "operator %s undefined on msg", op)
	}
}

// refBinOp is reference equality on entity addresses.
func refBinOp(op fcl.BinOp, a, b types.Address) (value.Value, error) {
	switch op {
	case fcl.OpEq:
		return value.Bool(a.Equal(b)), nil
	case fcl.OpNeq:
		return value.Bool(!a.Equal(b)), nil
	default:
		return nil, failf(FailImpossible, "operator %s undefined on references", op)
	}
}

func datetimeBinOp(op fcl.BinOp, a, b value.DateTime) (value.Value, error) {
	switch op {
	case fcl.OpEq:
		return value.Bool(a == b), nil
	case fcl.OpNeq:
		return value.Bool(a != b), nil
	case fcl.OpLt:
		return value.Bool(a < b), nil
	case fcl.OpLte:
		return value.Bool(a <= b), nil
	case fcl.OpGt:
		return value.Bool(a > b), nil
	case fcl.OpGte:
		return value.Bool(a >= b), nil
	default:
		return nil, failf(FailImpossible, "operator %s undefined on datetime", op)
	}
}

func scaleTimeDelta(d value.TimeDelta, k int64) (value.Value, error) {
	n, err := value.MulInt64(int64(d), k)
	if err != nil {
		return nil, fromValueErr(err)
	}
	return value.TimeDelta(n), nil
}

// cipherBinOp runs homomorphic addition and subtraction on ciphertexts
// under the contract's storage key.
func (e *Evaluator) cipherBinOp(op fcl.BinOp, a, b value.Crypto) (value.Value, error) {
	if e.ctx.StorageKey == nil {
		return nil, failf(FailHomomorphic, "contract has no storage key")
	}
	var (
		out *big.Int
		err error
	)
	switch op {
	case fcl.OpAdd:
		out, err = e.ctx.StorageKey.CipherAdd(a.C.Big(), b.C.Big())
	case fcl.OpSub:
		out, err = e.ctx.StorageKey.CipherSub(a.C.Big(), b.C.Big())
	default:
		return nil, failf(FailImpossible, "operator %s undefined on crypto", op)
	}
	if err != nil {
		return nil, failf(FailHomomorphic, "%v", err)
	}
	return cryptoFromBig(out)
}

// cipherScale multiplies a ciphertext's plaintext by an integer scalar.
func (e *Evaluator) cipherScale(c value.Crypto, k int64) (value.Value, error) {
	if e.ctx.StorageKey == nil {
		return nil, failf(FailHomomorphic, "contract has no storage key")
	}
	out, err := e.ctx.StorageKey.CipherMul(c.C.Big(), big.NewInt(k))
	if err != nil {
		return nil, failf(FailHomomorphic, "%v", err)
	}
	return cryptoFromBig(out)
}

func cryptoFromBig(out *big.Int) (value.Value, error) {
	si, err := value.NewSafeInteger(out)
	if err != nil {
		return nil, failf(FailHugeInteger, "ciphertext %d bits", out.BitLen())
	}
	return value.Crypto{C: si}, nil
}
