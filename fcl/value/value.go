// Package value defines the tagged runtime values of the FCL script
// runtime and their canonical byte encoding.
//
// The canonical encoding is consensus-relevant: hashes of values feed
// signatures and deltas that every validator must reproduce exactly. The
// encoding is one tag byte (the Kind) followed by a layout per variant;
// integers are big-endian at fixed width, floats are IEEE-754 bits, and
// text, addresses, state labels and ciphertexts are raw bytes behind a
// uint32 big-endian length prefix.
package value

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/JeremyLWright/uplink/types"
)

// Value errors.
var (
	// ErrCannotHash is returned when hashing a signature or undefined
	// value.
	ErrCannotHash = errors.New("value cannot be hashed")

	// ErrOverflow is returned when arithmetic exceeds the representable
	// maximum.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrUnderflow is returned when arithmetic exceeds the representable
	// minimum.
	ErrUnderflow = errors.New("arithmetic underflow")

	// ErrDivideByZero is returned on division by zero.
	ErrDivideByZero = errors.New("divide by zero")

	// ErrHugeString is returned when a message grows past the size limit.
	ErrHugeString = errors.New("message too large")

	// ErrBadPrecision is returned for fixed-point precision outside 1..6.
	ErrBadPrecision = errors.New("fixed-point precision out of range")

	// ErrDecode is returned when canonical bytes cannot be decoded.
	ErrDecode = errors.New("malformed value encoding")
)

// Kind tags a runtime value variant. The numeric tag is the first byte of
// the canonical encoding and must never be renumbered.
type Kind uint8

// Value kinds.
const (
	KindInt Kind = iota
	KindFloat
	KindFixed
	KindBool
	KindMsg
	KindAccount
	KindAsset
	KindContract
	KindAddress
	KindSig
	KindDateTime
	KindTimeDelta
	KindState
	KindCrypto
	KindVoid
	KindUndefined
)

// String returns a human-readable description of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindFixed:
		return "fixed"
	case KindBool:
		return "bool"
	case KindMsg:
		return "msg"
	case KindAccount:
		return "account"
	case KindAsset:
		return "asset"
	case KindContract:
		return "contract"
	case KindAddress:
		return "address"
	case KindSig:
		return "sig"
	case KindDateTime:
		return "datetime"
	case KindTimeDelta:
		return "timedelta"
	case KindState:
		return "state"
	case KindCrypto:
		return "crypto"
	case KindVoid:
		return "void"
	case KindUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Value is the closed set of FCL runtime values.
type Value interface {
	// Kind returns the variant tag.
	Kind() Kind

	// String renders the value for logs and diagnostics.
	String() string

	isValue()
}

// Int is a signed 64-bit integer value.
type Int int64

// Float is an IEEE-754 double value.
type Float float64

// Fixed is a fixed-point decimal with precision 1..6: Scaled counts units
// of 10^-Prec.
type Fixed struct {
	Prec   uint8
	Scaled int64
}

// Bool is a boolean value.
type Bool bool

// Msg is an immutable byte string value.
type Msg []byte

// Account references an account by address.
type Account struct{ Address types.Address }

// Asset references an asset by address.
type Asset struct{ Address types.Address }

// Contract references a contract by address.
type Contract struct{ Address types.Address }

// Addr is a bare address value.
type Addr struct{ Address types.Address }

// Sig is an ECDSA signature value. Signatures cannot be hashed.
type Sig struct {
	R *big.Int
	S *big.Int
}

// DateTime is a point in time in microseconds since the Unix epoch.
type DateTime int64

// TimeDelta is a signed span of time in microseconds.
type TimeDelta int64

// State is a contract graph label value. The labels "initial" and
// "terminal" name the distinguished graph positions.
type State string

// Crypto is a homomorphic ciphertext carried as a bounded integer.
type Crypto struct{ C *SafeInteger }

// Void is the unit value returned by effectful expressions.
type Void struct{}

// Undefined is the error placeholder value. Undefined cannot be hashed.
type Undefined struct{}

func (Int) Kind() Kind       { return KindInt }
func (Float) Kind() Kind     { return KindFloat }
func (Fixed) Kind() Kind     { return KindFixed }
func (Bool) Kind() Kind      { return KindBool }
func (Msg) Kind() Kind       { return KindMsg }
func (Account) Kind() Kind   { return KindAccount }
func (Asset) Kind() Kind     { return KindAsset }
func (Contract) Kind() Kind  { return KindContract }
func (Addr) Kind() Kind      { return KindAddress }
func (Sig) Kind() Kind       { return KindSig }
func (DateTime) Kind() Kind  { return KindDateTime }
func (TimeDelta) Kind() Kind { return KindTimeDelta }
func (State) Kind() Kind     { return KindState }
func (Crypto) Kind() Kind    { return KindCrypto }
func (Void) Kind() Kind      { return KindVoid }
func (Undefined) Kind() Kind { return KindUndefined }

func (Int) isValue()       {}
func (Float) isValue()     {}
func (Fixed) isValue()     {}
func (Bool) isValue()      {}
func (Msg) isValue()       {}
func (Account) isValue()   {}
func (Asset) isValue()     {}
func (Contract) isValue()  {}
func (Addr) isValue()      {}
func (Sig) isValue()       {}
func (DateTime) isValue()  {}
func (TimeDelta) isValue() {}
func (State) isValue()     {}
func (Crypto) isValue()    {}
func (Void) isValue()      {}
func (Undefined) isValue() {}

func (v Int) String() string   { return fmt.Sprintf("%d", int64(v)) }
func (v Float) String() string { return fmt.Sprintf("%g", float64(v)) }
func (v Fixed) String() string {
	return decimal.New(v.Scaled, -int32(v.Prec)).StringFixed(int32(v.Prec))
}
func (v Bool) String() string {
	if v {
		return "true"
	}
	return "false"
}
func (v Msg) String() string       { return fmt.Sprintf("%q", string(v)) }
func (v Account) String() string   { return "account:" + v.Address.String() }
func (v Asset) String() string     { return "asset:" + v.Address.String() }
func (v Contract) String() string  { return "contract:" + v.Address.String() }
func (v Addr) String() string      { return "address:" + v.Address.String() }
func (v Sig) String() string       { return "sig" }
func (v DateTime) String() string  { return fmt.Sprintf("datetime:%d", int64(v)) }
func (v TimeDelta) String() string { return fmt.Sprintf("timedelta:%d", int64(v)) }
func (v State) String() string     { return "state:" + string(v) }
func (v Crypto) String() string    { return "crypto" }
func (Void) String() string        { return "void" }
func (Undefined) String() string   { return "undefined" }

// Graph label constants for the distinguished graph positions.
const (
	StateInitial  State = "initial"
	StateTerminal State = "terminal"
)

// Equal reports deep equality of two values. Reference kinds compare by
// address; crypto values compare ciphertexts.
func Equal(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Int:
		return av == b.(Int)
	case Float:
		return av == b.(Float)
	case Fixed:
		bv := b.(Fixed)
		return av.Prec == bv.Prec && av.Scaled == bv.Scaled
	case Bool:
		return av == b.(Bool)
	case Msg:
		return string(av) == string(b.(Msg))
	case Account:
		return av.Address.Equal(b.(Account).Address)
	case Asset:
		return av.Address.Equal(b.(Asset).Address)
	case Contract:
		return av.Address.Equal(b.(Contract).Address)
	case Addr:
		return av.Address.Equal(b.(Addr).Address)
	case Sig:
		bv := b.(Sig)
		return bigEqual(av.R, bv.R) && bigEqual(av.S, bv.S)
	case DateTime:
		return av == b.(DateTime)
	case TimeDelta:
		return av == b.(TimeDelta)
	case State:
		return av == b.(State)
	case Crypto:
		return av.C.Equal(b.(Crypto).C)
	case Void, Undefined:
		return true
	default:
		return false
	}
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}
