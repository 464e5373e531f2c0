package value

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/JeremyLWright/uplink/memory"
	"github.com/JeremyLWright/uplink/types"
)

// Encode returns the canonical byte encoding of a value: one Kind tag byte
// followed by the variant payload. Every variant is encodable; hashing
// additionally rejects signatures and undefined per the hashing rules.
func Encode(v Value) []byte {
	buf := memory.SmallBufferPool.Get()
	defer memory.SmallBufferPool.Put(buf)

	encodeTo(buf, v)
	return append([]byte(nil), buf.Bytes()...)
}

// Hash returns the SHA-256 hash of the canonical encoding. Signatures and
// undefined values cannot be hashed.
func Hash(v Value) (types.Hash, error) {
	switch v.Kind() {
	case KindSig, KindUndefined:
		return nil, fmt.Errorf("%w: %s", ErrCannotHash, v.Kind())
	}
	return types.HashBytes(Encode(v)), nil
}

func encodeTo(buf *bytes.Buffer, v Value) {
	buf.WriteByte(byte(v.Kind()))
	switch v := v.(type) {
	case Int:
		putInt64(buf, int64(v))
	case Float:
		putUint64(buf, math.Float64bits(float64(v)))
	case Fixed:
		buf.WriteByte(v.Prec)
		putInt64(buf, v.Scaled)
	case Bool:
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case Msg:
		putBytes(buf, v)
	case Account:
		putBytes(buf, v.Address)
	case Asset:
		putBytes(buf, v.Address)
	case Contract:
		putBytes(buf, v.Address)
	case Addr:
		putBytes(buf, v.Address)
	case Sig:
		putBytes(buf, bigBytes(v.R))
		putBytes(buf, bigBytes(v.S))
	case DateTime:
		putInt64(buf, int64(v))
	case TimeDelta:
		putInt64(buf, int64(v))
	case State:
		putBytes(buf, []byte(v))
	case Crypto:
		putBytes(buf, v.C.Bytes())
	case Void, Undefined:
		// tag only
	}
}

// Decode parses a canonical encoding back into a value. The entire input
// must be consumed.
func Decode(data []byte) (Value, error) {
	v, rest, err := decodeFrom(data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrDecode, len(rest))
	}
	return v, nil
}

func decodeFrom(data []byte) (Value, []byte, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	kind := Kind(data[0])
	rest := data[1:]
	switch kind {
	case KindInt:
		i, rest, err := takeInt64(rest)
		return Int(i), rest, err
	case KindFloat:
		u, rest, err := takeUint64(rest)
		return Float(math.Float64frombits(u)), rest, err
	case KindFixed:
		if len(rest) < 1 {
			return nil, nil, fmt.Errorf("%w: truncated fixed", ErrDecode)
		}
		prec := rest[0]
		if !ValidPrec(prec) {
			return nil, nil, fmt.Errorf("%w: %d", ErrBadPrecision, prec)
		}
		scaled, rest, err := takeInt64(rest[1:])
		return Fixed{Prec: prec, Scaled: scaled}, rest, err
	case KindBool:
		if len(rest) < 1 {
			return nil, nil, fmt.Errorf("%w: truncated bool", ErrDecode)
		}
		switch rest[0] {
		case 0:
			return Bool(false), rest[1:], nil
		case 1:
			return Bool(true), rest[1:], nil
		default:
			return nil, nil, fmt.Errorf("%w: bad bool byte", ErrDecode)
		}
	case KindMsg:
		b, rest, err := takeBytes(rest)
		return Msg(b), rest, err
	case KindAccount:
		b, rest, err := takeBytes(rest)
		return Account{Address: types.Address(b)}, rest, err
	case KindAsset:
		b, rest, err := takeBytes(rest)
		return Asset{Address: types.Address(b)}, rest, err
	case KindContract:
		b, rest, err := takeBytes(rest)
		return Contract{Address: types.Address(b)}, rest, err
	case KindAddress:
		b, rest, err := takeBytes(rest)
		return Addr{Address: types.Address(b)}, rest, err
	case KindSig:
		r, rest, err := takeBytes(rest)
		if err != nil {
			return nil, nil, err
		}
		s, rest, err := takeBytes(rest)
		if err != nil {
			return nil, nil, err
		}
		return Sig{R: new(big.Int).SetBytes(r), S: new(big.Int).SetBytes(s)}, rest, nil
	case KindDateTime:
		i, rest, err := takeInt64(rest)
		return DateTime(i), rest, err
	case KindTimeDelta:
		i, rest, err := takeInt64(rest)
		return TimeDelta(i), rest, err
	case KindState:
		b, rest, err := takeBytes(rest)
		return State(b), rest, err
	case KindCrypto:
		b, rest, err := takeBytes(rest)
		if err != nil {
			return nil, nil, err
		}
		si, err := SafeIntegerFromBytes(b)
		if err != nil {
			return nil, nil, err
		}
		return Crypto{C: si}, rest, nil
	case KindVoid:
		return Void{}, rest, nil
	case KindUndefined:
		return Undefined{}, rest, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown kind %d", ErrDecode, kind)
	}
}

func putInt64(buf *bytes.Buffer, v int64) {
	putUint64(buf, uint64(v))
}

func putUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func putBytes(buf *bytes.Buffer, b []byte) {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	buf.Write(l[:])
	buf.Write(b)
}

func bigBytes(i *big.Int) []byte {
	if i == nil {
		return nil
	}
	return i.Bytes()
}

func takeInt64(data []byte) (int64, []byte, error) {
	u, rest, err := takeUint64(data)
	return int64(u), rest, err
}

func takeUint64(data []byte) (uint64, []byte, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("%w: truncated integer", ErrDecode)
	}
	return binary.BigEndian.Uint64(data[:8]), data[8:], nil
}

func takeBytes(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("%w: truncated length", ErrDecode)
	}
	n := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint32(len(data)) < n {
		return nil, nil, fmt.Errorf("%w: truncated payload", ErrDecode)
	}
	return append([]byte(nil), data[:n]...), data[n:], nil
}
