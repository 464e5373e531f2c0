package types

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrDecode is returned when canonical block or transaction bytes cannot
// be decoded.
var ErrDecode = errors.New("malformed canonical encoding")

// EncodeBlock returns the full canonical encoding of a block, signatures
// included. DecodeBlock inverts it.
func EncodeBlock(b *Block) []byte {
	return encodeBlock(b)
}

// EncodeTransaction returns the full canonical encoding of a transaction.
func EncodeTransaction(tx *Transaction) []byte {
	return encodeTx(tx)
}

// DecodeBlock parses a canonical block encoding.
func DecodeBlock(data []byte) (*Block, error) {
	r := &reader{data: data}

	b := &Block{}
	b.Header.Index = Height(r.int64())
	b.Header.Origin = Address(r.bytes())
	b.Header.Timestamp = Timestamp(r.int64())
	b.Header.PrevHash = Hash(r.bytes())

	txCount := r.uint32()
	if r.err == nil && uint64(txCount)*13 > uint64(len(data)) {
		return nil, fmt.Errorf("%w: implausible transaction count %d", ErrDecode, txCount)
	}
	for i := uint32(0); i < txCount && r.err == nil; i++ {
		tx := r.transaction()
		b.Transactions = append(b.Transactions, tx)
	}

	sigCount := r.uint32()
	if r.err == nil && uint64(sigCount)*8 > uint64(len(data)) {
		return nil, fmt.Errorf("%w: implausible signature count %d", ErrDecode, sigCount)
	}
	for i := uint32(0); i < sigCount && r.err == nil; i++ {
		sig := BlockSignature{Signature: r.bytes(), Signer: Address(r.bytes())}
		b.Signatures = append(b.Signatures, sig)
	}

	if r.err != nil {
		return nil, r.err
	}
	if len(r.data) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrDecode, len(r.data))
	}
	return b, nil
}

// DecodeTransaction parses a canonical transaction encoding.
func DecodeTransaction(data []byte) (*Transaction, error) {
	r := &reader{data: data}
	tx := r.transaction()
	if r.err != nil {
		return nil, r.err
	}
	if len(r.data) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrDecode, len(r.data))
	}
	return tx, nil
}

// reader is a cursor over canonical bytes with sticky error handling.
type reader struct {
	data []byte
	err  error
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: "+format, append([]any{ErrDecode}, args...)...)
	}
}

func (r *reader) byte() byte {
	if r.err != nil {
		return 0
	}
	if len(r.data) < 1 {
		r.fail("truncated byte")
		return 0
	}
	b := r.data[0]
	r.data = r.data[1:]
	return b
}

func (r *reader) int64() int64 {
	if r.err != nil {
		return 0
	}
	if len(r.data) < 8 {
		r.fail("truncated integer")
		return 0
	}
	v := int64(binary.BigEndian.Uint64(r.data[:8]))
	r.data = r.data[8:]
	return v
}

func (r *reader) uint32() uint32 {
	if r.err != nil {
		return 0
	}
	if len(r.data) < 4 {
		r.fail("truncated length")
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[:4])
	r.data = r.data[4:]
	return v
}

func (r *reader) bytes() []byte {
	n := r.uint32()
	if r.err != nil {
		return nil
	}
	if uint32(len(r.data)) < n {
		r.fail("truncated payload")
		return nil
	}
	out := append([]byte(nil), r.data[:n]...)
	r.data = r.data[n:]
	return out
}

func (r *reader) string() string {
	return string(r.bytes())
}

func (r *reader) bool() bool {
	switch r.byte() {
	case 0:
		return false
	case 1:
		return true
	default:
		r.fail("bad bool byte")
		return false
	}
}

func (r *reader) transaction() *Transaction {
	kind := TxKind(r.byte())
	tx := &Transaction{}
	tx.Origin = Address(r.bytes())
	tx.To = Address(r.bytes())
	tx.Timestamp = Timestamp(r.int64())
	tx.Header = r.header(kind)
	tx.Signature = r.bytes()
	if len(tx.To) == 0 {
		tx.To = nil
	}
	return tx
}

func (r *reader) header(kind TxKind) TxHeader {
	switch kind {
	case TxCreateAccount:
		h := CreateAccount{}
		h.PublicKey = r.bytes()
		h.Timezone = r.string()
		h.Metadata = r.stringMap()
		return h
	case TxRevokeAccount:
		return RevokeAccount{Address: Address(r.bytes())}
	case TxCreateAsset:
		h := CreateAsset{}
		h.Name = r.string()
		h.Supply = r.int64()
		h.HasReference = r.bool()
		h.Reference = r.string()
		h.Type.Kind = AssetKind(r.byte())
		h.Type.Precision = r.byte()
		return h
	case TxTransferAsset:
		h := TransferAsset{}
		h.Asset = Address(r.bytes())
		h.To = Address(r.bytes())
		h.Amount = r.int64()
		return h
	case TxBindAsset:
		h := BindAsset{}
		h.Asset = Address(r.bytes())
		h.Contract = Address(r.bytes())
		h.Proof = r.bytes()
		return h
	case TxCreateContract:
		h := CreateContract{}
		h.Address = Address(r.bytes())
		h.Script = r.bytes()
		return h
	case TxCallContract:
		h := CallContract{}
		h.Address = Address(r.bytes())
		h.Method = r.string()
		n := r.uint32()
		if r.err == nil && uint64(n)*4 > uint64(len(r.data))+4 {
			r.fail("implausible argument count %d", n)
			return h
		}
		for i := uint32(0); i < n && r.err == nil; i++ {
			h.Args = append(h.Args, r.bytes())
		}
		return h
	case TxSyncLocal:
		h := SyncLocal{}
		h.Contract = Address(r.bytes())
		h.Op = r.bytes()
		return h
	default:
		r.fail("unknown transaction kind %d", kind)
		return nil
	}
}

func (r *reader) stringMap() map[string]string {
	n := r.uint32()
	if r.err != nil {
		return nil
	}
	if uint64(n)*8 > uint64(len(r.data))+8 {
		r.fail("implausible map size %d", n)
		return nil
	}
	out := make(map[string]string, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		k := r.string()
		v := r.string()
		out[k] = v
	}
	return out
}
