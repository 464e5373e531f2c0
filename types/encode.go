package types

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/JeremyLWright/uplink/memory"
)

// Canonical encoding for hashing and signing.
//
// Every integer is written big-endian at fixed width, byte strings and
// strings are length-prefixed with a uint32 (strings as their raw UTF-8
// bytes), and map
// entries are written in lexicographic key order. The encoding is the
// consensus-relevant serialization: two nodes that disagree on a single
// byte here fork the chain.

func encodeTxSigning(tx *Transaction) []byte {
	buf := memory.SmallBufferPool.Get()
	defer memory.SmallBufferPool.Put(buf)

	writeTxBody(buf, tx)
	writeBytes(buf, nil) // zeroed signature slot
	return copyOut(buf)
}

func encodeTx(tx *Transaction) []byte {
	buf := memory.SmallBufferPool.Get()
	defer memory.SmallBufferPool.Put(buf)

	writeTxBody(buf, tx)
	writeBytes(buf, tx.Signature)
	return copyOut(buf)
}

func encodeBlockSigning(b *Block) []byte {
	buf := memory.MediumBufferPool.Get()
	defer memory.MediumBufferPool.Put(buf)

	writeBlockBody(buf, b)
	return copyOut(buf)
}

func encodeBlock(b *Block) []byte {
	buf := memory.MediumBufferPool.Get()
	defer memory.MediumBufferPool.Put(buf)

	writeBlockBody(buf, b)
	writeUint32(buf, uint32(len(b.Signatures)))
	for _, sig := range b.Signatures {
		writeBytes(buf, sig.Signature)
		writeBytes(buf, sig.Signer)
	}
	return copyOut(buf)
}

func writeBlockBody(buf *bytes.Buffer, b *Block) {
	writeInt64(buf, b.Header.Index.Int64())
	writeBytes(buf, b.Header.Origin)
	writeInt64(buf, b.Header.Timestamp.Int64())
	writeBytes(buf, b.Header.PrevHash)
	writeUint32(buf, uint32(len(b.Transactions)))
	for _, tx := range b.Transactions {
		writeTxBody(buf, tx)
		writeBytes(buf, tx.Signature)
	}
}

func writeTxBody(buf *bytes.Buffer, tx *Transaction) {
	buf.WriteByte(byte(tx.Header.Kind()))
	writeBytes(buf, tx.Origin)
	writeBytes(buf, tx.To)
	writeInt64(buf, tx.Timestamp.Int64())
	writeTxHeader(buf, tx.Header)
}

func writeTxHeader(buf *bytes.Buffer, h TxHeader) {
	switch h := h.(type) {
	case CreateAccount:
		writeBytes(buf, h.PublicKey)
		writeString(buf, h.Timezone)
		writeStringMap(buf, h.Metadata)
	case RevokeAccount:
		writeBytes(buf, h.Address)
	case CreateAsset:
		writeString(buf, h.Name)
		writeInt64(buf, h.Supply)
		writeBool(buf, h.HasReference)
		writeString(buf, h.Reference)
		buf.WriteByte(byte(h.Type.Kind))
		buf.WriteByte(h.Type.Precision)
	case TransferAsset:
		writeBytes(buf, h.Asset)
		writeBytes(buf, h.To)
		writeInt64(buf, h.Amount)
	case BindAsset:
		writeBytes(buf, h.Asset)
		writeBytes(buf, h.Contract)
		writeBytes(buf, h.Proof)
	case CreateContract:
		writeBytes(buf, h.Address)
		writeBytes(buf, h.Script)
	case CallContract:
		writeBytes(buf, h.Address)
		writeString(buf, h.Method)
		writeUint32(buf, uint32(len(h.Args)))
		for _, arg := range h.Args {
			writeBytes(buf, arg)
		}
	case SyncLocal:
		writeBytes(buf, h.Contract)
		writeBytes(buf, h.Op)
	}
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUint32(buf, uint32(len(b)))
	buf.Write(b)
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeStringMap(buf *bytes.Buffer, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeUint32(buf, uint32(len(keys)))
	for _, k := range keys {
		writeString(buf, k)
		writeString(buf, m[k])
	}
}

func copyOut(buf *bytes.Buffer) []byte {
	return append([]byte(nil), buf.Bytes()...)
}
