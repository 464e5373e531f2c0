package types

// BlockHeader contains the block metadata the core consumes. The header
// timestamp is the only time source available to contract evaluation.
type BlockHeader struct {
	// Index is the block height (0 is genesis).
	Index Height `cramberry:"1"`

	// Origin is the proposing validator's account address.
	Origin Address `cramberry:"2"`

	// Timestamp is the block time in microseconds since the epoch.
	Timestamp Timestamp `cramberry:"3"`

	// PrevHash is the hash of the previous block.
	PrevHash Hash `cramberry:"4"`
}

// BlockSignature is one validator's signature over the block hash.
type BlockSignature struct {
	// Signature is the DER-encoded deterministic ECDSA signature.
	Signature []byte `cramberry:"1"`

	// Signer is the signing validator's account address.
	Signer Address `cramberry:"2"`
}

// Block is an ordered batch of transactions with validator signatures.
type Block struct {
	// Header is the block metadata.
	Header BlockHeader

	// Transactions are applied in strict positional order.
	Transactions []*Transaction

	// Signatures are the validator signatures over SigHash.
	Signatures []BlockSignature
}

// SigHash returns the hash block signatures commit to: the canonical
// encoding of the header and transactions, signatures excluded.
func (b *Block) SigHash() Hash {
	return HashBytes(encodeBlockSigning(b))
}

// Hash returns the block hash over the full canonical encoding.
func (b *Block) Hash() Hash {
	return HashBytes(encodeBlock(b))
}

// ValidatorAddresses returns the addresses carried by the block signatures.
// The block's validator set is the permissioned membership recorded by the
// authority protocol; the signature signers are the subset that voted.
func (b *Block) ValidatorAddresses() []Address {
	out := make([]Address, 0, len(b.Signatures))
	for _, s := range b.Signatures {
		out = append(out, s.Signer)
	}
	return out
}
