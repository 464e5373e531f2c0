package keys

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JeremyLWright/uplink/types"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey()
	require.NoError(t, err)

	msg := []byte("transfer 500 USD")
	sig := Sign(priv, msg)
	require.True(t, Verify(priv.PubKey(), sig, msg))
	require.False(t, Verify(priv.PubKey(), sig, []byte("transfer 501 USD")))
}

func TestSignDeterministic(t *testing.T) {
	priv, err := GeneratePrivateKey()
	require.NoError(t, err)

	msg := []byte("same message")
	sig1 := Sign(priv, msg)
	sig2 := Sign(priv, msg)

	// RFC 6979 nonces: identical input must produce identical signatures.
	require.Equal(t, 0, sig1.R.Cmp(sig2.R))
	require.Equal(t, 0, sig1.S.Cmp(sig2.S))
}

func TestSignatureSerializeParse(t *testing.T) {
	priv, err := GeneratePrivateKey()
	require.NoError(t, err)

	sig := Sign(priv, []byte("payload"))
	der := sig.Serialize()

	parsed, err := ParseSignature(der)
	require.NoError(t, err)
	require.Equal(t, 0, sig.R.Cmp(parsed.R))
	require.Equal(t, 0, sig.S.Cmp(parsed.S))
}

func TestParseSignatureInvalid(t *testing.T) {
	_, err := ParseSignature([]byte{0xde, 0xad})
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestDecodePubKey(t *testing.T) {
	priv, err := GeneratePrivateKey()
	require.NoError(t, err)

	encoded := EncodePubKey(priv.PubKey())
	require.Len(t, encoded, 33)

	pub, err := DecodePubKey(encoded)
	require.NoError(t, err)
	require.True(t, pub.IsEqual(priv.PubKey()))

	_, err = DecodePubKey([]byte("not a key"))
	require.ErrorIs(t, err, ErrInvalidPubKey)
}

func TestAddressFromPubKey(t *testing.T) {
	priv, err := GeneratePrivateKey()
	require.NoError(t, err)

	addr := AddressFromPubKey(priv.PubKey())
	require.Len(t, addr.Bytes(), types.AddressSize)

	// Derivation is deterministic.
	require.True(t, addr.Equal(AddressFromPubKey(priv.PubKey())))
}

func TestVerifyNilSignature(t *testing.T) {
	priv, err := GeneratePrivateKey()
	require.NoError(t, err)
	require.False(t, Verify(priv.PubKey(), nil, []byte("msg")))
	require.False(t, Verify(priv.PubKey(), &Signature{}, []byte("msg")))
}

func TestPaillierRoundTrip(t *testing.T) {
	priv, err := GeneratePaillierKey(1024)
	require.NoError(t, err)

	m := big.NewInt(42)
	c, err := priv.Encrypt(m)
	require.NoError(t, err)

	got, err := priv.Decrypt(c)
	require.NoError(t, err)
	require.Equal(t, 0, m.Cmp(got))
}

func TestPaillierHomomorphicAdd(t *testing.T) {
	priv, err := GeneratePaillierKey(1024)
	require.NoError(t, err)
	pub := priv.Pub

	c1, err := pub.Encrypt(big.NewInt(30))
	require.NoError(t, err)
	c2, err := pub.Encrypt(big.NewInt(12))
	require.NoError(t, err)

	sum, err := pub.CipherAdd(c1, c2)
	require.NoError(t, err)
	got, err := priv.Decrypt(sum)
	require.NoError(t, err)
	require.Equal(t, int64(42), got.Int64())
}

func TestPaillierHomomorphicSub(t *testing.T) {
	priv, err := GeneratePaillierKey(1024)
	require.NoError(t, err)
	pub := priv.Pub

	c1, err := pub.Encrypt(big.NewInt(50))
	require.NoError(t, err)
	c2, err := pub.Encrypt(big.NewInt(8))
	require.NoError(t, err)

	diff, err := pub.CipherSub(c1, c2)
	require.NoError(t, err)
	got, err := priv.Decrypt(diff)
	require.NoError(t, err)
	require.Equal(t, int64(42), got.Int64())
}

func TestPaillierHomomorphicScalarMul(t *testing.T) {
	priv, err := GeneratePaillierKey(1024)
	require.NoError(t, err)
	pub := priv.Pub

	c, err := pub.Encrypt(big.NewInt(7))
	require.NoError(t, err)

	scaled, err := pub.CipherMul(c, big.NewInt(6))
	require.NoError(t, err)
	got, err := priv.Decrypt(scaled)
	require.NoError(t, err)
	require.Equal(t, int64(42), got.Int64())
}

func TestPaillierRejectsSmallKey(t *testing.T) {
	_, err := GeneratePaillierKey(256)
	require.ErrorIs(t, err, ErrPaillierKeySize)

	_, err = NewPaillierPub(big.NewInt(1 << 40))
	require.ErrorIs(t, err, ErrPaillierKeySize)
}

func TestPaillierRejectsBadCipher(t *testing.T) {
	priv, err := GeneratePaillierKey(1024)
	require.NoError(t, err)
	pub := priv.Pub

	c, err := pub.Encrypt(big.NewInt(1))
	require.NoError(t, err)

	_, err = pub.CipherAdd(c, big.NewInt(0))
	require.ErrorIs(t, err, ErrPaillierCipher)

	_, err = pub.CipherAdd(c, new(big.Int).Set(pub.NSquared))
	require.ErrorIs(t, err, ErrPaillierCipher)
}
