package lighter

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPrivateKey  = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a741b52d7c5d5095e2f"
	otherPrivateKey = "0x5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a"
)

func mustKeys(t *testing.T, hexKey string) *KeyManager {
	t.Helper()
	keys, err := NewKeyManagerFromHex(Secp256k1Scheme{}, hexKey)
	require.NoError(t, err)
	return keys
}

func TestNewKeyManager(t *testing.T) {
	t.Run("valid with and without prefix", func(t *testing.T) {
		a := mustKeys(t, testPrivateKey)
		b := mustKeys(t, strings.TrimPrefix(testPrivateKey, "0x"))
		assert.Equal(t, a.PublicKey(), b.PublicKey())
		assert.Len(t, a.PublicKey(), PubKeyLength)
		assert.Len(t, a.PublicKeyHex(), 2*PubKeyLength)
		assert.Equal(t, "secp256k1", a.Scheme().Name())
	})

	t.Run("rejects bad keys", func(t *testing.T) {
		cases := map[string]string{
			"empty":     "",
			"blank":     "   ",
			"not hex":   "0xzz",
			"zero":      "0x" + strings.Repeat("00", 32),
			"too large": "0x" + strings.Repeat("ff", 32),
		}
		for name, key := range cases {
			_, err := NewKeyManagerFromHex(Secp256k1Scheme{}, key)
			var keyErr *InvalidKeyError
			assert.ErrorAs(t, err, &keyErr, name)
			assert.True(t, IsBuildError(err), name)
		}
	})

	t.Run("nil scheme", func(t *testing.T) {
		_, err := NewKeyManager(nil, []byte{1})
		assert.Error(t, err)
	})

	t.Run("caller buffer is copied", func(t *testing.T) {
		raw, err := crypto.HexToECDSA(strings.TrimPrefix(testPrivateKey, "0x"))
		require.NoError(t, err)
		buf := crypto.FromECDSA(raw)
		keys, err := NewKeyManager(Secp256k1Scheme{}, buf)
		require.NoError(t, err)
		for i := range buf {
			buf[i] = 0
		}
		digest := crypto.Keccak256([]byte("x"))
		sig, err := keys.Sign(digest)
		require.NoError(t, err)
		ok, err := keys.Verify(digest, sig)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestKeyManager_SignDeterministic(t *testing.T) {
	keys := mustKeys(t, testPrivateKey)
	digest := crypto.Keccak256([]byte("preimage"))

	first, err := keys.Sign(digest)
	require.NoError(t, err)
	second, err := keys.Sign(digest)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, keys.Scheme().SignatureSize())

	ok, err := keys.Verify(digest, first)
	require.NoError(t, err)
	assert.True(t, ok)

	other := mustKeys(t, otherPrivateKey)
	ok, err = other.Verify(digest, first)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = keys.Sign(nil)
	assert.Error(t, err)
}

type shortSigScheme struct{ Secp256k1Scheme }

func (shortSigScheme) Name() string { return "short" }

func (shortSigScheme) Sign(privateKey, digest []byte) ([]byte, error) { return []byte{1, 2, 3}, nil }

type failingScheme struct{ Secp256k1Scheme }

func (failingScheme) Sign(privateKey, digest []byte) ([]byte, error) {
	return nil, errors.New("boom")
}

func TestKeyManager_SignChecksScheme(t *testing.T) {
	raw := crypto.FromECDSA(mustECDSA(t, testPrivateKey))

	short, err := NewKeyManager(shortSigScheme{}, raw)
	require.NoError(t, err)
	_, err = short.Sign(make([]byte, 32))
	assert.ErrorContains(t, err, "3-byte signature")

	failing, err := NewKeyManager(failingScheme{}, raw)
	require.NoError(t, err)
	_, err = failing.Sign(make([]byte, 32))
	assert.ErrorContains(t, err, "boom")
}

func TestSecp256k1Scheme_packedPublicKey(t *testing.T) {
	keys := mustKeys(t, testPrivateKey)
	packed := keys.PublicKey()
	require.Len(t, packed, PubKeyLength)

	limbs, err := EncodeBytes(packed, PubKeyLength, 8)
	require.NoError(t, err, "every limb is canonical")
	assert.Len(t, limbs, 5)

	compressed, err := unpackPubKey(packed)
	require.NoError(t, err)
	assert.Equal(t, crypto.CompressPubkey(&mustECDSA(t, testPrivateKey).PublicKey), compressed)

	bad := append([]byte(nil), packed...)
	bad[7] = 1
	_, err = unpackPubKey(bad)
	assert.Error(t, err)

	digest := crypto.Keccak256([]byte("y"))
	sig, err := keys.Sign(digest)
	require.NoError(t, err)
	ok, err := Secp256k1Scheme{}.Verify(compressed, digest, sig)
	require.NoError(t, err)
	assert.True(t, ok, "unpacked keys verify too")
}

func TestSchemeRegistry(t *testing.T) {
	s, err := LookupScheme(" SECP256K1 ")
	require.NoError(t, err)
	assert.Equal(t, "secp256k1", s.Name())

	_, err = LookupScheme("poseidon2")
	assert.ErrorContains(t, err, "secp256k1")

	RegisterScheme(shortSigScheme{})
	s, err = LookupScheme("short")
	require.NoError(t, err)
	assert.Equal(t, "short", s.Name())
}

func TestSecp256k1Scheme_Hash(t *testing.T) {
	_, err := Secp256k1Scheme{}.Hash(nil)
	assert.Error(t, err)

	a, err := Secp256k1Scheme{}.Hash([]Element{1, 2, 3})
	require.NoError(t, err)
	b, err := Secp256k1Scheme{}.Hash([]Element{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}
