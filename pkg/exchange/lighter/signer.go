package lighter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// KeyManager holds the private key of one signing-key index and signs
// preimage digests with it. Keys live in memory only.
type KeyManager struct {
	scheme     Scheme
	privateKey []byte
	publicKey  []byte
}

// NewKeyManager validates privateKey against scheme and derives its public key.
func NewKeyManager(scheme Scheme, privateKey []byte) (*KeyManager, error) {
	if scheme == nil {
		return nil, errors.New("lighter: signature scheme required")
	}
	if len(privateKey) == 0 {
		return nil, &InvalidKeyError{Reason: "empty key"}
	}
	if isZero(privateKey) {
		return nil, &InvalidKeyError{Reason: "zero key"}
	}
	pub, err := scheme.PublicKey(privateKey)
	if err != nil {
		return nil, &InvalidKeyError{Reason: "rejected by " + scheme.Name(), Err: err}
	}
	return &KeyManager{
		scheme:     scheme,
		privateKey: bytes.Clone(privateKey),
		publicKey:  pub,
	}, nil
}

// NewKeyManagerFromHex accepts the key with or without a 0x prefix.
func NewKeyManagerFromHex(scheme Scheme, privateKeyHex string) (*KeyManager, error) {
	keyHex := strings.TrimSpace(privateKeyHex)
	if keyHex == "" {
		return nil, &InvalidKeyError{Reason: "empty key"}
	}
	if !strings.HasPrefix(keyHex, "0x") && !strings.HasPrefix(keyHex, "0X") {
		keyHex = "0x" + keyHex
	}
	raw, err := hexutil.Decode(strings.ToLower(keyHex))
	if err != nil {
		return nil, &InvalidKeyError{Reason: "decode hex", Err: err}
	}
	return NewKeyManager(scheme, raw)
}

// Sign signs a preimage digest. The result is always SignatureSize bytes.
func (k *KeyManager) Sign(digest []byte) ([]byte, error) {
	if k == nil || len(k.privateKey) == 0 {
		return nil, &InvalidKeyError{Reason: "signer not initialised"}
	}
	if len(digest) == 0 {
		return nil, errors.New("lighter: empty digest for signing")
	}
	sig, err := k.scheme.Sign(k.privateKey, digest)
	if err != nil {
		return nil, fmt.Errorf("lighter: sign digest: %w", err)
	}
	if want := k.scheme.SignatureSize(); len(sig) != want {
		return nil, fmt.Errorf("lighter: %s produced %d-byte signature, want %d", k.scheme.Name(), len(sig), want)
	}
	return sig, nil
}

// Verify checks sig against digest with this key's public half.
func (k *KeyManager) Verify(digest, sig []byte) (bool, error) {
	return k.scheme.Verify(k.publicKey, digest, sig)
}

// PublicKey returns a copy of the derived public key.
func (k *KeyManager) PublicKey() []byte { return bytes.Clone(k.publicKey) }

// PublicKeyHex returns the public key hex-encoded without prefix.
func (k *KeyManager) PublicKeyHex() string {
	return strings.TrimPrefix(hexutil.Encode(k.publicKey), "0x")
}

// Scheme returns the scheme the key belongs to.
func (k *KeyManager) Scheme() Scheme { return k.scheme }

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
