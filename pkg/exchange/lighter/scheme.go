package lighter

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
)

// Scheme is the hash and signature primitive the pipeline calls. The
// exchange's own scheme (Poseidon2 over Goldilocks with Schnorr signatures on
// ECgFp5) is supplied by the caller; this package only depends on the
// contract:
//
//   - Hash is a pure function of the element sequence.
//   - Sign must be deterministic for a given (key, digest).
//   - Verify succeeds for every signature Sign produced.
//   - PublicKey rejects keys outside the scheme's scalar range.
type Scheme interface {
	Name() string
	Hash(elems []Element) ([]byte, error)
	Sign(privateKey, digest []byte) ([]byte, error)
	Verify(publicKey, digest, sig []byte) (bool, error)
	PublicKey(privateKey []byte) ([]byte, error)
	SignatureSize() int
}

var (
	schemeRegistry   = make(map[string]Scheme)
	schemeRegistryMu sync.RWMutex
)

// RegisterScheme makes a Scheme available to configuration-driven clients.
func RegisterScheme(s Scheme) {
	schemeRegistryMu.Lock()
	defer schemeRegistryMu.Unlock()
	schemeRegistry[strings.ToLower(strings.TrimSpace(s.Name()))] = s
}

// LookupScheme returns a registered scheme by name.
func LookupScheme(name string) (Scheme, error) {
	schemeRegistryMu.RLock()
	defer schemeRegistryMu.RUnlock()
	s, ok := schemeRegistry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		known := make([]string, 0, len(schemeRegistry))
		for k := range schemeRegistry {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("lighter: unknown signature scheme %q (registered: %s)", name, strings.Join(known, ", "))
	}
	return s, nil
}

func init() {
	RegisterScheme(Secp256k1Scheme{})
}

// Secp256k1Scheme hashes the little-endian element bytes with Keccak-256 and
// signs with secp256k1 (RFC 6979 deterministic nonces). It is meant for local
// development and the paper exchange; the production exchange only accepts
// its own scheme.
type Secp256k1Scheme struct{}

func (Secp256k1Scheme) Name() string { return "secp256k1" }

func (Secp256k1Scheme) SignatureSize() int { return crypto.SignatureLength }

func (Secp256k1Scheme) Hash(elems []Element) ([]byte, error) {
	if len(elems) == 0 {
		return nil, fmt.Errorf("lighter: hash of empty preimage")
	}
	return crypto.Keccak256(ElementsToBytes(elems)), nil
}

func (Secp256k1Scheme) Sign(privateKey, digest []byte) ([]byte, error) {
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, err
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("lighter: expected 32-byte digest, got %d bytes", len(digest))
	}
	return crypto.Sign(digest, key)
}

func (Secp256k1Scheme) Verify(publicKey, digest, sig []byte) (bool, error) {
	if len(sig) != crypto.SignatureLength {
		return false, fmt.Errorf("lighter: expected %d-byte signature, got %d bytes", crypto.SignatureLength, len(sig))
	}
	if len(publicKey) == PubKeyLength {
		var err error
		if publicKey, err = unpackPubKey(publicKey); err != nil {
			return false, err
		}
	}
	return crypto.VerifySignature(publicKey, digest, sig[:64]), nil
}

// PublicKey returns the compressed key packed into PubKeyLength bytes so it
// fits the ChangePubKey field.
func (Secp256k1Scheme) PublicKey(privateKey []byte) ([]byte, error) {
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, err
	}
	return packPubKey(crypto.CompressPubkey(&key.PublicKey)), nil
}

// packPubKey spreads a 33-byte compressed key over five 8-byte limbs, seven
// bytes each, leaving the top byte of every limb zero so each limb is a
// canonical field element.
func packPubKey(compressed []byte) []byte {
	out := make([]byte, PubKeyLength)
	for i, b := range compressed {
		out[(i/7)*8+i%7] = b
	}
	return out
}

func unpackPubKey(packed []byte) ([]byte, error) {
	out := make([]byte, 0, 35)
	for limb := 0; limb < PubKeyLength/8; limb++ {
		chunk := packed[limb*8 : limb*8+8]
		if chunk[7] != 0 {
			return nil, fmt.Errorf("lighter: packed public key limb %d has a non-zero top byte", limb)
		}
		out = append(out, chunk[:7]...)
	}
	for _, b := range out[33:] {
		if b != 0 {
			return nil, fmt.Errorf("lighter: packed public key has trailing data")
		}
	}
	return out[:33], nil
}
