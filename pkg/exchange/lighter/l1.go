package lighter

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const l1ChangePubKeyTemplate = "Register Lighter Account\n\npubkey: 0x%s\nnonce: %s\naccount index: %s\napi key index: %s\nOnly sign this message for a trusted client!"

// L1ChangePubKeyMessage is the text the account's Ethereum owner signs to
// authorise a new signing key.
func L1ChangePubKeyMessage(tx *ChangePubKeyTxInfo) string {
	return fmt.Sprintf(l1ChangePubKeyTemplate,
		hex.EncodeToString(tx.PubKey),
		paddedHex(uint64(tx.Nonce)),
		paddedHex(uint64(tx.AccountIndex)),
		paddedHex(uint64(tx.APIKeyIndex)),
	)
}

// SignL1ChangePubKey signs the registration message as an EIP-191 personal
// message and returns the 0x-prefixed 65-byte signature.
func SignL1ChangePubKey(key *ecdsa.PrivateKey, tx *ChangePubKeyTxInfo) (string, error) {
	if key == nil {
		return "", &InvalidKeyError{Reason: "L1 key required"}
	}
	hash := accounts.TextHash([]byte(L1ChangePubKeyMessage(tx)))
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return "", fmt.Errorf("lighter: sign L1 message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// VerifyL1ChangePubKey checks that tx.L1Sig was produced by owner.
func VerifyL1ChangePubKey(tx *ChangePubKeyTxInfo, owner common.Address) (bool, error) {
	sig, err := hexutil.Decode(tx.L1Sig)
	if err != nil {
		return false, fmt.Errorf("lighter: decode L1 signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return false, fmt.Errorf("lighter: L1 signature is %d bytes", len(sig))
	}
	sig = bytes.Clone(sig)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(L1ChangePubKeyMessage(tx))), sig)
	if err != nil {
		return false, fmt.Errorf("lighter: recover L1 signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub) == owner, nil
}

func paddedHex(v uint64) string { return fmt.Sprintf("0x%016x", v) }
