package lighter

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"time"
)

// TxType is the exchange's numeric transaction type tag.
type TxType uint8

const (
	TxTypeChangePubKey     TxType = 8
	TxTypeCreatePublicPool TxType = 10
	TxTypeTransfer         TxType = 12
	TxTypeWithdraw         TxType = 13
	TxTypeCreateOrder      TxType = 14
	TxTypeCancelOrder      TxType = 15
	TxTypeCancelAllOrders  TxType = 16
	TxTypeModifyOrder      TxType = 17
	TxTypeMintShares       TxType = 18
	TxTypeBurnShares       TxType = 19
	TxTypeUpdateLeverage   TxType = 20
)

var txTypeNames = map[TxType]string{
	TxTypeChangePubKey:     "ChangePubKey",
	TxTypeCreatePublicPool: "CreatePublicPool",
	TxTypeTransfer:         "Transfer",
	TxTypeWithdraw:         "Withdraw",
	TxTypeCreateOrder:      "CreateOrder",
	TxTypeCancelOrder:      "CancelOrder",
	TxTypeCancelAllOrders:  "CancelAllOrders",
	TxTypeModifyOrder:      "ModifyOrder",
	TxTypeMintShares:       "MintShares",
	TxTypeBurnShares:       "BurnShares",
	TxTypeUpdateLeverage:   "UpdateLeverage",
}

func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TxType(%d)", uint8(t))
}

// Order types.
const (
	OrderTypeLimit           uint8 = 0
	OrderTypeMarket          uint8 = 1
	OrderTypeStopLoss        uint8 = 2
	OrderTypeStopLossLimit   uint8 = 3
	OrderTypeTakeProfit      uint8 = 4
	OrderTypeTakeProfitLimit uint8 = 5
	OrderTypeTWAP            uint8 = 6
)

// Time in force.
const (
	TimeInForceImmediateOrCancel uint8 = 0
	TimeInForceGoodTillTime      uint8 = 1
	TimeInForcePostOnly          uint8 = 2
)

// Margin modes.
const (
	MarginModeCross    uint8 = 0
	MarginModeIsolated uint8 = 1
)

const (
	MainnetChainID uint32 = 304
	TestnetChainID uint32 = 300

	// PubKeyLength is the encoded size of a protocol public key (one quintic
	// extension element).
	PubKeyLength = 40
	// MemoLength is the fixed size of a transfer memo.
	MemoLength = 32

	// MarginFractionDenominator scales InitialMarginFraction; 10_000 is 1x.
	MarginFractionDenominator = 10_000

	// DefaultExpiryHorizon bounds how long a signed transaction stays valid.
	DefaultExpiryHorizon = 10*time.Minute - time.Second
	// DefaultOrderExpiryHorizon is the resting lifetime convenience order
	// constructors request.
	DefaultOrderExpiryHorizon = 28 * 24 * time.Hour
)

// Envelope carries the fields every transaction kind shares. ChainID is part
// of the preimage only; it never appears on the wire.
type Envelope struct {
	ChainID      uint32
	AccountIndex int64
	APIKeyIndex  uint8
	Nonce        int64
	ExpiredAt    int64
	Sig          []byte
}

func (e *Envelope) header() *Envelope { return e }

// TxInfo is implemented by each transaction kind. The set is closed.
type TxInfo interface {
	TxType() TxType
	header() *Envelope
	clone() TxInfo
}

// Ptr returns a pointer to v, for optional request fields.
func Ptr[T any](v T) *T { return &v }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneEnvelope(e Envelope) Envelope {
	e.Sig = bytes.Clone(e.Sig)
	return e
}

// CreateOrderTxReq places an order. Amounts and prices are integers already
// scaled to the market's decimals.
type CreateOrderTxReq struct {
	MarketIndex      uint8
	ClientOrderIndex int64
	BaseAmount       int64
	Price            uint32
	IsAsk            bool
	Type             uint8
	TimeInForce      uint8
	ReduceOnly       bool
	TriggerPrice     uint32
	OrderExpiry      int64
}

type CreateOrderTxInfo struct {
	Envelope
	CreateOrderTxReq
}

func (tx *CreateOrderTxInfo) TxType() TxType { return TxTypeCreateOrder }

func (tx *CreateOrderTxInfo) clone() TxInfo {
	c := *tx
	c.Envelope = cloneEnvelope(tx.Envelope)
	return &c
}

// CancelOrderTxReq cancels a resting order by exchange or client order index.
type CancelOrderTxReq struct {
	MarketIndex uint8
	Index       *int64
}

type CancelOrderTxInfo struct {
	Envelope
	CancelOrderTxReq
}

func (tx *CancelOrderTxInfo) TxType() TxType { return TxTypeCancelOrder }

func (tx *CancelOrderTxInfo) clone() TxInfo {
	c := *tx
	c.Envelope = cloneEnvelope(tx.Envelope)
	c.Index = clonePtr(tx.Index)
	return &c
}

// CancelAllOrdersTxReq cancels every resting order of the account. Time is a
// millisecond timestamp used by scheduled time-in-force values, zero otherwise.
type CancelAllOrdersTxReq struct {
	TimeInForce uint8
	Time        int64
}

type CancelAllOrdersTxInfo struct {
	Envelope
	CancelAllOrdersTxReq
}

func (tx *CancelAllOrdersTxInfo) TxType() TxType { return TxTypeCancelAllOrders }

func (tx *CancelAllOrdersTxInfo) clone() TxInfo {
	c := *tx
	c.Envelope = cloneEnvelope(tx.Envelope)
	return &c
}

// ModifyOrderTxReq amends a resting order. Index is required.
type ModifyOrderTxReq struct {
	MarketIndex  uint8
	Index        *int64
	BaseAmount   int64
	Price        uint32
	TriggerPrice uint32
}

type ModifyOrderTxInfo struct {
	Envelope
	ModifyOrderTxReq
}

func (tx *ModifyOrderTxInfo) TxType() TxType { return TxTypeModifyOrder }

func (tx *ModifyOrderTxInfo) clone() TxInfo {
	c := *tx
	c.Envelope = cloneEnvelope(tx.Envelope)
	c.Index = clonePtr(tx.Index)
	return &c
}

// TransferTxReq moves collateral to another account. The sending account is
// the envelope's AccountIndex.
type TransferTxReq struct {
	ToAccountIndex *int64
	USDCAmount     int64
	Fee            int64
	Memo           [MemoLength]byte
}

type TransferTxInfo struct {
	Envelope
	TransferTxReq
}

func (tx *TransferTxInfo) TxType() TxType { return TxTypeTransfer }

func (tx *TransferTxInfo) clone() TxInfo {
	c := *tx
	c.Envelope = cloneEnvelope(tx.Envelope)
	c.ToAccountIndex = clonePtr(tx.ToAccountIndex)
	return &c
}

// WithdrawTxReq withdraws collateral to the account's L1 address.
type WithdrawTxReq struct {
	USDCAmount int64
}

type WithdrawTxInfo struct {
	Envelope
	WithdrawTxReq
}

func (tx *WithdrawTxInfo) TxType() TxType { return TxTypeWithdraw }

func (tx *WithdrawTxInfo) clone() TxInfo {
	c := *tx
	c.Envelope = cloneEnvelope(tx.Envelope)
	return &c
}

// CreatePublicPoolTxReq opens a public pool operated by the account.
type CreatePublicPoolTxReq struct {
	OperatorFee          int64
	InitialTotalShares   int64
	MinOperatorShareRate int64
}

type CreatePublicPoolTxInfo struct {
	Envelope
	CreatePublicPoolTxReq
}

func (tx *CreatePublicPoolTxInfo) TxType() TxType { return TxTypeCreatePublicPool }

func (tx *CreatePublicPoolTxInfo) clone() TxInfo {
	c := *tx
	c.Envelope = cloneEnvelope(tx.Envelope)
	return &c
}

// PoolSharesTxReq mints or burns shares of a public pool.
type PoolSharesTxReq struct {
	PublicPoolIndex *int64
	ShareAmount     int64
}

type MintSharesTxInfo struct {
	Envelope
	PoolSharesTxReq
}

func (tx *MintSharesTxInfo) TxType() TxType { return TxTypeMintShares }

func (tx *MintSharesTxInfo) clone() TxInfo {
	c := *tx
	c.Envelope = cloneEnvelope(tx.Envelope)
	c.PublicPoolIndex = clonePtr(tx.PublicPoolIndex)
	return &c
}

type BurnSharesTxInfo struct {
	Envelope
	PoolSharesTxReq
}

func (tx *BurnSharesTxInfo) TxType() TxType { return TxTypeBurnShares }

func (tx *BurnSharesTxInfo) clone() TxInfo {
	c := *tx
	c.Envelope = cloneEnvelope(tx.Envelope)
	c.PublicPoolIndex = clonePtr(tx.PublicPoolIndex)
	return &c
}

// UpdateLeverageTxReq sets the initial margin fraction for a market, in units
// of 1/MarginFractionDenominator.
type UpdateLeverageTxReq struct {
	MarketIndex           uint8
	InitialMarginFraction uint16
	MarginMode            uint8
}

type UpdateLeverageTxInfo struct {
	Envelope
	UpdateLeverageTxReq
}

func (tx *UpdateLeverageTxInfo) TxType() TxType { return TxTypeUpdateLeverage }

func (tx *UpdateLeverageTxInfo) clone() TxInfo {
	c := *tx
	c.Envelope = cloneEnvelope(tx.Envelope)
	return &c
}

// ChangePubKeyTxReq registers a new public key for the envelope's signing-key
// index. L1Sig is the Ethereum signature authorising the rotation; it is sent
// on the wire but is not part of the preimage.
type ChangePubKeyTxReq struct {
	PubKey []byte
	L1Sig  string
}

type ChangePubKeyTxInfo struct {
	Envelope
	ChangePubKeyTxReq
}

func (tx *ChangePubKeyTxInfo) TxType() TxType { return TxTypeChangePubKey }

func (tx *ChangePubKeyTxInfo) clone() TxInfo {
	c := *tx
	c.Envelope = cloneEnvelope(tx.Envelope)
	c.PubKey = bytes.Clone(tx.PubKey)
	return &c
}

// TransactOpts overrides the nonce and expiry of a single build. A nil field
// means "let the client decide".
type TransactOpts struct {
	Nonce     *int64
	ExpiredAt *int64
}

// SignedTx is an immutable signed transaction, the unit handed to the wire
// encoder.
type SignedTx struct {
	info   TxInfo
	digest []byte
}

func newSignedTx(info TxInfo, digest []byte) *SignedTx {
	return &SignedTx{info: info.clone(), digest: bytes.Clone(digest)}
}

// TxType returns the transaction kind.
func (s *SignedTx) TxType() TxType { return s.info.TxType() }

// Info returns a copy of the signed transaction fields.
func (s *SignedTx) Info() TxInfo { return s.info.clone() }

// Nonce returns the nonce the transaction committed to.
func (s *SignedTx) Nonce() int64 { return s.info.header().Nonce }

// ExpiredAt returns the envelope expiry in milliseconds.
func (s *SignedTx) ExpiredAt() int64 { return s.info.header().ExpiredAt }

// Signature returns a copy of the signature bytes.
func (s *SignedTx) Signature() []byte { return bytes.Clone(s.info.header().Sig) }

// Digest returns a copy of the preimage hash that was signed.
func (s *SignedTx) Digest() []byte { return bytes.Clone(s.digest) }

// Hash returns the hex-encoded preimage digest, useful for log correlation.
func (s *SignedTx) Hash() string { return hex.EncodeToString(s.digest) }

// TxResponse is the exchange envelope returned for a submission.
type TxResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	TxHash  string `json:"tx_hash,omitempty"`
}

// CodeOK is the application code of an accepted transaction.
const CodeOK = 200

// Accepted reports whether the exchange accepted the transaction.
func (r *TxResponse) Accepted() bool { return r != nil && r.Code == CodeOK }

// Rejected reports whether the exchange declined the transaction.
func (r *TxResponse) Rejected() bool { return r != nil && r.Code != CodeOK }

// Err converts a rejection into an error wrapping ErrRejected, for callers
// that prefer error flow. Accepted responses return nil.
func (r *TxResponse) Err() error {
	if r == nil || r.Code == CodeOK {
		return nil
	}
	if r.Message != "" {
		return fmt.Errorf("%w: code %d: %s", ErrRejected, r.Code, r.Message)
	}
	return fmt.Errorf("%w: code %d", ErrRejected, r.Code)
}

// BatchTxResponse is returned by sendTxBatch.
type BatchTxResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"message,omitempty"`
	TxHash  []string `json:"tx_hash,omitempty"`
}

// Accepted reports whether the exchange accepted the batch.
func (r *BatchTxResponse) Accepted() bool { return r != nil && r.Code == CodeOK }

// EnvelopeOf returns a copy of tx's shared envelope fields.
func EnvelopeOf(tx TxInfo) Envelope { return cloneEnvelope(*tx.header()) }
