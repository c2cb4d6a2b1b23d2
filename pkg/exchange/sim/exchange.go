package sim

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"lighter-api/pkg/exchange/lighter"
)

// Response codes. 21109 and 21701 match the live exchange; the others are
// local to the simulator.
const (
	CodeOK                  = lighter.CodeOK
	CodeMalformedTx         = 21000
	CodeAccountNotFound     = 21100
	CodeInvalidNonce        = 21104
	CodeAPIKeyNotFound      = 21109
	CodeExpired             = 21116
	CodeInvalidSignature    = 21120
	CodeInvalidL1Signature  = 21121
	CodeInsufficientFunds   = 21130
	CodeInvalidAmount       = 21131
	CodePoolNotFound        = 21140
	CodeInsufficientShares  = 21141
	CodeInvalidLeverage     = 21150
	CodeInvalidBaseAmount   = 21701
	CodeInvalidPrice        = 21702
	CodeOrderNotFound       = 21703
	CodeDuplicateOrder      = 21704
	CodeReduceOnlyIncreases = 21705
)

// Exchange is an in-memory order-book venue that speaks the lighter wire
// format. It checks expiry, nonce sequencing and signatures exactly as the
// live verifier would, then applies the transaction to local state. It
// implements lighter.Transport.
type Exchange struct {
	mu sync.Mutex

	chainID uint32
	scheme  lighter.Scheme
	clock   func() time.Time

	accounts      map[int64]*Account
	pools         map[int64]*pool
	nextPoolIndex int64
	accepted      int
}

// Account is one simulated exchange account.
type Account struct {
	Index      int64
	Collateral int64
	l1Owner    *common.Address
	keys       map[uint8]*apiKey
	orders     map[int64]*Order
	positions  map[uint8]*Position
	leverage   map[uint8]Leverage
	shares     map[int64]int64
}

type apiKey struct {
	pubKey    []byte
	nextNonce int64
}

// Order is a resting order keyed by its client order index.
type Order struct {
	Market       uint8
	Index        int64
	BaseAmount   int64
	Price        uint32
	IsAsk        bool
	Type         uint8
	TriggerPrice uint32
	ReduceOnly   bool
	Expiry       int64
}

// Position is a net position in base units; negative is short.
type Position struct {
	Market uint8
	Qty    int64
	Entry  uint32
}

// Leverage is a market's margin setting.
type Leverage struct {
	InitialMarginFraction uint16
	MarginMode            uint8
}

type pool struct {
	operator    int64
	totalShares int64
	operatorFee int64
}

// Option customises the simulator.
type Option func(*Exchange)

// WithClock overrides the time source used for expiry checks.
func WithClock(clock func() time.Time) Option {
	return func(e *Exchange) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewExchange creates an empty venue verifying with scheme for chainID.
func NewExchange(chainID uint32, scheme lighter.Scheme, opts ...Option) *Exchange {
	e := &Exchange{
		chainID:       chainID,
		scheme:        scheme,
		clock:         time.Now,
		accounts:      make(map[int64]*Account),
		pools:         make(map[int64]*pool),
		nextPoolIndex: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateAccount opens an account with the given collateral (USDC, 6 decimals).
func (e *Exchange) CreateAccount(index int64, collateral int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.accounts[index]; ok {
		return fmt.Errorf("sim: account %d already exists", index)
	}
	e.accounts[index] = &Account{
		Index:      index,
		Collateral: collateral,
		keys:       make(map[uint8]*apiKey),
		orders:     make(map[int64]*Order),
		positions:  make(map[uint8]*Position),
		leverage:   make(map[uint8]Leverage),
		shares:     make(map[int64]int64),
	}
	return nil
}

// RegisterKey installs a public key at a signing-key index.
func (e *Exchange) RegisterKey(account int64, keyIndex uint8, pubKey []byte, nextNonce int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	acct, ok := e.accounts[account]
	if !ok {
		return fmt.Errorf("sim: account %d not found", account)
	}
	acct.keys[keyIndex] = &apiKey{pubKey: bytes.Clone(pubKey), nextNonce: nextNonce}
	return nil
}

// SetL1Owner requires key rotations of account to carry a valid L1 signature
// from owner.
func (e *Exchange) SetL1Owner(account int64, owner common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	acct, ok := e.accounts[account]
	if !ok {
		return fmt.Errorf("sim: account %d not found", account)
	}
	acct.l1Owner = &owner
	return nil
}

// Collateral returns an account's balance.
func (e *Exchange) Collateral(account int64) (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	acct, ok := e.accounts[account]
	if !ok {
		return 0, false
	}
	return acct.Collateral, true
}

// Orders returns an account's resting orders sorted by index.
func (e *Exchange) Orders(account int64) []Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	acct, ok := e.accounts[account]
	if !ok {
		return nil
	}
	out := make([]Order, 0, len(acct.orders))
	for _, o := range acct.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Position returns an account's net position in a market.
func (e *Exchange) Position(account int64, market uint8) (Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	acct, ok := e.accounts[account]
	if !ok {
		return Position{}, false
	}
	p, ok := acct.positions[market]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// LeverageOf returns an account's margin setting for a market.
func (e *Exchange) LeverageOf(account int64, market uint8) (Leverage, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	acct, ok := e.accounts[account]
	if !ok {
		return Leverage{}, false
	}
	l, ok := acct.leverage[market]
	return l, ok
}

// PoolShares returns the shares account holds in a pool.
func (e *Exchange) PoolShares(account, poolIndex int64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if acct, ok := e.accounts[account]; ok {
		return acct.shares[poolIndex]
	}
	return 0
}

// AcceptedCount reports how many transactions were applied.
func (e *Exchange) AcceptedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accepted
}

// NextNonce implements lighter.NonceFetcher.
func (e *Exchange) NextNonce(ctx context.Context, account int64, keyIndex uint8) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	acct, ok := e.accounts[account]
	if !ok {
		return 0, reject(CodeAccountNotFound, "account not found").Err()
	}
	key, ok := acct.keys[keyIndex]
	if !ok {
		return 0, reject(CodeAPIKeyNotFound, "api key not found").Err()
	}
	return key.nextNonce, nil
}

// SendTx verifies and applies one transaction.
func (e *Exchange) SendTx(ctx context.Context, payload lighter.WirePayload) (*lighter.TxResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, &lighter.TransportError{Op: "sendTx", Err: err}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyLocked(payload), nil
}

// SendTxBatch applies transactions in order and stops at the first rejection.
func (e *Exchange) SendTxBatch(ctx context.Context, payloads []lighter.WirePayload) (*lighter.BatchTxResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, &lighter.TransportError{Op: "sendTxBatch", Err: err}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := &lighter.BatchTxResponse{Code: CodeOK}
	for i, p := range payloads {
		resp := e.applyLocked(p)
		if !resp.Accepted() {
			out.Code = resp.Code
			out.Message = fmt.Sprintf("tx %d: %s", i, resp.Message)
			return out, nil
		}
		out.TxHash = append(out.TxHash, resp.TxHash)
	}
	return out, nil
}

func reject(code int, format string, args ...any) *lighter.TxResponse {
	return &lighter.TxResponse{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Exchange) applyLocked(payload lighter.WirePayload) *lighter.TxResponse {
	tx, err := lighter.DecodeTx(payload.TxType, payload.TxInfo, e.chainID)
	if err != nil {
		return reject(CodeMalformedTx, "%v", err)
	}
	env := lighter.EnvelopeOf(tx)

	acct, ok := e.accounts[env.AccountIndex]
	if !ok {
		return reject(CodeAccountNotFound, "account %d not found", env.AccountIndex)
	}
	if env.ExpiredAt <= e.clock().UnixMilli() {
		return reject(CodeExpired, "transaction expired at %d", env.ExpiredAt)
	}

	cpk, rotating := tx.(*lighter.ChangePubKeyTxInfo)
	key, ok := acct.keys[env.APIKeyIndex]
	switch {
	case ok:
	case rotating:
		key = &apiKey{}
	default:
		return reject(CodeAPIKeyNotFound, "api key not found")
	}
	if env.Nonce != key.nextNonce {
		return reject(CodeInvalidNonce, "invalid nonce: expected %d, got %d", key.nextNonce, env.Nonce)
	}

	verifyKey := key.pubKey
	if rotating {
		verifyKey = cpk.PubKey
	}
	digest, err := e.verify(tx, verifyKey, env.Sig)
	if err != nil {
		return reject(CodeInvalidSignature, "%v", err)
	}
	if rotating && acct.l1Owner != nil {
		if ok, err := lighter.VerifyL1ChangePubKey(cpk, *acct.l1Owner); err != nil || !ok {
			return reject(CodeInvalidL1Signature, "l1 signature does not match account owner")
		}
	}

	if resp := e.applyStateLocked(acct, tx); resp != nil {
		return resp
	}
	if rotating {
		acct.keys[env.APIKeyIndex] = &apiKey{pubKey: bytes.Clone(cpk.PubKey), nextNonce: env.Nonce + 1}
	} else {
		key.nextNonce++
	}
	e.accepted++
	return &lighter.TxResponse{Code: CodeOK, TxHash: hex.EncodeToString(digest)}
}

func (e *Exchange) verify(tx lighter.TxInfo, pubKey, sig []byte) ([]byte, error) {
	elems, err := lighter.BuildPreimage(tx)
	if err != nil {
		return nil, err
	}
	digest, err := e.scheme.Hash(elems)
	if err != nil {
		return nil, err
	}
	ok, err := e.scheme.Verify(pubKey, digest, sig)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("signature does not verify")
	}
	return digest, nil
}

// applyStateLocked returns a rejection or nil once the state change is made.
func (e *Exchange) applyStateLocked(acct *Account, tx lighter.TxInfo) *lighter.TxResponse {
	switch t := tx.(type) {
	case *lighter.CreateOrderTxInfo:
		return e.createOrderLocked(acct, t)
	case *lighter.CancelOrderTxInfo:
		if _, ok := acct.orders[*t.Index]; !ok {
			return reject(CodeOrderNotFound, "order %d not found", *t.Index)
		}
		delete(acct.orders, *t.Index)
	case *lighter.ModifyOrderTxInfo:
		o, ok := acct.orders[*t.Index]
		if !ok {
			return reject(CodeOrderNotFound, "order %d not found", *t.Index)
		}
		if t.BaseAmount <= 0 {
			return reject(CodeInvalidBaseAmount, "invalid base amount")
		}
		o.BaseAmount, o.Price, o.TriggerPrice = t.BaseAmount, t.Price, t.TriggerPrice
	case *lighter.CancelAllOrdersTxInfo:
		clear(acct.orders)
	case *lighter.TransferTxInfo:
		dest, ok := e.accounts[*t.ToAccountIndex]
		if !ok {
			return reject(CodeAccountNotFound, "account %d not found", *t.ToAccountIndex)
		}
		if t.USDCAmount <= 0 {
			return reject(CodeInvalidAmount, "invalid amount")
		}
		if t.USDCAmount+t.Fee > acct.Collateral {
			return reject(CodeInsufficientFunds, "insufficient collateral")
		}
		acct.Collateral -= t.USDCAmount + t.Fee
		dest.Collateral += t.USDCAmount
	case *lighter.WithdrawTxInfo:
		if t.USDCAmount <= 0 {
			return reject(CodeInvalidAmount, "invalid amount")
		}
		if t.USDCAmount > acct.Collateral {
			return reject(CodeInsufficientFunds, "insufficient collateral")
		}
		acct.Collateral -= t.USDCAmount
	case *lighter.CreatePublicPoolTxInfo:
		if t.InitialTotalShares <= 0 {
			return reject(CodeInvalidAmount, "invalid initial shares")
		}
		idx := e.nextPoolIndex
		e.nextPoolIndex++
		e.pools[idx] = &pool{operator: acct.Index, totalShares: t.InitialTotalShares, operatorFee: t.OperatorFee}
		acct.shares[idx] = t.InitialTotalShares
	case *lighter.MintSharesTxInfo:
		p, ok := e.pools[*t.PublicPoolIndex]
		if !ok {
			return reject(CodePoolNotFound, "pool %d not found", *t.PublicPoolIndex)
		}
		if t.ShareAmount <= 0 {
			return reject(CodeInvalidAmount, "invalid share amount")
		}
		p.totalShares += t.ShareAmount
		acct.shares[*t.PublicPoolIndex] += t.ShareAmount
	case *lighter.BurnSharesTxInfo:
		p, ok := e.pools[*t.PublicPoolIndex]
		if !ok {
			return reject(CodePoolNotFound, "pool %d not found", *t.PublicPoolIndex)
		}
		if t.ShareAmount <= 0 || acct.shares[*t.PublicPoolIndex] < t.ShareAmount {
			return reject(CodeInsufficientShares, "insufficient shares")
		}
		p.totalShares -= t.ShareAmount
		acct.shares[*t.PublicPoolIndex] -= t.ShareAmount
	case *lighter.UpdateLeverageTxInfo:
		if t.InitialMarginFraction == 0 || t.InitialMarginFraction > lighter.MarginFractionDenominator {
			return reject(CodeInvalidLeverage, "invalid initial margin fraction %d", t.InitialMarginFraction)
		}
		acct.leverage[t.MarketIndex] = Leverage{InitialMarginFraction: t.InitialMarginFraction, MarginMode: t.MarginMode}
	case *lighter.ChangePubKeyTxInfo:
		// key table updated by the caller once the nonce check passed
	default:
		return reject(CodeMalformedTx, "unsupported transaction %s", tx.TxType())
	}
	return nil
}

func (e *Exchange) createOrderLocked(acct *Account, t *lighter.CreateOrderTxInfo) *lighter.TxResponse {
	if t.BaseAmount <= 0 {
		return reject(CodeInvalidBaseAmount, "invalid base amount")
	}
	if t.Price == 0 {
		return reject(CodeInvalidPrice, "invalid price")
	}
	if t.TimeInForce == lighter.TimeInForceImmediateOrCancel && (t.Type == lighter.OrderTypeLimit || t.Type == lighter.OrderTypeMarket) {
		return e.fillLocked(acct, t)
	}
	if _, ok := acct.orders[t.ClientOrderIndex]; ok {
		return reject(CodeDuplicateOrder, "order %d already resting", t.ClientOrderIndex)
	}
	acct.orders[t.ClientOrderIndex] = &Order{
		Market:       t.MarketIndex,
		Index:        t.ClientOrderIndex,
		BaseAmount:   t.BaseAmount,
		Price:        t.Price,
		IsAsk:        t.IsAsk,
		Type:         t.Type,
		TriggerPrice: t.TriggerPrice,
		ReduceOnly:   t.ReduceOnly,
		Expiry:       t.OrderExpiry,
	}
	return nil
}

// fillLocked executes an immediate order in full at its price.
func (e *Exchange) fillLocked(acct *Account, t *lighter.CreateOrderTxInfo) *lighter.TxResponse {
	pos := acct.positions[t.MarketIndex]
	if pos == nil {
		pos = &Position{Market: t.MarketIndex}
	}
	delta := t.BaseAmount
	if t.IsAsk {
		delta = -delta
	}
	if t.ReduceOnly {
		if pos.Qty == 0 || (pos.Qty > 0) == (delta > 0) {
			return reject(CodeReduceOnlyIncreases, "reduce-only order would increase position")
		}
		if abs(delta) > abs(pos.Qty) {
			delta = -pos.Qty
		}
	}

	oldQty := pos.Qty
	newQty := oldQty + delta
	switch {
	case oldQty == 0 || (oldQty > 0) != (newQty > 0):
		pos.Entry = t.Price
	case (oldQty > 0) == (delta > 0):
		pos.Entry = uint32((abs(oldQty)*int64(pos.Entry) + abs(delta)*int64(t.Price)) / abs(newQty))
	}
	pos.Qty = newQty
	if pos.Qty == 0 {
		delete(acct.positions, t.MarketIndex)
		return nil
	}
	acct.positions[t.MarketIndex] = pos
	return nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
