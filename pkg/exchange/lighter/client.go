package lighter

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"
)

// TxClient builds, signs and optionally submits transactions for one
// (account, signing-key index) identity. It is safe for concurrent use.
type TxClient struct {
	chainID     uint32
	account     int64
	apiKeyIndex uint8
	keys        *KeyManager

	transport Transport
	nonces    *NonceSequencer
	l1Key     *ecdsa.PrivateKey
	logger    Logger
	clock     func() time.Time
	horizon   time.Duration
}

// ClientOption customises the TxClient.
type ClientOption func(*TxClient)

// WithTransport enables nonce fetching and submission. Without it the client
// runs offline and every build needs an explicit nonce.
func WithTransport(t Transport) ClientOption {
	return func(c *TxClient) { c.transport = t }
}

// WithNonceSequencer shares a sequencer between clients of the same identity.
func WithNonceSequencer(s *NonceSequencer) ClientOption {
	return func(c *TxClient) {
		if s != nil {
			c.nonces = s
		}
	}
}

// WithLogger attaches a logger (defaults to discarding).
func WithLogger(l Logger) ClientOption {
	return func(c *TxClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source (primarily for testing).
func WithClock(clock func() time.Time) ClientOption {
	return func(c *TxClient) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithExpiryHorizon changes how far ahead ExpiredAt is set when the caller
// does not supply one.
func WithExpiryHorizon(d time.Duration) ClientOption {
	return func(c *TxClient) {
		if d > 0 {
			c.horizon = d
		}
	}
}

// WithL1PrivateKey lets ChangePubKey attach the Ethereum authorisation
// signature automatically when the request carries none.
func WithL1PrivateKey(key *ecdsa.PrivateKey) ClientOption {
	return func(c *TxClient) { c.l1Key = key }
}

// NewTxClient creates a client signing with keys on behalf of accountIndex.
func NewTxClient(keys *KeyManager, chainID uint32, accountIndex int64, apiKeyIndex uint8, opts ...ClientOption) (*TxClient, error) {
	if keys == nil {
		return nil, &InvalidKeyError{Reason: "key manager required"}
	}
	if _, err := EncodeNonNegative(accountIndex, 48); err != nil {
		return nil, fmt.Errorf("lighter: account index: %w", err)
	}
	c := &TxClient{
		chainID:     chainID,
		account:     accountIndex,
		apiKeyIndex: apiKeyIndex,
		keys:        keys,
		logger:      NopLogger(),
		clock:       time.Now,
		horizon:     DefaultExpiryHorizon,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.nonces == nil {
		var fetcher NonceFetcher
		if c.transport != nil {
			fetcher = c.transport
		}
		c.nonces = NewNonceSequencer(fetcher)
	}
	return c, nil
}

func (c *TxClient) ChainID() uint32 { return c.chainID }
func (c *TxClient) AccountIndex() int64 { return c.account }
func (c *TxClient) APIKeyIndex() uint8 { return c.apiKeyIndex }
func (c *TxClient) Keys() *KeyManager { return c.keys }
func (c *TxClient) Nonces() *NonceSequencer { return c.nonces }
func (c *TxClient) Transport() Transport { return c.transport }
func (c *TxClient) Now() time.Time { return c.clock() }

// SignTx builds and signs any transaction kind. The envelope identity
// (chain, account, key index) is always the client's; nonce and expiry come
// from opts or the client defaults. Local validation runs before a nonce is
// reserved, so a failed build leaves the nonce cache untouched.
func (c *TxClient) SignTx(ctx context.Context, tx TxInfo, opts *TransactOpts) (*SignedTx, error) {
	if tx == nil {
		return nil, errors.New("lighter: nil transaction")
	}
	if opts == nil {
		opts = &TransactOpts{}
	}
	tx = tx.clone()
	env := tx.header()
	env.ChainID = c.chainID
	env.AccountIndex = c.account
	env.APIKeyIndex = c.apiKeyIndex
	env.Sig = nil

	now := c.clock()
	expiredAt, err := c.resolveExpiry(opts.ExpiredAt, now)
	if err != nil {
		return nil, err
	}
	env.ExpiredAt = expiredAt
	if order, ok := tx.(*CreateOrderTxInfo); ok {
		if err := checkOrderExpiry(order.OrderExpiry, now); err != nil {
			return nil, err
		}
	}
	if opts.Nonce != nil && *opts.Nonce < 0 {
		return nil, &EncodingError{Field: "Nonce", Value: *opts.Nonce, Reason: "must not be negative"}
	}
	env.Nonce = 0
	if _, err := BuildPreimage(tx); err != nil {
		return nil, err
	}

	nonce, err := c.nonces.Resolve(ctx, c.account, c.apiKeyIndex, opts.Nonce)
	if err != nil {
		return nil, err
	}
	env.Nonce = nonce

	if cpk, ok := tx.(*ChangePubKeyTxInfo); ok && cpk.L1Sig == "" && c.l1Key != nil {
		if cpk.L1Sig, err = SignL1ChangePubKey(c.l1Key, cpk); err != nil {
			return nil, err
		}
	}

	elems, err := BuildPreimage(tx)
	if err != nil {
		return nil, err
	}
	digest, err := c.keys.Scheme().Hash(elems)
	if err != nil {
		return nil, fmt.Errorf("lighter: hash preimage: %w", err)
	}
	sig, err := c.keys.Sign(digest)
	if err != nil {
		return nil, err
	}
	env.Sig = sig

	signed := newSignedTx(tx, digest)
	c.logger.Debug(ctx, "lighter tx signed", Fields{
		"tx_type": signed.TxType().String(),
		"nonce":   nonce,
		"hash":    signed.Hash(),
	})
	return signed, nil
}

// SendTx encodes and submits a signed transaction. Exchange rejections come
// back as a TxResponse, not an error.
func (c *TxClient) SendTx(ctx context.Context, signed *SignedTx) (*TxResponse, error) {
	if c.transport == nil {
		return nil, ErrNoTransport
	}
	payload, err := EncodeTx(signed)
	if err != nil {
		return nil, err
	}
	return c.transport.SendTx(ctx, payload)
}

// SendTxBatch submits several signed transactions in one request.
func (c *TxClient) SendTxBatch(ctx context.Context, signed []*SignedTx) (*BatchTxResponse, error) {
	if c.transport == nil {
		return nil, ErrNoTransport
	}
	payloads := make([]WirePayload, 0, len(signed))
	for _, s := range signed {
		p, err := EncodeTx(s)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	return c.transport.SendTxBatch(ctx, payloads)
}

// SignAndSend signs tx and submits it. The signed transaction is returned
// even when submission fails, since its nonce is already spent.
func (c *TxClient) SignAndSend(ctx context.Context, tx TxInfo, opts *TransactOpts) (*SignedTx, *TxResponse, error) {
	if c.transport == nil {
		return nil, nil, ErrNoTransport
	}
	signed, err := c.SignTx(ctx, tx, opts)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.SendTx(ctx, signed)
	return signed, resp, err
}

func (c *TxClient) resolveExpiry(explicit *int64, now time.Time) (int64, error) {
	if explicit == nil {
		return now.Add(c.horizon).UnixMilli(), nil
	}
	v := *explicit
	if v == 0 {
		return 0, &EncodingError{Field: "ExpiredAt", Value: v, Reason: "must be set"}
	}
	if v <= now.UnixMilli() {
		return 0, &EncodingError{Field: "ExpiredAt", Value: v, Reason: "already passed"}
	}
	return v, nil
}

func checkOrderExpiry(expiry int64, now time.Time) error {
	if expiry == 0 {
		return &EncodingError{Field: "OrderExpiry", Value: expiry, Reason: "must be set"}
	}
	if expiry <= now.UnixMilli() {
		return &EncodingError{Field: "OrderExpiry", Value: expiry, Reason: "already passed"}
	}
	return nil
}
