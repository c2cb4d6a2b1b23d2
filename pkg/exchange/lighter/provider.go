package lighter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"

	"lighter-api/pkg/exchange"
)

// USDCDecimals is the fixed-point scale of collateral amounts.
const USDCDecimals = 6

var defaultMetrics = sync.OnceValue(func() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
})

func init() {
	exchange.RegisterProvider("lighter", func(name string, cfg *exchange.ProviderConfig) (exchange.Provider, error) {
		if cfg.Scheme == "" {
			return nil, fmt.Errorf("lighter: provider %s: scheme is required; register the exchange scheme with lighter.RegisterScheme", name)
		}
		return NewProviderFromConfig(cfg, nil, WithLogger(NewLogger("")))
	})
}

// Provider adapts TxClient to exchange.Provider, converting decimal strings
// with the configured market table.
type Provider struct {
	client *TxClient
	cfg    exchange.ProviderConfig
}

// NewProvider wraps an existing client.
func NewProvider(client *TxClient, cfg exchange.ProviderConfig) *Provider {
	return &Provider{client: client, cfg: cfg}
}

// NewProviderFromConfig builds the key manager, transport and client that
// cfg describes. A non-nil transport replaces the HTTP transport.
func NewProviderFromConfig(cfg *exchange.ProviderConfig, transport Transport, opts ...ClientOption) (*Provider, error) {
	schemeName := cfg.Scheme
	if schemeName == "" {
		schemeName = Secp256k1Scheme{}.Name()
	}
	scheme, err := LookupScheme(schemeName)
	if err != nil {
		return nil, err
	}
	keys, err := NewKeyManagerFromHex(scheme, cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	chainID := cfg.ChainID
	if chainID == 0 {
		chainID = MainnetChainID
		if cfg.Testnet {
			chainID = TestnetChainID
		}
	}

	if transport == nil {
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = MainnetBaseURL
			if cfg.Testnet {
				baseURL = TestnetBaseURL
			}
		}
		topts := []TransportOption{WithMetrics(defaultMetrics()), WithTransportLogger(NewLogger(""))}
		if cfg.Timeout > 0 {
			topts = append(topts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		if cfg.RateLimit > 0 {
			topts = append(topts, WithRateLimit(cfg.RateLimit, cfg.RateBurst))
		}
		if transport, err = NewHTTPTransport(baseURL, topts...); err != nil {
			return nil, err
		}
	}

	copts := []ClientOption{WithTransport(transport)}
	if cfg.ExpiryHorizon > 0 {
		copts = append(copts, WithExpiryHorizon(cfg.ExpiryHorizon))
	}
	if cfg.L1PrivateKey != "" {
		l1, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.L1PrivateKey, "0x"))
		if err != nil {
			return nil, &InvalidKeyError{Reason: "l1_private_key", Err: err}
		}
		copts = append(copts, WithL1PrivateKey(l1))
	}
	client, err := NewTxClient(keys, chainID, cfg.AccountIndex, cfg.APIKeyIndex, append(copts, opts...)...)
	if err != nil {
		return nil, err
	}
	return NewProvider(client, *cfg), nil
}

// Client exposes the underlying signing client.
func (p *Provider) Client() *TxClient { return p.client }

// PlaceOrder signs and submits an order of the requested kind.
func (p *Provider) PlaceOrder(ctx context.Context, order exchange.Order) (*exchange.SubmissionResult, error) {
	signed, err := p.SignOrder(ctx, order, nil)
	return p.submit(ctx, signed, err)
}

// SignOrder scales order with the market table and signs it without
// submitting. opts may pin the nonce for offline signing.
func (p *Provider) SignOrder(ctx context.Context, order exchange.Order, opts *TransactOpts) (*SignedTx, error) {
	market, err := p.market(order.Market)
	if err != nil {
		return nil, err
	}
	size, err := ScaleDecimal(order.Size, market.SizeDecimals)
	if err != nil {
		return nil, fmt.Errorf("lighter: order size: %w", err)
	}
	price, err := ScalePrice(order.Price, market.PriceDecimals)
	if err != nil {
		return nil, fmt.Errorf("lighter: order price: %w", err)
	}
	var trigger uint32
	if order.TriggerPrice != "" {
		if trigger, err = ScalePrice(order.TriggerPrice, market.PriceDecimals); err != nil {
			return nil, fmt.Errorf("lighter: trigger price: %w", err)
		}
	}
	params := OrderParams{
		MarketIndex:      uint8(market.Index),
		ClientOrderIndex: order.ClientOrderID,
		BaseAmount:       size,
		Price:            price,
		IsAsk:            !order.IsBuy,
		ReduceOnly:       order.ReduceOnly,
	}

	switch order.Kind {
	case "", exchange.OrderKindLimit:
		return p.client.CreateLimitOrder(ctx, params, opts)
	case exchange.OrderKindMarket:
		return p.client.CreateMarketOrder(ctx, params, opts)
	case exchange.OrderKindStopLoss:
		return p.client.CreateStopLossOrder(ctx, params, trigger, opts)
	case exchange.OrderKindStopLossLimit:
		return p.client.CreateStopLossLimitOrder(ctx, params, trigger, opts)
	case exchange.OrderKindTakeProfit:
		return p.client.CreateTakeProfitOrder(ctx, params, trigger, opts)
	case exchange.OrderKindTakeProfitLimit:
		return p.client.CreateTakeProfitLimitOrder(ctx, params, trigger, opts)
	default:
		return nil, fmt.Errorf("lighter: unsupported order kind %q", order.Kind)
	}
}

// Config returns the provider configuration the client was built from.
func (p *Provider) Config() exchange.ProviderConfig { return p.cfg }

// ModifyOrder amends a resting order.
func (p *Provider) ModifyOrder(ctx context.Context, req exchange.ModifyRequest) (*exchange.SubmissionResult, error) {
	market, err := p.market(req.Market)
	if err != nil {
		return nil, err
	}
	size, err := ScaleDecimal(req.Size, market.SizeDecimals)
	if err != nil {
		return nil, fmt.Errorf("lighter: order size: %w", err)
	}
	price, err := ScalePrice(req.Price, market.PriceDecimals)
	if err != nil {
		return nil, fmt.Errorf("lighter: order price: %w", err)
	}
	var trigger uint32
	if req.TriggerPrice != "" {
		if trigger, err = ScalePrice(req.TriggerPrice, market.PriceDecimals); err != nil {
			return nil, fmt.Errorf("lighter: trigger price: %w", err)
		}
	}
	signed, err := p.client.ModifyOrder(ctx, ModifyOrderTxReq{
		MarketIndex:  uint8(market.Index),
		Index:        Ptr(req.Index),
		BaseAmount:   size,
		Price:        price,
		TriggerPrice: trigger,
	}, nil)
	return p.submit(ctx, signed, err)
}

// CancelOrder cancels a single order by index.
func (p *Provider) CancelOrder(ctx context.Context, market int, index int64) (*exchange.SubmissionResult, error) {
	if market < 0 || market > 255 {
		return nil, &EncodingError{Field: "MarketIndex", Value: market, Reason: "exceeds 8 bits"}
	}
	signed, err := p.client.CancelOrder(ctx, CancelOrderTxReq{MarketIndex: uint8(market), Index: Ptr(index)}, nil)
	return p.submit(ctx, signed, err)
}

// CancelAllOrders cancels every resting order immediately.
func (p *Provider) CancelAllOrders(ctx context.Context) (*exchange.SubmissionResult, error) {
	signed, err := p.client.CancelAllOrders(ctx, CancelAllOrdersTxReq{TimeInForce: TimeInForceImmediateOrCancel}, nil)
	return p.submit(ctx, signed, err)
}

// UpdateLeverage sets the leverage multiplier for a market.
func (p *Provider) UpdateLeverage(ctx context.Context, market int, isCross bool, leverage int) (*exchange.SubmissionResult, error) {
	if market < 0 || market > 255 {
		return nil, &EncodingError{Field: "MarketIndex", Value: market, Reason: "exceeds 8 bits"}
	}
	if leverage < 1 || leverage > MarginFractionDenominator {
		return nil, &EncodingError{Field: "Leverage", Value: leverage, Reason: "out of range"}
	}
	mode := MarginModeIsolated
	if isCross {
		mode = MarginModeCross
	}
	signed, err := p.client.UpdateLeverageWithMultiplier(ctx, uint8(market), uint16(leverage), mode, nil)
	return p.submit(ctx, signed, err)
}

// Transfer moves USDC collateral to another account.
func (p *Provider) Transfer(ctx context.Context, toAccount int64, usdcAmount string) (*exchange.SubmissionResult, error) {
	amount, err := ScaleDecimal(usdcAmount, USDCDecimals)
	if err != nil {
		return nil, fmt.Errorf("lighter: transfer amount: %w", err)
	}
	signed, err := p.client.Transfer(ctx, TransferTxReq{ToAccountIndex: Ptr(toAccount), USDCAmount: amount}, nil)
	return p.submit(ctx, signed, err)
}

// Withdraw moves USDC collateral to the account's L1 address.
func (p *Provider) Withdraw(ctx context.Context, usdcAmount string) (*exchange.SubmissionResult, error) {
	amount, err := ScaleDecimal(usdcAmount, USDCDecimals)
	if err != nil {
		return nil, fmt.Errorf("lighter: withdraw amount: %w", err)
	}
	signed, err := p.client.Withdraw(ctx, WithdrawTxReq{USDCAmount: amount}, nil)
	return p.submit(ctx, signed, err)
}

// NextNonce reports the cached next nonce, asking the exchange on a miss
// without reserving anything.
func (p *Provider) NextNonce(ctx context.Context) (int64, error) {
	if n, ok := p.client.Nonces().Peek(p.client.AccountIndex(), p.client.APIKeyIndex()); ok {
		return n, nil
	}
	t := p.client.Transport()
	if t == nil {
		return 0, &NonceUnavailableError{AccountIndex: p.client.AccountIndex(), APIKeyIndex: p.client.APIKeyIndex()}
	}
	return t.NextNonce(ctx, p.client.AccountIndex(), p.client.APIKeyIndex())
}

// ResyncNonce replaces the cached nonce with the exchange's current value.
// Rejections leave the cache untouched, so callers that know no other build
// on this client is in flight use it to recover after one.
func (p *Provider) ResyncNonce(ctx context.Context) (int64, error) {
	t := p.client.Transport()
	if t == nil {
		return 0, &NonceUnavailableError{AccountIndex: p.client.AccountIndex(), APIKeyIndex: p.client.APIKeyIndex()}
	}
	n, err := t.NextNonce(ctx, p.client.AccountIndex(), p.client.APIKeyIndex())
	if err != nil {
		return 0, err
	}
	p.client.Nonces().Set(p.client.AccountIndex(), p.client.APIKeyIndex(), n)
	return n, nil
}

func (p *Provider) market(index int) (exchange.MarketConfig, error) {
	m, ok := p.cfg.Market(index)
	if !ok {
		return exchange.MarketConfig{}, fmt.Errorf("lighter: market %d not configured", index)
	}
	return m, nil
}

func (p *Provider) submit(ctx context.Context, signed *SignedTx, err error) (*exchange.SubmissionResult, error) {
	if err != nil {
		return nil, err
	}
	resp, err := p.client.SendTx(ctx, signed)
	if err != nil {
		return nil, err
	}
	return &exchange.SubmissionResult{
		Code:    resp.Code,
		Message: resp.Message,
		TxHash:  resp.TxHash,
		TxType:  signed.TxType().String(),
		Nonce:   signed.Nonce(),
		Digest:  signed.Hash(),
	}, nil
}
