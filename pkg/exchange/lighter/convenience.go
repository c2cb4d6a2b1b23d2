package lighter

import (
	"context"
	"fmt"
)

// OrderParams are the fields shared by the convenience order constructors.
type OrderParams struct {
	MarketIndex      uint8
	ClientOrderIndex int64
	BaseAmount       int64
	Price            uint32
	IsAsk            bool
	ReduceOnly       bool
}

func (p OrderParams) request(orderType, tif uint8, trigger uint32, expiry int64) CreateOrderTxReq {
	return CreateOrderTxReq{
		MarketIndex:      p.MarketIndex,
		ClientOrderIndex: p.ClientOrderIndex,
		BaseAmount:       p.BaseAmount,
		Price:            p.Price,
		IsAsk:            p.IsAsk,
		Type:             orderType,
		TimeInForce:      tif,
		ReduceOnly:       p.ReduceOnly,
		TriggerPrice:     trigger,
		OrderExpiry:      expiry,
	}
}

func (c *TxClient) defaultOrderExpiry() int64 {
	return c.clock().Add(DefaultOrderExpiryHorizon).UnixMilli()
}

// CreateLimitOrder signs a good-till-time limit order resting for the default
// order lifetime.
func (c *TxClient) CreateLimitOrder(ctx context.Context, p OrderParams, opts *TransactOpts) (*SignedTx, error) {
	return c.CreateOrder(ctx, p.request(OrderTypeLimit, TimeInForceGoodTillTime, 0, c.defaultOrderExpiry()), opts)
}

// CreateMarketOrder signs an immediate-or-cancel market order. Price is the
// worst acceptable execution price.
func (c *TxClient) CreateMarketOrder(ctx context.Context, p OrderParams, opts *TransactOpts) (*SignedTx, error) {
	return c.CreateOrder(ctx, p.request(OrderTypeMarket, TimeInForceImmediateOrCancel, 0, c.defaultOrderExpiry()), opts)
}

// CreateStopLossOrder executes at market once triggerPrice is crossed.
func (c *TxClient) CreateStopLossOrder(ctx context.Context, p OrderParams, triggerPrice uint32, opts *TransactOpts) (*SignedTx, error) {
	return c.CreateOrder(ctx, p.request(OrderTypeStopLoss, TimeInForceImmediateOrCancel, triggerPrice, c.defaultOrderExpiry()), opts)
}

// CreateStopLossLimitOrder rests at p.Price once triggerPrice is crossed.
func (c *TxClient) CreateStopLossLimitOrder(ctx context.Context, p OrderParams, triggerPrice uint32, opts *TransactOpts) (*SignedTx, error) {
	return c.CreateOrder(ctx, p.request(OrderTypeStopLossLimit, TimeInForceGoodTillTime, triggerPrice, c.defaultOrderExpiry()), opts)
}

func (c *TxClient) CreateTakeProfitOrder(ctx context.Context, p OrderParams, triggerPrice uint32, opts *TransactOpts) (*SignedTx, error) {
	return c.CreateOrder(ctx, p.request(OrderTypeTakeProfit, TimeInForceImmediateOrCancel, triggerPrice, c.defaultOrderExpiry()), opts)
}

func (c *TxClient) CreateTakeProfitLimitOrder(ctx context.Context, p OrderParams, triggerPrice uint32, opts *TransactOpts) (*SignedTx, error) {
	return c.CreateOrder(ctx, p.request(OrderTypeTakeProfitLimit, TimeInForceGoodTillTime, triggerPrice, c.defaultOrderExpiry()), opts)
}

// LeverageToMarginFraction converts a leverage multiplier into the initial
// margin fraction the exchange expects (10_000 / leverage).
func LeverageToMarginFraction(leverage uint16) (uint16, error) {
	if leverage == 0 {
		return 0, &EncodingError{Field: "Leverage", Value: leverage, Reason: "must be at least 1"}
	}
	return uint16(MarginFractionDenominator / uint32(leverage)), nil
}

// UpdateLeverageWithMultiplier signs an UpdateLeverage from a plain
// multiplier such as 5 for 5x.
func (c *TxClient) UpdateLeverageWithMultiplier(ctx context.Context, market uint8, leverage uint16, marginMode uint8, opts *TransactOpts) (*SignedTx, error) {
	imf, err := LeverageToMarginFraction(leverage)
	if err != nil {
		return nil, err
	}
	if marginMode != MarginModeCross && marginMode != MarginModeIsolated {
		return nil, &EncodingError{Field: "MarginMode", Value: marginMode, Reason: fmt.Sprintf("unknown margin mode %d", marginMode)}
	}
	return c.UpdateLeverage(ctx, UpdateLeverageTxReq{
		MarketIndex:           market,
		InitialMarginFraction: imf,
		MarginMode:            marginMode,
	}, opts)
}
