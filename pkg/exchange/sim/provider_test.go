package sim_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lighter-api/pkg/exchange"
	"lighter-api/pkg/exchange/sim"
)

func TestProvider_endToEnd(t *testing.T) {
	p, err := sim.New(&exchange.ProviderConfig{
		PrivateKey:   "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a741b52d7c5d5095e2f",
		AccountIndex: 7,
		APIKeyIndex:  2,
		Markets:      []exchange.MarketConfig{{Index: 0, Symbol: "ETH", SizeDecimals: 4, PriceDecimals: 2}},
	})
	require.NoError(t, err)
	ctx := context.Background()

	n, err := p.NextNonce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	res, err := p.PlaceOrder(ctx, exchange.Order{Market: 0, IsBuy: true, Price: "3000", Size: "0.5", ClientOrderID: 1})
	require.NoError(t, err)
	require.True(t, res.Accepted(), res.Message)
	assert.Equal(t, res.Digest, res.TxHash)
	orders := p.Exchange().Orders(7)
	require.Len(t, orders, 1)
	assert.EqualValues(t, 5000, orders[0].BaseAmount)
	assert.EqualValues(t, 300000, orders[0].Price)

	res, err = p.PlaceOrder(ctx, exchange.Order{Market: 0, Price: "2900", Size: "0.1", Kind: exchange.OrderKindMarket, ClientOrderID: 2})
	require.NoError(t, err)
	require.True(t, res.Accepted())
	pos, ok := p.Exchange().Position(7, 0)
	require.True(t, ok)
	assert.EqualValues(t, -1000, pos.Qty)

	res, err = p.Withdraw(ctx, "100000.01")
	require.NoError(t, err)
	assert.Equal(t, sim.CodeInsufficientFunds, res.Code)
	n, err = p.NextNonce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n, "the reserved nonce is not rolled back")
	n, err = p.ResyncNonce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "the simulator consumed no nonce for the rejection")

	res, err = p.UpdateLeverage(ctx, 0, true, 10)
	require.NoError(t, err)
	assert.True(t, res.Accepted())

	res, err = p.CancelAllOrders(ctx)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Empty(t, p.Exchange().Orders(7))

	n, err = p.NextNonce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.Equal(t, 4, p.Exchange().AcceptedCount())
}

func TestNew_rejectsBadKey(t *testing.T) {
	_, err := sim.New(&exchange.ProviderConfig{PrivateKey: "0x00"})
	assert.Error(t, err)
	_, err = sim.New(&exchange.ProviderConfig{PrivateKey: "0x01", Scheme: "unknown"})
	assert.Error(t, err)
}
