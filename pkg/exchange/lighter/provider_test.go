package lighter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lighter-api/pkg/exchange"
)

func newTestProvider(t *testing.T, transport Transport) *Provider {
	t.Helper()
	cfg := exchange.ProviderConfig{
		Type:         "lighter",
		Scheme:       Secp256k1Scheme{}.Name(),
		PrivateKey:   testPrivateKey,
		AccountIndex: 65,
		APIKeyIndex:  3,
		Markets: []exchange.MarketConfig{
			{Index: 0, Symbol: "ETH", SizeDecimals: 4, PriceDecimals: 2},
		},
	}
	p, err := NewProviderFromConfig(&cfg, transport, WithClock(fixedClock))
	require.NoError(t, err)
	return p
}

// decodedPayload captures the logical fields of the last submitted payload.
func decodedPayload(t *testing.T, m *mockTransport) TxInfo {
	t.Helper()
	var last WirePayload
	for _, call := range m.Calls {
		if call.Method == "SendTx" {
			last = call.Arguments.Get(1).(WirePayload)
		}
	}
	info, err := DecodeTx(last.TxType, last.TxInfo, MainnetChainID)
	require.NoError(t, err)
	return info
}

func TestNewProviderFromConfig(t *testing.T) {
	p := newTestProvider(t, &mockTransport{})
	c := p.Client()
	assert.Equal(t, MainnetChainID, c.ChainID())
	assert.EqualValues(t, 65, c.AccountIndex())
	assert.EqualValues(t, 3, c.APIKeyIndex())
	assert.Equal(t, "ETH", p.Config().Markets[0].Symbol)

	testnet, err := NewProviderFromConfig(&exchange.ProviderConfig{PrivateKey: testPrivateKey, Testnet: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, TestnetChainID, testnet.Client().ChainID())
	ht, ok := testnet.Client().Transport().(*HTTPTransport)
	require.True(t, ok)
	assert.Equal(t, TestnetBaseURL, ht.BaseURL())

	_, err = NewProviderFromConfig(&exchange.ProviderConfig{PrivateKey: testPrivateKey, Scheme: "poseidon"}, nil)
	assert.Error(t, err)
	_, err = NewProviderFromConfig(&exchange.ProviderConfig{PrivateKey: testPrivateKey, L1PrivateKey: "zz"}, nil)
	var keyErr *InvalidKeyError
	assert.ErrorAs(t, err, &keyErr)
}

func TestProvider_PlaceOrder(t *testing.T) {
	m := &mockTransport{}
	m.On("NextNonce", mock.Anything, int64(65), uint8(3)).Return(int64(12), nil).Once()
	m.On("SendTx", mock.Anything, mock.Anything).Return(&TxResponse{Code: CodeOK, TxHash: "0xfeed"}, nil)
	p := newTestProvider(t, m)

	res, err := p.PlaceOrder(context.Background(), exchange.Order{
		Market:        0,
		IsBuy:         true,
		Price:         "3000.5",
		Size:          "0.15",
		ClientOrderID: 7,
	})
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, "0xfeed", res.TxHash)
	assert.Equal(t, "CreateOrder", res.TxType)
	assert.EqualValues(t, 12, res.Nonce)
	assert.Len(t, res.Digest, 64)

	order := decodedPayload(t, m).(*CreateOrderTxInfo)
	assert.EqualValues(t, 1500, order.BaseAmount)
	assert.EqualValues(t, 300050, order.Price)
	assert.False(t, order.IsAsk)
	assert.EqualValues(t, 7, order.ClientOrderIndex)
	assert.Equal(t, OrderTypeLimit, order.Type)
	m.AssertExpectations(t)
}

func TestProvider_SignOrder_kinds(t *testing.T) {
	p := newTestProvider(t, nil)
	ctx := context.Background()
	opts := &TransactOpts{Nonce: Ptr[int64](1)}

	for kind, want := range map[exchange.OrderKind]uint8{
		exchange.OrderKindMarket:          OrderTypeMarket,
		exchange.OrderKindStopLoss:        OrderTypeStopLoss,
		exchange.OrderKindStopLossLimit:   OrderTypeStopLossLimit,
		exchange.OrderKindTakeProfit:      OrderTypeTakeProfit,
		exchange.OrderKindTakeProfitLimit: OrderTypeTakeProfitLimit,
	} {
		signed, err := p.SignOrder(ctx, exchange.Order{Size: "1", Price: "2000", TriggerPrice: "1900", Kind: kind}, opts)
		require.NoError(t, err, kind)
		info := signed.Info().(*CreateOrderTxInfo)
		assert.Equal(t, want, info.Type, kind)
		assert.EqualValues(t, 190000, info.TriggerPrice, kind)
	}

	_, err := p.SignOrder(ctx, exchange.Order{Size: "1", Price: "1", Kind: "twap"}, opts)
	assert.ErrorContains(t, err, "unsupported order kind")
	_, err = p.SignOrder(ctx, exchange.Order{Market: 9, Size: "1", Price: "1"}, opts)
	assert.ErrorContains(t, err, "market 9 not configured")
	_, err = p.SignOrder(ctx, exchange.Order{Size: "0.00001", Price: "1"}, opts)
	assert.ErrorContains(t, err, "order size")
	_, err = p.SignOrder(ctx, exchange.Order{Size: "1", Price: "1.001"}, opts)
	assert.ErrorContains(t, err, "order price")
}

func TestProvider_accountOperations(t *testing.T) {
	m := &mockTransport{}
	m.On("NextNonce", mock.Anything, int64(65), uint8(3)).Return(int64(0), nil).Once()
	m.On("SendTx", mock.Anything, mock.Anything).Return(&TxResponse{Code: CodeOK}, nil)
	p := newTestProvider(t, m)
	ctx := context.Background()

	res, err := p.Transfer(ctx, 99, "12.5")
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	transfer := decodedPayload(t, m).(*TransferTxInfo)
	assert.EqualValues(t, 12_500_000, transfer.USDCAmount)
	assert.EqualValues(t, 99, *transfer.ToAccountIndex)

	_, err = p.Withdraw(ctx, "1")
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, decodedPayload(t, m).(*WithdrawTxInfo).USDCAmount)

	_, err = p.UpdateLeverage(ctx, 0, true, 5)
	require.NoError(t, err)
	lev := decodedPayload(t, m).(*UpdateLeverageTxInfo)
	assert.EqualValues(t, 2000, lev.InitialMarginFraction)
	assert.Equal(t, MarginModeCross, lev.MarginMode)

	_, err = p.ModifyOrder(ctx, exchange.ModifyRequest{Market: 0, Index: 44, Price: "10", Size: "2"})
	require.NoError(t, err)
	mod := decodedPayload(t, m).(*ModifyOrderTxInfo)
	assert.EqualValues(t, 44, *mod.Index)
	assert.EqualValues(t, 20000, mod.BaseAmount)

	_, err = p.CancelOrder(ctx, 0, 44)
	require.NoError(t, err)
	_, err = p.CancelAllOrders(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(6), mustPeek(t, p))

	_, err = p.CancelOrder(ctx, 256, 1)
	assert.True(t, IsBuildError(err))
	_, err = p.UpdateLeverage(ctx, 0, false, 0)
	assert.True(t, IsBuildError(err))
	_, err = p.Transfer(ctx, 1, "0.0000001")
	assert.Error(t, err)
	assert.Equal(t, int64(6), mustPeek(t, p), "local failures consume no nonce")
	m.AssertNumberOfCalls(t, "NextNonce", 1)
}

func TestProvider_rejectionKeepsReservedNonces(t *testing.T) {
	m := &mockTransport{}
	m.On("NextNonce", mock.Anything, int64(65), uint8(3)).Return(int64(4), nil).Once()
	m.On("SendTx", mock.Anything, mock.Anything).Return(&TxResponse{Code: 21701, Message: "invalid base amount"}, nil).Once()
	m.On("SendTx", mock.Anything, mock.Anything).Return(&TxResponse{Code: CodeOK}, nil)
	p := newTestProvider(t, m)
	ctx := context.Background()

	first, err := p.Client().Withdraw(ctx, WithdrawTxReq{USDCAmount: 5_000_000}, nil)
	require.NoError(t, err)
	held, err := p.Client().Withdraw(ctx, WithdrawTxReq{USDCAmount: 5_000_000}, nil)
	require.NoError(t, err)
	require.EqualValues(t, 4, first.Nonce())
	require.EqualValues(t, 5, held.Nonce())

	res, err := p.submit(ctx, first, nil)
	require.NoError(t, err, "rejections are data")
	assert.Equal(t, 21701, res.Code)
	assert.EqualValues(t, 4, res.Nonce)
	next, cached := p.Client().Nonces().Peek(65, 3)
	require.True(t, cached, "a rejection leaves the cache alone")
	assert.EqualValues(t, 6, next)

	seen := map[int64]bool{first.Nonce(): true, held.Nonce(): true}
	for i := 0; i < 2; i++ {
		res, err := p.Withdraw(ctx, "5")
		require.NoError(t, err)
		assert.True(t, res.Accepted())
		assert.False(t, seen[res.Nonce], "nonce %d handed out twice", res.Nonce)
		seen[res.Nonce] = true
	}
	m.AssertNumberOfCalls(t, "NextNonce", 1)
	m.AssertExpectations(t)
}

func TestProvider_ResyncNonce(t *testing.T) {
	m := &mockTransport{}
	m.On("NextNonce", mock.Anything, int64(65), uint8(3)).Return(int64(4), nil).Once()
	m.On("NextNonce", mock.Anything, int64(65), uint8(3)).Return(int64(4), nil).Once()
	m.On("SendTx", mock.Anything, mock.Anything).Return(&TxResponse{Code: 21701}, nil).Once()
	m.On("SendTx", mock.Anything, mock.Anything).Return(&TxResponse{Code: CodeOK}, nil).Once()
	p := newTestProvider(t, m)
	ctx := context.Background()

	res, err := p.Withdraw(ctx, "5")
	require.NoError(t, err)
	require.False(t, res.Accepted())

	n, err := p.ResyncNonce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.Equal(t, int64(4), mustPeek(t, p))

	res, err = p.Withdraw(ctx, "5")
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.EqualValues(t, 4, res.Nonce)
	m.AssertExpectations(t)

	offline := NewProvider(newTestClient(t), p.Config())
	_, err = offline.ResyncNonce(ctx)
	var unavailable *NonceUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func mustPeek(t *testing.T, p *Provider) int64 {
	t.Helper()
	n, err := p.NextNonce(context.Background())
	require.NoError(t, err)
	return n
}

func TestProvider_NextNonce(t *testing.T) {
	m := &mockTransport{}
	m.On("NextNonce", mock.Anything, int64(65), uint8(3)).Return(int64(30), nil)
	p := newTestProvider(t, m)

	n, err := p.NextNonce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 30, n)
	_, ok := p.Client().Nonces().Peek(65, 3)
	assert.False(t, ok, "peeking must not reserve or cache")

	offline := NewProvider(newTestClient(t), newTestProvider(t, m).Config())
	_, err = offline.NextNonce(context.Background())
	var unavailable *NonceUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}
