package lighter

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestEncodeInfo_createOrderLayout(t *testing.T) {
	env := fixtureEnvelope(1)
	env.Sig = []byte{0xde, 0xad, 0xbe, 0xef}
	tx := &CreateOrderTxInfo{
		Envelope: env,
		CreateOrderTxReq: CreateOrderTxReq{
			MarketIndex:      2,
			ClientOrderIndex: 12,
			BaseAmount:       100,
			Price:            3_000_000_000,
			IsAsk:            true,
			TimeInForce:      TimeInForceGoodTillTime,
			OrderExpiry:      fixtureOrderExpiry,
		},
	}
	payload, err := encodeInfo(tx)
	require.NoError(t, err)
	assert.Equal(t, TxTypeCreateOrder, payload.TxType)
	assert.Equal(t,
		`{"AccountIndex":65,"ApiKeyIndex":3,"MarketIndex":2,"ClientOrderIndex":12,"BaseAmount":100,"Price":3000000000,"IsAsk":1,"Type":0,"TimeInForce":1,"ReduceOnly":0,"TriggerPrice":0,"OrderExpiry":1702419200000,"ExpiredAt":1700000599000,"Nonce":1,"Sig":"3q2+7w=="}`,
		string(payload.TxInfo))

	form := payload.Form()
	assert.Equal(t, "14", form.Get("tx_type"))
	assert.Equal(t, string(payload.TxInfo), form.Get("tx_info"))
}

func TestEncodeInfo_transferUsesFromAccountIndex(t *testing.T) {
	env := fixtureEnvelope(2)
	env.Sig = []byte{1}
	tx := &TransferTxInfo{Envelope: env, TransferTxReq: TransferTxReq{ToAccountIndex: Ptr[int64](7), USDCAmount: 5}}
	tx.Memo[31] = 0xab
	payload, err := encodeInfo(tx)
	require.NoError(t, err)

	info := gjson.ParseBytes(payload.TxInfo)
	assert.EqualValues(t, 65, info.Get("FromAccountIndex").Int())
	assert.False(t, info.Get("AccountIndex").Exists())
	assert.Equal(t, "00000000000000000000000000000000000000000000000000000000000000ab", info.Get("Memo").String())

	keys := make([]string, 0)
	info.ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	assert.Equal(t, []string{"FromAccountIndex", "ApiKeyIndex", "ToAccountIndex", "USDCAmount", "Fee", "Memo", "ExpiredAt", "Nonce", "Sig"}, keys)
}

func TestEncodeInfo_requiresSignature(t *testing.T) {
	_, err := encodeInfo(&WithdrawTxInfo{Envelope: fixtureEnvelope(1)})
	assert.ErrorContains(t, err, "Sig")
}

func TestWireRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	nonce := &TransactOpts{Nonce: Ptr[int64](11)}
	newKeys := mustKeys(t, otherPrivateKey)

	var memo [MemoLength]byte
	copy(memo[:], "rent")
	builders := map[string]func() (*SignedTx, error){
		"create order": func() (*SignedTx, error) {
			return c.CreateLimitOrder(ctx, OrderParams{MarketIndex: 3, ClientOrderIndex: 1, BaseAmount: 50, Price: 1234, ReduceOnly: true}, nonce)
		},
		"cancel order":  func() (*SignedTx, error) { return c.CancelOrder(ctx, CancelOrderTxReq{MarketIndex: 3, Index: Ptr[int64](1)}, nonce) },
		"cancel all":    func() (*SignedTx, error) { return c.CancelAllOrders(ctx, CancelAllOrdersTxReq{TimeInForce: 1, Time: 99}, nonce) },
		"modify order":  func() (*SignedTx, error) { return c.ModifyOrder(ctx, ModifyOrderTxReq{MarketIndex: 3, Index: Ptr[int64](1), BaseAmount: 60, Price: 1300}, nonce) },
		"transfer":      func() (*SignedTx, error) { return c.Transfer(ctx, TransferTxReq{ToAccountIndex: Ptr[int64](8), USDCAmount: 1 << 40, Fee: 2, Memo: memo}, nonce) },
		"withdraw":      func() (*SignedTx, error) { return c.Withdraw(ctx, WithdrawTxReq{USDCAmount: 77}, nonce) },
		"create pool":   func() (*SignedTx, error) { return c.CreatePublicPool(ctx, CreatePublicPoolTxReq{OperatorFee: 100, InitialTotalShares: 1000, MinOperatorShareRate: 10}, nonce) },
		"mint shares":   func() (*SignedTx, error) { return c.MintShares(ctx, PoolSharesTxReq{PublicPoolIndex: Ptr[int64](4), ShareAmount: 5}, nonce) },
		"burn shares":   func() (*SignedTx, error) { return c.BurnShares(ctx, PoolSharesTxReq{PublicPoolIndex: Ptr[int64](4), ShareAmount: 5}, nonce) },
		"leverage":      func() (*SignedTx, error) { return c.UpdateLeverageWithMultiplier(ctx, 3, 10, MarginModeIsolated, nonce) },
		"change pubkey": func() (*SignedTx, error) { return c.ChangePubKey(ctx, ChangePubKeyTxReq{PubKey: newKeys.PublicKey(), L1Sig: "0x01"}, nonce) },
	}
	require.Len(t, builders, len(wireFields))

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			signed, err := build()
			require.NoError(t, err)
			payload, err := EncodeTx(signed)
			require.NoError(t, err)

			decoded, err := DecodeTx(payload.TxType, payload.TxInfo, c.ChainID())
			require.NoError(t, err)
			assert.Equal(t, signed.Info(), decoded)

			elems, err := BuildPreimage(decoded)
			require.NoError(t, err)
			digest, err := Secp256k1Scheme{}.Hash(elems)
			require.NoError(t, err)
			assert.Equal(t, signed.Digest(), digest, "decoded tx hashes to the signed digest")
		})
	}
}

func TestDecodeTx_rejectsMalformed(t *testing.T) {
	sig := base64.StdEncoding.EncodeToString([]byte{1, 2})
	valid := `{"FromAccountIndex":1,"ApiKeyIndex":0,"USDCAmount":5,"ExpiredAt":10,"Nonce":0,"Sig":"` + sig + `"}`
	tx, err := DecodeTx(TxTypeWithdraw, []byte(valid), TestnetChainID)
	require.NoError(t, err)
	assert.EqualValues(t, TestnetChainID, EnvelopeOf(tx).ChainID)

	cases := map[string]struct {
		txType TxType
		body   string
	}{
		"unknown type":  {TxType(2), valid},
		"not json":      {TxTypeWithdraw, `{`},
		"not object":    {TxTypeWithdraw, `[1]`},
		"missing field": {TxTypeWithdraw, `{"FromAccountIndex":1}`},
		"float amount":  {TxTypeWithdraw, `{"FromAccountIndex":1,"ApiKeyIndex":0,"USDCAmount":5.5,"ExpiredAt":10,"Nonce":0,"Sig":"AQI="}`},
		"string amount": {TxTypeWithdraw, `{"FromAccountIndex":1,"ApiKeyIndex":0,"USDCAmount":"5","ExpiredAt":10,"Nonce":0,"Sig":"AQI="}`},
		"key overflow":  {TxTypeWithdraw, `{"FromAccountIndex":1,"ApiKeyIndex":256,"USDCAmount":5,"ExpiredAt":10,"Nonce":0,"Sig":"AQI="}`},
		"bad sig":       {TxTypeWithdraw, `{"FromAccountIndex":1,"ApiKeyIndex":0,"USDCAmount":5,"ExpiredAt":10,"Nonce":0,"Sig":"!!"}`},
		"bad flag": {TxTypeCreateOrder, `{"AccountIndex":1,"ApiKeyIndex":0,"MarketIndex":0,"ClientOrderIndex":0,"BaseAmount":1,"Price":1,"IsAsk":true,` +
			`"Type":0,"TimeInForce":0,"ReduceOnly":0,"TriggerPrice":0,"OrderExpiry":1,"ExpiredAt":1,"Nonce":0,"Sig":"AQI="}`},
		"short memo": {TxTypeTransfer, `{"FromAccountIndex":1,"ApiKeyIndex":0,"ToAccountIndex":2,"USDCAmount":1,"Fee":0,"Memo":"ab","ExpiredAt":1,"Nonce":0,"Sig":"AQI="}`},
	}
	for name, tc := range cases {
		_, err := DecodeTx(tc.txType, []byte(tc.body), MainnetChainID)
		assert.Error(t, err, name)
	}
}

func TestDecodeTx_nullIndex(t *testing.T) {
	body := `{"AccountIndex":1,"ApiKeyIndex":0,"MarketIndex":0,"Index":null,"ExpiredAt":1,"Nonce":0,"Sig":"AQI="}`
	tx, err := DecodeTx(TxTypeCancelOrder, []byte(body), MainnetChainID)
	require.NoError(t, err)
	assert.Nil(t, tx.(*CancelOrderTxInfo).Index)

	_, err = BuildPreimage(tx)
	var missing *MissingFieldError
	assert.ErrorAs(t, err, &missing)
}

func TestBatchForm(t *testing.T) {
	payloads := []WirePayload{
		{TxType: TxTypeCancelOrder, TxInfo: []byte(`{"a":1}`)},
		{TxType: TxTypeWithdraw, TxInfo: []byte(`{"b":"x"}`)},
	}
	form, err := BatchForm(payloads)
	require.NoError(t, err)
	assert.Equal(t, "[15,13]", form.Get("tx_types"))
	assert.Equal(t, `["{\"a\":1}","{\"b\":\"x\"}"]`, form.Get("tx_infos"))

	infos := gjson.Parse(form.Get("tx_infos")).Array()
	require.Len(t, infos, 2)
	assert.Equal(t, `{"b":"x"}`, infos[1].String())
}
