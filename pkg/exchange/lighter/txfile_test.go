package lighter

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestTxFile_roundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	cancel, err := c.CancelOrder(ctx, CancelOrderTxReq{MarketIndex: 1, Index: Ptr[int64](42)}, &TransactOpts{Nonce: Ptr[int64](10)})
	require.NoError(t, err)
	withdraw, err := c.Withdraw(ctx, WithdrawTxReq{USDCAmount: 1_000_000}, &TransactOpts{Nonce: Ptr[int64](11)})
	require.NoError(t, err)

	f, err := NewTxFile(MainnetChainID, cancel, withdraw)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.WriteTo(&buf))

	read, err := ReadTxFile(&buf)
	require.NoError(t, err)
	assert.Equal(t, MainnetChainID, read.ChainID)
	require.Len(t, read.Payloads, 2)
	assert.Equal(t, TxTypeCancelOrder, read.Payloads[0].TxType)
	assert.Equal(t, TxTypeWithdraw, read.Payloads[1].TxType)

	txs, err := read.Transactions()
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, cancel.Info(), txs[0])
	assert.Equal(t, withdraw.Info(), txs[1])
}

func TestNewTxFile_chainMismatch(t *testing.T) {
	signed, err := newTestClient(t).Withdraw(context.Background(), WithdrawTxReq{USDCAmount: 1}, &TransactOpts{Nonce: Ptr[int64](1)})
	require.NoError(t, err)
	_, err = NewTxFile(TestnetChainID, signed)
	assert.ErrorContains(t, err, "chain")
}

func TestNewTxFile_nilEntry(t *testing.T) {
	signed, err := newTestClient(t).Withdraw(context.Background(), WithdrawTxReq{USDCAmount: 1}, &TransactOpts{Nonce: Ptr[int64](1)})
	require.NoError(t, err)
	var f *TxFile
	require.NotPanics(t, func() {
		f, err = NewTxFile(MainnetChainID, signed, nil)
	})
	assert.Nil(t, f)
	assert.ErrorContains(t, err, "entry 1 is nil")
}

func TestReadTxFile_rejects(t *testing.T) {
	_, err := ReadTxFile(bytes.NewReader([]byte("not msgpack")))
	assert.Error(t, err)

	body, err := msgpack.Marshal(&TxFile{Version: 99, ChainID: MainnetChainID})
	require.NoError(t, err)
	_, err = ReadTxFile(bytes.NewReader(body))
	assert.ErrorContains(t, err, "version 99")

	body, err = msgpack.Marshal(&TxFile{Version: txFileVersion, ChainID: MainnetChainID, Payloads: []WirePayload{
		{TxType: TxTypeWithdraw, TxInfo: []byte(`{"broken"`)},
	}})
	require.NoError(t, err)
	f, err := ReadTxFile(bytes.NewReader(body))
	require.NoError(t, err)
	_, err = f.Transactions()
	assert.ErrorContains(t, err, "entry 0")
}
