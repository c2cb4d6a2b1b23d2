package lighter

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fixedNow is the reference time of client tests: 2023-11-14T22:13:20Z.
var fixedNow = time.UnixMilli(1_700_000_000_000)

func fixedClock() time.Time { return fixedNow }

func newTestClient(t *testing.T, opts ...ClientOption) *TxClient {
	t.Helper()
	c, err := NewTxClient(mustKeys(t, testPrivateKey), MainnetChainID, 65, 3, append([]ClientOption{WithClock(fixedClock)}, opts...)...)
	require.NoError(t, err)
	return c
}

func mustECDSA(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	require.NoError(t, err)
	return key
}

// mockTransport is a testify mock of Transport.
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) NextNonce(ctx context.Context, accountIndex int64, apiKeyIndex uint8) (int64, error) {
	args := m.Called(ctx, accountIndex, apiKeyIndex)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTransport) SendTx(ctx context.Context, payload WirePayload) (*TxResponse, error) {
	args := m.Called(ctx, payload)
	resp, _ := args.Get(0).(*TxResponse)
	return resp, args.Error(1)
}

func (m *mockTransport) SendTxBatch(ctx context.Context, payloads []WirePayload) (*BatchTxResponse, error) {
	args := m.Called(ctx, payloads)
	resp, _ := args.Get(0).(*BatchTxResponse)
	return resp, args.Error(1)
}
