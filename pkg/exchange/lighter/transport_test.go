package lighter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*HTTPTransport, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	transport, err := NewHTTPTransport(server.URL + "/")
	require.NoError(t, err)
	return transport, server
}

func TestNewHTTPTransport(t *testing.T) {
	_, err := NewHTTPTransport("  ")
	assert.Error(t, err)
	_, err = NewHTTPTransport("not a url")
	assert.Error(t, err)

	tr, err := NewHTTPTransport(TestnetBaseURL + "/")
	require.NoError(t, err)
	assert.Equal(t, TestnetBaseURL, tr.BaseURL())
}

func TestHTTPTransport_SendTx(t *testing.T) {
	var got url.Values
	transport, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, pathSendTx, r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		got = r.PostForm
		w.Write([]byte(`{"code":200,"message":"ok","tx_hash":"abc"}`))
	})

	payload := WirePayload{TxType: TxTypeWithdraw, TxInfo: []byte(`{"x":1}`)}
	resp, err := transport.SendTx(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, resp.Accepted())
	assert.Equal(t, "abc", resp.TxHash)
	assert.Equal(t, "13", got.Get("tx_type"))
	assert.Equal(t, `{"x":1}`, got.Get("tx_info"))
}

func TestHTTPTransport_responseClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantCode   int
		wantStatus int
		transport  bool
	}{
		{name: "accepted", status: 200, body: `{"code":200,"tx_hash":"h"}`, wantCode: 200},
		{name: "rejected in 200", status: 200, body: `{"code":21120,"message":"invalid signature"}`, wantCode: 21120},
		{name: "rejected in 400", status: 400, body: `{"code":21109,"message":"api key not found"}`, wantCode: 21109},
		{name: "html error page", status: 502, body: `<html>bad gateway</html>`, transport: true, wantStatus: 502},
		{name: "json without code", status: 200, body: `{"error":"nope"}`, transport: true},
		{name: "string code", status: 200, body: `{"code":"200"}`, transport: true},
		{name: "empty body", status: 500, body: ``, transport: true, wantStatus: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			resp, err := transport.SendTx(context.Background(), WirePayload{TxType: TxTypeWithdraw, TxInfo: []byte(`{}`)})
			if tt.transport {
				var te *TransportError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, tt.wantStatus, te.StatusCode)
				assert.Equal(t, "send tx", te.Op)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestHTTPTransport_connectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	transport, err := NewHTTPTransport(server.URL)
	require.NoError(t, err)
	server.Close()

	_, err = transport.SendTx(context.Background(), WirePayload{TxType: TxTypeWithdraw, TxInfo: []byte(`{}`)})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "sendTx", te.Op)
	assert.NotNil(t, te.Err)
}

func TestHTTPTransport_SendTxBatch(t *testing.T) {
	transport, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathSendTxBatch, r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "[15,15]", r.PostForm.Get("tx_types"))
		assert.Equal(t, `["{}","{}"]`, r.PostForm.Get("tx_infos"))
		w.Write([]byte(`{"code":200,"tx_hash":["a","b"]}`))
	})
	resp, err := transport.SendTxBatch(context.Background(), []WirePayload{
		{TxType: TxTypeCancelOrder, TxInfo: []byte(`{}`)},
		{TxType: TxTypeCancelOrder, TxInfo: []byte(`{}`)},
	})
	require.NoError(t, err)
	assert.True(t, resp.Accepted())
	assert.Equal(t, []string{"a", "b"}, resp.TxHash)

	_, err = transport.SendTxBatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestHTTPTransport_NextNonce(t *testing.T) {
	transport, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, pathNextNonce, r.URL.Path)
		if r.URL.Query().Get("account_index") == "404" {
			w.Write([]byte(`{"code":21100,"message":"account not found"}`))
			return
		}
		assert.Equal(t, "65", r.URL.Query().Get("account_index"))
		assert.Equal(t, "3", r.URL.Query().Get("api_key_index"))
		w.Write([]byte(`{"code":200,"nonce":17}`))
	})

	n, err := transport.NextNonce(context.Background(), 65, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 17, n)

	_, err = transport.NextNonce(context.Background(), 404, 0)
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorContains(t, err, "21100")
}

func TestHTTPTransport_contextCancelled(t *testing.T) {
	transport, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"nonce":1}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := transport.NextNonce(ctx, 1, 0)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestHTTPTransport_rateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"nonce":1}`))
	}))
	defer server.Close()
	transport, err := NewHTTPTransport(server.URL, WithRateLimit(1, 1))
	require.NoError(t, err)

	_, err = transport.NextNonce(context.Background(), 1, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = transport.NextNonce(ctx, 1, 0)
	var te *TransportError
	assert.ErrorAs(t, err, &te, "second call within the same second cannot get a token before the deadline")
}

func TestHTTPTransport_metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	codes := []string{`{"code":200}`, `{"code":21120}`, `oops`}
	i := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(codes[i]))
		i++
	}))
	defer server.Close()
	transport, err := NewHTTPTransport(server.URL, WithMetrics(metrics), WithTransportLogger(NopLogger()))
	require.NoError(t, err)

	for range codes {
		_, _ = transport.SendTx(context.Background(), WirePayload{TxType: TxTypeWithdraw, TxInfo: []byte(`{}`)})
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Submissions.WithLabelValues("Withdraw", outcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Submissions.WithLabelValues("Withdraw", outcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Submissions.WithLabelValues("Withdraw", outcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.RequestSeconds))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.observeSubmission("x", nil, nil)
		nilMetrics.observeNonce(nil)
		nilMetrics.observeLatency("x", time.Now())
		nilMetrics.observeBatch([]WirePayload{{TxType: TxTypeWithdraw}}, nil, nil)
	})
}

func TestHTTPTransport_batchMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	bodies := []string{
		`{"code":200,"tx_hash":["0x1","0x2"]}`,
		`{"code":21120,"message":"invalid signature","tx_hash":["0x3"]}`,
		`oops`,
	}
	i := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bodies[i]))
		i++
	}))
	defer server.Close()
	transport, err := NewHTTPTransport(server.URL, WithMetrics(metrics), WithTransportLogger(NopLogger()))
	require.NoError(t, err)

	batch := []WirePayload{
		{TxType: TxTypeCreateOrder, TxInfo: []byte(`{}`)},
		{TxType: TxTypeCancelOrder, TxInfo: []byte(`{}`)},
	}
	for range bodies {
		_, _ = transport.SendTxBatch(context.Background(), batch)
	}

	count := func(txType, outcome string) float64 {
		return testutil.ToFloat64(metrics.Submissions.WithLabelValues(txType, outcome))
	}
	assert.Equal(t, 2.0, count("CreateOrder", outcomeAccepted), "hashed entries of a rejected batch count as accepted")
	assert.Equal(t, 1.0, count("CancelOrder", outcomeAccepted))
	assert.Equal(t, 1.0, count("CancelOrder", outcomeRejected))
	assert.Equal(t, 0.0, count("CreateOrder", outcomeRejected))
	assert.Equal(t, 1.0, count("CreateOrder", outcomeError))
	assert.Equal(t, 1.0, count("CancelOrder", outcomeError))
}
