package lighter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	MainnetBaseURL = "https://mainnet.zklighter.elliot.ai"
	TestnetBaseURL = "https://testnet.zklighter.elliot.ai"

	pathSendTx      = "/api/v1/sendTx"
	pathSendTxBatch = "/api/v1/sendTxBatch"
	pathNextNonce   = "/api/v1/nextNonce"

	defaultHTTPTimeout = 30 * time.Second
	maxResponseBytes   = 1 << 20
)

// Transport delivers wire payloads and looks up nonces.
type Transport interface {
	NonceFetcher
	SendTx(ctx context.Context, payload WirePayload) (*TxResponse, error)
	SendTxBatch(ctx context.Context, payloads []WirePayload) (*BatchTxResponse, error)
}

// HTTPTransport talks to the exchange REST API. It never retries; timeouts
// come from the configured http.Client and the caller's context.
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *Metrics
	logger     Logger
}

// TransportOption customises HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		if httpClient != nil {
			t.httpClient = httpClient
		}
	}
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) TransportOption {
	return func(t *HTTPTransport) {
		if rps <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics records submission outcomes and latency.
func WithMetrics(m *Metrics) TransportOption {
	return func(t *HTTPTransport) { t.metrics = m }
}

// WithTransportLogger attaches a logger.
func WithTransportLogger(l Logger) TransportOption {
	return func(t *HTTPTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewHTTPTransport constructs a transport rooted at baseURL.
func NewHTTPTransport(baseURL string, opts ...TransportOption) (*HTTPTransport, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("lighter: base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("lighter: invalid base url %q: %w", baseURL, err)
	}
	t := &HTTPTransport{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     NopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// BaseURL returns the API root.
func (t *HTTPTransport) BaseURL() string { return t.baseURL }

// SendTx posts one signed transaction. A response carrying the exchange
// envelope is returned as data whatever its code or HTTP status.
func (t *HTTPTransport) SendTx(ctx context.Context, payload WirePayload) (*TxResponse, error) {
	body, status, err := t.do(ctx, http.MethodPost, pathSendTx, payload.Form())
	if err == nil {
		var resp *TxResponse
		resp, err = decodeEnvelope[TxResponse]("send tx", body, status)
		if err == nil {
			t.metrics.observeSubmission(payload.TxType.String(), resp, nil)
			t.logger.Info(ctx, "lighter tx submitted", Fields{
				"tx_type": payload.TxType.String(),
				"code":    resp.Code,
				"tx_hash": resp.TxHash,
			})
			return resp, nil
		}
	}
	t.metrics.observeSubmission(payload.TxType.String(), nil, err)
	t.logger.Error(ctx, err, Fields{"tx_type": payload.TxType.String()})
	return nil, err
}

// SendTxBatch posts several signed transactions in one request.
func (t *HTTPTransport) SendTxBatch(ctx context.Context, payloads []WirePayload) (*BatchTxResponse, error) {
	if len(payloads) == 0 {
		return nil, fmt.Errorf("lighter: at least one transaction required")
	}
	form, err := BatchForm(payloads)
	if err != nil {
		return nil, err
	}
	body, status, err := t.do(ctx, http.MethodPost, pathSendTxBatch, form)
	if err == nil {
		var resp *BatchTxResponse
		resp, err = decodeEnvelope[BatchTxResponse]("send tx batch", body, status)
		if err == nil {
			t.metrics.observeBatch(payloads, resp, nil)
			t.logger.Info(ctx, "lighter batch submitted", Fields{
				"count":   len(payloads),
				"code":    resp.Code,
				"tx_hash": len(resp.TxHash),
			})
			return resp, nil
		}
	}
	t.metrics.observeBatch(payloads, nil, err)
	t.logger.Error(ctx, err, Fields{"count": len(payloads)})
	return nil, err
}

type nonceResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Nonce   int64  `json:"nonce"`
}

// NextNonce asks the exchange for the next unused nonce of the pair.
func (t *HTTPTransport) NextNonce(ctx context.Context, accountIndex int64, apiKeyIndex uint8) (int64, error) {
	query := url.Values{
		"account_index": {strconv.FormatInt(accountIndex, 10)},
		"api_key_index": {strconv.Itoa(int(apiKeyIndex))},
	}
	body, status, err := t.do(ctx, http.MethodGet, pathNextNonce, query)
	if err == nil {
		var resp *nonceResponse
		resp, err = decodeEnvelope[nonceResponse]("next nonce", body, status)
		if err == nil && resp.Code != CodeOK {
			err = fmt.Errorf("lighter: next nonce: %w", (&TxResponse{Code: resp.Code, Message: resp.Message}).Err())
		}
		if err == nil {
			t.metrics.observeNonce(nil)
			t.logger.Debug(ctx, "lighter nonce fetched", Fields{
				"account_index": accountIndex,
				"api_key_index": apiKeyIndex,
				"nonce":         resp.Nonce,
			})
			return resp.Nonce, nil
		}
	}
	t.metrics.observeNonce(err)
	return 0, err
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, params url.Values) ([]byte, int, error) {
	op := strings.TrimPrefix(path, "/api/v1/")
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, 0, &TransportError{Op: op, Err: err}
		}
	}

	var (
		req *http.Request
		err error
	)
	endpoint := t.baseURL + path
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, 0, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	t.metrics.observeLatency(op, start)
	if err != nil {
		return nil, 0, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	return body, resp.StatusCode, nil
}

// decodeEnvelope accepts any body carrying a numeric "code"; everything else
// is a transport failure.
func decodeEnvelope[T any](op string, body []byte, status int) (*T, error) {
	if !gjson.ValidBytes(body) || gjson.GetBytes(body, "code").Type != gjson.Number {
		te := &TransportError{Op: op, Body: string(body)}
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			te.StatusCode = status
		} else {
			te.Err = fmt.Errorf("response has no exchange envelope")
		}
		return nil, te
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &TransportError{Op: op, StatusCode: status, Body: string(body), Err: err}
	}
	return &out, nil
}
