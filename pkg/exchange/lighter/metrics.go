package lighter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the submission counters exported by HTTPTransport.
type Metrics struct {
	Submissions    *prometheus.CounterVec
	RequestSeconds *prometheus.HistogramVec
	NonceFetches   *prometheus.CounterVec
}

// Submission outcomes used as the "outcome" label.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeError    = "transport_error"
)

// NewMetrics registers the transport metrics with reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry or a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lighter_tx_submissions_total",
			Help: "Transactions submitted to the exchange, by kind and outcome",
		}, []string{"tx_type", "outcome"}),
		RequestSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lighter_request_duration_seconds",
			Help:    "Latency of exchange HTTP calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		NonceFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lighter_nonce_fetch_total",
			Help: "Nonce lookups against the exchange, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeSubmission(txType string, resp *TxResponse, err error) {
	if m == nil {
		return
	}
	outcome := outcomeAccepted
	switch {
	case err != nil:
		outcome = outcomeError
	case resp.Rejected():
		outcome = outcomeRejected
	}
	m.Submissions.WithLabelValues(txType, outcome).Inc()
}

// observeBatch records one outcome per payload. When the batch is rejected,
// the payloads the exchange hashed before stopping count as accepted.
func (m *Metrics) observeBatch(payloads []WirePayload, resp *BatchTxResponse, err error) {
	if m == nil {
		return
	}
	accepted := len(payloads)
	if err == nil && !resp.Accepted() {
		accepted = min(len(resp.TxHash), len(payloads))
	}
	for i, p := range payloads {
		outcome := outcomeAccepted
		switch {
		case err != nil:
			outcome = outcomeError
		case i >= accepted:
			outcome = outcomeRejected
		}
		m.Submissions.WithLabelValues(p.TxType.String(), outcome).Inc()
	}
}

func (m *Metrics) observeLatency(endpoint string, start time.Time) {
	if m == nil {
		return
	}
	m.RequestSeconds.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeNonce(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.NonceFetches.WithLabelValues(outcomeError).Inc()
		return
	}
	m.NonceFetches.WithLabelValues("ok").Inc()
}
