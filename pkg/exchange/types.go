package exchange

// Core trading domain types shared across exchange implementations. Prices
// and sizes are decimal strings; providers scale them to the venue's integer
// representation using the market table from configuration.

// OrderKind selects the execution style of an order.
type OrderKind string

const (
	OrderKindLimit           OrderKind = "limit"
	OrderKindMarket          OrderKind = "market"
	OrderKindStopLoss        OrderKind = "stop_loss"
	OrderKindStopLossLimit   OrderKind = "stop_loss_limit"
	OrderKindTakeProfit      OrderKind = "take_profit"
	OrderKindTakeProfitLimit OrderKind = "take_profit_limit"
)

// Order describes a normalized order request.
type Order struct {
	Market        int       `json:"market"`                 // Exchange market index.
	IsBuy         bool      `json:"isBuy"`                  // true for buy, false for sell.
	Price         string    `json:"price"`                  // Limit or worst-acceptable price.
	Size          string    `json:"size"`                   // Base amount.
	ReduceOnly    bool      `json:"reduceOnly"`             // Only decreases an open position.
	Kind          OrderKind `json:"kind"`                   // Defaults to limit.
	TriggerPrice  string    `json:"triggerPrice,omitempty"` // Required by stop/take-profit kinds.
	ClientOrderID int64     `json:"clientOrderId"`          // Caller-chosen order index.
}

// ModifyRequest amends a resting order.
type ModifyRequest struct {
	Market       int    `json:"market"`
	Index        int64  `json:"index"`
	Price        string `json:"price"`
	Size         string `json:"size"`
	TriggerPrice string `json:"triggerPrice,omitempty"`
}

// SubmissionResult is the exchange's answer to one submitted transaction.
type SubmissionResult struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	TxHash  string `json:"txHash,omitempty"`

	// Local details of the signed transaction.
	TxType string `json:"txType"`
	Nonce  int64  `json:"nonce"`
	Digest string `json:"digest"`
}

// CodeOK marks an accepted submission.
const CodeOK = 200

// Accepted reports whether the exchange took the transaction.
func (r *SubmissionResult) Accepted() bool { return r != nil && r.Code == CodeOK }
