package exchange

import "context"

// Provider exposes signed-transaction trading in an exchange-agnostic
// fashion. Every call signs and submits exactly one transaction; exchange
// rejections are reported in SubmissionResult, not as errors.
type Provider interface {
	// Order management.
	PlaceOrder(ctx context.Context, order Order) (*SubmissionResult, error)
	ModifyOrder(ctx context.Context, req ModifyRequest) (*SubmissionResult, error)
	CancelOrder(ctx context.Context, market int, index int64) (*SubmissionResult, error)
	CancelAllOrders(ctx context.Context) (*SubmissionResult, error)

	// Account management.
	UpdateLeverage(ctx context.Context, market int, isCross bool, leverage int) (*SubmissionResult, error)
	Transfer(ctx context.Context, toAccount int64, usdcAmount string) (*SubmissionResult, error)
	Withdraw(ctx context.Context, usdcAmount string) (*SubmissionResult, error)

	// NextNonce reports the nonce the next transaction will use.
	NextNonce(ctx context.Context) (int64, error)
}
