package lighter

import "context"

// CreateOrder signs an order placement.
func (c *TxClient) CreateOrder(ctx context.Context, req CreateOrderTxReq, opts *TransactOpts) (*SignedTx, error) {
	return c.SignTx(ctx, &CreateOrderTxInfo{CreateOrderTxReq: req}, opts)
}

// CancelOrder signs a cancellation. The pipeline does not check that the
// order exists; only the exchange can reject an unknown index.
func (c *TxClient) CancelOrder(ctx context.Context, req CancelOrderTxReq, opts *TransactOpts) (*SignedTx, error) {
	return c.SignTx(ctx, &CancelOrderTxInfo{CancelOrderTxReq: req}, opts)
}

func (c *TxClient) CancelAllOrders(ctx context.Context, req CancelAllOrdersTxReq, opts *TransactOpts) (*SignedTx, error) {
	return c.SignTx(ctx, &CancelAllOrdersTxInfo{CancelAllOrdersTxReq: req}, opts)
}

func (c *TxClient) ModifyOrder(ctx context.Context, req ModifyOrderTxReq, opts *TransactOpts) (*SignedTx, error) {
	return c.SignTx(ctx, &ModifyOrderTxInfo{ModifyOrderTxReq: req}, opts)
}

func (c *TxClient) Transfer(ctx context.Context, req TransferTxReq, opts *TransactOpts) (*SignedTx, error) {
	return c.SignTx(ctx, &TransferTxInfo{TransferTxReq: req}, opts)
}

func (c *TxClient) Withdraw(ctx context.Context, req WithdrawTxReq, opts *TransactOpts) (*SignedTx, error) {
	return c.SignTx(ctx, &WithdrawTxInfo{WithdrawTxReq: req}, opts)
}

func (c *TxClient) CreatePublicPool(ctx context.Context, req CreatePublicPoolTxReq, opts *TransactOpts) (*SignedTx, error) {
	return c.SignTx(ctx, &CreatePublicPoolTxInfo{CreatePublicPoolTxReq: req}, opts)
}

func (c *TxClient) MintShares(ctx context.Context, req PoolSharesTxReq, opts *TransactOpts) (*SignedTx, error) {
	return c.SignTx(ctx, &MintSharesTxInfo{PoolSharesTxReq: req}, opts)
}

func (c *TxClient) BurnShares(ctx context.Context, req PoolSharesTxReq, opts *TransactOpts) (*SignedTx, error) {
	return c.SignTx(ctx, &BurnSharesTxInfo{PoolSharesTxReq: req}, opts)
}

func (c *TxClient) UpdateLeverage(ctx context.Context, req UpdateLeverageTxReq, opts *TransactOpts) (*SignedTx, error) {
	return c.SignTx(ctx, &UpdateLeverageTxInfo{UpdateLeverageTxReq: req}, opts)
}

// ChangePubKey signs a key rotation for the client's key index. When the
// client holds an L1 key and req.L1Sig is empty, the L1 signature is added.
func (c *TxClient) ChangePubKey(ctx context.Context, req ChangePubKeyTxReq, opts *TransactOpts) (*SignedTx, error) {
	return c.SignTx(ctx, &ChangePubKeyTxInfo{ChangePubKeyTxReq: req}, opts)
}
