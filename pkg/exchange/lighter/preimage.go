package lighter

import (
	"errors"
	"fmt"
)

// PreimageVersion identifies the field layout below. Bump it together with
// the fixtures in preimage_test.go whenever the exchange changes an order.
const PreimageVersion = 1

// FieldSpec names one position (or run of positions) in a kind's preimage.
type FieldSpec struct {
	Name string
	// Type documents the semantic encoding, e.g. "uint8", "int48", "bytes40/8".
	Type string
	// Size is the number of elements the field contributes.
	Size   int
	encode func(tx TxInfo) ([]Element, error)
}

var headerSpec = []FieldSpec{
	{Name: "ChainID", Type: "uint32", Size: 1, encode: func(tx TxInfo) ([]Element, error) {
		return one(EncodeUint(uint64(tx.header().ChainID), 32))
	}},
	{Name: "TxType", Type: "uint8", Size: 1, encode: func(tx TxInfo) ([]Element, error) {
		return one(EncodeUint(uint64(tx.TxType()), 8))
	}},
	{Name: "Nonce", Type: "uint63", Size: 1, encode: func(tx TxInfo) ([]Element, error) {
		return one(EncodeNonNegative(tx.header().Nonce, 63))
	}},
	{Name: "ExpiredAt", Type: "uint63", Size: 1, encode: func(tx TxInfo) ([]Element, error) {
		return one(EncodeNonNegative(tx.header().ExpiredAt, 63))
	}},
	{Name: "AccountIndex", Type: "uint48", Size: 1, encode: func(tx TxInfo) ([]Element, error) {
		return one(EncodeNonNegative(tx.header().AccountIndex, 48))
	}},
	{Name: "APIKeyIndex", Type: "uint8", Size: 1, encode: func(tx TxInfo) ([]Element, error) {
		return one(EncodeUint(uint64(tx.header().APIKeyIndex), 8))
	}},
}

// preimageSpecs lists, per kind, the exact element order the exchange
// verifier hashes. The header (chain, type, nonce, expiry, account, key)
// always comes first.
var preimageSpecs = map[TxType][]FieldSpec{
	TxTypeCreateOrder: withHeader(
		uintField("MarketIndex", 8, func(tx *CreateOrderTxInfo) uint64 { return uint64(tx.MarketIndex) }),
		intField("ClientOrderIndex", 48, func(tx *CreateOrderTxInfo) int64 { return tx.ClientOrderIndex }),
		intField("BaseAmount", 48, func(tx *CreateOrderTxInfo) int64 { return tx.BaseAmount }),
		uintField("Price", 32, func(tx *CreateOrderTxInfo) uint64 { return uint64(tx.Price) }),
		flagField("IsAsk", func(tx *CreateOrderTxInfo) bool { return tx.IsAsk }),
		uintField("Type", 8, func(tx *CreateOrderTxInfo) uint64 { return uint64(tx.Type) }),
		uintField("TimeInForce", 8, func(tx *CreateOrderTxInfo) uint64 { return uint64(tx.TimeInForce) }),
		flagField("ReduceOnly", func(tx *CreateOrderTxInfo) bool { return tx.ReduceOnly }),
		uintField("TriggerPrice", 32, func(tx *CreateOrderTxInfo) uint64 { return uint64(tx.TriggerPrice) }),
		intField("OrderExpiry", 63, func(tx *CreateOrderTxInfo) int64 { return tx.OrderExpiry }),
	),
	TxTypeCancelOrder: withHeader(
		uintField("MarketIndex", 8, func(tx *CancelOrderTxInfo) uint64 { return uint64(tx.MarketIndex) }),
		requiredIntField("Index", 56, func(tx *CancelOrderTxInfo) *int64 { return tx.Index }),
	),
	TxTypeCancelAllOrders: withHeader(
		uintField("TimeInForce", 8, func(tx *CancelAllOrdersTxInfo) uint64 { return uint64(tx.TimeInForce) }),
		intField("Time", 63, func(tx *CancelAllOrdersTxInfo) int64 { return tx.Time }),
	),
	TxTypeModifyOrder: withHeader(
		uintField("MarketIndex", 8, func(tx *ModifyOrderTxInfo) uint64 { return uint64(tx.MarketIndex) }),
		requiredIntField("Index", 56, func(tx *ModifyOrderTxInfo) *int64 { return tx.Index }),
		intField("BaseAmount", 48, func(tx *ModifyOrderTxInfo) int64 { return tx.BaseAmount }),
		uintField("Price", 32, func(tx *ModifyOrderTxInfo) uint64 { return uint64(tx.Price) }),
		uintField("TriggerPrice", 32, func(tx *ModifyOrderTxInfo) uint64 { return uint64(tx.TriggerPrice) }),
	),
	TxTypeTransfer: withHeader(
		requiredIntField("ToAccountIndex", 48, func(tx *TransferTxInfo) *int64 { return tx.ToAccountIndex }),
		splitField("USDCAmount", func(tx *TransferTxInfo) int64 { return tx.USDCAmount }),
		splitField("Fee", func(tx *TransferTxInfo) int64 { return tx.Fee }),
		bytesField("Memo", MemoLength, 4, func(tx *TransferTxInfo) []byte { return tx.Memo[:] }),
	),
	TxTypeWithdraw: withHeader(
		splitField("USDCAmount", func(tx *WithdrawTxInfo) int64 { return tx.USDCAmount }),
	),
	TxTypeCreatePublicPool: withHeader(
		intField("OperatorFee", 16, func(tx *CreatePublicPoolTxInfo) int64 { return tx.OperatorFee }),
		intField("InitialTotalShares", 60, func(tx *CreatePublicPoolTxInfo) int64 { return tx.InitialTotalShares }),
		intField("MinOperatorShareRate", 16, func(tx *CreatePublicPoolTxInfo) int64 { return tx.MinOperatorShareRate }),
	),
	TxTypeMintShares: withHeader(
		requiredIntField("PublicPoolIndex", 48, func(tx *MintSharesTxInfo) *int64 { return tx.PublicPoolIndex }),
		intField("ShareAmount", 60, func(tx *MintSharesTxInfo) int64 { return tx.ShareAmount }),
	),
	TxTypeBurnShares: withHeader(
		requiredIntField("PublicPoolIndex", 48, func(tx *BurnSharesTxInfo) *int64 { return tx.PublicPoolIndex }),
		intField("ShareAmount", 60, func(tx *BurnSharesTxInfo) int64 { return tx.ShareAmount }),
	),
	TxTypeUpdateLeverage: withHeader(
		uintField("MarketIndex", 8, func(tx *UpdateLeverageTxInfo) uint64 { return uint64(tx.MarketIndex) }),
		uintField("InitialMarginFraction", 16, func(tx *UpdateLeverageTxInfo) uint64 { return uint64(tx.InitialMarginFraction) }),
		uintField("MarginMode", 8, func(tx *UpdateLeverageTxInfo) uint64 { return uint64(tx.MarginMode) }),
	),
	TxTypeChangePubKey: withHeader(
		bytesField("PubKey", PubKeyLength, 8, func(tx *ChangePubKeyTxInfo) []byte { return tx.PubKey }),
	),
}

// PreimageSpec returns the ordered field list hashed for txType.
func PreimageSpec(txType TxType) ([]FieldSpec, bool) {
	spec, ok := preimageSpecs[txType]
	if !ok {
		return nil, false
	}
	out := make([]FieldSpec, len(spec))
	copy(out, spec)
	return out, true
}

// PreimageLength returns the number of elements hashed for txType.
func PreimageLength(txType TxType) int {
	n := 0
	for _, f := range preimageSpecs[txType] {
		n += f.Size
	}
	return n
}

// BuildPreimage returns the ordered element sequence for tx. The envelope's
// ChainID must already be set.
func BuildPreimage(tx TxInfo) ([]Element, error) {
	if tx == nil {
		return nil, errors.New("lighter: nil transaction")
	}
	spec, ok := preimageSpecs[tx.TxType()]
	if !ok {
		return nil, fmt.Errorf("lighter: no preimage layout for %s", tx.TxType())
	}
	elems := make([]Element, 0, PreimageLength(tx.TxType()))
	for _, field := range spec {
		out, err := field.encode(tx)
		if err != nil {
			var encErr *EncodingError
			if errors.As(err, &encErr) && encErr.Field == "" {
				encErr.Field = field.Name
			}
			var missing *MissingFieldError
			if errors.As(err, &missing) {
				missing.TxType = tx.TxType()
			}
			return nil, err
		}
		if len(out) != field.Size {
			return nil, fmt.Errorf("lighter: field %s produced %d elements, layout expects %d", field.Name, len(out), field.Size)
		}
		elems = append(elems, out...)
	}
	return elems, nil
}

func withHeader(fields ...FieldSpec) []FieldSpec {
	out := make([]FieldSpec, 0, len(headerSpec)+len(fields))
	out = append(out, headerSpec...)
	return append(out, fields...)
}

func one(e Element, err error) ([]Element, error) {
	if err != nil {
		return nil, err
	}
	return []Element{e}, nil
}

func uintField[T TxInfo](name string, width int, get func(T) uint64) FieldSpec {
	return FieldSpec{Name: name, Type: fmt.Sprintf("uint%d", width), Size: 1, encode: func(tx TxInfo) ([]Element, error) {
		return one(EncodeUint(get(tx.(T)), width))
	}}
}

func intField[T TxInfo](name string, width int, get func(T) int64) FieldSpec {
	return FieldSpec{Name: name, Type: fmt.Sprintf("uint%d", width), Size: 1, encode: func(tx TxInfo) ([]Element, error) {
		return one(EncodeNonNegative(get(tx.(T)), width))
	}}
}

func requiredIntField[T TxInfo](name string, width int, get func(T) *int64) FieldSpec {
	return FieldSpec{Name: name, Type: fmt.Sprintf("uint%d", width), Size: 1, encode: func(tx TxInfo) ([]Element, error) {
		v := get(tx.(T))
		if v == nil {
			return nil, &MissingFieldError{Field: name}
		}
		return one(EncodeNonNegative(*v, width))
	}}
}

func flagField[T TxInfo](name string, get func(T) bool) FieldSpec {
	return FieldSpec{Name: name, Type: "flag", Size: 1, encode: func(tx TxInfo) ([]Element, error) {
		return []Element{EncodeFlag(get(tx.(T)))}, nil
	}}
}

func splitField[T TxInfo](name string, get func(T) int64) FieldSpec {
	return FieldSpec{Name: name, Type: "uint64/2x32", Size: 2, encode: func(tx TxInfo) ([]Element, error) {
		return EncodeSplit64(get(tx.(T)))
	}}
}

func bytesField[T TxInfo](name string, length, limb int, get func(T) []byte) FieldSpec {
	return FieldSpec{Name: name, Type: fmt.Sprintf("bytes%d/%d", length, limb), Size: length / limb, encode: func(tx TxInfo) ([]Element, error) {
		b := get(tx.(T))
		if b == nil {
			return nil, &MissingFieldError{Field: name}
		}
		return EncodeBytes(b, length, limb)
	}}
}
