package lighter

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// WirePayload is what the exchange's sendTx endpoint accepts: the numeric
// kind tag and a flat JSON object of the signed fields.
type WirePayload struct {
	TxType TxType          `msgpack:"tx_type"`
	TxInfo json.RawMessage `msgpack:"tx_info"`
}

// Form renders the payload as the sendTx form body.
func (p WirePayload) Form() url.Values {
	return url.Values{
		"tx_type": {strconv.Itoa(int(p.TxType))},
		"tx_info": {string(p.TxInfo)},
	}
}

// BatchForm renders several payloads as the sendTxBatch form body. Both
// values are JSON arrays; tx_infos holds each tx_info as a string.
func BatchForm(payloads []WirePayload) (url.Values, error) {
	types, infos := []byte("[]"), []byte("[]")
	var err error
	for _, p := range payloads {
		if types, err = sjson.SetBytes(types, "-1", uint8(p.TxType)); err != nil {
			return nil, fmt.Errorf("lighter: batch tx_types: %w", err)
		}
		if infos, err = sjson.SetBytes(infos, "-1", string(p.TxInfo)); err != nil {
			return nil, fmt.Errorf("lighter: batch tx_infos: %w", err)
		}
	}
	return url.Values{
		"tx_types": {string(types)},
		"tx_infos": {string(infos)},
	}, nil
}

type wireField struct {
	name string
	put  func(tx TxInfo) (any, error)
	take func(tx TxInfo, v gjson.Result) error
}

// wireFields is the exchange's tx_info layout per kind: key names and key
// order. It is maintained separately from preimageSpecs; the two orders differ.
var wireFields = map[TxType][]wireField{
	TxTypeCreateOrder: wireLayout(accountIndex,
		wUint("MarketIndex", func(tx *CreateOrderTxInfo) *uint8 { return &tx.MarketIndex }),
		wInt64("ClientOrderIndex", func(tx *CreateOrderTxInfo) *int64 { return &tx.ClientOrderIndex }),
		wInt64("BaseAmount", func(tx *CreateOrderTxInfo) *int64 { return &tx.BaseAmount }),
		wUint("Price", func(tx *CreateOrderTxInfo) *uint32 { return &tx.Price }),
		wFlag("IsAsk", func(tx *CreateOrderTxInfo) *bool { return &tx.IsAsk }),
		wUint("Type", func(tx *CreateOrderTxInfo) *uint8 { return &tx.Type }),
		wUint("TimeInForce", func(tx *CreateOrderTxInfo) *uint8 { return &tx.TimeInForce }),
		wFlag("ReduceOnly", func(tx *CreateOrderTxInfo) *bool { return &tx.ReduceOnly }),
		wUint("TriggerPrice", func(tx *CreateOrderTxInfo) *uint32 { return &tx.TriggerPrice }),
		wInt64("OrderExpiry", func(tx *CreateOrderTxInfo) *int64 { return &tx.OrderExpiry }),
	),
	TxTypeCancelOrder: wireLayout(accountIndex,
		wUint("MarketIndex", func(tx *CancelOrderTxInfo) *uint8 { return &tx.MarketIndex }),
		wOptInt64("Index", func(tx *CancelOrderTxInfo) **int64 { return &tx.Index }),
	),
	TxTypeCancelAllOrders: wireLayout(accountIndex,
		wUint("TimeInForce", func(tx *CancelAllOrdersTxInfo) *uint8 { return &tx.TimeInForce }),
		wInt64("Time", func(tx *CancelAllOrdersTxInfo) *int64 { return &tx.Time }),
	),
	TxTypeModifyOrder: wireLayout(accountIndex,
		wUint("MarketIndex", func(tx *ModifyOrderTxInfo) *uint8 { return &tx.MarketIndex }),
		wOptInt64("Index", func(tx *ModifyOrderTxInfo) **int64 { return &tx.Index }),
		wInt64("BaseAmount", func(tx *ModifyOrderTxInfo) *int64 { return &tx.BaseAmount }),
		wUint("Price", func(tx *ModifyOrderTxInfo) *uint32 { return &tx.Price }),
		wUint("TriggerPrice", func(tx *ModifyOrderTxInfo) *uint32 { return &tx.TriggerPrice }),
	),
	TxTypeTransfer: wireLayout(fromAccountIndex,
		wOptInt64("ToAccountIndex", func(tx *TransferTxInfo) **int64 { return &tx.ToAccountIndex }),
		wInt64("USDCAmount", func(tx *TransferTxInfo) *int64 { return &tx.USDCAmount }),
		wInt64("Fee", func(tx *TransferTxInfo) *int64 { return &tx.Fee }),
		wHexArray("Memo", func(tx *TransferTxInfo) []byte { return tx.Memo[:] }),
	),
	TxTypeWithdraw: wireLayout(fromAccountIndex,
		wInt64("USDCAmount", func(tx *WithdrawTxInfo) *int64 { return &tx.USDCAmount }),
	),
	TxTypeCreatePublicPool: wireLayout(accountIndex,
		wInt64("OperatorFee", func(tx *CreatePublicPoolTxInfo) *int64 { return &tx.OperatorFee }),
		wInt64("InitialTotalShares", func(tx *CreatePublicPoolTxInfo) *int64 { return &tx.InitialTotalShares }),
		wInt64("MinOperatorShareRate", func(tx *CreatePublicPoolTxInfo) *int64 { return &tx.MinOperatorShareRate }),
	),
	TxTypeMintShares: wireLayout(accountIndex,
		wOptInt64("PublicPoolIndex", func(tx *MintSharesTxInfo) **int64 { return &tx.PublicPoolIndex }),
		wInt64("ShareAmount", func(tx *MintSharesTxInfo) *int64 { return &tx.ShareAmount }),
	),
	TxTypeBurnShares: wireLayout(accountIndex,
		wOptInt64("PublicPoolIndex", func(tx *BurnSharesTxInfo) **int64 { return &tx.PublicPoolIndex }),
		wInt64("ShareAmount", func(tx *BurnSharesTxInfo) *int64 { return &tx.ShareAmount }),
	),
	TxTypeUpdateLeverage: wireLayout(accountIndex,
		wUint("MarketIndex", func(tx *UpdateLeverageTxInfo) *uint8 { return &tx.MarketIndex }),
		wUint("InitialMarginFraction", func(tx *UpdateLeverageTxInfo) *uint16 { return &tx.InitialMarginFraction }),
		wUint("MarginMode", func(tx *UpdateLeverageTxInfo) *uint8 { return &tx.MarginMode }),
	),
	TxTypeChangePubKey: wireLayout(accountIndex,
		wHex("PubKey", func(tx *ChangePubKeyTxInfo) *[]byte { return &tx.PubKey }),
		wString("L1Sig", func(tx *ChangePubKeyTxInfo) *string { return &tx.L1Sig }),
	),
}

var (
	accountIndex     = wInt64("AccountIndex", func(tx TxInfo) *int64 { return &tx.header().AccountIndex })
	fromAccountIndex = wInt64("FromAccountIndex", func(tx TxInfo) *int64 { return &tx.header().AccountIndex })
)

// wireLayout wraps kind fields as account, key index, kind fields, then
// expiry, nonce and signature.
func wireLayout(account wireField, fields ...wireField) []wireField {
	out := make([]wireField, 0, len(fields)+5)
	out = append(out, account,
		wUint("ApiKeyIndex", func(tx TxInfo) *uint8 { return &tx.header().APIKeyIndex }))
	out = append(out, fields...)
	return append(out,
		wInt64("ExpiredAt", func(tx TxInfo) *int64 { return &tx.header().ExpiredAt }),
		wInt64("Nonce", func(tx TxInfo) *int64 { return &tx.header().Nonce }),
		wBase64("Sig", func(tx TxInfo) *[]byte { return &tx.header().Sig }),
	)
}

// EncodeTx renders a signed transaction as the exchange's wire payload.
func EncodeTx(signed *SignedTx) (WirePayload, error) {
	if signed == nil {
		return WirePayload{}, fmt.Errorf("lighter: encode nil transaction")
	}
	return encodeInfo(signed.info)
}

func encodeInfo(tx TxInfo) (WirePayload, error) {
	fields, ok := wireFields[tx.TxType()]
	if !ok {
		return WirePayload{}, fmt.Errorf("lighter: no wire layout for %s", tx.TxType())
	}
	out := []byte("{}")
	for _, f := range fields {
		v, err := f.put(tx)
		if err != nil {
			return WirePayload{}, fmt.Errorf("lighter: wire field %s: %w", f.name, err)
		}
		if out, err = sjson.SetBytes(out, f.name, v); err != nil {
			return WirePayload{}, fmt.Errorf("lighter: wire field %s: %w", f.name, err)
		}
	}
	return WirePayload{TxType: tx.TxType(), TxInfo: out}, nil
}

// DecodeTx parses a tx_info object back into its logical fields. ChainID is
// not transmitted, so the caller supplies it.
func DecodeTx(txType TxType, txInfo []byte, chainID uint32) (TxInfo, error) {
	fields, ok := wireFields[txType]
	if !ok {
		return nil, fmt.Errorf("lighter: no wire layout for %s", txType)
	}
	if !gjson.ValidBytes(txInfo) {
		return nil, fmt.Errorf("lighter: tx_info is not valid JSON")
	}
	root := gjson.ParseBytes(txInfo)
	if !root.IsObject() {
		return nil, fmt.Errorf("lighter: tx_info is not an object")
	}
	tx := newTxInfo(txType)
	tx.header().ChainID = chainID
	for _, f := range fields {
		v := root.Get(f.name)
		if !v.Exists() {
			return nil, fmt.Errorf("lighter: tx_info missing %s", f.name)
		}
		if err := f.take(tx, v); err != nil {
			return nil, fmt.Errorf("lighter: tx_info %s: %w", f.name, err)
		}
	}
	return tx, nil
}

func newTxInfo(t TxType) TxInfo {
	switch t {
	case TxTypeCreateOrder:
		return &CreateOrderTxInfo{}
	case TxTypeCancelOrder:
		return &CancelOrderTxInfo{}
	case TxTypeCancelAllOrders:
		return &CancelAllOrdersTxInfo{}
	case TxTypeModifyOrder:
		return &ModifyOrderTxInfo{}
	case TxTypeTransfer:
		return &TransferTxInfo{}
	case TxTypeWithdraw:
		return &WithdrawTxInfo{}
	case TxTypeCreatePublicPool:
		return &CreatePublicPoolTxInfo{}
	case TxTypeMintShares:
		return &MintSharesTxInfo{}
	case TxTypeBurnShares:
		return &BurnSharesTxInfo{}
	case TxTypeUpdateLeverage:
		return &UpdateLeverageTxInfo{}
	case TxTypeChangePubKey:
		return &ChangePubKeyTxInfo{}
	}
	return nil
}

func wUint[T TxInfo, N ~uint8 | ~uint16 | ~uint32](name string, get func(T) *N) wireField {
	return wireField{
		name: name,
		put:  func(tx TxInfo) (any, error) { return uint64(*get(tx.(T))), nil },
		take: func(tx TxInfo, v gjson.Result) error {
			if v.Type != gjson.Number {
				return fmt.Errorf("expected number, got %s", v.Type)
			}
			u := v.Uint()
			if uint64(N(u)) != u {
				return fmt.Errorf("value %d overflows", u)
			}
			*get(tx.(T)) = N(u)
			return nil
		},
	}
}

func wInt64[T TxInfo](name string, get func(T) *int64) wireField {
	return wireField{
		name: name,
		put:  func(tx TxInfo) (any, error) { return *get(tx.(T)), nil },
		take: func(tx TxInfo, v gjson.Result) error {
			n, err := parseInt(v)
			if err != nil {
				return err
			}
			*get(tx.(T)) = n
			return nil
		},
	}
}

func wOptInt64[T TxInfo](name string, get func(T) **int64) wireField {
	return wireField{
		name: name,
		put: func(tx TxInfo) (any, error) {
			p := *get(tx.(T))
			if p == nil {
				return nil, nil
			}
			return *p, nil
		},
		take: func(tx TxInfo, v gjson.Result) error {
			if v.Type == gjson.Null {
				*get(tx.(T)) = nil
				return nil
			}
			n, err := parseInt(v)
			if err != nil {
				return err
			}
			*get(tx.(T)) = &n
			return nil
		},
	}
}

// wFlag renders booleans as 0/1, the exchange's representation.
func wFlag[T TxInfo](name string, get func(T) *bool) wireField {
	return wireField{
		name: name,
		put:  func(tx TxInfo) (any, error) { return EncodeFlag(*get(tx.(T))), nil },
		take: func(tx TxInfo, v gjson.Result) error {
			switch {
			case v.Type == gjson.Number && v.Raw == "0":
				*get(tx.(T)) = false
			case v.Type == gjson.Number && v.Raw == "1":
				*get(tx.(T)) = true
			default:
				return fmt.Errorf("expected 0 or 1, got %s", v.Raw)
			}
			return nil
		},
	}
}

func wString[T TxInfo](name string, get func(T) *string) wireField {
	return wireField{
		name: name,
		put:  func(tx TxInfo) (any, error) { return *get(tx.(T)), nil },
		take: func(tx TxInfo, v gjson.Result) error {
			if v.Type != gjson.String {
				return fmt.Errorf("expected string, got %s", v.Type)
			}
			*get(tx.(T)) = v.Str
			return nil
		},
	}
}

func wHex[T TxInfo](name string, get func(T) *[]byte) wireField {
	return wireField{
		name: name,
		put:  func(tx TxInfo) (any, error) { return hex.EncodeToString(*get(tx.(T))), nil },
		take: func(tx TxInfo, v gjson.Result) error {
			b, err := hex.DecodeString(v.String())
			if err != nil {
				return err
			}
			*get(tx.(T)) = b
			return nil
		},
	}
}

// wHexArray handles fixed-size byte arrays; get returns a slice aliasing the
// array so decode writes in place.
func wHexArray[T TxInfo](name string, get func(T) []byte) wireField {
	return wireField{
		name: name,
		put:  func(tx TxInfo) (any, error) { return hex.EncodeToString(get(tx.(T))), nil },
		take: func(tx TxInfo, v gjson.Result) error {
			b, err := hex.DecodeString(v.String())
			if err != nil {
				return err
			}
			dst := get(tx.(T))
			if len(b) != len(dst) {
				return fmt.Errorf("expected %d bytes, got %d", len(dst), len(b))
			}
			copy(dst, b)
			return nil
		},
	}
}

func wBase64[T TxInfo](name string, get func(T) *[]byte) wireField {
	return wireField{
		name: name,
		put: func(tx TxInfo) (any, error) {
			b := *get(tx.(T))
			if len(b) == 0 {
				return nil, fmt.Errorf("empty")
			}
			return base64.StdEncoding.EncodeToString(b), nil
		},
		take: func(tx TxInfo, v gjson.Result) error {
			b, err := base64.StdEncoding.DecodeString(v.String())
			if err != nil {
				return err
			}
			*get(tx.(T)) = b
			return nil
		},
	}
}

// parseInt reads an integer from the raw token; gjson's Int() silently
// truncates floats.
func parseInt(v gjson.Result) (int64, error) {
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("expected number, got %s", v.Type)
	}
	return strconv.ParseInt(v.Raw, 10, 64)
}
