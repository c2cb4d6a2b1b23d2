package lighter

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ScaleDecimal converts a human-readable amount such as "0.15" into the
// integer the exchange expects for a market with the given number of
// decimals. Amounts with more precision than the market allows are rejected
// rather than rounded.
func ScaleDecimal(amount string, decimals int32) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, &EncodingError{Value: amount, Reason: fmt.Sprintf("not a decimal: %v", err)}
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, &EncodingError{Value: amount, Reason: fmt.Sprintf("more than %d decimals", decimals)}
	}
	if !scaled.BigInt().IsInt64() {
		return 0, &EncodingError{Value: amount, Reason: "overflows int64"}
	}
	return scaled.IntPart(), nil
}

// ScalePrice is ScaleDecimal for 32-bit price fields.
func ScalePrice(price string, decimals int32) (uint32, error) {
	v, err := ScaleDecimal(price, decimals)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > math.MaxUint32 {
		return 0, &EncodingError{Value: price, Reason: "outside uint32 price range"}
	}
	return uint32(v), nil
}

// FormatScaled renders a scaled integer back as a decimal string.
func FormatScaled(v int64, decimals int32) string {
	return decimal.New(v, -decimals).String()
}
