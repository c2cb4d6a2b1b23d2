package lighter

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Element is a canonical Goldilocks field element, the unit consumed by the
// hash primitive.
type Element = uint64

// FieldModulus is the Goldilocks prime p = 2^64 - 2^32 + 1.
const FieldModulus uint64 = 0xFFFFFFFF00000001

// EncodeUint encodes an unsigned value declared as width bits wide.
func EncodeUint(v uint64, width int) (Element, error) {
	if width <= 0 || width > 64 {
		return 0, &EncodingError{Value: v, Reason: fmt.Sprintf("unsupported width %d", width)}
	}
	if width < 64 && bits.Len64(v) > width {
		return 0, &EncodingError{Value: v, Reason: fmt.Sprintf("exceeds %d bits", width)}
	}
	if v >= FieldModulus {
		return 0, &EncodingError{Value: v, Reason: "not below field modulus"}
	}
	return v, nil
}

// EncodeInt encodes a signed value declared as width bits wide (sign bit
// included). Negative values map to p - |v|. None of the built-in preimage
// layouts carry a signed field; it is exported for injected schemes that
// hash their own signed values.
func EncodeInt(v int64, width int) (Element, error) {
	if width <= 1 || width > 64 {
		return 0, &EncodingError{Value: v, Reason: fmt.Sprintf("unsupported width %d", width)}
	}
	if v >= 0 {
		if bits.Len64(uint64(v)) > width-1 {
			return 0, &EncodingError{Value: v, Reason: fmt.Sprintf("exceeds signed %d bits", width)}
		}
		return uint64(v), nil
	}
	mag := uint64(-(v + 1)) + 1
	if bits.Len64(mag-1) > width-1 {
		return 0, &EncodingError{Value: v, Reason: fmt.Sprintf("exceeds signed %d bits", width)}
	}
	return FieldModulus - mag, nil
}

// EncodeNonNegative encodes an int64 that the protocol declares unsigned.
func EncodeNonNegative(v int64, width int) (Element, error) {
	if v < 0 {
		return 0, &EncodingError{Value: v, Reason: "must not be negative"}
	}
	return EncodeUint(uint64(v), width)
}

// EncodeFlag encodes a boolean flag as 0 or 1.
func EncodeFlag(b bool) Element {
	if b {
		return 1
	}
	return 0
}

// EncodeBytes splits a fixed-length byte string into little-endian limbs of
// limb bytes each. Limbs of 8 bytes must already be canonical.
func EncodeBytes(b []byte, length, limb int) ([]Element, error) {
	if limb != 4 && limb != 8 {
		return nil, &EncodingError{Value: fmt.Sprintf("%x", b), Reason: fmt.Sprintf("unsupported limb size %d", limb)}
	}
	if length%limb != 0 {
		return nil, &EncodingError{Value: fmt.Sprintf("%x", b), Reason: fmt.Sprintf("length %d not a multiple of limb %d", length, limb)}
	}
	if len(b) != length {
		return nil, &EncodingError{Value: fmt.Sprintf("%x", b), Reason: fmt.Sprintf("expected %d bytes, got %d", length, len(b))}
	}
	out := make([]Element, 0, length/limb)
	for i := 0; i < length; i += limb {
		var v uint64
		if limb == 4 {
			v = uint64(binary.LittleEndian.Uint32(b[i : i+4]))
		} else {
			v = binary.LittleEndian.Uint64(b[i : i+8])
		}
		if v >= FieldModulus {
			return nil, &EncodingError{Value: fmt.Sprintf("%x", b), Reason: fmt.Sprintf("limb %d not canonical", i/limb)}
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeSplit64 encodes a non-negative amount as its low and high 32-bit
// halves, low first.
func EncodeSplit64(v int64) ([]Element, error) {
	if v < 0 {
		return nil, &EncodingError{Value: v, Reason: "must not be negative"}
	}
	u := uint64(v)
	return []Element{u & 0xFFFFFFFF, u >> 32}, nil
}

// ElementsToBytes serialises elements as consecutive 8-byte little-endian
// words. Schemes that hash bytes rather than elements use this layout.
func ElementsToBytes(elems []Element) []byte {
	out := make([]byte, 8*len(elems))
	for i, e := range elems {
		binary.LittleEndian.PutUint64(out[8*i:], e)
	}
	return out
}
