// Package f16 implements IEEE-754 binary16 conversion for Float16Vector fields.
//
// Float16 vectors are stored and transported as little-endian binary16 words;
// index builders widen them to float32 before training.
package f16

import (
	"encoding/binary"
	"errors"
	"math"
)

// Bits is the raw IEEE-754 binary16 bit-pattern (1 sign, 5 exponent, 10 fraction bits).
type Bits uint16

const (
	signMask Bits = 0x8000
	expMask  Bits = 0x7C00
	fracMask Bits = 0x03FF

	f32ExpMask  uint32 = 0x7F800000
	f32FracMask uint32 = 0x007FFFFF
)

// ErrOddLength is returned when a binary16 byte buffer has an odd length.
var ErrOddLength = errors.New("f16: buffer length is not a multiple of 2")

// ToFloat32 converts a binary16 bit-pattern to float32.
func ToFloat32(h Bits) float32 {
	sign := uint32(h&signMask) << 16
	exp := uint32(h&expMask) >> 10
	frac := uint32(h & fracMask)

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: shift until the implicit bit appears.
		e := int32(-14)
		m := frac
		for (m & 0x0400) == 0 {
			m <<= 1
			e--
		}
		m &= 0x03FF
		return math.Float32frombits(sign | uint32(int32(127)+e)<<23 | m<<13)
	case 0x1F:
		if frac == 0 {
			return math.Float32frombits(sign | f32ExpMask)
		}
		return math.Float32frombits(sign | f32ExpMask | (frac << 13))
	default:
		return math.Float32frombits(sign | uint32(int32(exp)-15+127)<<23 | frac<<13)
	}
}

// FromFloat32 converts a float32 to binary16, rounding to nearest, ties to even.
func FromFloat32(f float32) Bits {
	bits := math.Float32bits(f)
	sign := Bits((bits >> 16) & uint32(signMask))
	exp := int32((bits & f32ExpMask) >> 23)
	frac := bits & f32FracMask

	if exp == 0xFF {
		if frac == 0 {
			return sign | expMask
		}
		payload := Bits(frac>>13) | 0x0200
		return sign | expMask | (payload & fracMask)
	}
	if exp == 0 {
		return sign
	}

	e16 := exp - 127 + 15
	if e16 >= 0x1F {
		return sign | expMask
	}
	if e16 <= 0 {
		if e16 < -10 {
			return sign
		}
		mant := frac | 0x00800000
		shift := uint32(1-e16) + 13
		m := mant >> shift
		rem := mant & ((uint32(1) << shift) - 1)
		half := uint32(1) << (shift - 1)
		if rem > half || (rem == half && m&1 == 1) {
			m++
		}
		return sign | Bits(m)
	}

	m := frac >> 13
	rem := frac & 0x1FFF
	if rem > 0x1000 || (rem == 0x1000 && m&1 == 1) {
		m++
		if m == 0x0400 {
			m = 0
			e16++
			if e16 >= 0x1F {
				return sign | expMask
			}
		}
	}
	return sign | Bits(uint32(e16)<<10) | Bits(m)
}

// DecodeBytes widens little-endian binary16 words in src to float32.
func DecodeBytes(src []byte) ([]float32, error) {
	if len(src)%2 != 0 {
		return nil, ErrOddLength
	}
	out := make([]float32, len(src)/2)
	for i := range out {
		out[i] = ToFloat32(Bits(binary.LittleEndian.Uint16(src[2*i:])))
	}
	return out, nil
}

// EncodeBytes narrows src to little-endian binary16 words.
func EncodeBytes(src []float32) []byte {
	out := make([]byte, 2*len(src))
	for i, v := range src {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(FromFloat32(v)))
	}
	return out
}
