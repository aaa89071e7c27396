// Package mbf implements the 4-byte Microsoft Binary Format used for all
// numeric values in Altair 8K BASIC. A Word is stored exactly as the
// original lays it out in memory: mantissa low byte first, then mantissa
// middle, then sign plus mantissa high (implied leading 1 removed), then
// the biased exponent. Exponent 0 means zero regardless of the mantissa.
//
// Arithmetic routes through float64; the interpreter treats Words as
// opaque 4-byte values it only moves and compares, so only the byte
// layout has to match the original, not the rounding of every operation.
package mbf

import (
	"math"
	"strconv"
	"strings"
)

// Word is one numeric value in memory byte order.
type Word [4]byte

// Zero and One are the canonical constants (raw 0x00000000 and 0x81000000).
var (
	Zero = Word{0x00, 0x00, 0x00, 0x00}
	One  = Word{0x00, 0x00, 0x00, 0x81}
)

const exponentBias = 128

// IsZero reports whether w encodes zero (exponent byte is 0).
func (w Word) IsZero() bool { return w[3] == 0 }

// IsNegative reports whether w encodes a negative value.
func (w Word) IsNegative() bool { return w[3] != 0 && w[2]&0x80 != 0 }

// Float64 unpacks w.
func (w Word) Float64() float64 {
	if w[3] == 0 {
		return 0
	}
	mant := uint32(0x80|w[2]&0x7F)<<16 | uint32(w[1])<<8 | uint32(w[0])
	frac := float64(mant) / (1 << 24) // in [0.5, 1)
	val := math.Ldexp(frac, int(w[3])-exponentBias)
	if w[2]&0x80 != 0 {
		return -val
	}
	return val
}

// FromFloat64 packs v. Values too large for the format saturate to the
// maximum magnitude and report overflow; values too small round to zero.
func FromFloat64(v float64) (Word, bool) {
	if v == 0 || math.IsNaN(v) {
		return Zero, false
	}
	neg := math.Signbit(v)
	frac, exp := math.Frexp(math.Abs(v)) // frac in [0.5, 1)
	mant := uint32(math.Round(frac * (1 << 24)))
	if mant >= 1<<24 { // rounding carried past the mantissa
		mant >>= 1
		exp++
	}
	stored := exp + exponentBias
	if stored > 255 || math.IsInf(v, 0) {
		w := Word{0xFF, 0xFF, 0x7F, 0xFF}
		if neg {
			w[2] |= 0x80
		}
		return w, true
	}
	if stored < 1 {
		return Zero, false
	}
	var w Word
	w[0] = byte(mant)
	w[1] = byte(mant >> 8)
	w[2] = byte(mant>>16) & 0x7F
	if neg {
		w[2] |= 0x80
	}
	w[3] = byte(stored)
	return w, false
}

func pack(v float64) Word {
	w, _ := FromFloat64(v)
	return w
}

// Add returns a+b.
func Add(a, b Word) Word { return pack(a.Float64() + b.Float64()) }

// Sub returns a-b.
func Sub(a, b Word) Word { return pack(a.Float64() - b.Float64()) }

// Mul returns a*b.
func Mul(a, b Word) Word { return pack(a.Float64() * b.Float64()) }

// Div returns a/b; ok is false when b is zero.
func Div(a, b Word) (Word, bool) {
	if b.IsZero() {
		return Zero, false
	}
	return pack(a.Float64() / b.Float64()), true
}

// Neg returns -a.
func Neg(a Word) Word {
	if a.IsZero() {
		return a
	}
	a[2] ^= 0x80
	return a
}

// Abs returns |a|.
func Abs(a Word) Word {
	if a.IsZero() {
		return a
	}
	a[2] &= 0x7F
	return a
}

// Cmp three-way compares a and b: -1, 0 or +1.
func Cmp(a, b Word) int {
	av, bv := a.Float64(), b.Float64()
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

// Sign returns -1, 0 or +1 for the sign of a.
func Sign(a Word) int {
	if a.IsZero() {
		return 0
	}
	if a.IsNegative() {
		return -1
	}
	return 1
}

// Pow returns a^b; ok is false for a domain error (negative base with a
// non-integer exponent, or 0 to a negative power).
func Pow(a, b Word) (Word, bool) {
	av, bv := a.Float64(), b.Float64()
	if av == 0 && bv < 0 {
		return Zero, false
	}
	r := math.Pow(av, bv)
	if math.IsNaN(r) {
		return Zero, false
	}
	return pack(r), true
}

// FromInt16 packs a small integer.
func FromInt16(v int16) Word { return pack(float64(v)) }

// ToInt16 truncates toward zero; overflow is true when the value does not
// fit a signed 16-bit integer.
func (w Word) ToInt16() (int16, bool) {
	v := w.Float64()
	if v > 32767 || v < -32768 {
		return 0, true
	}
	return int16(v), false
}

// ToInt32 truncates toward zero; overflow is true when the value does not
// fit a signed 32-bit integer.
func (w Word) ToInt32() (int32, bool) {
	v := w.Float64()
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, true
	}
	return int32(v), false
}

// Int returns the INT() of w (floor, per the original).
func Int(w Word) Word { return pack(math.Floor(w.Float64())) }

// Sqr returns the square root; ok is false for a negative argument.
func Sqr(w Word) (Word, bool) {
	v := w.Float64()
	if v < 0 {
		return Zero, false
	}
	return pack(math.Sqrt(v)), true
}

// Log returns the natural logarithm; ok is false unless the argument is
// positive.
func Log(w Word) (Word, bool) {
	v := w.Float64()
	if v <= 0 {
		return Zero, false
	}
	return pack(math.Log(v)), true
}

// Exp returns e^w; overflow is true when the result leaves the format.
func Exp(w Word) (Word, bool) {
	r, over := FromFloat64(math.Exp(w.Float64()))
	return r, over
}

// Sin, Cos, Tan, Atn are the trig functions. Bit-exactness with the
// original's polynomial approximations is explicitly not required.
func Sin(w Word) Word { return pack(math.Sin(w.Float64())) }
func Cos(w Word) Word { return pack(math.Cos(w.Float64())) }
func Tan(w Word) Word { return pack(math.Tan(w.Float64())) }
func Atn(w Word) Word { return pack(math.Atan(w.Float64())) }

// Parse reads a number from the front of s and returns the Word plus the
// number of bytes consumed (0 when s does not start with a number).
// Accepted form: [+|-] digits [. digits] [E [+|-] digits], leading spaces
// skipped, matching the original's number scanner.
func Parse(s string) (Word, int) {
	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digitsBefore := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digitsBefore++
	}
	digitsAfter := 0
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digitsAfter++
		}
	}
	if digitsBefore == 0 && digitsAfter == 0 {
		return Zero, 0
	}
	if i < len(s) && (s[i] == 'E' || s[i] == 'e') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expDigits := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			expDigits++
		}
		if expDigits > 0 {
			i = j
		}
	}
	v, err := strconv.ParseFloat(s[start:i], 64)
	if err != nil {
		return Zero, 0
	}
	return pack(v), i
}

// Format renders w the way the original's number printer does: plain
// integers when the value is integral, fixed point with six significant
// digits in the middle range, scientific notation outside it, trailing
// zeros stripped. The sign/leading space convention is the caller's job.
func Format(w Word) string {
	if w.IsZero() {
		return "0"
	}

	val := w.Float64()
	absval := math.Abs(val)

	if iv, over := w.ToInt32(); !over && float64(iv) == val {
		return strconv.FormatInt(int64(iv), 10)
	}

	var s string
	switch {
	case absval >= 1e6 || absval < 0.01:
		return strconv.FormatFloat(val, 'E', 5, 64)
	case absval >= 100000.0:
		s = strconv.FormatFloat(val, 'f', 0, 64)
	case absval >= 10000.0:
		s = strconv.FormatFloat(val, 'f', 1, 64)
	case absval >= 1000.0:
		s = strconv.FormatFloat(val, 'f', 2, 64)
	case absval >= 100.0:
		s = strconv.FormatFloat(val, 'f', 3, 64)
	case absval >= 10.0:
		s = strconv.FormatFloat(val, 'f', 4, 64)
	case absval >= 1.0:
		s = strconv.FormatFloat(val, 'f', 5, 64)
	default:
		s = strconv.FormatFloat(val, 'f', 6, 64)
	}

	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
