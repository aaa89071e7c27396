package mbf

import (
	"math"
	"testing"
)

func TestPackUnpackKnownValues(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		raw   Word
	}{
		{"zero", 0, Word{0x00, 0x00, 0x00, 0x00}},
		{"one", 1, Word{0x00, 0x00, 0x00, 0x81}},
		{"minus one", -1, Word{0x00, 0x00, 0x80, 0x81}},
		{"two", 2, Word{0x00, 0x00, 0x00, 0x82}},
		{"half", 0.5, Word{0x00, 0x00, 0x00, 0x80}},
		{"ten", 10, Word{0x00, 0x00, 0x20, 0x84}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, over := FromFloat64(tt.value)
			if over {
				t.Fatalf("FromFloat64(%v) reported overflow", tt.value)
			}
			if w != tt.raw {
				t.Errorf("FromFloat64(%v) = % 02X, want % 02X", tt.value, w, tt.raw)
			}
			if got := tt.raw.Float64(); got != tt.value {
				t.Errorf("Float64(% 02X) = %v, want %v", tt.raw, got, tt.value)
			}
		})
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	values := []float64{3.14159, -2.5, 100, 32767, -32768, 1e-10, 1e10, 0.001}
	for _, v := range values {
		w, over := FromFloat64(v)
		if over {
			t.Fatalf("FromFloat64(%v) reported overflow", v)
		}
		got := w.Float64()
		if rel := math.Abs(got-v) / math.Abs(v); rel > 1e-7 {
			t.Errorf("round trip %v -> %v, relative error %g", v, got, rel)
		}
	}
}

func TestOverflowSaturates(t *testing.T) {
	w, over := FromFloat64(1e40)
	if !over {
		t.Fatal("1e40 should overflow the format")
	}
	if w.IsNegative() {
		t.Error("positive overflow produced a negative word")
	}
	if _, over := FromFloat64(1e-40); over {
		t.Error("underflow should flush to zero, not overflow")
	}
}

func TestArithmetic(t *testing.T) {
	two := FromInt16(2)
	three := FromInt16(3)

	if got := Add(two, three).Float64(); got != 5 {
		t.Errorf("2+3 = %v", got)
	}
	if got := Sub(two, three).Float64(); got != -1 {
		t.Errorf("2-3 = %v", got)
	}
	if got := Mul(two, three).Float64(); got != 6 {
		t.Errorf("2*3 = %v", got)
	}
	q, ok := Div(three, two)
	if !ok || q.Float64() != 1.5 {
		t.Errorf("3/2 = %v ok=%v", q.Float64(), ok)
	}
	if _, ok := Div(two, Zero); ok {
		t.Error("division by zero reported ok")
	}
	p, ok := Pow(two, FromInt16(10))
	if !ok || p.Float64() != 1024 {
		t.Errorf("2^10 = %v ok=%v", p.Float64(), ok)
	}
	if _, ok := Pow(Zero, FromInt16(-1)); ok {
		t.Error("0^-1 reported ok")
	}
}

func TestCompareAndSign(t *testing.T) {
	tests := []struct {
		a, b float64
		want int
	}{
		{1, 2, -1},
		{2, 1, 1},
		{2, 2, 0},
		{-1, 1, -1},
		{0, 0, 0},
	}
	for _, tt := range tests {
		a, _ := FromFloat64(tt.a)
		b, _ := FromFloat64(tt.b)
		if got := Cmp(a, b); got != tt.want {
			t.Errorf("Cmp(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}

	if Sign(One) != 1 || Sign(Neg(One)) != -1 || Sign(Zero) != 0 {
		t.Error("Sign disagrees with the word's encoding")
	}
}

func TestIntConversions(t *testing.T) {
	if v, over := FromInt16(12345).ToInt16(); over || v != 12345 {
		t.Errorf("ToInt16 round trip = %d over=%v", v, over)
	}
	big, _ := FromFloat64(40000)
	if _, over := big.ToInt16(); !over {
		t.Error("40000 should overflow int16")
	}
	if v, over := big.ToInt32(); over || v != 40000 {
		t.Errorf("ToInt32(40000) = %d over=%v", v, over)
	}
	frac, _ := FromFloat64(-3.9)
	if v, _ := frac.ToInt16(); v != -3 {
		t.Errorf("truncation of -3.9 = %d, want -3", v)
	}
	if got := Int(frac).Float64(); got != -4 {
		t.Errorf("INT(-3.9) = %v, want -4", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"zero", 0, "0"},
		{"one", 1, "1"},
		{"minus five", -5, "-5"},
		{"large integer", 32768, "32768"},
		{"pi-ish", 3.14159, "3.14159"},
		{"tenth", 0.1, "0.1"},
		{"trailing zeros trimmed", 2.5, "2.5"},
		{"big goes scientific", 1e7, "1.00000E+07"},
		{"tiny goes scientific", 0.001, "1.00000E-03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := FromFloat64(tt.value)
			if got := Format(w); got != tt.want {
				t.Errorf("Format(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		value    float64
		consumed int
	}{
		{"integer", "123", 123, 3},
		{"negative", "-45", -45, 3},
		{"decimal", "3.5", 3.5, 3},
		{"bare point", ".25", 0.25, 3},
		{"exponent", "1E3", 1000, 3},
		{"signed exponent", "2.5E-2", 0.025, 6},
		{"leading spaces", "  7", 7, 3},
		{"stops at junk", "12AB", 12, 2},
		{"no number", "HELLO", 0, 0},
		{"bare E is not exponent", "5E", 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, n := Parse(tt.input)
			if n != tt.consumed {
				t.Fatalf("Parse(%q) consumed %d, want %d", tt.input, n, tt.consumed)
			}
			// Compare packed words: values like 0.025 have no exact
			// 24-bit mantissa form, so a float comparison would demand
			// more precision than the format carries.
			want, _ := FromFloat64(tt.value)
			if n > 0 && w != want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, w.Float64(), want.Float64())
			}
		})
	}
}

func TestRandSequence(t *testing.T) {
	r := NewRand()
	a := r.Next(One)
	b := r.Next(One)
	if a == b {
		t.Error("successive RND(1) values identical")
	}
	if got := r.Next(Zero); got != b {
		t.Error("RND(0) did not repeat the previous value")
	}
	for _, w := range []Word{a, b} {
		v := w.Float64()
		if v < 0 || v >= 1 {
			t.Errorf("RND out of range: %v", v)
		}
	}

	// Reseeding with the same negative argument restarts the sequence.
	neg := Neg(FromInt16(7))
	r1, r2 := NewRand(), NewRand()
	r2.Next(One)
	if r1.Next(neg) != r2.Next(neg) {
		t.Error("negative reseed is not deterministic")
	}
}
