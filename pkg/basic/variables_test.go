package basic

import (
	"testing"

	"github.com/journich/altairbasic/pkg/mbf"
)

func TestEncodeVarName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want [2]byte
	}{
		{"single letter", "A", [2]byte{'A', 0}},
		{"lowercase", "ab", [2]byte{'A', 'B'}},
		{"letter digit", "a1", [2]byte{'A', '1'}},
		{"extra chars ignored", "ABC", [2]byte{'A', 'B'}},
		{"string suffix", "A$", [2]byte{'A', 0x80}},
		{"two chars string", "AB$", [2]byte{'A', 'B' | 0x80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encodeVarName(tt.in); got != tt.want {
				t.Errorf("encodeVarName(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLongNamesCollide(t *testing.T) {
	a := NewArena(MinMemorySize)
	a.VarSetNumber(encodeVarName("ABLE"), mbf.FromInt16(1))
	a.VarSetNumber(encodeVarName("ABOUT"), mbf.FromInt16(2))
	if a.VarCount() != 1 {
		t.Fatalf("VarCount = %d, want 1 (names share slot AB)", a.VarCount())
	}
	if got := a.VarGetNumber(encodeVarName("AB")).Float64(); got != 2 {
		t.Errorf("AB = %v, want 2", got)
	}
}

func TestUnknownVariableReadsZero(t *testing.T) {
	a := NewArena(MinMemorySize)
	if !a.VarGetNumber(encodeVarName("Q")).IsZero() {
		t.Error("unknown variable is not zero")
	}
	// Reading a string variable numerically is zero, not an error.
	if !a.VarGetNumber(encodeVarName("Q$")).IsZero() {
		t.Error("string variable read as number is not zero")
	}
	if d := a.VarGetString(encodeVarName("Q$")); d.Length != 0 || d.Ptr != 0 {
		t.Errorf("unknown string = %+v, want empty descriptor", d)
	}
}

func TestVarCreateShiftsArrays(t *testing.T) {
	a := NewArena(MinMemorySize)
	a.VarSetNumber(encodeVarName("A"), mbf.FromInt16(1))

	id := encodeVarName("M")
	if err := a.ArrayCreate(id, []int{3}); err != nil {
		t.Fatalf("ArrayCreate: %v", err)
	}
	if err := a.ArraySetNumber(id, []int{2}, mbf.FromInt16(99)); err != nil {
		t.Fatalf("ArraySetNumber: %v", err)
	}

	// A new scalar slot must slide the whole array region up intact.
	a.VarSetNumber(encodeVarName("B"), mbf.FromInt16(2))

	got, err := a.ArrayGetNumber(id, []int{2})
	if err != nil {
		t.Fatalf("ArrayGetNumber after shift: %v", err)
	}
	if got.Float64() != 99 {
		t.Errorf("M(2) after shift = %v, want 99", got.Float64())
	}
	if a.VarGetNumber(encodeVarName("A")).Float64() != 1 {
		t.Error("A lost its value")
	}
	if a.VarGetNumber(encodeVarName("B")).Float64() != 2 {
		t.Error("B lost its value")
	}
}

func TestStringVariableRoundTrip(t *testing.T) {
	a := NewArena(MinMemorySize)
	d, err := a.NewString([]byte("HELLO"))
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	id := encodeVarName("S$")
	if err := a.VarSetString(id, d); err != nil {
		t.Fatalf("VarSetString: %v", err)
	}
	if got := a.StringValue(a.VarGetString(id)); got != "HELLO" {
		t.Errorf("S$ = %q, want HELLO", got)
	}
}
