package basic

import (
	"bytes"
	"strings"
	"testing"

	"github.com/journich/altairbasic/pkg/mbf"
)

func mustParse(t *testing.T, s string) mbf.Word {
	t.Helper()
	w, n := mbf.Parse(s)
	if n == 0 {
		t.Fatalf("mbf.Parse(%q) consumed nothing", s)
	}
	return w
}

func newTestInterp() (*Interp, *bytes.Buffer) {
	out := &bytes.Buffer{}
	i := New(Config{
		MemorySize:    MinMemorySize,
		TerminalWidth: 72,
		Trig:          true,
		Input:         strings.NewReader(""),
		Output:        out,
	})
	return i, out
}

func evalNumber(t *testing.T, i *Interp, expr string) float64 {
	t.Helper()
	w, _, err := i.evalExpression(Tokenize(expr))
	if err != nil {
		t.Fatalf("eval %q: %v", expr, err)
	}
	return w.Float64()
}

func evalError(t *testing.T, i *Interp, expr string) ErrorCode {
	t.Helper()
	_, _, err := i.evalExpression(Tokenize(expr))
	if err == nil {
		t.Fatalf("eval %q succeeded, want error", expr)
	}
	return err.Code
}

func TestArithmeticPrecedence(t *testing.T) {
	i, _ := newTestInterp()
	tests := []struct {
		expr string
		want float64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"10-4-3", 3},
		{"2^3", 8},
		{"2^3*2", 16},
		{"-2+5", 3},
		{"-(2+3)", -5},
		{"7/2", 3.5},
		{"2*3+4*5", 26},
		{"100/10/2", 5},
	}
	for _, tt := range tests {
		if got := evalNumber(t, i, tt.expr); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestRelationalAndLogical(t *testing.T) {
	i, _ := newTestInterp()
	tests := []struct {
		expr string
		want float64 // true is -1
	}{
		{"1=1", -1},
		{"1=2", 0},
		{"1<2", -1},
		{"2<=2", -1},
		{"3>=4", 0},
		{"1<>2", -1},
		{"NOT 0", -1},
		{"NOT -1", 0},
		{"1=1 AND 2=2", -1},
		{"1=1 AND 2=3", 0},
		{"1=2 OR 2=2", -1},
		{"1 AND 3", 1},
		{"1 OR 2", 3},
	}
	for _, tt := range tests {
		if got := evalNumber(t, i, tt.expr); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestStringComparison(t *testing.T) {
	i, _ := newTestInterp()
	tests := []struct {
		expr string
		want float64
	}{
		{`"A"="A"`, -1},
		{`"A"="B"`, 0},
		{`"A"<"B"`, -1},
		{`"AB"<"ABC"`, -1},
		{`"B">"A"`, -1},
		{`"A"<>"B"`, -1},
	}
	for _, tt := range tests {
		if got := evalNumber(t, i, tt.expr); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestTypeMismatch(t *testing.T) {
	i, _ := newTestInterp()
	if code := evalError(t, i, `"A"`); code != ErrTM {
		t.Errorf("bare string = %v, want TM", code)
	}
	if code := evalError(t, i, `"A"+1`); code != ErrTM {
		t.Errorf(`"A"+1 = %v, want TM`, code)
	}
	if code := evalError(t, i, `1+"A"`); code != ErrSN {
		t.Errorf(`1+"A" = %v, want SN`, code)
	}
}

func TestDivisionByZero(t *testing.T) {
	i, _ := newTestInterp()
	if code := evalError(t, i, "1/0"); code != ErrDZ {
		t.Errorf("1/0 = %v, want DZ", code)
	}
}

func TestNumericFunctions(t *testing.T) {
	i, _ := newTestInterp()
	tests := []struct {
		expr string
		want float64
	}{
		{"ABS(-5)", 5},
		{"SGN(-3)", -1},
		{"SGN(0)", 0},
		{"SGN(9)", 1},
		{"INT(3.7)", 3},
		{"INT(-3.7)", -4},
		{"SQR(16)", 4},
		{`LEN("HELLO")`, 5},
		{`ASC("A")`, 65},
		{`VAL("12.5")`, 12.5},
		{`VAL("JUNK")`, 0},
	}
	for _, tt := range tests {
		if got := evalNumber(t, i, tt.expr); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.expr, got, tt.want)
		}
	}

	if code := evalError(t, i, "SQR(-1)"); code != ErrFC {
		t.Errorf("SQR(-1) = %v, want FC", code)
	}
	if code := evalError(t, i, `ASC("")`); code != ErrFC {
		t.Errorf(`ASC("") = %v, want FC`, code)
	}
}

func TestStringFunctions(t *testing.T) {
	i, _ := newTestInterp()
	tests := []struct {
		expr string
		want string
	}{
		{`LEFT$("ABCDE",2)`, "AB"},
		{`RIGHT$("ABCDE",2)`, "DE"},
		{`MID$("ABCDE",2,3)`, "BCD"},
		{`MID$("ABCDE",3)`, "CDE"},
		{`CHR$(65)`, "A"},
		{`CHR$(300)`, ""},
		{`STR$(7)`, " 7"},
		{`STR$(-7)`, "-7"},
		{`"FOO"+"BAR"`, "FOOBAR"},
	}
	for _, tt := range tests {
		d, _, err := i.evalString(Tokenize(tt.expr))
		if err != nil {
			t.Fatalf("eval %q: %v", tt.expr, err)
		}
		if got := i.mem.StringValue(d); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.expr, got, tt.want)
		}
	}
}

func TestVariablesInExpressions(t *testing.T) {
	i, _ := newTestInterp()
	i.mem.VarSetNumber(encodeVarName("A"), mustParse(t, "6"))
	i.mem.VarSetNumber(encodeVarName("B2"), mustParse(t, "7"))
	if got := evalNumber(t, i, "A*B2"); got != 42 {
		t.Errorf("A*B2 = %v, want 42", got)
	}
	// Unknown variables read as zero.
	if got := evalNumber(t, i, "Q+1"); got != 1 {
		t.Errorf("Q+1 = %v, want 1", got)
	}
}

func TestArrayElementInExpression(t *testing.T) {
	i, _ := newTestInterp()
	id := encodeVarName("A")
	i.mem.ArraySetNumber(id, []int{3}, mustParse(t, "9"))
	if got := evalNumber(t, i, "A(3)*2"); got != 18 {
		t.Errorf("A(3)*2 = %v, want 18", got)
	}
}

func TestScientificNotationLiterals(t *testing.T) {
	i, _ := newTestInterp()
	tests := []struct {
		expr string
		want float64
	}{
		{"1E3", 1000},
		{"1.5E2", 150},
		// The minus is stored as the subtraction operator, so this is
		// 2E0 minus 2, not 2E-2.
		{"2E-2", 0},
		{".5", 0.5},
	}
	for _, tt := range tests {
		if got := evalNumber(t, i, tt.expr); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.expr, got, tt.want)
		}
	}
}
