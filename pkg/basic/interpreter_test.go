package basic

import (
	"bytes"
	"strings"
	"testing"
)

// feed loads program lines and returns the interpreter ready to RUN.
func feed(t *testing.T, lines ...string) (*Interp, *bytes.Buffer) {
	t.Helper()
	i, out := newTestInterp()
	for _, l := range lines {
		if err := i.ExecuteLine(l); err != nil {
			t.Fatalf("ExecuteLine(%q): %v", l, err)
		}
	}
	out.Reset()
	return i, out
}

// output normalizes line endings for assertions.
func output(out *bytes.Buffer) string {
	return strings.ReplaceAll(out.String(), "\r\n", "\n")
}

func run(t *testing.T, i *Interp) {
	t.Helper()
	if err := i.ExecuteLine("RUN"); err != nil {
		t.Fatalf("RUN: %v", err)
	}
}

func TestHelloWorld(t *testing.T) {
	i, out := feed(t, `10 PRINT "HELLO"`)
	run(t, i)
	if got := output(out); got != "HELLO\n" {
		t.Errorf("output = %q", got)
	}
}

func TestPrintNumberPadding(t *testing.T) {
	i, out := feed(t, "10 PRINT 7", "20 PRINT -7")
	run(t, i)
	if got := output(out); got != " 7 \n-7 \n" {
		t.Errorf("output = %q", got)
	}
}

func TestPrintSeparators(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"semicolon joins", `10 PRINT "A";"B"`, "AB\n"},
		{"trailing semicolon suppresses newline", `10 PRINT "A";`, "A"},
		{"comma zones", `10 PRINT "A","B"`, "A             B\n"},
		{"tab", `10 PRINT TAB(10);"X"`, "         X\n"},
		{"spc", `10 PRINT "A";SPC(3);"B"`, "A   B\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, out := feed(t, tt.line)
			run(t, i)
			if got := output(out); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestForLoopRunsToCompletion(t *testing.T) {
	i, out := feed(t,
		"10 FOR I = 1 TO 3",
		"20 PRINT I",
		"30 NEXT I")
	run(t, i)
	if got := output(out); got != " 1 \n 2 \n 3 \n" {
		t.Errorf("output = %q", got)
	}
	// After the loop the variable holds the first value past the limit
	// and the frame is gone.
	if got := i.mem.VarGetNumber(encodeVarName("I")).Float64(); got != 4 {
		t.Errorf("I after loop = %v, want 4", got)
	}
	if i.forSP != 0 {
		t.Errorf("forSP = %d, want 0", i.forSP)
	}
}

func TestForStepAndNegative(t *testing.T) {
	i, out := feed(t,
		"10 FOR I = 10 TO 1 STEP -3",
		"20 PRINT I;",
		"30 NEXT")
	run(t, i)
	if got := output(out); got != " 10  7  4  1 " {
		t.Errorf("output = %q", got)
	}
}

func TestEmptyBodyForLoop(t *testing.T) {
	// NEXT's resume point is the statement after the FOR, which for an
	// empty body is the NEXT itself; the loop must still run to the limit.
	i, _ := feed(t,
		"10 FOR I = 1 TO 5",
		"20 NEXT I")
	run(t, i)
	if got := i.mem.VarGetNumber(encodeVarName("I")).Float64(); got != 6 {
		t.Errorf("I after loop = %v, want 6", got)
	}
	if i.forSP != 0 {
		t.Errorf("forSP = %d, want 0", i.forSP)
	}
}

func TestEmptyBodyForLoopOneLine(t *testing.T) {
	i, _ := feed(t, "10 FOR J = 1 TO 4: NEXT")
	run(t, i)
	if got := i.mem.VarGetNumber(encodeVarName("J")).Float64(); got != 5 {
		t.Errorf("J after loop = %v, want 5", got)
	}
	if i.forSP != 0 {
		t.Errorf("forSP = %d, want 0", i.forSP)
	}
}

func TestNamedNextUnwindsInnerLoops(t *testing.T) {
	i, _ := feed(t,
		"10 FOR I = 1 TO 2",
		"20 FOR J = 1 TO 5",
		"30 NEXT I")
	run(t, i)
	// NEXT I discards J's frame each pass; both gone at the end.
	if i.forSP != 0 {
		t.Errorf("forSP = %d, want 0", i.forSP)
	}
	if got := i.mem.VarGetNumber(encodeVarName("I")).Float64(); got != 3 {
		t.Errorf("I = %v, want 3", got)
	}
}

func TestSameVariableForReusesFrame(t *testing.T) {
	i, _ := feed(t,
		"10 FOR I = 1 TO 2",
		"20 FOR I = 1 TO 2",
		"30 NEXT I",
		"40 PRINT I")
	run(t, i)
	if i.forSP != 0 {
		t.Errorf("forSP = %d, want 0 (same-variable FOR must reuse the frame)", i.forSP)
	}
}

func TestGosubReturn(t *testing.T) {
	i, out := feed(t,
		`10 PRINT "A";`,
		"20 GOSUB 100",
		`30 PRINT "C";`,
		"40 END",
		`100 PRINT "B";`,
		"110 RETURN")
	run(t, i)
	if got := output(out); got != "ABC" {
		t.Errorf("output = %q, want ABC", got)
	}
	if i.gosubSP != 0 {
		t.Errorf("gosubSP = %d, want 0", i.gosubSP)
	}
	if i.canContinue {
		t.Error("program ended by END must not be continuable")
	}
}

func TestReturnPointIgnoresQuotedColon(t *testing.T) {
	// A ':' inside a string literal on the GOSUB's line must not be taken
	// for a statement separator when the return point is saved.
	i, out := feed(t,
		`10 A$ = ":"`,
		`20 IF A$=":" THEN GOSUB 100`,
		`30 PRINT "OK"`,
		"40 END",
		"100 RETURN")
	run(t, i)
	if got := output(out); got != "OK\n" {
		t.Errorf("output = %q, want OK", got)
	}
}

func TestReturnWithoutGosub(t *testing.T) {
	i, out := feed(t, "10 RETURN")
	run(t, i)
	if !strings.Contains(output(out), "?RG ERROR IN 10") {
		t.Errorf("output = %q, want RG error", output(out))
	}
}

func TestStackOverflowIsOM(t *testing.T) {
	i, out := feed(t, "10 GOSUB 10")
	run(t, i)
	if !strings.Contains(output(out), "?OM ERROR IN 10") {
		t.Errorf("output = %q, want OM error", output(out))
	}
	if i.gosubSP != stackDepth {
		t.Errorf("gosubSP = %d, want %d frames before overflow", i.gosubSP, stackDepth)
	}
}

func TestStopAndCont(t *testing.T) {
	i, out := feed(t,
		"10 PRINT 1",
		"20 STOP",
		"30 PRINT 2")
	run(t, i)
	if got := output(out); got != " 1 \n" {
		t.Fatalf("output before CONT = %q", got)
	}
	if !i.canContinue {
		t.Fatal("STOP must leave the program continuable")
	}
	out.Reset()
	if err := i.ExecuteLine("CONT"); err != nil {
		t.Fatalf("CONT: %v", err)
	}
	if got := output(out); got != " 2 \n" {
		t.Errorf("output after CONT = %q", got)
	}
}

func TestContWithoutStopIsCN(t *testing.T) {
	i, out := newTestInterp()
	err := i.ExecuteLine("CONT")
	if err == nil || err.Code != ErrCN {
		t.Fatalf("CONT = %v, want CN", err)
	}
	if !strings.Contains(output(out), "?CN ERROR") {
		t.Errorf("output = %q", output(out))
	}
}

func TestInterruptBreaks(t *testing.T) {
	i, out := feed(t,
		"10 PRINT 1",
		"20 GOTO 10")
	i.Interrupt()
	run(t, i)
	got := output(out)
	if !strings.Contains(got, "BREAK IN 10") {
		t.Errorf("output = %q, want BREAK IN 10", got)
	}
	if !i.canContinue {
		t.Error("BREAK must leave the program continuable")
	}
}

func TestGotoUndefinedLine(t *testing.T) {
	i, out := feed(t, "10 GOTO 999")
	run(t, i)
	if !strings.Contains(output(out), "?UL ERROR IN 10") {
		t.Errorf("output = %q, want UL error", output(out))
	}
}

func TestGotoComputedTarget(t *testing.T) {
	i, out := feed(t,
		"10 A = 30",
		"20 GOTO A",
		`30 PRINT "YES"`)
	run(t, i)
	if got := output(out); got != "YES\n" {
		t.Errorf("output = %q", got)
	}
}

func TestIfThen(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"true executes clause", `10 IF 1=1 THEN PRINT "T"`, "T\n"},
		{"false skips clause", `10 IF 1=2 THEN PRINT "T"`, ""},
		{"true jumps to number", "10 IF 1 THEN 30", "X\n"},
		{"false skips whole line", `10 IF 0 THEN PRINT "A": PRINT "B"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, out := feed(t, tt.line, "20 END", `30 PRINT "X"`)
			run(t, i)
			if got := output(out); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIfFalseSkipsRestOfLine(t *testing.T) {
	i, out := feed(t,
		`10 IF 1=2 THEN PRINT "A": PRINT "B"`,
		`20 PRINT "C"`)
	run(t, i)
	if got := output(out); got != "C\n" {
		t.Errorf("output = %q, want only the next line", got)
	}
}

func TestOnGotoGosub(t *testing.T) {
	i, out := feed(t,
		"10 ON 2 GOTO 100, 200, 300",
		"20 END",
		`100 PRINT "A"`,
		"110 END",
		`200 PRINT "B"`,
		"210 END",
		`300 PRINT "C"`)
	run(t, i)
	if got := output(out); got != "B\n" {
		t.Errorf("ON 2 GOTO output = %q, want B", got)
	}

	// Out-of-range value falls through.
	i2, out2 := feed(t,
		"10 ON 9 GOTO 100",
		`20 PRINT "FELL"`,
		"30 END",
		`100 PRINT "WRONG"`)
	run(t, i2)
	if got := output(out2); got != "FELL\n" {
		t.Errorf("ON 9 output = %q, want FELL", got)
	}

	i3, out3 := feed(t,
		"10 ON 1 GOSUB 100",
		`20 PRINT "BACK"`,
		"30 END",
		`100 PRINT "SUB"`,
		"110 RETURN")
	run(t, i3)
	if got := output(out3); got != "SUB\nBACK\n" {
		t.Errorf("ON GOSUB output = %q", got)
	}
}

func TestReadData(t *testing.T) {
	i, out := feed(t,
		"10 DATA 1,2,HELLO",
		`20 DATA "QUOTED,COMMA"`,
		"30 READ A, B, C$, D$",
		"40 PRINT A+B",
		"50 PRINT C$",
		"60 PRINT D$")
	run(t, i)
	if got := output(out); got != " 3 \nHELLO\nQUOTED,COMMA\n" {
		t.Errorf("output = %q", got)
	}
}

func TestReadPastEndIsOD(t *testing.T) {
	// The scan that finds the next item treats any comma as a separator,
	// so the exhausted READ must not contain one itself.
	i, out := feed(t,
		"10 DATA 1",
		"20 READ A",
		"30 READ B")
	run(t, i)
	if !strings.Contains(output(out), "?OD ERROR IN 30") {
		t.Errorf("output = %q, want OD error", output(out))
	}
}

func TestRestore(t *testing.T) {
	i, out := feed(t,
		"10 DATA 5",
		"20 READ A",
		"30 RESTORE",
		"40 READ B",
		"50 PRINT A+B")
	run(t, i)
	if got := output(out); got != " 10 \n" {
		t.Errorf("output = %q", got)
	}
}

func TestInputStatement(t *testing.T) {
	out := &bytes.Buffer{}
	i := New(Config{
		MemorySize: MinMemorySize,
		Trig:       true,
		Input:      strings.NewReader("5,7\n"),
		Output:     out,
	})
	for _, l := range []string{"10 INPUT A, B", "20 PRINT A+B"} {
		if err := i.ExecuteLine(l); err != nil {
			t.Fatal(err)
		}
	}
	out.Reset()
	run(t, i)
	if got := output(out); got != "?  12 \n" {
		t.Errorf("output = %q", got)
	}
}

func TestDefFn(t *testing.T) {
	i, out := feed(t,
		"10 DEF FNA(X) = X*2+1",
		"20 PRINT FNA(20)",
		"30 PRINT X")
	run(t, i)
	// The parameter binding must not leak into the variable.
	if got := output(out); got != " 41 \n 0 \n" {
		t.Errorf("output = %q", got)
	}
}

func TestUndefinedFnIsUF(t *testing.T) {
	i, out := feed(t, "10 PRINT FNZ(1)")
	run(t, i)
	if !strings.Contains(output(out), "?UF ERROR IN 10") {
		t.Errorf("output = %q, want UF error", output(out))
	}
}

func TestDirectDefIsIllegal(t *testing.T) {
	i, _ := newTestInterp()
	err := i.ExecuteLine("DEF FNA(X) = X")
	if err == nil || err.Code != ErrID {
		t.Errorf("direct DEF = %v, want ID", err)
	}
}

func TestDirectStatements(t *testing.T) {
	i, out := newTestInterp()
	if err := i.ExecuteLine("PRINT 2+3"); err != nil {
		t.Fatal(err)
	}
	if got := output(out); got != " 5 \n" {
		t.Errorf("direct PRINT output = %q", got)
	}
	out.Reset()
	if err := i.ExecuteLine("A = 7"); err != nil {
		t.Fatal(err)
	}
	if got := i.mem.VarGetNumber(encodeVarName("A")).Float64(); got != 7 {
		t.Errorf("direct LET: A = %v, want 7", got)
	}
}

func TestLineEditing(t *testing.T) {
	i, out := newTestInterp()
	i.ExecuteLine("10 PRINT 1")
	i.ExecuteLine("30 PRINT 3")
	i.ExecuteLine("20 PRINT 2")
	i.ExecuteLine("10 PRINT 9") // replace
	i.ExecuteLine("30")         // delete
	out.Reset()
	i.ExecuteLine("LIST")
	got := output(out)
	want := "10 PRINT9\n20 PRINT2\n"
	if got != want {
		t.Errorf("LIST = %q, want %q", got, want)
	}
}

func TestRunClearsVariables(t *testing.T) {
	i, _ := feed(t, "10 END")
	i.ExecuteLine("A = 5")
	run(t, i)
	if got := i.mem.VarGetNumber(encodeVarName("A")).Float64(); got != 0 {
		t.Errorf("A after RUN = %v, want 0", got)
	}
}

func TestClearStatement(t *testing.T) {
	i, _ := feed(t, "10 PRINT 1")
	i.ExecuteLine("A = 5")
	i.ExecuteLine("CLEAR")
	if i.mem.VarCount() != 0 {
		t.Error("CLEAR kept variables")
	}
	if _, ok := i.mem.FindLine(10); !ok {
		t.Error("CLEAR dropped the program")
	}
}

func TestNewStatement(t *testing.T) {
	i, _ := feed(t, "10 PRINT 1")
	i.ExecuteLine("NEW")
	if i.mem.FirstLine() != -1 {
		t.Error("NEW kept the program")
	}
}

func TestPeekPokeStatements(t *testing.T) {
	i, _ := newTestInterp()
	if err := i.ExecuteLine("POKE 100, 65"); err != nil {
		t.Fatal(err)
	}
	if got := i.mem.Peek(100); got != 65 {
		t.Errorf("Peek(100) = %d, want 65", got)
	}
	if err := i.ExecuteLine("POKE 100, 300"); err == nil || err.Code != ErrFC {
		t.Errorf("POKE value 300 = %v, want FC", err)
	}
	// PEEK of a wild address reads zero instead of failing.
	i2, out := feed(t, "10 PRINT PEEK(60000)")
	run(t, i2)
	if got := output(out); got != " 0 \n" {
		t.Errorf("PEEK output = %q", got)
	}
}

func TestImpliedLetWithArrayAndString(t *testing.T) {
	i, _ := newTestInterp()
	i.ExecuteLine(`S$ = "HI"`)
	if got := i.mem.StringValue(i.mem.VarGetString(encodeVarName("S$"))); got != "HI" {
		t.Errorf("S$ = %q", got)
	}
	i.ExecuteLine("A(3) = 9")
	got, err := i.mem.ArrayGetNumber(encodeVarName("A"), []int{3})
	if err != nil {
		t.Fatal(err)
	}
	if got.Float64() != 9 {
		t.Errorf("A(3) = %v, want 9", got.Float64())
	}
}

func TestDimStatement(t *testing.T) {
	i, _ := newTestInterp()
	if err := i.ExecuteLine("DIM A(20), B$(5,5)"); err != nil {
		t.Fatal(err)
	}
	if err := i.ExecuteLine("A(20) = 1"); err != nil {
		t.Errorf("A(20): %v", err)
	}
	if err := i.ExecuteLine("DIM A(20)"); err == nil || err.Code != ErrDD {
		t.Errorf("re-DIM = %v, want DD", err)
	}
}

func TestScenarioNestedSixteenDeep(t *testing.T) {
	// Sixteen nested FOR loops are legal; the seventeenth overflows.
	lines := make([]string, 0, 34)
	for n := 0; n < stackDepth; n++ {
		v := string(rune('A' + n%26))
		if n >= 10 {
			v = v + "1"
		}
		lines = append(lines, itoa((n+1)*10)+" FOR "+v+" = 1 TO 1")
	}
	for n := stackDepth - 1; n >= 0; n-- {
		v := string(rune('A' + n%26))
		if n >= 10 {
			v = v + "1"
		}
		lines = append(lines, itoa((stackDepth+1-n)*10+200)+" NEXT "+v)
	}
	i, out := feed(t, lines...)
	run(t, i)
	if got := output(out); strings.Contains(got, "ERROR") {
		t.Fatalf("16 nested loops errored: %q", got)
	}
	if i.forSP != 0 {
		t.Errorf("forSP = %d, want 0", i.forSP)
	}
}
