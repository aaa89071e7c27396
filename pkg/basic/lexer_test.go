package basic

import (
	"bytes"
	"testing"
)

func TestSplitLineNumber(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		num     int
		rest    string
		present bool
	}{
		{"numbered", "10 PRINT 1", 10, "PRINT 1", true},
		{"no space", "10PRINT 1", 10, "PRINT 1", true},
		{"leading spaces", "  20 END", 20, "END", true},
		{"delete form", "30", 30, "", true},
		{"direct", "PRINT 1", 0, "PRINT 1", false},
		{"empty", "", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			num, rest, ok := SplitLineNumber(tt.in)
			if num != tt.num || rest != tt.rest || ok != tt.present {
				t.Errorf("SplitLineNumber(%q) = (%d, %q, %v), want (%d, %q, %v)",
					tt.in, num, rest, ok, tt.num, tt.rest, tt.present)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"keyword", "PRINT", []byte{TokPrint}},
		{"lowercase keyword", "print", []byte{TokPrint}},
		{"keyword and arg", "PRINT A", []byte{TokPrint, 'A'}},
		{"question mark stays literal", "?A", []byte{'?', 'A'}},
		{"operators", "1+2*3", []byte{'1', TokPlus, '2', TokMul, '3'}},
		{"relationals", "A<=B", []byte{'A', TokLt, TokEq, 'B'}},
		{"spaces dropped", "FOR I = 1 TO 5", []byte{TokFor, 'I', TokEq, '1', TokTo, '5'}},
		{"string literal kept", `PRINT "A B"`, append([]byte{TokPrint, '"'}, []byte(`A B"`)...)},
		{"colon in string kept", `PRINT "X:Y"`, append([]byte{TokPrint, '"'}, []byte(`X:Y"`)...)},
		{"tab function", "PRINT TAB(5)", []byte{TokPrint, TokTab, '5', ')'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tokenize(tt.in); !bytes.Equal(got, tt.want) {
				t.Errorf("Tokenize(%q) = % 02X, want % 02X", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeywordBoundaryRule(t *testing.T) {
	// A keyword ending in a letter must not run into another identifier
	// character, so PRINTER is a variable, not PRINT + ER.
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"longer identifier", "PRINTER", []byte("PRINTER")},
		{"keyword then digit blocked", "TO5", []byte("TO5")},
		{"dollar keywords unaffected", "STR$(1)", []byte{TokStr, '(', '1', ')'}},
		{"paren keywords unaffected", "TAB(1)", []byte{TokTab, '1', ')'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tokenize(tt.in); !bytes.Equal(got, tt.want) {
				t.Errorf("Tokenize(%q) = % 02X, want % 02X", tt.in, got, tt.want)
			}
		})
	}
}

func TestRemAndDataStayLiteral(t *testing.T) {
	rem := Tokenize("REM PRINT IS NOT TOKENIZED")
	if rem[0] != TokRem {
		t.Fatalf("first byte = %#x, want REM token", rem[0])
	}
	if bytes.Contains(rem, []byte{TokPrint}) {
		t.Error("keyword inside REM was tokenized")
	}
	if !bytes.Contains(rem, []byte("PRINT")) {
		t.Error("REM text was altered")
	}

	data := Tokenize("DATA FOR,NEXT")
	if data[0] != TokData {
		t.Fatalf("first byte = %#x, want DATA token", data[0])
	}
	if bytes.Contains(data, []byte{TokFor}) || bytes.Contains(data, []byte{TokNext}) {
		t.Error("keyword inside DATA was tokenized")
	}

	// A colon ends DATA's literal mode.
	mixed := Tokenize("DATA 1:PRINT 2")
	if !bytes.Contains(mixed, []byte{TokPrint}) {
		t.Error("statement after DATA's colon was not tokenized")
	}
}

func TestDetokenizeRoundTrip(t *testing.T) {
	tests := []string{
		"PRINT1",
		`PRINT"HELLO"`,
		"FORI=1TO5",
		"IFA=1THENPRINT2",
		`PRINT"FOR IS LITERAL HERE"`,
	}
	for _, src := range tests {
		if got := Detokenize(Tokenize(src)); got != src {
			t.Errorf("round trip %q = %q", src, got)
		}
	}
}
