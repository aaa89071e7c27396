package basic

// Token values for keywords stored in program memory. Bytes below 0x80 are
// literal ASCII; everything at or above TokEnd is one table entry, assigned
// in table order starting at 0x81.
const (
	TokEnd     = 0x81
	TokFor     = 0x82
	TokNext    = 0x83
	TokData    = 0x84
	TokInput   = 0x85
	TokDim     = 0x86
	TokRead    = 0x87
	TokLet     = 0x88
	TokGoto    = 0x89
	TokRun     = 0x8A
	TokIf      = 0x8B
	TokRestore = 0x8C
	TokGosub   = 0x8D
	TokReturn  = 0x8E
	TokRem     = 0x8F
	TokStop    = 0x90
	TokOut     = 0x91
	TokOn      = 0x92
	TokNull    = 0x93
	TokWait    = 0x94
	TokDef     = 0x95
	TokPoke    = 0x96
	TokPrint   = 0x97
	TokCont    = 0x98
	TokList    = 0x99
	TokClear   = 0x9A
	TokCload   = 0x9B
	TokCsave   = 0x9C
	TokNew     = 0x9D

	TokTab  = 0x9E
	TokTo   = 0x9F
	TokFn   = 0xA0
	TokSpc  = 0xA1
	TokThen = 0xA2
	TokNot  = 0xA3
	TokStep = 0xA4

	TokPlus  = 0xA5
	TokMinus = 0xA6
	TokMul   = 0xA7
	TokDiv   = 0xA8
	TokPower = 0xA9
	TokAnd   = 0xAA
	TokOr    = 0xAB
	TokGt    = 0xAC
	TokEq    = 0xAD
	TokLt    = 0xAE

	TokSgn    = 0xAF
	TokInt    = 0xB0
	TokAbs    = 0xB1
	TokUsr    = 0xB2
	TokFre    = 0xB3
	TokInp    = 0xB4
	TokPos    = 0xB5
	TokSqr    = 0xB6
	TokRnd    = 0xB7
	TokLog    = 0xB8
	TokExp    = 0xB9
	TokCos    = 0xBA
	TokSin    = 0xBB
	TokTan    = 0xBC
	TokAtn    = 0xBD
	TokPeek   = 0xBE
	TokLen    = 0xBF
	TokStr    = 0xC0
	TokVal    = 0xC1
	TokAsc    = 0xC2
	TokChr    = 0xC3
	TokLeft   = 0xC4
	TokRight  = 0xC5
	TokMid    = 0xC6
	TokStrEnd = 0xC6
)

// keywordTable lists every keyword in token order; the tokenizer matches
// greedily in this order (first hit wins), so entries that are prefixes of
// other entries come after them only where the original's table does.
var keywordTable = []string{
	"END", "FOR", "NEXT", "DATA", "INPUT", "DIM", "READ", "LET",
	"GOTO", "RUN", "IF", "RESTORE", "GOSUB", "RETURN", "REM", "STOP",
	"OUT", "ON", "NULL", "WAIT", "DEF", "POKE", "PRINT", "CONT",
	"LIST", "CLEAR", "CLOAD", "CSAVE", "NEW",
	"TAB(", "TO", "FN", "SPC(", "THEN", "NOT", "STEP",
	"+", "-", "*", "/", "^", "AND", "OR", ">", "=", "<",
	"SGN", "INT", "ABS", "USR", "FRE", "INP", "POS", "SQR", "RND",
	"LOG", "EXP", "COS", "SIN", "TAN", "ATN", "PEEK", "LEN", "STR$",
	"VAL", "ASC", "CHR$", "LEFT$", "RIGHT$", "MID$",
}

// tokenText returns the keyword text for a token byte, or "" if the byte is
// not a token.
func tokenText(tok byte) string {
	idx := int(tok) - TokEnd
	if idx < 0 || idx >= len(keywordTable) {
		return ""
	}
	return keywordTable[idx]
}

// isToken reports whether b is a keyword token rather than literal ASCII.
func isToken(b byte) bool { return b >= TokEnd && b <= TokStrEnd }

// isFunctionToken reports whether tok names a built-in function.
func isFunctionToken(tok byte) bool { return tok >= TokSgn && tok <= TokMid }

// isStringFunctionToken reports whether tok names a function returning a
// string (STR$ through MID$, minus the numeric ones taking string args).
func isStringFunctionToken(tok byte) bool {
	switch tok {
	case TokStr, TokChr, TokLeft, TokRight, TokMid:
		return true
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isAlnum(b byte) bool { return isAlpha(b) || isDigit(b) }

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
