package basic

// SplitLineNumber pulls a leading line number off an input line. It returns
// the number, the rest of the line with one leading run of spaces removed,
// and whether a number was present at all.
func SplitLineNumber(line string) (int, string, bool) {
	i := 0
	for i < len(line) && line[i] == ' ' {
		i++
	}
	start := i
	num := 0
	for i < len(line) && isDigit(line[i]) {
		num = num*10 + int(line[i]-'0')
		if num > 0xFFFF {
			num = 0xFFFF + 1 // out of range, reported by the caller
		}
		i++
	}
	if i == start {
		return 0, line[i:], false
	}
	for i < len(line) && line[i] == ' ' {
		i++
	}
	return num, line[i:], true
}

// matchKeyword tries every table entry at src[i:], longest-first semantics
// by table order, and returns the token byte plus the matched length. A
// keyword ending in a letter must not run straight into another
// alphanumeric character, so PRINTING is a variable, not PRINT.
func matchKeyword(src string, i int) (byte, int) {
	for idx, kw := range keywordTable {
		if len(src)-i < len(kw) {
			continue
		}
		ok := true
		for j := 0; j < len(kw); j++ {
			if upper(src[i+j]) != kw[j] {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		last := kw[len(kw)-1]
		if isAlpha(last) && i+len(kw) < len(src) && isAlnum(src[i+len(kw)]) {
			continue
		}
		return byte(TokEnd + idx), len(kw)
	}
	return 0, 0
}

// Tokenize crunches one statement line (without its line number) into the
// stored byte form: keywords become single token bytes, spaces outside
// strings are dropped, string literals pass through untouched, and REM and
// DATA suspend keyword matching the way the original does.
func Tokenize(src string) []byte {
	out := make([]byte, 0, len(src))
	inString := false
	inRem := false
	inData := false

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case inString:
			out = append(out, c)
			if c == '"' {
				inString = false
			}
			i++
		case inRem:
			out = append(out, c)
			i++
		case inData:
			out = append(out, c)
			if c == '"' {
				inString = true
			} else if c == ':' {
				inData = false
			}
			i++
		case c == ' ':
			i++
		case c == '"':
			out = append(out, c)
			inString = true
			i++
		default:
			if tok, n := matchKeyword(src, i); n > 0 {
				out = append(out, tok)
				i += n
				if tok == TokRem {
					inRem = true
				} else if tok == TokData {
					inData = true
				}
				continue
			}
			out = append(out, c)
			i++
		}
	}
	return out
}

// Detokenize expands a stored statement body back to text. Token bytes
// become their keyword text; everything else is literal.
func Detokenize(body []byte) string {
	out := make([]byte, 0, len(body)*2)
	inString := false
	for _, b := range body {
		if b == '"' {
			inString = !inString
			out = append(out, b)
			continue
		}
		if !inString && isToken(b) {
			out = append(out, tokenText(b)...)
			continue
		}
		out = append(out, b)
	}
	return string(out)
}
