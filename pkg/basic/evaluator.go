package basic

import "github.com/journich/altairbasic/pkg/mbf"

// parser evaluates tokenized expressions as it parses them, one precedence
// level per method, the first error sticking in err.
type parser struct {
	ip   *Interp
	code []byte
	pos  int
	err  *Error
}

func (p *parser) peek() byte {
	if p.pos >= len(p.code) {
		return 0
	}
	return p.code[p.pos]
}

func (p *parser) peekAt(n int) byte {
	if p.pos+n >= len(p.code) {
		return 0
	}
	return p.code[p.pos+n]
}

func (p *parser) next() byte {
	if p.pos >= len(p.code) {
		return 0
	}
	b := p.code[p.pos]
	p.pos++
	return b
}

func (p *parser) skipSpace() {
	for p.pos < len(p.code) && p.code[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) expect(b byte) bool {
	p.skipSpace()
	if p.peek() == b {
		p.next()
		return true
	}
	return false
}

func (p *parser) fail(code ErrorCode) mbf.Word {
	if p.err == nil {
		p.err = codeErr(code)
	}
	return mbf.Zero
}

// toInt16 truncates for the bitwise operators, which work on 16-bit
// integers; out-of-range values collapse to zero the way the original's
// unchecked conversion does.
func toInt16(w mbf.Word) int16 {
	v, _ := w.ToInt16()
	return v
}

// evalExpression evaluates a numeric expression at the front of code,
// returning the value and the number of bytes consumed.
func (i *Interp) evalExpression(code []byte) (mbf.Word, int, *Error) {
	p := &parser{ip: i, code: code}
	v := p.expression()
	return v, p.pos, p.err
}

// evalString evaluates a string expression (with concatenation) at the
// front of code.
func (i *Interp) evalString(code []byte) (StrDesc, int, *Error) {
	p := &parser{ip: i, code: code}
	d := p.stringArg()
	return d, p.pos, p.err
}

func (p *parser) expression() mbf.Word {
	p.skipSpace()
	return p.orExpr()
}

func (p *parser) orExpr() mbf.Word {
	left := p.andExpr()
	for p.peek() == TokOr {
		p.next()
		right := p.andExpr()
		left = mbf.FromInt16(toInt16(left) | toInt16(right))
	}
	return left
}

func (p *parser) andExpr() mbf.Word {
	left := p.notExpr()
	for p.peek() == TokAnd {
		p.next()
		right := p.notExpr()
		left = mbf.FromInt16(toInt16(left) & toInt16(right))
	}
	return left
}

func (p *parser) notExpr() mbf.Word {
	if p.peek() == TokNot {
		p.next()
		return mbf.FromInt16(^toInt16(p.notExpr()))
	}
	return p.relational()
}

// isStringExprStart looks ahead for a string-valued expression: a literal,
// a string function, or a variable name ending in $.
func (p *parser) isStringExprStart() bool {
	save := p.pos
	defer func() { p.pos = save }()

	p.skipSpace()
	c := p.peek()
	switch {
	case c == '"':
		return true
	case isStringFunctionToken(c):
		return true
	case isAlpha(c):
		p.next()
		if isAlnum(p.peek()) {
			p.next()
		}
		return p.peek() == '$'
	}
	return false
}

// relOp classifies a (possibly compound) relational operator: =, <, >, <=,
// >=, <>. Returns the comparison outcomes it accepts.
func (p *parser) relOp() (lt, eq, gt, ok bool) {
	p.skipSpace()
	op := p.peek()
	if op != TokEq && op != TokLt && op != TokGt && op != '=' && op != '<' && op != '>' {
		return false, false, false, false
	}
	p.next()
	op2 := p.peek()
	switch {
	case op == TokEq || op == '=':
		return false, true, false, true
	case op == TokLt || op == '<':
		if op2 == TokGt || op2 == '>' {
			p.next()
			return true, false, true, true // <>
		}
		if op2 == TokEq || op2 == '=' {
			p.next()
			return true, true, false, true // <=
		}
		return true, false, false, true
	default: // > variants
		if op2 == TokEq || op2 == '=' {
			p.next()
			return false, true, true, true // >=
		}
		return false, false, true, true
	}
}

func relResult(cmp int, lt, eq, gt bool) mbf.Word {
	hit := (cmp < 0 && lt) || (cmp == 0 && eq) || (cmp > 0 && gt)
	if hit {
		return mbf.FromInt16(-1)
	}
	return mbf.Zero
}

func (p *parser) relational() mbf.Word {
	if p.isStringExprStart() {
		left := p.stringArg()
		if p.err != nil {
			return mbf.Zero
		}
		lt, eq, gt, ok := p.relOp()
		if !ok {
			// A bare string has no numeric value.
			return p.fail(ErrTM)
		}
		right := p.stringArg()
		if p.err != nil {
			return mbf.Zero
		}
		return relResult(p.ip.mem.CompareStrings(left, right), lt, eq, gt)
	}

	left := p.additive()
	lt, eq, gt, ok := p.relOp()
	if !ok {
		return left
	}
	right := p.additive()
	return relResult(mbf.Cmp(left, right), lt, eq, gt)
}

func (p *parser) additive() mbf.Word {
	left := p.multiplicative()
	for {
		p.skipSpace()
		switch p.peek() {
		case TokPlus:
			p.next()
			left = mbf.Add(left, p.multiplicative())
		case TokMinus:
			p.next()
			left = mbf.Sub(left, p.multiplicative())
		default:
			return left
		}
	}
}

func (p *parser) multiplicative() mbf.Word {
	left := p.power()
	for {
		p.skipSpace()
		switch p.peek() {
		case TokMul:
			p.next()
			left = mbf.Mul(left, p.power())
		case TokDiv:
			p.next()
			right := p.power()
			q, ok := mbf.Div(left, right)
			if !ok {
				return p.fail(ErrDZ)
			}
			left = q
		default:
			return left
		}
	}
}

func (p *parser) power() mbf.Word {
	left := p.unary()
	for p.peek() == TokPower {
		p.next()
		right := p.unary()
		r, ok := mbf.Pow(left, right)
		if !ok {
			return p.fail(ErrFC)
		}
		left = r
	}
	return left
}

func (p *parser) unary() mbf.Word {
	p.skipSpace()
	switch p.peek() {
	case TokPlus:
		p.next()
		return p.unary()
	case TokMinus:
		p.next()
		return mbf.Neg(p.unary())
	}
	return p.primary()
}

func (p *parser) primary() mbf.Word {
	p.skipSpace()
	c := p.peek()

	if c == '(' {
		p.next()
		v := p.expression()
		if !p.expect(')') {
			return p.fail(ErrSN)
		}
		return v
	}

	if isDigit(c) || c == '.' {
		return p.number()
	}

	if isStringFunctionToken(c) {
		return p.fail(ErrTM)
	}
	if isFunctionToken(c) {
		p.next()
		return p.function(c)
	}

	if c == TokFn || p.literalFN() {
		return p.userFunction(c == TokFn)
	}

	if isAlpha(c) {
		var id [2]byte
		id[0] = upper(p.next())
		if isAlnum(p.peek()) {
			id[1] = upper(p.next())
		}
		if p.peek() == '$' {
			// String value where a number is wanted reads as zero; the
			// relational level catches the meaningful cases first.
			p.next()
			return mbf.Zero
		}
		if p.peek() == '(' {
			subs, ok := p.subscripts()
			if !ok {
				return mbf.Zero
			}
			v, err := p.ip.mem.ArrayGetNumber(id, subs)
			if err != nil {
				return p.fail(asBasicError(err).Code)
			}
			return v
		}
		return p.ip.mem.VarGetNumber(id)
	}

	if p.pos >= len(p.code) {
		return p.fail(ErrMO)
	}
	return p.fail(ErrSN)
}

// literalFN reports whether the input spells out F N letter without the FN
// token, which happens when the keyword boundary rule kept it literal.
func (p *parser) literalFN() bool {
	return upper(p.peek()) == 'F' && upper(p.peekAt(1)) == 'N' && isAlpha(p.peekAt(2))
}

// subscripts parses "(expr[,expr])" into one or two indices.
func (p *parser) subscripts() ([]int, bool) {
	p.next() // consume (
	first := p.expression()
	if p.err != nil {
		return nil, false
	}
	i1, over := first.ToInt16()
	if over {
		p.fail(ErrBS)
		return nil, false
	}
	subs := []int{int(i1)}
	p.skipSpace()
	if p.peek() == ',' {
		p.next()
		second := p.expression()
		if p.err != nil {
			return nil, false
		}
		i2, over := second.ToInt16()
		if over {
			p.fail(ErrBS)
			return nil, false
		}
		subs = append(subs, int(i2))
	}
	if !p.expect(')') {
		p.fail(ErrSN)
		return nil, false
	}
	return subs, true
}

// number scans a literal the way the original does: digits, a decimal
// point, and an exponent whose sign must directly follow the E.
func (p *parser) number() mbf.Word {
	start := p.pos
	for p.pos < len(p.code) {
		c := p.code[p.pos]
		if isDigit(c) || c == '.' || c == 'E' || c == 'e' ||
			((c == '+' || c == '-') && p.pos > start &&
				(p.code[p.pos-1] == 'E' || p.code[p.pos-1] == 'e')) {
			p.pos++
		} else {
			break
		}
	}
	w, _ := mbf.Parse(string(p.code[start:p.pos]))
	return w
}

// userFunction evaluates FNx(arg) against its stored definition. The
// parameter variable is saved, bound to the argument, and restored after.
func (p *parser) userFunction(tokenized bool) mbf.Word {
	if tokenized {
		p.next() // FN token
	} else {
		p.next() // F
		p.next() // N
	}
	if !isAlpha(p.peek()) {
		return p.fail(ErrSN)
	}
	idx := int(upper(p.next()) - 'A')

	fn := &p.ip.userFuncs[idx]
	if fn.name == 0 {
		return p.fail(ErrUF)
	}

	if !p.expect('(') {
		return p.fail(ErrSN)
	}
	arg := p.expression()
	if p.err != nil {
		return mbf.Zero
	}
	if !p.expect(')') {
		return p.fail(ErrSN)
	}

	// Re-read the parameter name and body from program memory.
	mem := p.ip.mem
	dp := fn.ptr
	if mem.Peek(dp) != '(' {
		return p.fail(ErrSN)
	}
	dp++
	if !isAlpha(mem.Peek(dp)) {
		return p.fail(ErrSN)
	}
	var param [2]byte
	param[0] = upper(mem.Peek(dp))
	dp++
	if isAlnum(mem.Peek(dp)) {
		param[1] = upper(mem.Peek(dp))
		dp++
	}
	if mem.Peek(dp) != ')' {
		return p.fail(ErrSN)
	}
	dp++
	for mem.Peek(dp) == ' ' {
		dp++
	}
	if mem.Peek(dp) != '=' && mem.Peek(dp) != TokEq {
		return p.fail(ErrSN)
	}
	dp++

	body := dp
	for mem.Peek(body) != 0 && mem.Peek(body) != ':' {
		body++
	}

	saved := mem.VarGetNumber(param)
	if err := mem.VarSetNumber(param, arg); err != nil {
		return p.fail(asBasicError(err).Code)
	}
	result, _, evalErr := p.ip.evalExpression(mem.data[dp:body])
	mem.VarSetNumber(param, saved)

	if evalErr != nil {
		p.err = evalErr
		return mbf.Zero
	}
	return result
}

// function evaluates one built-in numeric function token.
func (p *parser) function(tok byte) mbf.Word {
	// LEN, ASC and VAL take a string argument.
	if tok == TokLen || tok == TokAsc || tok == TokVal {
		if !p.expect('(') {
			return p.fail(ErrSN)
		}
		str := p.stringArg()
		if p.err != nil {
			return mbf.Zero
		}
		if !p.expect(')') {
			return p.fail(ErrSN)
		}
		switch tok {
		case TokLen:
			return mbf.FromInt16(int16(str.Length))
		case TokAsc:
			if str.Length == 0 || str.Ptr == 0 {
				return p.fail(ErrFC)
			}
			return mbf.FromInt16(int16(p.ip.mem.Peek(str.Ptr)))
		default: // VAL
			w, n := mbf.Parse(p.ip.mem.StringValue(str))
			if n == 0 {
				return mbf.Zero
			}
			return w
		}
	}

	if !p.expect('(') {
		return p.fail(ErrSN)
	}
	arg := p.expression()
	if p.err != nil {
		return mbf.Zero
	}
	if !p.expect(')') {
		return p.fail(ErrSN)
	}

	switch tok {
	case TokAbs:
		return mbf.Abs(arg)
	case TokSgn:
		return mbf.FromInt16(int16(mbf.Sign(arg)))
	case TokInt:
		return mbf.Int(arg)
	case TokSqr:
		r, ok := mbf.Sqr(arg)
		if !ok {
			return p.fail(ErrFC)
		}
		return r
	case TokRnd:
		return p.ip.rnd.Next(arg)
	case TokSin, TokCos, TokTan, TokAtn:
		if !p.ip.trig {
			return p.fail(ErrFC)
		}
		switch tok {
		case TokSin:
			return mbf.Sin(arg)
		case TokCos:
			return mbf.Cos(arg)
		case TokTan:
			return mbf.Tan(arg)
		default:
			return mbf.Atn(arg)
		}
	case TokLog:
		r, ok := mbf.Log(arg)
		if !ok {
			return p.fail(ErrFC)
		}
		return r
	case TokExp:
		r, over := mbf.Exp(arg)
		if over {
			return p.fail(ErrOV)
		}
		return r
	case TokPeek:
		addr, over := arg.ToInt16()
		if over || addr < 0 {
			return mbf.Zero
		}
		return mbf.FromInt16(int16(p.ip.mem.Peek(int(addr))))
	case TokFre:
		w, _ := mbf.FromFloat64(float64(p.ip.mem.Free()))
		return w
	case TokPos:
		return mbf.FromInt16(int16(p.ip.terminalX))
	case TokUsr:
		p.ip.warnOnce(&p.ip.warnedUsr, "?USR NOT SUPPORTED")
		return mbf.Zero
	case TokInp:
		p.ip.warnOnce(&p.ip.warnedInp, "?INP NOT SUPPORTED")
		return mbf.Zero
	}
	return p.fail(ErrSN)
}

// stringArg parses a string expression: one term, or several joined by +.
func (p *parser) stringArg() StrDesc {
	result := p.stringTerm()
	if p.err != nil {
		return result
	}
	p.skipSpace()
	for p.peek() == TokPlus || p.peek() == '+' {
		p.next()
		p.skipSpace()
		right := p.stringTerm()
		if p.err != nil {
			return result
		}
		joined, err := p.ip.mem.Concat(result, right)
		if err != nil {
			p.fail(asBasicError(err).Code)
			return result
		}
		result = joined
		p.skipSpace()
	}
	return result
}

// stringTerm parses a single string value: literal, variable, array
// element or string function.
func (p *parser) stringTerm() StrDesc {
	p.skipSpace()
	c := p.peek()

	if c == '"' {
		p.next()
		start := p.pos
		for p.pos < len(p.code) && p.code[p.pos] != '"' && p.code[p.pos] != 0 {
			p.pos++
		}
		lit := p.code[start:p.pos]
		if p.peek() == '"' {
			p.next()
		}
		d, err := p.ip.mem.NewString(lit)
		if err != nil {
			p.fail(asBasicError(err).Code)
			return StrDesc{}
		}
		return d
	}

	if isAlpha(c) {
		var id [2]byte
		id[0] = upper(p.next())
		if isAlnum(p.peek()) {
			id[1] = upper(p.next())
		}
		if p.peek() != '$' {
			p.fail(ErrTM)
			return StrDesc{}
		}
		p.next()
		id[1] |= 0x80

		p.skipSpace()
		if p.peek() == '(' {
			subs, ok := p.subscripts()
			if !ok {
				return StrDesc{}
			}
			d, err := p.ip.mem.ArrayGetString(id, subs)
			if err != nil {
				p.fail(asBasicError(err).Code)
				return StrDesc{}
			}
			return d
		}
		return p.ip.mem.VarGetString(id)
	}

	if isStringFunctionToken(c) {
		return p.stringFunction()
	}

	p.fail(ErrTM)
	return StrDesc{}
}

// stringFunction parses LEFT$, RIGHT$, MID$, CHR$ and STR$.
func (p *parser) stringFunction() StrDesc {
	tok := p.next()
	if !p.expect('(') {
		p.fail(ErrSN)
		return StrDesc{}
	}

	clampCount := func(w mbf.Word) int {
		n := int(toInt16(w))
		if n < 0 {
			n = 0
		}
		if n > MaxStringLength {
			n = MaxStringLength
		}
		return n
	}

	switch tok {
	case TokLeft, TokRight:
		str := p.stringArg()
		if p.err != nil {
			return StrDesc{}
		}
		if !p.expect(',') {
			p.fail(ErrSN)
			return StrDesc{}
		}
		n := clampCount(p.expression())
		if p.err != nil || !p.expect(')') {
			p.fail(ErrSN)
			return StrDesc{}
		}
		var d StrDesc
		var err error
		if tok == TokLeft {
			d, err = p.ip.mem.Left(str, n)
		} else {
			d, err = p.ip.mem.Right(str, n)
		}
		if err != nil {
			p.fail(asBasicError(err).Code)
			return StrDesc{}
		}
		return d

	case TokMid:
		str := p.stringArg()
		if p.err != nil {
			return StrDesc{}
		}
		if !p.expect(',') {
			p.fail(ErrSN)
			return StrDesc{}
		}
		start := int(toInt16(p.expression()))
		if start < 1 {
			start = 1
		}
		count := MaxStringLength
		if p.expect(',') {
			count = clampCount(p.expression())
		}
		if p.err != nil || !p.expect(')') {
			p.fail(ErrSN)
			return StrDesc{}
		}
		d, err := p.ip.mem.Mid(str, start, count)
		if err != nil {
			p.fail(asBasicError(err).Code)
			return StrDesc{}
		}
		return d

	case TokChr:
		code := int(toInt16(p.expression()))
		if !p.expect(')') {
			p.fail(ErrSN)
			return StrDesc{}
		}
		if code < 0 || code > 255 {
			return StrDesc{}
		}
		d, err := p.ip.mem.NewString([]byte{byte(code)})
		if err != nil {
			p.fail(asBasicError(err).Code)
			return StrDesc{}
		}
		return d

	case TokStr:
		value := p.expression()
		if p.err != nil {
			return StrDesc{}
		}
		if !p.expect(')') {
			p.fail(ErrSN)
			return StrDesc{}
		}
		text := mbf.Format(value)
		if !value.IsNegative() {
			text = " " + text
		}
		d, err := p.ip.mem.NewString([]byte(text))
		if err != nil {
			p.fail(asBasicError(err).Code)
			return StrDesc{}
		}
		return d
	}

	p.fail(ErrSN)
	return StrDesc{}
}
