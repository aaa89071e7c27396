package basic

import (
	"github.com/journich/altairbasic/pkg/logger"
	"github.com/journich/altairbasic/pkg/mbf"
)

// userFunc is one DEF FN definition: the single-letter name (0 when
// undefined) and the arena offset of the "(param)=body" text on the DEF
// line. The body is re-parsed on every call, so editing the line and
// re-running picks up the new definition.
type userFunc struct {
	name byte
	line int
	ptr  int
}

// parseVarRef reads a variable reference: one or two name characters, an
// optional $ suffix, and optional subscripts. isArr reports whether
// subscripts were present.
func (p *parser) parseVarRef() (id [2]byte, subs []int, isArr bool, ok bool) {
	p.skipSpace()
	if !isAlpha(p.peek()) {
		p.fail(ErrSN)
		return id, nil, false, false
	}
	id[0] = upper(p.next())
	if isAlnum(p.peek()) {
		id[1] = upper(p.next())
	}
	// Extra name characters are insignificant.
	for isAlnum(p.peek()) {
		p.next()
	}
	if p.peek() == '$' {
		p.next()
		id[1] |= 0x80
	}
	p.skipSpace()
	if p.peek() == '(' {
		s, good := p.subscripts()
		if !good {
			return id, nil, false, false
		}
		return id, s, true, true
	}
	return id, nil, false, true
}

// parseLineNumber reads a literal line number (digits) from the statement
// text.
func (p *parser) parseLineNumber() (int, bool) {
	p.skipSpace()
	if !isDigit(p.peek()) {
		return 0, false
	}
	n := 0
	for isDigit(p.peek()) {
		n = n*10 + int(p.next()-'0')
		if n > 0xFFFF {
			n = 0x10000
		}
	}
	return n, true
}

// assign reads p's relational operator position past "=", evaluates the
// right-hand side by the target's type, and stores it.
func (p *parser) assign(id [2]byte, subs []int, isArr bool) *Error {
	p.skipSpace()
	if p.peek() != TokEq && p.peek() != '=' {
		return codeErr(ErrSN)
	}
	p.next()

	if isStringName(id) {
		d := p.stringArg()
		if p.err != nil {
			return p.err
		}
		var err error
		if isArr {
			err = p.ip.mem.ArraySetString(id, subs, d)
		} else {
			err = p.ip.mem.VarSetString(id, d)
		}
		return asBasicError(err)
	}

	v := p.expression()
	if p.err != nil {
		return p.err
	}
	var err error
	if isArr {
		err = p.ip.mem.ArraySetNumber(id, subs, v)
	} else {
		err = p.ip.mem.VarSetNumber(id, v)
	}
	return asBasicError(err)
}

// execStatement runs one statement. In program mode code aliases arena
// memory starting at the text pointer; in direct mode it is the whole
// tokenized input line.
func (i *Interp) execStatement(code []byte, direct bool) *Error {
	p := &parser{ip: i, code: code}
	p.skipSpace()

	tok := p.peek()
	switch tok {
	case 0, TokRem, TokData:
		return nil

	case TokEnd:
		i.End()
		return nil

	case TokStop:
		i.Stop()
		return nil

	case TokPrint, '?':
		p.next()
		return i.stmtPrint(p)

	case TokList:
		p.next()
		return i.stmtList(p)

	case TokRun:
		p.next()
		return i.stmtRun(p)

	case TokNew:
		i.mem.ClearProgram()
		i.resetRunState()
		return nil

	case TokClear:
		p.next()
		return i.stmtClear(p)

	case TokCont:
		if err := i.Cont(); err != nil {
			return err
		}
		i.runProgram()
		return nil

	case TokCload, TokCsave:
		p.next()
		return i.stmtTape(p, tok)

	case TokRestore:
		p.next()
		return i.stmtRestore(p)

	case TokGoto:
		p.next()
		return i.stmtGoto(p)

	case TokGosub:
		p.next()
		return i.stmtGosub(p)

	case TokReturn:
		return i.Return()

	case TokFor:
		p.next()
		return i.stmtFor(p)

	case TokNext:
		p.next()
		return i.stmtNext(p)

	case TokIf:
		p.next()
		return i.stmtIf(p, direct)

	case TokInput:
		p.next()
		return i.stmtInput(p)

	case TokRead:
		p.next()
		return i.stmtRead(p)

	case TokDim:
		p.next()
		return i.stmtDim(p)

	case TokOn:
		p.next()
		return i.stmtOn(p)

	case TokDef:
		p.next()
		return i.stmtDef(p, direct)

	case TokPoke:
		p.next()
		return i.stmtPoke(p)

	case TokNull:
		p.next()
		return i.stmtNull(p)

	case TokOut:
		p.next()
		i.warnOnce(&i.warnedOut, "?OUT NOT SUPPORTED")
		return i.stmtDiscardArgs(p)

	case TokWait:
		p.next()
		i.warnOnce(&i.warnedWait, "?WAIT NOT SUPPORTED")
		return i.stmtDiscardArgs(p)

	case TokLet:
		p.next()
	}

	// Implied (or explicit) LET.
	p.skipSpace()
	if !isAlpha(p.peek()) {
		return codeErr(ErrSN)
	}
	id, subs, isArr, ok := p.parseVarRef()
	if !ok {
		return p.err
	}
	return p.assign(id, subs, isArr)
}

// stmtPrint handles PRINT's item list with , zones, ; joins, TAB and SPC.
func (i *Interp) stmtPrint(p *parser) *Error {
	newlineWanted := true
	for {
		p.skipSpace()
		c := p.peek()
		if c == 0 || c == ':' || p.pos >= len(p.code) {
			break
		}
		switch {
		case c == ',':
			p.next()
			i.printZone()
			newlineWanted = false
		case c == ';':
			p.next()
			newlineWanted = false
		case c == TokTab:
			p.next()
			n := int(toInt16(p.expression()))
			if p.err != nil {
				return p.err
			}
			if !p.expect(')') {
				return codeErr(ErrSN)
			}
			i.printTab(n)
			newlineWanted = true
		case c == TokSpc:
			p.next()
			n := int(toInt16(p.expression()))
			if p.err != nil {
				return p.err
			}
			if !p.expect(')') {
				return codeErr(ErrSN)
			}
			for ; n > 0; n-- {
				i.putChar(' ')
			}
			newlineWanted = true
		case p.isStringExprStart():
			d := p.stringArg()
			if p.err != nil {
				return p.err
			}
			i.printBytes(i.mem.StringBytes(d))
			newlineWanted = true
		default:
			v := p.expression()
			if p.err != nil {
				return p.err
			}
			i.printNumber(v)
			newlineWanted = true
		}
	}
	if newlineWanted {
		i.newline()
	}
	return nil
}

// stmtList prints program lines: LIST, LIST n, LIST n-, LIST n-m, LIST -m.
func (i *Interp) stmtList(p *parser) *Error {
	start := 0
	end := 0xFFFF
	single := false

	if n, ok := p.parseLineNumber(); ok {
		start = n
		single = true
	}
	p.skipSpace()
	if p.peek() == TokMinus || p.peek() == '-' {
		p.next()
		single = false
		if n, ok := p.parseLineNumber(); ok {
			end = n
		}
	}
	if single {
		end = start
	}

	first, ok := i.mem.FindLineAtOrAfter(start)
	if !ok {
		return nil
	}
	for off := first; off >= 0; off = i.mem.NextLine(off) {
		num := i.mem.lineNumber(off)
		if num > end {
			break
		}
		i.printBytes([]byte(itoa(num)))
		i.putChar(' ')
		i.printBytes([]byte(Detokenize(i.mem.LineBody(off))))
		i.newline()
		if i.interrupted.CompareAndSwap(true, false) {
			break
		}
	}
	return nil
}

// stmtRun starts the program: variables, stacks, data pointer and user
// functions are cleared first. An optional line number picks the entry
// point.
func (i *Interp) stmtRun(p *parser) *Error {
	startLine, hasStart := p.parseLineNumber()

	i.mem.ClearVariables()
	i.resetRunState()

	entry := i.mem.FirstLine()
	if hasStart {
		off, ok := i.mem.FindLine(startLine)
		if !ok {
			return codeErr(ErrUL)
		}
		entry = off
	}
	if entry < 0 {
		return nil
	}
	i.currentLine = i.mem.lineNumber(entry)
	i.textPtr = entry + 4
	i.running = true
	i.runProgram()
	return nil
}

// stmtClear wipes variables, strings, stacks, the data pointer and user
// functions. CLEAR n additionally checks that n bytes of string space would
// fit under the old memory model.
func (i *Interp) stmtClear(p *parser) *Error {
	p.skipSpace()
	if c := p.peek(); c != 0 && c != ':' && p.pos < len(p.code) {
		n, over := p.expression().ToInt16()
		if p.err != nil {
			return p.err
		}
		if over || n < 0 {
			return codeErr(ErrFC)
		}
		if n > 0 && i.mem.stringEnd-int(n) <= i.mem.programEnd {
			return codeErr(ErrOM)
		}
	}
	i.mem.ClearVariables()
	i.resetRunState()
	return nil
}

// stmtRestore resets the DATA pointer, optionally to a specific line.
func (i *Interp) stmtRestore(p *parser) *Error {
	if n, ok := p.parseLineNumber(); ok {
		off, found := i.mem.FindLine(n)
		if !found {
			return codeErr(ErrUL)
		}
		i.dataLine = n
		i.dataPtr = off + 4
		return nil
	}
	i.resetData()
	return nil
}

// gotoTarget evaluates a jump target expression to a line number; anything
// negative or out of 16-bit range is UL, matching a jump to a line that
// cannot exist.
func (p *parser) gotoTarget() (int, *Error) {
	v := p.expression()
	if p.err != nil {
		return 0, p.err
	}
	n, over := v.ToInt16()
	iv, _ := v.ToInt32()
	if over && (iv < 0 || iv > 0xFFFF) {
		return 0, codeErr(ErrUL)
	}
	if !over && n < 0 {
		return 0, codeErr(ErrUL)
	}
	if over {
		return int(iv), nil
	}
	return int(n), nil
}

func (i *Interp) stmtGoto(p *parser) *Error {
	target, err := p.gotoTarget()
	if err != nil {
		return err
	}
	return i.Goto(target)
}

func (i *Interp) stmtGosub(p *parser) *Error {
	target, err := p.gotoTarget()
	if err != nil {
		return err
	}
	retLine, retPtr := i.afterStatement(i.mem.programEnd)
	return i.Gosub(target, retLine, retPtr)
}

// stmtFor parses FOR v=a TO b [STEP c] and pushes the loop frame pointing
// at the statement after the FOR.
func (i *Interp) stmtFor(p *parser) *Error {
	id, _, isArr, ok := p.parseVarRef()
	if !ok {
		return p.err
	}
	if isArr || isStringName(id) {
		return codeErr(ErrSN)
	}
	p.skipSpace()
	if p.peek() != TokEq && p.peek() != '=' {
		return codeErr(ErrSN)
	}
	p.next()

	initial := p.expression()
	if p.err != nil {
		return p.err
	}
	p.skipSpace()
	if p.peek() != TokTo {
		return codeErr(ErrSN)
	}
	p.next()
	limit := p.expression()
	if p.err != nil {
		return p.err
	}
	step := mbf.One
	p.skipSpace()
	if p.peek() == TokStep {
		p.next()
		step = p.expression()
		if p.err != nil {
			return p.err
		}
	}

	nextLine, nextPtr := i.afterStatement(i.textPtr)
	return i.pushFor(id, initial, limit, step, nextLine, nextPtr)
}

// stmtNext steps one or more loops: NEXT, NEXT I, NEXT I,J. A comma list
// stops at the first loop that continues.
func (i *Interp) stmtNext(p *parser) *Error {
	for {
		p.skipSpace()
		named := isAlpha(p.peek())
		var id [2]byte
		if named {
			id[0] = upper(p.next())
			if isAlnum(p.peek()) {
				id[1] = upper(p.next())
			}
		}
		continued, err := i.doNext(id, named)
		if err != nil || continued {
			return err
		}
		p.skipSpace()
		if p.peek() != ',' {
			return nil
		}
		p.next()
	}
}

// stmtIf evaluates the condition; THEN is mandatory. A false condition
// skips the rest of the line. A true condition either jumps (THEN number)
// or executes the THEN clause's statements.
func (i *Interp) stmtIf(p *parser, direct bool) *Error {
	cond := p.expression()
	if p.err != nil {
		return p.err
	}
	p.skipSpace()
	if p.peek() != TokThen {
		return codeErr(ErrSN)
	}
	p.next()
	p.skipSpace()

	if cond.IsZero() {
		if !direct {
			// Skip the whole rest of the line, colons included.
			e := i.textPtr
			for e < len(i.mem.data) && i.mem.data[e] != 0 {
				e++
			}
			i.textPtr = e
			i.jumped = true
		}
		return nil
	}

	if isDigit(p.peek()) {
		n, _ := p.parseLineNumber()
		return i.Goto(n)
	}

	// Execute the THEN clause statement by statement, stopping as soon as
	// one of them jumps.
	rest := p.code[p.pos:]
	pos := 0
	for pos < len(rest) {
		end := pos
		inString := false
		for end < len(rest) && rest[end] != 0 {
			if rest[end] == '"' {
				inString = !inString
			} else if rest[end] == ':' && !inString {
				break
			}
			end++
		}
		if err := i.execStatement(rest[pos:end], direct); err != nil {
			return err
		}
		if i.jumped || !i.running && !direct {
			return nil
		}
		if end < len(rest) && rest[end] == ':' {
			pos = end + 1
		} else {
			break
		}
	}
	return nil
}

// stmtInput prompts, reads one line, and distributes the comma-separated
// fields over the variable list.
func (i *Interp) stmtInput(p *parser) *Error {
	questionMark := true
	p.skipSpace()
	if p.peek() == '"' {
		p.next()
		start := p.pos
		for p.pos < len(p.code) && p.code[p.pos] != '"' && p.code[p.pos] != 0 {
			p.pos++
		}
		i.printBytes(p.code[start:p.pos])
		if p.peek() == '"' {
			p.next()
		}
		p.skipSpace()
		switch p.peek() {
		case ';':
			p.next()
		case ',':
			p.next()
			questionMark = false
		default:
			return codeErr(ErrSN)
		}
	}
	if questionMark {
		i.printBytes([]byte("? "))
	}

	line, ok := i.readLine()
	if !ok {
		// Interrupted input stops the program without a message.
		i.Stop()
		return nil
	}

	fieldPos := 0
	nextField := func() string {
		for fieldPos < len(line) && line[fieldPos] == ' ' {
			fieldPos++
		}
		start := fieldPos
		for fieldPos < len(line) && line[fieldPos] != ',' {
			fieldPos++
		}
		f := line[start:fieldPos]
		if fieldPos < len(line) {
			fieldPos++
		}
		return f
	}

	for {
		id, subs, isArr, ok := p.parseVarRef()
		if !ok {
			return p.err
		}
		field := nextField()

		var err error
		if isStringName(id) {
			if len(field) > MaxStringLength {
				field = field[:MaxStringLength]
			}
			var d StrDesc
			d, err = i.mem.NewString([]byte(field))
			if err == nil {
				if isArr {
					err = i.mem.ArraySetString(id, subs, d)
				} else {
					err = i.mem.VarSetString(id, d)
				}
			}
		} else {
			w, _ := mbf.Parse(field)
			if isArr {
				err = i.mem.ArraySetNumber(id, subs, w)
			} else {
				err = i.mem.VarSetNumber(id, w)
			}
		}
		if err != nil {
			return asBasicError(err)
		}

		p.skipSpace()
		if p.peek() != ',' {
			return nil
		}
		p.next()
	}
}

// resetData rewinds the DATA pointer to the top of the program.
func (i *Interp) resetData() {
	off := i.mem.FirstLine()
	if off < 0 {
		i.dataPtr = -1
		i.dataLine = 0
		return
	}
	i.dataLine = i.mem.lineNumber(off)
	i.dataPtr = off + 4
}

// nextDataItem scans forward from the DATA pointer for the next item: the
// byte after a DATA token or a comma. The scan is a plain byte walk over
// line bodies, advancing line by line; running out of program is OD.
func (i *Interp) nextDataItem() (int, *Error) {
	p := i.dataPtr
	for {
		if p < 0 || p >= i.mem.programEnd {
			return 0, codeErr(ErrOD)
		}
		b := i.mem.data[p]
		if b == 0 {
			_, lineStart, ok := i.mem.LineContaining(p)
			if !ok {
				return 0, codeErr(ErrOD)
			}
			link := i.mem.lineLink(lineStart)
			if link == 0 {
				return 0, codeErr(ErrOD)
			}
			i.dataLine = i.mem.lineNumber(link)
			p = link + 4
			continue
		}
		if b == TokData || b == ',' {
			p++
			for p < len(i.mem.data) && i.mem.data[p] == ' ' {
				p++
			}
			return p, nil
		}
		p++
	}
}

// stmtRead assigns successive DATA items to the variable list.
func (i *Interp) stmtRead(p *parser) *Error {
	for {
		id, subs, isArr, ok := p.parseVarRef()
		if !ok {
			return p.err
		}

		item, err := i.nextDataItem()
		if err != nil {
			return err.at(i.currentLine)
		}

		var setErr error
		if isStringName(id) {
			var buf []byte
			q := item
			if i.mem.data[q] == '"' {
				q++
				for q < len(i.mem.data) && i.mem.data[q] != '"' && i.mem.data[q] != 0 {
					buf = append(buf, i.mem.data[q])
					q++
				}
				if q < len(i.mem.data) && i.mem.data[q] == '"' {
					q++
				}
				for q < len(i.mem.data) && i.mem.data[q] == ' ' {
					q++
				}
			} else {
				for q < len(i.mem.data) {
					b := i.mem.data[q]
					if b == 0 || b == ',' || b == ':' {
						break
					}
					buf = append(buf, b)
					q++
				}
			}
			if len(buf) > MaxStringLength {
				buf = buf[:MaxStringLength]
			}
			d, e := i.mem.NewString(buf)
			if e == nil {
				if isArr {
					e = i.mem.ArraySetString(id, subs, d)
				} else {
					e = i.mem.VarSetString(id, d)
				}
			}
			setErr = e
			i.dataPtr = q
		} else {
			end := item
			for end < len(i.mem.data) {
				b := i.mem.data[end]
				if b == 0 || b == ',' || b == ':' {
					break
				}
				end++
			}
			w, _ := mbf.Parse(string(i.mem.data[item:end]))
			if isArr {
				setErr = i.mem.ArraySetNumber(id, subs, w)
			} else {
				setErr = i.mem.VarSetNumber(id, w)
			}
			i.dataPtr = end
		}
		if setErr != nil {
			return asBasicError(setErr)
		}

		p.skipSpace()
		if p.peek() != ',' {
			return nil
		}
		p.next()
	}
}

// stmtDim dimensions one or more arrays.
func (i *Interp) stmtDim(p *parser) *Error {
	for {
		p.skipSpace()
		if !isAlpha(p.peek()) {
			return codeErr(ErrSN)
		}
		var id [2]byte
		id[0] = upper(p.next())
		if isAlnum(p.peek()) {
			id[1] = upper(p.next())
		}
		for isAlnum(p.peek()) {
			p.next()
		}
		if p.peek() == '$' {
			p.next()
			id[1] |= 0x80
		}
		p.skipSpace()
		if p.peek() != '(' {
			return codeErr(ErrSN)
		}
		subs, ok := p.subscripts()
		if !ok {
			return p.err
		}
		if err := i.mem.ArrayCreate(id, subs); err != nil {
			return asBasicError(err)
		}
		p.skipSpace()
		if p.peek() != ',' {
			return nil
		}
		p.next()
	}
}

// stmtOn dispatches ON expr GOTO/GOSUB over a line number list; a value
// outside the list falls through to the next statement.
func (i *Interp) stmtOn(p *parser) *Error {
	value := int(toInt16(p.expression()))
	if p.err != nil {
		return p.err
	}
	p.skipSpace()
	verb := p.peek()
	if verb != TokGoto && verb != TokGosub {
		return codeErr(ErrSN)
	}
	p.next()

	var lines []int
	for {
		n, ok := p.parseLineNumber()
		if !ok {
			return codeErr(ErrSN)
		}
		lines = append(lines, n)
		p.skipSpace()
		if p.peek() != ',' {
			break
		}
		p.next()
	}

	target := onSelect(value, lines)
	if target == 0 {
		return nil
	}
	if verb == TokGosub {
		retLine, retPtr := i.afterStatement(i.mem.programEnd)
		return i.Gosub(target, retLine, retPtr)
	}
	return i.Goto(target)
}

// stmtDef records a DEF FNx definition. The body stays in program memory
// and is located again at call time, so DEF only makes sense inside a
// stored program.
func (i *Interp) stmtDef(p *parser, direct bool) *Error {
	if direct {
		return codeErr(ErrID)
	}
	p.skipSpace()
	if p.peek() == TokFn {
		p.next()
	} else if p.literalFN() {
		p.next()
		p.next()
	} else {
		return codeErr(ErrSN)
	}
	if !isAlpha(p.peek()) {
		return codeErr(ErrSN)
	}
	letter := upper(p.next())
	idx := int(letter - 'A')

	p.skipSpace()
	if p.peek() != '(' {
		return codeErr(ErrSN)
	}
	i.userFuncs[idx] = userFunc{name: letter, line: i.currentLine, ptr: i.textPtr + p.pos}
	logger.RuntimeDebug("DEF FN%c at line %d", letter, i.currentLine)
	return nil
}

func (i *Interp) stmtPoke(p *parser) *Error {
	addr, over := p.expression().ToInt32()
	if p.err != nil {
		return p.err
	}
	if over || addr < 0 {
		return codeErr(ErrFC)
	}
	p.skipSpace()
	if p.peek() != ',' {
		return codeErr(ErrSN)
	}
	p.next()
	value := int(toInt16(p.expression()))
	if p.err != nil {
		return p.err
	}
	if value < 0 || value > 255 {
		return codeErr(ErrFC)
	}
	return asBasicError(i.mem.Poke(int(addr), byte(value)))
}

func (i *Interp) stmtNull(p *parser) *Error {
	n := int(toInt16(p.expression()))
	if p.err != nil {
		return p.err
	}
	if n < 0 || n > 255 {
		return codeErr(ErrFC)
	}
	i.nullCount = n
	return nil
}

// stmtDiscardArgs consumes an expression list without acting on it; used
// by the statements that exist only to be accepted.
func (i *Interp) stmtDiscardArgs(p *parser) *Error {
	for {
		p.skipSpace()
		if c := p.peek(); c == 0 || c == ':' || p.pos >= len(p.code) {
			return nil
		}
		p.expression()
		if p.err != nil {
			return p.err
		}
		p.skipSpace()
		if p.peek() != ',' {
			return nil
		}
		p.next()
	}
}

// itoa is a minimal positive-integer formatter for line numbers.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
