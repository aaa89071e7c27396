package basic

import (
	"github.com/journich/altairbasic/pkg/logger"
	"github.com/journich/altairbasic/pkg/mbf"
)

// stackDepth is the fixed depth of both the FOR and GOSUB stacks; pushing a
// seventeenth frame is an OM error.
const stackDepth = 16

// ForFrame is one active FOR loop. The loop variable is held by encoded
// name and re-resolved on every NEXT, so the frame stays valid even if the
// variable table moves underneath it.
type ForFrame struct {
	Var   [2]byte
	Limit mbf.Word
	Step  mbf.Word
	line  int // line number to resume at
	ptr   int // text offset of the statement after the FOR
}

type gosubFrame struct {
	line int
	ptr  int
}

// Goto transfers execution to the named line; UL when it does not exist.
func (i *Interp) Goto(lineNum int) *Error {
	off, ok := i.mem.FindLine(lineNum)
	if !ok {
		return codeErr(ErrUL)
	}
	i.currentLine = lineNum
	i.textPtr = off + 4
	i.jumped = true
	return nil
}

// Gosub pushes the return position and jumps.
func (i *Interp) Gosub(lineNum, returnLine, returnPtr int) *Error {
	if i.gosubSP >= stackDepth {
		return codeErr(ErrOM)
	}
	i.gosubStack[i.gosubSP] = gosubFrame{line: returnLine, ptr: returnPtr}
	i.gosubSP++
	return i.Goto(lineNum)
}

// Return pops the innermost GOSUB; RG when the stack is empty.
func (i *Interp) Return() *Error {
	if i.gosubSP == 0 {
		return codeErr(ErrRG)
	}
	i.gosubSP--
	i.currentLine = i.gosubStack[i.gosubSP].line
	i.textPtr = i.gosubStack[i.gosubSP].ptr
	i.jumped = true
	return nil
}

// Pop discards the innermost GOSUB return without jumping.
func (i *Interp) Pop() *Error {
	if i.gosubSP == 0 {
		return codeErr(ErrRG)
	}
	i.gosubSP--
	return nil
}

// pushFor starts a FOR loop: the variable gets its initial value, and an
// existing frame for the same variable is reused in place so restarting a
// loop does not pile frames up.
func (i *Interp) pushFor(id [2]byte, initial, limit, step mbf.Word, nextLine, nextPtr int) *Error {
	if i.forSP >= stackDepth {
		return codeErr(ErrOM)
	}
	if err := i.mem.VarSetNumber(id, initial); err != nil {
		return asBasicError(err)
	}
	for n := i.forSP - 1; n >= 0; n-- {
		if i.forStack[n].Var == id {
			i.forStack[n].line = nextLine
			i.forStack[n].ptr = nextPtr
			i.forStack[n].Limit = limit
			i.forStack[n].Step = step
			return nil
		}
	}
	i.forStack[i.forSP] = ForFrame{Var: id, Limit: limit, Step: step, line: nextLine, ptr: nextPtr}
	i.forSP++
	return nil
}

// doNext steps one FOR loop. A named NEXT unwinds to the matching frame,
// discarding inner loops; an unnamed NEXT uses the top frame. Reports
// whether the loop continued (and therefore jumped).
func (i *Interp) doNext(id [2]byte, named bool) (bool, *Error) {
	idx := i.forSP - 1
	if named {
		if _, ok := i.mem.VarFind(id); !ok {
			return false, codeErr(ErrNF)
		}
		for idx >= 0 && i.forStack[idx].Var != id {
			idx--
		}
		if idx < 0 {
			return false, codeErr(ErrNF)
		}
		i.forSP = idx + 1
	} else if idx < 0 {
		return false, codeErr(ErrNF)
	}

	frame := &i.forStack[idx]
	value := mbf.Add(i.mem.VarGetNumber(frame.Var), frame.Step)
	if err := i.mem.VarSetNumber(frame.Var, value); err != nil {
		return false, asBasicError(err)
	}

	cmp := mbf.Cmp(value, frame.Limit)
	var again bool
	if mbf.Sign(frame.Step) >= 0 {
		again = cmp <= 0
	} else {
		again = cmp >= 0
	}

	if again {
		i.currentLine = frame.line
		i.textPtr = frame.ptr
		i.jumped = true
	} else {
		i.forSP = idx
	}
	return again, nil
}

// End halts execution without the possibility of CONT.
func (i *Interp) End() {
	i.running = false
	i.canContinue = false
}

// Stop halts execution, remembering where to continue. The run loop
// advances the saved pointer past the STOP statement so CONT resumes at
// the one after it.
func (i *Interp) Stop() {
	i.running = false
	i.canContinue = true
	i.contLine = i.currentLine
	i.contPtr = i.textPtr
	logger.RuntimeDebug("STOP at line %d", i.currentLine)
}

// Cont resumes a stopped program; CN when there is nothing to resume.
func (i *Interp) Cont() *Error {
	if !i.canContinue {
		return codeErr(ErrCN)
	}
	i.running = true
	i.currentLine = i.contLine
	i.textPtr = i.contPtr
	return nil
}

// onSelect picks the value'th line of an ON list; 0 means out of range, in
// which case execution just falls through to the next statement.
func onSelect(value int, lines []int) int {
	if value < 1 || value > len(lines) {
		return 0
	}
	return lines[value-1]
}

// clearStacks drops every pending FOR and GOSUB frame.
func (i *Interp) clearStacks() {
	i.forSP = 0
	i.gosubSP = 0
}

// afterStatement resolves the text offset of the statement following the
// one at textPtr: past the colon on the same line, or the body of the next
// line. last is what to report when the current line is the final one.
// The colon search uses the same quote-aware delimiting as the run loop,
// so a ':' inside a string literal never becomes a resume point.
func (i *Interp) afterStatement(last int) (line, ptr int) {
	line = i.currentLine
	ptr = i.textPtr

	end := i.mem.statementEnd(i.textPtr)
	if end < len(i.mem.data) && i.mem.data[end] == ':' {
		return line, end + 1
	}

	_, lineStart, ok := i.mem.LineContaining(i.textPtr)
	if !ok {
		return line, ptr
	}
	link := i.mem.lineLink(lineStart)
	if link == 0 {
		return line, last
	}
	return i.mem.lineNumber(link), link + 4
}
