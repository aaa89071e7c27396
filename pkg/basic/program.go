package basic

import "github.com/journich/altairbasic/pkg/logger"

// MaxLineNumber is the largest usable program line number.
const MaxLineNumber = 65529

// Program lines are stored back to back, lowest line number first:
//
//	link[2, LE]  line_num[2, LE]  tokenized body...  0x00
//
// link holds the offset of the next line, 0 on the last line. Because the
// nodes are packed, every link equals the offset just past the node, which
// relinkProgram rebuilds after any structural edit.

// lineLength returns the stored size of the line node at off, including the
// 4-byte header and the terminator.
func (a *Arena) lineLength(off int) int {
	n := 4
	for off+n < len(a.data) && a.data[off+n] != 0 {
		n++
	}
	return n + 1
}

func (a *Arena) lineLink(off int) int   { return a.getU16(off) }
func (a *Arena) lineNumber(off int) int { return a.getU16(off + 2) }

// FirstLine returns the offset of the lowest-numbered line, or -1 when the
// program is empty.
func (a *Arena) FirstLine() int {
	if a.programEnd == programStart {
		return -1
	}
	return programStart
}

// NextLine returns the offset of the line after the one at off, or -1 at the
// end of the program.
func (a *Arena) NextLine(off int) int {
	next := a.lineLink(off)
	if next == 0 || next >= a.programEnd {
		return -1
	}
	return next
}

// LineBody returns the tokenized statement bytes of the line at off, without
// the header or the terminator. The slice aliases arena memory.
func (a *Arena) LineBody(off int) []byte {
	return a.data[off+4 : off+a.lineLength(off)-1]
}

// FindLine locates the line with the exact number.
func (a *Arena) FindLine(num int) (int, bool) {
	for off := a.FirstLine(); off >= 0; off = a.NextLine(off) {
		n := a.lineNumber(off)
		if n == num {
			return off, true
		}
		if n > num {
			break
		}
	}
	return 0, false
}

// FindLineAtOrAfter locates the first line numbered num or higher.
func (a *Arena) FindLineAtOrAfter(num int) (int, bool) {
	for off := a.FirstLine(); off >= 0; off = a.NextLine(off) {
		if a.lineNumber(off) >= num {
			return off, true
		}
	}
	return 0, false
}

// LineContaining resolves the line whose stored bytes include offset ptr.
// The run loop uses it to recover the current line number from the text
// pointer.
func (a *Arena) LineContaining(ptr int) (num, lineStart int, ok bool) {
	for off := a.FirstLine(); off >= 0; off = a.NextLine(off) {
		if ptr >= off && ptr < off+a.lineLength(off) {
			return a.lineNumber(off), off, true
		}
	}
	return 0, 0, false
}

// relinkProgram rewrites every link field from the physical layout: each
// line points at the next packed node, the last line carries 0.
func (a *Arena) relinkProgram() {
	off := programStart
	for off < a.programEnd {
		next := off + a.lineLength(off)
		if next >= a.programEnd {
			a.putU16(off, 0)
		} else {
			a.putU16(off, next)
		}
		off = next
	}
}

func (a *Arena) writeLineNode(off, num int, body []byte) {
	a.putU16(off, 0) // fixed up by relinkProgram
	a.putU16(off+2, num)
	copy(a.data[off+4:], body)
	a.data[off+4+len(body)] = 0
}

// ClearVariables drops every variable, array and string, leaving the
// program intact. Called after program edits and by CLEAR and RUN.
func (a *Arena) ClearVariables() {
	a.varStart = a.programEnd
	a.arrayStart = a.varStart
	a.stringStart = a.stringEnd
	a.varCount = 0
}

// InsertLine stores a tokenized line, replacing any existing line with the
// same number and keeping the program sorted. On success all variables are
// cleared. Fails with OM (and changes nothing) when the arena cannot hold
// the growth.
func (a *Arena) InsertLine(num int, body []byte) error {
	if num < 1 || num > MaxLineNumber {
		return codeErr(ErrSN)
	}
	newLen := 4 + len(body) + 1

	if off, ok := a.FindLine(num); ok {
		oldLen := a.lineLength(off)
		delta := newLen - oldLen
		if delta > a.Free() {
			return codeErr(ErrOM)
		}
		copy(a.data[off+newLen:], a.data[off+oldLen:a.programEnd])
		a.programEnd += delta
		a.writeLineNode(off, num, body)
		a.relinkProgram()
		a.ClearVariables()
		logger.ProgramDebug("line %d replaced, %+d bytes", num, delta)
		return nil
	}

	if newLen > a.Free() {
		return codeErr(ErrOM)
	}
	pos := a.programEnd
	for off := a.FirstLine(); off >= 0; off = a.NextLine(off) {
		if a.lineNumber(off) > num {
			pos = off
			break
		}
	}
	a.openGap(pos, a.programEnd, newLen)
	a.programEnd += newLen
	a.writeLineNode(pos, num, body)
	a.relinkProgram()
	a.ClearVariables()
	logger.ProgramDebug("line %d inserted at %d, %d bytes", num, pos, newLen)
	return nil
}

// DeleteLine removes a line; deleting a line that does not exist is not an
// error. Variables are cleared on an actual removal.
func (a *Arena) DeleteLine(num int) {
	off, ok := a.FindLine(num)
	if !ok {
		return
	}
	oldLen := a.lineLength(off)
	a.closeGap(off, a.programEnd, oldLen)
	a.programEnd -= oldLen
	a.relinkProgram()
	a.ClearVariables()
	logger.ProgramDebug("line %d deleted, %d bytes", num, oldLen)
}

// ClearProgram wipes the program and everything above it.
func (a *Arena) ClearProgram() {
	a.programEnd = programStart
	a.ClearVariables()
}

// statementEnd scans from off for the end of one statement: the next ':'
// outside quotes or the line's 0x00 terminator. REM swallows the rest of
// the line.
func (a *Arena) statementEnd(off int) int {
	p := off
	for p < len(a.data) && a.data[p] == ' ' {
		p++
	}
	if p < len(a.data) && a.data[p] == TokRem {
		for p < len(a.data) && a.data[p] != 0 {
			p++
		}
		return p
	}
	inString := false
	for p < len(a.data) && a.data[p] != 0 {
		switch a.data[p] {
		case '"':
			inString = !inString
		case ':':
			if !inString {
				return p
			}
		}
		p++
	}
	return p
}
