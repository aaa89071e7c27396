package basic

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/journich/altairbasic/pkg/configuration"
	"github.com/journich/altairbasic/pkg/logger"
	"github.com/journich/altairbasic/pkg/mbf"
)

// Config carries the tunable parts of an interpreter instance.
type Config struct {
	MemorySize    int
	TerminalWidth int
	Trig          bool
	Input         io.Reader
	Output        io.Writer
}

// Interp is one interpreter instance: the arena, the control-flow stacks,
// the DATA pointer, the user functions and the terminal state. Instances
// are independent; the interrupt flag is the only field touched from
// other goroutines.
type Interp struct {
	mem *Arena

	out io.Writer
	in  *bufio.Reader

	terminalX int
	width     int
	nullCount int
	trig      bool
	rnd       *mbf.Rand

	interrupted atomic.Bool

	running     bool
	canContinue bool
	currentLine int
	textPtr     int
	contLine    int
	contPtr     int

	// jumped is raised by any control transfer while a statement runs.
	// The run loop consults it rather than comparing text offsets: a
	// branch can target the executing statement's own offset (an
	// empty-body NEXT, GOSUB to the current line), which an offset
	// comparison cannot see.
	jumped bool

	forStack   [stackDepth]ForFrame
	forSP      int
	gosubStack [stackDepth]gosubFrame
	gosubSP    int

	userFuncs [26]userFunc
	dataLine  int
	dataPtr   int

	warnedUsr  bool
	warnedInp  bool
	warnedOut  bool
	warnedWait bool
}

// New builds an interpreter from cfg, applying defaults for zero fields.
func New(cfg Config) *Interp {
	if cfg.MemorySize == 0 {
		cfg.MemorySize = DefaultMemorySize
	}
	if cfg.TerminalWidth == 0 {
		cfg.TerminalWidth = 72
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	i := &Interp{
		mem:         NewArena(cfg.MemorySize),
		out:         cfg.Output,
		in:          bufio.NewReader(cfg.Input),
		width:       cfg.TerminalWidth,
		trig:        cfg.Trig,
		rnd:         mbf.NewRand(),
		currentLine: DirectLine,
	}
	i.resetData()
	logger.RuntimeDebug("interpreter created: %d bytes, width %d, trig %v",
		i.mem.Size(), i.width, i.trig)
	return i
}

// FromConfiguration builds an interpreter using the [Basic] section of the
// loaded configuration file.
func FromConfiguration(in io.Reader, out io.Writer) *Interp {
	return New(Config{
		MemorySize:    configuration.GetInt("Basic", "memory_size", DefaultMemorySize),
		TerminalWidth: configuration.GetInt("Basic", "terminal_width", 72),
		Trig:          configuration.GetBool("Basic", "want_trig", true),
		Input:         in,
		Output:        out,
	})
}

// Interrupt requests a break. Safe to call from any goroutine; the run
// loop, LIST and INPUT poll the flag.
func (i *Interp) Interrupt() {
	i.interrupted.Store(true)
}

// Running reports whether a program is currently executing.
func (i *Interp) Running() bool { return i.running }

// Memory exposes the arena, mainly for PEEK-style inspection by callers.
func (i *Interp) Memory() *Arena { return i.mem }

// Stats is a point-in-time snapshot of interpreter state for diagnostic
// display.
type Stats struct {
	Running     bool
	CanContinue bool
	CurrentLine int
	MemorySize  int
	FreeBytes   int
	ProgramSize int
	Variables   int
	ForDepth    int
	GosubDepth  int
	Width       int
	NullCount   int
}

// Snapshot captures the current Stats.
func (i *Interp) Snapshot() Stats {
	return Stats{
		Running:     i.running,
		CanContinue: i.canContinue,
		CurrentLine: i.currentLine,
		MemorySize:  i.mem.Size(),
		FreeBytes:   i.mem.Free(),
		ProgramSize: i.mem.programEnd,
		Variables:   i.mem.VarCount(),
		ForDepth:    i.forSP,
		GosubDepth:  i.gosubSP,
		Width:       i.width,
		NullCount:   i.nullCount,
	}
}

// resetRunState drops everything RUN and CLEAR reset besides the
// variables: stacks, DATA pointer, user functions and the CONT position.
func (i *Interp) resetRunState() {
	i.clearStacks()
	i.resetData()
	i.userFuncs = [26]userFunc{}
	i.canContinue = false
}

// ExecuteLine processes one input line: a numbered line edits the program,
// anything else executes immediately. Errors are printed as well as
// returned so interactive front ends only have to loop.
func (i *Interp) ExecuteLine(src string) *Error {
	num, rest, hasNum := SplitLineNumber(src)
	if hasNum {
		if num < 1 || num > MaxLineNumber {
			err := codeErr(ErrSN)
			i.printError(err)
			return err
		}
		if strings.TrimSpace(rest) == "" {
			i.mem.DeleteLine(num)
			i.resetRunState()
			return nil
		}
		if err := i.mem.InsertLine(num, Tokenize(rest)); err != nil {
			be := asBasicError(err)
			i.printError(be)
			return be
		}
		i.resetRunState()
		return nil
	}

	if strings.TrimSpace(src) == "" {
		return nil
	}
	i.currentLine = DirectLine
	i.jumped = false
	if err := i.execStatement(Tokenize(src), true); err != nil {
		be := err.at(DirectLine)
		i.printError(be)
		return be
	}
	return nil
}

// runProgram is the execution loop: delimit one statement at the text
// pointer, run it, then advance past the colon or onto the next line. A
// statement that branched has already chosen the next position.
func (i *Interp) runProgram() {
	for i.running {
		if i.interrupted.CompareAndSwap(true, false) {
			i.newline()
			i.printBytes([]byte("BREAK"))
			if i.currentLine > 0 && i.currentLine != DirectLine {
				i.printBytes([]byte(" IN " + itoa(i.currentLine)))
			}
			i.newline()
			i.running = false
			i.canContinue = true
			break
		}

		if i.textPtr >= i.mem.programEnd {
			i.End()
			break
		}
		num, lineStart, ok := i.mem.LineContaining(i.textPtr)
		if !ok {
			i.End()
			break
		}
		i.currentLine = num

		end := i.mem.statementEnd(i.textPtr)
		i.jumped = false
		if err := i.execStatement(i.mem.data[i.textPtr:end], false); err != nil {
			i.printError(err.at(i.currentLine))
			i.running = false
			i.canContinue = false
			return
		}
		if i.jumped {
			continue
		}

		if end < len(i.mem.data) && i.mem.data[end] == ':' {
			i.textPtr = end + 1
			continue
		}
		link := i.mem.lineLink(lineStart)
		if link == 0 {
			i.textPtr = i.mem.programEnd
			if i.running {
				i.End() // ran off the end of the program
			}
			break
		}
		i.textPtr = link + 4
	}

	if !i.running && i.canContinue {
		i.contLine = i.currentLine
		i.contPtr = i.textPtr
	}
}

// warnOnce prints a one-time notice for a statement or function that is
// accepted but has no machine behind it.
func (i *Interp) warnOnce(flag *bool, msg string) {
	if *flag {
		return
	}
	*flag = true
	i.printBytes([]byte(msg))
	i.newline()
}

// Terminal output. All output funnels through putChar so the column
// counter, width wrap and null padding stay consistent.

func (i *Interp) putChar(c byte) {
	switch c {
	case '\r', '\n':
		i.newline()
	case '\t':
		for {
			i.writeByte(' ')
			i.terminalX++
			if i.terminalX%8 == 0 || i.terminalX >= i.width {
				break
			}
		}
		if i.terminalX >= i.width {
			i.newline()
		}
	default:
		i.writeByte(c)
		i.terminalX++
		if i.terminalX >= i.width {
			i.newline()
		}
	}
}

func (i *Interp) writeByte(c byte) {
	i.out.Write([]byte{c})
}

// newline emits CR LF plus the configured number of fill nulls, the way
// the original paced slow teletypes.
func (i *Interp) newline() {
	i.out.Write([]byte{'\r', '\n'})
	for n := 0; n < i.nullCount; n++ {
		i.out.Write([]byte{0})
	}
	i.terminalX = 0
}

func (i *Interp) printBytes(b []byte) {
	for _, c := range b {
		i.putChar(c)
	}
}

// printNumber renders a numeric value with the leading space for
// non-negatives and the trailing space every number gets.
func (i *Interp) printNumber(w mbf.Word) {
	if !w.IsNegative() {
		i.putChar(' ')
	}
	i.printBytes([]byte(mbf.Format(w)))
	i.putChar(' ')
}

// printZone advances to the next 14-column print zone.
func (i *Interp) printZone() {
	target := ((i.terminalX / 14) + 1) * 14
	if target >= i.width {
		i.newline()
		return
	}
	for i.terminalX < target {
		i.putChar(' ')
	}
}

// printTab moves to a 1-based column, starting a fresh line when the
// cursor is already past it.
func (i *Interp) printTab(n int) {
	target := n - 1
	if target < 0 {
		target = 0
	}
	if target >= i.width {
		target = i.width - 1
	}
	if i.terminalX > target {
		i.newline()
	}
	for i.terminalX < target {
		i.putChar(' ')
	}
}

// readLine reads one input line, stripping the line ending. ok is false
// when the read was interrupted or the input is exhausted.
func (i *Interp) readLine() (string, bool) {
	line, err := i.in.ReadString('\n')
	if i.interrupted.CompareAndSwap(true, false) {
		return "", false
	}
	line = strings.TrimRight(line, "\r\n")
	if err != nil && line == "" {
		return "", false
	}
	return line, true
}

func (i *Interp) printError(e *Error) {
	i.printBytes([]byte(e.Error()))
	i.newline()
}

// PrintBanner writes the power-on banner with the free byte count.
func (i *Interp) PrintBanner() {
	i.newline()
	i.printBytes([]byte("ALTAIR BASIC REV. 4.0"))
	i.newline()
	i.printBytes([]byte("[8K VERSION]"))
	i.newline()
	i.printBytes([]byte("COPYRIGHT 1976 BY MITS INC."))
	i.newline()
	i.newline()
	i.printBytes([]byte(fmt.Sprintf("%d BYTES FREE", i.mem.Free())))
	i.newline()
	i.newline()
}

// PrintOK writes the ready prompt.
func (i *Interp) PrintOK() {
	i.printBytes([]byte("OK"))
	i.newline()
}

// stmtTape handles CLOAD and CSAVE with a quoted filename. A missing file
// on CLOAD prints a notice instead of raising an error.
func (i *Interp) stmtTape(p *parser, tok byte) *Error {
	p.skipSpace()
	if p.peek() != '"' {
		return codeErr(ErrFC)
	}
	p.next()
	start := p.pos
	for p.pos < len(p.code) && p.code[p.pos] != '"' && p.code[p.pos] != 0 {
		p.pos++
	}
	name := string(p.code[start:p.pos])
	if p.peek() == '"' {
		p.next()
	}
	if name == "" {
		return codeErr(ErrFC)
	}

	if tok == TokCsave {
		if err := i.SaveFile(name); err != nil {
			logger.RuntimeDebug("CSAVE %q failed: %v", name, err)
			return codeErr(ErrFC)
		}
		return nil
	}
	if err := i.LoadFile(name); err != nil {
		if os.IsNotExist(err) {
			i.printBytes([]byte("?FILE NOT FOUND"))
			i.newline()
			return nil
		}
		logger.RuntimeDebug("CLOAD %q failed: %v", name, err)
		return codeErr(ErrFC)
	}
	return nil
}

// SaveFile writes the program as numbered text lines.
func (i *Interp) SaveFile(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for off := i.mem.FirstLine(); off >= 0; off = i.mem.NextLine(off) {
		fmt.Fprintf(w, "%d %s\n", i.mem.lineNumber(off), Detokenize(i.mem.LineBody(off)))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	logger.ProgramDebug("saved program to %q", name)
	return f.Close()
}

// LoadFile replaces the current program with the numbered lines in a text
// file. Lines are fed through the normal edit path, so malformed lines
// report errors the way typed ones would.
func (i *Interp) LoadFile(name string) error {
	data, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	i.mem.ClearProgram()
	i.resetRunState()
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		i.ExecuteLine(line)
	}
	logger.ProgramDebug("loaded program from %q", name)
	return nil
}

// LoadProgram replaces the current program with in-memory source text,
// for callers that fetch programs from somewhere other than a file.
func (i *Interp) LoadProgram(src string) {
	i.mem.ClearProgram()
	i.resetRunState()
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		i.ExecuteLine(line)
	}
}

// SourceText renders the stored program back to numbered text.
func (i *Interp) SourceText() string {
	var b strings.Builder
	for off := i.mem.FirstLine(); off >= 0; off = i.mem.NextLine(off) {
		fmt.Fprintf(&b, "%d %s\n", i.mem.lineNumber(off), Detokenize(i.mem.LineBody(off)))
	}
	return b.String()
}

// Swap exchanges the values of two variables of the same type.
func (i *Interp) Swap(nameA, nameB string) error {
	a := encodeVarName(nameA)
	b := encodeVarName(nameB)
	if isStringName(a) != isStringName(b) {
		return codeErr(ErrTM)
	}
	offA, err := i.mem.VarFindOrCreate(a)
	if err != nil {
		return err
	}
	offB, err := i.mem.VarFindOrCreate(b)
	if err != nil {
		return err
	}
	var tmp [4]byte
	copy(tmp[:], i.mem.data[offA+2:offA+6])
	copy(i.mem.data[offA+2:offA+6], i.mem.data[offB+2:offB+6])
	copy(i.mem.data[offB+2:offB+6], tmp[:])
	return nil
}

// Width sets the terminal width used for wrapping and print zones.
func (i *Interp) Width(n int) error {
	if n < 16 || n > 255 {
		return codeErr(ErrFC)
	}
	i.width = n
	return nil
}

// Randomize reseeds RND from the given value.
func (i *Interp) Randomize(seed int16) {
	arg := mbf.FromInt16(seed)
	if !arg.IsNegative() {
		arg = mbf.Neg(arg)
	}
	if arg.IsZero() {
		arg = mbf.FromInt16(-1)
	}
	i.rnd.Next(arg)
}
