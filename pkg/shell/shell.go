// Package shell is the local REPL: line editing and history via liner on
// a real terminal, a plain scanner otherwise. Besides feeding lines to
// the interpreter it provides the library commands (SAVE, LOAD, FILES,
// KILL) and a DUMP command that pretty-prints interpreter state.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/danswartzendruber/liner"
	"github.com/goforj/godump"
	"golang.org/x/term"

	"github.com/journich/altairbasic/pkg/basic"
	"github.com/journich/altairbasic/pkg/library"
	"github.com/journich/altairbasic/pkg/logger"
)

const historyFile = ".altairbasic_history"

// localOwner is the library owner for programs saved from the local
// shell, where there is no login.
const localOwner = "local"

// Shell runs one interactive interpreter on the process terminal.
type Shell struct {
	interp *basic.Interp
	store  *library.Store // nil when no database is configured
}

// New builds a shell around an interpreter and an optional program
// library.
func New(interp *basic.Interp, store *library.Store) *Shell {
	return &Shell{interp: interp, store: store}
}

// Run is the interactive loop. It returns when the user leaves with BYE
// or closes the input.
func (s *Shell) Run() error {
	// Ctrl-C during a running program raises the interrupt flag; the run
	// loop turns it into BREAK.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)
	go func() {
		for range sigc {
			s.interp.Interrupt()
		}
	}()

	s.interp.PrintBanner()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return s.runLiner()
	}
	return s.runPlain()
}

func (s *Shell) runLiner() error {
	l := liner.NewLiner()
	defer l.Close()
	l.SetCtrlCAborts(true)

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		l.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			l.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		s.interp.PrintOK()
		line, err := l.Prompt("")
		if err == liner.ErrPromptAborted {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("terminal read failed: %w", err)
		}
		if strings.TrimSpace(line) != "" {
			l.AppendHistory(line)
		}
		if s.dispatch(line) {
			return nil
		}
	}
}

func (s *Shell) runPlain() error {
	sc := bufio.NewScanner(os.Stdin)
	for {
		s.interp.PrintOK()
		if !sc.Scan() {
			return sc.Err()
		}
		if s.dispatch(sc.Text()) {
			return nil
		}
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}

// dispatch handles shell-level commands and hands everything else to the
// interpreter. Returns true when the shell should exit.
func (s *Shell) dispatch(line string) bool {
	cmd, arg := splitCommand(line)
	switch cmd {
	case "BYE", "EXIT", "SYSTEM":
		return true
	case "SAVE":
		s.cmdSave(arg)
	case "LOAD":
		s.cmdLoad(arg)
	case "FILES":
		s.cmdFiles()
	case "KILL":
		s.cmdKill(arg)
	case "DUMP":
		godump.Dump(s.interp.Snapshot())
	default:
		s.interp.ExecuteLine(line)
	}
	return false
}

// splitCommand separates a shell command word from its argument; quotes
// around the argument are optional.
func splitCommand(line string) (string, string) {
	trimmed := strings.TrimSpace(line)
	cmd := trimmed
	arg := ""
	if idx := strings.IndexByte(trimmed, ' '); idx >= 0 {
		cmd = trimmed[:idx]
		arg = strings.TrimSpace(trimmed[idx+1:])
	}
	arg = strings.Trim(arg, `"`)
	return strings.ToUpper(cmd), arg
}

func (s *Shell) cmdSave(name string) {
	if s.store == nil {
		fmt.Println("?NO LIBRARY")
		return
	}
	if name == "" {
		fmt.Println("?MISSING NAME")
		return
	}
	if err := s.store.Save(localOwner, name, s.interp.SourceText()); err != nil {
		logger.Error(logger.AreaShell, "SAVE %q failed: %v", name, err)
		fmt.Println("?SAVE FAILED")
		return
	}
	fmt.Println("SAVED " + strings.ToUpper(name))
}

func (s *Shell) cmdLoad(name string) {
	if s.store == nil {
		fmt.Println("?NO LIBRARY")
		return
	}
	if name == "" {
		fmt.Println("?MISSING NAME")
		return
	}
	src, err := s.store.Load(localOwner, name)
	if err == library.ErrNotFound {
		fmt.Println("?FILE NOT FOUND")
		return
	}
	if err != nil {
		logger.Error(logger.AreaShell, "LOAD %q failed: %v", name, err)
		fmt.Println("?LOAD FAILED")
		return
	}
	s.interp.LoadProgram(src)
	fmt.Println("LOADED " + strings.ToUpper(name))
}

func (s *Shell) cmdFiles() {
	if s.store == nil {
		fmt.Println("?NO LIBRARY")
		return
	}
	entries, err := s.store.List(localOwner)
	if err != nil {
		logger.Error(logger.AreaShell, "FILES failed: %v", err)
		fmt.Println("?FILES FAILED")
		return
	}
	if len(entries) == 0 {
		fmt.Println("NO FILES")
		return
	}
	for _, e := range entries {
		fmt.Printf("%-16s %4d LINES  %s\n", e.Name, e.Lines, e.Updated.Format("2006-01-02 15:04"))
	}
}

func (s *Shell) cmdKill(name string) {
	if s.store == nil {
		fmt.Println("?NO LIBRARY")
		return
	}
	if name == "" {
		fmt.Println("?MISSING NAME")
		return
	}
	err := s.store.Delete(localOwner, name)
	if err == library.ErrNotFound {
		fmt.Println("?FILE NOT FOUND")
		return
	}
	if err != nil {
		logger.Error(logger.AreaShell, "KILL %q failed: %v", name, err)
		fmt.Println("?KILL FAILED")
		return
	}
	fmt.Println("KILLED " + strings.ToUpper(name))
}
