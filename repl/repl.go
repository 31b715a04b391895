// repl/repl.go
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"simonwaldherr.de/go/ferrum/interp"
)

const (
	Banner     = "Ferrum REPL. Type 'exit' to quit.\nUse '>>>' prefix to get expression values directly, or 'print()' for output."
	ContPrompt = "... "
	exprMarker = ">>>"
)

// LineReader yields one line of input per call. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

// Session evaluates interactive input against one interpreter so that
// bindings persist between lines.
type Session struct {
	VM     *interp.Interpreter
	Out    io.Writer
	Err    io.Writer
	Prompt string
}

func NewSession(vm *interp.Interpreter, out, errOut io.Writer, prompt string) *Session {
	if prompt == "" {
		prompt = ">>> "
	}
	return &Session{VM: vm, Out: out, Err: errOut, Prompt: prompt}
}

// Eval handles one complete input. It reports whether the session should end.
func (s *Session) Eval(input string) (exit bool) {
	line := strings.TrimSpace(input)
	switch line {
	case "exit", "quit":
		return true
	case "":
		return false
	}
	if code, ok := strings.CutPrefix(line, exprMarker); ok {
		code = strings.TrimSpace(code)
		if v, err := s.VM.Eval(code); err == nil {
			fmt.Fprintln(s.Out, v.String())
			return false
		}
		input = code
	}
	if err := s.VM.Run(input); err != nil {
		fmt.Fprintln(s.Err, "Error:", err)
	}
	return false
}

// read collects one input. A line ending in ':' starts a block that
// continues until an empty line.
func (s *Session) read(r LineReader) (string, error) {
	first, err := r.Prompt(s.Prompt)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(strings.TrimRight(first, " \t"), ":") {
		return first, nil
	}
	var b strings.Builder
	b.WriteString(first)
	for {
		line, err := r.Prompt(ContPrompt)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if strings.TrimSpace(line) == "" || err != nil {
			return b.String(), nil
		}
		b.WriteByte('\n')
		b.WriteString(line)
	}
}

// Loop reads and evaluates until exit or end of input. Each evaluated
// input is passed to record, if set.
func (s *Session) Loop(r LineReader, record func(string)) error {
	for {
		input, err := s.read(r)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.Out)
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		if record != nil {
			record(input)
		}
		if s.Eval(input) {
			return nil
		}
	}
}

// Run starts a terminal session with line editing and history kept in
// historyFile (skipped when empty).
func Run(vm *interp.Interpreter, prompt, historyFile string) error {
	fmt.Println(Banner)
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(historyFile); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	s := NewSession(vm, os.Stdout, os.Stderr, prompt)
	return s.Loop(ln, func(in string) { ln.AppendHistory(strings.ReplaceAll(in, "\n", " ")) })
}
