package repl

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/peterh/liner"
	"github.com/stretchr/testify/require"

	"simonwaldherr.de/go/ferrum/interp"
)

// scripted replays fixed lines, then reports io.EOF.
type scripted struct {
	lines   []string
	prompts []string
}

func (s *scripted) Prompt(p string) (string, error) {
	s.prompts = append(s.prompts, p)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	if line == "^C" {
		return "", liner.ErrPromptAborted
	}
	return line, nil
}

func newTestSession() (*Session, *strings.Builder, *strings.Builder) {
	var out, errOut strings.Builder
	vm := interp.NewInterpreter(interp.WithOutput(&out))
	interp.RegisterStdlib(vm)
	return NewSession(vm, &out, &errOut, ""), &out, &errOut
}

func TestSessionExpressions(t *testing.T) {
	s, out, errOut := newTestSession()
	r := &scripted{lines: []string{
		">>> 1 + 2",
		"x = 5",
		">>> x * 2",
		`>>> print("hi")`,
		`>>> "a" + 1`,
	}}
	require.NoError(t, s.Loop(r, nil))
	require.Equal(t, "3\n10\nhi\na1\n\n", out.String())
	require.Empty(t, errOut.String())
}

func TestSessionReportsErrors(t *testing.T) {
	s, out, errOut := newTestSession()
	r := &scripted{lines: []string{"print(1 / 0)", "print(\"still here\")"}}
	require.NoError(t, s.Loop(r, nil))
	require.Equal(t, "Error: Division by zero\n", errOut.String())
	require.Equal(t, "still here\n\n", out.String())
}

func TestSessionMultilineBlock(t *testing.T) {
	s, out, _ := newTestSession()
	r := &scripted{lines: []string{
		"for i in range(0, 2):",
		"    print(i)",
		"",
		"print(\"done\")",
	}}
	var recorded []string
	require.NoError(t, s.Loop(r, func(in string) { recorded = append(recorded, in) }))
	require.Equal(t, "0\n1\ndone\n\n", out.String())
	require.Equal(t, []string{"for i in range(0, 2):\n    print(i)", "print(\"done\")"}, recorded)
	require.Equal(t, []string{">>> ", ContPrompt, ContPrompt, ">>> ", ">>> "}, r.prompts)
}

func TestSessionBlockEndsAtEOF(t *testing.T) {
	s, out, _ := newTestSession()
	r := &scripted{lines: []string{"if 1:", "    print(\"in\")"}}
	require.NoError(t, s.Loop(r, nil))
	require.Equal(t, "in\n\n", out.String())
}

func TestSessionExitAndAbort(t *testing.T) {
	s, out, _ := newTestSession()
	r := &scripted{lines: []string{"^C", "", "exit", "print(\"never\")"}}
	require.NoError(t, s.Loop(r, nil))
	require.Empty(t, out.String())
	require.Len(t, r.lines, 1)

	require.True(t, s.Eval("quit"))
	require.False(t, s.Eval("   "))
}

type failing struct{}

func (failing) Prompt(string) (string, error) { return "", errors.New("tty gone") }

func TestSessionReaderError(t *testing.T) {
	s, _, _ := newTestSession()
	require.EqualError(t, s.Loop(failing{}, nil), "tty gone")
}

func TestNewSessionDefaultPrompt(t *testing.T) {
	s := NewSession(interp.NewInterpreter(), io.Discard, io.Discard, "")
	require.Equal(t, ">>> ", s.Prompt)
	s = NewSession(interp.NewInterpreter(), io.Discard, io.Discard, "fm> ")
	require.Equal(t, "fm> ", s.Prompt)
}
