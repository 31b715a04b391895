package main

import (
	"errors"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut strings.Builder
	code = run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunSafeOK(t *testing.T) {
	if err := RunSafe(func() error { return nil }, time.Second); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestRunSafePassesError(t *testing.T) {
	want := errors.New("boom")
	if err := RunSafe(func() error { return want }, 0); !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestRunSafePanicRecovery(t *testing.T) {
	err := RunSafe(func() error { panic("kaboom") }, 5*time.Second)
	if err == nil {
		t.Fatal("expected error from panic")
	}
	if !strings.Contains(err.Error(), "panic recovered: kaboom") {
		t.Errorf("expected recovered panic in error, got %q", err.Error())
	}
}

func TestRunSafeTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	err := RunSafe(func() error { <-release; return nil }, 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out after 50ms") {
		t.Errorf("expected 'timed out' in error, got %q", err.Error())
	}
}

func TestRunScript(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "main.fm", "x = 5\ny = 10\nprint(x + y)\n")
	code, out, errOut := runCLI(t, "", "run", path)
	if code != 0 {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	if out != "15\n" {
		t.Errorf("got %q", out)
	}

	// bare file argument is shorthand for run
	code, out, _ = runCLI(t, "", path)
	if code != 0 || out != "15\n" {
		t.Errorf("shorthand: exit %d, out %q", code, out)
	}
}

func TestRunPassesArgv(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "args.fm", "print(argv)\nprint(len(argv))\n")
	code, out, errOut := runCLI(t, "", "run", path, "a", "b")
	if code != 0 {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	if out != "[a, b]\n2\n" {
		t.Errorf("got %q", out)
	}
}

func TestRunReadsStdin(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "in.fm", "n = input(\"? \")\nprint(\"hello \" + n)\n")
	_, out, _ := runCLI(t, "bob\n", "run", path)
	if out != "? hello bob\n" {
		t.Errorf("got %q", out)
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeScript(t, dir, "bad.fm", "print(1 / 0)\n")
	code, _, errOut := runCLI(t, "", "run", bad)
	if code != 2 || !strings.Contains(errOut, "Division by zero") {
		t.Errorf("runtime error: exit %d, stderr %q", code, errOut)
	}

	code, _, errOut = runCLI(t, "", "run", filepath.Join(dir, "missing.fm"))
	if code != 2 || !strings.Contains(errOut, "error:") {
		t.Errorf("missing file: exit %d, stderr %q", code, errOut)
	}

	code, _, _ = runCLI(t, "", "run")
	if code != 1 {
		t.Errorf("no script: exit %d", code)
	}
}

func TestRunTimeout(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "slow.fm", "sleep(1)\n")
	code, _, errOut := runCLI(t, "", "run", "-timeout", "100ms", path)
	if code != 2 || !strings.Contains(errOut, "execution timed out after 100ms") {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
}

func TestRunReapsSpawnedProcesses(t *testing.T) {
	if goruntime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}
	dir := t.TempDir()
	marker := filepath.Join(dir, "done.txt")
	path := writeScript(t, dir, "spawn.fm", "p = subprocess_popen(\"sleep 0.2; echo done > "+marker+"\")\nprint(\"started\")\n")
	code, out, errOut := runCLI(t, "", "run", path)
	if code != 0 || out != "started\n" {
		t.Fatalf("exit %d, out %q, stderr %q", code, out, errOut)
	}
	b, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("spawned process was not waited for: %v", err)
	}
	if string(b) != "done\n" {
		t.Errorf("marker %q", b)
	}
}

func TestRunWithConfig(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "helper.ferr", "greeting = \"hi\"\n")
	script := writeScript(t, dir, "main.fm", "import helper\nprint(\"ok\")\n")
	cfg := writeScript(t, dir, "ferrum.yaml", "extension: ferr\nmodule_dir: "+dir+"\n")
	code, out, errOut := runCLI(t, "", "run", "-config", cfg, script)
	if code != 0 || out != "ok\n" {
		t.Errorf("exit %d, out %q, stderr %q", code, out, errOut)
	}

	code, _, _ = runCLI(t, "", "run", "-config", filepath.Join(dir, "nope.yaml"), script)
	if code != 1 {
		t.Errorf("missing config: exit %d", code)
	}
}

func TestBuildThenRunTree(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "prog.fm", "for i in range(0, 3):\n    print(i)\n")
	code, out, errOut := runCLI(t, "", "build", path)
	if code != 0 {
		t.Fatalf("build exit %d, stderr %q", code, errOut)
	}
	tree := path + ".fmb"
	if out != "Built "+path+" -> "+tree+"\n" {
		t.Errorf("build output %q", out)
	}
	if _, err := os.Stat(tree); err != nil {
		t.Fatalf("tree not written: %v", err)
	}
	code, out, errOut = runCLI(t, "", "run", tree)
	if code != 0 || out != "0\n1\n2\n" {
		t.Errorf("run tree: exit %d, out %q, stderr %q", code, out, errOut)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeScript(t, dir, "good.fm", "x = 1\nprint(x)\n")
	warn := writeScript(t, dir, "warn.fm", "y = 1\n")
	bad := writeScript(t, dir, "bad.fm", "x = \xff\n")

	code, out, _ := runCLI(t, "", "check", good, warn)
	if code != 0 {
		t.Errorf("warnings only: exit %d", code)
	}
	if !strings.Contains(out, good+": No issues found") || !strings.Contains(out, "[W001]") {
		t.Errorf("unexpected report %q", out)
	}

	code, out, _ = runCLI(t, "", "check", good, bad)
	if code != 1 || !strings.Contains(out, "[E001]") {
		t.Errorf("errors: exit %d, out %q", code, out)
	}

	code, _, _ = runCLI(t, "", "check", filepath.Join(dir, "missing.fm"))
	if code != 2 {
		t.Errorf("missing file: exit %d", code)
	}
}

func TestFmtCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "messy.fm", "if x:\n  y = 1\nprint(y)\n")
	want := "if x:\n    y = 1\nprint(y)\n"

	code, out, _ := runCLI(t, "", "fmt", path)
	if code != 0 || out != want {
		t.Errorf("fmt: exit %d, out %q", code, out)
	}

	code, out, _ = runCLI(t, "", "fmt", "-w", path)
	if code != 0 || out != "" {
		t.Errorf("fmt -w: exit %d, out %q", code, out)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != want {
		t.Errorf("file not rewritten: %q", b)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "", "frobnicate")
	if code != 1 || !strings.Contains(errOut, `unknown command "frobnicate"`) {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
	code, out, _ := runCLI(t, "", "help")
	if code != 0 || !strings.HasPrefix(out, "usage: ferrum") {
		t.Errorf("help: exit %d, out %q", code, out)
	}
	if code, _, _ := runCLI(t, ""); code != 1 {
		t.Errorf("no args: exit %d", code)
	}
}

func TestSamples(t *testing.T) {
	code, out, errOut := runCLI(t, "", "run", filepath.Join("..", "..", "samples", "features_demo.fm"))
	if code != 0 {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	want := "15\n3\n0\n1\n2\nhello ferrum\n6\n3\nhi there\n[\"a\",\"b\",\"c\"]\n7\n3\n3\n2\n1\n"
	if out != want {
		t.Errorf("features_demo:\n got %q\nwant %q", out, want)
	}

	code, out, errOut = runCLI(t, "", "run", filepath.Join("..", "..", "samples", "ui_demo.fm"))
	if code != 0 {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	for _, s := range []string{"Click\n", "WINDOW: 'Ferrum'", "Size: 400 x 300", "  - column-3"} {
		if !strings.Contains(out, s) {
			t.Errorf("ui_demo output missing %q:\n%s", s, out)
		}
	}

	code, out, _ = runCLI(t, "", "run", filepath.Join("..", "..", "samples", "args_demo.fm"), "one", "two")
	if code != 0 || out != "args: 2\none\ntwo\n" {
		t.Errorf("args_demo: exit %d, out %q", code, out)
	}
}
