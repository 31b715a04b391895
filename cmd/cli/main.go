package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	goruntime "runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"simonwaldherr.de/go/ferrum/config"
	"simonwaldherr.de/go/ferrum/interp"
	"simonwaldherr.de/go/ferrum/repl"
	"simonwaldherr.de/go/ferrum/runtime"
)

const usage = `usage: ferrum <command> [flags] [args]

commands:
  run [-timeout d] [-config f] [-v] file.fm [args...]   run a script or a built .fmb tree
  build [-config f] file.fm                            write the statement tree to file.fm.fmb
  check file.fm...                                     static analysis
  fmt [-w] file.fm...                                  re-indent scripts
  repl [-config f] [-v]                                interactive session`

// reapGrace bounds how long run waits for subprocess_popen children.
const reapGrace = 5 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 1
	}
	switch args[0] {
	case "run":
		return cmdRun(args[1:], stdin, stdout, stderr)
	case "build":
		return cmdBuild(args[1:], stdout, stderr)
	case "check":
		return cmdCheck(args[1:], stdout, stderr)
	case "fmt":
		return cmdFmt(args[1:], stdout, stderr)
	case "repl":
		return cmdRepl(args[1:], stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage)
		return 0
	}
	// "ferrum script.fm" is shorthand for run.
	if strings.HasSuffix(args[0], ".fm") || strings.HasSuffix(args[0], ".fmb") {
		return cmdRun(args, stdin, stdout, stderr)
	}
	fmt.Fprintf(stderr, "unknown command %q\n%s\n", args[0], usage)
	return 1
}

// commonFlags registers -config and -v on fs.
func commonFlags(fs *flag.FlagSet) (cfgPath *string, verbose *bool) {
	return fs.String("config", "", "config file (default ./"+config.DefaultFile+")"),
		fs.Bool("v", false, "debug logging")
}

func loadConfig(path string, verbose bool, stderr io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

// newInterpreter builds an interpreter with the stdlib and host natives.
func newInterpreter(cfg config.Config, logger *slog.Logger, stdin io.Reader, stdout io.Writer) (*interp.Interpreter, *runtime.Host) {
	vm := interp.NewInterpreter(
		interp.WithOutput(stdout),
		interp.WithLogger(logger),
		interp.WithModuleDir(cfg.ModuleDir),
		interp.WithExtension(cfg.Extension),
	)
	interp.RegisterStdlib(vm)
	host := runtime.NewHost(stdin, stdout)
	runtime.RegisterHostNatives(vm, host)
	return vm, host
}

// loadModule parses a script, or decodes a tree written by build.
func loadModule(path string) (*interp.Module, error) {
	if strings.HasSuffix(path, ".fmb") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return interp.DecodeTree(f)
	}
	src, err := interp.ReadSource(path)
	if err != nil {
		return nil, err
	}
	return interp.Parse(src)
}

func cmdRun(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	timeout := fs.Duration("timeout", 0, "abort after this long (0 = config or no limit)")
	cfgPath, verbose := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "run: missing script")
		return 1
	}
	cfg, logger, err := loadConfig(*cfgPath, *verbose, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	if *timeout == 0 {
		*timeout = cfg.Timeout
	}

	file := fs.Arg(0)
	mod, err := loadModule(file)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	vm, host := newInterpreter(cfg, logger, stdin, stdout)
	defer host.Close()
	argv := interp.NewList()
	for _, a := range fs.Args()[1:] {
		argv.Items = append(argv.Items, interp.StrVal(a))
	}
	vm.SetGlobal("argv", argv)

	logger.Debug("running", slog.String("file", file), slog.Duration("timeout", *timeout))
	if err := RunSafe(func() error { return vm.Exec(mod) }, *timeout); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	if n := host.Reap(reapGrace); n > 0 {
		logger.Warn("spawned processes still running", slog.Int("count", n))
	}
	return 0
}

// RunSafe runs fn in its own goroutine, converting panics to errors and
// giving up after timeout. A zero timeout waits indefinitely. A timed out
// fn keeps running in the background; the caller is expected to exit.
func RunSafe(fn func() error, timeout time.Duration) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic recovered: %v", r)
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("execution timed out after %s", timeout)
	}
}

func cmdBuild(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "build: expected one script")
		return 1
	}
	file := fs.Arg(0)
	out, err := buildFile(file)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	fmt.Fprintf(stdout, "Built %s -> %s\n", file, out)
	return 0
}

func buildFile(file string) (string, error) {
	src, err := interp.ReadSource(file)
	if err != nil {
		return "", err
	}
	mod, err := interp.Parse(src)
	if err != nil {
		return "", err
	}
	out := file + ".fmb"
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if err := interp.EncodeTree(f, mod, file); err != nil {
		f.Close()
		return "", err
	}
	return out, f.Close()
}

func cmdCheck(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "check: no files")
		return 1
	}
	results := make([]interp.CheckResult, len(args))
	var g errgroup.Group
	g.SetLimit(goruntime.NumCPU())
	for i, file := range args {
		g.Go(func() error {
			res, err := interp.CheckFile(file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	code := 0
	for i, res := range results {
		fmt.Fprintf(stdout, "%s: %s\n", args[i], res)
		if res.HasErrors() {
			code = 1
		}
	}
	return code
}

func cmdFmt(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	write := fs.Bool("w", false, "write result to the source file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	code := 0
	for _, file := range fs.Args() {
		if err := formatFile(file, *write, stdout); err != nil {
			fmt.Fprintln(stderr, "error:", err)
			code = 2
		}
	}
	return code
}

func formatFile(file string, write bool, stdout io.Writer) error {
	src, err := interp.ReadSource(file)
	if err != nil {
		return err
	}
	out, err := interp.FormatSource(src)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	if !write {
		_, err := io.WriteString(stdout, out)
		return err
	}
	if out == src {
		return nil
	}
	info, err := os.Stat(file)
	if err != nil {
		return err
	}
	return os.WriteFile(file, []byte(out), info.Mode().Perm())
}

func cmdRepl(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath, verbose := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, logger, err := loadConfig(*cfgPath, *verbose, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	vm, host := newInterpreter(cfg, logger, os.Stdin, os.Stdout)
	defer host.Close()
	defer host.Reap(reapGrace)
	if err := repl.Run(vm, cfg.Prompt, cfg.HistoryFile); err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}
