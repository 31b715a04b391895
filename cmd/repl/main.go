package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"simonwaldherr.de/go/ferrum/config"
	"simonwaldherr.de/go/ferrum/interp"
	"simonwaldherr.de/go/ferrum/repl"
	"simonwaldherr.de/go/ferrum/runtime"
)

const reapGrace = 5 * time.Second

func main() {
	cfgPath := flag.String("config", "", "config file (default ./"+config.DefaultFile+")")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()
	os.Exit(run(*cfgPath, *verbose))
}

func run(cfgPath string, verbose bool) int {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	vm, host := newSessionVM(cfg, verbose)
	defer host.Close()
	defer host.Reap(reapGrace)
	if err := repl.Run(vm, cfg.Prompt, cfg.HistoryFile); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// newSessionVM builds the interpreter a REPL session runs against and the
// host state its natives share. The caller closes the host.
func newSessionVM(cfg config.Config, verbose bool) (*interp.Interpreter, *runtime.Host) {
	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	vm := interp.NewInterpreter(
		interp.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))),
		interp.WithModuleDir(cfg.ModuleDir),
		interp.WithExtension(cfg.Extension),
	)
	interp.RegisterStdlib(vm)
	host := runtime.NewHost(os.Stdin, os.Stdout)
	runtime.RegisterHostNatives(vm, host)
	return vm, host
}
