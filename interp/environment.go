// interp/environment.go
package interp

import (
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// Env is one flat namespace: variables, functions and loaded modules.
// Envs never chain; a call frame sees only what was bound into it.
type Env struct {
	vars    map[string]Value
	funcs   map[string]*Function
	modules map[string]map[string]Value
}

func NewEnv() *Env {
	return &Env{
		vars:    map[string]Value{},
		funcs:   map[string]*Function{},
		modules: map[string]map[string]Value{},
	}
}

func (e *Env) Set(name string, v Value) { e.vars[name] = v }

func (e *Env) Get(name string) (Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

func (e *Env) SetFunc(name string, f *Function) { e.funcs[name] = f }

func (e *Env) Func(name string) (*Function, bool) {
	f, ok := e.funcs[name]
	return f, ok
}

// SetAttr stores v under attr of the Instance or Dict bound to obj.
// The variable is rebound to an updated copy.
func (e *Env) SetAttr(obj, attr string, v Value) error {
	cur, ok := e.vars[obj]
	if ok {
		switch o := cur.(type) {
		case *InstanceVal:
			e.vars[obj] = o.WithField(attr, v)
			return nil
		case *DictVal:
			e.vars[obj] = o.With(attr, v)
			return nil
		}
	}
	return runtimeErrorf("Cannot set attribute %s on %s", attr, obj)
}

// Module returns the exports recorded for an imported module.
func (e *Env) Module(name string) (map[string]Value, bool) {
	m, ok := e.modules[name]
	return m, ok
}

func (e *Env) setModule(name string, exports map[string]Value) { e.modules[name] = exports }

// Vars returns a copy of the variable table.
func (e *Env) Vars() map[string]Value {
	out := make(map[string]Value, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}

// VarNames and FuncNames list bindings in sorted order.
func (e *Env) VarNames() []string { return sortedKeys(e.vars) }

func (e *Env) FuncNames() []string { return sortedKeys(e.funcs) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---- Interpreter ----

// Interpreter owns the global Env plus the natives and initial variables
// that are replayed into every module Env.
type Interpreter struct {
	globals *Env
	natives map[string]NativeFunc
	initial map[string]Value

	out       io.Writer
	logger    *slog.Logger
	moduleDir string
	ext       string

	// Run and friends are serialized; an Env is not safe for concurrent use.
	mu sync.Mutex
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput sets where print writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option { return func(vm *Interpreter) { vm.out = w } }

// WithLogger sets the diagnostic logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(vm *Interpreter) {
		if l != nil {
			vm.logger = l
		}
	}
}

// WithModuleDir sets the directory imports resolve against.
func WithModuleDir(dir string) Option { return func(vm *Interpreter) { vm.moduleDir = dir } }

// WithExtension sets the module file suffix, ".fm" by default.
func WithExtension(ext string) Option {
	return func(vm *Interpreter) {
		if ext != "" {
			vm.ext = ext
		}
	}
}

func NewInterpreter(opts ...Option) *Interpreter {
	vm := &Interpreter{
		globals:   NewEnv(),
		natives:   map[string]NativeFunc{},
		initial:   map[string]Value{},
		out:       os.Stdout,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		moduleDir: ".",
		ext:       ".fm",
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// RegisterNative binds a host function in the global Env and in every
// module Env created afterwards.
func (vm *Interpreter) RegisterNative(name string, f NativeFunc) {
	vm.natives[name] = f
	vm.globals.SetFunc(name, &Function{Name: name, Native: f})
}

// SetGlobal binds an initial variable, replayed into module Envs too.
func (vm *Interpreter) SetGlobal(name string, v Value) {
	vm.initial[name] = v
	vm.globals.Set(name, v)
}

func (vm *Interpreter) Globals() *Env { return vm.globals }

func (vm *Interpreter) Output() io.Writer { return vm.out }

func (vm *Interpreter) Logger() *slog.Logger { return vm.logger }

// newModuleEnv builds a fresh Env seeded with natives and initial vars.
func (vm *Interpreter) newModuleEnv() *Env {
	env := NewEnv()
	for name, f := range vm.natives {
		env.SetFunc(name, &Function{Name: name, Native: f})
	}
	for name, v := range vm.initial {
		env.Set(name, v)
	}
	return env
}
