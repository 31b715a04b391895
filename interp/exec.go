// interp/exec.go
package interp

import (
	"fmt"
	"log/slog"
	"strings"
)

type controlKind int

const (
	ctrlNone controlKind = iota
	ctrlReturn
)

type controlFlow struct {
	kind controlKind
	val  Value
}

// Run parses src and executes it in the global Env.
func (vm *Interpreter) Run(src string) error {
	mod, err := Parse(src)
	if err != nil {
		return err
	}
	return vm.Exec(mod)
}

// RunFile reads, decodes and runs a source file.
func (vm *Interpreter) RunFile(path string) error {
	src, err := ReadSource(path)
	if err != nil {
		return err
	}
	vm.logger.Debug("run file", slog.String("path", path))
	return vm.Run(src)
}

// Exec executes an already parsed module in the global Env.
func (vm *Interpreter) Exec(mod *Module) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	_, err := vm.execBlock(mod.Body, vm.globals)
	return err
}

// ExecIn executes statements in env, returning the value of a top-level
// return, or nil.
func (vm *Interpreter) ExecIn(stmts []Stmt, env *Env) (Value, error) {
	cf, err := vm.execBlock(stmts, env)
	return cf.val, err
}

// execBlock runs stmts in order. A return stops this list only.
func (vm *Interpreter) execBlock(stmts []Stmt, env *Env) (controlFlow, error) {
	for _, st := range stmts {
		cf, err := vm.execStmt(st, env)
		if err != nil {
			return controlFlow{}, err
		}
		if cf.kind == ctrlReturn {
			return cf, nil
		}
	}
	return controlFlow{}, nil
}

func (vm *Interpreter) execStmt(st Stmt, env *Env) (controlFlow, error) {
	switch s := st.(type) {
	case *PrintStmt:
		v, err := vm.evalExpr(s.Expr, env)
		if err != nil {
			return controlFlow{}, err
		}
		fmt.Fprintln(vm.out, v.String())

	case *AssignStmt:
		v, err := vm.evalExpr(s.Expr, env)
		if err != nil {
			return controlFlow{}, err
		}
		if obj, attr, ok := strings.Cut(s.Target, "."); ok {
			if env.SetAttr(strings.TrimSpace(obj), strings.TrimSpace(attr), v) == nil {
				return controlFlow{}, nil
			}
		}
		env.Set(s.Target, v)

	case *ExprStmt:
		if _, err := vm.evalExpr(s.Expr, env); err != nil {
			return controlFlow{}, err
		}

	case *ReturnStmt:
		v, err := vm.evalExpr(s.Expr, env)
		if err != nil {
			return controlFlow{}, err
		}
		return controlFlow{kind: ctrlReturn, val: v}, nil

	case *IfStmt:
		for _, br := range s.Branches {
			c, err := vm.evalExpr(br.Cond, env)
			if err != nil {
				return controlFlow{}, err
			}
			if c.Truthy() {
				_, err := vm.execBlock(br.Body, env)
				return controlFlow{}, err
			}
		}
		if s.Else != nil {
			_, err := vm.execBlock(s.Else, env)
			return controlFlow{}, err
		}

	case *ElseStmt:
		_, err := vm.execBlock(s.Body, env)
		return controlFlow{}, err

	case *WhileStmt:
		for {
			c, err := vm.evalExpr(s.Cond, env)
			if err != nil {
				return controlFlow{}, err
			}
			if !c.Truthy() {
				break
			}
			if _, err := vm.execBlock(s.Body, env); err != nil {
				return controlFlow{}, err
			}
		}

	case *ForStmt:
		return controlFlow{}, vm.execFor(s, env)

	case *DefStmt:
		if fn := parseSignature(s.Signature, s.Body); fn != nil {
			env.SetFunc(fn.Name, fn)
		}

	case *ClassStmt:
		cls := &ClassVal{Name: s.Name, Methods: map[string]*Function{}}
		for _, inner := range s.Body {
			if d, ok := inner.(*DefStmt); ok {
				if fn := parseSignature(d.Signature, d.Body); fn != nil {
					cls.Methods[fn.Name] = fn
				}
			}
		}
		env.Set(s.Name, cls)

	case *ImportStmt:
		return controlFlow{}, vm.importModule(env, s.Module)

	case *BlockStmt:
		vm.logger.Debug("skipping unrecognized block", slog.String("header", s.Header))

	default:
		return controlFlow{}, runtimeErrorf("unsupported statement %T", st)
	}
	return controlFlow{}, nil
}

func (vm *Interpreter) execFor(s *ForStmt, env *Env) error {
	name, iterExpr, ok := strings.Cut(s.Header, " in ")
	if !ok {
		return runtimeErrorf("Invalid for-loop header: %s", s.Header)
	}
	name = strings.TrimSpace(name)
	it, err := vm.evalExpr(iterExpr, env)
	if err != nil {
		return err
	}
	switch seq := it.(type) {
	case *ListVal:
		for _, item := range seq.Items {
			env.Set(name, item)
			if _, err := vm.execBlock(s.Body, env); err != nil {
				return err
			}
		}
	case RangeVal:
		for i := seq.Start; i < seq.End; i++ {
			env.Set(name, IntVal(i))
			if _, err := vm.execBlock(s.Body, env); err != nil {
				return err
			}
		}
	default:
		return NewRuntimeError("for-loop over non-iterable")
	}
	return nil
}

// parseSignature turns "name(a, b)" into a Function. A signature without
// parentheses defines nothing.
func parseSignature(sig string, body []Stmt) *Function {
	name, rest, ok := strings.Cut(sig, "(")
	if !ok {
		return nil
	}
	rest = strings.TrimSuffix(strings.TrimSpace(rest), ")")
	var params []string
	for _, p := range strings.Split(rest, ",") {
		if p = strings.TrimSpace(p); p != "" {
			params = append(params, p)
		}
	}
	return &Function{Name: strings.TrimSpace(name), Params: params, Body: body}
}

// ---- Calls ----

func (vm *Interpreter) invokeNative(fn *Function, args []Value) (Value, error) {
	v, err := fn.Native(args)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return None, nil
	}
	return v, nil
}

// bindParams binds params positionally into env; missing args are None.
// With skipSelf, a parameter named self consumes no argument.
func bindParams(env *Env, params []string, args []Value, skipSelf bool) {
	ai := 0
	for _, p := range params {
		if skipSelf && p == "self" {
			continue
		}
		if ai < len(args) {
			env.Set(p, args[ai])
		} else {
			env.Set(p, None)
		}
		ai++
	}
}

// callFunction resolves a bare call: a function table entry first, then
// a class bound as a variable. User functions run in an empty Env and
// always yield None.
func (vm *Interpreter) callFunction(env *Env, name string, args []Value) (Value, error) {
	if fn, ok := env.Func(name); ok {
		if fn.IsNative() {
			return vm.invokeNative(fn, args)
		}
		vm.logger.Debug("call", slog.String("func", name), slog.Int("args", len(args)))
		frame := NewEnv()
		bindParams(frame, fn.Params, args, false)
		if _, err := vm.execBlock(fn.Body, frame); err != nil {
			return nil, err
		}
		return None, nil
	}
	if v, ok := env.Get(name); ok {
		if cls, ok := v.(*ClassVal); ok {
			return vm.construct(cls, args)
		}
	}
	return nil, runtimeErrorf("Undefined function: %s", name)
}

// construct builds an instance and runs __init__ with self bound.
func (vm *Interpreter) construct(cls *ClassVal, args []Value) (Value, error) {
	vm.logger.Debug("construct", slog.String("class", cls.Name), slog.Int("args", len(args)))
	inst := &InstanceVal{ClassName: cls.Name, Fields: map[string]Value{}, Methods: copyMethods(cls.Methods)}
	frame := NewEnv()
	frame.Set("self", inst)
	if init, ok := inst.Methods["__init__"]; ok && !init.IsNative() {
		bindParams(frame, init.Params, args, true)
		if _, err := vm.execBlock(init.Body, frame); err != nil {
			return nil, err
		}
	}
	if self, ok := frame.Get("self"); ok {
		return self, nil
	}
	return inst, nil
}

// callMethod dispatches obj.method(args) on the value bound to obj.
func (vm *Interpreter) callMethod(env *Env, objName, method string, args []Value) (Value, error) {
	obj, ok := env.Get(objName)
	if !ok {
		return nil, runtimeErrorf("Undefined method call: %s.%s", objName, method)
	}
	switch o := obj.(type) {
	case *InstanceVal:
		fn, ok := o.Methods[method]
		if !ok {
			return nil, runtimeErrorf("Method not found: %s", method)
		}
		if fn.IsNative() {
			return vm.invokeNative(fn, append([]Value{o}, args...))
		}
		vm.logger.Debug("method call", slog.String("class", o.ClassName), slog.String("method", method))
		frame := NewEnv()
		frame.Set("self", o)
		bindParams(frame, fn.Params, args, true)
		if _, err := vm.execBlock(fn.Body, frame); err != nil {
			return nil, err
		}
		return None, nil

	case *ClassVal:
		if fn, ok := o.Methods[method]; ok {
			if fn.IsNative() {
				return vm.invokeNative(fn, args)
			}
			frame := NewEnv()
			bindParams(frame, fn.Params, args, false)
			if _, err := vm.execBlock(fn.Body, frame); err != nil {
				return nil, err
			}
			return None, nil
		}

	case *DictVal:
		if v, ok := o.Data[method]; ok {
			if name, ok := v.(StrVal); ok {
				return vm.callFunction(env, string(name), args)
			}
		}
	}
	return nil, runtimeErrorf("Undefined method call: %s.%s", objName, method)
}
