// interp/evaluator.go
package interp

import (
	"strconv"
	"strings"
)

// exprRule tries to evaluate s. ok=false means the rule does not apply
// and the next one is tried.
type exprRule func(vm *Interpreter, s string, env *Env) (v Value, ok bool, err error)

// Eval evaluates one expression against the global Env.
func (vm *Interpreter) Eval(expr string) (Value, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.evalExpr(expr, vm.globals)
}

// EvalIn evaluates one expression against env.
func (vm *Interpreter) EvalIn(expr string, env *Env) (Value, error) {
	return vm.evalExpr(expr, env)
}

func (vm *Interpreter) evalExpr(expr string, env *Env) (Value, error) {
	s := strings.TrimSpace(expr)
	// Order matters: operators bind by the first rule that splits.
	for _, rule := range [...]exprRule{
		evalAdd, evalSub, evalMul, evalDiv,
		evalLiteral, evalAttr, evalCall, evalIdent,
	} {
		v, ok, err := rule(vm, s, env)
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
	}
	return nil, runtimeErrorf("Unknown expression: %s", s)
}

// splitTopLevel splits s at the first op outside quotes and parentheses.
// A quote preceded by a backslash does not toggle quoting.
func splitTopLevel(s string, op byte) (left, right string, ok bool) {
	inQuote := false
	depth := 0
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' && prev != '\\' {
			inQuote = !inQuote
		}
		if inQuote {
			prev = c
			continue
		}
		switch c {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case op:
			if depth == 0 {
				return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
			}
		}
		prev = c
	}
	return "", "", false
}

func (vm *Interpreter) evalOperands(l, r string, env *Env) (Value, Value, error) {
	lv, err := vm.evalExpr(l, env)
	if err != nil {
		return nil, nil, err
	}
	rv, err := vm.evalExpr(r, env)
	if err != nil {
		return nil, nil, err
	}
	return lv, rv, nil
}

// ---- Arithmetic ----

func evalAdd(vm *Interpreter, s string, env *Env) (Value, bool, error) {
	l, r, ok := splitTopLevel(s, '+')
	if !ok {
		return nil, false, nil
	}
	lv, rv, err := vm.evalOperands(l, r, env)
	if err != nil {
		return nil, false, err
	}
	return addValues(lv, rv), true, nil
}

// addValues never fails: anything that is not numeric concatenates.
func addValues(l, r Value) Value {
	if a, ok := l.(StrVal); ok {
		return a + StrVal(r.String())
	}
	if b, ok := r.(StrVal); ok {
		return StrVal(l.String()) + b
	}
	if v, ok := numericOp('+', l, r); ok {
		return v
	}
	return StrVal(l.String() + r.String())
}

// numericOp applies + - * to Int/Float pairs; mixed operands promote to float.
func numericOp(op byte, l, r Value) (Value, bool) {
	if a, ok := l.(IntVal); ok {
		if b, ok := r.(IntVal); ok {
			switch op {
			case '+':
				return a + b, true
			case '-':
				return a - b, true
			case '*':
				return a * b, true
			}
		}
	}
	if !isNumber(l) || !isNumber(r) {
		return nil, false
	}
	a, b := ToFloat(l, 0), ToFloat(r, 0)
	switch op {
	case '+':
		return FloatVal(a + b), true
	case '-':
		return FloatVal(a - b), true
	case '*':
		return FloatVal(a * b), true
	}
	return nil, false
}

func isNumber(v Value) bool {
	switch v.(type) {
	case IntVal, FloatVal:
		return true
	}
	return false
}

// binaryRule builds the '-' and '*' rules. A split with an empty left side
// or one ending in '(' is a sign, not an operator.
func binaryRule(op byte) exprRule {
	return func(vm *Interpreter, s string, env *Env) (Value, bool, error) {
		l, r, ok := splitTopLevel(s, op)
		if !ok || l == "" || strings.HasSuffix(l, "(") {
			return nil, false, nil
		}
		lv, rv, err := vm.evalOperands(l, r, env)
		if err != nil {
			return nil, false, err
		}
		v, ok := numericOp(op, lv, rv)
		return v, ok, nil
	}
}

func evalSub(vm *Interpreter, s string, env *Env) (Value, bool, error) {
	return binaryRule('-')(vm, s, env)
}

func evalMul(vm *Interpreter, s string, env *Env) (Value, bool, error) {
	return binaryRule('*')(vm, s, env)
}

func evalDiv(vm *Interpreter, s string, env *Env) (Value, bool, error) {
	l, r, ok := splitTopLevel(s, '/')
	if !ok {
		return nil, false, nil
	}
	lv, rv, err := vm.evalOperands(l, r, env)
	if err != nil {
		return nil, false, err
	}
	if a, ok := lv.(IntVal); ok {
		if b, ok := rv.(IntVal); ok {
			if b == 0 {
				return nil, false, NewRuntimeError("Division by zero")
			}
			return a / b, true, nil
		}
	}
	if !isNumber(lv) || !isNumber(rv) {
		return nil, false, nil
	}
	d := ToFloat(rv, 0)
	if d == 0 {
		return nil, false, NewRuntimeError("Division by zero")
	}
	return FloatVal(ToFloat(lv, 0) / d), true, nil
}

// ---- Literals and names ----

func evalLiteral(_ *Interpreter, s string, _ *Env) (Value, bool, error) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return StrVal(s[1 : len(s)-1]), true, nil
	}
	switch s {
	case "True", "true":
		return BoolVal(true), true, nil
	case "False", "false":
		return BoolVal(false), true, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntVal(n), true, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !isHexPrefixed(s) {
		return FloatVal(f), true, nil
	}
	return nil, false, nil
}

// isHexPrefixed reports a 0x or 0X prefix after an optional sign.
// Hex floats such as 0x1p3 are not literals.
func isHexPrefixed(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && strings.EqualFold(s[:2], "0x")
}

// evalAttr reads obj.attr from an Instance field or Dict entry.
func evalAttr(_ *Interpreter, s string, env *Env) (Value, bool, error) {
	if !strings.Contains(s, ".") || strings.Contains(s, "(") {
		return nil, false, nil
	}
	i := strings.LastIndexByte(s, '.')
	obj, attr := strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	cur, ok := env.Get(obj)
	if !ok {
		return nil, false, nil
	}
	switch o := cur.(type) {
	case *InstanceVal:
		v, ok := o.Field(attr)
		return v, ok, nil
	case *DictVal:
		v, ok := o.Data[attr]
		return v, ok, nil
	}
	return nil, false, nil
}

func evalIdent(_ *Interpreter, s string, env *Env) (Value, bool, error) {
	v, ok := env.Get(s)
	return v, ok, nil
}

// evalCall handles name(args) and obj.method(args). Arguments are split
// on every comma, so nested calls with several arguments are not supported.
func evalCall(vm *Interpreter, s string, env *Env) (Value, bool, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return nil, false, nil
	}
	fname := strings.TrimSpace(s[:open])
	var args []Value
	if raw := s[open+1 : len(s)-1]; strings.TrimSpace(raw) != "" {
		for _, part := range strings.Split(raw, ",") {
			v, err := vm.evalExpr(part, env)
			if err != nil {
				return nil, false, err
			}
			args = append(args, v)
		}
	}
	var (
		v   Value
		err error
	)
	if dot := strings.LastIndexByte(fname, '.'); dot >= 0 {
		v, err = vm.callMethod(env, strings.TrimSpace(fname[:dot]), strings.TrimSpace(fname[dot+1:]), args)
	} else {
		v, err = vm.callFunction(env, fname, args)
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}
