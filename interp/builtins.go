// interp/builtins.go
package interp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	goruntime "runtime"
	"strconv"
	"strings"
	"time"
)

// arg returns args[i] or None.
func arg(args []Value, i int) Value {
	if i < len(args) && args[i] != nil {
		return args[i]
	}
	return None
}

func strArg(args []Value, i int) (string, bool) {
	s, ok := arg(args, i).(StrVal)
	return string(s), ok
}

// RegisterStdlib installs the standard natives and the argv variable.
// Host interaction (input, subprocesses, UI) lives in the runtime package.
func RegisterStdlib(vm *Interpreter) {
	registerMath(vm)
	registerConversions(vm)
	registerSystem(vm)
	registerTools(vm)
	vm.SetGlobal("argv", NewList())
}

// ---- Math ----

func registerMath(vm *Interpreter) {
	unary := map[string]func(float64) float64{
		"sin": math.Sin, "cos": math.Cos, "tan": math.Tan,
		"sqrt": math.Sqrt, "exp": math.Exp, "ln": math.Log, "log10": math.Log10,
	}
	for name, f := range unary {
		f := f
		vm.RegisterNative(name, func(args []Value) (Value, error) {
			return FloatVal(f(ToFloat(arg(args, 0), 0))), nil
		})
	}
	vm.RegisterNative("pow", func(args []Value) (Value, error) {
		return FloatVal(math.Pow(ToFloat(arg(args, 0), 0), ToFloat(arg(args, 1), 0))), nil
	})
	vm.RegisterNative("log", func(args []Value) (Value, error) {
		x, base := ToFloat(arg(args, 0), 0), ToFloat(arg(args, 1), 10)
		return FloatVal(math.Log(x) / math.Log(base)), nil
	})
	vm.RegisterNative("abs", func(args []Value) (Value, error) {
		switch n := arg(args, 0).(type) {
		case IntVal:
			if n < 0 {
				return -n, nil
			}
			return n, nil
		case FloatVal:
			return FloatVal(math.Abs(float64(n))), nil
		}
		return IntVal(0), nil
	})
	// randint(a, b) is inclusive on both ends.
	vm.RegisterNative("randint", func(args []Value) (Value, error) {
		a, _ := arg(args, 0).(IntVal)
		b, _ := arg(args, 1).(IntVal)
		if b < a {
			return a, nil
		}
		return a + IntVal(rand.Int63n(int64(b-a)+1)), nil
	})
	vm.RegisterNative("range", func(args []Value) (Value, error) {
		switch len(args) {
		case 1:
			if end, ok := args[0].(IntVal); ok {
				return RangeVal{Start: 0, End: int64(end)}, nil
			}
		default:
			// Arguments past the second are ignored.
			if len(args) >= 2 {
				s, ok1 := args[0].(IntVal)
				e, ok2 := args[1].(IntVal)
				if ok1 && ok2 {
					return RangeVal{Start: int64(s), End: int64(e)}, nil
				}
			}
		}
		return RangeVal{}, nil
	})
}

// ---- Conversions ----

func registerConversions(vm *Interpreter) {
	vm.RegisterNative("int", func(args []Value) (Value, error) {
		switch v := arg(args, 0).(type) {
		case StrVal:
			if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
				return IntVal(n), nil
			}
		case FloatVal:
			return IntVal(int64(v)), nil
		case IntVal:
			return v, nil
		}
		return IntVal(0), nil
	})
	vm.RegisterNative("float", func(args []Value) (Value, error) {
		switch v := arg(args, 0).(type) {
		case StrVal:
			if f, err := strconv.ParseFloat(string(v), 64); err == nil {
				return FloatVal(f), nil
			}
		case IntVal:
			return FloatVal(v), nil
		case FloatVal:
			return v, nil
		}
		return FloatVal(0), nil
	})
	vm.RegisterNative("str", func(args []Value) (Value, error) {
		switch v := arg(args, 0).(type) {
		case StrVal, IntVal, FloatVal, BoolVal:
			return StrVal(v.String()), nil
		}
		return StrVal(""), nil
	})
	vm.RegisterNative("bool", func(args []Value) (Value, error) {
		switch v := arg(args, 0).(type) {
		case BoolVal, IntVal, StrVal:
			return BoolVal(v.Truthy()), nil
		}
		return BoolVal(false), nil
	})
	vm.RegisterNative("list", func(args []Value) (Value, error) {
		switch v := arg(args, 0).(type) {
		case StrVal:
			out := &ListVal{}
			for _, r := range string(v) {
				out.Items = append(out.Items, StrVal(string(r)))
			}
			return out, nil
		case *ListVal:
			return NewList(v.Items...), nil
		}
		return NewList(), nil
	})
	vm.RegisterNative("len", func(args []Value) (Value, error) {
		switch v := arg(args, 0).(type) {
		case StrVal:
			return IntVal(len(v)), nil
		case *ListVal:
			return IntVal(len(v.Items)), nil
		}
		return IntVal(0), nil
	})
	vm.RegisterNative("zip", func(args []Value) (Value, error) {
		a, ok1 := arg(args, 0).(*ListVal)
		b, ok2 := arg(args, 1).(*ListVal)
		out := NewList()
		if !ok1 || !ok2 {
			return out, nil
		}
		for i := 0; i < len(a.Items) && i < len(b.Items); i++ {
			out.Items = append(out.Items, NewList(a.Items[i], b.Items[i]))
		}
		return out, nil
	})
	vm.RegisterNative("isdigit", func(args []Value) (Value, error) {
		s, ok := strArg(args, 0)
		if !ok {
			return BoolVal(false), nil
		}
		for i := 0; i < len(s); i++ {
			if s[i] < '0' || s[i] > '9' {
				return BoolVal(false), nil
			}
		}
		return BoolVal(true), nil
	})
	vm.RegisterNative("json_dumps", func(args []Value) (Value, error) {
		s, err := JSONDumps(arg(args, 0))
		return StrVal(s), err
	})
	vm.RegisterNative("json_loads", func(args []Value) (Value, error) {
		s, _ := strArg(args, 0)
		return JSONLoads(s)
	})
}

// ---- System ----

func registerSystem(vm *Interpreter) {
	vm.RegisterNative("time", func([]Value) (Value, error) { return IntVal(time.Now().Unix()), nil })
	vm.RegisterNative("time_ms", func([]Value) (Value, error) { return IntVal(time.Now().UnixMilli()), nil })
	vm.RegisterNative("sleep", func(args []Value) (Value, error) {
		switch v := arg(args, 0).(type) {
		case FloatVal:
			time.Sleep(time.Duration(float64(v) * float64(time.Second)))
		case IntVal:
			time.Sleep(time.Duration(v) * time.Second)
		}
		return None, nil
	})
	vm.RegisterNative("listdir", func(args []Value) (Value, error) {
		out := NewList()
		p, ok := strArg(args, 0)
		if !ok {
			return out, nil
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return out, nil
		}
		for _, e := range entries {
			out.Items = append(out.Items, StrVal(e.Name()))
		}
		return out, nil
	})
	vm.RegisterNative("getcwd", func([]Value) (Value, error) {
		wd, _ := os.Getwd()
		return StrVal(wd), nil
	})
	vm.RegisterNative("platform", func([]Value) (Value, error) { return StrVal(Platform()), nil })
	vm.RegisterNative("read_file", func(args []Value) (Value, error) {
		p, ok := strArg(args, 0)
		if !ok {
			return StrVal(""), nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return StrVal(""), nil
		}
		return StrVal(b), nil
	})
	vm.RegisterNative("write_file", func(args []Value) (Value, error) {
		p, ok1 := strArg(args, 0)
		content, ok2 := strArg(args, 1)
		if ok1 && ok2 {
			if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
				vm.logger.Warn("write_file failed", "path", p, "err", err)
			}
		}
		return None, nil
	})
}

// Platform names the host OS the way scripts expect ("linux", "macos", "windows").
func Platform() string {
	if goruntime.GOOS == "darwin" {
		return "macos"
	}
	return goruntime.GOOS
}

// ---- Tools ----

var helpTopics = map[string]string{
	"print": "print(value) - Prints a value to standard output\n  Example: print(\"Hello, World!\")",
	"len":   "len(obj) - Returns the length of a string or list\n  Example: len(\"hello\") returns 5",
	"range": "range(end) or range(start, end) - Creates a range object\n  Example: for i in range(1, 5): print(i)",
	"subprocess_run": "subprocess_run(cmd) - Execute command and wait for completion\n" +
		"  Returns dict with stdout, stderr, exit_code\n  Example: result = subprocess_run(\"echo hello\")",
	"subprocess_popen": "subprocess_popen(cmd) - Spawn process for live interaction\n" +
		"  Returns dict with pid\n  Example: proc = subprocess_popen(\"ping localhost\")",
	"json_dumps": "json_dumps(value) - Serializes a value to a JSON string",
	"json_loads": "json_loads(text) - Parses a JSON string into values",
	"check":      "check(source) - Statically checks a script and returns a report",
}

// Help returns the help text for topic; an empty topic gives the overview.
func Help(topic string) string {
	if topic == "" {
		return "help(topic) - Get help on a function or feature\n  Example: help(\"print\")\n\nUse help() with no args to see common topics"
	}
	if text, ok := helpTopics[topic]; ok {
		return text
	}
	switch topic {
	case "str", "int", "float", "bool":
		return fmt.Sprintf("%s(obj) - Converts object to %s type", topic, topic)
	case "sin", "cos", "sqrt":
		return fmt.Sprintf("%s(x) - Math function\n  Example: %s = %s(1.57)", topic, topic, topic)
	}
	return fmt.Sprintf("No help available for '%s'\n\nAvailable topics:\n"+
		"  print, len, range, str, int, float, bool\n  sin, cos, sqrt, pow, abs, exp\n"+
		"  read_file, write_file, input, json_dumps, json_loads\n  subprocess_run, subprocess_popen\n"+
		"  Window, Button, Slider, RadioButton, Column, Row", topic)
}

func registerTools(vm *Interpreter) {
	vm.RegisterNative("help", func(args []Value) (Value, error) {
		topic, _ := strArg(args, 0)
		return StrVal(Help(topic)), nil
	})
	vm.RegisterNative("check", func(args []Value) (Value, error) {
		src, ok := strArg(args, 0)
		if !ok {
			return StrVal("[Check] Error: source code string required"), nil
		}
		return StrVal(CheckSource(src).String()), nil
	})
}

// ---- JSON ----

// JSONDumps renders v as compact JSON. Keys are sorted; values with no
// JSON form (ranges, classes, instances, non-finite floats) become null.
func JSONDumps(v Value) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(toJSON(v)); err != nil {
		return "", runtimeErrorf("JSON encode error: %v", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func toJSON(v Value) any {
	switch x := v.(type) {
	case IntVal:
		return int64(x)
	case FloatVal:
		if math.IsInf(float64(x), 0) || math.IsNaN(float64(x)) {
			return nil
		}
		return float64(x)
	case BoolVal:
		return bool(x)
	case StrVal:
		return string(x)
	case *ListVal:
		out := make([]any, len(x.Items))
		for i, it := range x.Items {
			out[i] = toJSON(it)
		}
		return out
	case *DictVal:
		out := make(map[string]any, len(x.Data))
		for k, it := range x.Data {
			out[k] = toJSON(it)
		}
		return out
	}
	return nil
}

// JSONLoads parses text into Values. Integral numbers that fit int64
// become Int, other numbers Float.
func JSONLoads(text string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, runtimeErrorf("JSON parse error: %v", err)
	}
	return fromJSON(raw), nil
}

func fromJSON(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return None
	case bool:
		return BoolVal(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return IntVal(i)
		}
		f, _ := x.Float64()
		return FloatVal(f)
	case string:
		return StrVal(x)
	case []any:
		out := &ListVal{Items: make([]Value, len(x))}
		for i, it := range x {
			out.Items[i] = fromJSON(it)
		}
		return out
	case map[string]any:
		out := &DictVal{Data: make(map[string]Value, len(x))}
		for k, it := range x {
			out.Data[k] = fromJSON(it)
		}
		return out
	}
	return None
}
