// interp/types.go
package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// RuntimeError is a lightweight error type for evaluation faults.
type RuntimeError struct{ msg string }

func (e *RuntimeError) Error() string  { return e.msg }
func NewRuntimeError(msg string) error { return &RuntimeError{msg: msg} }

func runtimeErrorf(format string, args ...any) error {
	return &RuntimeError{msg: fmt.Sprintf(format, args...)}
}

// ParseError reports source text that cannot be turned into statements.
type ParseError struct {
	Line int // 1-based
	Msg  string
}

func (e *ParseError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Msg) }

// checkUTF8 reports the first line holding invalid UTF-8.
func checkUTF8(src string) error {
	if utf8.ValidString(src) {
		return nil
	}
	for i, ln := range strings.Split(src, "\n") {
		if !utf8.ValidString(ln) {
			return &ParseError{Line: i + 1, Msg: "invalid UTF-8 in source"}
		}
	}
	return &ParseError{Line: 1, Msg: "invalid UTF-8 in source"}
}

// ---- Values ----

// Kind tags the variant held by a Value.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindStr
	KindList
	KindDict
	KindRange
	KindClass
	KindInstance
	KindNone
)

var kindNames = [...]string{"int", "float", "bool", "str", "list", "dict", "range", "class", "instance", "none"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a Ferrum runtime value. The set of implementations is closed.
// Values are never mutated after they are shared; updates build a copy.
type Value interface {
	Kind() Kind
	String() string
	Truthy() bool
	isValue()
}

type (
	IntVal   int64
	FloatVal float64
	BoolVal  bool
	StrVal   string
	NoneVal  struct{}

	// RangeVal is the half-open interval [Start, End).
	RangeVal struct{ Start, End int64 }

	ListVal struct{ Items []Value }
	DictVal struct{ Data map[string]Value }

	ClassVal struct {
		Name    string
		Methods map[string]*Function
	}

	InstanceVal struct {
		ClassName string
		Fields    map[string]Value
		Methods   map[string]*Function
	}
)

// None is the shared absent value.
var None Value = NoneVal{}

func (IntVal) Kind() Kind       { return KindInt }
func (FloatVal) Kind() Kind     { return KindFloat }
func (BoolVal) Kind() Kind      { return KindBool }
func (StrVal) Kind() Kind       { return KindStr }
func (NoneVal) Kind() Kind      { return KindNone }
func (RangeVal) Kind() Kind     { return KindRange }
func (*ListVal) Kind() Kind     { return KindList }
func (*DictVal) Kind() Kind     { return KindDict }
func (*ClassVal) Kind() Kind    { return KindClass }
func (*InstanceVal) Kind() Kind { return KindInstance }

func (IntVal) isValue()       {}
func (FloatVal) isValue()     {}
func (BoolVal) isValue()      {}
func (StrVal) isValue()       {}
func (NoneVal) isValue()      {}
func (RangeVal) isValue()     {}
func (*ListVal) isValue()     {}
func (*DictVal) isValue()     {}
func (*ClassVal) isValue()    {}
func (*InstanceVal) isValue() {}

func (v IntVal) String() string { return strconv.FormatInt(int64(v), 10) }

// Shortest round-trip digits without exponent; whole numbers print bare ("3").
func (v FloatVal) String() string {
	f := float64(v)
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (v BoolVal) String() string {
	if v {
		return "true"
	}
	return "false"
}

func (v StrVal) String() string   { return string(v) }
func (NoneVal) String() string    { return "None" }
func (v RangeVal) String() string { return fmt.Sprintf("range(%d, %d)", v.Start, v.End) }

func (v *ListVal) String() string {
	parts := make([]string, len(v.Items))
	for i, it := range v.Items {
		parts[i] = it.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Dicts render opaquely; their contents are reachable through attributes.
func (*DictVal) String() string { return "{...}" }

func (v *ClassVal) String() string    { return "<class " + v.Name + ">" }
func (v *InstanceVal) String() string { return "<instance " + v.ClassName + ">" }

func (v IntVal) Truthy() bool      { return v != 0 }
func (v FloatVal) Truthy() bool    { return v != 0 }
func (v BoolVal) Truthy() bool     { return bool(v) }
func (v StrVal) Truthy() bool      { return v != "" }
func (NoneVal) Truthy() bool       { return false }
func (RangeVal) Truthy() bool      { return true }
func (v *ListVal) Truthy() bool    { return len(v.Items) > 0 }
func (v *DictVal) Truthy() bool    { return len(v.Data) > 0 }
func (*ClassVal) Truthy() bool     { return true }
func (*InstanceVal) Truthy() bool  { return true }

// NewList copies items into a fresh list.
func NewList(items ...Value) *ListVal {
	return &ListVal{Items: append([]Value(nil), items...)}
}

// NewDict copies data into a fresh dict.
func NewDict(data map[string]Value) *DictVal {
	d := &DictVal{Data: make(map[string]Value, len(data))}
	for k, v := range data {
		d.Data[k] = v
	}
	return d
}

// With returns a copy of d holding key=v.
func (d *DictVal) With(key string, v Value) *DictVal {
	out := NewDict(d.Data)
	out.Data[key] = v
	return out
}

// Field reads a field of the instance.
func (i *InstanceVal) Field(name string) (Value, bool) {
	v, ok := i.Fields[name]
	return v, ok
}

// WithField returns a copy of i holding name=v. Methods are shared.
func (i *InstanceVal) WithField(name string, v Value) *InstanceVal {
	fields := make(map[string]Value, len(i.Fields)+1)
	for k, fv := range i.Fields {
		fields[k] = fv
	}
	fields[name] = v
	return &InstanceVal{ClassName: i.ClassName, Fields: fields, Methods: i.Methods}
}

// ---- Functions ----

// NativeFunc is a host-implemented callable.
type NativeFunc func(args []Value) (Value, error)

// Function is either a user definition (Params + Body) or a native.
type Function struct {
	Name   string
	Params []string
	Body   []Stmt
	Native NativeFunc
}

func (f *Function) IsNative() bool { return f.Native != nil }

func copyMethods(m map[string]*Function) map[string]*Function {
	out := make(map[string]*Function, len(m))
	for k, f := range m {
		out[k] = f
	}
	return out
}

// ---- Conversions ----

// ToFloat returns the numeric value of Int or Float, or def.
func ToFloat(v Value, def float64) float64 {
	switch n := v.(type) {
	case IntVal:
		return float64(n)
	case FloatVal:
		return float64(n)
	}
	return def
}

// ToInt returns the integer value of Int or a truncated Float, or def.
func ToInt(v Value, def int64) int64 {
	switch n := v.(type) {
	case IntVal:
		return int64(n)
	case FloatVal:
		return int64(n)
	}
	return def
}

// ToString renders v, treating nil as None.
func ToString(v Value) string {
	if v == nil {
		return None.String()
	}
	return v.String()
}
