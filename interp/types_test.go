package interp

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestValueString(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{IntVal(-7), "-7"},
		{FloatVal(3), "3"},
		{FloatVal(0.1), "0.1"},
		{FloatVal(2.5), "2.5"},
		{FloatVal(math.Inf(1)), "inf"},
		{FloatVal(math.Inf(-1)), "-inf"},
		{FloatVal(math.NaN()), "NaN"},
		{BoolVal(true), "true"},
		{BoolVal(false), "false"},
		{StrVal("hi"), "hi"},
		{None, "None"},
		{RangeVal{Start: 1, End: 4}, "range(1, 4)"},
		{NewList(IntVal(1), StrVal("a")), "[1, a]"},
		{NewList(), "[]"},
		{NewDict(map[string]Value{"b": IntVal(2), "a": IntVal(1)}), "{...}"},
		{NewDict(nil), "{...}"},
		{&ClassVal{Name: "P"}, "<class P>"},
		{&InstanceVal{ClassName: "P"}, "<instance P>"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, c.v.String())
	}
	require.Equal(t, "None", ToString(nil))
}

func TestValueTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{IntVal(0), false},
		{IntVal(2), true},
		{FloatVal(0), false},
		{FloatVal(0.5), true},
		{StrVal(""), false},
		{StrVal("x"), true},
		{None, false},
		{RangeVal{}, true},
		{NewList(), false},
		{NewList(None), true},
		{NewDict(nil), false},
		{&ClassVal{}, true},
		{&InstanceVal{}, true},
	}
	for _, c := range cases {
		require.Equal(t, c.want, c.v.Truthy(), "%T %v", c.v, c.v)
	}
}

func TestKindNames(t *testing.T) {
	got := []string{
		IntVal(0).Kind().String(), StrVal("").Kind().String(), None.Kind().String(),
		NewList().Kind().String(), (&InstanceVal{}).Kind().String(),
	}
	want := []string{"int", "str", "none", "list", "instance"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	require.Equal(t, "kind(42)", Kind(42).String())
}

func TestCopyOnWrite(t *testing.T) {
	d := NewDict(map[string]Value{"a": IntVal(1)})
	d2 := d.With("a", IntVal(2))
	require.Equal(t, IntVal(1), d.Data["a"])
	require.Equal(t, IntVal(2), d2.Data["a"])

	inst := &InstanceVal{ClassName: "P", Fields: map[string]Value{"x": IntVal(1)}}
	inst2 := inst.WithField("x", IntVal(9))
	v, _ := inst.Field("x")
	require.Equal(t, IntVal(1), v)
	v, _ = inst2.Field("x")
	require.Equal(t, IntVal(9), v)
	require.Equal(t, "P", inst2.ClassName)

	items := []Value{IntVal(1)}
	l := NewList(items...)
	items[0] = IntVal(5)
	require.Equal(t, IntVal(1), l.Items[0])
}

func TestEnvSetAttr(t *testing.T) {
	env := NewEnv()
	env.Set("d", NewDict(nil))
	require.NoError(t, env.SetAttr("d", "k", StrVal("v")))
	v, _ := env.Get("d")
	require.Equal(t, StrVal("v"), v.(*DictVal).Data["k"])
	require.Equal(t, "{...}", v.String())

	env.Set("n", IntVal(1))
	require.ErrorContains(t, env.SetAttr("n", "k", None), "Cannot set attribute k on n")
	require.Error(t, env.SetAttr("missing", "k", None))
}

func TestEnvListings(t *testing.T) {
	vm := NewInterpreter()
	vm.RegisterNative("b", func([]Value) (Value, error) { return nil, nil })
	vm.RegisterNative("a", func([]Value) (Value, error) { return nil, nil })
	vm.SetGlobal("z", IntVal(1))
	vm.SetGlobal("y", IntVal(2))
	require.Equal(t, []string{"a", "b"}, vm.Globals().FuncNames())
	require.Equal(t, []string{"y", "z"}, vm.Globals().VarNames())

	vars := vm.Globals().Vars()
	vars["z"] = IntVal(100)
	v, _ := vm.Globals().Get("z")
	require.Equal(t, IntVal(1), v)
}

func TestConversionsHelpers(t *testing.T) {
	require.Equal(t, 2.0, ToFloat(IntVal(2), -1))
	require.Equal(t, -1.0, ToFloat(StrVal("2"), -1))
	require.Equal(t, int64(3), ToInt(FloatVal(3.7), 0))
	require.Equal(t, int64(9), ToInt(None, 9))
}
