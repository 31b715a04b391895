// runtime/native_std.go
package runtime

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"simonwaldherr.de/go/ferrum/interp"
)

// Host bundles the process-level state that host natives touch.
type Host struct {
	UI    *UIRegistry
	Procs *ProcessTable
	In    *bufio.Reader
	Out   io.Writer
	Ctx   context.Context
}

// NewHost creates a Host reading from in and writing to out.
func NewHost(in io.Reader, out io.Writer) *Host {
	return &Host{
		UI:    NewUIRegistry(),
		Procs: NewProcessTable(),
		In:    bufio.NewReader(in),
		Out:   out,
		Ctx:   context.Background(),
	}
}

// Close clears the UI registry. Spawned processes are not touched; see Reap.
func (h *Host) Close() { h.UI.Reset() }

// Reap waits up to grace for processes started by subprocess_popen and
// returns how many are still running afterwards.
func (h *Host) Reap(grace time.Duration) int {
	ctx, cancel := context.WithTimeout(h.Ctx, grace)
	defer cancel()
	_ = h.Procs.WaitContext(ctx)
	return h.Procs.Running()
}

// ---------------- Native registrations ----------

// RegisterHostNatives wires input, subprocess and UI natives to vm.
func RegisterHostNatives(vm *interp.Interpreter, h *Host) {
	vm.RegisterNative("input", func(args []interp.Value) (interp.Value, error) {
		if p, ok := args0Str(args); ok {
			fmt.Fprint(h.Out, p)
		}
		line, err := h.In.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		return interp.StrVal(strings.TrimRight(line, " \t\r\n")), nil
	})

	vm.RegisterNative("subprocess_run", func(args []interp.Value) (interp.Value, error) {
		cmd, ok := args0Str(args)
		if !ok {
			return nil, interp.NewRuntimeError("subprocess_run requires a command string")
		}
		res, err := RunCommand(h.Ctx, cmd)
		if err != nil {
			return nil, interp.NewRuntimeError(fmt.Sprintf("subprocess_run: %v", err))
		}
		return interp.NewDict(map[string]interp.Value{
			"stdout":    interp.StrVal(res.Stdout),
			"stderr":    interp.StrVal(res.Stderr),
			"exit_code": interp.IntVal(res.ExitCode),
		}), nil
	})
	vm.RegisterNative("subprocess_popen", func(args []interp.Value) (interp.Value, error) {
		cmd, ok := args0Str(args)
		if !ok {
			return nil, interp.NewRuntimeError("subprocess_popen requires a command string")
		}
		pid, err := h.Procs.Spawn(cmd)
		if err != nil {
			return nil, interp.NewRuntimeError(fmt.Sprintf("subprocess_popen: %v", err))
		}
		vm.Logger().Debug("spawned process", "pid", pid, "cmd", cmd)
		return interp.NewDict(map[string]interp.Value{
			"pid":            interp.IntVal(pid),
			"_proc_internal": interp.StrVal(fmt.Sprintf("proc-%d", pid)),
		}), nil
	})

	registerUI(vm, h)
}

func args0Str(args []interp.Value) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	s, ok := args[0].(interp.StrVal)
	return string(s), ok
}

func intAt(args []interp.Value, i int, def int64) int64 {
	if i < len(args) {
		if n, ok := args[i].(interp.IntVal); ok {
			return int64(n)
		}
	}
	return def
}

func strAt(args []interp.Value, i int) string {
	if i < len(args) {
		if s, ok := args[i].(interp.StrVal); ok {
			return string(s)
		}
	}
	return ""
}

// idOf returns the registry id carried by a widget instance, or a string id.
func idOf(v interp.Value) string {
	switch x := v.(type) {
	case *interp.InstanceVal:
		if id, ok := x.Field("__id"); ok {
			if s, ok := id.(interp.StrVal); ok {
				return string(s)
			}
		}
	case interp.StrVal:
		return string(x)
	}
	return ""
}

func selfID(args []interp.Value) string {
	if len(args) == 0 {
		return ""
	}
	return idOf(args[0])
}

type methodSet map[string]interp.NativeFunc

func widgetInstance(class, id string, methods methodSet) *interp.InstanceVal {
	inst := &interp.InstanceVal{
		ClassName: class,
		Fields:    map[string]interp.Value{"__id": interp.StrVal(id)},
		Methods:   map[string]*interp.Function{},
	}
	for name, f := range methods {
		inst.Methods[name] = &interp.Function{Name: name, Native: f}
	}
	return inst
}

// ---------------- UI widgets ----------

func registerUI(vm *interp.Interpreter, h *Host) {
	// update runs fn on the receiver's widget and yields None.
	update := func(fn func(w *Widget, args []interp.Value)) interp.NativeFunc {
		return func(args []interp.Value) (interp.Value, error) {
			h.UI.Update(selfID(args), func(w *Widget) { fn(w, args) })
			return interp.None, nil
		}
	}
	setPos := func(key string) interp.NativeFunc {
		return update(func(w *Widget, args []interp.Value) {
			w.Positions[key] = Point{X: intAt(args, 1, 0), Y: intAt(args, 2, 0)}
		})
	}
	addChild := update(func(w *Widget, args []interp.Value) {
		if len(args) > 1 {
			if id := idOf(args[1]); id != "" {
				w.Children = append(w.Children, id)
			}
		}
	})
	label := func(args []interp.Value) (interp.Value, error) {
		w, _ := h.UI.Get(selfID(args))
		return interp.StrVal(w.Label), nil
	}

	windowMethods := methodSet{
		"set_title":    update(func(w *Widget, a []interp.Value) { w.Title = strAt(a, 1) }),
		"set_position": setPos("window"),
		"set_size": update(func(w *Widget, a []interp.Value) {
			w.Width, w.Height = intAt(a, 1, w.Width), intAt(a, 2, w.Height)
		}),
		"set_icon": update(func(w *Widget, a []interp.Value) { w.Icon = strAt(a, 1) }),
		"add":      addChild,
		"get_title": func(args []interp.Value) (interp.Value, error) {
			w, _ := h.UI.Get(selfID(args))
			return interp.StrVal(w.Title), nil
		},
		"run": func(args []interp.Value) (interp.Value, error) {
			if w, ok := h.UI.Get(selfID(args)); ok {
				RenderWindow(h.Out, w)
			}
			return interp.None, nil
		},
	}
	layoutMethods := methodSet{
		"set_position": setPos("layout"),
		"set_spacing":  update(func(w *Widget, a []interp.Value) { w.Spacing = intAt(a, 1, 0) }),
		"add":          addChild,
	}

	newWindow := func(title string) string {
		return h.UI.Insert(Widget{Kind: KindWindow, Title: title, Width: 800, Height: 600})
	}

	vm.RegisterNative("Window", func(args []interp.Value) (interp.Value, error) {
		return widgetInstance("Window", newWindow(strAt(args, 0)), windowMethods), nil
	})
	vm.RegisterNative("Button", func(args []interp.Value) (interp.Value, error) {
		id := h.UI.Insert(Widget{Kind: KindButton, Label: strAt(args, 0)})
		return widgetInstance("Button", id, methodSet{"get_label": label, "set_position": setPos("pos")}), nil
	})
	vm.RegisterNative("Slider", func(args []interp.Value) (interp.Value, error) {
		id := h.UI.Insert(Widget{Kind: KindSlider, Min: intAt(args, 0, 0), Max: intAt(args, 1, 100)})
		return widgetInstance("Slider", id, methodSet{"set_coordinates": setPos("coords")}), nil
	})
	vm.RegisterNative("RadioButton", func(args []interp.Value) (interp.Value, error) {
		id := h.UI.Insert(Widget{Kind: KindRadio, Label: strAt(args, 0)})
		return widgetInstance("RadioButton", id, methodSet{
			"is_selected":  func([]interp.Value) (interp.Value, error) { return interp.BoolVal(false), nil },
			"set_position": setPos("pos"),
			"get_label":    label,
		}), nil
	})
	vm.RegisterNative("Column", func([]interp.Value) (interp.Value, error) {
		return widgetInstance("Column", h.UI.Insert(Widget{Kind: KindColumn}), layoutMethods), nil
	})
	vm.RegisterNative("Row", func([]interp.Value) (interp.Value, error) {
		return widgetInstance("Row", h.UI.Insert(Widget{Kind: KindRow}), layoutMethods), nil
	})

	vm.RegisterNative("iced_window", func(args []interp.Value) (interp.Value, error) {
		if title, ok := args0Str(args); ok {
			w, _ := h.UI.Get(newWindow(title))
			RenderWindow(h.Out, w)
		}
		return interp.None, nil
	})
	vm.RegisterNative("iced_button", func(args []interp.Value) (interp.Value, error) {
		if l, ok := args0Str(args); ok {
			h.UI.Insert(Widget{Kind: KindButton, Label: l})
		}
		return interp.None, nil
	})
}
