// runtime/ui.go
package runtime

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
)

// WidgetKind names a UI element type; it is also the id prefix.
type WidgetKind string

const (
	KindWindow WidgetKind = "window"
	KindButton WidgetKind = "button"
	KindSlider WidgetKind = "slider"
	KindRadio  WidgetKind = "radio"
	KindColumn WidgetKind = "column"
	KindRow    WidgetKind = "row"
)

type Point struct{ X, Y int64 }

// Widget is the registry record for one UI element. Only the fields that
// apply to its Kind are used.
type Widget struct {
	ID        string
	Kind      WidgetKind
	Title     string
	Label     string
	Icon      string
	Min, Max  int64
	Width     int64
	Height    int64
	Spacing   int64
	Children  []string
	Positions map[string]Point
}

func (w Widget) clone() Widget {
	w.Children = append([]string(nil), w.Children...)
	pos := make(map[string]Point, len(w.Positions))
	for k, p := range w.Positions {
		pos[k] = p
	}
	w.Positions = pos
	return w
}

// UIRegistry owns every widget a script creates. It is safe for
// concurrent use; each interpreter process normally has one.
type UIRegistry struct {
	mu      sync.Mutex
	next    int
	widgets map[string]*Widget
}

func NewUIRegistry() *UIRegistry {
	return &UIRegistry{widgets: map[string]*Widget{}}
}

// Insert stores w under a fresh "kind-N" id and returns the id.
func (r *UIRegistry) Insert(w Widget) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	w = w.clone()
	w.ID = string(w.Kind) + "-" + strconv.Itoa(r.next)
	r.widgets[w.ID] = &w
	return w.ID
}

// Get returns a copy of the widget.
func (r *UIRegistry) Get(id string) (Widget, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.widgets[id]
	if !ok {
		return Widget{}, false
	}
	return w.clone(), true
}

// Update applies fn to the stored widget. It reports whether id exists.
func (r *UIRegistry) Update(id string, fn func(*Widget)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.widgets[id]
	if ok {
		fn(w)
	}
	return ok
}

func (r *UIRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.widgets)
}

// Reset drops all widgets and restarts id numbering.
func (r *UIRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next = 0
	r.widgets = map[string]*Widget{}
}

// RenderWindow writes a text rendering of a window, the stand-in for
// launching a real GUI.
func RenderWindow(out io.Writer, w Widget) {
	title := "Untitled"
	if w.Title != "" {
		title = "'" + w.Title + "'"
	}
	pos := w.Positions["window"]
	fmt.Fprintf(out, "\n========== WINDOW: %s ==========\n", title)
	fmt.Fprintf(out, "Position: (%d, %d)\n", pos.X, pos.Y)
	fmt.Fprintf(out, "Size: %d x %d\n", w.Width, w.Height)
	if w.Icon != "" {
		fmt.Fprintf(out, "Icon: %s\n", w.Icon)
	}
	fmt.Fprintf(out, "Children: %d\n", len(w.Children))
	for _, c := range w.Children {
		fmt.Fprintf(out, "  - %s\n", c)
	}
	keys := make([]string, 0, len(w.Positions))
	for k := range w.Positions {
		if k != "window" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  @ %s (%d, %d)\n", k, w.Positions[k].X, w.Positions[k].Y)
	}
	fmt.Fprintln(out, "[Window] Running in text mode")
	fmt.Fprint(out, "========================================\n\n")
}
