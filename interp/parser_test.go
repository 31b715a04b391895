package interp

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const parserSample = `# comment
x = 1

if x:
    print(x)
elif y:
    pass
else:
    z = 2
def f(a, b):
    return a
class C:
    def m(self):
        q
for i in range(3):
    print(i)
while x:
    x = 0
import foo
try:
    y
`

func TestParseStatementKinds(t *testing.T) {
	mod, err := Parse(parserSample)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Stmt{
		&AssignStmt{Target: "x", Expr: "1"},
		&IfStmt{Branches: []Branch{{Cond: "x", Body: []Stmt{&PrintStmt{Expr: "x"}}}}},
		&IfStmt{Branches: []Branch{{Cond: "y", Body: []Stmt{&ExprStmt{Expr: "pass"}}}}},
		&ElseStmt{Body: []Stmt{&AssignStmt{Target: "z", Expr: "2"}}},
		&DefStmt{Signature: "f(a, b)", Body: []Stmt{&ReturnStmt{Expr: "a"}}},
		&ClassStmt{Name: "C", Body: []Stmt{
			&DefStmt{Signature: "m(self)", Body: []Stmt{&ExprStmt{Expr: "q"}}},
		}},
		&ForStmt{Header: "i in range(3)", Body: []Stmt{&PrintStmt{Expr: "i"}}},
		&WhileStmt{Cond: "x", Body: []Stmt{&AssignStmt{Target: "x", Expr: "0"}}},
		&ImportStmt{Module: "foo"},
		&BlockStmt{Header: "try", Body: []Stmt{&ExprStmt{Expr: "y"}}},
	}
	if diff := cmp.Diff(want, mod.Body); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIndentationIsRelative(t *testing.T) {
	// Any deeper indent belongs to the block, not only one step deeper.
	mod, err := Parse("if x:\n  a = 1\n b = 2\nc = 3")
	if err != nil {
		t.Fatal(err)
	}
	want := []Stmt{
		&IfStmt{Branches: []Branch{{Cond: "x", Body: []Stmt{
			&AssignStmt{Target: "a", Expr: "1"},
			&AssignStmt{Target: "b", Expr: "2"},
		}}}},
		&AssignStmt{Target: "c", Expr: "3"},
	}
	if diff := cmp.Diff(want, mod.Body); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestParseSimpleStatements(t *testing.T) {
	cases := []struct {
		line string
		want Stmt
	}{
		{`print("hi")`, &PrintStmt{Expr: `"hi"`}},
		{`print(a) + 1`, &ExprStmt{Expr: `print(a) + 1`}},
		{`return x + 1`, &ReturnStmt{Expr: "x + 1"}},
		{`a == b`, &AssignStmt{Target: "a", Expr: "= b"}},
		{`obj.field = "v"`, &AssignStmt{Target: "obj.field", Expr: `"v"`}},
		{`import  mod `, &ImportStmt{Module: "mod"}},
		{`f(1)`, &ExprStmt{Expr: "f(1)"}},
	}
	for _, c := range cases {
		mod, err := Parse(c.line)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.line, err)
		}
		if len(mod.Body) != 1 {
			t.Fatalf("Parse(%q): got %d statements", c.line, len(mod.Body))
		}
		if diff := cmp.Diff(c.want, mod.Body[0]); diff != "" {
			t.Errorf("Parse(%q) (-want +got):\n%s", c.line, diff)
		}
	}
}

func TestParseHeaderTrimsColons(t *testing.T) {
	mod, err := Parse("weird::\n    x = 1\n")
	if err != nil {
		t.Fatal(err)
	}
	want := []Stmt{&BlockStmt{Header: "weird", Body: []Stmt{&AssignStmt{Target: "x", Expr: "1"}}}}
	if diff := cmp.Diff(want, mod.Body); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestParseEmptyAndCommentOnly(t *testing.T) {
	for _, src := range []string{"", "\n\n", "# only\n   # indented"} {
		mod, err := Parse(src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		if len(mod.Body) != 0 {
			t.Errorf("Parse(%q): expected no statements, got %d", src, len(mod.Body))
		}
	}
}

func TestParseCRLF(t *testing.T) {
	mod, err := Parse("x = 1\r\nif x:\r\n    print(x)\r\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(mod.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(mod.Body))
	}
	if _, ok := mod.Body[1].(*IfStmt); !ok {
		t.Errorf("expected IfStmt, got %T", mod.Body[1])
	}
}

func TestParseInvalidUTF8(t *testing.T) {
	_, err := Parse("ok = 1\n\nbad = \"\xc3\x28\"")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Line != 3 {
		t.Errorf("expected line 3, got %d", pe.Line)
	}
}
