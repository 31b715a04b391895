// interp/parser.go
package interp

import "strings"

// Stmt is a parsed statement. Expressions stay as raw text and are
// evaluated on demand.
type Stmt interface{ stmtNode() }

type (
	PrintStmt  struct{ Expr string }
	AssignStmt struct{ Target, Expr string }
	ExprStmt   struct{ Expr string }
	ReturnStmt struct{ Expr string }
	ImportStmt struct{ Module string }

	// Branch is one (condition, body) arm of an If.
	Branch struct {
		Cond string
		Body []Stmt
	}

	IfStmt struct {
		Branches []Branch
		Else     []Stmt
	}

	// ElseStmt is a free-standing else block; it is never attached to an If.
	ElseStmt struct{ Body []Stmt }

	WhileStmt struct {
		Cond string
		Body []Stmt
	}

	// ForStmt keeps the raw "var in expr" header.
	ForStmt struct {
		Header string
		Body   []Stmt
	}

	// DefStmt keeps the raw "name(params)" signature.
	DefStmt struct {
		Signature string
		Body      []Stmt
	}

	ClassStmt struct {
		Name string
		Body []Stmt
	}

	// BlockStmt is any other header line ending in ':'.
	BlockStmt struct {
		Header string
		Body   []Stmt
	}
)

func (*PrintStmt) stmtNode()  {}
func (*AssignStmt) stmtNode() {}
func (*ExprStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode() {}
func (*ImportStmt) stmtNode() {}
func (*IfStmt) stmtNode()     {}
func (*ElseStmt) stmtNode()   {}
func (*WhileStmt) stmtNode()  {}
func (*ForStmt) stmtNode()    {}
func (*DefStmt) stmtNode()    {}
func (*ClassStmt) stmtNode()  {}
func (*BlockStmt) stmtNode()  {}

// Module is a parsed source file.
type Module struct{ Body []Stmt }

type srcLine struct {
	indent int
	text   string
}

type parser struct {
	lines []srcLine
	pos   int
}

// Parse turns indentation-structured source into statements.
// Blank lines vanish; lines starting with '#' are comments.
func Parse(src string) (*Module, error) {
	if err := checkUTF8(src); err != nil {
		return nil, err
	}
	p := &parser{}
	for _, raw := range strings.Split(src, "\n") {
		raw = strings.TrimRight(raw, " \t\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		text := strings.TrimLeft(raw, " ")
		p.lines = append(p.lines, srcLine{indent: len(raw) - len(text), text: text})
	}
	return &Module{Body: p.block(0)}, nil
}

// block consumes lines indented at least min.
func (p *parser) block(min int) []Stmt {
	var stmts []Stmt
	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if ln.indent < min {
			break
		}
		p.pos++
		if strings.HasPrefix(ln.text, "#") {
			continue
		}
		if strings.HasSuffix(ln.text, ":") {
			header := strings.TrimRight(ln.text, ":")
			body := p.block(ln.indent + 1)
			stmts = append(stmts, headerStmt(header, body))
			continue
		}
		stmts = append(stmts, simpleStmt(ln.text))
	}
	return stmts
}

func headerStmt(header string, body []Stmt) Stmt {
	switch {
	case strings.HasPrefix(header, "if "), strings.HasPrefix(header, "elif "):
		_, cond, _ := strings.Cut(header, " ")
		return &IfStmt{Branches: []Branch{{Cond: cond, Body: body}}}
	case strings.HasPrefix(header, "else"):
		return &ElseStmt{Body: body}
	case strings.HasPrefix(header, "while "):
		return &WhileStmt{Cond: strings.TrimPrefix(header, "while "), Body: body}
	case strings.HasPrefix(header, "for "):
		return &ForStmt{Header: strings.TrimPrefix(header, "for "), Body: body}
	case strings.HasPrefix(header, "def "):
		return &DefStmt{Signature: strings.TrimPrefix(header, "def "), Body: body}
	case strings.HasPrefix(header, "class "):
		return &ClassStmt{Name: strings.TrimSpace(strings.TrimPrefix(header, "class ")), Body: body}
	}
	return &BlockStmt{Header: header, Body: body}
}

func simpleStmt(line string) Stmt {
	s := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(s, "print(") && strings.HasSuffix(s, ")"):
		return &PrintStmt{Expr: s[len("print(") : len(s)-1]}
	case strings.HasPrefix(s, "return "):
		return &ReturnStmt{Expr: strings.TrimPrefix(s, "return ")}
	case strings.Contains(s, "="):
		lhs, rhs, _ := strings.Cut(s, "=")
		return &AssignStmt{Target: strings.TrimSpace(lhs), Expr: strings.TrimSpace(rhs)}
	case strings.HasPrefix(s, "import "):
		return &ImportStmt{Module: strings.TrimSpace(strings.TrimPrefix(s, "import "))}
	}
	return &ExprStmt{Expr: s}
}
