// interp/astfile.go
package interp

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// TreeFormat identifies serialized statement trees.
const TreeFormat = "ferrum-tree/1"

// treeFile is the on-disk form of a parsed Module.
type treeFile struct {
	Format string     `yaml:"format"`
	Source string     `yaml:"source,omitempty"`
	Body   []treeNode `yaml:"body"`
}

type treeNode struct {
	Kind     string       `yaml:"kind"`
	Text     string       `yaml:"text,omitempty"`
	Target   string       `yaml:"target,omitempty"`
	Branches []treeBranch `yaml:"branches,omitempty"`
	Else     []treeNode   `yaml:"else,omitempty"`
	Body     []treeNode   `yaml:"body,omitempty"`
}

type treeBranch struct {
	Cond string     `yaml:"cond"`
	Body []treeNode `yaml:"body,omitempty"`
}

// EncodeTree writes mod as YAML. source names the originating file.
func EncodeTree(w io.Writer, mod *Module, source string) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(treeFile{Format: TreeFormat, Source: source, Body: toNodes(mod.Body)}); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return enc.Close()
}

// DecodeTree reads a Module written by EncodeTree.
func DecodeTree(r io.Reader) (*Module, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var tf treeFile
	if err := dec.Decode(&tf); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	if tf.Format != TreeFormat {
		return nil, fmt.Errorf("decode tree: unsupported format %q", tf.Format)
	}
	body, err := fromNodes(tf.Body)
	if err != nil {
		return nil, err
	}
	return &Module{Body: body}, nil
}

func toNodes(stmts []Stmt) []treeNode {
	if len(stmts) == 0 {
		return nil
	}
	out := make([]treeNode, 0, len(stmts))
	for _, st := range stmts {
		var n treeNode
		switch s := st.(type) {
		case *PrintStmt:
			n = treeNode{Kind: "print", Text: s.Expr}
		case *AssignStmt:
			n = treeNode{Kind: "assign", Target: s.Target, Text: s.Expr}
		case *ExprStmt:
			n = treeNode{Kind: "expr", Text: s.Expr}
		case *ReturnStmt:
			n = treeNode{Kind: "return", Text: s.Expr}
		case *ImportStmt:
			n = treeNode{Kind: "import", Text: s.Module}
		case *IfStmt:
			n = treeNode{Kind: "if", Else: toNodes(s.Else)}
			for _, br := range s.Branches {
				n.Branches = append(n.Branches, treeBranch{Cond: br.Cond, Body: toNodes(br.Body)})
			}
		case *ElseStmt:
			n = treeNode{Kind: "else", Body: toNodes(s.Body)}
		case *WhileStmt:
			n = treeNode{Kind: "while", Text: s.Cond, Body: toNodes(s.Body)}
		case *ForStmt:
			n = treeNode{Kind: "for", Text: s.Header, Body: toNodes(s.Body)}
		case *DefStmt:
			n = treeNode{Kind: "def", Text: s.Signature, Body: toNodes(s.Body)}
		case *ClassStmt:
			n = treeNode{Kind: "class", Text: s.Name, Body: toNodes(s.Body)}
		case *BlockStmt:
			n = treeNode{Kind: "block", Text: s.Header, Body: toNodes(s.Body)}
		}
		out = append(out, n)
	}
	return out
}

func fromNodes(nodes []treeNode) ([]Stmt, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	out := make([]Stmt, 0, len(nodes))
	for _, n := range nodes {
		body, err := fromNodes(n.Body)
		if err != nil {
			return nil, err
		}
		var st Stmt
		switch n.Kind {
		case "print":
			st = &PrintStmt{Expr: n.Text}
		case "assign":
			st = &AssignStmt{Target: n.Target, Expr: n.Text}
		case "expr":
			st = &ExprStmt{Expr: n.Text}
		case "return":
			st = &ReturnStmt{Expr: n.Text}
		case "import":
			st = &ImportStmt{Module: n.Text}
		case "if":
			els, err := fromNodes(n.Else)
			if err != nil {
				return nil, err
			}
			ifs := &IfStmt{Else: els}
			for _, br := range n.Branches {
				b, err := fromNodes(br.Body)
				if err != nil {
					return nil, err
				}
				ifs.Branches = append(ifs.Branches, Branch{Cond: br.Cond, Body: b})
			}
			st = ifs
		case "else":
			st = &ElseStmt{Body: body}
		case "while":
			st = &WhileStmt{Cond: n.Text, Body: body}
		case "for":
			st = &ForStmt{Header: n.Text, Body: body}
		case "def":
			st = &DefStmt{Signature: n.Text, Body: body}
		case "class":
			st = &ClassStmt{Name: n.Text, Body: body}
		case "block":
			st = &BlockStmt{Header: n.Text, Body: body}
		default:
			return nil, fmt.Errorf("decode tree: unknown statement kind %q", n.Kind)
		}
		out = append(out, st)
	}
	return out, nil
}
