package ast

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const indentUnit = "  "

// Print writes n's subtree as indented, kind-labeled lines.
func Print(w io.Writer, n *Node) error {
	bw := bufio.NewWriter(w)
	p := &printer{w: bw}
	p.node(n, 0)
	if p.err != nil {
		return p.err
	}
	return bw.Flush()
}

// Sprint is Print into a string.
func Sprint(n *Node) string {
	var b strings.Builder
	_ = Print(&b, n)
	return b.String()
}

type printer struct {
	BaseVisitor

	w     *bufio.Writer
	err   error
	parts []string
}

func (p *printer) label(n *Node) string {
	p.parts = append(p.parts[:0], n.Kind.String())
	Dispatch(n, p)
	if n.Type.IsConcrete() {
		p.parts = append(p.parts, "<"+n.Type.Name()+">")
	}
	return strings.Join(p.parts, " ")
}

func (p *printer) node(n *Node, depth int) {
	label := p.label(n)
	if p.err == nil {
		_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat(indentUnit, depth), label)
	}
	if n.Kind == KindError {
		return
	}
	for c := range n.Children() {
		p.node(c, depth+1)
	}
}

func (p *printer) name(s string) {
	if s != "" {
		p.parts = append(p.parts, s)
	}
}

func (p *printer) VisitFact(_ *Node, f *Fact)           { p.name(f.Name) }
func (p *printer) VisitParam(_ *Node, d *Param)         { p.name(d.Name) }
func (p *printer) VisitDomain(_ *Node, d *Domain)       { p.name(d.Name) }
func (p *printer) VisitTask(_ *Node, t *Task)           { p.name(t.Name) }
func (p *printer) VisitMacro(_ *Node, m *Macro)         { p.name(m.Name) }
func (p *printer) VisitAttribute(_ *Node, a *Attribute) { p.name(a.Name) }
func (p *printer) VisitFunc(_ *Node, f *Func)           { p.name(f.Name) }

func (p *printer) VisitVar(_ *Node, v *Var) {
	p.name(v.Name)
	if v.Binding {
		p.parts = append(p.parts, "binding")
	}
}

func (p *printer) VisitLiteral(_ *Node, l *Literal) {
	switch l.Kind {
	case IntLiteral:
		p.parts = append(p.parts, strconv.FormatInt(l.Int, 10))
	case FloatLiteral:
		p.parts = append(p.parts, strconv.FormatFloat(l.Float, 'g', -1, 64))
	}
}

func (p *printer) VisitError(_ *Node, e *ErrorNode) {
	p.parts = append(p.parts, e.Err.Code())
}

// Compact renders an expression on one line, e.g. "or(and(at(x), not(d)))".
func Compact(n *Node) string {
	var b strings.Builder
	compact(&b, n)
	return b.String()
}

func compact(b *strings.Builder, n *Node) {
	switch d := n.Data.(type) {
	case *Var:
		b.WriteString(d.Name)
		return
	case *Literal:
		if d.Kind == IntLiteral {
			b.WriteString(strconv.FormatInt(d.Int, 10))
		} else {
			b.WriteString(strconv.FormatFloat(d.Float, 'g', -1, 64))
		}
		return
	case *Func:
		b.WriteString(d.Name)
	case *ErrorNode:
		b.WriteString("error")
		return
	default:
		if name := n.Name(); name != "" {
			b.WriteString(name)
		} else {
			b.WriteString(n.Kind.String())
		}
	}
	b.WriteByte('(')
	i := 0
	for c := range n.Children() {
		if i > 0 {
			b.WriteString(", ")
		}
		compact(b, c)
		i++
	}
	b.WriteByte(')')
}

// Exported is a pointer-free copy of a subtree, one printer label per node.
type Exported struct {
	Label    string      `json:"label"`
	Line     int         `json:"line"`
	Column   int         `json:"column"`
	Children []*Exported `json:"children,omitempty"`
}

// Export copies n's subtree into an Exported.
func Export(n *Node) *Exported {
	return (&printer{}).export(n)
}

func (p *printer) export(n *Node) *Exported {
	e := &Exported{Label: p.label(n), Line: n.Loc.Line, Column: n.Loc.Column}
	if n.Kind == KindError {
		return e
	}
	for c := range n.Children() {
		e.Children = append(e.Children, p.export(c))
	}
	return e
}

// Shape is the kind skeleton of a tree, with names and types dropped.
type Shape struct {
	Kind     Kind
	Children []*Shape
}

// ShapeOf extracts the skeleton of n's subtree.
func ShapeOf(n *Node) *Shape {
	s := &Shape{Kind: n.Kind}
	if n.Kind == KindError {
		return s
	}
	for c := range n.Children() {
		s.Children = append(s.Children, ShapeOf(c))
	}
	return s
}

// Equal compares two skeletons.
func (s *Shape) Equal(o *Shape) bool {
	if s.Kind != o.Kind || len(s.Children) != len(o.Children) {
		return false
	}
	for i := range s.Children {
		if !s.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// ReadShape parses the output of Print back into a skeleton. Everything after
// the kind label on each line is ignored.
func ReadShape(r io.Reader) (*Shape, error) {
	var (
		root  *Shape
		stack []*Shape
	)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		trimmed := strings.TrimLeft(line, " ")
		indent := len(line) - len(trimmed)
		if indent%len(indentUnit) != 0 {
			return nil, errors.Errorf("line %d: odd indentation", lineNo)
		}
		depth := indent / len(indentUnit)

		label, _, _ := strings.Cut(trimmed, " ")
		kind, ok := ParseKind(label)
		if !ok {
			return nil, errors.Errorf("line %d: unknown kind %q", lineNo, label)
		}
		s := &Shape{Kind: kind}

		switch {
		case depth == 0:
			if root != nil {
				return nil, errors.Errorf("line %d: second root", lineNo)
			}
			root = s
		case depth > len(stack):
			return nil, errors.Errorf("line %d: indentation skips a level", lineNo)
		default:
			parent := stack[depth-1]
			parent.Children = append(parent.Children, s)
		}
		stack = append(stack[:depth], s)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read shape")
	}
	if root == nil {
		return nil, errors.New("empty input")
	}
	return root, nil
}
