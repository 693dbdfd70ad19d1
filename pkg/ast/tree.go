package ast

import (
	"github.com/alexshafranov/derplanner-sub000/pkg/arena"
	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
)

// Tree owns every node of one compilation. Nodes come from an arena and are
// never freed individually; dropping the Tree releases them all.
type Tree struct {
	Root *Node

	nodes *arena.Arena[Node]

	facts map[string]*Node
	prims map[string]*Node
	tasks map[string]*Node
}

// NewTree returns a tree with an empty root.
func NewTree() *Tree {
	t := &Tree{nodes: arena.New[Node](1024)}
	t.Root = t.New(KindRoot, diag.Location{})
	return t
}

// NodeCount is the number of nodes allocated so far.
func (t *Tree) NodeCount() int {
	return t.nodes.Len()
}

// New allocates a node of the given kind with its default payload.
func (t *Tree) New(kind Kind, loc diag.Location) *Node {
	n := t.nodes.Alloc()
	n.Kind = kind
	n.Loc = loc
	switch kind {
	case KindVar:
		n.Data = &Var{}
	case KindFunc:
		n.Data = &Func{}
	case KindLiteral:
		n.Data = &Literal{}
	case KindParam:
		n.Data = &Param{}
	case KindFact:
		n.Data = &Fact{}
	case KindTask:
		n.Data = &Task{}
	case KindCase:
		n.Data = &Case{}
	case KindMacro:
		n.Data = &Macro{}
	case KindAttribute:
		n.Data = &Attribute{}
	case KindDomain:
		n.Data = &Domain{}
	case KindError:
		n.Data = &ErrorNode{}
	}
	return n
}

// NewVar allocates a variable reference.
func (t *Tree) NewVar(name string, loc diag.Location) *Node {
	n := t.New(KindVar, loc)
	n.Var().Name = name
	n.Var().OriginalName = name
	return n
}

// NewFunc allocates a call with the given arguments appended.
func (t *Tree) NewFunc(name string, loc diag.Location, args ...*Node) *Node {
	n := t.New(KindFunc, loc)
	n.Func().Name = name
	for _, a := range args {
		AppendChild(n, a)
	}
	return n
}

// NewInt allocates an integer literal.
func (t *Tree) NewInt(v int64, loc diag.Location) *Node {
	n := t.New(KindLiteral, loc)
	n.Literal().Kind = IntLiteral
	n.Literal().Int = v
	return n
}

// NewFloat allocates a float literal.
func (t *Tree) NewFloat(v float64, loc diag.Location) *Node {
	n := t.New(KindLiteral, loc)
	n.Literal().Kind = FloatLiteral
	n.Literal().Float = v
	return n
}

// NewOp allocates an operator node with the given operands appended.
func (t *Tree) NewOp(kind Kind, loc diag.Location, args ...*Node) *Node {
	n := t.New(kind, loc)
	for _, a := range args {
		AppendChild(n, a)
	}
	return n
}

// NewParam allocates a parameter declaration.
func (t *Tree) NewParam(name string, loc diag.Location) *Node {
	n := t.New(KindParam, loc)
	n.Param().Name = name
	return n
}

// NewNamed allocates a declaration node (fact, task, macro, attribute,
// domain) and sets its name.
func (t *Tree) NewNamed(kind Kind, name string, loc diag.Location) *Node {
	n := t.New(kind, loc)
	switch d := n.Data.(type) {
	case *Fact:
		d.Name = name
	case *Task:
		d.Name = name
	case *Macro:
		d.Name = name
	case *Attribute:
		d.Name = name
	case *Domain:
		d.Name = name
	default:
		panic("ast: NewNamed on unnamed kind " + kind.String())
	}
	return n
}

// World returns the fact block, or nil.
func (t *Tree) World() *Node { return FindChild(t.Root, KindWorld) }

// Primitives returns the primitive task block, or nil.
func (t *Tree) Primitives() *Node { return FindChild(t.Root, KindPrimitive) }

// DomainNode returns the domain, or nil.
func (t *Tree) DomainNode() *Node { return FindChild(t.Root, KindDomain) }

// SetLookups installs the name tables built by the annotate pass.
func (t *Tree) SetLookups(facts, prims, tasks map[string]*Node) {
	t.facts, t.prims, t.tasks = facts, prims, tasks
}

// Fact looks up a world fact declaration by name.
func (t *Tree) Fact(name string) *Node { return t.facts[name] }

// Primitive looks up a primitive task declaration by name.
func (t *Tree) Primitive(name string) *Node { return t.prims[name] }

// Task looks up a compound task by name.
func (t *Tree) Task(name string) *Node { return t.tasks[name] }
