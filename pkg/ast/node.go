// Package ast is the arena-backed syntax tree every compiler pass reads and
// rewrites in place.
package ast

import (
	"fmt"

	"github.com/iancoleman/strcase"

	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
	"github.com/alexshafranov/derplanner-sub000/pkg/types"
)

// Kind tags a Node.
type Kind uint8

const (
	KindRoot Kind = iota
	KindWorld
	KindPrimitive
	KindFact
	KindParam
	KindDomain
	KindTask
	KindCase
	KindAttribute
	KindMacro
	KindTaskList
	KindVar
	KindLiteral
	KindFunc
	KindAnd
	KindOr
	KindNot
	KindEq
	KindNe
	KindLt
	KindLe
	KindGt
	KindGe
	KindAssign
	KindAdd
	KindSub
	KindMul
	KindDiv
	KindNeg
	KindError

	numKinds
)

var kindNames = [numKinds]string{
	KindRoot:      "Root",
	KindWorld:     "World",
	KindPrimitive: "Primitive",
	KindFact:      "Fact",
	KindParam:     "Param",
	KindDomain:    "Domain",
	KindTask:      "Task",
	KindCase:      "Case",
	KindAttribute: "Attribute",
	KindMacro:     "Macro",
	KindTaskList:  "TaskList",
	KindVar:       "Var",
	KindLiteral:   "Literal",
	KindFunc:      "Func",
	KindAnd:       "And",
	KindOr:        "Or",
	KindNot:       "Not",
	KindEq:        "Eq",
	KindNe:        "Ne",
	KindLt:        "Lt",
	KindLe:        "Le",
	KindGt:        "Gt",
	KindGe:        "Ge",
	KindAssign:    "Assign",
	KindAdd:       "Add",
	KindSub:       "Sub",
	KindMul:       "Mul",
	KindDiv:       "Div",
	KindNeg:       "Neg",
	KindError:     "Error",
}

var kindByLabel = map[string]Kind{}

func init() {
	for k := Kind(0); k < numKinds; k++ {
		kindByLabel[k.String()] = k
	}
}

// String is the snake_case label used by the debug printer.
func (k Kind) String() string {
	if k < numKinds {
		return strcase.ToSnake(kindNames[k])
	}
	return fmt.Sprintf("kind_%d", uint8(k))
}

// ParseKind maps a debug-printer label back to its Kind.
func ParseKind(label string) (Kind, bool) {
	k, ok := kindByLabel[label]
	return k, ok
}

// IsLogical reports And, Or and Not.
func (k Kind) IsLogical() bool {
	return k == KindAnd || k == KindOr || k == KindNot
}

// IsComparison reports the relational operators.
func (k Kind) IsComparison() bool {
	return k >= KindEq && k <= KindGe
}

// IsArithmetic reports the binary arithmetic operators and negation.
func (k Kind) IsArithmetic() bool {
	return k >= KindAdd && k <= KindNeg
}

// IsExpr reports kinds that may appear inside an expression tree.
func (k Kind) IsExpr() bool {
	return k >= KindVar && k <= KindNeg || k == KindError
}

// Node is one vertex of the tree. Structure links are maintained by the tree
// operations in this package; the payload carries kind-specific data.
type Node struct {
	Kind Kind
	Type types.Tag
	Loc  diag.Location
	Data Payload

	parent *Node
	first  *Node
	last   *Node
	prev   *Node
	next   *Node
}

func (n *Node) Parent() *Node      { return n.parent }
func (n *Node) FirstChild() *Node  { return n.first }
func (n *Node) LastChild() *Node   { return n.last }
func (n *Node) NextSibling() *Node { return n.next }
func (n *Node) PrevSibling() *Node { return n.prev }

// Payload is the closed set of per-kind data. Operator kinds carry none.
type Payload interface {
	isPayload()
}

// Var is a use of a name inside an expression.
type Var struct {
	// Name is the current name, after hygienic renaming.
	Name string
	// OriginalName is the name as written.
	OriginalName string
	// Definition is the binding Var or Param this occurrence refers to.
	Definition *Node
	// Binding marks the first bound occurrence inside a conjunct.
	Binding bool
}

// Func is a call: a fact literal, a task invocation or an intrinsic.
type Func struct {
	Name string
	// Decl is the Fact, primitive or Task node the call resolved to.
	Decl *Node
	// Sig is the intrinsic overload picked by type inference.
	Sig *types.Signature
}

// LiteralKind distinguishes literal values.
type LiteralKind uint8

const (
	IntLiteral LiteralKind = iota
	FloatLiteral
)

// Literal is a constant value.
type Literal struct {
	Kind  LiteralKind
	Int   int64
	Float float64
}

// Param is a declared parameter of a fact, primitive, task or macro. The
// declared or inferred type lives on the node.
type Param struct {
	Name string
}

// Fact is a world fact or a primitive task declaration.
type Fact struct {
	Name string
}

// Task is a compound task.
type Task struct {
	Name string
	// Macros maps names of macros declared inside the task.
	Macros map[string]*Node
	// Params maps parameter names to their Param nodes.
	Params map[string]*Node
}

// Case is one guarded decomposition of a task.
type Case struct {
	Precond *Node
	Tasks   *Node

	// unique-by-name variable tables, filled by the annotate pass
	PrecondVars       []*Node
	PrecondVarLookup  map[string]int
	TaskListVars      []*Node
	TaskListVarLookup map[string]int
}

// Macro is a named expression with formal parameters.
type Macro struct {
	Name string
}

// Attribute annotates a fact or a case; its children are arguments.
type Attribute struct {
	Name string
}

// Domain holds the tasks and domain-scope macros.
type Domain struct {
	Name   string
	Macros map[string]*Node
}

// ErrorNode replaces a node that failed a check. Traversals treat it as a
// leaf.
type ErrorNode struct {
	Was Kind
	Err diag.Kind
}

func (*Var) isPayload()       {}
func (*Func) isPayload()      {}
func (*Literal) isPayload()   {}
func (*Param) isPayload()     {}
func (*Fact) isPayload()      {}
func (*Task) isPayload()      {}
func (*Case) isPayload()      {}
func (*Macro) isPayload()     {}
func (*Attribute) isPayload() {}
func (*Domain) isPayload()    {}
func (*ErrorNode) isPayload() {}

// Accessors panic when the node has a different kind; reaching one with the
// wrong kind is a compiler bug.

func (n *Node) Var() *Var             { return n.Data.(*Var) }
func (n *Node) Func() *Func           { return n.Data.(*Func) }
func (n *Node) Literal() *Literal     { return n.Data.(*Literal) }
func (n *Node) Param() *Param         { return n.Data.(*Param) }
func (n *Node) Fact() *Fact           { return n.Data.(*Fact) }
func (n *Node) Task() *Task           { return n.Data.(*Task) }
func (n *Node) Case() *Case           { return n.Data.(*Case) }
func (n *Node) Macro() *Macro         { return n.Data.(*Macro) }
func (n *Node) Attribute() *Attribute { return n.Data.(*Attribute) }
func (n *Node) Domain() *Domain       { return n.Data.(*Domain) }
func (n *Node) ErrorNode() *ErrorNode { return n.Data.(*ErrorNode) }

// Name returns the declared or referenced name of named nodes, "" otherwise.
func (n *Node) Name() string {
	switch d := n.Data.(type) {
	case *Var:
		return d.Name
	case *Func:
		return d.Name
	case *Param:
		return d.Name
	case *Fact:
		return d.Name
	case *Task:
		return d.Name
	case *Macro:
		return d.Name
	case *Attribute:
		return d.Name
	case *Domain:
		return d.Name
	}
	return ""
}
