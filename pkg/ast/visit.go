package ast

// Visitor receives a node together with its typed payload. Code generators
// implement it to pattern-match on node kinds without switching on Kind
// values themselves.
type Visitor interface {
	VisitRoot(n *Node)
	VisitBlock(n *Node)
	VisitFact(n *Node, f *Fact)
	VisitParam(n *Node, p *Param)
	VisitDomain(n *Node, d *Domain)
	VisitTask(n *Node, t *Task)
	VisitCase(n *Node, c *Case)
	VisitAttribute(n *Node, a *Attribute)
	VisitMacro(n *Node, m *Macro)
	VisitTaskList(n *Node)
	VisitVar(n *Node, v *Var)
	VisitLiteral(n *Node, l *Literal)
	VisitFunc(n *Node, f *Func)
	VisitOp(n *Node)
	VisitError(n *Node, e *ErrorNode)
}

// BaseVisitor implements every Visitor method as a no-op; embed it and
// override what you need.
type BaseVisitor struct{}

func (BaseVisitor) VisitRoot(*Node)                  {}
func (BaseVisitor) VisitBlock(*Node)                 {}
func (BaseVisitor) VisitFact(*Node, *Fact)           {}
func (BaseVisitor) VisitParam(*Node, *Param)         {}
func (BaseVisitor) VisitDomain(*Node, *Domain)       {}
func (BaseVisitor) VisitTask(*Node, *Task)           {}
func (BaseVisitor) VisitCase(*Node, *Case)           {}
func (BaseVisitor) VisitAttribute(*Node, *Attribute) {}
func (BaseVisitor) VisitMacro(*Node, *Macro)         {}
func (BaseVisitor) VisitTaskList(*Node)              {}
func (BaseVisitor) VisitVar(*Node, *Var)             {}
func (BaseVisitor) VisitLiteral(*Node, *Literal)     {}
func (BaseVisitor) VisitFunc(*Node, *Func)           {}
func (BaseVisitor) VisitOp(*Node)                    {}
func (BaseVisitor) VisitError(*Node, *ErrorNode)     {}

// Dispatch calls the Visitor method matching n.
func Dispatch(n *Node, v Visitor) {
	switch d := n.Data.(type) {
	case *Var:
		v.VisitVar(n, d)
	case *Func:
		v.VisitFunc(n, d)
	case *Literal:
		v.VisitLiteral(n, d)
	case *Param:
		v.VisitParam(n, d)
	case *Fact:
		v.VisitFact(n, d)
	case *Task:
		v.VisitTask(n, d)
	case *Case:
		v.VisitCase(n, d)
	case *Macro:
		v.VisitMacro(n, d)
	case *Attribute:
		v.VisitAttribute(n, d)
	case *Domain:
		v.VisitDomain(n, d)
	case *ErrorNode:
		v.VisitError(n, d)
	case nil:
		switch n.Kind {
		case KindRoot:
			v.VisitRoot(n)
		case KindWorld, KindPrimitive:
			v.VisitBlock(n)
		case KindTaskList:
			v.VisitTaskList(n)
		default:
			v.VisitOp(n)
		}
	}
}
