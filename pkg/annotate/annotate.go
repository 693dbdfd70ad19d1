// Package annotate links a normalized tree: it builds the declaration
// lookups, resolves every variable to its binding occurrence or parameter
// and fills the per-case variable tables.
//
// Within one conjunct of a precondition the binding occurrence of a name is
// its first appearance as a direct argument of a positive fact literal, or
// as the left side of an assignment. Task parameters are never bound. A
// variable used by the task list must be bound in every conjunct.
package annotate

import (
	"log/slog"

	"github.com/alexshafranov/derplanner-sub000/pkg/arena"
	"github.com/alexshafranov/derplanner-sub000/pkg/ast"
	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
)

type pass struct {
	tree    *ast.Tree
	diags   *diag.Collector
	scratch *arena.Stack[*ast.Node]

	facts map[string]*ast.Node
	prims map[string]*ast.Node
	tasks map[string]*ast.Node
}

// Run annotates t in place and reports whether no diagnostics were added.
// Preconditions must already be in disjunctive normal form.
func Run(t *ast.Tree, diags *diag.Collector, scratch *arena.Stack[*ast.Node]) bool {
	before := diags.Len()
	p := &pass{
		tree:    t,
		diags:   diags,
		scratch: scratch,
		facts:   map[string]*ast.Node{},
		prims:   map[string]*ast.Node{},
		tasks:   map[string]*ast.Node{},
	}
	p.buildLookups()
	t.SetLookups(p.facts, p.prims, p.tasks)

	if dom := t.DomainNode(); dom != nil {
		for task := range dom.Children() {
			if task.Kind != ast.KindTask {
				continue
			}
			for c := range task.Children() {
				if c.Kind == ast.KindCase {
					p.annotateCase(task, c)
				}
			}
		}
	}

	slog.Debug("annotated tree",
		"facts", len(p.facts),
		"primitives", len(p.prims),
		"tasks", len(p.tasks),
		"diagnostics", diags.Len()-before)
	return diags.Len() == before
}

func (p *pass) redefinition(n *ast.Node, name, group string) {
	p.diags.Add(diag.Redefinition, n.Loc, diag.Name(name), diag.Group(group))
}

func (p *pass) buildLookups() {
	declare := func(table map[string]*ast.Node, n *ast.Node, group string) {
		name := n.Name()
		if _, dup := table[name]; dup {
			p.redefinition(n, name, group)
			return
		}
		table[name] = n
	}

	if world := p.tree.World(); world != nil {
		for f := range world.Children() {
			declare(p.facts, f, "fact")
			p.checkAttributes(f)
		}
	}
	if prims := p.tree.Primitives(); prims != nil {
		for f := range prims.Children() {
			declare(p.prims, f, "primitive")
		}
	}

	dom := p.tree.DomainNode()
	if dom == nil {
		return
	}
	for n := range dom.Children() {
		switch n.Kind {
		case ast.KindTask:
			declare(p.tasks, n, "task")
			p.buildParams(n)
			for c := range n.Children() {
				switch c.Kind {
				case ast.KindCase:
					p.checkAttributes(c)
				case ast.KindMacro:
					p.checkParams(c)
				}
			}
		case ast.KindMacro:
			p.checkParams(n)
		}
	}
}

func (p *pass) buildParams(task *ast.Node) {
	params := map[string]*ast.Node{}
	for _, param := range ast.ChildrenOf(task, ast.KindParam) {
		name := param.Param().Name
		if _, dup := params[name]; dup {
			p.redefinition(param, name, "param")
			continue
		}
		params[name] = param
	}
	task.Task().Params = params
}

func (p *pass) checkParams(macro *ast.Node) {
	seen := map[string]bool{}
	for _, param := range ast.ChildrenOf(macro, ast.KindParam) {
		name := param.Param().Name
		if seen[name] {
			p.redefinition(param, name, "param")
		}
		seen[name] = true
	}
}

func (p *pass) checkAttributes(n *ast.Node) {
	seen := map[string]bool{}
	for _, attr := range ast.ChildrenOf(n, ast.KindAttribute) {
		name := attr.Attribute().Name
		if seen[name] {
			p.diags.Add(diag.OnlySingleAttrAllowed, attr.Loc, diag.Name(name))
			continue
		}
		seen[name] = true

		if n.Kind == ast.KindFact && name == "size" {
			for arg := range attr.Children() {
				if !IsConst(arg) {
					p.diags.Add(diag.OnlyConstExprAllowed, arg.Loc, diag.Name(name))
				}
			}
		}
	}
}

// IsConst reports whether n is built from literal values and arithmetic
// only.
func IsConst(n *ast.Node) bool {
	switch {
	case n.Kind == ast.KindLiteral:
		return true
	case n.Kind.IsArithmetic():
		for c := range n.Children() {
			if !IsConst(c) {
				return false
			}
		}
		return n.FirstChild() != nil
	}
	return false
}

func (p *pass) checkArity(call, decl *ast.Node, group string) {
	if call.ChildCount() != len(ast.ChildrenOf(decl, ast.KindParam)) {
		p.diags.Add(diag.MismatchingNumberOfArgs, call.Loc, diag.Name(decl.Name()), diag.Group(group))
	}
}

// conjunct is the slice of the scratch stack holding one clause's binding
// occurrences.
type conjunct struct {
	start, end int
}

func (p *pass) bindingIn(c conjunct, name string) *ast.Node {
	for i := c.start; i < c.end; i++ {
		if v := *p.scratch.At(i); v.Var().Name == name {
			return v
		}
	}
	return nil
}

func (p *pass) annotateCase(task, c *ast.Node) {
	defer p.scratch.Scope()()

	cs := c.Case()
	params := task.Task().Params

	var clauses []conjunct
	if cs.Precond != nil {
		for clause := range cs.Precond.Children() {
			clauses = append(clauses, p.annotateConjunct(clause, params))
		}
	}

	cs.PrecondVars, cs.PrecondVarLookup = varTable(cs.Precond)

	for attr := range c.Children() {
		if attr.Kind == ast.KindAttribute {
			p.resolveOutside(attr, params, clauses)
		}
	}

	if cs.Tasks != nil {
		for call := range cs.Tasks.Children() {
			p.resolveTaskCall(call)
		}
		p.resolveOutside(cs.Tasks, params, clauses)
	}
	cs.TaskListVars, cs.TaskListVarLookup = varTable(cs.Tasks)
}

// annotateConjunct links the variables of one And clause and leaves its
// binding occurrences on the scratch stack.
func (p *pass) annotateConjunct(clause *ast.Node, params map[string]*ast.Node) conjunct {
	c := conjunct{start: p.scratch.Len()}

	bind := func(v *ast.Node) {
		v.Var().Binding = true
		v.Var().Definition = nil
		p.scratch.Push(v)
	}

	// binding occurrences first, in clause order
	for lit := range clause.Children() {
		switch lit.Kind {
		case ast.KindFunc:
			fact, ok := p.facts[lit.Func().Name]
			if !ok {
				continue
			}
			lit.Func().Decl = fact
			p.checkArity(lit, fact, "fact")
			for arg := range lit.Children() {
				if arg.Kind != ast.KindVar {
					continue
				}
				name := arg.Var().Name
				if params[name] != nil || p.bindingIn(conjunct{c.start, p.scratch.Len()}, name) != nil {
					continue
				}
				bind(arg)
			}
		case ast.KindAssign:
			lhs := lit.FirstChild()
			if lhs == nil || lhs.Kind != ast.KindVar {
				continue
			}
			name := lhs.Var().Name
			if params[name] != nil || p.bindingIn(conjunct{c.start, p.scratch.Len()}, name) != nil {
				p.diags.Add(diag.AlreadyBound, lhs.Loc, diag.Name(name))
				ast.ReplaceWithError(lhs, diag.AlreadyBound)
				continue
			}
			bind(lhs)
		case ast.KindNot:
			if f := lit.FirstChild(); f != nil && f.Kind == ast.KindFunc {
				if fact, ok := p.facts[f.Func().Name]; ok {
					f.Func().Decl = fact
					p.checkArity(f, fact, "fact")
				}
			}
		}
	}
	c.end = p.scratch.Len()

	// then every other occurrence
	ast.Walk(clause, func(n *ast.Node) bool {
		if n.Kind != ast.KindVar {
			return true
		}
		v := n.Var()
		if v.Binding {
			return false
		}
		if param := params[v.Name]; param != nil {
			v.Definition = param
			return false
		}
		if b := p.bindingIn(c, v.Name); b != nil {
			v.Definition = b
			return false
		}
		p.diags.Add(diag.UnboundVar, n.Loc, diag.Name(v.Name))
		return false
	})
	return c
}

// resolveOutside links variables of the task list or an attribute, which
// must be bound in every conjunct. They refer to the binding of the first.
func (p *pass) resolveOutside(n *ast.Node, params map[string]*ast.Node, clauses []conjunct) {
	ast.Walk(n, func(n *ast.Node) bool {
		if n.Kind != ast.KindVar {
			return true
		}
		v := n.Var()
		if param := params[v.Name]; param != nil {
			v.Definition = param
			return false
		}

		var first *ast.Node
		bound := 0
		for _, c := range clauses {
			if b := p.bindingIn(c, v.Name); b != nil {
				if first == nil {
					first = b
				}
				bound++
			}
		}
		switch {
		case bound == 0:
			p.diags.Add(diag.UnboundVar, n.Loc, diag.Name(v.Name))
		case bound < len(clauses):
			p.diags.Add(diag.NotBoundInAllConjuncts, n.Loc, diag.Name(v.Name))
		}
		v.Definition = first
		return false
	})
}

func (p *pass) resolveTaskCall(call *ast.Node) {
	if call.Kind != ast.KindFunc {
		return
	}
	f := call.Func()
	if task, ok := p.tasks[f.Name]; ok {
		f.Decl = task
		p.checkArity(call, task, "task")
		return
	}
	if prim, ok := p.prims[f.Name]; ok {
		f.Decl = prim
		p.checkArity(call, prim, "primitive")
		return
	}
	p.diags.Add(diag.UndeclaredTask, call.Loc, diag.Name(f.Name))
}

// varTable lists the first Var of every distinct name under n in pre-order.
func varTable(n *ast.Node) ([]*ast.Node, map[string]int) {
	lookup := map[string]int{}
	var vars []*ast.Node
	if n == nil {
		return vars, lookup
	}
	for v := range ast.Preorder(n) {
		if v.Kind != ast.KindVar {
			continue
		}
		name := v.Var().Name
		if _, seen := lookup[name]; seen {
			continue
		}
		lookup[name] = len(vars)
		vars = append(vars, v)
	}
	return vars, lookup
}
