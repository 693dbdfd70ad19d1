// Package inline expands macro invocations in task cases.
//
// Macros resolve lexically: a call inside a task sees the task's macros
// first, then the domain's; a macro body sees the scope it was declared in.
// Locals of a macro body are renamed at every expansion so two expansions
// never share a variable.
package inline

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-set/v3"

	"github.com/alexshafranov/derplanner-sub000/pkg/arena"
	"github.com/alexshafranov/derplanner-sub000/pkg/ast"
	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
)

// Inliner holds the state of one inlining pass.
type Inliner struct {
	tree    *ast.Tree
	diags   *diag.Collector
	scratch *arena.Stack[*ast.Node]

	domain *ast.Node
	// fact and primitive names are never treated as macro calls
	reserved *set.Set[string]
	// every identifier of the domain, so fresh names never collide
	names   *set.Set[string]
	counter int

	recursive  map[*ast.Node]bool
	pending    []diag.Diagnostic
	expansions int
}

// New prepares an inliner over t. scratch backs the cycle check and is
// returned to its current mark after each macro.
func New(t *ast.Tree, diags *diag.Collector, scratch *arena.Stack[*ast.Node]) *Inliner {
	return &Inliner{
		tree:      t,
		diags:     diags,
		scratch:   scratch,
		domain:    t.DomainNode(),
		reserved:  set.New[string](16),
		names:     set.New[string](64),
		recursive: map[*ast.Node]bool{},
	}
}

// Run expands every macro call in case preconditions, task lists and case
// attributes. It reports whether no diagnostics were added.
func Run(t *ast.Tree, diags *diag.Collector, scratch *arena.Stack[*ast.Node]) bool {
	return New(t, diags, scratch).Run()
}

// Run performs the pass.
func (in *Inliner) Run() bool {
	before := in.diags.Len()
	if in.domain == nil {
		return true
	}

	in.buildTables()
	in.collectNames()
	in.checkCycles()

	for task := range in.domain.Children() {
		if task.Kind != ast.KindTask {
			continue
		}
		for c := range task.Children() {
			if c.Kind != ast.KindCase {
				continue
			}
			in.inlineCase(c, task)
		}
	}

	in.diags.Append(in.pending...)
	slog.Debug("inlined macros", "expansions", in.expansions, "diagnostics", in.diags.Len()-before)
	return in.diags.Len() == before
}

// buildTables fills the domain and task macro maps. Duplicates are kept
// pending until the pass ends.
func (in *Inliner) buildTables() {
	for _, block := range []*ast.Node{in.tree.World(), in.tree.Primitives()} {
		if block == nil {
			continue
		}
		for f := range block.Children() {
			if f.Kind == ast.KindFact {
				in.reserved.Insert(f.Fact().Name)
			}
		}
	}

	dom := in.domain.Domain()
	dom.Macros = map[string]*ast.Node{}
	for c := range in.domain.Children() {
		switch c.Kind {
		case ast.KindMacro:
			in.declare(dom.Macros, c)
		case ast.KindTask:
			task := c.Task()
			task.Macros = map[string]*ast.Node{}
			for m := range c.Children() {
				if m.Kind == ast.KindMacro {
					in.declare(task.Macros, m)
				}
			}
		}
	}
}

func (in *Inliner) declare(table map[string]*ast.Node, m *ast.Node) {
	name := m.Macro().Name
	if _, dup := table[name]; dup {
		in.pending = append(in.pending, diag.New(diag.Redefinition, m.Loc, diag.Name(name), diag.Group("macro")))
		return
	}
	table[name] = m
}

func (in *Inliner) collectNames() {
	for n := range ast.Preorder(in.tree.Root) {
		if name := n.Name(); name != "" {
			in.names.Insert(name)
		}
	}
}

// scopeOf returns the task a macro was declared in, or nil for domain scope.
func scopeOf(m *ast.Node) *ast.Node {
	if p := m.Parent(); p != nil && p.Kind == ast.KindTask {
		return p
	}
	return nil
}

// lookup resolves name as a macro visible from scope.
func (in *Inliner) lookup(name string, scope *ast.Node) *ast.Node {
	if in.reserved.Contains(name) {
		return nil
	}
	if scope != nil {
		if m, ok := scope.Task().Macros[name]; ok {
			return m
		}
	}
	return in.domain.Domain().Macros[name]
}

// macroRef returns the macro n refers to, if any. A Var only refers to a
// macro without parameters.
func (in *Inliner) macroRef(n *ast.Node, scope *ast.Node) *ast.Node {
	switch n.Kind {
	case ast.KindFunc:
		return in.lookup(n.Func().Name, scope)
	case ast.KindVar:
		m := in.lookup(n.Var().Name, scope)
		if m != nil && len(formals(m)) == 0 {
			return m
		}
	}
	return nil
}

func formals(m *ast.Node) []*ast.Node {
	return ast.ChildrenOf(m, ast.KindParam)
}

func body(m *ast.Node) *ast.Node {
	b := m.LastChild()
	if b == nil || b.Kind == ast.KindParam {
		return nil
	}
	return b
}

func (in *Inliner) checkCycles() {
	var macros []*ast.Node
	for c := range in.domain.Children() {
		switch c.Kind {
		case ast.KindMacro:
			macros = append(macros, c)
		case ast.KindTask:
			macros = append(macros, ast.ChildrenOf(c, ast.KindMacro)...)
		}
	}
	for _, m := range macros {
		if in.reaches(m) {
			in.recursive[m] = true
			in.diags.Add(diag.RecursiveMacro, m.Loc, diag.Name(m.Macro().Name))
		}
	}
}

// reaches reports whether root can expand back into itself. The current
// expansion path lives on the scratch stack; a macro already on the path is
// not entered again, so cycles that do not pass through root end the walk
// without a report.
func (in *Inliner) reaches(root *ast.Node) bool {
	defer in.scratch.Scope()()
	base := in.scratch.Mark()

	var visit func(m *ast.Node) bool
	visit = func(m *ast.Node) bool {
		in.scratch.Push(m)
		defer in.scratch.Pop()

		b := body(m)
		if b == nil {
			return false
		}
		scope := scopeOf(m)
		found := false
		ast.Walk(b, func(n *ast.Node) bool {
			if found {
				return false
			}
			callee := in.macroRef(n, scope)
			if callee == nil {
				return true
			}
			if callee == root {
				found = true
				return false
			}
			onPath := in.scratch.IndexFunc(base, func(p *ast.Node) bool { return p == callee }) >= 0
			if !onPath && visit(callee) {
				found = true
			}
			return !found
		})
		return found
	}
	return visit(root)
}

func (in *Inliner) inlineCase(c *ast.Node, task *ast.Node) {
	cs := c.Case()
	for n := range c.Children() {
		switch {
		case n.Kind == ast.KindAttribute:
			for arg := range n.Children() {
				in.inlineTree(arg, task)
			}
		case n == cs.Tasks:
			for call := range n.Children() {
				in.inlineTree(call, task)
			}
		case n == cs.Precond:
			cs.Precond = in.inlineTree(n, task)
		}
	}
}

// inlineTree expands calls in n's subtree bottom-up and returns the node now
// standing where n was.
func (in *Inliner) inlineTree(n *ast.Node, scope *ast.Node) *ast.Node {
	if n.Kind == ast.KindError {
		return n
	}
	for c := range n.Children() {
		in.inlineTree(c, scope)
	}

	m := in.macroRef(n, scope)
	if m == nil {
		return n
	}
	if in.recursive[m] {
		ast.ReplaceWithError(n, diag.RecursiveMacro)
		return n
	}
	if n.Kind == ast.KindFunc && n.ChildCount() != len(formals(m)) {
		in.diags.Add(diag.MismatchingNumberOfArgs, n.Loc, diag.Name(m.Macro().Name), diag.Group("macro"))
		ast.ReplaceWithError(n, diag.MismatchingNumberOfArgs)
		return n
	}
	if body(m) == nil {
		return n
	}
	return in.expand(n, m)
}

// expand replaces call with an instance of m's body.
func (in *Inliner) expand(call, m *ast.Node) *ast.Node {
	in.expansions++
	params := formals(m)
	scope := scopeOf(m)

	clone := in.tree.Clone(body(m))
	in.renameLocals(clone, params, scope)
	clone = in.inlineTree(clone, scope)

	var args []*ast.Node
	if call.Kind == ast.KindFunc {
		for a := range call.Children() {
			args = append(args, a)
		}
	}
	clone = in.substitute(clone, params, args)

	slog.Debug("expanded macro", "macro", m.Macro().Name, "at", call.Loc.String())
	return ast.Replace(call, clone)
}

// renameLocals gives every variable of the fresh body clone that is not a
// formal parameter, a parameter of the enclosing task or a macro reference
// a new name. Uses of one local share the new name.
func (in *Inliner) renameLocals(clone *ast.Node, params []*ast.Node, scope *ast.Node) {
	referencing := set.New[string](len(params))
	for _, p := range params {
		referencing.Insert(p.Param().Name)
	}
	if scope != nil {
		for _, p := range ast.ChildrenOf(scope, ast.KindParam) {
			referencing.Insert(p.Param().Name)
		}
	}

	renamed := map[string]string{}
	ast.Walk(clone, func(n *ast.Node) bool {
		if n.Kind != ast.KindVar {
			return true
		}
		v := n.Var()
		if referencing.Contains(v.Name) {
			return true
		}
		if in.macroRef(n, scope) != nil {
			referencing.Insert(v.Name)
			return true
		}
		fresh, ok := renamed[v.Name]
		if !ok {
			fresh = in.fresh(v.Name)
			renamed[v.Name] = fresh
		}
		v.Name = fresh
		return true
	})
}

func (in *Inliner) fresh(base string) string {
	for {
		in.counter++
		name := fmt.Sprintf("%s_%d", base, in.counter)
		if in.names.Insert(name) {
			return name
		}
	}
}

// substitute replaces each formal parameter variable in root with a copy of
// the matching argument expression.
func (in *Inliner) substitute(root *ast.Node, params, args []*ast.Node) *ast.Node {
	if len(params) == 0 {
		return root
	}
	index := make(map[string]int, len(params))
	for i, p := range params {
		if _, seen := index[p.Param().Name]; !seen {
			index[p.Param().Name] = i
		}
	}

	var uses []*ast.Node
	ast.Walk(root, func(n *ast.Node) bool {
		if n.Kind == ast.KindVar {
			if _, ok := index[n.Var().Name]; ok {
				uses = append(uses, n)
			}
		}
		return true
	})

	for _, v := range uses {
		i := index[v.Var().Name]
		if i >= len(args) {
			continue
		}
		repl := in.tree.Clone(args[i])
		ast.Replace(v, repl)
		if v == root {
			root = repl
		}
	}
	return root
}
