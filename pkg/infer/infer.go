// Package infer assigns a type to every variable, parameter, literal and
// call of an annotated tree.
//
// Inference runs in phases. The local phase types each case on its own from
// the fact and primitive declarations it uses. The global phase pushes types
// along task calls until nothing changes. Parameters that are still untyped
// are then seeded from the primitives their own task passes them to. A final
// bottom-up pass types every expression and checks every call.
package infer

import (
	"log/slog"

	"github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"

	"github.com/alexshafranov/derplanner-sub000/pkg/arena"
	"github.com/alexshafranov/derplanner-sub000/pkg/ast"
	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
	"github.com/alexshafranov/derplanner-sub000/pkg/funcs"
	"github.com/alexshafranov/derplanner-sub000/pkg/types"
)

type inferrer struct {
	tree    *ast.Tree
	funcs   *funcs.Table
	diags   *diag.Collector
	scratch *arena.Stack[types.Tag]
	// call arguments already reported by propagate
	reported *set.Set[*ast.Node]
}

// Run infers types over t and reports whether no diagnostics were added.
// scratch holds the per-case type slots and is released after every case.
func Run(t *ast.Tree, table *funcs.Table, diags *diag.Collector, scratch *arena.Stack[types.Tag]) bool {
	in := &inferrer{tree: t, funcs: table, diags: diags, scratch: scratch, reported: set.New[*ast.Node](0)}
	before := diags.Len()

	in.eachCase(in.localCase)
	if diags.Len() > before {
		return false
	}

	iterations := in.propagate()
	in.seedFromTaskLists()
	iterations += in.propagate()
	in.reportUntyped()
	slog.Debug("global inference converged", "iterations", iterations)
	if diags.Len() > before {
		return false
	}

	in.finalPass()
	return diags.Len() == before
}

// LiteralType is the type of a literal value: the smallest integer tag that
// holds it, or Float.
func LiteralType(l *ast.Literal) types.Tag {
	if l.Kind == ast.FloatLiteral {
		return types.Float
	}
	switch v := l.Int; {
	case v >= -1<<7 && v < 1<<7:
		return types.Int8
	case v >= -1<<31 && v < 1<<31:
		return types.Int32
	}
	return types.Int64
}

func (in *inferrer) eachCase(fn func(task, c *ast.Node)) {
	dom := in.tree.DomainNode()
	if dom == nil {
		return
	}
	for task := range dom.Children() {
		if task.Kind != ast.KindTask {
			continue
		}
		for c := range task.Children() {
			if c.Kind == ast.KindCase {
				fn(task, c)
			}
		}
	}
}

func isWorldFact(decl *ast.Node) bool {
	return decl != nil && decl.Kind == ast.KindFact && decl.Parent() != nil && decl.Parent().Kind == ast.KindWorld
}

func isPrimitive(decl *ast.Node) bool {
	return decl != nil && decl.Kind == ast.KindFact && decl.Parent() != nil && decl.Parent().Kind == ast.KindPrimitive
}

func params(decl *ast.Node) []*ast.Node {
	return ast.ChildrenOf(decl, ast.KindParam)
}

func (in *inferrer) unifyFailed(at *ast.Node, name string, a, b types.Tag) {
	in.diags.Add(diag.FailedToUnifyType, at.Loc, diag.Name(name), diag.Type(a), diag.Type(b))
}

// unify joins a and b, reporting a failure against at under name.
func (in *inferrer) unify(at *ast.Node, name string, a, b types.Tag) (types.Tag, bool) {
	u, err := types.Check(a, b)
	var uerr types.UnificationError
	if errors.As(err, &uerr) {
		in.unifyFailed(at, name, uerr.Left, uerr.Right)
		return u, false
	}
	return u, true
}

// slots maps variable names of one case to their type slots on the scratch
// stack.
type slots struct {
	stack  *arena.Stack[types.Tag]
	base   int
	lookup map[string]int
}

func (s slots) at(name string) *types.Tag {
	i, ok := s.lookup[name]
	if !ok {
		return nil
	}
	return s.stack.At(s.base + i)
}

func (s slots) varType(v *ast.Node) types.Tag {
	if p := s.at(v.Var().Name); p != nil {
		return *p
	}
	return types.Any
}

func (in *inferrer) localCase(task, c *ast.Node) {
	defer in.scratch.Scope()()

	cs := c.Case()
	pre := slots{stack: in.scratch, base: in.scratch.Len(), lookup: cs.PrecondVarLookup}
	for range cs.PrecondVars {
		in.scratch.Push(types.Any)
	}
	post := slots{stack: in.scratch, base: in.scratch.Len(), lookup: cs.TaskListVarLookup}
	for range cs.TaskListVars {
		in.scratch.Push(types.Any)
	}

	unifyArgs := func(call, decl *ast.Node, s slots) bool {
		ps := params(decl)
		i := 0
		for arg := range call.Children() {
			if i >= len(ps) {
				break
			}
			want := ps[i].Type
			i++
			if arg.Kind != ast.KindVar {
				continue
			}
			slot := s.at(arg.Var().Name)
			if slot == nil {
				continue
			}
			u, ok := in.unify(arg, arg.Var().Name, *slot, want)
			if !ok {
				return false
			}
			*slot = u
		}
		return true
	}

	ok := true
	if cs.Precond != nil {
		ast.Walk(cs.Precond, func(n *ast.Node) bool {
			if ok && n.Kind == ast.KindFunc && isWorldFact(n.Func().Decl) {
				ok = unifyArgs(n, n.Func().Decl, pre)
			}
			return ok
		})
		if !ok {
			return
		}

		// an assignment may read a variable assigned after it, so repeat
		// until no slot moves
		for changed := true; changed && ok; {
			changed = false
			ast.Walk(cs.Precond, func(n *ast.Node) bool {
				if !ok || n.Kind != ast.KindAssign {
					return ok
				}
				lhs := n.FirstChild()
				slot := pre.at(lhs.Var().Name)
				rt := in.exprType(n.LastChild(), pre.varType, false)
				if slot == nil || rt == types.Any {
					return false
				}
				u, uok := in.unify(lhs, lhs.Var().Name, *slot, rt)
				if !uok {
					ok = false
					return false
				}
				if u != *slot {
					*slot = u
					changed = true
				}
				return false
			})
		}
		if !ok {
			return
		}
	}

	if cs.Tasks != nil {
		for call := range cs.Tasks.Children() {
			if call.Kind == ast.KindFunc && isPrimitive(call.Func().Decl) {
				if !unifyArgs(call, call.Func().Decl, post) {
					return
				}
			}
		}
	}

	// variables shared by the precondition and the task list
	for i, v := range cs.TaskListVars {
		name := v.Var().Name
		p := pre.at(name)
		if p == nil {
			continue
		}
		q := post.stack.At(post.base + i)
		u, ok := in.unify(v, name, *p, *q)
		if !ok {
			return
		}
		*p, *q = u, u
	}

	for _, param := range params(task) {
		name := param.Param().Name
		p := pre.at(name)
		if p == nil || *p == types.Any {
			continue
		}
		u, ok := in.unify(param, name, param.Type, *p)
		if !ok {
			return
		}
		param.Type = u
	}

	if cs.Precond != nil {
		ast.Walk(cs.Precond, func(n *ast.Node) bool {
			if n.Kind != ast.KindVar {
				return true
			}
			n.Type = pre.varType(n)
			if n.Var().Binding && n.Type == types.Any {
				in.diags.Add(diag.UnboundVar, n.Loc, diag.Name(n.Var().Name))
			}
			return false
		})
	}
	if cs.Tasks != nil {
		ast.Walk(cs.Tasks, func(n *ast.Node) bool {
			if n.Kind == ast.KindVar {
				n.Type = post.varType(n)
				return false
			}
			return true
		})
	}
}

// resolvedVar reads a variable's type through its definition.
func resolvedVar(v *ast.Node) types.Tag {
	if def := v.Var().Definition; def != nil {
		return def.Type
	}
	return v.Type
}

// propagate unifies callee parameter types with the arguments of every task
// call until a sweep changes nothing. Types only move up the lattice, so the
// loop ends. A failing argument is reported once however many sweeps
// revisit it. It returns the number of sweeps.
func (in *inferrer) propagate() int {
	sweeps := 0
	for changed := true; changed; {
		changed = false
		sweeps++
		in.eachCase(func(_, c *ast.Node) {
			tasks := c.Case().Tasks
			if tasks == nil {
				return
			}
			for call := range tasks.Children() {
				if call.Kind != ast.KindFunc {
					continue
				}
				decl := call.Func().Decl
				if decl == nil || decl.Kind != ast.KindTask {
					continue
				}
				ps := params(decl)
				i := 0
				for arg := range call.Children() {
					if i >= len(ps) {
						break
					}
					p := ps[i]
					i++

					if in.reported.Contains(arg) {
						continue
					}
					at := in.exprType(arg, resolvedVar, false)
					u, ok := in.unify(arg, p.Param().Name, p.Type, at)
					if !ok {
						in.reported.Insert(arg)
						continue
					}
					if u != p.Type {
						p.Type = u
						changed = true
					}
					if arg.Kind != ast.KindVar {
						continue
					}
					// an untyped caller parameter takes the callee's type
					if def := arg.Var().Definition; def != nil && def.Kind == ast.KindParam && def.Type == types.Any && p.Type != types.Any {
						def.Type = p.Type
						changed = true
					}
				}
			}
		})
	}
	return sweeps
}

// seedFromTaskLists types still untyped parameters from the first concrete
// use in their own task's task lists.
func (in *inferrer) seedFromTaskLists() {
	in.eachCase(func(task, c *ast.Node) {
		tasks := c.Case().Tasks
		if tasks == nil {
			return
		}
		ast.Walk(tasks, func(n *ast.Node) bool {
			if n.Kind != ast.KindVar {
				return true
			}
			def := n.Var().Definition
			if def != nil && def.Kind == ast.KindParam && def.Parent() == task &&
				def.Type == types.Any && n.Type.IsConcrete() {
				def.Type = n.Type
			}
			return false
		})
	})
}

func (in *inferrer) reportUntyped() {
	dom := in.tree.DomainNode()
	if dom == nil {
		return
	}
	for task := range dom.Children() {
		if task.Kind != ast.KindTask {
			continue
		}
		for _, p := range params(task) {
			if p.Type == types.Any {
				in.diags.Add(diag.FailedToInferType, p.Loc, diag.Name(p.Param().Name))
			}
		}
	}
}

func (in *inferrer) finalPass() {
	if world := in.tree.World(); world != nil {
		for fact := range world.Children() {
			for _, attr := range ast.ChildrenOf(fact, ast.KindAttribute) {
				for arg := range attr.Children() {
					in.exprType(arg, resolvedVar, true)
				}
			}
		}
	}

	in.eachCase(func(_, c *ast.Node) {
		cs := c.Case()
		// cases already carrying an Error node were reported by an earlier pass
		if ast.HasError(c) {
			return
		}
		for attr := range c.Children() {
			if attr.Kind != ast.KindAttribute {
				continue
			}
			for arg := range attr.Children() {
				in.exprType(arg, resolvedVar, true)
			}
		}
		if cs.Precond != nil {
			in.exprType(cs.Precond, resolvedVar, true)
		}
		if cs.Tasks != nil {
			for call := range cs.Tasks.Children() {
				in.exprType(call, resolvedVar, true)
			}
		}
	})
}

// exprType computes the type of n bottom-up. In the final pass it also
// stores the types on the nodes and reports ill-typed expressions; earlier
// phases only peek.
func (in *inferrer) exprType(n *ast.Node, vars func(*ast.Node) types.Tag, final bool) types.Tag {
	t := in.computeType(n, vars, final)
	if final {
		n.Type = t
	}
	return t
}

func (in *inferrer) computeType(n *ast.Node, vars func(*ast.Node) types.Tag, final bool) types.Tag {
	switch k := n.Kind; {
	case k == ast.KindError:
		return types.NotAType

	case k == ast.KindVar:
		return vars(n)

	case k == ast.KindLiteral:
		return LiteralType(n.Literal())

	case k == ast.KindFunc:
		return in.callType(n, vars, final)

	case k == ast.KindAssign:
		lhs, rhs := n.FirstChild(), n.LastChild()
		rt := in.exprType(rhs, vars, final)
		lt := in.exprType(lhs, vars, final)
		if final && rt != types.NotAType {
			in.unify(lhs, lhs.Name(), lt, rt)
		}
		return types.Int8

	case k.IsLogical():
		for c := range n.Children() {
			ct := in.exprType(c, vars, final)
			if final && ct != types.NotAType && !ct.IsNumeric() {
				in.diags.Add(diag.ExpectedArgumentType, c.Loc, diag.Name(k.String()), diag.Type(types.Int8), diag.Type(ct))
			}
		}
		return types.Int8

	case k.IsComparison():
		a := in.exprType(n.FirstChild(), vars, final)
		b := in.exprType(n.LastChild(), vars, final)
		if a == types.NotAType || b == types.NotAType {
			return types.Int8
		}
		u := types.Unify(a, b)
		ok := u != types.NotAType && (k == ast.KindEq || k == ast.KindNe || u.IsNumeric() || u == types.Any)
		if final && !ok {
			in.unifyFailed(n, k.String(), a, b)
		}
		return types.Int8

	case k.IsArithmetic():
		u := types.Any
		var first, last types.Tag
		poisoned := false
		i := 0
		for c := range n.Children() {
			ct := in.exprType(c, vars, final)
			if ct == types.NotAType {
				poisoned = true
			}
			if i == 0 {
				first = ct
			}
			last = ct
			u = types.Unify(u, ct)
			i++
		}
		if poisoned {
			return types.NotAType
		}
		vector := u == types.Vec3 && (k == ast.KindAdd || k == ast.KindSub || k == ast.KindNeg)
		if u.IsNumeric() || u == types.Any || vector {
			return u
		}
		if final {
			in.unifyFailed(n, k.String(), first, last)
		}
		return types.NotAType
	}
	return types.Any
}

func (in *inferrer) callType(n *ast.Node, vars func(*ast.Node) types.Tag, final bool) types.Tag {
	f := n.Func()
	args := make([]types.Tag, 0, 4)
	for c := range n.Children() {
		args = append(args, in.exprType(c, vars, final))
	}

	if f.Decl != nil {
		if final {
			in.checkArgs(n, f.Decl, args)
		}
		if isWorldFact(f.Decl) {
			return types.Int8
		}
		return types.Any
	}

	sig, err := in.funcs.Resolve(f.Name, args)
	if err != nil {
		if !final {
			return types.Any
		}
		in.reportCall(n, args, err)
		return types.NotAType
	}
	if final {
		f.Sig = sig
	}
	return sig.Return
}

func (in *inferrer) checkArgs(call, decl *ast.Node, args []types.Tag) {
	ps := params(decl)
	i := 0
	for arg := range call.Children() {
		if i >= len(ps) || i >= len(args) {
			return
		}
		want, got := ps[i].Type, args[i]
		i++
		if got == types.NotAType || want == types.Any {
			continue
		}
		if types.Unify(got, want) == types.NotAType {
			in.diags.Add(diag.ExpectedArgumentType, arg.Loc, diag.Name(decl.Name()), diag.Type(want), diag.Type(got))
		}
	}
}

// reportCall explains a failed intrinsic resolution. With a single overload
// of the right arity the offending arguments are pointed out, otherwise the
// call as a whole is reported.
func (in *inferrer) reportCall(n *ast.Node, args []types.Tag, err error) {
	for _, a := range args {
		if a == types.NotAType {
			return
		}
	}
	name := n.Func().Name

	var candidates []*types.Signature
	if !errors.Is(err, funcs.ErrUnknownFunction) {
		for _, sig := range in.funcs.Overloads(name) {
			if sig.Arity() == len(args) {
				candidates = append(candidates, sig)
			}
		}
	}
	if len(candidates) != 1 {
		in.diags.Add(diag.FailedToResolveCall, n.Loc, diag.Name(name))
		return
	}

	sig := candidates[0]
	i := 0
	for arg := range n.Children() {
		want, got := sig.Params[i], args[i]
		i++
		if types.WideningCost(got, want) == types.NoConversion {
			in.diags.Add(diag.ExpectedArgumentType, arg.Loc, diag.Name(name), diag.Type(want), diag.Type(got))
		}
	}
}
