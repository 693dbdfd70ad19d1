// Package normalize rewrites boolean expression trees into negation normal
// form and disjunctive normal form.
package normalize

import (
	"github.com/pkg/errors"

	"github.com/alexshafranov/derplanner-sub000/pkg/ast"
)

// ErrTooManyClauses is returned by ConvertToDNF when distribution would
// produce more clauses than allowed.
var ErrTooManyClauses = errors.New("too many clauses")

// ConvertToNNF pushes negations down to literals using double negation
// elimination and De Morgan's laws. It returns the root of the rewritten
// expression, which differs from root when root itself was rewritten.
func ConvertToNNF(t *ast.Tree, root *ast.Node) *ast.Node {
	n := root
	for n != nil {
		if repl := rewriteNot(t, n); repl != nil {
			if n == root {
				root = repl
			}
			// the replacement may itself be rewritable
			n = repl
			continue
		}
		n = ast.PreorderNext(root, n)
	}
	return root
}

// rewriteNot applies one NNF step at n and returns the node now standing in
// n's place, or nil when n is left alone.
func rewriteNot(t *ast.Tree, n *ast.Node) *ast.Node {
	if n.Kind != ast.KindNot {
		return nil
	}
	child := n.FirstChild()
	if child == nil || !child.Kind.IsLogical() {
		return nil
	}

	switch child.Kind {
	case ast.KindNot:
		// not(not(e)) -> e
		e := child.FirstChild()
		ast.Unparent(e)
		return ast.Replace(n, e)

	default:
		// not(and(a, b)) -> or(not(a), not(b)) and the dual
		dual := ast.KindOr
		if child.Kind == ast.KindOr {
			dual = ast.KindAnd
		}
		out := t.NewOp(dual, child.Loc)
		for c := range child.Children() {
			ast.Unparent(c)
			ast.AppendChild(out, t.NewOp(ast.KindNot, c.Loc, c))
		}
		return ast.Replace(n, out)
	}
}

func isAssociative(k ast.Kind) bool {
	return k == ast.KindAnd || k == ast.KindOr
}

// Flatten collapses nested And/Or nodes into a parent of the same kind until
// a full pass makes no change.
func Flatten(root *ast.Node) {
	for flattenPass(root) {
	}
}

func flattenPass(root *ast.Node) bool {
	changed := false
	n := root
	for n != nil {
		p := n.Parent()
		if n == root || p == nil || !isAssociative(n.Kind) || p.Kind != n.Kind {
			n = ast.PreorderNext(root, n)
			continue
		}

		resume := n.FirstChild()
		if resume == nil {
			resume = ast.NextAfter(root, n)
		}
		after := n
		for c := range n.Children() {
			ast.Unparent(c)
			ast.InsertChild(after, c)
			after = c
		}
		ast.Unparent(n)
		changed = true
		n = resume
	}
	return changed
}

// Options tunes ConvertToDNF.
type Options struct {
	// MaxClauses bounds the number of clauses; zero means unbounded.
	MaxClauses int
}

// ConvertToDNF rewrites root into or(and(literal...), ...). The returned node
// is the new Or root; if root had a parent the Or takes its place.
//
// Distribution is exponential in the number of nested disjunctions and the
// clauses are not de-duplicated.
func ConvertToDNF(t *ast.Tree, root *ast.Node, opts Options) (*ast.Node, error) {
	top := t.NewOp(ast.KindOr, root.Loc)
	ast.Replace(root, top)
	ast.AppendChild(top, root)

	ConvertToNNF(t, top)
	Flatten(top)

	for {
		clause := firstComplexClause(top)
		if clause == nil {
			break
		}
		if err := distribute(t, top, clause, opts); err != nil {
			return top, err
		}
		Flatten(top)
	}

	// every clause becomes a conjunction, even single literals
	for c := range top.Children() {
		if c.Kind != ast.KindAnd {
			and := t.NewOp(ast.KindAnd, c.Loc)
			ast.Replace(c, and)
			ast.AppendChild(and, c)
		}
	}
	return top, nil
}

func isSimple(clause *ast.Node) bool {
	if ast.IsLiteral(clause) {
		return true
	}
	if clause.Kind != ast.KindAnd {
		return false
	}
	for c := range clause.Children() {
		if !ast.IsLiteral(c) {
			return false
		}
	}
	return true
}

func firstComplexClause(top *ast.Node) *ast.Node {
	for c := range top.Children() {
		if !isSimple(c) {
			return c
		}
	}
	return nil
}

// distribute replaces and(x, or(a, b), y) under top with
// and(x, a, y), and(x, b, y).
func distribute(t *ast.Tree, top, and *ast.Node, opts Options) error {
	var or *ast.Node
	for c := range and.Children() {
		if c.Kind == ast.KindOr {
			or = c
			break
		}
	}
	if or == nil {
		// flattened input only leaves Or children in a complex And
		panic("normalize: complex clause without a disjunction")
	}

	if opts.MaxClauses > 0 {
		if top.ChildCount()-1+or.ChildCount() > opts.MaxClauses {
			return ErrTooManyClauses
		}
	}

	after := and
	for arg := range or.Children() {
		ast.Unparent(arg)
		clause := t.NewOp(ast.KindAnd, and.Loc)
		for c := range and.Children() {
			if c == or {
				ast.AppendChild(clause, arg)
			} else {
				ast.AppendChild(clause, t.Clone(c))
			}
		}
		ast.InsertChild(after, clause)
		after = clause
	}
	ast.Unparent(and)
	return nil
}
