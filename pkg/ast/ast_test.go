package ast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
	"github.com/alexshafranov/derplanner-sub000/pkg/types"
)

var noLoc = diag.Location{}

func names(n *Node) []string {
	var out []string
	for c := range n.Children() {
		out = append(out, c.Name())
	}
	return out
}

func checkInvariants(t *testing.T, n *Node) {
	t.Helper()
	if n.FirstChild() == nil {
		require.Nil(t, n.LastChild())
		return
	}
	require.Nil(t, n.FirstChild().PrevSibling())
	require.Nil(t, n.LastChild().NextSibling())
	var prev *Node
	for c := range n.Children() {
		require.Same(t, n, c.Parent())
		require.Same(t, prev, c.PrevSibling())
		prev = c
	}
	require.Same(t, prev, n.LastChild())
}

func TestAppendInsertUnparent(t *testing.T) {
	tr := NewTree()
	and := tr.NewOp(KindAnd, noLoc)
	a, b, c, d := tr.NewVar("a", noLoc), tr.NewVar("b", noLoc), tr.NewVar("c", noLoc), tr.NewVar("d", noLoc)

	AppendChild(and, a)
	AppendChild(and, c)
	InsertChild(a, b)
	InsertChild(c, d)
	checkInvariants(t, and)
	require.Equal(t, []string{"a", "b", "c", "d"}, names(and))

	Unparent(a)
	checkInvariants(t, and)
	Unparent(d)
	checkInvariants(t, and)
	require.Equal(t, []string{"b", "c"}, names(and))
	require.Nil(t, a.Parent())

	Unparent(b)
	Unparent(c)
	checkInvariants(t, and)
	require.Zero(t, and.ChildCount())
}

func TestInvariantViolationsPanic(t *testing.T) {
	tr := NewTree()
	root := tr.NewVar("x", noLoc)
	require.Panics(t, func() { Unparent(root) })
	require.Panics(t, func() { InsertChild(root, tr.NewVar("y", noLoc)) })

	parent := tr.NewOp(KindOr, noLoc)
	child := tr.NewVar("z", noLoc)
	AppendChild(parent, child)
	require.Panics(t, func() { AppendChild(tr.NewOp(KindAnd, noLoc), child) })
}

func TestPreorderNext(t *testing.T) {
	tr := NewTree()
	// or(and(a, not(b)), c)
	root := tr.NewOp(KindOr, noLoc,
		tr.NewOp(KindAnd, noLoc, tr.NewVar("a", noLoc), tr.NewOp(KindNot, noLoc, tr.NewVar("b", noLoc))),
		tr.NewVar("c", noLoc),
	)

	var got []string
	for n := range Preorder(root) {
		if n.Name() != "" {
			got = append(got, n.Name())
		} else {
			got = append(got, n.Kind.String())
		}
	}
	require.Equal(t, []string{"or", "and", "a", "not", "b", "c"}, got)

	// a subtree walk stops at the subtree boundary
	and := root.FirstChild()
	var sub []Kind
	for n := range Preorder(and) {
		sub = append(sub, n.Kind)
	}
	require.Equal(t, []Kind{KindAnd, KindVar, KindNot, KindVar}, sub)
}

func TestReplaceKeepsPosition(t *testing.T) {
	tr := NewTree()
	and := tr.NewOp(KindAnd, noLoc, tr.NewVar("a", noLoc), tr.NewVar("b", noLoc), tr.NewVar("c", noLoc))
	b := and.Child(1)
	Replace(b, tr.NewVar("x", noLoc))
	checkInvariants(t, and)
	require.Equal(t, []string{"a", "x", "c"}, names(and))
	require.Nil(t, b.Parent())

	detached := tr.NewVar("r", noLoc)
	got := Replace(detached, tr.NewVar("s", noLoc))
	require.Equal(t, "s", got.Name())
	require.Nil(t, got.Parent())
}

func TestCloneIsDeep(t *testing.T) {
	tr := NewTree()
	orig := tr.NewFunc("at", noLoc, tr.NewVar("x", noLoc), tr.NewInt(3, noLoc))
	orig.Type = types.Int8
	cp := tr.Clone(orig)

	require.True(t, ShapeOf(orig).Equal(ShapeOf(cp)))
	require.Nil(t, cp.Parent())
	require.NotSame(t, orig.FirstChild(), cp.FirstChild())
	require.Equal(t, types.Int8, cp.Type)

	cp.FirstChild().Var().Name = "y"
	require.Equal(t, "x", orig.FirstChild().Var().Name)
}

func TestReplaceWithErrorIsOpaque(t *testing.T) {
	tr := NewTree()
	inner := tr.NewFunc("m", noLoc, tr.NewVar("x", noLoc))
	root := tr.NewOp(KindAnd, noLoc, inner, tr.NewVar("y", noLoc))

	require.False(t, HasError(root))
	ReplaceWithError(inner, diag.RecursiveMacro)
	require.True(t, HasError(root))
	require.Equal(t, KindFunc, inner.ErrorNode().Was)

	var seen []Kind
	for n := range Preorder(root) {
		seen = append(seen, n.Kind)
	}
	require.Equal(t, []Kind{KindAnd, KindError, KindVar}, seen)
}

func TestFindAttribute(t *testing.T) {
	tr := NewTree()
	c := tr.New(KindCase, noLoc)
	AppendChild(c, tr.NewNamed(KindAttribute, "each", noLoc))
	AppendChild(c, tr.NewNamed(KindAttribute, "sort", noLoc))
	require.Equal(t, "sort", FindAttribute(c, "sort").Name())
	require.Nil(t, FindAttribute(c, "size"))
}

func TestIsLiteral(t *testing.T) {
	tr := NewTree()
	require.True(t, IsLiteral(tr.NewFunc("f", noLoc)))
	require.True(t, IsLiteral(tr.NewOp(KindNot, noLoc, tr.NewFunc("f", noLoc))))
	require.True(t, IsLiteral(tr.NewOp(KindLt, noLoc, tr.NewVar("a", noLoc), tr.NewInt(1, noLoc))))
	require.False(t, IsLiteral(tr.NewOp(KindNot, noLoc, tr.NewOp(KindAnd, noLoc))))
	require.False(t, IsLiteral(tr.NewOp(KindOr, noLoc)))
}

func TestKindLabels(t *testing.T) {
	require.Equal(t, "task_list", KindTaskList.String())
	for k := Kind(0); k < numKinds; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		require.Equal(t, k, got)
	}
}

func TestPrintAndReadShape(t *testing.T) {
	tr := NewTree()
	x := tr.NewVar("x", noLoc)
	x.Type = types.Id32
	x.Var().Binding = true
	lit := tr.NewFloat(2.5, noLoc)
	root := tr.NewOp(KindOr, noLoc,
		tr.NewOp(KindAnd, noLoc,
			tr.NewFunc("at", noLoc, x),
			tr.NewOp(KindLt, noLoc, tr.NewVar("d", noLoc), lit),
		),
	)

	out := Sprint(root)
	require.Equal(t, strings.Join([]string{
		"or",
		"  and",
		"    func at",
		"      var x binding <id32>",
		"    lt",
		"      var d",
		"      literal 2.5",
		"",
	}, "\n"), out)

	shape, err := ReadShape(strings.NewReader(out))
	require.NoError(t, err)
	require.True(t, shape.Equal(ShapeOf(root)))
}

func TestExport(t *testing.T) {
	tr := NewTree()
	loc := diag.Location{Line: 3, Column: 7}
	x := tr.NewVar("x", loc)
	x.Type = types.Id32
	root := tr.NewFunc("at", loc, x)

	e := Export(root)
	require.Equal(t, "func at", e.Label)
	require.Equal(t, 3, e.Line)
	require.Len(t, e.Children, 1)
	require.Equal(t, "var x <id32>", e.Children[0].Label)
	require.Empty(t, e.Children[0].Children)
}

func TestReadShapeErrors(t *testing.T) {
	_, err := ReadShape(strings.NewReader("or\n    and\n"))
	require.ErrorContains(t, err, "skips a level")

	_, err = ReadShape(strings.NewReader("or\n bogus\n"))
	require.ErrorContains(t, err, "odd indentation")

	_, err = ReadShape(strings.NewReader("frobnicate\n"))
	require.ErrorContains(t, err, "unknown kind")

	_, err = ReadShape(strings.NewReader(""))
	require.Error(t, err)
}

type countingVisitor struct {
	BaseVisitor
	vars, funcs, ops int
}

func (c *countingVisitor) VisitVar(*Node, *Var)   { c.vars++ }
func (c *countingVisitor) VisitFunc(*Node, *Func) { c.funcs++ }
func (c *countingVisitor) VisitOp(*Node)          { c.ops++ }

func TestDispatch(t *testing.T) {
	tr := NewTree()
	root := tr.NewOp(KindAnd, noLoc, tr.NewFunc("f", noLoc, tr.NewVar("a", noLoc)), tr.NewOp(KindNot, noLoc, tr.NewVar("b", noLoc)))
	v := &countingVisitor{}
	for n := range Preorder(root) {
		Dispatch(n, v)
	}
	require.Equal(t, 2, v.vars)
	require.Equal(t, 1, v.funcs)
	require.Equal(t, 2, v.ops)
}

func TestCompact(t *testing.T) {
	tr := NewTree()
	root := tr.NewOp(KindOr, noLoc,
		tr.NewOp(KindAnd, noLoc, tr.NewFunc("at", noLoc, tr.NewVar("x", noLoc)), tr.NewOp(KindNot, noLoc, tr.NewFunc("busy", noLoc))),
		tr.NewOp(KindLt, noLoc, tr.NewVar("d", noLoc), tr.NewInt(-3, noLoc)),
	)
	require.Equal(t, "or(and(at(x), not(busy())), lt(d, -3))", Compact(root))
}
