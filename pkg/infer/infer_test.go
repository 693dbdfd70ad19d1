package infer

import (
	"context"
	"os"
	"testing"

	"github.com/dagger/testctx"
	"github.com/dagger/testctx/oteltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexshafranov/derplanner-sub000/pkg/annotate"
	"github.com/alexshafranov/derplanner-sub000/pkg/arena"
	"github.com/alexshafranov/derplanner-sub000/pkg/ast"
	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
	"github.com/alexshafranov/derplanner-sub000/pkg/funcs"
	"github.com/alexshafranov/derplanner-sub000/pkg/inline"
	"github.com/alexshafranov/derplanner-sub000/pkg/normalize"
	"github.com/alexshafranov/derplanner-sub000/pkg/parser"
	"github.com/alexshafranov/derplanner-sub000/pkg/types"
)

func TestMain(m *testing.M) {
	os.Exit(oteltest.Main(m))
}

type InferSuite struct{}

func TestInfer(tT *testing.T) {
	testctx.New(tT,
		oteltest.WithTracing[*testing.T](),
		oteltest.WithLogging[*testing.T](),
	).RunTests(InferSuite{})
}

type result struct {
	tree  *ast.Tree
	diags *diag.Collector
	ok    bool
}

// annotated runs the front of the pipeline on src, which must succeed.
func annotated(t *testctx.T, src string) (*ast.Tree, *diag.Collector) {
	t.Helper()
	tree := ast.NewTree()
	diags := &diag.Collector{}
	require.NoError(t, parser.Parse(tree, "test.htn", src))
	require.True(t, inline.Run(tree, diags, arena.NewStack[*ast.Node](8)), diags.Sorted())

	if dom := tree.DomainNode(); dom != nil {
		for task := range dom.Children() {
			for _, c := range ast.ChildrenOf(task, ast.KindCase) {
				cs := c.Case()
				dnf, err := normalize.ConvertToDNF(tree, cs.Precond, normalize.Options{})
				require.NoError(t, err)
				cs.Precond = dnf
			}
		}
	}
	require.True(t, annotate.Run(tree, diags, arena.NewStack[*ast.Node](8)), diags.Sorted())
	return tree, diags
}

// infer runs the front of the pipeline and then inference on src.
func infer(t *testctx.T, src string) result {
	t.Helper()
	tree, diags := annotated(t, src)
	scratch := arena.NewStack[types.Tag](16)
	r := result{tree: tree, diags: diags}
	r.ok = Run(tree, funcs.Builtins(), diags, scratch)
	require.Equal(t, 0, scratch.Len())
	return r
}

func (r result) param(task, name string) types.Tag {
	return r.tree.Task(task).Task().Params[name].Type
}

func (r result) messages() []string {
	var out []string
	for _, d := range r.diags.Sorted() {
		out = append(out, d.Message())
	}
	return out
}

func (r result) precond(task string, i int) *ast.Node {
	return ast.ChildrenOf(r.tree.Task(task), ast.KindCase)[i].Case().Precond
}

const world = `
fact {
	at(id32)
	link(id32, id32)
	count(id32, int32)
	big(int64)
	weight(float)
	pos(id32, vec3)
	ref(fact)
}
prim { walk(id32, id32) say(int32) }
`

func (InferSuite) TestLiteralType(ctx context.Context, t *testctx.T) {
	for _, tt := range []struct {
		lit  ast.Literal
		want types.Tag
	}{
		{ast.Literal{Kind: ast.IntLiteral, Int: 0}, types.Int8},
		{ast.Literal{Kind: ast.IntLiteral, Int: 127}, types.Int8},
		{ast.Literal{Kind: ast.IntLiteral, Int: -128}, types.Int8},
		{ast.Literal{Kind: ast.IntLiteral, Int: 128}, types.Int32},
		{ast.Literal{Kind: ast.IntLiteral, Int: -129}, types.Int32},
		{ast.Literal{Kind: ast.IntLiteral, Int: 1<<31 - 1}, types.Int32},
		{ast.Literal{Kind: ast.IntLiteral, Int: 1 << 31}, types.Int64},
		{ast.Literal{Kind: ast.IntLiteral, Int: -1 << 40}, types.Int64},
		{ast.Literal{Kind: ast.FloatLiteral, Float: 1}, types.Float},
	} {
		assert.Equal(t, tt.want, LiteralType(&tt.lit), "%+v", tt.lit)
	}
}

func (InferSuite) TestLocalTypes(ctx context.Context, t *testctx.T) {
	r := infer(t, world+`
domain d {
	task go(x) {
		case link(x, y) & count(y, c) & c > 2 -> [walk(x, y), say(c)]
	}
}`)
	require.True(t, r.ok, r.messages())

	assert.Equal(t, types.Id32, r.param("go", "x"))

	cs := ast.ChildrenOf(r.tree.Task("go"), ast.KindCase)[0].Case()
	for _, v := range cs.PrecondVars {
		assert.True(t, v.Type.IsConcrete(), "%s is %s", v.Var().Name, v.Type)
	}
	for _, v := range cs.TaskListVars {
		assert.True(t, v.Type.IsConcrete(), "%s is %s", v.Var().Name, v.Type)
	}
	assert.Equal(t, types.Int32, cs.PrecondVars[cs.PrecondVarLookup["c"]].Type)

	clause := cs.Precond.FirstChild()
	gt := clause.LastChild()
	assert.Equal(t, types.Int8, gt.Type)
	assert.Equal(t, types.Int8, clause.Type)
	assert.Equal(t, types.Int8, cs.Precond.Type)
}

func (InferSuite) TestAssignTakesExpressionType(ctx context.Context, t *testctx.T) {
	r := infer(t, world+`
domain d {
	task go() {
		case count(a, c) & n = c * 1000 & w = 2.5 -> [say(n)]
	}
}`)
	require.True(t, r.ok, r.messages())

	clause := r.precond("go", 0).FirstChild()
	n := clause.Child(1).FirstChild()
	w := clause.Child(2).FirstChild()
	assert.Equal(t, types.Int32, n.Type)
	assert.Equal(t, types.Float, w.Type)
	assert.Equal(t, types.Int32, clause.Child(1).LastChild().Type)

	// an assignment reading a variable assigned later in the conjunct
	r = infer(t, world+`
domain d {
	task go() {
		case x = z & z = 1 & x > 0 -> []
	}
}`)
	require.True(t, r.ok, r.messages())

	clause = r.precond("go", 0).FirstChild()
	assert.Equal(t, types.Int8, clause.Child(0).FirstChild().Type)
	assert.Equal(t, types.Int8, clause.Child(1).FirstChild().Type)
}

func (InferSuite) TestPropagationAlongCalls(ctx context.Context, t *testctx.T) {
	// the chain is declared callers first, so it takes several sweeps
	r := infer(t, world+`
domain d {
	task first(p) { case -> [second(p)] }
	task second(q) { case -> [third(q)] }
	task third(r) { case at(r) -> [] }
}`)
	require.True(t, r.ok, r.messages())
	assert.Equal(t, types.Id32, r.param("first", "p"))
	assert.Equal(t, types.Id32, r.param("second", "q"))
	assert.Equal(t, types.Id32, r.param("third", "r"))
}

func (InferSuite) TestCalleeWidensToArguments(ctx context.Context, t *testctx.T) {
	r := infer(t, world+`
domain d {
	task caller() {
		case -> [num(3)]
		case count(a, c) -> [num(c)]
	}
	task num(v) { case -> [] }
}`)
	require.True(t, r.ok, r.messages())
	assert.Equal(t, types.Int32, r.param("num", "v"))
}

func (InferSuite) TestSeedFromTaskList(ctx context.Context, t *testctx.T) {
	r := infer(t, world+`
domain d {
	task go(x, y) { case -> [walk(x, y)] }
}`)
	require.True(t, r.ok, r.messages())
	assert.Equal(t, types.Id32, r.param("go", "x"))
	assert.Equal(t, types.Id32, r.param("go", "y"))
}

func (InferSuite) TestIntrinsics(ctx context.Context, t *testctx.T) {
	r := infer(t, world+`
domain d {
	task go(a, b) {
		case pos(a, p) & pos(b, q) & dist(p, q) < 3.0 & count(a, c) & abs(c) > 1 -> []
	}
}`)
	require.True(t, r.ok, r.messages())

	clause := r.precond("go", 0).FirstChild()
	dist := clause.Child(2).FirstChild()
	require.NotNil(t, dist.Func().Sig)
	assert.Equal(t, "(vec3, vec3): float", dist.Func().Sig.String())
	assert.Equal(t, types.Float, dist.Type)

	abs := clause.Child(4).FirstChild()
	assert.Equal(t, "(int32): int32", abs.Func().Sig.String())
}

func (InferSuite) TestVectorArithmetic(ctx context.Context, t *testctx.T) {
	r := infer(t, world+`
domain d {
	task go(a) {
		case pos(a, p) & length(p + p - vec3(1.0, 0.0, 0.0)) > 2 -> []
	}
}`)
	require.True(t, r.ok, r.messages())
}

func (InferSuite) TestFactReferences(ctx context.Context, t *testctx.T) {
	r := infer(t, world+`
domain d {
	task go() { case ref(f) & ref(g) & f == g -> [] }
}`)
	require.True(t, r.ok, r.messages())
}

func (InferSuite) TestArgumentMismatchReportedOnce(ctx context.Context, t *testctx.T) {
	// propagation sweeps the domain more than once
	r := infer(t, world+`
domain d {
	task go() { case weight(w) -> [place(w)] }
	task place(p) { case at(p) -> [] }
}`)
	require.False(t, r.ok)
	assert.Equal(t, 1, r.diags.Len())
}

func (InferSuite) TestSkipsCasesWithErrors(ctx context.Context, t *testctx.T) {
	tree, diags := annotated(t, world+`
domain d {
	task go(x) { case count(x, c) & c > 2 -> [] }
}`)
	c := ast.ChildrenOf(tree.Task("go"), ast.KindCase)[0]
	gt := c.Case().Precond.FirstChild().LastChild()
	require.Equal(t, ast.KindGt, gt.Kind)
	ast.ReplaceWithError(gt, diag.UnboundVar)

	require.True(t, Run(tree, funcs.Builtins(), diags, arena.NewStack[types.Tag](16)))
	assert.Zero(t, diags.Len())
	assert.Equal(t, types.Id32, tree.Task("go").Task().Params["x"].Type)
	assert.Equal(t, types.Any, c.Case().Precond.Type)
}

func (InferSuite) TestDiagnostics(ctx context.Context, t *testctx.T) {
	for _, tt := range []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "conflicting fact types",
			src:  `domain d { task go() { case at(v) & weight(v) -> [] } }`,
			want: []string{`failed to unify type of "v": id32 vs float`},
		},
		{
			name: "precondition and task list disagree",
			src:  `domain d { task go() { case at(w) -> [say(w)] } }`,
			want: []string{`failed to unify type of "w": id32 vs int32`},
		},
		{
			name: "parameter used two ways",
			src: `domain d { task go(x) {
				case at(x) -> []
				case weight(x) -> []
			} }`,
			want: []string{`failed to unify type of "x": id32 vs float`},
		},
		{
			name: "call argument mismatch",
			src: `domain d {
				task go() { case weight(w) -> [place(w)] }
				task place(p) { case at(p) -> [] }
			}`,
			want: []string{`failed to unify type of "p": id32 vs float`},
		},
		{
			name: "unconstrained parameter",
			src:  `domain d { task idle(x) { case -> [] } }`,
			want: []string{`failed to infer type of "x"`},
		},
		{
			name: "unknown function",
			src:  `domain d { task go(x) { case at(x) & frob(x) -> [] } }`,
			want: []string{`failed to resolve call to "frob"`},
		},
		{
			name: "no overload among several",
			src:  `domain d { task go(a) { case pos(a, p) & min(p, p) > 0 -> [] } }`,
			want: []string{`failed to resolve call to "min"`},
		},
		{
			name: "single overload points at the argument",
			src:  `domain d { task go(a) { case pos(a, p) & sqrt(p) > 0 -> [] } }`,
			want: []string{`argument of "sqrt": expected float, got vec3`},
		},
		{
			name: "literal passed to a fact",
			src:  `domain d { task go() { case at(3) -> [] } }`,
			want: []string{`argument of "at": expected id32, got int8`},
		},
		{
			name: "comparison of unrelated types",
			src:  `domain d { task go(a) { case pos(a, p) & p < 1 -> [] } }`,
			want: []string{`failed to unify type of "lt": vec3 vs int8`},
		},
		{
			name: "multiplying vectors",
			src:  `domain d { task go(a) { case pos(a, p) & length(p * p) > 1 -> [] } }`,
			want: []string{`failed to unify type of "mul": vec3 vs vec3`},
		},
		{
			name: "vector as a condition",
			src:  `domain d { task go(a) { case pos(a, p) & ~cross(p, p) -> [] } }`,
			want: []string{`argument of "not": expected int8, got vec3`},
		},
	} {
		t.Run(tt.name, func(ctx context.Context, t *testctx.T) {
			r := infer(t, world+tt.src)
			require.False(t, r.ok)
			require.Equal(t, tt.want, r.messages())
		})
	}
}
