package inline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexshafranov/derplanner-sub000/pkg/arena"
	"github.com/alexshafranov/derplanner-sub000/pkg/ast"
	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
	"github.com/alexshafranov/derplanner-sub000/pkg/parser"
)

type result struct {
	tree    *ast.Tree
	diags   *diag.Collector
	ok      bool
	scratch *arena.Stack[*ast.Node]
}

func inline(t *testing.T, src string) result {
	t.Helper()
	tree := ast.NewTree()
	require.NoError(t, parser.Parse(tree, "test.htn", src))
	r := result{tree: tree, diags: &diag.Collector{}, scratch: arena.NewStack[*ast.Node](8)}
	r.ok = Run(tree, r.diags, r.scratch)
	return r
}

// precond returns the compact precondition of the i-th case of task.
func (r result) precond(task string, i int) string {
	for n := range r.tree.DomainNode().Children() {
		if n.Kind == ast.KindTask && n.Task().Name == task {
			return ast.Compact(ast.ChildrenOf(n, ast.KindCase)[i].Case().Precond)
		}
	}
	return ""
}

func (r result) kinds() []diag.Kind {
	var out []diag.Kind
	for _, d := range r.diags.Sorted() {
		out = append(out, d.Kind)
	}
	return out
}

func TestSimpleExpansion(t *testing.T) {
	r := inline(t, `
		fact { at(id32) }
		domain d {
			macro here(a) = at(a)
			task t(x) { case here(x) -> [] }
		}`)
	require.True(t, r.ok)
	require.Equal(t, "at(x)", r.precond("t", 0))
	require.Equal(t, 0, r.scratch.Len())
}

func TestArgumentsAreExpressions(t *testing.T) {
	r := inline(t, `
		domain d {
			macro close(a, b) = a - b < 3
			task t(x) { case close(x * 2, 7) & close(x, x) -> [] }
		}`)
	require.True(t, r.ok)
	require.Equal(t, "and(lt(sub(mul(x, 2), 7), 3), lt(sub(x, x), 3))", r.precond("t", 0))
}

func TestHygiene(t *testing.T) {
	r := inline(t, `
		fact { dist(id32, id32, float) }
		domain d {
			macro near(a, b) = dist(a, b, d) & d < 3.0
			task t(x, y, d) { case near(x, y) & near(y, x) & d > 0 -> [] }
		}`)
	require.True(t, r.ok)
	// each expansion gets its own local, both uses of one local stay linked,
	// and the task's own d is not captured
	require.Equal(t,
		"and(and(dist(x, y, d_1), lt(d_1, 3)), and(dist(y, x, d_2), lt(d_2, 3)), gt(d, 0))",
		r.precond("t", 0))
}

func TestFreshNamesAvoidExistingIdentifiers(t *testing.T) {
	r := inline(t, `
		fact { f(int32) }
		domain d {
			macro m() = f(v)
			task t(v_1) { case m() & f(v_1) -> [] }
		}`)
	require.True(t, r.ok)
	require.Equal(t, "and(f(v_2), f(v_1))", r.precond("t", 0))
}

func TestTaskMacrosSeeTaskParams(t *testing.T) {
	r := inline(t, `
		fact { at(id32) link(id32, id32) }
		domain d {
			task go(home) {
				macro from_home(p) = link(home, p) & at(q)
				case from_home(x) -> []
			}
		}`)
	require.True(t, r.ok)
	require.Equal(t, "and(link(home, x), at(q_1))", r.precond("go", 0))
}

func TestTaskScopeShadowsDomain(t *testing.T) {
	r := inline(t, `
		fact { a() b() }
		domain d {
			macro m() = a()
			task t1() { macro m() = b()  case m() -> [] }
			task t2() { case m() -> [] }
		}`)
	require.True(t, r.ok)
	require.Equal(t, "b()", r.precond("t1", 0))
	require.Equal(t, "a()", r.precond("t2", 0))
}

func TestZeroArgMacroAsVar(t *testing.T) {
	r := inline(t, `
		fact { at(id32) busy() }
		domain d {
			macro idle() = ~busy()
			macro ready(x) = at(x) & idle
			task t(p) { case ready(p) | idle -> [] }
		}`)
	require.True(t, r.ok)
	require.Equal(t, "or(and(at(p), not(busy())), not(busy()))", r.precond("t", 0))
}

func TestMacroBodySeesDeclarationScope(t *testing.T) {
	r := inline(t, `
		fact { a() b() }
		domain d {
			macro inner() = a()
			macro outer() = inner()
			task t() { macro inner() = b()  case outer() | inner() -> [] }
		}`)
	require.True(t, r.ok)
	require.Equal(t, "or(a(), b())", r.precond("t", 0))
}

func TestFactNamesAreNotMacros(t *testing.T) {
	r := inline(t, `
		fact { at(id32) }
		domain d {
			macro at(x) = x > 1
			task t(p) { case at(p) -> [] }
		}`)
	require.True(t, r.ok)
	require.Equal(t, "at(p)", r.precond("t", 0))
}

func TestTaskListAndAttributes(t *testing.T) {
	r := inline(t, `
		prim { go(id32) }
		domain d {
			macro home() = 7
			macro twice(v) = v * 2
			task t(p) { @sort(twice(p)) case -> [go(home)] }
		}`)
	require.True(t, r.ok)

	task := r.tree.DomainNode().LastChild()
	c := ast.FindChild(task, ast.KindCase)
	assert.Equal(t, "sort(mul(p, 2))", ast.Compact(ast.FindAttribute(c, "sort")))
	assert.Equal(t, "task_list(go(7))", ast.Compact(c.Case().Tasks))
}

func TestRecursiveMacro(t *testing.T) {
	r := inline(t, `
		fact { a() }
		domain d {
			macro loop(x) = a() & loop(x)
			task t() { case loop(1) -> [] }
		}`)
	require.False(t, r.ok)
	require.Equal(t, []diag.Kind{diag.RecursiveMacro}, r.kinds())
	d := r.diags.Sorted()[0]
	assert.Equal(t, `recursive macro "loop"`, d.Message())
	assert.Equal(t, 4, d.Loc.Line)

	// the call site is left as an opaque error
	require.Equal(t, "error", r.precond("t", 0))
}

func TestMutualRecursion(t *testing.T) {
	r := inline(t, `
		fact { a() }
		domain d {
			macro even() = odd()
			macro odd() = even() | a()
			macro user() = even()
			task t() { case user() -> [] }
		}`)
	require.False(t, r.ok)
	// one report per macro on the cycle, none for the macro that only uses it
	require.Equal(t, []diag.Kind{diag.RecursiveMacro, diag.RecursiveMacro}, r.kinds())
	var names []string
	for _, d := range r.diags.Sorted() {
		names = append(names, d.Args[0].Str)
	}
	require.Equal(t, []string{"even", "odd"}, names)
	require.Equal(t, 0, r.scratch.Len())
}

func TestDiamondIsNotRecursive(t *testing.T) {
	r := inline(t, `
		fact { a() }
		domain d {
			macro leaf() = a()
			macro left() = leaf()
			macro right() = leaf()
			macro top() = left() & right()
			task t() { case top() -> [] }
		}`)
	require.True(t, r.ok)
	require.Equal(t, "and(a(), a())", r.precond("t", 0))
}

func TestMacroRedefinition(t *testing.T) {
	r := inline(t, `
		fact { a() b() }
		domain d {
			macro m() = a()
			macro m() = b()
			task t() {
				macro k() = a()
				macro k() = b()
				case m() & k() -> []
			}
		}`)
	require.False(t, r.ok)
	require.Equal(t, []diag.Kind{diag.Redefinition, diag.Redefinition}, r.kinds())
	assert.Equal(t, `redefinition of macro "m"`, r.diags.Sorted()[0].Message())
	// the first declaration wins
	require.Equal(t, "and(a(), a())", r.precond("t", 0))
}

func TestMacroArity(t *testing.T) {
	r := inline(t, `
		fact { a(int8) }
		domain d {
			macro m(x, y) = a(x)
			task t() { case m(1) -> [] }
		}`)
	require.False(t, r.ok)
	require.Equal(t, []diag.Kind{diag.MismatchingNumberOfArgs}, r.kinds())
	assert.Equal(t, `macro "m" called with the wrong number of arguments`, r.diags.Sorted()[0].Message())
}

func TestNoDomain(t *testing.T) {
	r := inline(t, `fact { a() }`)
	require.True(t, r.ok)
}
