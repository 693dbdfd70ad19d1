package funcs

import "github.com/alexshafranov/derplanner-sub000/pkg/types"

// Builtins returns a table with the intrinsic functions registered.
func Builtins() *Table {
	t := NewTable()

	for _, n := range []types.Tag{types.Int8, types.Int32, types.Int64, types.Float} {
		t.Register("abs", types.Sig(n, n))
	}
	for _, name := range []string{"min", "max"} {
		for _, n := range []types.Tag{types.Int32, types.Int64, types.Float} {
			t.Register(name, types.Sig(n, n, n))
		}
	}
	for _, name := range []string{"sqrt", "sin", "cos", "floor", "ceil"} {
		t.Register(name, types.Sig(types.Float, types.Float))
	}

	vec := types.Vec3
	t.Register("vec3", types.Sig(vec, types.Float, types.Float, types.Float))
	t.Register("dot", types.Sig(types.Float, vec, vec))
	t.Register("cross", types.Sig(vec, vec, vec))
	t.Register("length", types.Sig(types.Float, vec))
	t.Register("dist", types.Sig(types.Float, vec, vec))
	for _, axis := range []string{"x", "y", "z"} {
		t.Register(axis, types.Sig(types.Float, vec))
	}

	return t
}
