package funcs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/alexshafranov/derplanner-sub000/pkg/types"
)

func TestRegisterDeduplicates(t *testing.T) {
	tbl := NewTable()
	first := tbl.Register("f", types.Sig(types.Float, types.Float))
	second := tbl.Register("f", types.Sig(types.Float, types.Float))
	require.Same(t, first, second)
	require.Len(t, tbl.Overloads("f"), 1)

	tbl.Register("f", types.Sig(types.Int32, types.Int32))
	require.Len(t, tbl.Overloads("f"), 2)
}

func TestResolvePicksLowestRank(t *testing.T) {
	tbl := Builtins()

	tests := []struct {
		name string
		fn   string
		args []types.Tag
		want *types.Signature
	}{
		{"exact int8", "abs", []types.Tag{types.Int8}, types.Sig(types.Int8, types.Int8)},
		{"exact float", "abs", []types.Tag{types.Float}, types.Sig(types.Float, types.Float)},
		{"int8 widens to int32", "min", []types.Tag{types.Int8, types.Int8}, types.Sig(types.Int32, types.Int32, types.Int32)},
		{"mixed widens to int64", "max", []types.Tag{types.Int32, types.Int64}, types.Sig(types.Int64, types.Int64, types.Int64)},
		{"int and float", "max", []types.Tag{types.Int32, types.Float}, types.Sig(types.Float, types.Float, types.Float)},
		{"int into float only", "sqrt", []types.Tag{types.Int32}, types.Sig(types.Float, types.Float)},
		{"vec3", "dot", []types.Tag{types.Vec3, types.Vec3}, types.Sig(types.Float, types.Vec3, types.Vec3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tbl.Resolve(tt.fn, tt.args)
			require.NoError(t, err)
			require.True(t, tt.want.Eq(got), "got %s want %s", got, tt.want)
		})
	}
}

// Unknown argument types match every overload at equal cost, so the first
// registered overload wins.
func TestResolveTieGoesToFirstRegistered(t *testing.T) {
	tbl := Builtins()
	got, err := tbl.Resolve("abs", []types.Tag{types.Any})
	require.NoError(t, err)
	require.True(t, types.Sig(types.Int8, types.Int8).Eq(got))

	tbl = NewTable()
	tbl.Register("g", types.Sig(types.Float, types.Int64))
	tbl.Register("g", types.Sig(types.Int64, types.Float))
	got, err = tbl.Resolve("g", []types.Tag{types.Int32})
	require.NoError(t, err)
	require.Equal(t, types.Float, got.Return, "int32->int64 costs less than int32->float")
}

func TestResolveFailures(t *testing.T) {
	tbl := Builtins()

	_, err := tbl.Resolve("nope", nil)
	require.True(t, errors.Is(err, ErrUnknownFunction))

	_, err = tbl.Resolve("dot", []types.Tag{types.Vec3, types.Float})
	require.True(t, errors.Is(err, ErrNoOverload))
	require.Contains(t, err.Error(), "dot(vec3, float)")

	_, err = tbl.Resolve("abs", []types.Tag{types.Int8, types.Int8})
	require.True(t, errors.Is(err, ErrNoOverload), "arity mismatch disqualifies")
}

func TestRemove(t *testing.T) {
	tbl := Builtins()
	require.True(t, tbl.Has("vec3"))
	tbl.Remove("vec3")
	require.False(t, tbl.Has("vec3"))
	require.Contains(t, tbl.Names(), "dot")
}
