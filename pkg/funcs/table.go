// Package funcs holds the intrinsic function overloads visible to
// preconditions and resolves calls to the best matching overload.
package funcs

import (
	"slices"

	"github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"

	"github.com/alexshafranov/derplanner-sub000/pkg/types"
)

var (
	// ErrUnknownFunction is returned when no overload of the name exists.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrNoOverload is returned when overloads exist but none accepts the
	// argument types.
	ErrNoOverload = errors.New("no matching overload")
)

// Table maps a function name to its ordered overload list.
type Table struct {
	funcs map[string]*overloads
}

type overloads struct {
	seen *set.HashSet[*types.Signature, uint64]
	sigs []*types.Signature
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{funcs: map[string]*overloads{}}
}

// Register adds sig as the next overload of name. Registering a structurally
// equal signature twice keeps the first one, which is returned.
func (t *Table) Register(name string, sig *types.Signature) *types.Signature {
	ol, ok := t.funcs[name]
	if !ok {
		ol = &overloads{seen: set.NewHashSet[*types.Signature, uint64](4)}
		t.funcs[name] = ol
	}
	if !ol.seen.Insert(sig) {
		for _, existing := range ol.sigs {
			if existing.Eq(sig) {
				return existing
			}
		}
		// hash collision between different signatures
	}
	ol.sigs = append(ol.sigs, sig)
	return sig
}

// Remove drops every overload of name.
func (t *Table) Remove(name string) {
	delete(t.funcs, name)
}

// Has reports whether any overload of name is registered.
func (t *Table) Has(name string) bool {
	_, ok := t.funcs[name]
	return ok
}

// Overloads returns the overloads of name in registration order.
func (t *Table) Overloads(name string) []*types.Signature {
	ol, ok := t.funcs[name]
	if !ok {
		return nil
	}
	return slices.Clone(ol.sigs)
}

// Names returns all registered names, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.funcs))
	for name := range t.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Rank is the total widening cost of passing args to sig, or
// types.NoConversion when some argument cannot be passed at all.
func Rank(sig *types.Signature, args []types.Tag) int {
	if len(args) != len(sig.Params) {
		return types.NoConversion
	}
	total := 0
	for i, arg := range args {
		c := types.WideningCost(arg, sig.Params[i])
		if c == types.NoConversion {
			return types.NoConversion
		}
		total += c
	}
	return total
}

// Resolve picks the lowest-ranked overload of name accepting args. Ties go
// to the overload registered first.
func (t *Table) Resolve(name string, args []types.Tag) (*types.Signature, error) {
	ol, ok := t.funcs[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownFunction, name)
	}
	var best *types.Signature
	bestRank := 0
	for _, sig := range ol.sigs {
		r := Rank(sig, args)
		if r == types.NoConversion {
			continue
		}
		if best == nil || r < bestRank {
			best, bestRank = sig, r
		}
	}
	if best == nil {
		return nil, errors.Wrapf(ErrNoOverload, "%s%s", name, argList(args))
	}
	return best, nil
}

func argList(args []types.Tag) string {
	s := "("
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += a.Name()
	}
	return s + ")"
}
