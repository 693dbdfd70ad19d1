package types

import (
	"hash/fnv"
	"strings"
)

// Signature is one overload of a function: a return type and ordered
// parameter types.
type Signature struct {
	Return Tag
	Params []Tag
}

// Sig builds a signature.
func Sig(ret Tag, params ...Tag) *Signature {
	return &Signature{Return: ret, Params: params}
}

// Arity is the number of parameters.
func (s *Signature) Arity() int {
	return len(s.Params)
}

// Hash is a structural hash over the return and parameter tags.
func (s *Signature) Hash() uint64 {
	h := fnv.New64a()
	buf := make([]byte, 0, len(s.Params)+2)
	buf = append(buf, byte(s.Return), byte(len(s.Params)))
	for _, p := range s.Params {
		buf = append(buf, byte(p))
	}
	_, _ = h.Write(buf)
	return h.Sum64()
}

// Eq reports structural equality.
func (s *Signature) Eq(other *Signature) bool {
	if s.Return != other.Return || len(s.Params) != len(other.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}

func (s *Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.Name()
	}
	return "(" + strings.Join(params, ", ") + "): " + s.Return.Name()
}
