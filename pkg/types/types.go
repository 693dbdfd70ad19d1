// Package types defines the small type lattice of the planning-domain
// language and the unification join over it.
package types

import (
	"fmt"
	"strings"
)

// Tag is a concrete type of a variable, parameter or expression.
//
// The zero value is Any, the unit of Unify, so freshly allocated nodes start
// out unconstrained.
type Tag uint8

const (
	Any Tag = iota
	Id32
	Id64
	Int8
	Int32
	Int64
	Float
	Vec3
	FactRef
	NotAType
)

// Concrete lists every tag a variable can resolve to, in declaration order.
var Concrete = []Tag{Id32, Id64, Int8, Int32, Int64, Float, Vec3, FactRef}

// All lists every tag including the unit and the error element.
var All = []Tag{Any, Id32, Id64, Int8, Int32, Int64, Float, Vec3, FactRef, NotAType}

var tagNames = [...]string{
	Any:      "any",
	Id32:     "id32",
	Id64:     "id64",
	Int8:     "int8",
	Int32:    "int32",
	Int64:    "int64",
	Float:    "float",
	Vec3:     "vec3",
	FactRef:  "fact",
	NotAType: "not_a_type",
}

func (t Tag) Name() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

func (t Tag) String() string {
	return t.Name()
}

// IsNumeric reports whether t takes part in numeric widening.
func (t Tag) IsNumeric() bool {
	return t == Int8 || t == Int32 || t == Int64 || t == Float
}

// IsConcrete reports whether t is neither Any nor NotAType.
func (t Tag) IsConcrete() bool {
	return t != Any && t != NotAType && int(t) < len(tagNames)
}

// Parse maps a type name as written in declarations to its Tag.
func Parse(name string) (Tag, bool) {
	name = strings.ToLower(name)
	for _, t := range Concrete {
		if tagNames[t] == name {
			return t, true
		}
	}
	return NotAType, false
}

// numeric rank, wider is larger
func width(t Tag) int {
	switch t {
	case Int8:
		return 1
	case Int32:
		return 2
	case Int64:
		return 3
	case Float:
		return 4
	}
	return 0
}
