package types

import "fmt"

// UnificationError is returned by Check when two tags have no join.
type UnificationError struct {
	Left, Right Tag
}

func (e UnificationError) Error() string {
	return fmt.Sprintf("cannot unify %s with %s", e.Left, e.Right)
}

// Unify returns the most specific tag compatible with both a and b:
//
//   - NotAType absorbs everything
//   - Any is the unit
//   - numeric tags join to the wider one
//   - every other tag only joins with itself
func Unify(a, b Tag) Tag {
	switch {
	case a == NotAType || b == NotAType:
		return NotAType
	case a == Any:
		return b
	case b == Any:
		return a
	case a == b:
		return a
	case a.IsNumeric() && b.IsNumeric():
		if width(a) >= width(b) {
			return a
		}
		return b
	}
	return NotAType
}

// Check is Unify with an error for the failing case.
func Check(a, b Tag) (Tag, error) {
	t := Unify(a, b)
	if t == NotAType {
		return t, UnificationError{Left: a, Right: b}
	}
	return t, nil
}

// NoConversion marks a pair with no implicit conversion.
const NoConversion = -1

// widening[from][to] is the cost of passing a value of type from where to
// is expected. Only the numeric tower converts implicitly: one per integer
// step, and one extra for landing on Float.
var widening = map[Tag]map[Tag]int{
	Int8:  {Int8: 0, Int32: 1, Int64: 2, Float: 4},
	Int32: {Int32: 0, Int64: 1, Float: 3},
	Int64: {Int64: 0, Float: 2},
	Float: {Float: 0},
}

// WideningCost returns the cost of implicitly converting from to to, or
// NoConversion. An Any argument matches every parameter at cost one so a
// fully known overload is preferred when one exists.
func WideningCost(from, to Tag) int {
	switch {
	case from == NotAType || to == NotAType:
		return NoConversion
	case from == to:
		return 0
	case from == Any || to == Any:
		return 1
	}
	if row, ok := widening[from]; ok {
		if c, ok := row[to]; ok {
			return c
		}
	}
	return NoConversion
}
