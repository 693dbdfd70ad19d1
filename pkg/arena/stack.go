package arena

// Stack is a LIFO scratch area. Callers push values while working on one
// item and release back to a mark once the item is done, so peak usage is
// bounded by the largest single item rather than the sum of all of them.
type Stack[T any] struct {
	items []T
}

// NewStack creates a stack with room for capacity items before growing.
func NewStack[T any](capacity int) *Stack[T] {
	return &Stack[T]{items: make([]T, 0, capacity)}
}

// Push appends v and returns its index.
func (s *Stack[T]) Push(v T) int {
	s.items = append(s.items, v)
	return len(s.items) - 1
}

// Pop removes the top item.
func (s *Stack[T]) Pop() T {
	v := s.items[len(s.items)-1]
	var zero T
	s.items[len(s.items)-1] = zero
	s.items = s.items[:len(s.items)-1]
	return v
}

// At returns a pointer to the item at index i. The pointer is only valid
// until the next Push.
func (s *Stack[T]) At(i int) *T {
	return &s.items[i]
}

// Len reports the number of live items.
func (s *Stack[T]) Len() int {
	return len(s.items)
}

// Mark records the current top.
func (s *Stack[T]) Mark() Mark {
	return Mark{off: len(s.items)}
}

// Release pops everything pushed after m.
func (s *Stack[T]) Release(m Mark) {
	if m.off > len(s.items) {
		panic("arena: release to a mark in the future")
	}
	var zero T
	for i := m.off; i < len(s.items); i++ {
		s.items[i] = zero
	}
	s.items = s.items[:m.off]
}

// Scope marks the stack and returns a func releasing back to that mark.
func (s *Stack[T]) Scope() func() {
	m := s.Mark()
	return func() { s.Release(m) }
}

// IndexFunc returns the index of the first item since m satisfying fn, or -1.
func (s *Stack[T]) IndexFunc(m Mark, fn func(T) bool) int {
	for i := m.off; i < len(s.items); i++ {
		if fn(s.items[i]) {
			return i
		}
	}
	return -1
}
