// Package arena provides the two allocators a compilation session uses: a
// long-lived chunked arena whose pointers stay valid until the session ends,
// and a LIFO scratch stack for short-lived per-case and per-macro working
// sets.
package arena

const defaultChunkSize = 256

// Arena hands out zeroed *T values from fixed-size chunks. Values live as
// long as the arena.
type Arena[T any] struct {
	chunks    [][]T
	chunkSize int
	// index of the chunk currently being filled and the fill level within it
	cur  int
	used int
}

// Mark is a checkpoint within a Stack.
type Mark struct {
	off int
}

// New creates an arena allocating chunkSize values at a time. A chunkSize of
// zero selects a default.
func New[T any](chunkSize int) *Arena[T] {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Arena[T]{chunkSize: chunkSize}
}

// Alloc returns a pointer to a zero T owned by the arena.
func (a *Arena[T]) Alloc() *T {
	if len(a.chunks) == 0 {
		a.chunks = append(a.chunks, make([]T, a.chunkSize))
	}
	if a.used == a.chunkSize {
		a.cur++
		a.used = 0
		if a.cur == len(a.chunks) {
			a.chunks = append(a.chunks, make([]T, a.chunkSize))
		}
	}
	v := &a.chunks[a.cur][a.used]
	a.used++
	return v
}

// Len reports the number of live values.
func (a *Arena[T]) Len() int {
	if len(a.chunks) == 0 {
		return 0
	}
	return a.cur*a.chunkSize + a.used
}
