package undo

// DefaultCapacity bounds each stack when no capacity is configured.
const DefaultCapacity = 100

// History is a pair of bounded undo/redo stacks of snapshots. It is owned by a
// single goroutine and does no locking.
type History[T any] struct {
	undo     []T
	redo     []T
	capacity int
}

// New returns an empty history. capacity <= 0 selects DefaultCapacity.
func New[T any](capacity int) *History[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History[T]{capacity: capacity}
}

// Record saves the state as it was before a mutation and forgets any redo states.
func (h *History[T]) Record(pre T) {
	h.undo = h.push(h.undo, pre)
	clear(h.redo)
	h.redo = h.redo[:0]
}

// Undo returns the previous state and remembers current for Redo. ok is false
// when there is nothing to undo.
func (h *History[T]) Undo(current T) (T, bool) {
	prev, ok := pop(&h.undo)
	if !ok {
		return current, false
	}
	h.redo = h.push(h.redo, current)
	return prev, true
}

// Redo is the mirror of Undo.
func (h *History[T]) Redo(current T) (T, bool) {
	next, ok := pop(&h.redo)
	if !ok {
		return current, false
	}
	h.undo = h.push(h.undo, current)
	return next, true
}

func (h *History[T]) CanUndo() bool { return len(h.undo) > 0 }

func (h *History[T]) CanRedo() bool { return len(h.redo) > 0 }

// Depth returns the sizes of the undo and redo stacks.
func (h *History[T]) Depth() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

// push appends v, evicting the oldest entry once the stack is full.
func (h *History[T]) push(stack []T, v T) []T {
	if len(stack) >= h.capacity {
		var zero T
		copy(stack, stack[1:])
		stack[len(stack)-1] = zero
		stack = stack[:len(stack)-1]
	}
	return append(stack, v)
}

func pop[T any](stack *[]T) (T, bool) {
	var zero T
	s := *stack
	if len(s) == 0 {
		return zero, false
	}
	v := s[len(s)-1]
	s[len(s)-1] = zero
	*stack = s[:len(s)-1]
	return v, true
}
